// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/tubehub/tubehub-api/internal/handler"
)

// Handlers groups everything the route table needs. Gate and OptionalGate
// are the authentication middlewares; RateLimit guards the credential
// endpoints and ListCache fronts the public video listing. Any of the three
// (except Gate) may be nil.
type Handlers struct {
	Auth      *handler.AuthHandler
	Accounts  *handler.AccountHandler
	Videos    *handler.VideoHandler
	Social    *handler.SocialHandler
	Dashboard *handler.DashboardHandler

	Gate         echo.MiddlewareFunc
	OptionalGate echo.MiddlewareFunc
	RateLimit    echo.MiddlewareFunc
	ListCache    echo.MiddlewareFunc
	Metrics      echo.HandlerFunc
}

// RegisterRoutes registers the operational endpoints that sit outside /v1.
func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/healthz", handler.Health)
	if h.Metrics != nil {
		e.GET("/metrics", h.Metrics)
	}
}

// RegisterAPI mounts every /v1 route.
func RegisterAPI(e *echo.Echo, h Handlers) {
	v1 := e.Group("/v1")
	registerUsers(v1, h)
	registerVideos(v1, h)

	subs := v1.Group("/subscriptions", h.Gate)
	subs.POST("/c/:channelId", h.Social.ToggleSubscription)

	likes := v1.Group("/likes", h.Gate)
	likes.POST("/toggle/v/:videoId", h.Social.ToggleLike)

	dash := v1.Group("/dashboard", h.Gate)
	dash.GET("/stats", h.Dashboard.Stats)
	dash.GET("/videos", h.Dashboard.Videos)
}

func registerUsers(v1 *echo.Group, h Handlers) {
	users := v1.Group("/users")
	limited := chain(h.RateLimit)
	users.POST("/register", h.Auth.Register, limited...)
	users.POST("/login", h.Auth.Login, limited...)
	users.POST("/refresh-token", h.Auth.RefreshToken, limited...)

	users.POST("/logout", h.Auth.Logout, h.Gate)
	users.POST("/change-password", h.Auth.ChangePassword, h.Gate)
	users.GET("/current-user", h.Auth.CurrentUser, h.Gate)
	users.PATCH("/update-account", h.Accounts.UpdateAccount, h.Gate)
	users.PATCH("/avatar", h.Accounts.UpdateAvatar, h.Gate)
	users.PATCH("/cover-image", h.Accounts.UpdateCoverImage, h.Gate)
	users.GET("/history", h.Accounts.History, h.Gate)
	users.GET("/c/:username", h.Accounts.ChannelProfile, chain(h.OptionalGate)...)
}

func registerVideos(v1 *echo.Group, h Handlers) {
	videos := v1.Group("/videos")
	videos.GET("", h.Videos.List, chain(h.ListCache)...)
	videos.POST("", h.Videos.Publish, h.Gate)
	videos.GET("/:id", h.Videos.Get, chain(h.OptionalGate)...)
	videos.PATCH("/:id", h.Videos.Update, h.Gate)
	videos.DELETE("/:id", h.Videos.Delete, h.Gate)
	videos.PATCH("/toggle/publish/:id", h.Videos.TogglePublish, h.Gate)
}

// chain drops nil middlewares.
func chain(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mws))
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
