package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tubehub/tubehub-api/internal/apperr"
	"github.com/tubehub/tubehub-api/internal/auth"
	"github.com/tubehub/tubehub-api/internal/middleware"
	"github.com/tubehub/tubehub-api/internal/model"
)

// SessionService is the session lifecycle the auth endpoints drive.
type SessionService interface {
	Register(ctx context.Context, in auth.RegisterInput) (model.Account, error)
	Login(ctx context.Context, in auth.LoginInput) (auth.Session, error)
	Logout(ctx context.Context, accountID uint64) error
	Refresh(ctx context.Context, incoming string) (auth.Session, error)
	ChangePassword(ctx context.Context, accountID uint64, oldPassword, newPassword string) error
}

// AuthHandler bundles dependencies for the session endpoints.
type AuthHandler struct {
	Sessions  SessionService
	Cookies   CookieConfig
	UploadDir string
}

func NewAuthHandler(s SessionService, cookies CookieConfig, uploadDir string) *AuthHandler {
	return &AuthHandler{Sessions: s, Cookies: cookies, UploadDir: uploadDir}
}

type loginReq struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken" form:"refreshToken"`
}

type changePasswordReq struct {
	OldPassword string `json:"oldPassword" form:"oldPassword"`
	NewPassword string `json:"newPassword" form:"newPassword"`
}

// Register creates an account from a multipart form with an avatar and an
// optional cover image.
func (h *AuthHandler) Register(c echo.Context) error {
	up := newUploads(h.UploadDir)
	defer up.cleanup()

	avatar, err := up.save(c, "avatar")
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid avatar upload", err)
	}
	cover, err := up.save(c, "coverImage")
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid cover image upload", err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	acc, err := h.Sessions.Register(ctx, auth.RegisterInput{
		FullName:   c.FormValue("fullName"),
		Email:      c.FormValue("email"),
		Username:   c.FormValue("username"),
		Password:   c.FormValue("password"),
		AvatarPath: avatar,
		CoverPath:  cover,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "User registered successfully", toAccountResp(acc))
}

// Login authenticates by username or email and sets both session cookies.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sess, err := h.Sessions.Login(ctx, auth.LoginInput{Username: req.Username, Email: req.Email, Password: req.Password})
	if err != nil {
		return err
	}
	h.Cookies.setSession(c, sess)
	return respond(c, http.StatusOK, "User logged in successfully", loginResp{
		User:         toAccountResp(sess.Account),
		AccessToken:  sess.Access.Value,
		RefreshToken: sess.Refresh.Value,
	})
}

// Logout clears the stored refresh token and both cookies.
func (h *AuthHandler) Logout(c echo.Context) error {
	acc, _ := middleware.CurrentAccount(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Sessions.Logout(ctx, acc.ID); err != nil {
		return err
	}
	h.Cookies.clearSession(c)
	return respond(c, http.StatusOK, "User logged out", echo.Map{})
}

// RefreshToken rotates the session. The token is read from the
// refreshToken cookie, else from the body.
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	incoming := ""
	if ck, err := c.Cookie(refreshCookieName); err == nil {
		incoming = strings.TrimSpace(ck.Value)
	}
	if incoming == "" {
		var req refreshReq
		if err := c.Bind(&req); err == nil {
			incoming = req.RefreshToken
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sess, err := h.Sessions.Refresh(ctx, incoming)
	if err != nil {
		return err
	}
	h.Cookies.setSession(c, sess)
	return respond(c, http.StatusOK, "Access token refreshed", tokenPairResp{
		AccessToken:  sess.Access.Value,
		RefreshToken: sess.Refresh.Value,
	})
}

// ChangePassword replaces the caller's password after checking the old one.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	acc, _ := middleware.CurrentAccount(c)
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Sessions.ChangePassword(ctx, acc.ID, req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Password changed successfully", echo.Map{})
}

// CurrentUser returns the account resolved by the gate.
func (h *AuthHandler) CurrentUser(c echo.Context) error {
	acc, ok := middleware.CurrentAccount(c)
	if !ok {
		return apperr.Unauthenticated("unauthenticated request")
	}
	return respond(c, http.StatusOK, "User fetched successfully", toAccountResp(acc))
}
