package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/tubehub/tubehub-api/internal/handler"
)

func denyAll(echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error { return echo.ErrUnauthorized }
}

func testHandlers() Handlers {
	return Handlers{
		Auth:      &handler.AuthHandler{},
		Accounts:  &handler.AccountHandler{},
		Videos:    &handler.VideoHandler{},
		Social:    &handler.SocialHandler{},
		Dashboard: &handler.DashboardHandler{},
		Gate:      denyAll,
		Metrics:   func(c echo.Context) error { return c.String(http.StatusOK, "# metrics") },
	}
}

func TestRoutesAreRegistered(t *testing.T) {
	e := echo.New()
	h := testHandlers()
	RegisterRoutes(e, h)
	RegisterAPI(e, h)

	have := map[string]bool{}
	for _, r := range e.Routes() {
		have[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /healthz",
		"GET /metrics",
		"POST /v1/users/register",
		"POST /v1/users/login",
		"POST /v1/users/logout",
		"POST /v1/users/refresh-token",
		"POST /v1/users/change-password",
		"GET /v1/users/current-user",
		"PATCH /v1/users/update-account",
		"PATCH /v1/users/avatar",
		"PATCH /v1/users/cover-image",
		"GET /v1/users/history",
		"GET /v1/users/c/:username",
		"GET /v1/videos",
		"POST /v1/videos",
		"GET /v1/videos/:id",
		"PATCH /v1/videos/:id",
		"DELETE /v1/videos/:id",
		"PATCH /v1/videos/toggle/publish/:id",
		"POST /v1/subscriptions/c/:channelId",
		"POST /v1/likes/toggle/v/:videoId",
		"GET /v1/dashboard/stats",
		"GET /v1/dashboard/videos",
	} {
		if !have[want] {
			t.Errorf("route %s not registered", want)
		}
	}
}

func TestProtectedRoutesGoThroughGate(t *testing.T) {
	e := echo.New()
	h := testHandlers()
	RegisterRoutes(e, h)
	RegisterAPI(e, h)

	for _, r := range []struct{ method, path string }{
		{http.MethodPost, "/v1/users/logout"},
		{http.MethodGet, "/v1/users/current-user"},
		{http.MethodPost, "/v1/videos"},
		{http.MethodDelete, "/v1/videos/3"},
		{http.MethodPost, "/v1/likes/toggle/v/3"},
		{http.MethodGet, "/v1/dashboard/stats"},
	} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(r.method, r.path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status %d, gate not applied", r.method, r.path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
}
