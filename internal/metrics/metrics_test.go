package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

type statusErr struct{ code int }

func (e statusErr) Error() string   { return "status" }
func (e statusErr) StatusCode() int { return e.code }

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestMiddlewareRecordsRouteAndStatus(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/v1/videos/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e.POST("/v1/users/login", func(c echo.Context) error { return statusErr{code: http.StatusUnauthorized} })

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/v1/videos/42", nil),
		httptest.NewRequest(http.MethodPost, "/v1/users/login", nil),
	} {
		e.ServeHTTP(httptest.NewRecorder(), req)
	}

	out := scrape(t, m)
	for _, want := range []string{
		`tubehub_http_requests_total{method="GET",route="/v1/videos/:id",status="204"} 1`,
		`tubehub_http_requests_total{method="POST",route="/v1/users/login",status="401"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in exposition", want)
		}
	}
}

func TestAuthOutcome(t *testing.T) {
	m := New()
	m.AuthOutcome("login", "ok")
	m.AuthOutcome("login", "ok")
	m.AuthOutcome("refresh", "TokenReuse")

	out := scrape(t, m)
	if !strings.Contains(out, `tubehub_auth_events_total{operation="login",outcome="ok"} 2`) {
		t.Fatalf("login counter missing:\n%s", out)
	}

	var nilMetrics *Metrics
	nilMetrics.AuthOutcome("login", "ok")
}
