package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tubehub/tubehub-api/internal/apperr"
)

// envelope is the body of every successful JSON response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type errorEnvelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

func respond(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

// ErrorHandler renders every error returned by handlers and middleware as
// {"success":false,"message":...,"errors":[]} with the mapped status.
// Causes of internal failures are logged, never sent.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, message := http.StatusInternalServerError, "internal server error"
		var (
			ae *apperr.Error
			he *echo.HTTPError
		)
		switch {
		case errors.As(err, &ae):
			status, message = ae.Status, ae.Message
		case errors.As(err, &he):
			status, message = he.Code, fmt.Sprint(he.Message)
			if he.Internal != nil {
				err = he.Internal
			}
		}
		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				"method", c.Request().Method,
				"path", c.Path(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
				"err", err)
		}

		body := errorEnvelope{Success: false, Message: message, Errors: []string{}}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Error("failed to write error response", "err", err)
		}
	}
}
