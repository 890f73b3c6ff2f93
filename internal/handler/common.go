package handler

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tubehub/tubehub-api/internal/apperr"
	"github.com/tubehub/tubehub-api/internal/media"
	"github.com/tubehub/tubehub-api/internal/middleware"
	"github.com/tubehub/tubehub-api/internal/queue"
)

// EventPublisher emits activity events off the request path.
type EventPublisher interface {
	PublishAsync(ev queue.Event, timeout time.Duration)
}

// CachePurger drops cached listing responses.
type CachePurger interface {
	Purge(ctx context.Context) error
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || n == 0 {
		return 0, apperr.Validation("invalid " + name)
	}
	return n, nil
}

// requireAccount returns the caller resolved by the gate.
func requireAccount(c echo.Context) (uint64, error) {
	acc, ok := middleware.CurrentAccount(c)
	if !ok {
		return 0, apperr.Unauthenticated("unauthenticated request")
	}
	return acc.ID, nil
}

// viewerID is the caller's id, or zero for anonymous requests.
func viewerID(c echo.Context) uint64 {
	acc, _ := middleware.CurrentAccount(c)
	return acc.ID
}

// deleteAsset removes the asset behind url on a detached context. Failures
// are logged; the row that referenced it has already moved on.
func deleteAsset(store media.Store, logger *slog.Logger, url string) {
	id := store.PublicID(url)
	if id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Delete(ctx, id); err != nil {
		logger.Warn("failed to delete media asset", "public_id", id, "err", err)
	}
}
