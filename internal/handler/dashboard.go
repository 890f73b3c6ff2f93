package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tubehub/tubehub-api/internal/apperr"
	"github.com/tubehub/tubehub-api/internal/model"
)

// DashboardStore answers the channel owner's aggregate queries.
type DashboardStore interface {
	Stats(ctx context.Context, ownerID uint64) (model.ChannelStats, error)
	Videos(ctx context.Context, ownerID uint64) ([]model.ChannelVideo, error)
}

type DashboardHandler struct{ Dashboard DashboardStore }

func NewDashboardHandler(d DashboardStore) *DashboardHandler { return &DashboardHandler{Dashboard: d} }

// Stats returns the caller's channel totals.
func (h *DashboardHandler) Stats(c echo.Context) error {
	id, err := requireAccount(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Dashboard.Stats(ctx, id)
	if err != nil {
		return apperr.Internal("failed to load channel stats", err)
	}
	return respond(c, http.StatusOK, "Channel stats fetched successfully", statsResp{
		TotalVideos:      s.TotalVideos,
		TotalViews:       s.TotalViews,
		TotalLikes:       s.TotalLikes,
		TotalSubscribers: s.TotalSubscribers,
	})
}

// Videos lists all of the caller's videos, newest first.
func (h *DashboardHandler) Videos(c echo.Context) error {
	id, err := requireAccount(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	vs, err := h.Dashboard.Videos(ctx, id)
	if err != nil {
		return apperr.Internal("failed to load channel videos", err)
	}
	return respond(c, http.StatusOK, "Channel videos fetched successfully", toDashboardVideos(vs))
}
