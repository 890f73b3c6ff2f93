package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tubehub/tubehub-api/internal/apperr"
	"github.com/tubehub/tubehub-api/internal/repository"
)

// SocialStore toggles subscriptions and likes.
type SocialStore interface {
	ToggleSubscription(ctx context.Context, subscriberID, channelID uint64) (bool, error)
	ToggleLike(ctx context.Context, accountID, videoID uint64) (bool, error)
}

type SocialHandler struct{ Social SocialStore }

func NewSocialHandler(s SocialStore) *SocialHandler { return &SocialHandler{Social: s} }

// ToggleSubscription subscribes the caller to :channelId or unsubscribes.
func (h *SocialHandler) ToggleSubscription(c echo.Context) error {
	caller, err := requireAccount(c)
	if err != nil {
		return err
	}
	channelID, err := pathID(c, "channelId")
	if err != nil {
		return err
	}
	if channelID == caller {
		return apperr.Validation("you cannot subscribe to your own channel")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	subscribed, err := h.Social.ToggleSubscription(ctx, caller, channelID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("channel not found")
	}
	if err != nil {
		return apperr.Internal("failed to toggle subscription", err)
	}
	msg := "Unsubscribed successfully"
	if subscribed {
		msg = "Subscribed successfully"
	}
	return respond(c, http.StatusOK, msg, echo.Map{"subscribed": subscribed})
}

// ToggleLike likes :videoId for the caller or removes the like.
func (h *SocialHandler) ToggleLike(c echo.Context) error {
	caller, err := requireAccount(c)
	if err != nil {
		return err
	}
	videoID, err := pathID(c, "videoId")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	liked, err := h.Social.ToggleLike(ctx, caller, videoID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("video not found")
	}
	if err != nil {
		return apperr.Internal("failed to toggle like", err)
	}
	msg := "Like removed"
	if liked {
		msg = "Video liked"
	}
	return respond(c, http.StatusOK, msg, echo.Map{"liked": liked})
}
