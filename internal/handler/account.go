package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tubehub/tubehub-api/internal/apperr"
	"github.com/tubehub/tubehub-api/internal/media"
	"github.com/tubehub/tubehub-api/internal/model"
	"github.com/tubehub/tubehub-api/internal/repository"
)

// AccountStore is the account persistence used by the profile endpoints.
type AccountStore interface {
	FindByID(ctx context.Context, id uint64) (model.Account, error)
	UpdateDetails(ctx context.Context, id uint64, fullName, email string) (model.Account, error)
	UpdateAvatar(ctx context.Context, id uint64, url string) (string, error)
	UpdateCoverImage(ctx context.Context, id uint64, url string) (string, error)
	AddToWatchHistory(ctx context.Context, accountID, videoID uint64) error
	WatchHistory(ctx context.Context, accountID uint64) ([]model.VideoListItem, error)
	ChannelProfile(ctx context.Context, username string, viewerID uint64) (model.ChannelProfile, error)
}

// AccountHandler serves profile, image, history and channel endpoints.
type AccountHandler struct {
	Accounts  AccountStore
	Media     media.Store
	UploadDir string
	Logger    *slog.Logger
}

func NewAccountHandler(accounts AccountStore, store media.Store, uploadDir string, logger *slog.Logger) *AccountHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountHandler{Accounts: accounts, Media: store, UploadDir: uploadDir, Logger: logger}
}

type updateAccountReq struct {
	FullName string `json:"fullName" form:"fullName"`
	Email    string `json:"email" form:"email"`
}

// UpdateAccount changes the caller's full name and email.
func (h *AccountHandler) UpdateAccount(c echo.Context) error {
	id, err := requireAccount(c)
	if err != nil {
		return err
	}
	var req updateAccountReq
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid body")
	}
	if strings.TrimSpace(req.FullName) == "" || strings.TrimSpace(req.Email) == "" {
		return apperr.Validation("All fields are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	acc, err := h.Accounts.UpdateDetails(ctx, id, req.FullName, req.Email)
	switch {
	case errors.Is(err, repository.ErrConflict):
		return apperr.Conflict("email is already in use")
	case errors.Is(err, repository.ErrNotFound):
		return apperr.Unauthenticated("unauthenticated request")
	case err != nil:
		return apperr.Internal("failed to update account", err)
	}
	return respond(c, http.StatusOK, "Account details updated successfully", toAccountResp(acc))
}

// UpdateAvatar replaces the avatar and deletes the previous asset.
func (h *AccountHandler) UpdateAvatar(c echo.Context) error {
	return h.replaceImage(c, "avatar", "Avatar file is missing", h.Accounts.UpdateAvatar, "Avatar image updated successfully")
}

// UpdateCoverImage replaces the cover image and deletes the previous asset.
func (h *AccountHandler) UpdateCoverImage(c echo.Context) error {
	return h.replaceImage(c, "coverImage", "Cover image file is missing", h.Accounts.UpdateCoverImage, "Cover image updated successfully")
}

func (h *AccountHandler) replaceImage(
	c echo.Context,
	field, missingMsg string,
	store func(context.Context, uint64, string) (string, error),
	okMsg string,
) error {
	id, err := requireAccount(c)
	if err != nil {
		return err
	}
	up := newUploads(h.UploadDir)
	defer up.cleanup()

	path, err := up.save(c, field)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid upload", err)
	}
	if path == "" {
		return apperr.Validation(missingMsg)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	asset, err := h.Media.Upload(ctx, path)
	if err != nil {
		return apperr.Internal("failed to upload image", err)
	}
	prev, err := store(ctx, id, asset.URL)
	if err != nil {
		deleteAsset(h.Media, h.Logger, asset.URL)
		return apperr.Internal("failed to update image", err)
	}
	if prev != "" && prev != asset.URL {
		deleteAsset(h.Media, h.Logger, prev)
	}

	acc, err := h.Accounts.FindByID(ctx, id)
	if err != nil {
		return apperr.Internal("failed to load account", err)
	}
	return respond(c, http.StatusOK, okMsg, toAccountResp(acc.Sanitized()))
}

// History lists the caller's watched videos in first-watched order.
func (h *AccountHandler) History(c echo.Context) error {
	id, err := requireAccount(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Accounts.WatchHistory(ctx, id)
	if err != nil {
		return apperr.Internal("failed to load watch history", err)
	}
	return respond(c, http.StatusOK, "Watch history fetched successfully", toListResp(items))
}

// ChannelProfile renders a channel by username with subscription counts
// relative to the (optional) caller.
func (h *AccountHandler) ChannelProfile(c echo.Context) error {
	username := strings.TrimSpace(c.Param("username"))
	if username == "" {
		return apperr.Validation("username is missing")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Accounts.ChannelProfile(ctx, username, viewerID(c))
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("channel does not exist")
	}
	if err != nil {
		return apperr.Internal("failed to load channel", err)
	}
	return respond(c, http.StatusOK, "User channel fetched successfully", channelResp{
		accountResp:               toAccountResp(p.Account.Sanitized()),
		SubscribersCount:          p.SubscribersCount,
		ChannelsSubscribedToCount: p.ChannelsSubscribedToCount,
		IsSubscribed:              p.IsSubscribed,
	})
}
