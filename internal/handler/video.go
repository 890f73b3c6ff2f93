package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tubehub/tubehub-api/internal/apperr"
	"github.com/tubehub/tubehub-api/internal/media"
	"github.com/tubehub/tubehub-api/internal/model"
	"github.com/tubehub/tubehub-api/internal/queue"
	"github.com/tubehub/tubehub-api/internal/repository"
)

// VideoStore is the video persistence used by the video endpoints.
type VideoStore interface {
	List(ctx context.Context, q model.VideoQuery) (model.VideoPage, error)
	Create(ctx context.Context, v model.Video) (model.Video, error)
	FindByID(ctx context.Context, id uint64) (model.Video, error)
	Detail(ctx context.Context, id, viewerID uint64) (model.VideoDetail, error)
	IncrementViews(ctx context.Context, id uint64) error
	UpdateDetails(ctx context.Context, id uint64, title, description, thumbnailURL string) (model.Video, error)
	SetPublished(ctx context.Context, id uint64, published bool) error
	Delete(ctx context.Context, id uint64) error
}

// HistoryRecorder appends a video to a viewer's watch history.
type HistoryRecorder interface {
	AddToWatchHistory(ctx context.Context, accountID, videoID uint64) error
}

// VideoHandler serves the video catalogue.
type VideoHandler struct {
	Videos    VideoStore
	History   HistoryRecorder
	Media     media.Store
	Events    EventPublisher
	Cache     CachePurger
	UploadDir string
	Logger    *slog.Logger
}

func NewVideoHandler(videos VideoStore, history HistoryRecorder, store media.Store, events EventPublisher, cache CachePurger, uploadDir string, logger *slog.Logger) *VideoHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VideoHandler{Videos: videos, History: history, Media: store, Events: events, Cache: cache, UploadDir: uploadDir, Logger: logger}
}

// List returns published videos. Query: page, limit (max 100), query
// (title/description substring), sortBy (createdAt|views|duration|title),
// sortType (asc|desc, default desc) and userId.
func (h *VideoHandler) List(c echo.Context) error {
	q := model.VideoQuery{
		Page:     atoiDefault(c.QueryParam("page"), 1),
		Limit:    atoiDefault(c.QueryParam("limit"), 10),
		Search:   strings.TrimSpace(c.QueryParam("query")),
		SortBy:   "createdAt",
		SortDesc: !strings.EqualFold(c.QueryParam("sortType"), "asc"),
	}
	if s := c.QueryParam("sortBy"); s != "" {
		if _, ok := repository.SortColumn(s); !ok {
			return apperr.Validation("sortBy must be one of createdAt, views, duration, title")
		}
		q.SortBy = s
	}
	if uid := c.QueryParam("userId"); uid != "" {
		n, err := strconv.ParseUint(uid, 10, 64)
		if err != nil || n == 0 {
			return apperr.Validation("invalid userId")
		}
		q.OwnerID = n
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	page, err := h.Videos.List(ctx, q)
	if err != nil {
		return apperr.Internal("failed to list videos", err)
	}
	return respond(c, http.StatusOK, "Videos fetched successfully", videoPageResp{
		Videos:     toListResp(page.Items),
		Total:      page.Total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages,
	})
}

// Publish uploads a video with its thumbnail. New videos start unpublished.
func (h *VideoHandler) Publish(c echo.Context) error {
	ownerID, err := requireAccount(c)
	if err != nil {
		return err
	}
	title := strings.TrimSpace(c.FormValue("title"))
	description := strings.TrimSpace(c.FormValue("description"))
	if title == "" || description == "" {
		return apperr.Validation("title and description are required")
	}
	duration := 0.0
	if d := c.FormValue("duration"); d != "" {
		if duration, err = strconv.ParseFloat(d, 64); err != nil || duration < 0 {
			return apperr.Validation("invalid duration")
		}
	}

	up := newUploads(h.UploadDir)
	defer up.cleanup()
	videoPath, err := up.save(c, "videoFile")
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid video upload", err)
	}
	thumbPath, err := up.save(c, "thumbnail")
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid thumbnail upload", err)
	}
	if videoPath == "" || thumbPath == "" {
		return apperr.Validation("video file and thumbnail are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Minute)
	defer cancel()

	videoAsset, err := h.Media.Upload(ctx, videoPath)
	if err != nil {
		return apperr.Internal("failed to upload video", err)
	}
	thumbAsset, err := h.Media.Upload(ctx, thumbPath)
	if err != nil {
		deleteAsset(h.Media, h.Logger, videoAsset.URL)
		return apperr.Internal("failed to upload thumbnail", err)
	}

	v, err := h.Videos.Create(ctx, model.Video{
		OwnerID:         ownerID,
		Title:           title,
		Description:     description,
		VideoURL:        videoAsset.URL,
		ThumbnailURL:    thumbAsset.URL,
		DurationSeconds: duration,
	})
	if err != nil {
		deleteAsset(h.Media, h.Logger, videoAsset.URL)
		deleteAsset(h.Media, h.Logger, thumbAsset.URL)
		return apperr.Internal("failed to save video", err)
	}
	return respond(c, http.StatusOK, "Video uploaded successfully", toVideoResp(v))
}

// Get renders one video, counts the view and records it in the viewer's
// watch history. Unpublished videos are only visible to their owner.
func (h *VideoHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	viewer := viewerID(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	v, err := h.load(ctx, id)
	if err != nil {
		return err
	}
	if !v.IsPublished && v.OwnerID != viewer {
		return apperr.NotFound("video not found")
	}
	if err := h.Videos.IncrementViews(ctx, id); err != nil {
		return apperr.Internal("failed to count view", err)
	}
	if viewer != 0 {
		if err := h.History.AddToWatchHistory(ctx, viewer, id); err != nil {
			h.Logger.Warn("failed to record watch history", "account_id", viewer, "video_id", id, "err", err)
		}
	}

	d, err := h.Videos.Detail(ctx, id, viewer)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("video not found")
	}
	if err != nil {
		return apperr.Internal("failed to load video", err)
	}
	return respond(c, http.StatusOK, "Video fetched successfully", toDetailResp(d))
}

// Update changes title, description and thumbnail; the old thumbnail is
// deleted from the media store.
func (h *VideoHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	title := strings.TrimSpace(c.FormValue("title"))
	description := strings.TrimSpace(c.FormValue("description"))
	if title == "" || description == "" {
		return apperr.Validation("title and description are required")
	}

	up := newUploads(h.UploadDir)
	defer up.cleanup()
	thumbPath, err := up.save(c, "thumbnail")
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid thumbnail upload", err)
	}
	if thumbPath == "" {
		return apperr.Validation("thumbnail is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	v, err := h.owned(ctx, c, id)
	if err != nil {
		return err
	}
	thumb, err := h.Media.Upload(ctx, thumbPath)
	if err != nil {
		return apperr.Internal("failed to upload thumbnail", err)
	}
	updated, err := h.Videos.UpdateDetails(ctx, id, title, description, thumb.URL)
	if err != nil {
		deleteAsset(h.Media, h.Logger, thumb.URL)
		return apperr.Internal("failed to update video", err)
	}
	deleteAsset(h.Media, h.Logger, v.ThumbnailURL)
	h.purge()
	return respond(c, http.StatusOK, "Video updated successfully", toVideoResp(updated))
}

// Delete removes the video and its assets.
func (h *VideoHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	v, err := h.owned(ctx, c, id)
	if err != nil {
		return err
	}
	if err := h.Videos.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return apperr.Internal("failed to delete video", err)
	}
	deleteAsset(h.Media, h.Logger, v.VideoURL)
	deleteAsset(h.Media, h.Logger, v.ThumbnailURL)
	h.purge()
	return respond(c, http.StatusOK, "Video deleted successfully", echo.Map{})
}

// TogglePublish flips the published flag. Publishing emits video.published.
func (h *VideoHandler) TogglePublish(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	v, err := h.owned(ctx, c, id)
	if err != nil {
		return err
	}
	next := !v.IsPublished
	if err := h.Videos.SetPublished(ctx, id, next); err != nil {
		return apperr.Internal("failed to toggle publish status", err)
	}
	if next && h.Events != nil {
		ev := queue.NewEvent(queue.EventVideoPublished, v.OwnerID)
		ev.VideoID = v.ID
		ev.Title = v.Title
		h.Events.PublishAsync(ev, 5*time.Second)
	}
	h.purge()
	return respond(c, http.StatusOK, "Video publish status toggled", echo.Map{"isPublished": next})
}

func (h *VideoHandler) load(ctx context.Context, id uint64) (model.Video, error) {
	v, err := h.Videos.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Video{}, apperr.NotFound("video not found")
	}
	if err != nil {
		return model.Video{}, apperr.Internal("failed to load video", err)
	}
	return v, nil
}

// owned loads the video and checks the caller owns it.
func (h *VideoHandler) owned(ctx context.Context, c echo.Context, id uint64) (model.Video, error) {
	caller, err := requireAccount(c)
	if err != nil {
		return model.Video{}, err
	}
	v, err := h.load(ctx, id)
	if err != nil {
		return model.Video{}, err
	}
	if v.OwnerID != caller {
		return model.Video{}, apperr.Forbidden("only the owner can modify this video")
	}
	return v, nil
}

func (h *VideoHandler) purge() {
	if h.Cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.Cache.Purge(ctx); err != nil {
		h.Logger.Warn("failed to purge listing cache", "err", err)
	}
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}
