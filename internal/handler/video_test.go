package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/tubehub/tubehub-api/internal/model"
	"github.com/tubehub/tubehub-api/internal/queue"
)

type videoAPI struct {
	*VideoHandler
	videos  *memVideos
	media   *memMedia
	history *memHistory
	events  *recordingEvents
	purger  *countingPurger
	serve   func(request) int
}

func newVideoAPI(t *testing.T, vs ...model.Video) videoAPI {
	t.Helper()
	api := videoAPI{
		videos:  newMemVideos(vs...),
		media:   &memMedia{},
		history: &memHistory{},
		events:  &recordingEvents{},
		purger:  &countingPurger{},
	}
	api.VideoHandler = NewVideoHandler(api.videos, api.history, api.media, api.events, api.purger, t.TempDir(), nil)

	e := newEcho()
	g := e.Group("/v1/videos", withCaller)
	g.GET("", api.List)
	g.POST("", api.Publish)
	g.GET("/:id", api.Get)
	g.PATCH("/:id", api.Update)
	g.DELETE("/:id", api.Delete)
	g.PATCH("/toggle/publish/:id", api.TogglePublish)
	api.serve = func(r request) int { return serve(e, r).Code }
	return api
}

func sampleVideo(id, owner uint64, published bool) model.Video {
	return model.Video{
		ID:           id,
		OwnerID:      owner,
		Title:        "clip",
		Description:  "a clip",
		VideoURL:     "https://cdn.test/uploads/video-1",
		ThumbnailURL: "https://cdn.test/uploads/thumb-1",
		IsPublished:  published,
		CreatedAt:    time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC),
	}
}

func TestVideoMutationsRequireOwner(t *testing.T) {
	api := newVideoAPI(t, sampleVideo(1, 10, true))

	body, ctype := multipartBody(t, map[string]string{"title": "x", "description": "y"}, map[string]string{"thumbnail": "t.png"})
	if code := api.serve(request{method: http.MethodPatch, path: "/v1/videos/1", body: body, ctype: ctype, caller: 11}); code != http.StatusForbidden {
		t.Fatalf("update by stranger: %d", code)
	}
	if code := api.serve(request{method: http.MethodDelete, path: "/v1/videos/1", caller: 11}); code != http.StatusForbidden {
		t.Fatalf("delete by stranger: %d", code)
	}
	if code := api.serve(request{method: http.MethodPatch, path: "/v1/videos/toggle/publish/1", caller: 11}); code != http.StatusForbidden {
		t.Fatalf("toggle by stranger: %d", code)
	}
	if code := api.serve(request{method: http.MethodDelete, path: "/v1/videos/1"}); code != http.StatusUnauthorized {
		t.Fatalf("anonymous delete: %d", code)
	}
	if _, ok := api.videos.get(1); !ok || api.purger.n != 0 {
		t.Fatal("rejected mutations changed state")
	}
}

func TestUpdateReplacesThumbnail(t *testing.T) {
	api := newVideoAPI(t, sampleVideo(1, 10, true))

	body, ctype := multipartBody(t, map[string]string{"title": "new", "description": "desc"}, nil)
	if code := api.serve(request{method: http.MethodPatch, path: "/v1/videos/1", body: body, ctype: ctype, caller: 10}); code != http.StatusBadRequest {
		t.Fatalf("missing thumbnail: %d", code)
	}

	body, ctype = multipartBody(t, map[string]string{"title": "new", "description": "desc"}, map[string]string{"thumbnail": "t.png"})
	if code := api.serve(request{method: http.MethodPatch, path: "/v1/videos/1", body: body, ctype: ctype, caller: 10}); code != http.StatusOK {
		t.Fatalf("update: %d", code)
	}
	v, _ := api.videos.get(1)
	if v.Title != "new" || v.ThumbnailURL != "https://cdn.test/uploads/1" {
		t.Fatalf("video not updated: %+v", v)
	}
	if got := api.media.deletedIDs(); !reflect.DeepEqual(got, []string{"uploads/thumb-1"}) {
		t.Fatalf("deleted %v", got)
	}
	if api.purger.n != 1 {
		t.Fatalf("cache purges %d", api.purger.n)
	}
}

func TestDeleteRemovesAssets(t *testing.T) {
	api := newVideoAPI(t, sampleVideo(1, 10, true))
	if code := api.serve(request{method: http.MethodDelete, path: "/v1/videos/1", caller: 10}); code != http.StatusOK {
		t.Fatalf("delete: %d", code)
	}
	if _, ok := api.videos.get(1); ok {
		t.Fatal("video still stored")
	}
	want := []string{"uploads/thumb-1", "uploads/video-1"}
	if got := api.media.deletedIDs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("deleted %v want %v", got, want)
	}
	if code := api.serve(request{method: http.MethodDelete, path: "/v1/videos/1", caller: 10}); code != http.StatusNotFound {
		t.Fatalf("second delete: %d", code)
	}
}

func TestTogglePublishEmitsEventOnPublish(t *testing.T) {
	api := newVideoAPI(t, sampleVideo(1, 10, false))

	if code := api.serve(request{method: http.MethodPatch, path: "/v1/videos/toggle/publish/1", caller: 10}); code != http.StatusOK {
		t.Fatalf("publish: %d", code)
	}
	if v, _ := api.videos.get(1); !v.IsPublished {
		t.Fatal("video not published")
	}
	if code := api.serve(request{method: http.MethodPatch, path: "/v1/videos/toggle/publish/1", caller: 10}); code != http.StatusOK {
		t.Fatalf("unpublish: %d", code)
	}
	if len(api.events.events) != 1 {
		t.Fatalf("events %d, want one for the publish only", len(api.events.events))
	}
	ev := api.events.events[0]
	if ev.Type != queue.EventVideoPublished || ev.VideoID != 1 || ev.AccountID != 10 {
		t.Fatalf("event %+v", ev)
	}
	if api.purger.n != 2 {
		t.Fatalf("cache purges %d", api.purger.n)
	}
}

func TestGetHidesUnpublishedFromOthers(t *testing.T) {
	api := newVideoAPI(t, sampleVideo(1, 10, false), sampleVideo(2, 10, true))

	if code := api.serve(request{method: http.MethodGet, path: "/v1/videos/1"}); code != http.StatusNotFound {
		t.Fatalf("anonymous sees draft: %d", code)
	}
	if code := api.serve(request{method: http.MethodGet, path: "/v1/videos/1", caller: 11}); code != http.StatusNotFound {
		t.Fatalf("stranger sees draft: %d", code)
	}
	if code := api.serve(request{method: http.MethodGet, path: "/v1/videos/1", caller: 10}); code != http.StatusOK {
		t.Fatalf("owner draft: %d", code)
	}

	if code := api.serve(request{method: http.MethodGet, path: "/v1/videos/2"}); code != http.StatusOK {
		t.Fatalf("anonymous public: %d", code)
	}
	if code := api.serve(request{method: http.MethodGet, path: "/v1/videos/2", caller: 12}); code != http.StatusOK {
		t.Fatalf("viewer public: %d", code)
	}
	if v, _ := api.videos.get(2); v.Views != 2 {
		t.Fatalf("views %d", v.Views)
	}
	want := [][2]uint64{{10, 1}, {12, 2}}
	if !reflect.DeepEqual(api.history.entries, want) {
		t.Fatalf("history %v want %v", api.history.entries, want)
	}
}

func TestListValidatesQuery(t *testing.T) {
	api := newVideoAPI(t, sampleVideo(1, 10, true))

	if code := api.serve(request{method: http.MethodGet, path: "/v1/videos?sortBy=owner_id"}); code != http.StatusBadRequest {
		t.Fatalf("unknown sort: %d", code)
	}
	if code := api.serve(request{method: http.MethodGet, path: "/v1/videos?userId=abc"}); code != http.StatusBadRequest {
		t.Fatalf("bad user id: %d", code)
	}
	if code := api.serve(request{method: http.MethodGet, path: "/v1/videos?page=2&limit=5&query=cat&sortBy=views&sortType=asc&userId=10"}); code != http.StatusOK {
		t.Fatalf("list: %d", code)
	}
	want := model.VideoQuery{Page: 2, Limit: 5, Search: "cat", OwnerID: 10, SortBy: "views", SortDesc: false}
	if api.videos.lastQuery != want {
		t.Fatalf("query %+v want %+v", api.videos.lastQuery, want)
	}
}

func TestPublishStartsUnpublished(t *testing.T) {
	api := newVideoAPI(t)

	body, ctype := multipartBody(t, map[string]string{"title": "t", "description": "d"}, map[string]string{"videoFile": "v.mp4"})
	if code := api.serve(request{method: http.MethodPost, path: "/v1/videos", body: body, ctype: ctype, caller: 10}); code != http.StatusBadRequest {
		t.Fatalf("missing thumbnail: %d", code)
	}

	body, ctype = multipartBody(t,
		map[string]string{"title": "t", "description": "d", "duration": "12.5"},
		map[string]string{"videoFile": "v.mp4", "thumbnail": "t.png"})
	if code := api.serve(request{method: http.MethodPost, path: "/v1/videos", body: body, ctype: ctype, caller: 10}); code != http.StatusOK {
		t.Fatalf("publish: %d", code)
	}
	v, ok := api.videos.get(1)
	if !ok || v.IsPublished || v.OwnerID != 10 || v.DurationSeconds != 12.5 {
		t.Fatalf("created %+v", v)
	}
}

func TestSubscribeToSelfIsRejected(t *testing.T) {
	e := newEcho()
	h := NewSocialHandler(fakeSocial{})
	e.POST("/v1/subscriptions/c/:channelId", h.ToggleSubscription, withCaller)

	if rec := serve(e, request{method: http.MethodPost, path: "/v1/subscriptions/c/5", caller: 5}); rec.Code != http.StatusBadRequest {
		t.Fatalf("self subscription: %d", rec.Code)
	}
	rec := serve(e, request{method: http.MethodPost, path: "/v1/subscriptions/c/6", caller: 5})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"subscribed":true`) {
		t.Fatalf("subscribe: %d %s", rec.Code, rec.Body.String())
	}
}

type fakeSocial struct{}

func (fakeSocial) ToggleSubscription(_ context.Context, _, _ uint64) (bool, error) { return true, nil }
func (fakeSocial) ToggleLike(_ context.Context, _, _ uint64) (bool, error)         { return false, nil }

type fakeDashboard struct{ videos []model.ChannelVideo }

func (fakeDashboard) Stats(context.Context, uint64) (model.ChannelStats, error) {
	return model.ChannelStats{}, nil
}

func (f fakeDashboard) Videos(context.Context, uint64) ([]model.ChannelVideo, error) {
	return f.videos, nil
}

func TestDashboardRendersDateParts(t *testing.T) {
	e := newEcho()
	h := NewDashboardHandler(fakeDashboard{videos: []model.ChannelVideo{{Video: sampleVideo(1, 10, true), LikesCount: 3}}})
	e.GET("/v1/dashboard/stats", h.Stats, withCaller)
	e.GET("/v1/dashboard/videos", h.Videos, withCaller)

	rec := serve(e, request{method: http.MethodGet, path: "/v1/dashboard/stats", caller: 10})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"totalVideos":0`) {
		t.Fatalf("stats: %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(e, request{method: http.MethodGet, path: "/v1/dashboard/videos", caller: 10})
	var out []dashboardVideoResp
	if err := json.Unmarshal(decode(t, rec).Data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].CreatedAt != (dateParts{Year: 2024, Month: 3, Day: 9}) || out[0].LikesCount != 3 {
		t.Fatalf("videos %+v", out)
	}

	if rec := serve(e, request{method: http.MethodGet, path: "/v1/dashboard/stats"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous stats: %d", rec.Code)
	}
}
