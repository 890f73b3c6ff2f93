package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tubehub/tubehub-api/internal/media"
	"github.com/tubehub/tubehub-api/internal/middleware"
	"github.com/tubehub/tubehub-api/internal/model"
	"github.com/tubehub/tubehub-api/internal/queue"
	"github.com/tubehub/tubehub-api/internal/repository"
)

// memAccounts is an in-memory auth.AccountStore that also answers the
// gate's FindByID lookups.
type memAccounts struct {
	mu     sync.Mutex
	hasher model.PasswordHasher
	nextID uint64
	rows   map[uint64]model.Account
}

func newMemAccounts(h model.PasswordHasher) *memAccounts {
	return &memAccounts{hasher: h, rows: map[uint64]model.Account{}}
}

func (m *memAccounts) FindByID(_ context.Context, id uint64) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return model.Account{}, repository.ErrNotFound
	}
	return a, nil
}

func (m *memAccounts) FindByIdentifier(_ context.Context, username, email string) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	username, email = model.NormalizeIdentity(username), model.NormalizeIdentity(email)
	for _, a := range m.rows {
		if (username != "" && a.Username == username) || (email != "" && a.Email == email) {
			return a, nil
		}
	}
	return model.Account{}, repository.ErrNotFound
}

func (m *memAccounts) Create(_ context.Context, a *model.Account) error {
	if err := a.BeforeSave(m.hasher); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.Username == a.Username || r.Email == a.Email {
			return repository.ErrConflict
		}
	}
	m.nextID++
	a.ID = m.nextID
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	m.rows[a.ID] = *a
	return nil
}

func (m *memAccounts) SavePassword(_ context.Context, a *model.Account) error {
	if err := a.BeforeSave(m.hasher); err != nil {
		return err
	}
	return m.update(a.ID, func(r *model.Account) { r.PasswordHash = a.PasswordHash })
}

func (m *memAccounts) SetRefreshToken(_ context.Context, id uint64, token string) error {
	return m.update(id, func(r *model.Account) { r.RefreshToken = &token })
}

func (m *memAccounts) RotateRefreshToken(_ context.Context, id uint64, expected, next string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.RefreshToken == nil || *r.RefreshToken != expected {
		return false, nil
	}
	r.RefreshToken = &next
	m.rows[id] = r
	return true, nil
}

func (m *memAccounts) ClearRefreshToken(_ context.Context, id uint64) error {
	return m.update(id, func(r *model.Account) { r.RefreshToken = nil })
}

func (m *memAccounts) update(id uint64, fn func(*model.Account)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&r)
	m.rows[id] = r
	return nil
}

func (m *memAccounts) stored(id uint64) model.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id]
}

type memMedia struct {
	mu      sync.Mutex
	uploads int
	deleted []string
}

func (f *memMedia) Upload(_ context.Context, _ string) (media.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	id := fmt.Sprintf("uploads/%d", f.uploads)
	return media.Asset{URL: "https://cdn.test/" + id, PublicID: id}, nil
}

func (f *memMedia) Delete(_ context.Context, publicID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, publicID)
	return nil
}

func (f *memMedia) PublicID(url string) string {
	return media.PublicIDFromURL("https://cdn.test", url)
}

func (f *memMedia) deletedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.deleted...)
	sort.Strings(out)
	return out
}

type memVideos struct {
	mu        sync.Mutex
	nextID    uint64
	rows      map[uint64]model.Video
	lastQuery model.VideoQuery
}

func newMemVideos(vs ...model.Video) *memVideos {
	m := &memVideos{rows: map[uint64]model.Video{}}
	for _, v := range vs {
		if v.ID > m.nextID {
			m.nextID = v.ID
		}
		m.rows[v.ID] = v
	}
	return m
}

func (m *memVideos) List(_ context.Context, q model.VideoQuery) (model.VideoPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQuery = q
	var items []model.VideoListItem
	for _, v := range m.rows {
		if v.IsPublished {
			items = append(items, model.VideoListItem{Video: v, Owner: model.VideoOwner{ID: v.OwnerID}})
		}
	}
	return model.VideoPage{Items: items, Total: uint64(len(items)), Page: 1, Limit: 10, TotalPages: 1}, nil
}

func (m *memVideos) Create(_ context.Context, v model.Video) (model.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	v.ID = m.nextID
	v.CreatedAt = time.Now().UTC()
	m.rows[v.ID] = v
	return v, nil
}

func (m *memVideos) FindByID(_ context.Context, id uint64) (model.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.rows[id]
	if !ok {
		return model.Video{}, repository.ErrNotFound
	}
	return v, nil
}

func (m *memVideos) Detail(ctx context.Context, id, _ uint64) (model.VideoDetail, error) {
	v, err := m.FindByID(ctx, id)
	if err != nil {
		return model.VideoDetail{}, err
	}
	return model.VideoDetail{Video: v, Owner: model.VideoOwner{ID: v.OwnerID}}, nil
}

func (m *memVideos) IncrementViews(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.rows[id]
	v.Views++
	m.rows[id] = v
	return nil
}

func (m *memVideos) UpdateDetails(_ context.Context, id uint64, title, description, thumb string) (model.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.rows[id]
	v.Title, v.Description, v.ThumbnailURL = title, description, thumb
	m.rows[id] = v
	return v, nil
}

func (m *memVideos) SetPublished(_ context.Context, id uint64, published bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.rows[id]
	v.IsPublished = published
	m.rows[id] = v
	return nil
}

func (m *memVideos) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memVideos) get(id uint64) (model.Video, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.rows[id]
	return v, ok
}

type memHistory struct {
	mu      sync.Mutex
	entries [][2]uint64
}

func (h *memHistory) AddToWatchHistory(_ context.Context, accountID, videoID uint64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, [2]uint64{accountID, videoID})
	return nil
}

type recordingEvents struct {
	mu     sync.Mutex
	events []queue.Event
}

func (r *recordingEvents) PublishAsync(ev queue.Event, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

type countingPurger struct{ n int }

func (p *countingPurger) Purge(context.Context) error {
	p.n++
	return nil
}

// withCaller stands in for the gate: X-Test-Account names the caller.
func withCaller(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if raw := c.Request().Header.Get("X-Test-Account"); raw != "" {
			id, _ := strconv.ParseUint(raw, 10, 64)
			c.Set(middleware.ContextKeyAccount, model.Account{ID: id, Username: "user" + raw})
			c.Set(middleware.ContextKeyUserID, raw)
		}
		return next(c)
	}
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(nil)
	return e
}

type request struct {
	method  string
	path    string
	body    io.Reader
	ctype   string
	caller  uint64
	cookies []*http.Cookie
	bearer  string
}

func serve(e *echo.Echo, r request) *httptest.ResponseRecorder {
	req := httptest.NewRequest(r.method, r.path, r.body)
	if r.ctype != "" {
		req.Header.Set(echo.HeaderContentType, r.ctype)
	}
	if r.caller != 0 {
		req.Header.Set("X-Test-Account", strconv.FormatUint(r.caller, 10))
	}
	if r.bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+r.bearer)
	}
	for _, ck := range r.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	bs, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(bs)
}

// multipartBody builds a form with text fields and small file parts keyed
// by field name (value is the file name).
func multipartBody(t *testing.T, fields, files map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("field %s: %v", k, err)
		}
	}
	for field, name := range files {
		fw, err := w.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("file %s: %v", field, err)
		}
		_, _ = fw.Write([]byte("binary-" + field))
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, w.FormDataContentType()
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []string        `json:"errors"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return env
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}
