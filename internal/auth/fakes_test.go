package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tubehub/tubehub-api/internal/media"
	"github.com/tubehub/tubehub-api/internal/model"
	"github.com/tubehub/tubehub-api/internal/queue"
	"github.com/tubehub/tubehub-api/internal/repository"
)

// memStore is an in-memory AccountStore with the same hook and uniqueness
// semantics as the MySQL repository.
type memStore struct {
	mu      sync.Mutex
	hasher  model.PasswordHasher
	nextID  uint64
	rows    map[uint64]model.Account
	creates int
	// rotateHook runs inside RotateRefreshToken before the compare, to
	// simulate a concurrent writer.
	rotateHook func()
}

func newMemStore(h model.PasswordHasher) *memStore {
	return &memStore{hasher: h, rows: map[uint64]model.Account{}}
}

func (m *memStore) FindByID(_ context.Context, id uint64) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return model.Account{}, repository.ErrNotFound
	}
	return a, nil
}

func (m *memStore) FindByIdentifier(_ context.Context, username, email string) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	username, email = model.NormalizeIdentity(username), model.NormalizeIdentity(email)
	for id := uint64(1); id <= m.nextID; id++ {
		a, ok := m.rows[id]
		if !ok {
			continue
		}
		if (username != "" && a.Username == username) || (email != "" && a.Email == email) {
			return a, nil
		}
	}
	return model.Account{}, repository.ErrNotFound
}

func (m *memStore) Create(_ context.Context, a *model.Account) error {
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
	m.creates++
	a.ID = m.nextID
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	m.rows[a.ID] = *a
	return nil
}

func (m *memStore) SavePassword(_ context.Context, a *model.Account) error {
	if err := a.BeforeSave(m.hasher); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[a.ID]
	if !ok {
		return repository.ErrNotFound
	}
	r.PasswordHash = a.PasswordHash
	m.rows[a.ID] = r
	return nil
}

func (m *memStore) SetRefreshToken(_ context.Context, id uint64, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.RefreshToken = &token
	m.rows[id] = r
	return nil
}

func (m *memStore) RotateRefreshToken(_ context.Context, id uint64, expected, next string) (bool, error) {
	if m.rotateHook != nil {
		m.rotateHook()
	}
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

func (m *memStore) ClearRefreshToken(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.RefreshToken = nil
	m.rows[id] = r
	return nil
}

func (m *memStore) stored(id uint64) model.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id]
}

type memMedia struct {
	mu        sync.Mutex
	uploads   []string
	deleted   []string
	failOnNth int
}

func (f *memMedia) Upload(_ context.Context, localPath string) (media.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, localPath)
	if f.failOnNth != 0 && len(f.uploads) == f.failOnNth {
		return media.Asset{}, errors.New("upload failed")
	}
	id := fmt.Sprintf("uploads/%d", len(f.uploads))
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

type recordingEvents struct {
	mu     sync.Mutex
	events []queue.Event
}

func (r *recordingEvents) PublishAsync(ev queue.Event, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type countingObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *countingObserver) AuthOutcome(op, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts == nil {
		o.counts = map[string]int{}
	}
	o.counts[op+"/"+outcome]++
}

type fixture struct {
	svc      *Service
	store    *memStore
	media    *memMedia
	events   *recordingEvents
	observer *countingObserver
	tokens   *Issuer
}

func testTokenConfig() TokenConfig {
	return TokenConfig{
		AccessSecret:  []byte("access-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshSecret: []byte("refresh-secret"),
		RefreshTTL:    240 * time.Hour,
	}
}

func newFixture() fixture {
	hasher := NewBcryptHasher(bcrypt.MinCost)
	store := newMemStore(hasher)
	tokens, err := NewIssuer(testTokenConfig())
	if err != nil {
		panic(err)
	}
	f := fixture{
		store:    store,
		media:    &memMedia{},
		events:   &recordingEvents{},
		observer: &countingObserver{},
		tokens:   tokens,
	}
	f.svc = NewService(Deps{
		Accounts: store,
		Hasher:   hasher,
		Tokens:   tokens,
		Media:    f.media,
		Events:   f.events,
		Observer: f.observer,
	})
	return f
}

func (f fixture) register(username, email, password string) model.Account {
	a, err := f.svc.Register(context.Background(), RegisterInput{
		FullName:   "Test " + username,
		Email:      email,
		Username:   username,
		Password:   password,
		AvatarPath: "/tmp/avatar.png",
	})
	if err != nil {
		panic(err)
	}
	return a
}
