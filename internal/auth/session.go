package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tubehub/tubehub-api/internal/apperr"
	"github.com/tubehub/tubehub-api/internal/media"
	"github.com/tubehub/tubehub-api/internal/model"
	"github.com/tubehub/tubehub-api/internal/queue"
	"github.com/tubehub/tubehub-api/internal/repository"
)

// AccountStore is the persistence the session lifecycle needs. Create and
// SavePassword run the account's pre-save hook. Missing rows are reported
// as repository.ErrNotFound and taken identities as repository.ErrConflict.
type AccountStore interface {
	FindByID(ctx context.Context, id uint64) (model.Account, error)
	FindByIdentifier(ctx context.Context, username, email string) (model.Account, error)
	Create(ctx context.Context, a *model.Account) error
	SavePassword(ctx context.Context, a *model.Account) error
	SetRefreshToken(ctx context.Context, id uint64, token string) error
	RotateRefreshToken(ctx context.Context, id uint64, expected, next string) (bool, error)
	ClearRefreshToken(ctx context.Context, id uint64) error
}

// EventPublisher emits activity events off the request path.
type EventPublisher interface {
	PublishAsync(ev queue.Event, timeout time.Duration)
}

// Observer is told the outcome of every session operation.
type Observer interface {
	AuthOutcome(operation, outcome string)
}

// Deps are the collaborators of a Service. Events, Observer and Logger are
// optional.
type Deps struct {
	Accounts AccountStore
	Hasher   Hasher
	Tokens   *Issuer
	Media    media.Store
	Events   EventPublisher
	Observer Observer
	Logger   *slog.Logger
}

// Service drives an account through Anonymous -> Authenticated (login),
// Authenticated -> Authenticated (refresh, new pair) and back to Anonymous
// (logout).
type Service struct {
	accounts AccountStore
	hasher   Hasher
	tokens   *Issuer
	media    media.Store
	events   EventPublisher
	observer Observer
	logger   *slog.Logger
}

func NewService(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		accounts: d.Accounts,
		hasher:   d.Hasher,
		tokens:   d.Tokens,
		media:    d.Media,
		events:   d.Events,
		observer: d.Observer,
		logger:   logger.With("component", "auth"),
	}
}

// Session is the outcome of login and refresh: the sanitized account and
// the freshly minted token pair.
type Session struct {
	Account model.Account
	Access  Token
	Refresh Token
}

// LoginInput identifies the account by username or email.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// RegisterInput carries the registration form. AvatarPath and CoverPath are
// local temp files; CoverPath may be empty.
type RegisterInput struct {
	FullName   string
	Email      string
	Username   string
	Password   string
	AvatarPath string
	CoverPath  string
}

const eventTimeout = 5 * time.Second

// Login verifies the credentials, issues a token pair and stores the
// refresh token on the account. Failures change no state.
func (s *Service) Login(ctx context.Context, in LoginInput) (sess Session, err error) {
	defer func() { s.observe("login", err) }()

	if strings.TrimSpace(in.Username) == "" && strings.TrimSpace(in.Email) == "" {
		return Session{}, apperr.Validation("username or email is required")
	}
	a, err := s.accounts.FindByIdentifier(ctx, in.Username, in.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, apperr.NotFound("User does not exist")
	}
	if err != nil {
		return Session{}, apperr.Internal("failed to load account", err)
	}
	if !s.hasher.Verify(in.Password, a.PasswordHash) {
		return Session{}, apperr.InvalidCredential("Invalid user credentials")
	}

	sess, err = s.issuePair(a)
	if err != nil {
		return Session{}, err
	}
	if err := s.accounts.SetRefreshToken(ctx, a.ID, sess.Refresh.Value); err != nil {
		return Session{}, apperr.Internal("failed to persist session", err)
	}
	s.logger.Info("login succeeded", "account_id", a.ID)
	return sess, nil
}

// Logout clears the stored refresh token. Access tokens already issued stay
// valid until they expire.
func (s *Service) Logout(ctx context.Context, accountID uint64) (err error) {
	defer func() { s.observe("logout", err) }()

	if accountID == 0 {
		return apperr.Unauthenticated("unauthenticated request")
	}
	err = s.accounts.ClearRefreshToken(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.Unauthenticated("unauthenticated request")
	}
	if err != nil {
		return apperr.Internal("failed to clear session", err)
	}
	s.logger.Info("logout", "account_id", accountID)
	return nil
}

// Refresh exchanges the stored refresh token for a new pair. The rotation
// is a compare-and-swap on the stored value, so of two concurrent calls
// presenting the same token exactly one succeeds. Every failure keeps its
// kind and message but is rendered as 401.
func (s *Service) Refresh(ctx context.Context, incoming string) (Session, error) {
	sess, err := s.refresh(ctx, incoming)
	s.observe("refresh", err)
	if err != nil {
		return Session{}, apperr.From(err).WithStatus(http.StatusUnauthorized)
	}
	return sess, nil
}

func (s *Service) refresh(ctx context.Context, incoming string) (Session, error) {
	incoming = strings.TrimSpace(incoming)
	if incoming == "" {
		return Session{}, apperr.Unauthorized("unauthorized request")
	}
	claims, err := s.tokens.VerifyRefresh(incoming)
	if err != nil {
		return Session{}, err
	}
	id, _ := claims.AccountID()

	a, err := s.accounts.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, apperr.InvalidToken("invalid refresh token")
	}
	if err != nil {
		return Session{}, apperr.Internal("failed to load account", err)
	}
	if a.RefreshToken == nil || *a.RefreshToken != incoming {
		return Session{}, s.reuseDetected(a)
	}

	sess, err := s.issuePair(a)
	if err != nil {
		return Session{}, err
	}
	ok, err := s.accounts.RotateRefreshToken(ctx, a.ID, incoming, sess.Refresh.Value)
	if err != nil {
		return Session{}, apperr.Internal("failed to rotate session", err)
	}
	if !ok {
		return Session{}, s.reuseDetected(a)
	}
	return sess, nil
}

func (s *Service) reuseDetected(a model.Account) error {
	s.logger.Warn("refresh token reuse detected", "account_id", a.ID)
	if s.events != nil {
		ev := queue.NewEvent(queue.EventSessionTokenReuse, a.ID)
		ev.Username = a.Username
		s.events.PublishAsync(ev, eventTimeout)
	}
	return apperr.TokenReuse("refresh token is expired or used")
}

// ChangePassword replaces the password after verifying the old one. The new
// plaintext is hashed by the account's pre-save hook.
func (s *Service) ChangePassword(ctx context.Context, accountID uint64, oldPassword, newPassword string) (err error) {
	defer func() { s.observe("change_password", err) }()

	if accountID == 0 {
		return apperr.Unauthenticated("unauthenticated request")
	}
	if newPassword == "" {
		return apperr.Validation("new password is required")
	}
	a, err := s.accounts.FindByID(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.Unauthenticated("unauthenticated request")
	}
	if err != nil {
		return apperr.Internal("failed to load account", err)
	}
	if !s.hasher.Verify(oldPassword, a.PasswordHash) {
		return apperr.InvalidCredential("Invalid old password").WithStatus(http.StatusBadRequest)
	}
	a.SetPassword(newPassword)
	if err := s.accounts.SavePassword(ctx, &a); err != nil {
		return apperr.Internal("failed to update password", err)
	}
	s.logger.Info("password changed", "account_id", accountID)
	return nil
}

// Register validates the form, rejects taken identities, uploads the
// images and creates the account. Nothing is uploaded or stored when
// validation fails; uploaded images are deleted when the insert fails.
func (s *Service) Register(ctx context.Context, in RegisterInput) (acc model.Account, err error) {
	defer func() { s.observe("register", err) }()

	for _, f := range []string{in.FullName, in.Email, in.Username, in.Password} {
		if strings.TrimSpace(f) == "" {
			return model.Account{}, apperr.Validation("All fields are required")
		}
	}
	if in.AvatarPath == "" {
		return model.Account{}, apperr.Validation("Avatar file is required")
	}

	_, err = s.accounts.FindByIdentifier(ctx, in.Username, in.Email)
	switch {
	case err == nil:
		return model.Account{}, apperr.Conflict("User with email or username already exists")
	case !errors.Is(err, repository.ErrNotFound):
		return model.Account{}, apperr.Internal("failed to check identity", err)
	}

	avatar, err := s.media.Upload(ctx, in.AvatarPath)
	if err != nil {
		return model.Account{}, apperr.Internal("failed to upload avatar", err)
	}
	uploaded := []media.Asset{avatar}
	var cover media.Asset
	if in.CoverPath != "" {
		cover, err = s.media.Upload(ctx, in.CoverPath)
		if err != nil {
			s.discard(uploaded)
			return model.Account{}, apperr.Internal("failed to upload cover image", err)
		}
		uploaded = append(uploaded, cover)
	}

	a := model.Account{
		Username:      in.Username,
		Email:         in.Email,
		FullName:      in.FullName,
		AvatarURL:     avatar.URL,
		CoverImageURL: cover.URL,
	}
	a.SetPassword(in.Password)
	if err := s.accounts.Create(ctx, &a); err != nil {
		s.discard(uploaded)
		if errors.Is(err, repository.ErrConflict) {
			return model.Account{}, apperr.Conflict("User with email or username already exists")
		}
		return model.Account{}, apperr.Internal("Something went wrong while registering the user", err)
	}

	s.logger.Info("account registered", "account_id", a.ID)
	if s.events != nil {
		ev := queue.NewEvent(queue.EventAccountRegistered, a.ID)
		ev.Username = a.Username
		s.events.PublishAsync(ev, eventTimeout)
	}
	return a.Sanitized(), nil
}

func (s *Service) issuePair(a model.Account) (Session, error) {
	access, err := s.tokens.IssueAccess(a)
	if err != nil {
		return Session{}, err
	}
	refresh, err := s.tokens.IssueRefresh(a)
	if err != nil {
		return Session{}, err
	}
	return Session{Account: a.Sanitized(), Access: access, Refresh: refresh}, nil
}

// discard deletes uploaded assets with a fresh context; the request context
// may already be cancelled.
func (s *Service) discard(assets []media.Asset) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	for _, a := range assets {
		if err := s.media.Delete(ctx, a.PublicID); err != nil {
			s.logger.Warn("failed to delete orphaned asset", "public_id", a.PublicID, "err", err)
		}
	}
}

func (s *Service) observe(op string, err error) {
	if s.observer == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(apperr.From(err).Kind)
	}
	s.observer.AuthOutcome(op, outcome)
}
