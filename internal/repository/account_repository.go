package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tubehub/tubehub-api/internal/model"
)

const accountColumns = "a.id,a.username,a.email,a.full_name,a.password_hash,a.avatar_url,a.cover_image_url,a.refresh_token,a.created_at,a.updated_at"

// AccountRepo persists accounts, their single refresh token and their watch
// history. Every write of an account runs model.Account.BeforeSave first.
type AccountRepo struct {
	DB     *sql.DB
	Hasher model.PasswordHasher
}

func NewAccountRepo(db *sql.DB, hasher model.PasswordHasher) *AccountRepo {
	return &AccountRepo{DB: db, Hasher: hasher}
}

func scanAccount(s rowScanner) (model.Account, error) {
	var (
		a       model.Account
		refresh sql.NullString
	)
	err := s.Scan(&a.ID, &a.Username, &a.Email, &a.FullName, &a.PasswordHash,
		&a.AvatarURL, &a.CoverImageURL, &refresh, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return model.Account{}, err
	}
	if refresh.Valid {
		v := refresh.String
		a.RefreshToken = &v
	}
	return a, nil
}

// FindByID fetches an account by id.
func (r *AccountRepo) FindByID(ctx context.Context, id uint64) (model.Account, error) {
	a, err := scanAccount(r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts a WHERE a.id=? LIMIT 1", id))
	return a, translate(err)
}

// FindByIdentifier fetches the account whose username or email matches.
// Blank identifiers are ignored; both blank yields ErrNotFound.
func (r *AccountRepo) FindByIdentifier(ctx context.Context, username, email string) (model.Account, error) {
	username = model.NormalizeIdentity(username)
	email = model.NormalizeIdentity(email)
	if username == "" && email == "" {
		return model.Account{}, ErrNotFound
	}
	a, err := scanAccount(r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts a WHERE (a.username<>'' AND a.username=?) OR (a.email<>'' AND a.email=?) ORDER BY a.id LIMIT 1",
		username, email))
	return a, translate(err)
}

// Create runs the pre-save hook on a, inserts it and fills in ID and
// timestamps. A taken username or email yields ErrConflict.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account) error {
	if err := a.BeforeSave(r.Hasher); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO accounts (username,email,full_name,password_hash,avatar_url,cover_image_url) VALUES (?,?,?,?,?,?)",
		a.Username, a.Email, a.FullName, a.PasswordHash, a.AvatarURL, a.CoverImageURL)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.FindByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*a = created
	return nil
}

// SavePassword runs the pre-save hook and persists the resulting hash. It
// is a no-op when no new password was staged.
func (r *AccountRepo) SavePassword(ctx context.Context, a *model.Account) error {
	if !a.PasswordChanged() {
		return nil
	}
	if err := a.BeforeSave(r.Hasher); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE accounts SET password_hash=? WHERE id=?", a.PasswordHash, a.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SetRefreshToken overwrites the stored refresh token unconditionally.
func (r *AccountRepo) SetRefreshToken(ctx context.Context, id uint64, token string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE accounts SET refresh_token=? WHERE id=?", token, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// RotateRefreshToken replaces expected with next only if expected is still
// the stored value. It reports false when another rotation or a logout got
// there first.
func (r *AccountRepo) RotateRefreshToken(ctx context.Context, id uint64, expected, next string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE accounts SET refresh_token=? WHERE id=? AND refresh_token=?", next, id, expected)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ClearRefreshToken unsets the stored refresh token (NULL, not empty).
func (r *AccountRepo) ClearRefreshToken(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE accounts SET refresh_token=NULL WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// UpdateDetails changes full name and email and returns the fresh row.
func (r *AccountRepo) UpdateDetails(ctx context.Context, id uint64, fullName, email string) (model.Account, error) {
	a := model.Account{FullName: fullName, Email: email}
	if err := a.BeforeSave(r.Hasher); err != nil {
		return model.Account{}, err
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE accounts SET full_name=?, email=? WHERE id=?", a.FullName, a.Email, id)
	if err != nil {
		return model.Account{}, translate(err)
	}
	if err := requireAffected(res); err != nil {
		return model.Account{}, err
	}
	return r.FindByID(ctx, id)
}

// UpdateAvatar stores a new avatar URL and returns the previous one.
func (r *AccountRepo) UpdateAvatar(ctx context.Context, id uint64, url string) (string, error) {
	return r.swapImage(ctx, id, "avatar_url", url)
}

// UpdateCoverImage stores a new cover image URL and returns the previous one.
func (r *AccountRepo) UpdateCoverImage(ctx context.Context, id uint64, url string) (string, error) {
	return r.swapImage(ctx, id, "cover_image_url", url)
}

// swapImage reads and replaces an image column in one transaction so the
// returned previous URL is the one actually overwritten.
func (r *AccountRepo) swapImage(ctx context.Context, id uint64, column, url string) (string, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	var prev string
	err = tx.QueryRowContext(ctx,
		"SELECT "+column+" FROM accounts WHERE id=? FOR UPDATE", id).Scan(&prev)
	if err != nil {
		return "", translate(err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE accounts SET "+column+"=? WHERE id=?", url, id); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return prev, nil
}

// AddToWatchHistory records that the account watched the video. Repeat
// views keep the first entry and its position.
func (r *AccountRepo) AddToWatchHistory(ctx context.Context, accountID, videoID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO watch_history (account_id, video_id) VALUES (?,?)", accountID, videoID)
	return translate(err)
}

// WatchHistory lists watched videos in first-watched order.
func (r *AccountRepo) WatchHistory(ctx context.Context, accountID uint64) ([]model.VideoListItem, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+videoColumns+",o.id,o.username,o.avatar_url FROM watch_history w "+
			"JOIN videos v ON v.id=w.video_id JOIN accounts o ON o.id=v.owner_id "+
			"WHERE w.account_id=? ORDER BY w.watched_at, w.video_id", accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanListItems(rows)
}

// ChannelProfile loads the public channel view of username. viewerID may be
// zero for anonymous viewers, in which case IsSubscribed is false.
func (r *AccountRepo) ChannelProfile(ctx context.Context, username string, viewerID uint64) (model.ChannelProfile, error) {
	var p model.ChannelProfile
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+","+
			"(SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id=a.id),"+
			"(SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id=a.id),"+
			"EXISTS(SELECT 1 FROM subscriptions s WHERE s.channel_id=a.id AND s.subscriber_id=?) "+
			"FROM accounts a WHERE a.username=? LIMIT 1",
		viewerID, model.NormalizeIdentity(username))
	var refresh sql.NullString
	err := row.Scan(&p.ID, &p.Username, &p.Email, &p.FullName, &p.PasswordHash,
		&p.AvatarURL, &p.CoverImageURL, &refresh, &p.CreatedAt, &p.UpdatedAt,
		&p.SubscribersCount, &p.ChannelsSubscribedToCount, &p.IsSubscribed)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ChannelProfile{}, ErrNotFound
	}
	if err != nil {
		return model.ChannelProfile{}, err
	}
	p.Account = p.Account.Sanitized()
	return p, nil
}
