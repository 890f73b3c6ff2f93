package repository

import (
	"context"
	"database/sql"
	"errors"
)

// SocialRepo stores subscriptions and likes. Both are toggles over a unique
// pair, so each call flips the relationship.
type SocialRepo struct{ DB *sql.DB }

func NewSocialRepo(db *sql.DB) *SocialRepo { return &SocialRepo{DB: db} }

// ToggleSubscription subscribes subscriberID to channelID, or removes the
// subscription when it exists. It reports the resulting state. An unknown
// channel yields ErrNotFound.
func (r *SocialRepo) ToggleSubscription(ctx context.Context, subscriberID, channelID uint64) (bool, error) {
	return r.toggle(ctx,
		"DELETE FROM subscriptions WHERE subscriber_id=? AND channel_id=?",
		"INSERT INTO subscriptions (subscriber_id, channel_id) VALUES (?,?)",
		subscriberID, channelID)
}

// ToggleLike likes videoID on behalf of accountID, or removes the like.
func (r *SocialRepo) ToggleLike(ctx context.Context, accountID, videoID uint64) (bool, error) {
	return r.toggle(ctx,
		"DELETE FROM likes WHERE liked_by=? AND video_id=?",
		"INSERT INTO likes (liked_by, video_id) VALUES (?,?)",
		accountID, videoID)
}

func (r *SocialRepo) toggle(ctx context.Context, del, ins string, a, b uint64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, del, a, b)
	if err != nil {
		return false, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return false, err
	} else if n > 0 {
		return false, nil
	}
	if _, err := r.DB.ExecContext(ctx, ins, a, b); err != nil {
		// a concurrent toggle inserted the same pair first
		if err = translate(err); errors.Is(err, ErrConflict) {
			return true, nil
		}
		return false, err
	}
	return true, nil
}
