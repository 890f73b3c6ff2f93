package repository

import (
	"context"
	"database/sql"

	"github.com/tubehub/tubehub-api/internal/model"
)

// DashboardRepo answers the channel owner's dashboard queries.
type DashboardRepo struct{ DB *sql.DB }

func NewDashboardRepo(db *sql.DB) *DashboardRepo { return &DashboardRepo{DB: db} }

// Stats aggregates the owner's channel totals. Owners without videos or
// subscribers get zeros.
func (r *DashboardRepo) Stats(ctx context.Context, ownerID uint64) (model.ChannelStats, error) {
	var s model.ChannelStats
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+
			"(SELECT COUNT(*) FROM videos WHERE owner_id=?),"+
			"(SELECT COALESCE(SUM(views),0) FROM videos WHERE owner_id=?),"+
			"(SELECT COUNT(*) FROM likes l JOIN videos v ON v.id=l.video_id WHERE v.owner_id=?),"+
			"(SELECT COUNT(*) FROM subscriptions WHERE channel_id=?)",
		ownerID, ownerID, ownerID, ownerID).
		Scan(&s.TotalVideos, &s.TotalViews, &s.TotalLikes, &s.TotalSubscribers)
	return s, err
}

// Videos lists all of the owner's videos, published or not, newest first,
// with their like counts.
func (r *DashboardRepo) Videos(ctx context.Context, ownerID uint64) ([]model.ChannelVideo, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+videoColumns+",COUNT(l.liked_by) FROM videos v "+
			"LEFT JOIN likes l ON l.video_id=v.id WHERE v.owner_id=? "+
			"GROUP BY v.id ORDER BY v.created_at DESC, v.id DESC", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ChannelVideo{}
	for rows.Next() {
		var cv model.ChannelVideo
		v, err := scanVideo(rows, &cv.LikesCount)
		if err != nil {
			return nil, err
		}
		cv.Video = v
		out = append(out, cv)
	}
	return out, rows.Err()
}
