package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/tubehub/tubehub-api/internal/model"
)

const videoColumns = "v.id,v.owner_id,v.title,v.description,v.video_url,v.thumbnail_url,v.duration_seconds,v.views,v.is_published,v.created_at,v.updated_at"

// MaxPageSize caps the listing page size.
const MaxPageSize = 100

var sortColumns = map[string]string{
	"createdAt": "v.created_at",
	"views":     "v.views",
	"duration":  "v.duration_seconds",
	"title":     "v.title",
}

// SortColumn resolves a public sort key to its column. Only whitelisted
// keys are accepted since the column is interpolated into ORDER BY.
func SortColumn(key string) (string, bool) {
	col, ok := sortColumns[key]
	return col, ok
}

type VideoRepo struct{ DB *sql.DB }

func NewVideoRepo(db *sql.DB) *VideoRepo { return &VideoRepo{DB: db} }

func scanVideo(s rowScanner, extra ...any) (model.Video, error) {
	var v model.Video
	dest := append([]any{&v.ID, &v.OwnerID, &v.Title, &v.Description, &v.VideoURL,
		&v.ThumbnailURL, &v.DurationSeconds, &v.Views, &v.IsPublished, &v.CreatedAt, &v.UpdatedAt}, extra...)
	err := s.Scan(dest...)
	return v, err
}

func scanListItems(rows *sql.Rows) ([]model.VideoListItem, error) {
	items := []model.VideoListItem{}
	for rows.Next() {
		var o model.VideoOwner
		v, err := scanVideo(rows, &o.ID, &o.Username, &o.AvatarURL)
		if err != nil {
			return nil, err
		}
		items = append(items, model.VideoListItem{Video: v, Owner: o})
	}
	return items, rows.Err()
}

// likePattern escapes LIKE wildcards in s and wraps it for substring match.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// normalizePage clamps page to >= 1 and limit to 1..MaxPageSize.
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

// List returns one page of published videos with their owners. An unknown
// SortBy falls back to creation time.
func (r *VideoRepo) List(ctx context.Context, q model.VideoQuery) (model.VideoPage, error) {
	page, limit := normalizePage(q.Page, q.Limit)

	where := []string{"v.is_published=1"}
	args := []any{}
	if s := strings.TrimSpace(q.Search); s != "" {
		where = append(where, "(v.title LIKE ? OR v.description LIKE ?)")
		p := likePattern(s)
		args = append(args, p, p)
	}
	if q.OwnerID != 0 {
		where = append(where, "v.owner_id=?")
		args = append(args, q.OwnerID)
	}
	cond := strings.Join(where, " AND ")

	var total uint64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM videos v WHERE "+cond, args...).Scan(&total); err != nil {
		return model.VideoPage{}, err
	}

	col, ok := SortColumn(q.SortBy)
	if !ok {
		col = sortColumns["createdAt"]
	}
	dir := "ASC"
	if q.SortDesc {
		dir = "DESC"
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+videoColumns+",o.id,o.username,o.avatar_url FROM videos v "+
			"JOIN accounts o ON o.id=v.owner_id WHERE "+cond+
			" ORDER BY "+col+" "+dir+", v.id "+dir+" LIMIT ? OFFSET ?",
		append(args, limit, (page-1)*limit)...)
	if err != nil {
		return model.VideoPage{}, err
	}
	defer rows.Close()
	items, err := scanListItems(rows)
	if err != nil {
		return model.VideoPage{}, err
	}

	pages := int((total + uint64(limit) - 1) / uint64(limit))
	return model.VideoPage{Items: items, Total: total, Page: page, Limit: limit, TotalPages: pages}, nil
}

// Create inserts v as unpublished and returns the stored row.
func (r *VideoRepo) Create(ctx context.Context, v model.Video) (model.Video, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO videos (owner_id,title,description,video_url,thumbnail_url,duration_seconds,is_published) VALUES (?,?,?,?,?,?,0)",
		v.OwnerID, v.Title, v.Description, v.VideoURL, v.ThumbnailURL, v.DurationSeconds)
	if err != nil {
		return model.Video{}, translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Video{}, err
	}
	return r.FindByID(ctx, uint64(id))
}

// FindByID fetches a video regardless of its published flag.
func (r *VideoRepo) FindByID(ctx context.Context, id uint64) (model.Video, error) {
	v, err := scanVideo(r.DB.QueryRowContext(ctx,
		"SELECT "+videoColumns+" FROM videos v WHERE v.id=? LIMIT 1", id))
	return v, translate(err)
}

// Detail loads the single-video view relative to viewerID (zero for
// anonymous viewers).
func (r *VideoRepo) Detail(ctx context.Context, id, viewerID uint64) (model.VideoDetail, error) {
	var d model.VideoDetail
	v, err := scanVideo(r.DB.QueryRowContext(ctx,
		"SELECT "+videoColumns+",o.id,o.username,o.avatar_url,"+
			"(SELECT COUNT(*) FROM likes l WHERE l.video_id=v.id),"+
			"EXISTS(SELECT 1 FROM likes l WHERE l.video_id=v.id AND l.liked_by=?),"+
			"(SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id=v.owner_id),"+
			"EXISTS(SELECT 1 FROM subscriptions s WHERE s.channel_id=v.owner_id AND s.subscriber_id=?) "+
			"FROM videos v JOIN accounts o ON o.id=v.owner_id WHERE v.id=? LIMIT 1",
		viewerID, viewerID, id),
		&d.Owner.ID, &d.Owner.Username, &d.Owner.AvatarURL,
		&d.LikesCount, &d.IsLiked, &d.OwnerSubscribers, &d.ViewerIsSubscribed)
	if err != nil {
		return model.VideoDetail{}, translate(err)
	}
	d.Video = v
	return d, nil
}

// IncrementViews bumps the view counter in place.
func (r *VideoRepo) IncrementViews(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE videos SET views=views+1 WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// UpdateDetails changes title, description and thumbnail.
func (r *VideoRepo) UpdateDetails(ctx context.Context, id uint64, title, description, thumbnailURL string) (model.Video, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE videos SET title=?, description=?, thumbnail_url=? WHERE id=?",
		title, description, thumbnailURL, id)
	if err != nil {
		return model.Video{}, err
	}
	if err := requireAffected(res); err != nil {
		return model.Video{}, err
	}
	return r.FindByID(ctx, id)
}

// SetPublished stores the published flag.
func (r *VideoRepo) SetPublished(ctx context.Context, id uint64, published bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE videos SET is_published=? WHERE id=?", published, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Delete removes the video. Likes and watch history rows cascade.
func (r *VideoRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM videos WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
