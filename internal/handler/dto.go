package handler

import (
	"time"

	"github.com/tubehub/tubehub-api/internal/model"
)

// Response shapes. Accounts are always rendered from these types so the
// password hash and refresh token have no JSON path out.

type accountResp struct {
	ID         uint64    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func toAccountResp(a model.Account) accountResp {
	return accountResp{
		ID:         a.ID,
		Username:   a.Username,
		Email:      a.Email,
		FullName:   a.FullName,
		Avatar:     a.AvatarURL,
		CoverImage: a.CoverImageURL,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

type loginResp struct {
	User         accountResp `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

type tokenPairResp struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type channelResp struct {
	accountResp
	SubscribersCount          uint64 `json:"subscribersCount"`
	ChannelsSubscribedToCount uint64 `json:"channelsSubscribedToCount"`
	IsSubscribed              bool   `json:"isSubscribed"`
}

type ownerResp struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type videoResp struct {
	ID          uint64     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	VideoFile   string     `json:"videoFile"`
	Thumbnail   string     `json:"thumbnail"`
	Duration    float64    `json:"duration"`
	Views       uint64     `json:"views"`
	IsPublished bool       `json:"isPublished"`
	OwnerID     uint64     `json:"ownerId"`
	Owner       *ownerResp `json:"owner,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func toVideoResp(v model.Video) videoResp {
	return videoResp{
		ID:          v.ID,
		Title:       v.Title,
		Description: v.Description,
		VideoFile:   v.VideoURL,
		Thumbnail:   v.ThumbnailURL,
		Duration:    v.DurationSeconds,
		Views:       v.Views,
		IsPublished: v.IsPublished,
		OwnerID:     v.OwnerID,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}

func toListResp(items []model.VideoListItem) []videoResp {
	out := make([]videoResp, 0, len(items))
	for _, it := range items {
		r := toVideoResp(it.Video)
		r.Owner = &ownerResp{ID: it.Owner.ID, Username: it.Owner.Username, Avatar: it.Owner.AvatarURL}
		out = append(out, r)
	}
	return out
}

type videoPageResp struct {
	Videos     []videoResp `json:"videos"`
	Total      uint64      `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"totalPages"`
}

type detailOwnerResp struct {
	ID               uint64 `json:"id"`
	Username         string `json:"username"`
	Avatar           string `json:"avatar"`
	SubscribersCount uint64 `json:"subscribersCount"`
	IsSubscribed     bool   `json:"isSubscribed"`
}

type videoDetailResp struct {
	videoResp
	LikesCount uint64          `json:"likesCount"`
	IsLiked    bool            `json:"isLiked"`
	Owner      detailOwnerResp `json:"owner"`
}

func toDetailResp(d model.VideoDetail) videoDetailResp {
	return videoDetailResp{
		videoResp:  toVideoResp(d.Video),
		LikesCount: d.LikesCount,
		IsLiked:    d.IsLiked,
		Owner: detailOwnerResp{
			ID:               d.Owner.ID,
			Username:         d.Owner.Username,
			Avatar:           d.Owner.AvatarURL,
			SubscribersCount: d.OwnerSubscribers,
			IsSubscribed:     d.ViewerIsSubscribed,
		},
	}
}

type dateParts struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

type dashboardVideoResp struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Thumbnail   string    `json:"thumbnail"`
	VideoFile   string    `json:"videoFile"`
	Views       uint64    `json:"views"`
	IsPublished bool      `json:"isPublished"`
	LikesCount  uint64    `json:"likesCount"`
	CreatedAt   dateParts `json:"createdAt"`
}

func toDashboardVideos(vs []model.ChannelVideo) []dashboardVideoResp {
	out := make([]dashboardVideoResp, 0, len(vs))
	for _, v := range vs {
		t := v.CreatedAt.UTC()
		out = append(out, dashboardVideoResp{
			ID:          v.ID,
			Title:       v.Title,
			Description: v.Description,
			Thumbnail:   v.ThumbnailURL,
			VideoFile:   v.VideoURL,
			Views:       v.Views,
			IsPublished: v.IsPublished,
			LikesCount:  v.LikesCount,
			CreatedAt:   dateParts{Year: t.Year(), Month: int(t.Month()), Day: t.Day()},
		})
	}
	return out
}

type statsResp struct {
	TotalVideos      uint64 `json:"totalVideos"`
	TotalViews       uint64 `json:"totalViews"`
	TotalLikes       uint64 `json:"totalLikes"`
	TotalSubscribers uint64 `json:"totalSubscribers"`
}
