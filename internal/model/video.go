package model

import "time"

// Video mirrors the `videos` table. VideoURL and ThumbnailURL point at
// assets held by the media store; views is only ever incremented in place.
type Video struct {
	ID              uint64
	OwnerID         uint64
	Title           string
	Description     string
	VideoURL        string
	ThumbnailURL    string
	DurationSeconds float64
	Views           uint64
	IsPublished     bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// VideoOwner is the slice of an account shown next to a video.
type VideoOwner struct {
	ID        uint64
	Username  string
	AvatarURL string
}

// VideoListItem is a published video joined with its owner for listings.
type VideoListItem struct {
	Video
	Owner VideoOwner
}

// VideoDetail is the single-video view: the video, its like count, the
// owner's channel summary and the viewer-relative flags. IsLiked and
// ViewerIsSubscribed are false for anonymous viewers.
type VideoDetail struct {
	Video
	LikesCount         uint64
	IsLiked            bool
	Owner              VideoOwner
	OwnerSubscribers   uint64
	ViewerIsSubscribed bool
}

// ChannelVideo is an owner's own video as listed on the dashboard.
type ChannelVideo struct {
	Video
	LikesCount uint64
}

// ChannelStats aggregates an owner's channel totals.
type ChannelStats struct {
	TotalVideos      uint64
	TotalViews       uint64
	TotalLikes       uint64
	TotalSubscribers uint64
}

// VideoQuery filters and orders the public listing. Zero values mean "no
// filter"; SortBy must already be validated against the allowed columns.
type VideoQuery struct {
	Page     int
	Limit    int
	Search   string
	OwnerID  uint64
	SortBy   string
	SortDesc bool
}

// VideoPage is one page of the public listing.
type VideoPage struct {
	Items      []VideoListItem
	Total      uint64
	Page       int
	Limit      int
	TotalPages int
}
