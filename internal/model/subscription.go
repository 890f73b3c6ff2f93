package model

import "time"

// Subscription links a subscriber account to the channel (account) they
// follow. The pair is unique.
type Subscription struct {
	SubscriberID uint64
	ChannelID    uint64
	CreatedAt    time.Time
}

// Like records that an account liked a video. The pair is unique.
type Like struct {
	VideoID   uint64
	LikedBy   uint64
	CreatedAt time.Time
}

// ChannelProfile is the public view of an account as a channel.
type ChannelProfile struct {
	Account
	SubscribersCount          uint64
	ChannelsSubscribedToCount uint64
	IsSubscribed              bool
}
