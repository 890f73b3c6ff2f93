// Package queue carries domain events over RabbitMQ: a publisher used by the
// request path and a background consumer that appends them to an activity log.
package queue

import "time"

// Event types published by the API.
const (
	EventAccountRegistered = "account.registered"
	EventVideoPublished    = "video.published"
	EventSessionTokenReuse = "session.token_reuse"
)

// ActivityQueue is the durable queue all activity events are routed to.
const ActivityQueue = "tubehub.activity"

// Event is the envelope for every activity message. It carries enough for a
// consumer to log or notify without querying the primary database.
type Event struct {
	Type       string `json:"type"`
	AccountID  uint64 `json:"account_id"`
	Username   string `json:"username,omitempty"`
	VideoID    uint64 `json:"video_id,omitempty"`
	Title      string `json:"title,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// NewEvent stamps an event of the given type with the current UTC time.
func NewEvent(typ string, accountID uint64) Event {
	return Event{
		Type:       typ,
		AccountID:  accountID,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
}
