// package models defines the data model for the wavecast client
package models

import (
	"fmt"
	"time"
)

// Reaction is one of the fixed reaction kinds a viewer can hold on a stream.
type Reaction string

const (
	ReactionNone  Reaction = ""
	ReactionHeart Reaction = "heart"
	ReactionLike  Reaction = "like"
	ReactionLaugh Reaction = "laugh"
	ReactionWow   Reaction = "wow"
)

// KnownReaction reports whether r names a reaction bucket (ReactionNone excluded).
func KnownReaction(r Reaction) bool {
	switch r {
	case ReactionHeart, ReactionLike, ReactionLaugh, ReactionWow:
		return true
	}
	return false
}

// Comment is one chat message on a live session. The comment list is
// append-only and deduplicated by ID.
type Comment struct {
	ID             int64     `json:"id"`
	UserID         string    `json:"user_id"`
	Username       string    `json:"username"`
	AvatarFileName string    `json:"avatar_file_name"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Valid performs the structural check used to recognize comment-shaped
// channel frames: a positive id and non-empty content.
func (c Comment) Valid() bool {
	return c.ID > 0 && c.Content != ""
}

// NotificationKind classifies an inbox alert.
type NotificationKind string

const (
	NotificationSubscriptionLive NotificationKind = "subscription_live"
	NotificationNewVideo         NotificationKind = "subscription_new_video"
	NotificationModeration       NotificationKind = "moderation"
)

// Notification is one alert surfaced to the user. Read and hide transitions
// are monotonic: unread to read, visible to hidden, never back.
type Notification struct {
	ID              string           `json:"id"`
	Kind            NotificationKind `json:"kind"`
	Content         string           `json:"content"`
	IsRead          bool             `json:"is_read"`
	IsMuted         bool             `json:"is_muted"`
	IsHidden        bool             `json:"is_hidden"`
	RelatedStreamID string           `json:"related_stream_id"`
	CreatedAt       time.Time        `json:"created_at"`
}

// Validate checks the notification invariants before caching.
func (n Notification) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("notification missing id")
	}
	if n.Kind == "" {
		return fmt.Errorf("notification %s missing kind", n.ID)
	}
	return nil
}

// Category is a browsable content category.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	StreamCount int    `json:"stream_count"`
}

// Streamer is the public profile of a broadcasting account.
type Streamer struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	DisplayName    string `json:"display_name"`
	AvatarFileName string `json:"avatar_file_name"`
	Bio            string `json:"bio"`
	IsLive         bool   `json:"is_live"`
	FollowerCount  int    `json:"follower_count"`
}

// Subscription links the current user to a streamer they follow.
type Subscription struct {
	StreamerID   string    `json:"streamer_id"`
	StreamerName string    `json:"streamer_name"`
	IsMuted      bool      `json:"is_muted"`
	SubscribedAt time.Time `json:"subscribed_at"`
}

// StreamSession is the broadcaster-side handle returned by stream initialization.
type StreamSession struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	CategoryID string    `json:"category_id"`
	StreamKey  string    `json:"stream_key"`
	CreatedAt  time.Time `json:"created_at"`
}

// WatchEntry records one viewing of a live session in the local cache.
type WatchEntry struct {
	ID              string
	StreamID        string
	StreamerName    string
	StartedAt       time.Time
	EndedAt         *time.Time
	LastViewerCount int
	CommentCount    int
}

// Validate checks the watch entry invariants before caching.
func (w WatchEntry) Validate() error {
	if w.StreamID == "" {
		return fmt.Errorf("watch entry missing stream id")
	}
	if w.StartedAt.IsZero() {
		return fmt.Errorf("watch entry for %s missing start time", w.StreamID)
	}
	return nil
}

