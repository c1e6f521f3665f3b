package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	EventDiscussionCreated = "discussion_created"
	EventDiscussionDeleted = "discussion_deleted"
	EventUserFollowed      = "user_followed"
	EventUserUnfollowed    = "user_unfollowed"
)

const (
	StreamDiscussions = "stream:discussions"
	ConsumerGroupFeed = "feed_workers"
)

// Event is one entry on the discussions stream. Discussion events set
// DiscussionID and AuthorID, follow events set FollowerID and FolloweeID.
type Event struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`

	DiscussionID int64 `json:"discussion_id,omitempty"`
	AuthorID     int64 `json:"author_id,omitempty"`
	// CreatedAt is the discussion's creation time in unix seconds; it becomes
	// the feed score so fan-out matches a cache warmed from the database.
	CreatedAt int64 `json:"created_at,omitempty"`

	FollowerID int64 `json:"follower_id,omitempty"`
	FolloweeID int64 `json:"followee_id,omitempty"`
}

func NewDiscussionCreatedEvent(discussionID, authorID int64, createdAt time.Time) Event {
	return Event{
		Type:         EventDiscussionCreated,
		Timestamp:    time.Now().Unix(),
		DiscussionID: discussionID,
		AuthorID:     authorID,
		CreatedAt:    createdAt.Unix(),
	}
}

func NewDiscussionDeletedEvent(discussionID, authorID int64) Event {
	return Event{
		Type:         EventDiscussionDeleted,
		Timestamp:    time.Now().Unix(),
		DiscussionID: discussionID,
		AuthorID:     authorID,
	}
}

func NewUserFollowedEvent(followerID, followeeID int64) Event {
	return Event{
		Type:       EventUserFollowed,
		Timestamp:  time.Now().Unix(),
		FollowerID: followerID,
		FolloweeID: followeeID,
	}
}

func NewUserUnfollowedEvent(followerID, followeeID int64) Event {
	return Event{
		Type:       EventUserUnfollowed,
		Timestamp:  time.Now().Unix(),
		FollowerID: followerID,
		FolloweeID: followeeID,
	}
}

// ToMap serialises the event for XADD. The whole event travels as JSON in
// the "data" field; "type" is duplicated for redis-cli readability.
func (e Event) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

func ParseEvent(values map[string]interface{}) (Event, error) {
	data, ok := values["data"].(string)
	if !ok {
		return Event{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
