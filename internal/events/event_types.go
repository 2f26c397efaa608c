package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAccountRegistered EventType = "account_registered"
	EventAccountLoggedIn   EventType = "account_logged_in"
	EventTokenRefreshed    EventType = "token_refreshed"
	EventAccountLoggedOut  EventType = "account_logged_out"
	EventPostCreated       EventType = "post_created"
	EventPostUpdated       EventType = "post_updated"
	EventPostDeleted       EventType = "post_deleted"
	EventCommentCreated    EventType = "comment_created"
	EventCommentUpdated    EventType = "comment_updated"
	EventCommentDeleted    EventType = "comment_deleted"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	AccountID string    `json:"account_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// New stamps an event with a fresh id.
func New(eventType EventType, accountID, email string, at time.Time, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		AccountID: accountID,
		Email:     email,
		Timestamp: at,
		Payload:   payload,
	}
}

// LoginPayload describes which issuance path a login took.
type LoginPayload struct {
	ReusedRefreshToken bool `json:"reused_refresh_token"`
}

// LogoutPayload reports how many tokens were revoked.
type LogoutPayload struct {
	RevokedTokens int `json:"revoked_tokens"`
}

// PostPayload payload.
type PostPayload struct {
	PostID string `json:"post_id"`
	Title  string `json:"title,omitempty"`
}

// CommentPayload payload.
type CommentPayload struct {
	CommentID string `json:"comment_id"`
	PostID    string `json:"post_id"`
}
