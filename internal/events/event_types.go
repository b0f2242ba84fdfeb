package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSignupActivation   EventType = "signup_activation"
	EventSignupCompleted    EventType = "signup_completed"
	EventSignInSuccess      EventType = "signin_success"
	EventAccountLocked      EventType = "account_locked"
	EventPasswordChanged    EventType = "password_changed"
	EventAccountDeactivated EventType = "account_deactivated"
)

// Event represents a notification-worthy occurrence emitted by the API layer.
type Event struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Email     string            `json:"email"`
	Subject   string            `json:"subject"`
	Timestamp time.Time         `json:"timestamp"`
	Data      map[string]string `json:"data,omitempty"`
}
