package ports

import "context"

// LoginEvent describes a finished login attempt. It never carries the
// submitted secret or challenge answer.
type LoginEvent struct {
	Identifier string `json:"identifier"`
	SessionKey string `json:"session_key"`
	Origin     string `json:"origin"`
	Outcome    string `json:"outcome"`
	Code       int    `json:"code,omitempty"`
}

// EventPublisher publishes events to notify other instances
type EventPublisher interface {
	PublishLogin(ctx context.Context, event LoginEvent) error
	PublishLogout(ctx context.Context, subject string, tokenID string) error
}
