package service

import (
	"context"
	"time"
)

// PasswordResetEvent asks an out-of-band channel (mail, chat) to deliver a reset token.
type PasswordResetEvent struct {
	RequestID string    `json:"request_id,omitempty"` // For distributed tracing
	AccountID int64     `json:"account_id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// EventPublisher defines the interface for publishing events to a message queue
type EventPublisher interface {
	// PublishPasswordResetEvent publishes a reset token for delivery to the account owner
	PublishPasswordResetEvent(ctx context.Context, event *PasswordResetEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
