package entity

import (
	"time"

	"github.com/google/uuid"
)

// PasswordReset is a pending, single-use request to replace an account's password.
// Only a digest of the token is stored; the plaintext travels out-of-band.
type PasswordReset struct {
	ID        uuid.UUID
	AccountID int64
	TokenHash string // hex SHA-256 of the plaintext token
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the reset can no longer be redeemed at now.
func (r *PasswordReset) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
