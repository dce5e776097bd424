package entity

import "time"

// TokenTypeBearer is the OAuth2 token type reported to clients.
const TokenTypeBearer = "bearer"

// AccessToken is an ephemeral, signed, time-bound credential. It is never persisted.
type AccessToken struct {
	Subject   int64     // The Account ID it authenticates.
	IssuedAt  time.Time // Second precision.
	ExpiresAt time.Time // Second precision.
	Raw       string    // The bearer string handed to the client.
}
