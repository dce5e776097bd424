// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"strings"
	"time"
)

// Account is a registered user's durable identity record.
type Account struct {
	ID                int64     // Assigned by the store on creation, never reused.
	DisplayName       string    // Free-form display name, required.
	Email             string    // Unique login identifier, stored normalised (see NormalizeEmail).
	FavoriteTeam      *string   // Optional free-form text.
	PasswordHash      string    // Self-contained hash of the current password. Never the plaintext.
	PasswordChangedAt time.Time // Last time PasswordHash was set; doubles as the token epoch.
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NormalizeEmail is the single place email comparison semantics are defined:
// surrounding whitespace is dropped and the address is lower-cased, so
// uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IssuedBeforePasswordChange reports whether a token issued at issuedAt predates
// the account's current credential. Token timestamps carry second precision, so
// the comparison is made at that granularity.
func (a *Account) IssuedBeforePasswordChange(issuedAt time.Time) bool {
	if a.PasswordChangedAt.IsZero() {
		return false
	}

	return issuedAt.Truncate(time.Second).Before(a.PasswordChangedAt.Truncate(time.Second))
}
