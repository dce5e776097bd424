package service

import (
	"time"

	"hubauth/internal/domain/entity"
)

// TokenService issues and validates signed, time-bound access tokens.
type TokenService interface {
	// Issue signs a token for subjectID valid from now for ttl.
	// A non-positive ttl selects the configured default lifetime.
	Issue(subjectID int64, now time.Time, ttl time.Duration) (*entity.AccessToken, error)

	// Validate checks signature, algorithm and expiry at now and extracts the subject.
	Validate(token string, now time.Time) (*entity.AccessToken, error)
}
