package impl

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"hubauth/config"
	"hubauth/internal/domain/entity"
	domainerrors "hubauth/internal/domain/errors"
	"hubauth/internal/domain/service"
	"hubauth/internal/errors"
)

// emailValidator checks addresses before they reach the store.
var emailValidator = validator.New()

// passwordPolicy is the strength rule applied to every new password.
type passwordPolicy struct {
	minLength int // characters
	maxBytes  int // zero means unbounded
}

func newPasswordPolicy(cfg *config.Config) passwordPolicy {
	policy := passwordPolicy{minLength: 4}
	if cfg != nil && cfg.PasswordStrength != nil {
		if cfg.PasswordStrength.MinLength > 0 {
			policy.minLength = cfg.PasswordStrength.MinLength
		}
		if cfg.PasswordStrength.MaxLength > 0 {
			policy.maxBytes = cfg.PasswordStrength.MaxLength
		}
	}

	return policy
}

func (p passwordPolicy) check(password string) error {
	if utf8.RuneCountInString(password) < p.minLength {
		return domainerrors.ErrWeakPassword.WrapMessage(fmt.Sprintf("password must be at least %d characters", p.minLength))
	}
	if p.maxBytes > 0 && len(password) > p.maxBytes {
		return domainerrors.ErrWeakPassword.WrapMessage(fmt.Sprintf("password is too long: at most %d bytes allowed", p.maxBytes))
	}

	return nil
}

// normalizeEmail validates an address and returns its canonical form.
func normalizeEmail(raw string) (string, error) {
	email := entity.NormalizeEmail(raw)
	if err := emailValidator.Var(email, "required,email,max=255"); err != nil {
		return "", domainerrors.ErrValidationFailed.WrapMessage("a valid email is required")
	}

	return email, nil
}

// outcomeOf classifies an operation result for metrics.
func outcomeOf(err error) string {
	if err == nil {
		return service.OutcomeSuccess
	}

	var appErr domainerrors.AppError
	if errors.As(err, &appErr) && appErr.HTTPCode() < 500 {
		return service.OutcomeRejected
	}

	return service.OutcomeError
}

// timedHash hashes password and reports the elapsed time.
func timedHash(hasher service.PasswordHasher, metrics service.AuthMetrics, password string) (string, error) {
	start := time.Now()
	hash, err := hasher.Hash(password)
	metrics.RecordPasswordHash(time.Since(start))

	return hash, err
}
