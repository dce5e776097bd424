package repository

import (
	"context"

	"hubauth/internal/domain/entity"
)

// PasswordResetRepository persists pending password reset requests.
type PasswordResetRepository interface {
	// Create stores a new reset request.
	Create(ctx context.Context, reset *entity.PasswordReset) error

	// FindByTokenHash retrieves a reset by the digest of its token.
	// It returns domainerrors.ErrResetTokenInvalid when no reset matches.
	FindByTokenHash(ctx context.Context, tokenHash string) (*entity.PasswordReset, error)

	// ConsumeByTokenHash deletes the reset matching tokenHash and reports whether one was removed.
	// Of two concurrent consumers of the same token only one observes true.
	ConsumeByTokenHash(ctx context.Context, tokenHash string) (bool, error)

	// DeleteByAccountID removes every pending reset of an account.
	DeleteByAccountID(ctx context.Context, accountID int64) error
}
