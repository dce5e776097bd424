// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"time"

	"hubauth/internal/domain/entity"
)

// AccountRepository defines the durable operations on accounts.
// Implementations report a missing account with domainerrors.ErrAccountNotFound and a
// duplicate email with domainerrors.ErrEmailTaken; any other failure is a storage error.
type AccountRepository interface {
	// FindByEmail retrieves an account by its normalised email.
	FindByEmail(ctx context.Context, email string) (*entity.Account, error)

	// FindByID retrieves an account by its id.
	FindByID(ctx context.Context, id int64) (*entity.Account, error)

	// Create persists a new account and assigns its ID and timestamps.
	Create(ctx context.Context, account *entity.Account) error

	// UpdatePasswordHash unconditionally replaces the stored password hash.
	UpdatePasswordHash(ctx context.Context, id int64, newHash string, changedAt time.Time) error

	// CompareAndSwapPasswordHash replaces the hash only while it still equals expectedHash.
	// It reports false, without error, when the stored hash has moved on.
	CompareAndSwapPasswordHash(ctx context.Context, id int64, expectedHash, newHash string, changedAt time.Time) (bool, error)
}
