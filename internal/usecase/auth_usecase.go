// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"
	"time"

	"hubauth/internal/domain/entity"
)

// --- Input DTOs ---

// RegisterInput defines the data required to create an account.
type RegisterInput struct {
	DisplayName  string
	Email        string
	Password     string
	FavoriteTeam *string
}

// LoginInput defines the credentials exchanged for an access token.
type LoginInput struct {
	Email    string
	Password string
}

// ChangePasswordInput carries the authenticated account id and both passwords.
// AccountID always comes from a validated token, never from the request body.
type ChangePasswordInput struct {
	AccountID       int64
	CurrentPassword string
	NewPassword     string
}

// ResetPasswordByEmailInput defines the unverified reset request.
type ResetPasswordByEmailInput struct {
	Email       string
	NewPassword string
}

// --- Output DTOs ---

// LoginOutput returns the issued access token.
type LoginOutput struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

// AuthUsecase defines the account and credential operations.
// This is the contract that the delivery layer depends on.
type AuthUsecase interface {
	// Register creates an account. Errors: ErrValidationFailed, ErrEmailTaken, ErrWeakPassword.
	Register(ctx context.Context, input *RegisterInput) (*entity.Account, error)

	// Login exchanges credentials for a token. Errors: ErrAccountNotFound, ErrInvalidCredentials.
	Login(ctx context.Context, input *LoginInput) (*LoginOutput, error)

	// ChangePassword replaces the password after verifying the current one.
	// Errors: ErrAccountNotFound, ErrInvalidCredentials, ErrWeakPassword.
	ChangePassword(ctx context.Context, input *ChangePasswordInput) error

	// ResetPasswordByEmail replaces the password of the account owning email without
	// any proof of ownership. Errors: ErrAccountNotFound, ErrWeakPassword.
	ResetPasswordByEmail(ctx context.Context, input *ResetPasswordByEmailInput) error

	// GetCurrentAccount resolves a bearer token to its account. Every failure is ErrUnauthorized.
	GetCurrentAccount(ctx context.Context, token string) (*entity.Account, error)
}
