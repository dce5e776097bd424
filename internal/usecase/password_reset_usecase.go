package usecase

import "context"

// RequestPasswordResetInput names the account whose owner wants a reset token.
type RequestPasswordResetInput struct {
	Email string
}

// ConfirmPasswordResetInput redeems a reset token.
type ConfirmPasswordResetInput struct {
	Token       string
	NewPassword string
}

// PasswordResetUsecase is the verified reset flow: the token is delivered out-of-band
// to the account owner and must be presented to change the password.
type PasswordResetUsecase interface {
	// RequestPasswordReset never reveals whether the email is registered.
	RequestPasswordReset(ctx context.Context, input *RequestPasswordResetInput) error

	// ConfirmPasswordReset consumes the token. Errors: ErrWeakPassword, ErrResetTokenInvalid.
	ConfirmPasswordReset(ctx context.Context, input *ConfirmPasswordResetInput) error
}
