// Package handler contains the HTTP handlers for the application.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"hubauth/internal/delivery/api/response"
	deliverycontext "hubauth/internal/delivery/context"
	"hubauth/internal/domain/entity"
	domainerrors "hubauth/internal/domain/errors"
	"hubauth/internal/errors"
	"hubauth/internal/usecase"
)

// AccountHandlerParams holds dependencies for AccountHandler, injected by Fx.
type AccountHandlerParams struct {
	fx.In

	AuthUC  usecase.AuthUsecase
	ResetUC usecase.PasswordResetUsecase
	Logger  *slog.Logger
}

// AccountHandler serves the /auth routes.
type AccountHandler struct {
	authUC  usecase.AuthUsecase
	resetUC usecase.PasswordResetUsecase
	logger  *slog.Logger
}

// NewAccountHandler is the constructor for AccountHandler
func NewAccountHandler(params AccountHandlerParams) *AccountHandler {
	return &AccountHandler{
		authUC:  params.AuthUC,
		resetUC: params.ResetUC,
		logger:  params.Logger,
	}
}

// RegisterRequest is the body of POST /auth/register. Only the email is checked
// here; the remaining rules belong to the usecase so that a taken email is
// reported whatever else the request holds.
type RegisterRequest struct {
	DisplayName  string  `json:"display_name"`
	Email        string  `json:"email" validate:"required"`
	Password     string  `json:"password"`
	FavoriteTeam *string `json:"favorite_team"`
}

// LoginRequest accepts a JSON body or an OAuth2 password grant form,
// where the email travels as "username".
type LoginRequest struct {
	Email    string `json:"email" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// ChangePasswordRequest is the body of POST /auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"`
}

// ForgotPasswordRequest is the body of POST /auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest is the body of POST /auth/reset-password.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password"`
}

// UnverifiedResetRequest is the body of POST /auth/reset-password/unverified.
type UnverifiedResetRequest struct {
	Email       string `json:"email" validate:"required"`
	NewPassword string `json:"new_password"`
}

// AccountResponse is the public view of an account. It never carries the password hash.
type AccountResponse struct {
	ID           int64   `json:"id"`
	DisplayName  string  `json:"display_name"`
	Email        string  `json:"email"`
	FavoriteTeam *string `json:"favorite_team"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func newAccountResponse(account *entity.Account) AccountResponse {
	return AccountResponse{
		ID:           account.ID,
		DisplayName:  account.DisplayName,
		Email:        account.Email,
		FavoriteTeam: account.FavoriteTeam,
	}
}

// bindAndValidate decodes the request into req and runs its validate tags.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domainerrors.ErrValidationFailed.WrapMessage("request body could not be decoded")
	}

	return errors.WithStack(c.Validate(req))
}

// Register handles account registration.
func (h *AccountHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	account, err := h.authUC.Register(c.Request().Context(), &usecase.RegisterInput{
		DisplayName:  req.DisplayName,
		Email:        req.Email,
		Password:     req.Password,
		FavoriteTeam: req.FavoriteTeam,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, newAccountResponse(account))
}

// Login exchanges credentials for an access token.
func (h *AccountHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	output, err := h.authUC.Login(c.Request().Context(), &usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		// Unknown email and wrong password must look the same to the caller.
		if errors.IsAny(err, domainerrors.ErrAccountNotFound, domainerrors.ErrInvalidCredentials) {
			return response.Unauthorized(c, domainerrors.ErrInvalidCredentials.ErrorCode(), domainerrors.ErrInvalidCredentials.Message())
		}

		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, TokenResponse{
		AccessToken: output.AccessToken,
		TokenType:   output.TokenType,
		ExpiresAt:   output.ExpiresAt,
	})
}

// Me returns the authenticated account.
func (h *AccountHandler) Me(c echo.Context) error {
	account, ok := deliverycontext.GetAccount(c)
	if !ok {
		return errors.WithStack(domainerrors.ErrUnauthorized)
	}

	return response.Success(c, http.StatusOK, newAccountResponse(account))
}

// ChangePassword replaces the authenticated account's password.
func (h *AccountHandler) ChangePassword(c echo.Context) error {
	account, ok := deliverycontext.GetAccount(c)
	if !ok {
		return errors.WithStack(domainerrors.ErrUnauthorized)
	}

	var req ChangePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err := h.authUC.ChangePassword(c.Request().Context(), &usecase.ChangePasswordInput{
		AccountID:       account.ID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Message(c, http.StatusOK, "Password changed successfully")
}

// ForgotPassword starts the verified reset flow. The reply is the same whether or not the email is registered.
func (h *AccountHandler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.resetUC.RequestPasswordReset(c.Request().Context(), &usecase.RequestPasswordResetInput{Email: req.Email}); err != nil {
		return errors.WithStack(err)
	}

	return response.Message(c, http.StatusAccepted, "If the email is registered, a reset link has been sent")
}

// ResetPassword redeems a reset token.
func (h *AccountHandler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err := h.resetUC.ConfirmPasswordReset(c.Request().Context(), &usecase.ConfirmPasswordResetInput{
		Token:       req.Token,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Message(c, http.StatusOK, "Password reset successfully")
}

// ResetPasswordUnverified overwrites a password knowing only the email.
func (h *AccountHandler) ResetPasswordUnverified(c echo.Context) error {
	var req UnverifiedResetRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err := h.authUC.ResetPasswordByEmail(c.Request().Context(), &usecase.ResetPasswordByEmailInput{
		Email:       req.Email,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Message(c, http.StatusOK, "Password reset successfully")
}
