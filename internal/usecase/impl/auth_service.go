// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.uber.org/fx"

	"hubauth/config"
	deliverycontext "hubauth/internal/delivery/context"
	"hubauth/internal/domain/entity"
	domainerrors "hubauth/internal/domain/errors"
	"hubauth/internal/domain/repository"
	"hubauth/internal/domain/service"
	"hubauth/internal/errors"
	"hubauth/internal/infra/metrics"
	"hubauth/internal/usecase"
)

// Operation names reported to metrics.
const (
	opRegister             = "register"
	opLogin                = "login"
	opChangePassword       = "change_password"
	opResetPasswordByEmail = "reset_password_by_email"
	opGetCurrentAccount    = "get_current_account"
)

// authService implements the AuthUsecase interface.
type authService struct {
	txManager              repository.TransactionManager
	accountRepo            repository.AccountRepository
	hasher                 service.PasswordHasher
	tokenService           service.TokenService
	metrics                service.AuthMetrics
	policy                 passwordPolicy
	revokeOnPasswordChange bool
	now                    func() time.Time
	logger                 *slog.Logger
}

// AuthServiceParams holds dependencies for AuthService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	TxManager    repository.TransactionManager
	AccountRepo  repository.AccountRepository
	Hasher       service.PasswordHasher
	TokenService service.TokenService
	Metrics      service.AuthMetrics `optional:"true"`
	Config       *config.Config
	Logger       *slog.Logger
}

// NewAuthService is the constructor for authService. It receives all dependencies as interfaces.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	var authMetrics service.AuthMetrics = metrics.Nop{}
	if params.Metrics != nil {
		authMetrics = params.Metrics
	}

	revoke := false
	if params.Config != nil && params.Config.Auth != nil {
		revoke = params.Config.Auth.RevokeOnPasswordChange
	}

	return &authService{
		txManager:              params.TxManager,
		accountRepo:            params.AccountRepo,
		hasher:                 params.Hasher,
		tokenService:           params.TokenService,
		metrics:                authMetrics,
		policy:                 newPasswordPolicy(params.Config),
		revokeOnPasswordChange: revoke,
		now:                    time.Now,
		logger:                 params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Register validates the input, hashes the password outside any transaction and
// inserts the account after re-checking the email inside one.
func (srv *authService) Register(ctx context.Context, input *usecase.RegisterInput) (account *entity.Account, err error) {
	defer func() { srv.metrics.RecordOperation(opRegister, outcomeOf(err)) }()

	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}

	// A taken email wins over every other validation failure.
	if err := srv.ensureEmailFree(ctx, srv.accountRepo, email); err != nil {
		return nil, err
	}

	// A short password is reported as weak whatever the display name holds.
	if err := srv.policy.check(input.Password); err != nil {
		return nil, err
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		return nil, domainerrors.ErrValidationFailed.WrapMessage("display name is required")
	}

	hash, err := timedHash(srv.hasher, srv.metrics, input.Password)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	now := srv.now()
	account = &entity.Account{
		DisplayName:       displayName,
		Email:             email,
		FavoriteTeam:      normalizeOptional(input.FavoriteTeam),
		PasswordHash:      hash,
		PasswordChangedAt: now,
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		accountRepo := repoFactory.NewAccountRepository()
		if err := srv.ensureEmailFree(ctx, accountRepo, email); err != nil {
			return err
		}

		return accountRepo.Create(ctx, account)
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrEmailTaken) {
			return nil, domainerrors.ErrEmailTaken
		}
		srv.log(ctx).Error("Failed to create account", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute registration transaction")
	}

	srv.log(ctx).Info("Account registered", slog.Int64("account_id", account.ID))

	return account, nil
}

func (srv *authService) ensureEmailFree(ctx context.Context, accountRepo repository.AccountRepository, email string) error {
	_, err := accountRepo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return domainerrors.ErrEmailTaken
	case errors.Is(err, domainerrors.ErrAccountNotFound):
		return nil
	default:
		return errors.Wrap(err, "failed to look up email")
	}
}

// Login verifies the credentials and issues an access token with the default lifetime.
// An unknown email and a wrong password stay distinct here; the transport renders them alike.
func (srv *authService) Login(ctx context.Context, input *usecase.LoginInput) (output *usecase.LoginOutput, err error) {
	defer func() { srv.metrics.RecordOperation(opLogin, outcomeOf(err)) }()

	account, err := srv.accountRepo.FindByEmail(ctx, entity.NormalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, domainerrors.ErrAccountNotFound) {
			srv.log(ctx).Debug("Login for unknown email")

			return nil, domainerrors.ErrAccountNotFound
		}

		return nil, errors.Wrap(err, "failed to find account")
	}

	if err := srv.verifyPassword(ctx, account, input.Password); err != nil {
		return nil, err
	}

	token, err := srv.tokenService.Issue(account.ID, srv.now(), 0)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue access token")
	}

	srv.log(ctx).Debug("Login succeeded", slog.Int64("account_id", account.ID))

	return &usecase.LoginOutput{
		AccessToken: token.Raw,
		TokenType:   entity.TokenTypeBearer,
		ExpiresAt:   token.ExpiresAt,
	}, nil
}

// verifyPassword maps every way a password check can fail onto ErrInvalidCredentials.
// A corrupt stored hash additionally carries ErrMalformedHash for callers that inspect it.
func (srv *authService) verifyPassword(ctx context.Context, account *entity.Account, password string) error {
	ok, err := srv.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		if errors.Is(err, domainerrors.ErrMalformedHash) {
			srv.log(ctx).Error("Stored password hash is malformed", slog.Int64("account_id", account.ID))

			return errors.Join(domainerrors.ErrInvalidCredentials, domainerrors.ErrMalformedHash)
		}

		return errors.Wrap(err, "failed to verify password")
	}
	if !ok {
		return domainerrors.ErrInvalidCredentials
	}

	return nil
}

// ChangePassword replaces the hash only if it is still the one the current password was verified against.
func (srv *authService) ChangePassword(ctx context.Context, input *usecase.ChangePasswordInput) (err error) {
	defer func() { srv.metrics.RecordOperation(opChangePassword, outcomeOf(err)) }()

	account, err := srv.accountRepo.FindByID(ctx, input.AccountID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrAccountNotFound) {
			return domainerrors.ErrAccountNotFound
		}

		return errors.Wrap(err, "failed to find account")
	}

	if err := srv.verifyPassword(ctx, account, input.CurrentPassword); err != nil {
		return err
	}

	if err := srv.policy.check(input.NewPassword); err != nil {
		return err
	}

	hash, err := timedHash(srv.hasher, srv.metrics, input.NewPassword)
	if err != nil {
		return errors.Wrap(err, "failed to hash password")
	}

	swapped, err := srv.accountRepo.CompareAndSwapPasswordHash(ctx, account.ID, account.PasswordHash, hash, srv.now())
	if err != nil {
		return errors.Wrap(err, "failed to update password")
	}
	if !swapped {
		// The credential we verified was replaced in the meantime.
		srv.log(ctx).Warn("Password changed concurrently, rejecting stale change", slog.Int64("account_id", account.ID))

		return domainerrors.ErrInvalidCredentials
	}

	srv.log(ctx).Info("Password changed", slog.Int64("account_id", account.ID))

	return nil
}

// ResetPasswordByEmail overwrites the password of whoever owns email. There is no proof of
// ownership; the route exposing it is mounted only when explicitly enabled.
func (srv *authService) ResetPasswordByEmail(ctx context.Context, input *usecase.ResetPasswordByEmailInput) (err error) {
	defer func() { srv.metrics.RecordOperation(opResetPasswordByEmail, outcomeOf(err)) }()

	account, err := srv.accountRepo.FindByEmail(ctx, entity.NormalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, domainerrors.ErrAccountNotFound) {
			return domainerrors.ErrAccountNotFound
		}

		return errors.Wrap(err, "failed to find account")
	}

	if err := srv.policy.check(input.NewPassword); err != nil {
		return err
	}

	hash, err := timedHash(srv.hasher, srv.metrics, input.NewPassword)
	if err != nil {
		return errors.Wrap(err, "failed to hash password")
	}

	if err := srv.accountRepo.UpdatePasswordHash(ctx, account.ID, hash, srv.now()); err != nil {
		return errors.Wrap(err, "failed to update password")
	}

	srv.log(ctx).Warn("Password reset without ownership verification", slog.Int64("account_id", account.ID))

	return nil
}

// GetCurrentAccount resolves a bearer token. Any failure is reported as ErrUnauthorized
// joined with its cause.
func (srv *authService) GetCurrentAccount(ctx context.Context, token string) (account *entity.Account, err error) {
	defer func() { srv.metrics.RecordOperation(opGetCurrentAccount, outcomeOf(err)) }()

	accessToken, err := srv.tokenService.Validate(token, srv.now())
	if err != nil {
		return nil, errors.Join(domainerrors.ErrUnauthorized, err)
	}

	account, err = srv.accountRepo.FindByID(ctx, accessToken.Subject)
	if err != nil {
		if errors.Is(err, domainerrors.ErrAccountNotFound) {
			return nil, errors.Join(domainerrors.ErrUnauthorized, err)
		}

		return nil, errors.Wrap(err, "failed to find account")
	}

	if srv.revokeOnPasswordChange && account.IssuedBeforePasswordChange(accessToken.IssuedAt) {
		return nil, errors.Join(
			domainerrors.ErrUnauthorized,
			domainerrors.ErrInvalidToken.WrapMessage("token predates the latest password change"),
		)
	}

	return account, nil
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}

	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}

	return &trimmed
}
