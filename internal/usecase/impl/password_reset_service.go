package impl

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
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
	"hubauth/internal/util"
)

const (
	opRequestPasswordReset = "request_password_reset"
	opConfirmPasswordReset = "confirm_password_reset"

	resetTokenBytes = 32
)

// passwordResetService implements the PasswordResetUsecase interface.
type passwordResetService struct {
	txManager   repository.TransactionManager
	accountRepo repository.AccountRepository
	resetRepo   repository.PasswordResetRepository
	hasher      service.PasswordHasher
	publisher   service.EventPublisher
	metrics     service.AuthMetrics
	policy      passwordPolicy
	tokenTTL    time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// PasswordResetServiceParams holds dependencies for PasswordResetService, injected by Fx.
type PasswordResetServiceParams struct {
	fx.In

	TxManager   repository.TransactionManager
	AccountRepo repository.AccountRepository
	ResetRepo   repository.PasswordResetRepository
	Hasher      service.PasswordHasher
	Publisher   service.EventPublisher
	Metrics     service.AuthMetrics `optional:"true"`
	Config      *config.Config
	Logger      *slog.Logger
}

// NewPasswordResetService creates a new password reset service.
func NewPasswordResetService(params PasswordResetServiceParams) usecase.PasswordResetUsecase {
	var authMetrics service.AuthMetrics = metrics.Nop{}
	if params.Metrics != nil {
		authMetrics = params.Metrics
	}

	tokenTTL := time.Hour
	if params.Config != nil && params.Config.Auth != nil && params.Config.Auth.ResetTokenTTL > 0 {
		tokenTTL = params.Config.Auth.ResetTokenTTL
	}

	return &passwordResetService{
		txManager:   params.TxManager,
		accountRepo: params.AccountRepo,
		resetRepo:   params.ResetRepo,
		hasher:      params.Hasher,
		publisher:   params.Publisher,
		metrics:     authMetrics,
		policy:      newPasswordPolicy(params.Config),
		tokenTTL:    tokenTTL,
		now:         time.Now,
		logger:      params.Logger,
	}
}

func (srv *passwordResetService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// RequestPasswordReset replaces any pending reset of the account with a fresh one and
// publishes the token for out-of-band delivery. Unknown emails succeed silently.
func (srv *passwordResetService) RequestPasswordReset(ctx context.Context, input *usecase.RequestPasswordResetInput) (err error) {
	defer func() { srv.metrics.RecordOperation(opRequestPasswordReset, outcomeOf(err)) }()

	email, err := normalizeEmail(input.Email)
	if err != nil {
		return err
	}

	account, err := srv.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domainerrors.ErrAccountNotFound) {
			srv.log(ctx).Debug("Password reset requested for unknown email")

			return nil
		}

		return errors.Wrap(err, "failed to find account")
	}

	token, err := util.GenerateToken(resetTokenBytes)
	if err != nil {
		return errors.Wrap(err, "failed to generate reset token")
	}

	now := srv.now()
	reset := &entity.PasswordReset{
		ID:        uuid.New(),
		AccountID: account.ID,
		TokenHash: util.HashToken(token),
		ExpiresAt: now.Add(srv.tokenTTL),
		CreatedAt: now,
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		resetRepo := repoFactory.NewPasswordResetRepository()
		if err := resetRepo.DeleteByAccountID(ctx, account.ID); err != nil {
			return err
		}

		return resetRepo.Create(ctx, reset)
	})
	if err != nil {
		return errors.Wrap(err, "failed to store password reset")
	}

	event := &service.PasswordResetEvent{
		RequestID: deliverycontext.GetRequestIDFromContext(ctx),
		AccountID: account.ID,
		Email:     account.Email,
		Token:     token,
		ExpiresAt: reset.ExpiresAt,
	}
	if err := srv.publisher.PublishPasswordResetEvent(ctx, event); err != nil {
		// The caller must not learn anything from a delivery failure.
		srv.log(ctx).Error("Failed to publish password reset event",
			slog.Int64("account_id", account.ID),
			slog.Any("error", err),
		)

		return nil
	}

	srv.log(ctx).Info("Password reset requested",
		slog.Int64("account_id", account.ID),
		slog.Time("expires_at", reset.ExpiresAt),
	)

	return nil
}

// ConfirmPasswordReset redeems a reset token. A token is good for one use before it expires.
func (srv *passwordResetService) ConfirmPasswordReset(ctx context.Context, input *usecase.ConfirmPasswordResetInput) (err error) {
	defer func() { srv.metrics.RecordOperation(opConfirmPasswordReset, outcomeOf(err)) }()

	if input.Token == "" {
		return domainerrors.ErrResetTokenInvalid
	}

	if err := srv.policy.check(input.NewPassword); err != nil {
		return err
	}

	tokenHash := util.HashToken(input.Token)
	reset, err := srv.resetRepo.FindByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, domainerrors.ErrResetTokenInvalid) {
			return domainerrors.ErrResetTokenInvalid
		}

		return errors.Wrap(err, "failed to find password reset")
	}

	now := srv.now()
	if reset.IsExpired(now) {
		return domainerrors.ErrResetTokenInvalid.WrapMessage("reset token expired")
	}

	hash, err := timedHash(srv.hasher, srv.metrics, input.NewPassword)
	if err != nil {
		return errors.Wrap(err, "failed to hash password")
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		resetRepo := repoFactory.NewPasswordResetRepository()

		consumed, err := resetRepo.ConsumeByTokenHash(ctx, tokenHash)
		if err != nil {
			return err
		}
		if !consumed {
			return domainerrors.ErrResetTokenInvalid
		}

		if err := repoFactory.NewAccountRepository().UpdatePasswordHash(ctx, reset.AccountID, hash, now); err != nil {
			return err
		}

		return resetRepo.DeleteByAccountID(ctx, reset.AccountID)
	})
	if err != nil {
		if errors.IsAny(err, domainerrors.ErrResetTokenInvalid, domainerrors.ErrAccountNotFound) {
			return domainerrors.ErrResetTokenInvalid
		}

		return errors.Wrap(err, "failed to execute password reset transaction")
	}

	srv.log(ctx).Info("Password reset completed", slog.Int64("account_id", reset.AccountID))

	return nil
}
