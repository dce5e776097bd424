package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	"hubauth/internal/domain/entity"
	domainerrors "hubauth/internal/domain/errors"
	"hubauth/internal/domain/repository"
	"hubauth/internal/errors"
	"hubauth/internal/infra/persistence/model"
)

type passwordResetRepository struct {
	db *gorm.DB
}

// NewPasswordResetRepository is the constructor for passwordResetRepository.
func NewPasswordResetRepository(db *gorm.DB) repository.PasswordResetRepository {
	return &passwordResetRepository{db: db}
}

func (repo *passwordResetRepository) Create(ctx context.Context, reset *entity.PasswordReset) error {
	resetM := &model.PasswordResetModel{
		ID:        reset.ID,
		AccountID: reset.AccountID,
		TokenHash: reset.TokenHash,
		ExpiresAt: reset.ExpiresAt,
		CreatedAt: reset.CreatedAt,
	}
	if err := repo.db.WithContext(ctx).Create(resetM).Error; err != nil {
		if isForeignKeyConstraintViolation(err) {
			return domainerrors.ErrAccountNotFound
		}

		return domainerrors.NewDatabaseExecuteError(err, "create password reset")
	}

	reset.CreatedAt = resetM.CreatedAt

	return nil
}

func (repo *passwordResetRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*entity.PasswordReset, error) {
	var resetM model.PasswordResetModel
	err := repo.db.WithContext(ctx).
		Clauses(dbresolver.Write).
		Where("token_hash = ?", tokenHash).
		First(&resetM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrResetTokenInvalid
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "find password reset")
	}

	return &entity.PasswordReset{
		ID:        resetM.ID,
		AccountID: resetM.AccountID,
		TokenHash: resetM.TokenHash,
		ExpiresAt: resetM.ExpiresAt,
		CreatedAt: resetM.CreatedAt,
	}, nil
}

func (repo *passwordResetRepository) ConsumeByTokenHash(ctx context.Context, tokenHash string) (bool, error) {
	result := repo.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		Delete(&model.PasswordResetModel{})
	if result.Error != nil {
		return false, domainerrors.NewDatabaseExecuteError(result.Error, "consume password reset")
	}

	return result.RowsAffected == 1, nil
}

func (repo *passwordResetRepository) DeleteByAccountID(ctx context.Context, accountID int64) error {
	err := repo.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Delete(&model.PasswordResetModel{}).Error
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "delete password resets")
	}

	return nil
}
