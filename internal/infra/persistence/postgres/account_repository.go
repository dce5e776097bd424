package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	"hubauth/internal/domain/entity"
	domainerrors "hubauth/internal/domain/errors"
	"hubauth/internal/domain/repository"
	"hubauth/internal/errors"
	"hubauth/internal/infra/persistence/model"
)

// accountRepository implements repository.AccountRepository using GORM.
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository is the constructor for accountRepository.
// It returns the repository as a repository.AccountRepository interface, adhering to dependency inversion.
func NewAccountRepository(db *gorm.DB) repository.AccountRepository {
	return &accountRepository{db: db}
}

// FindByEmail retrieves an account by its normalised email. Lookups go to the primary
// because they precede writes (register, password change).
func (repo *accountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	var accountM model.AccountModel
	err := repo.db.WithContext(ctx).
		Clauses(dbresolver.Write).
		Where("email = ?", email).
		First(&accountM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrAccountNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "find account by email")
	}

	return toAccountDomain(&accountM), nil
}

// FindByID retrieves an account by id.
func (repo *accountRepository) FindByID(ctx context.Context, id int64) (*entity.Account, error) {
	var accountM model.AccountModel
	err := repo.db.WithContext(ctx).
		Clauses(dbresolver.Write).
		First(&accountM, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrAccountNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "find account by id")
	}

	return toAccountDomain(&accountM), nil
}

// Create inserts the account and copies the generated id and timestamps back.
// The unique email index is the final arbiter of concurrent registrations.
func (repo *accountRepository) Create(ctx context.Context, account *entity.Account) error {
	accountM := fromAccountDomain(account)
	if err := repo.db.WithContext(ctx).Create(accountM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return domainerrors.ErrEmailTaken
		}

		return domainerrors.NewDatabaseExecuteError(err, "create account")
	}

	account.ID = accountM.ID
	account.CreatedAt = accountM.CreatedAt
	account.UpdatedAt = accountM.UpdatedAt
	account.PasswordChangedAt = accountM.PasswordChangedAt

	return nil
}

// UpdatePasswordHash replaces the stored hash unconditionally.
func (repo *accountRepository) UpdatePasswordHash(ctx context.Context, id int64, newHash string, changedAt time.Time) error {
	result := repo.db.WithContext(ctx).
		Model(&model.AccountModel{}).
		Where("id = ?", id).
		Updates(passwordColumns(newHash, changedAt))
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "update password hash")
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrAccountNotFound
	}

	return nil
}

// CompareAndSwapPasswordHash updates the hash only if it still equals expectedHash,
// in a single conditional UPDATE.
func (repo *accountRepository) CompareAndSwapPasswordHash(
	ctx context.Context,
	id int64,
	expectedHash, newHash string,
	changedAt time.Time,
) (bool, error) {
	result := repo.db.WithContext(ctx).
		Model(&model.AccountModel{}).
		Where("id = ? AND password_hash = ?", id, expectedHash).
		Updates(passwordColumns(newHash, changedAt))
	if result.Error != nil {
		return false, domainerrors.NewDatabaseExecuteError(result.Error, "compare and swap password hash")
	}

	return result.RowsAffected == 1, nil
}

func passwordColumns(newHash string, changedAt time.Time) map[string]any {
	return map[string]any{
		"password_hash":       newHash,
		"password_changed_at": changedAt,
		"updated_at":          changedAt,
	}
}

func toAccountDomain(m *model.AccountModel) *entity.Account {
	return &entity.Account{
		ID:                m.ID,
		DisplayName:       m.DisplayName,
		Email:             m.Email,
		FavoriteTeam:      m.FavoriteTeam,
		PasswordHash:      m.PasswordHash,
		PasswordChangedAt: m.PasswordChangedAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func fromAccountDomain(a *entity.Account) *model.AccountModel {
	return &model.AccountModel{
		ID:                a.ID,
		DisplayName:       a.DisplayName,
		Email:             a.Email,
		FavoriteTeam:      a.FavoriteTeam,
		PasswordHash:      a.PasswordHash,
		PasswordChangedAt: a.PasswordChangedAt,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}
