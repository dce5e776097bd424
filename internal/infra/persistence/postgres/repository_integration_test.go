//go:build integration

package postgres

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hubauth/internal/domain/entity"
	domainerrors "hubauth/internal/domain/errors"
	"hubauth/internal/domain/repository"
	"hubauth/internal/errors"
	"hubauth/internal/infra/persistence/model"
)

func setupDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("hubauth_test"),
		tcpostgres.WithUsername("hubauth"),
		tcpostgres.WithPassword("hubauth"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.AccountModel{}, &model.PasswordResetModel{}))

	return db
}

func TestAccountRepository_Postgres(t *testing.T) {
	db := setupDatabase(t)
	ctx := context.Background()
	repo := NewAccountRepository(db)
	now := time.Now().UTC().Truncate(time.Microsecond)

	team := "Tigers"
	alice := &entity.Account{
		DisplayName:       "Alice",
		Email:             "alice@x.com",
		FavoriteTeam:      &team,
		PasswordHash:      "hash-1",
		PasswordChangedAt: now,
	}
	require.NoError(t, repo.Create(ctx, alice))
	assert.Positive(t, alice.ID)

	t.Run("duplicate email", func(t *testing.T) {
		dup := &entity.Account{DisplayName: "Other", Email: "alice@x.com", PasswordHash: "h"}
		assert.ErrorIs(t, repo.Create(ctx, dup), domainerrors.ErrEmailTaken)
	})

	t.Run("long free-form fields", func(t *testing.T) {
		longTeam := strings.Repeat("t", 300)
		long := &entity.Account{
			DisplayName:       strings.Repeat("d", 150),
			Email:             "long@x.com",
			FavoriteTeam:      &longTeam,
			PasswordHash:      "hash",
			PasswordChangedAt: now,
		}
		require.NoError(t, repo.Create(ctx, long))

		stored, err := repo.FindByID(ctx, long.ID)
		require.NoError(t, err)
		assert.Len(t, stored.DisplayName, 150)
		require.NotNil(t, stored.FavoriteTeam)
		assert.Len(t, *stored.FavoriteTeam, 300)
	})

	t.Run("find", func(t *testing.T) {
		byEmail, err := repo.FindByEmail(ctx, "alice@x.com")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, byEmail.ID)
		require.NotNil(t, byEmail.FavoriteTeam)
		assert.Equal(t, "Tigers", *byEmail.FavoriteTeam)

		byID, err := repo.FindByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "hash-1", byID.PasswordHash)

		_, err = repo.FindByEmail(ctx, "nobody@x.com")
		assert.ErrorIs(t, err, domainerrors.ErrAccountNotFound)
		_, err = repo.FindByID(ctx, alice.ID+1000)
		assert.ErrorIs(t, err, domainerrors.ErrAccountNotFound)
	})

	t.Run("compare and swap", func(t *testing.T) {
		swapped, err := repo.CompareAndSwapPasswordHash(ctx, alice.ID, "stale", "hash-x", now)
		require.NoError(t, err)
		assert.False(t, swapped)

		swapped, err = repo.CompareAndSwapPasswordHash(ctx, alice.ID, "hash-1", "hash-2", now.Add(time.Second))
		require.NoError(t, err)
		assert.True(t, swapped)

		stored, err := repo.FindByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "hash-2", stored.PasswordHash)
		assert.True(t, stored.PasswordChangedAt.Equal(now.Add(time.Second)))
	})

	t.Run("update", func(t *testing.T) {
		require.NoError(t, repo.UpdatePasswordHash(ctx, alice.ID, "hash-3", now))
		assert.ErrorIs(t, repo.UpdatePasswordHash(ctx, alice.ID+1000, "hash", now), domainerrors.ErrAccountNotFound)
	})
}

func TestAccountRepository_PostgresConcurrentCreate(t *testing.T) {
	db := setupDatabase(t)
	ctx := context.Background()
	repo := NewAccountRepository(db)

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- repo.Create(ctx, &entity.Account{DisplayName: "Race", Email: "race@x.com", PasswordHash: "h"})
		}()
	}
	wg.Wait()
	close(results)

	var created, taken int
	for err := range results {
		switch {
		case err == nil:
			created++
		case errors.Is(err, domainerrors.ErrEmailTaken):
			taken++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, taken)
}

func TestTransactionManager_Postgres(t *testing.T) {
	db := setupDatabase(t)
	ctx := context.Background()
	txManager := NewTransactionManager(db)
	now := time.Now().UTC()

	account := &entity.Account{DisplayName: "Bob", Email: "bob@x.com", PasswordHash: "h"}
	require.NoError(t, NewAccountRepository(db).Create(ctx, account))

	rollback := errors.New("rollback")
	err := txManager.Execute(ctx, func(f repository.RepositoryFactory) error {
		require.NoError(t, f.NewAccountRepository().UpdatePasswordHash(ctx, account.ID, "changed", now))

		return rollback
	})
	assert.ErrorIs(t, err, rollback)

	stored, err := NewAccountRepository(db).FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "h", stored.PasswordHash)

	reset := &entity.PasswordReset{
		ID:        uuid.New(),
		AccountID: account.ID,
		TokenHash: "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, txManager.Execute(ctx, func(f repository.RepositoryFactory) error {
		return f.NewPasswordResetRepository().Create(ctx, reset)
	}))

	resets := NewPasswordResetRepository(db)
	found, err := resets.FindByTokenHash(ctx, reset.TokenHash)
	require.NoError(t, err)
	assert.Equal(t, account.ID, found.AccountID)

	consumed, err := resets.ConsumeByTokenHash(ctx, reset.TokenHash)
	require.NoError(t, err)
	assert.True(t, consumed)
	consumed, err = resets.ConsumeByTokenHash(ctx, reset.TokenHash)
	require.NoError(t, err)
	assert.False(t, consumed)

	require.NoError(t, resets.DeleteByAccountID(ctx, account.ID))
	_, err = resets.FindByTokenHash(ctx, reset.TokenHash)
	assert.ErrorIs(t, err, domainerrors.ErrResetTokenInvalid)

	orphan := &entity.PasswordReset{ID: uuid.New(), AccountID: account.ID + 1000, TokenHash: "x", ExpiresAt: now}
	assert.ErrorIs(t, resets.Create(ctx, orphan), domainerrors.ErrAccountNotFound)
}
