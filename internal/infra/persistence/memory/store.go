// Package memory is an in-process account store. Every operation, and every
// transaction as a whole, runs under one mutex; transactions work on a copy of
// the data that replaces the live copy only on commit.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"hubauth/internal/domain/entity"
	domainerrors "hubauth/internal/domain/errors"
	"hubauth/internal/domain/repository"
)

// Store owns the data shared by the repositories and the transaction manager it hands out.
type Store struct {
	mu   sync.Mutex
	data *snapshot
	now  func() time.Time
}

type snapshot struct {
	nextID   int64
	accounts map[int64]entity.Account
	byEmail  map[string]int64
	resets   map[uuid.UUID]entity.PasswordReset
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		data: &snapshot{
			nextID:   1,
			accounts: make(map[int64]entity.Account),
			byEmail:  make(map[string]int64),
			resets:   make(map[uuid.UUID]entity.PasswordReset),
		},
		now: time.Now,
	}
}

func (s *snapshot) clone() *snapshot {
	c := &snapshot{
		nextID:   s.nextID,
		accounts: make(map[int64]entity.Account, len(s.accounts)),
		byEmail:  make(map[string]int64, len(s.byEmail)),
		resets:   make(map[uuid.UUID]entity.PasswordReset, len(s.resets)),
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.byEmail {
		c.byEmail[k] = v
	}
	for k, v := range s.resets {
		c.resets[k] = v
	}

	return c
}

// AccountRepository returns a repository that locks per call.
func (s *Store) AccountRepository() repository.AccountRepository {
	return &accountRepository{store: s, locked: true}
}

// PasswordResetRepository returns a repository that locks per call.
func (s *Store) PasswordResetRepository() repository.PasswordResetRepository {
	return &passwordResetRepository{store: s, locked: true}
}

// TransactionManager returns the manager for this store.
func (s *Store) TransactionManager() repository.TransactionManager {
	return &transactionManager{store: s}
}

// view runs fn against data, taking the lock when the caller is not already inside a transaction.
func (s *Store) view(locked bool, data *snapshot, fn func(*snapshot) error) error {
	if !locked {
		return fn(data)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(s.data)
}

type transactionManager struct {
	store *Store
}

type repositoryFactory struct {
	store *Store
	data  *snapshot
}

func (f *repositoryFactory) NewAccountRepository() repository.AccountRepository {
	return &accountRepository{store: f.store, data: f.data}
}

func (f *repositoryFactory) NewPasswordResetRepository() repository.PasswordResetRepository {
	return &passwordResetRepository{store: f.store, data: f.data}
}

// Execute serialises transactions. fn sees a private copy; it becomes the live data only if fn succeeds.
func (tm *transactionManager) Execute(ctx context.Context, fn func(repository.RepositoryFactory) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tm.store.mu.Lock()
	defer tm.store.mu.Unlock()

	working := tm.store.data.clone()
	if err := fn(&repositoryFactory{store: tm.store, data: working}); err != nil {
		return err
	}

	tm.store.data = working

	return nil
}

type accountRepository struct {
	store  *Store
	data   *snapshot
	locked bool
}

func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	var found *entity.Account
	err := r.store.view(r.locked, r.data, func(d *snapshot) error {
		id, ok := d.byEmail[email]
		if !ok {
			return domainerrors.ErrAccountNotFound
		}
		found = copyAccount(d.accounts[id])

		return nil
	})

	return found, err
}

func (r *accountRepository) FindByID(ctx context.Context, id int64) (*entity.Account, error) {
	var found *entity.Account
	err := r.store.view(r.locked, r.data, func(d *snapshot) error {
		account, ok := d.accounts[id]
		if !ok {
			return domainerrors.ErrAccountNotFound
		}
		found = copyAccount(account)

		return nil
	})

	return found, err
}

func (r *accountRepository) Create(ctx context.Context, account *entity.Account) error {
	return r.store.view(r.locked, r.data, func(d *snapshot) error {
		if _, taken := d.byEmail[account.Email]; taken {
			return domainerrors.ErrEmailTaken
		}

		now := r.store.now()
		account.ID = d.nextID
		account.CreatedAt = now
		account.UpdatedAt = now
		if account.PasswordChangedAt.IsZero() {
			account.PasswordChangedAt = now
		}
		d.nextID++

		d.accounts[account.ID] = *copyAccount(*account)
		d.byEmail[account.Email] = account.ID

		return nil
	})
}

func (r *accountRepository) UpdatePasswordHash(ctx context.Context, id int64, newHash string, changedAt time.Time) error {
	return r.store.view(r.locked, r.data, func(d *snapshot) error {
		account, ok := d.accounts[id]
		if !ok {
			return domainerrors.ErrAccountNotFound
		}
		setPassword(&account, newHash, changedAt)
		d.accounts[id] = account

		return nil
	})
}

func (r *accountRepository) CompareAndSwapPasswordHash(
	ctx context.Context,
	id int64,
	expectedHash, newHash string,
	changedAt time.Time,
) (bool, error) {
	var swapped bool
	err := r.store.view(r.locked, r.data, func(d *snapshot) error {
		account, ok := d.accounts[id]
		if !ok || account.PasswordHash != expectedHash {
			return nil
		}
		setPassword(&account, newHash, changedAt)
		d.accounts[id] = account
		swapped = true

		return nil
	})

	return swapped, err
}

// copyAccount detaches the optional field so callers never share memory with the store.
func copyAccount(account entity.Account) *entity.Account {
	if account.FavoriteTeam != nil {
		team := *account.FavoriteTeam
		account.FavoriteTeam = &team
	}

	return &account
}

func setPassword(account *entity.Account, newHash string, changedAt time.Time) {
	account.PasswordHash = newHash
	account.PasswordChangedAt = changedAt
	account.UpdatedAt = changedAt
}

type passwordResetRepository struct {
	store  *Store
	data   *snapshot
	locked bool
}

func (r *passwordResetRepository) Create(ctx context.Context, reset *entity.PasswordReset) error {
	return r.store.view(r.locked, r.data, func(d *snapshot) error {
		if _, ok := d.accounts[reset.AccountID]; !ok {
			return domainerrors.ErrAccountNotFound
		}
		if reset.CreatedAt.IsZero() {
			reset.CreatedAt = r.store.now()
		}
		d.resets[reset.ID] = *reset

		return nil
	})
}

func (r *passwordResetRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*entity.PasswordReset, error) {
	var found *entity.PasswordReset
	err := r.store.view(r.locked, r.data, func(d *snapshot) error {
		for _, reset := range d.resets {
			if reset.TokenHash == tokenHash {
				found = &reset

				return nil
			}
		}

		return domainerrors.ErrResetTokenInvalid
	})

	return found, err
}

func (r *passwordResetRepository) ConsumeByTokenHash(ctx context.Context, tokenHash string) (bool, error) {
	var consumed bool
	err := r.store.view(r.locked, r.data, func(d *snapshot) error {
		for id, reset := range d.resets {
			if reset.TokenHash == tokenHash {
				delete(d.resets, id)
				consumed = true

				return nil
			}
		}

		return nil
	})

	return consumed, err
}

func (r *passwordResetRepository) DeleteByAccountID(ctx context.Context, accountID int64) error {
	return r.store.view(r.locked, r.data, func(d *snapshot) error {
		for id, reset := range d.resets {
			if reset.AccountID == accountID {
				delete(d.resets, id)
			}
		}

		return nil
	})
}
