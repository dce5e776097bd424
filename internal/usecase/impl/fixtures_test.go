package impl

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"hubauth/config"
	"hubauth/internal/domain/entity"
	"hubauth/internal/domain/repository"
	"hubauth/internal/domain/service"
	"hubauth/internal/infra/auth"
	"hubauth/internal/infra/persistence/memory"
)

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeClock is a settable time source shared by a service and its token validator.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingMetrics keeps every reported outcome.
type recordingMetrics struct {
	mu       sync.Mutex
	outcomes map[string][]string
	hashes   int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{outcomes: make(map[string][]string)}
}

func (m *recordingMetrics) RecordOperation(operation, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[operation] = append(m.outcomes[operation], outcome)
}

func (m *recordingMetrics) RecordPasswordHash(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hashes++
}

func (m *recordingMetrics) last(operation string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	outcomes := m.outcomes[operation]
	if len(outcomes) == 0 {
		return ""
	}

	return outcomes[len(outcomes)-1]
}

// capturingPublisher records reset events instead of sending them.
type capturingPublisher struct {
	mu     sync.Mutex
	events []*service.PasswordResetEvent
	err    error
}

func (p *capturingPublisher) PublishPasswordResetEvent(_ context.Context, event *service.PasswordResetEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)

	return p.err
}

func (p *capturingPublisher) Close() error { return nil }

func (p *capturingPublisher) lastToken(t *testing.T) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.events, "no reset event published")

	return p.events[len(p.events)-1].Token
}

func testConfig() *config.Config {
	return &config.Config{
		Auth: &config.AuthConfig{
			AccessTokenTTL:         30 * time.Minute,
			ResetTokenTTL:          time.Hour,
			SigningAlgorithm:       "HS256",
			RevokeOnPasswordChange: true,
		},
		PasswordStrength: &config.PasswordStrengthConfig{MinLength: 4},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// serviceFixtures wires both usecases to one in-memory store.
type serviceFixtures struct {
	store     *memory.Store
	clock     *fakeClock
	metrics   *recordingMetrics
	publisher *capturingPublisher
	tokens    service.TokenService
	auth      *authService
	reset     *passwordResetService
}

func newServiceFixtures(t *testing.T, cfg *config.Config) serviceFixtures {
	t.Helper()

	store := memory.NewStore()
	clock := &fakeClock{now: testEpoch}
	recorder := newRecordingMetrics()
	publisher := &capturingPublisher{}
	hasher := auth.NewBcryptHasherWithCost(bcrypt.MinCost)

	tokens, err := auth.NewJWTServiceWithOptions([]byte("test-secret-test-secret-test-secret"), "HS256", cfg.Auth.AccessTokenTTL)
	require.NoError(t, err)

	authSvc, ok := NewAuthService(AuthServiceParams{
		TxManager:    store.TransactionManager(),
		AccountRepo:  store.AccountRepository(),
		Hasher:       hasher,
		TokenService: tokens,
		Metrics:      recorder,
		Config:       cfg,
		Logger:       discardLogger(),
	}).(*authService)
	require.True(t, ok)
	authSvc.now = clock.Now

	resetSvc, ok := NewPasswordResetService(PasswordResetServiceParams{
		TxManager:   store.TransactionManager(),
		AccountRepo: store.AccountRepository(),
		ResetRepo:   store.PasswordResetRepository(),
		Hasher:      hasher,
		Publisher:   publisher,
		Metrics:     recorder,
		Config:      cfg,
		Logger:      discardLogger(),
	}).(*passwordResetService)
	require.True(t, ok)
	resetSvc.now = clock.Now

	return serviceFixtures{
		store:     store,
		clock:     clock,
		metrics:   recorder,
		publisher: publisher,
		tokens:    tokens,
		auth:      authSvc,
		reset:     resetSvc,
	}
}

// mockAccountRepository is a testify mock for store failure paths.
type mockAccountRepository struct {
	mock.Mock
}

func (m *mockAccountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	args := m.Called(ctx, email)
	account, _ := args.Get(0).(*entity.Account)

	return account, args.Error(1)
}

func (m *mockAccountRepository) FindByID(ctx context.Context, id int64) (*entity.Account, error) {
	args := m.Called(ctx, id)
	account, _ := args.Get(0).(*entity.Account)

	return account, args.Error(1)
}

func (m *mockAccountRepository) Create(ctx context.Context, account *entity.Account) error {
	return m.Called(ctx, account).Error(0)
}

func (m *mockAccountRepository) UpdatePasswordHash(ctx context.Context, id int64, newHash string, changedAt time.Time) error {
	return m.Called(ctx, id, newHash, changedAt).Error(0)
}

func (m *mockAccountRepository) CompareAndSwapPasswordHash(
	ctx context.Context,
	id int64,
	expectedHash, newHash string,
	changedAt time.Time,
) (bool, error) {
	args := m.Called(ctx, id, expectedHash, newHash, changedAt)

	return args.Bool(0), args.Error(1)
}

var _ repository.AccountRepository = (*mockAccountRepository)(nil)

// mockPasswordHasher is a testify mock of the credential hasher.
type mockPasswordHasher struct {
	mock.Mock
}

func (m *mockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)

	return args.String(0), args.Error(1)
}

func (m *mockPasswordHasher) Verify(password, hash string) (bool, error) {
	args := m.Called(password, hash)

	return args.Bool(0), args.Error(1)
}
