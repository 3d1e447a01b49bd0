package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codegate/internal/config"
	"codegate/internal/repository"
	"codegate/pkg/models"
)

type fakeStore struct {
	mu       sync.Mutex
	codes    map[string]*models.DailyCode
	attempts []*models.LoginAttempt
	failSave error
}

func newFakeStore() *fakeStore {
	return &fakeStore{codes: map[string]*models.DailyCode{}}
}

func (f *fakeStore) CreateDailyCode(ctx context.Context, code *models.DailyCode) (*models.DailyCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.codes[code.Day]; ok {
		return existing, nil
	}
	copied := *code
	f.codes[code.Day] = &copied
	return &copied, nil
}

func (f *fakeStore) GetDailyCode(ctx context.Context, day string) (*models.DailyCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	code, ok := f.codes[day]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return code, nil
}

func (f *fakeStore) SaveExecution(ctx context.Context, rec *models.ExecutionRecord) error {
	return nil
}

func (f *fakeStore) ListExecutions(ctx context.Context, account string, page, pageSize int) ([]*models.ExecutionRecord, int, error) {
	return nil, 0, nil
}

func (f *fakeStore) SaveLoginAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave != nil {
		return f.failSave
	}
	f.attempts = append(f.attempts, attempt)
	return nil
}

func (f *fakeStore) ListLoginAttempts(ctx context.Context, limit int) ([]*models.LoginAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts, nil
}

type noopNotifier struct{}

func (noopNotifier) DeliverDailyCode(ctx context.Context, name, email string, code *models.DailyCode) error {
	return nil
}

type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Info(msg string, args ...any)  {}
func (noopLogger) Warn(msg string, args ...any)  {}
func (noopLogger) Error(msg string, args ...any) {}

func testAccounts(t *testing.T) *Accounts {
	t.Helper()
	accounts, err := NewAccounts([]config.AccountEntry{
		{Name: "alice", Email: "alice@example.com", Role: "admin", Enabled: true},
		{Name: "bob", Email: "bob@example.com", Role: "user", Enabled: true},
		{Name: "mallory", Role: "user", Enabled: false},
	})
	require.NoError(t, err)
	return accounts
}

func newTestCodeService(t *testing.T, store *fakeStore) *CodeService {
	t.Helper()
	s := NewCodeService(store, noopNotifier{}, testAccounts(t), noopLogger{}, nil, 6, time.UTC)
	s.now = func() time.Time {
		return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	}
	return s
}

func TestGenerateForIsIdempotentWithinDay(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	s := newTestCodeService(t, store)

	first, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-31", first.Day)
	assert.Len(t, first.Code, 6)
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), first.ExpiresAt)

	second, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Code, second.Code)
}

func TestGenerateForReturnsStoredCode(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.codes["2026-08-31"] = &models.DailyCode{
		Day:       "2026-08-31",
		Code:      "111111",
		ExpiresAt: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}
	s := newTestCodeService(t, store)

	code, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "111111", code.Code)
}

func TestValidate(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	s := newTestCodeService(t, store)

	code, err := s.Current(ctx)
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		acct, err := s.Validate(ctx, "bob", code.Code)
		require.NoError(t, err)
		assert.Equal(t, "bob", acct.Name)
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := s.Validate(ctx, "nobody", code.Code)
		assert.ErrorIs(t, err, ErrUnknownAccount)
	})

	t.Run("disabled account", func(t *testing.T) {
		_, err := s.Validate(ctx, "mallory", code.Code)
		assert.ErrorIs(t, err, ErrAccountDisabled)
	})

	t.Run("wrong code", func(t *testing.T) {
		_, err := s.Validate(ctx, "bob", "000000")
		assert.ErrorIs(t, err, ErrCodeMismatch)
	})

	t.Run("every attempt is recorded", func(t *testing.T) {
		attempts, err := store.ListLoginAttempts(ctx, 100)
		require.NoError(t, err)
		require.Len(t, attempts, 4)
		assert.True(t, attempts[0].Success)
		assert.Equal(t, string(KindUnknownAccount), attempts[1].Reason)
		assert.Equal(t, string(KindAccountDisabled), attempts[2].Reason)
		assert.Equal(t, string(KindCodeMismatch), attempts[3].Reason)
		for _, a := range attempts {
			assert.NotEmpty(t, a.ID)
		}
	})
}

func TestValidateYesterdaysCodeReportsExpired(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.codes["2026-08-30"] = &models.DailyCode{
		Day:       "2026-08-30",
		Code:      "999999",
		ExpiresAt: time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
	}
	s := newTestCodeService(t, store)

	_, err := s.Validate(ctx, "bob", "999999")
	assert.ErrorIs(t, err, ErrCodeExpired)
}

func TestValidateExpiredCurrentCode(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	// The stored expiry is already in the past relative to the clock;
	// a matching value must still be rejected.
	store.codes["2026-08-31"] = &models.DailyCode{
		Day:       "2026-08-31",
		Code:      "123456",
		ExpiresAt: time.Date(2026, 8, 31, 11, 0, 0, 0, time.UTC),
	}
	s := newTestCodeService(t, store)

	_, err := s.Validate(ctx, "bob", "123456")
	assert.ErrorIs(t, err, ErrCodeExpired)
}

func TestValidateRecordsAttemptEvenWhenAuditFails(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.failSave = errors.New("disk full")
	s := newTestCodeService(t, store)

	code, err := s.Current(ctx)
	require.NoError(t, err)

	acct, err := s.Validate(ctx, "alice", code.Code)
	require.NoError(t, err)
	assert.Equal(t, "alice", acct.Name)
}
