package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"codegate/internal/metrics"
	"codegate/internal/notify"
	"codegate/internal/repository"
	"codegate/pkg/models"
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

const dayFormat = "2006-01-02"

// CodeService owns the daily access code lifecycle: minting one code per
// calendar day, delivering it out of band, and validating submitted
// identity/code pairs.
type CodeService struct {
	store    repository.Store
	notifier notify.Notifier
	accounts *Accounts
	logger   Logger
	metrics  *metrics.Metrics

	codeLength int
	loc        *time.Location

	// mu serializes minting so two first-requests-of-the-day cannot both
	// create a code; the store's day key is the backstop across processes.
	mu      sync.Mutex
	current *models.DailyCode

	now func() time.Time
}

// NewCodeService creates a CodeService.
func NewCodeService(store repository.Store, notifier notify.Notifier, accounts *Accounts, logger Logger, m *metrics.Metrics, codeLength int, loc *time.Location) *CodeService {
	return &CodeService{
		store:      store,
		notifier:   notifier,
		accounts:   accounts,
		logger:     logger,
		metrics:    m,
		codeLength: codeLength,
		loc:        loc,
		now:        time.Now,
	}
}

// GenerateFor returns the daily code for the calendar day containing t,
// minting and persisting one if none exists yet. Repeated calls for the
// same day return the existing code; a new code would orphan codes
// already delivered.
func (s *CodeService) GenerateFor(ctx context.Context, t time.Time) (*models.DailyCode, error) {
	local := t.In(s.loc)
	day := local.Format(dayFormat)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && s.current.Day == day {
		return s.current, nil
	}

	existing, err := s.store.GetDailyCode(ctx, day)
	if err == nil {
		s.current = existing
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	value, err := randomDigits(s.codeLength)
	if err != nil {
		return nil, err
	}

	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	minted := &models.DailyCode{
		Day:         day,
		Code:        value,
		GeneratedAt: s.now(),
		ExpiresAt:   midnight.AddDate(0, 0, 1),
	}

	stored, err := s.store.CreateDailyCode(ctx, minted)
	if err != nil {
		return nil, err
	}
	s.current = stored

	// Another process won the insert; its code was already delivered.
	if stored.Code != minted.Code {
		return stored, nil
	}

	s.logger.Info("daily code generated", "day", day)
	s.deliver(stored)
	return stored, nil
}

// Current returns today's code, minting it if needed.
func (s *CodeService) Current(ctx context.Context) (*models.DailyCode, error) {
	return s.GenerateFor(ctx, s.now())
}

// deliver sends the new code to every enabled account. Generation has
// already succeeded at this point; a delivery failure is an operational
// alert, never an error for the generator's caller.
func (s *CodeService) deliver(code *models.DailyCode) {
	accounts := s.accounts.List()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		for _, acct := range accounts {
			if !acct.Enabled || acct.Email == "" {
				continue
			}
			if err := s.notifier.DeliverDailyCode(ctx, acct.Name, acct.Email, code); err != nil {
				s.logger.Error("daily code delivery failed", "account", acct.Name, "error", err)
			}
		}
	}()
}

// Validate checks an identity/code pair against the account table and
// the currently active daily code. Every attempt is recorded to the
// audit log with its reason; the submitted code never is.
func (s *CodeService) Validate(ctx context.Context, identity, submitted string) (*models.Account, error) {
	acct, err := s.validate(ctx, identity, submitted)

	attempt := &models.LoginAttempt{
		ID:        uuid.New().String(),
		Identity:  identity,
		Success:   err == nil,
		CreatedAt: s.now(),
	}
	var authErr *Error
	if errors.As(err, &authErr) {
		attempt.Reason = string(authErr.Kind)
	} else if err != nil {
		attempt.Reason = "internal"
	}
	s.metrics.RecordLogin(ctx, attempt.Success, attempt.Reason)
	if logErr := s.store.SaveLoginAttempt(ctx, attempt); logErr != nil {
		s.metrics.RecordAuditFailure(ctx, "login_attempt")
		s.logger.Error("failed to record login attempt", "identity", identity, "error", logErr)
	}

	return acct, err
}

func (s *CodeService) validate(ctx context.Context, identity, submitted string) (*models.Account, error) {
	acct, ok := s.accounts.Get(identity)
	if !ok {
		return nil, ErrUnknownAccount
	}
	if !acct.Enabled {
		return nil, ErrAccountDisabled
	}

	now := s.now()
	code, err := s.GenerateFor(ctx, now)
	if err != nil {
		return nil, err
	}

	if codeEqual(submitted, code.Code) {
		if !now.Before(code.ExpiresAt) {
			return nil, ErrCodeExpired
		}
		return acct, nil
	}

	// A value that matches a superseded code is reported as expired, so a
	// request arriving just after midnight with yesterday's code gets a
	// precise reason instead of a generic mismatch.
	yesterday := now.In(s.loc).AddDate(0, 0, -1).Format(dayFormat)
	if prev, err := s.store.GetDailyCode(ctx, yesterday); err == nil && codeEqual(submitted, prev.Code) {
		return nil, ErrCodeExpired
	}

	return nil, ErrCodeMismatch
}

// codeEqual compares in constant time; the access code is a secret and
// must not leak through timing.
func codeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func randomDigits(n int) (string, error) {
	digits := make([]byte, n)
	for i := range digits {
		v, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + v.Int64())
	}
	return string(digits), nil
}
