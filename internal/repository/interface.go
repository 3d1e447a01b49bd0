package repository

import (
	"context"
	"errors"

	"codegate/pkg/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store persists daily codes and the append-only audit trail.
type Store interface {
	// CreateDailyCode inserts the code for its day. If a code for that
	// day already exists the existing row wins and is returned, so two
	// racing generators converge on one code.
	CreateDailyCode(ctx context.Context, code *models.DailyCode) (*models.DailyCode, error)
	// GetDailyCode retrieves the code for a day (YYYY-MM-DD).
	GetDailyCode(ctx context.Context, day string) (*models.DailyCode, error)

	// SaveExecution appends one execution record.
	SaveExecution(ctx context.Context, rec *models.ExecutionRecord) error
	// ListExecutions returns one page of records, newest first, plus the
	// total count. An empty account matches all accounts.
	ListExecutions(ctx context.Context, account string, page, pageSize int) ([]*models.ExecutionRecord, int, error)

	// SaveLoginAttempt appends one login attempt.
	SaveLoginAttempt(ctx context.Context, attempt *models.LoginAttempt) error
	// ListLoginAttempts returns the most recent attempts, newest first.
	ListLoginAttempts(ctx context.Context, limit int) ([]*models.LoginAttempt, error)
}
