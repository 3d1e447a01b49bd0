package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"codegate/pkg/models"
)

// PostgresStore is a PostgreSQL implementation of the Store interface.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the tables the store needs if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS daily_codes (
			day TEXT PRIMARY KEY,
			code TEXT NOT NULL,
			generated_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS execution_records (
			id UUID PRIMARY KEY,
			account TEXT NOT NULL,
			workflow TEXT NOT NULL,
			input JSONB,
			status TEXT NOT NULL,
			error_kind TEXT,
			error_detail TEXT,
			duration_ms BIGINT NOT NULL,
			tokens_used INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_execution_records_account_created
			ON execution_records (account, created_at DESC);
		CREATE TABLE IF NOT EXISTS login_attempts (
			id UUID PRIMARY KEY,
			identity TEXT NOT NULL,
			success BOOLEAN NOT NULL,
			reason TEXT,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_login_attempts_created
			ON login_attempts (created_at DESC);
	`)
	return err
}

// CreateDailyCode inserts the code for its day; on conflict the row that
// got there first is returned unchanged.
func (s *PostgresStore) CreateDailyCode(ctx context.Context, code *models.DailyCode) (*models.DailyCode, error) {
	var out models.DailyCode
	err := s.db.QueryRow(ctx, `
		INSERT INTO daily_codes (day, code, generated_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (day) DO UPDATE SET day = daily_codes.day
		RETURNING day, code, generated_at, expires_at`,
		code.Day, code.Code, code.GeneratedAt, code.ExpiresAt,
	).Scan(&out.Day, &out.Code, &out.GeneratedAt, &out.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("create daily code: %w", err)
	}
	return &out, nil
}

// GetDailyCode retrieves the code for a day.
func (s *PostgresStore) GetDailyCode(ctx context.Context, day string) (*models.DailyCode, error) {
	var out models.DailyCode
	err := s.db.QueryRow(ctx,
		"SELECT day, code, generated_at, expires_at FROM daily_codes WHERE day = $1", day,
	).Scan(&out.Day, &out.Code, &out.GeneratedAt, &out.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveExecution appends one execution record.
func (s *PostgresStore) SaveExecution(ctx context.Context, rec *models.ExecutionRecord) error {
	var input []byte
	if rec.Input != nil {
		var err error
		input, err = json.Marshal(rec.Input)
		if err != nil {
			return fmt.Errorf("marshal execution input: %w", err)
		}
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO execution_records
			(id, account, workflow, input, status, error_kind, error_detail, duration_ms, tokens_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.Account, rec.Workflow, input, rec.Status,
		rec.ErrorKind, rec.ErrorDetail, rec.DurationMS, rec.TokensUsed, rec.CreatedAt,
	)
	return err
}

// ListExecutions returns one page of execution records, newest first.
func (s *PostgresStore) ListExecutions(ctx context.Context, account string, page, pageSize int) ([]*models.ExecutionRecord, int, error) {
	where := ""
	args := []any{}
	if account != "" {
		where = "WHERE account = $1"
		args = append(args, account)
	}

	var total int
	if err := s.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM execution_records "+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	query := fmt.Sprintf(`
		SELECT id, account, workflow, input, status, error_kind, error_detail, duration_ms, tokens_used, created_at
		FROM execution_records %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []*models.ExecutionRecord
	for rows.Next() {
		var rec models.ExecutionRecord
		var input []byte
		if err := rows.Scan(&rec.ID, &rec.Account, &rec.Workflow, &input, &rec.Status,
			&rec.ErrorKind, &rec.ErrorDetail, &rec.DurationMS, &rec.TokensUsed, &rec.CreatedAt); err != nil {
			return nil, 0, err
		}
		if len(input) > 0 {
			if err := json.Unmarshal(input, &rec.Input); err != nil {
				return nil, 0, err
			}
		}
		records = append(records, &rec)
	}
	return records, total, rows.Err()
}

// SaveLoginAttempt appends one login attempt.
func (s *PostgresStore) SaveLoginAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO login_attempts (id, identity, success, reason, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		attempt.ID, attempt.Identity, attempt.Success, attempt.Reason, attempt.CreatedAt,
	)
	return err
}

// ListLoginAttempts returns the most recent attempts, newest first.
func (s *PostgresStore) ListLoginAttempts(ctx context.Context, limit int) ([]*models.LoginAttempt, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, identity, success, reason, created_at
		FROM login_attempts
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []*models.LoginAttempt
	for rows.Next() {
		var a models.LoginAttempt
		if err := rows.Scan(&a.ID, &a.Identity, &a.Success, &a.Reason, &a.CreatedAt); err != nil {
			return nil, err
		}
		attempts = append(attempts, &a)
	}
	return attempts, rows.Err()
}
