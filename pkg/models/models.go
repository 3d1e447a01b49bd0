// Package models defines the domain models for the workflow gateway service
package models

import (
	"time"
)

// Role distinguishes plain accounts from administrators.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Account is an identity allowed to request a session. Accounts come from
// configuration; only the Enabled flag changes at runtime.
type Account struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    Role   `json:"role"`
	Enabled bool   `json:"enabled"`
}

// IsAdmin reports whether the account holds the admin role.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// DailyCode is the shared secret for one calendar day. The day string
// (YYYY-MM-DD in the configured time zone) is the natural key; codes are
// superseded, never mutated, when a new day begins.
type DailyCode struct {
	Day         string    `json:"day"`
	Code        string    `json:"code"`
	GeneratedAt time.Time `json:"generated_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ExecutionStatus classifies a workflow execution outcome.
type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailure ExecutionStatus = "failure"
)

// ExecutionRecord is the append-only audit entry written for every
// execution attempt, success or failure.
type ExecutionRecord struct {
	ID          string          `json:"id"`
	Account     string          `json:"account"`
	Workflow    string          `json:"workflow"`
	Input       map[string]any  `json:"input,omitempty"`
	Status      ExecutionStatus `json:"status"`
	ErrorKind   string          `json:"error_kind,omitempty"`
	ErrorDetail string          `json:"error_detail,omitempty"`
	DurationMS  int64           `json:"duration_ms"`
	TokensUsed  int             `json:"tokens_used"`
	CreatedAt   time.Time       `json:"created_at"`
}

// LoginAttempt records the outcome of a credential validation. The
// submitted code is never stored.
type LoginAttempt struct {
	ID        string    `json:"id"`
	Identity  string    `json:"identity"`
	Success   bool      `json:"success"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ExecutionPage is the paginated history envelope.
type ExecutionPage struct {
	Records    []*ExecutionRecord `json:"records"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	Total      int                `json:"total"`
	TotalPages int                `json:"total_pages"`
	HasPrev    bool               `json:"has_prev"`
	HasNext    bool               `json:"has_next"`
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Workflows int       `json:"workflows"`
}

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}
