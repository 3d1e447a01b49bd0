// Package dispatch routes validated workflow requests to their handlers
// and records every attempt in the audit log.
package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"codegate/internal/metrics"
	"codegate/internal/registry"
	"codegate/internal/repository"
	"codegate/pkg/models"
	"codegate/pkg/schema"
)

// Error kinds surfaced to the caller on failed executions.
const (
	KindWorkflowNotFound = "WorkflowNotFound"
	KindInvalidInput     = "InvalidInput"
	KindHandlerTimeout   = "HandlerTimeout"
	KindHandlerFailure   = "HandlerFailure"
)

// ErrWorkflowNotFound reports an execute call naming an unregistered
// workflow.
var ErrWorkflowNotFound = errors.New("workflow not found")

// InvalidInputError reports schema validation failure with every
// field-level problem found.
type InvalidInputError struct {
	Problems []schema.FieldError
}

func (e *InvalidInputError) Error() string {
	return (&schema.ValidationError{Problems: e.Problems}).Error()
}

// ExecutionResult is the structured outcome of one execute call. A
// handler failure or timeout is a result with Success=false, never an
// unhandled fault.
type ExecutionResult struct {
	Success     bool           `json:"success"`
	Output      map[string]any `json:"output,omitempty"`
	TokensUsed  int            `json:"tokens_used"`
	DurationMS  int64          `json:"duration_ms"`
	RecordID    string         `json:"record_id"`
	ErrorKind   string         `json:"error_kind,omitempty"`
	ErrorDetail string         `json:"error_detail,omitempty"`
}

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Dispatcher executes workflows under a bounded timeout.
type Dispatcher struct {
	registry *registry.Registry
	store    repository.Store
	logger   Logger
	metrics  *metrics.Metrics
	timeout  time.Duration
	strict   bool
	now      func() time.Time
}

// New creates a Dispatcher.
func New(reg *registry.Registry, store repository.Store, logger Logger, m *metrics.Metrics, timeout time.Duration, strictInput bool) *Dispatcher {
	return &Dispatcher{
		registry: reg,
		store:    store,
		logger:   logger,
		metrics:  m,
		timeout:  timeout,
		strict:   strictInput,
		now:      time.Now,
	}
}

type handlerOutcome struct {
	result *registry.Result
	err    error
}

// Execute resolves, validates, and runs one workflow call for the given
// account. Exactly one ExecutionRecord is written per call, after the
// outcome is known. WorkflowNotFound and InvalidInput come back as
// errors for the transport layer to map; handler outcomes come back as
// an ExecutionResult.
func (d *Dispatcher) Execute(ctx context.Context, account *models.Account, workflow string, input map[string]any) (*ExecutionResult, error) {
	started := d.now()

	entry, err := d.registry.Resolve(workflow)
	if err != nil {
		d.record(ctx, account, workflow, input, started, 0, KindWorkflowNotFound, err.Error())
		return nil, ErrWorkflowNotFound
	}

	if err := schema.Validate(entry.Definition.InputSchema, input, d.strict); err != nil {
		var verr *schema.ValidationError
		errors.As(err, &verr)
		d.record(ctx, account, workflow, input, started, 0, KindInvalidInput, err.Error())
		return nil, &InvalidInputError{Problems: verr.Problems}
	}

	hctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	// The handler runs in its own goroutine so a handler that ignores
	// cancellation cannot block the caller past the timeout. The buffered
	// channel lets an abandoned handler finish and be collected.
	outcomes := make(chan handlerOutcome, 1)
	go func() {
		result, err := entry.Handler(hctx, input)
		outcomes <- handlerOutcome{result: result, err: err}
	}()

	var out handlerOutcome
	select {
	case out = <-outcomes:
	case <-hctx.Done():
		out = handlerOutcome{err: hctx.Err()}
	}

	duration := d.now().Sub(started)

	if out.err != nil {
		kind := KindHandlerFailure
		if errors.Is(out.err, context.DeadlineExceeded) {
			kind = KindHandlerTimeout
		}
		recordID := d.record(ctx, account, workflow, input, started, duration, kind, out.err.Error())
		return &ExecutionResult{
			Success:     false,
			DurationMS:  duration.Milliseconds(),
			RecordID:    recordID,
			ErrorKind:   kind,
			ErrorDetail: out.err.Error(),
		}, nil
	}

	recordID := d.recordSuccess(ctx, account, workflow, input, started, duration, out.result.TokensUsed)
	return &ExecutionResult{
		Success:    true,
		Output:     out.result.Output,
		TokensUsed: out.result.TokensUsed,
		DurationMS: duration.Milliseconds(),
		RecordID:   recordID,
	}, nil
}

func (d *Dispatcher) recordSuccess(ctx context.Context, account *models.Account, workflow string, input map[string]any, started time.Time, duration time.Duration, tokens int) string {
	rec := &models.ExecutionRecord{
		ID:         uuid.New().String(),
		Account:    account.Name,
		Workflow:   workflow,
		Input:      input,
		Status:     models.ExecutionSuccess,
		DurationMS: duration.Milliseconds(),
		TokensUsed: tokens,
		CreatedAt:  started,
	}
	d.write(ctx, rec)
	d.metrics.RecordExecution(ctx, workflow, string(models.ExecutionSuccess), tokens)
	return rec.ID
}

func (d *Dispatcher) record(ctx context.Context, account *models.Account, workflow string, input map[string]any, started time.Time, duration time.Duration, kind, detail string) string {
	rec := &models.ExecutionRecord{
		ID:          uuid.New().String(),
		Account:     account.Name,
		Workflow:    workflow,
		Input:       input,
		Status:      models.ExecutionFailure,
		ErrorKind:   kind,
		ErrorDetail: detail,
		DurationMS:  duration.Milliseconds(),
		CreatedAt:   started,
	}
	d.write(ctx, rec)
	d.metrics.RecordExecution(ctx, workflow, string(models.ExecutionFailure), 0)
	return rec.ID
}

// write appends the record. A persistence failure is escalated as an
// operational alert but must not lose the client-visible result, so it
// is never returned to the caller.
func (d *Dispatcher) write(ctx context.Context, rec *models.ExecutionRecord) {
	if err := d.store.SaveExecution(ctx, rec); err != nil {
		d.metrics.RecordAuditFailure(ctx, "execution_record")
		d.logger.Error("failed to persist execution record",
			"record_id", rec.ID, "workflow", rec.Workflow, "error", err)
	}
}

// History returns one page of execution records. Admin accounts see all
// records; other accounts only their own.
func (d *Dispatcher) History(ctx context.Context, account *models.Account, page, pageSize int) (*models.ExecutionPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	scope := account.Name
	if account.IsAdmin() {
		scope = ""
	}

	records, total, err := d.store.ListExecutions(ctx, scope, page, pageSize)
	if err != nil {
		return nil, err
	}

	totalPages := (total + pageSize - 1) / pageSize
	return &models.ExecutionPage{
		Records:    records,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}, nil
}
