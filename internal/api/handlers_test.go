package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codegate/internal/auth"
	"codegate/internal/config"
	"codegate/internal/dispatch"
	"codegate/internal/registry"
	"codegate/internal/repository"
	"codegate/pkg/models"
	"codegate/pkg/schema"
)

type memStore struct {
	mu       sync.Mutex
	codes    map[string]*models.DailyCode
	records  []*models.ExecutionRecord
	attempts []*models.LoginAttempt
}

func newMemStore() *memStore {
	return &memStore{codes: map[string]*models.DailyCode{}}
}

func (s *memStore) CreateDailyCode(ctx context.Context, code *models.DailyCode) (*models.DailyCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.codes[code.Day]; ok {
		return existing, nil
	}
	s.codes[code.Day] = code
	return code, nil
}

func (s *memStore) GetDailyCode(ctx context.Context, day string) (*models.DailyCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.codes[day]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return code, nil
}

func (s *memStore) SaveExecution(ctx context.Context, rec *models.ExecutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *memStore) ListExecutions(ctx context.Context, account string, page, pageSize int) ([]*models.ExecutionRecord, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []*models.ExecutionRecord
	for _, rec := range s.records {
		if account == "" || rec.Account == account {
			matched = append(matched, rec)
		}
	}
	total := len(matched)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (s *memStore) SaveLoginAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, attempt)
	return nil
}

func (s *memStore) ListLoginAttempts(ctx context.Context, limit int) ([]*models.LoginAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > len(s.attempts) {
		limit = len(s.attempts)
	}
	out := make([]*models.LoginAttempt, 0, limit)
	for i := len(s.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.attempts[i])
	}
	return out, nil
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

type testEnv struct {
	e     *echo.Echo
	store *memStore
	codes *auth.CodeService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	accounts, err := auth.NewAccounts([]config.AccountEntry{
		{Name: "alice", Email: "alice@example.com", Role: "admin", Enabled: true},
		{Name: "bob", Email: "bob@example.com", Role: "user", Enabled: true},
		{Name: "mallory", Role: "user", Enabled: false},
	})
	require.NoError(t, err)

	store := newMemStore()
	codes := auth.NewCodeService(store, noopNotifier{}, accounts, noopLogger{}, nil, 6, time.UTC)
	tokens := auth.NewTokenIssuer([]byte("test-secret"), time.Hour, accounts)

	reg := registry.New()
	echoDef := models.WorkflowDefinition{
		Name:        "echo",
		Description: "Echo the input back",
		InputSchema: schema.Object(map[string]*schema.Property{
			"text": {Type: schema.TypeString, MinLength: schema.IntPtr(1)},
		}, "text"),
	}
	require.NoError(t, reg.Register(echoDef, func(ctx context.Context, input map[string]any) (*registry.Result, error) {
		return &registry.Result{Output: map[string]any{"text": input["text"]}, TokensUsed: 3}, nil
	}))

	dispatcher := dispatch.New(reg, store, noopLogger{}, nil, time.Second, false)

	e := echo.New()
	handler := NewHandler(codes, tokens, accounts, reg, dispatcher, store, noopLogger{}, "test")
	handler.RegisterRoutes(e)

	return &testEnv{e: e, store: store, codes: codes}
}

func (env *testEnv) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) login(t *testing.T, identity string) string {
	t.Helper()
	code, err := env.codes.Current(context.Background())
	require.NoError(t, err)

	rec := env.request(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Identity: identity, Code: code.Code})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.request(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status models.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, 1, status.Workflows)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	t.Run("success", func(t *testing.T) {
		token := env.login(t, "bob")
		assert.NotEmpty(t, token)
	})

	t.Run("wrong code", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Identity: "bob", Code: "000000"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		var problem models.ProblemDetails
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
		assert.Equal(t, "CodeMismatch", problem.Title)
	})

	t.Run("unknown account", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Identity: "nobody", Code: "000000"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("disabled account", func(t *testing.T) {
		code, err := env.codes.Current(context.Background())
		require.NoError(t, err)
		rec := env.request(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Identity: "mallory", Code: code.Code})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/api/auth/login", "", LoginRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "bob")

	rec := env.request(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var acct accountSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &acct))
	assert.Equal(t, "bob", acct.Name)
	assert.Equal(t, "user", acct.Role)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/auth/me", "/api/workflows", "/api/workflows/history"} {
		rec := env.request(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := env.request(t, http.MethodGet, "/api/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListWorkflows(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "bob")

	rec := env.request(t, http.MethodGet, "/api/workflows", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Workflows []models.WorkflowDefinition `json:"workflows"`
		Total     int                         `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, "echo", resp.Workflows[0].Name)
}

func TestExecute(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "bob")

	t.Run("success", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/api/workflows/execute", token,
			ExecuteRequest{Workflow: "echo", Input: map[string]any{"text": "hi"}})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var result dispatch.ExecutionResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.True(t, result.Success)
		assert.Equal(t, "hi", result.Output["text"])
		assert.NotEmpty(t, result.RecordID)
	})

	t.Run("unknown workflow", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/api/workflows/execute", token,
			ExecuteRequest{Workflow: "nope", Input: map[string]any{}})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid input", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/api/workflows/execute", token,
			ExecuteRequest{Workflow: "echo", Input: map[string]any{"text": ""}})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var resp struct {
			Title    string              `json:"title"`
			Problems []schema.FieldError `json:"problems"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "InvalidInput", resp.Title)
		require.Len(t, resp.Problems, 1)
		assert.Equal(t, "text", resp.Problems[0].Field)
	})

	t.Run("missing workflow name", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/api/workflows/execute", token, ExecuteRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t)
	bobToken := env.login(t, "bob")
	aliceToken := env.login(t, "alice")

	for i := 0; i < 3; i++ {
		rec := env.request(t, http.MethodPost, "/api/workflows/execute", bobToken,
			ExecuteRequest{Workflow: "echo", Input: map[string]any{"text": "hi"}})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	t.Run("user scope", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/api/workflows/history?page=1&page_size=2", bobToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var page models.ExecutionPage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		assert.Equal(t, 3, page.Total)
		assert.Equal(t, 2, page.TotalPages)
		assert.Len(t, page.Records, 2)
		assert.True(t, page.HasNext)
	})

	t.Run("admin sees all", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/api/workflows/history", aliceToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var page models.ExecutionPage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		assert.Equal(t, 3, page.Total)
	})
}

func TestAdminEndpoints(t *testing.T) {
	env := newTestEnv(t)
	bobToken := env.login(t, "bob")
	aliceToken := env.login(t, "alice")

	t.Run("admin role required", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/api/admin/attempts", bobToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("generate code omits the value", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/api/admin/codes/generate", aliceToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp, "day")
		assert.Contains(t, resp, "expires_at")
		assert.NotContains(t, resp, "code")
	})

	t.Run("list attempts", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/api/admin/attempts", aliceToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Attempts []*models.LoginAttempt `json:"attempts"`
			Total    int                    `json:"total"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.GreaterOrEqual(t, resp.Total, 2)
	})

	t.Run("disable account", func(t *testing.T) {
		enabled := false
		rec := env.request(t, http.MethodPatch, "/api/admin/accounts/bob", aliceToken,
			AccountUpdateRequest{Enabled: &enabled})
		require.Equal(t, http.StatusOK, rec.Code)

		// Bob's existing token stops working immediately.
		rec = env.request(t, http.MethodGet, "/api/auth/me", bobToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown account", func(t *testing.T) {
		enabled := true
		rec := env.request(t, http.MethodPatch, "/api/admin/accounts/nobody", aliceToken,
			AccountUpdateRequest{Enabled: &enabled})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
