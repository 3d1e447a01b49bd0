// Package api contains the HTTP handlers for the workflow gateway
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"codegate/internal/auth"
	"codegate/internal/dispatch"
	"codegate/internal/registry"
	"codegate/internal/repository"
	"codegate/pkg/models"
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Handler contains the HTTP handlers for the REST API.
type Handler struct {
	codes      *auth.CodeService
	tokens     *auth.TokenIssuer
	accounts   *auth.Accounts
	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher
	store      repository.Store
	logger     Logger
	version    string
}

// NewHandler creates a new Handler with required dependencies.
func NewHandler(codes *auth.CodeService, tokens *auth.TokenIssuer, accounts *auth.Accounts, reg *registry.Registry, dispatcher *dispatch.Dispatcher, store repository.Store, logger Logger, version string) *Handler {
	return &Handler{
		codes:      codes,
		tokens:     tokens,
		accounts:   accounts,
		registry:   reg,
		dispatcher: dispatcher,
		store:      store,
		logger:     logger,
		version:    version,
	}
}

// RegisterRoutes mounts all routes on the echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.HandleHealth)
	e.POST("/api/auth/login", h.HandleLogin)

	authed := e.Group("/api", auth.RequireAuth(h.tokens))
	authed.GET("/auth/me", h.HandleMe)
	authed.GET("/workflows", h.HandleListWorkflows)
	authed.POST("/workflows/execute", h.HandleExecute)
	authed.GET("/workflows/history", h.HandleHistory)

	admin := authed.Group("/admin", auth.RequireAdmin())
	admin.POST("/codes/generate", h.HandleGenerateCode)
	admin.GET("/attempts", h.HandleListAttempts)
	admin.PATCH("/accounts/:name", h.HandleSetAccountEnabled)
}

// HandleHealth returns basic health status (always returns 200 OK)
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, models.HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Service:   "codegate",
		Version:   h.version,
		Workflows: h.registry.Len(),
	})
}

// writeProblem writes an RFC 7807 Problem Details JSON error response.
func writeProblem(c echo.Context, status int, title, detail string) error {
	c.Response().Header().Set(echo.HeaderContentType, "application/problem+json")
	return c.JSON(status, models.ProblemDetails{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// authProblem maps a reason-coded auth failure to its client-visible
// status. Anything else is an internal error.
func (h *Handler) authProblem(c echo.Context, err error) error {
	var ae *auth.Error
	if !errors.As(err, &ae) {
		h.logger.Error("authentication failed unexpectedly", "error", err)
		return writeProblem(c, http.StatusInternalServerError, "InternalError", "authentication failed")
	}
	status := http.StatusUnauthorized
	if ae.Kind == auth.KindAccountDisabled {
		status = http.StatusForbidden
	}
	return writeProblem(c, status, string(ae.Kind), ae.Message)
}
