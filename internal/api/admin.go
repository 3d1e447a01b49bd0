package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"codegate/internal/auth"
)

// HandleGenerateCode ensures today's code exists and triggers delivery.
// The code value itself is never returned over HTTP; operators read it
// with the CLI.
func (h *Handler) HandleGenerateCode(c echo.Context) error {
	code, err := h.codes.Current(c.Request().Context())
	if err != nil {
		h.logger.Error("failed to generate daily code", "error", err)
		return writeProblem(c, http.StatusInternalServerError, "InternalError", "failed to generate daily code")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"day":          code.Day,
		"generated_at": code.GeneratedAt,
		"expires_at":   code.ExpiresAt,
	})
}

// HandleListAttempts returns the most recent login attempts, newest first.
func (h *Handler) HandleListAttempts(c echo.Context) error {
	limit := queryInt(c, "limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}
	attempts, err := h.store.ListLoginAttempts(c.Request().Context(), limit)
	if err != nil {
		h.logger.Error("failed to list login attempts", "error", err)
		return writeProblem(c, http.StatusInternalServerError, "InternalError", "failed to list login attempts")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"attempts": attempts,
		"total":    len(attempts),
	})
}

// AccountUpdateRequest is the body for PATCH /api/admin/accounts/:name.
type AccountUpdateRequest struct {
	Enabled *bool `json:"enabled"`
}

// HandleSetAccountEnabled flips an account's enabled flag. Disabling an
// account takes effect immediately for both logins and existing tokens.
func (h *Handler) HandleSetAccountEnabled(c echo.Context) error {
	name := c.Param("name")

	var req AccountUpdateRequest
	if err := c.Bind(&req); err != nil {
		return writeProblem(c, http.StatusBadRequest, "BadRequest", "invalid request body")
	}
	if req.Enabled == nil {
		return writeProblem(c, http.StatusBadRequest, "BadRequest", "enabled is required")
	}

	if err := h.accounts.SetEnabled(name, *req.Enabled); err != nil {
		if errors.Is(err, auth.ErrUnknownAccount) {
			return writeProblem(c, http.StatusNotFound, "NotFound", "unknown account")
		}
		h.logger.Error("failed to update account", "account", name, "error", err)
		return writeProblem(c, http.StatusInternalServerError, "InternalError", "failed to update account")
	}

	h.logger.Info("account enabled flag updated", "account", name, "enabled", *req.Enabled)
	acct, _ := h.accounts.Get(name)
	return c.JSON(http.StatusOK, accountSummary{
		Name:  acct.Name,
		Email: acct.Email,
		Role:  string(acct.Role),
	})
}
