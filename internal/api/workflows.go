package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"codegate/internal/auth"
	"codegate/internal/dispatch"
)

// ExecuteRequest is the body for POST /api/workflows/execute.
type ExecuteRequest struct {
	Workflow string         `json:"workflow"`
	Input    map[string]any `json:"input"`
}

// HandleListWorkflows returns the registered workflow catalog in
// registration order.
func (h *Handler) HandleListWorkflows(c echo.Context) error {
	defs := h.registry.List()
	return c.JSON(http.StatusOK, map[string]any{
		"workflows": defs,
		"total":     len(defs),
	})
}

// HandleExecute runs one workflow call for the authenticated account.
// Handler failures and timeouts come back as a 200 with success=false;
// only requests that never reach a handler get an error status.
func (h *Handler) HandleExecute(c echo.Context) error {
	acct := auth.CurrentAccount(c)

	var req ExecuteRequest
	if err := c.Bind(&req); err != nil {
		return writeProblem(c, http.StatusBadRequest, "BadRequest", "invalid request body")
	}
	if req.Workflow == "" {
		return writeProblem(c, http.StatusBadRequest, "BadRequest", "workflow is required")
	}
	if req.Input == nil {
		req.Input = map[string]any{}
	}

	result, err := h.dispatcher.Execute(c.Request().Context(), acct, req.Workflow, req.Input)
	if err != nil {
		if errors.Is(err, dispatch.ErrWorkflowNotFound) {
			return writeProblem(c, http.StatusNotFound, dispatch.KindWorkflowNotFound, "unknown workflow "+strconv.Quote(req.Workflow))
		}
		var inputErr *dispatch.InvalidInputError
		if errors.As(err, &inputErr) {
			c.Response().Header().Set(echo.HeaderContentType, "application/problem+json")
			return c.JSON(http.StatusUnprocessableEntity, map[string]any{
				"type":     "about:blank",
				"title":    dispatch.KindInvalidInput,
				"status":   http.StatusUnprocessableEntity,
				"detail":   "input failed schema validation",
				"problems": inputErr.Problems,
			})
		}
		h.logger.Error("workflow execution failed", "workflow", req.Workflow, "error", err)
		return writeProblem(c, http.StatusInternalServerError, "InternalError", "execution failed")
	}

	return c.JSON(http.StatusOK, result)
}

// HandleHistory returns one page of the caller's execution history.
// Admins see every account's records.
func (h *Handler) HandleHistory(c echo.Context) error {
	acct := auth.CurrentAccount(c)

	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 20)

	pageResult, err := h.dispatcher.History(c.Request().Context(), acct, page, pageSize)
	if err != nil {
		h.logger.Error("failed to list execution history", "account", acct.Name, "error", err)
		return writeProblem(c, http.StatusInternalServerError, "InternalError", "failed to list history")
	}
	return c.JSON(http.StatusOK, pageResult)
}

func queryInt(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
