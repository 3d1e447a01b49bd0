package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"codegate/internal/auth"
)

// LoginRequest is the body for POST /api/auth/login.
type LoginRequest struct {
	Identity string `json:"identity"`
	Code     string `json:"code"`
}

// LoginResponse carries the session token and the resolved account.
type LoginResponse struct {
	Token   string         `json:"token"`
	Account accountSummary `json:"account"`
}

type accountSummary struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

// HandleLogin validates an identity/code pair and returns a session token.
func (h *Handler) HandleLogin(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return writeProblem(c, http.StatusBadRequest, "BadRequest", "invalid request body")
	}
	if req.Identity == "" || req.Code == "" {
		return writeProblem(c, http.StatusBadRequest, "BadRequest", "identity and code are required")
	}

	acct, err := h.codes.Validate(c.Request().Context(), req.Identity, req.Code)
	if err != nil {
		return h.authProblem(c, err)
	}

	token, err := h.tokens.Issue(acct)
	if err != nil {
		h.logger.Error("failed to issue token", "account", acct.Name, "error", err)
		return writeProblem(c, http.StatusInternalServerError, "InternalError", "failed to issue token")
	}

	return c.JSON(http.StatusOK, LoginResponse{
		Token: token,
		Account: accountSummary{
			Name:  acct.Name,
			Email: acct.Email,
			Role:  string(acct.Role),
		},
	})
}

// HandleMe returns the account behind the presented token.
func (h *Handler) HandleMe(c echo.Context) error {
	acct := auth.CurrentAccount(c)
	if acct == nil {
		return writeProblem(c, http.StatusUnauthorized, "Unauthorized", "no account on request")
	}
	return c.JSON(http.StatusOK, accountSummary{
		Name:  acct.Name,
		Email: acct.Email,
		Role:  string(acct.Role),
	})
}
