package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"codegate/internal/auth"
	"codegate/internal/dispatch"
	"codegate/internal/registry"
	"codegate/pkg/models"
)

// Server exposes the workflow catalog over the Model Context Protocol.
// Tool calls carry a session token obtained from the HTTP login endpoint;
// the daily-code gate applies to MCP clients exactly as to REST clients.
type Server struct {
	mcpServer  *server.MCPServer
	tokens     *auth.TokenIssuer
	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher
}

func NewServer(tokens *auth.TokenIssuer, reg *registry.Registry, dispatcher *dispatch.Dispatcher, version string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Codegate Workflows",
			version,
			server.WithToolCapabilities(true),
		),
		tokens:     tokens,
		registry:   reg,
		dispatcher: dispatcher,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_workflows",
			mcp.WithDescription("List the available workflows and their input schemas"),
			mcp.WithString("token", mcp.Required(), mcp.Description("Session token from the login endpoint")),
		),
		s.handleListWorkflows,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"execute_workflow",
			mcp.WithDescription("Execute a workflow with the given input"),
			mcp.WithString("token", mcp.Required(), mcp.Description("Session token from the login endpoint")),
			mcp.WithString("workflow", mcp.Required(), mcp.Description("Name of the workflow to execute")),
			mcp.WithString("input", mcp.Description("Workflow input as a JSON object")),
		),
		s.handleExecuteWorkflow,
	)
}

func (s *Server) handleListWorkflows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	if _, result := s.authenticate(args); result != nil {
		return result, nil
	}

	jsonBytes, _ := json.Marshal(s.registry.List())
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleExecuteWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	acct, result := s.authenticate(args)
	if result != nil {
		return result, nil
	}

	workflow, ok := args["workflow"].(string)
	if !ok || workflow == "" {
		return mcp.NewToolResultError("Missing required parameter: workflow"), nil
	}

	input := map[string]any{}
	if raw, ok := args["input"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &input); err != nil {
			return mcp.NewToolResultError("Parameter input must be a JSON object"), nil
		}
	}

	execResult, err := s.dispatcher.Execute(ctx, acct, workflow, input)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to execute workflow: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(execResult)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// authenticate resolves the token argument to an account. On failure it
// returns the error result the handler should hand back unchanged.
func (s *Server) authenticate(args map[string]interface{}) (*models.Account, *mcp.CallToolResult) {
	token, ok := args["token"].(string)
	if !ok || token == "" {
		return nil, mcp.NewToolResultError("Missing required parameter: token")
	}
	account, err := s.tokens.Verify(token)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("Authentication failed: %v", err))
	}
	return account, nil
}

func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	// Use SSE server for /mcp/sse and /mcp/message endpoints
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		// Direct POST for tool calls
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	// SSE endpoints
	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
