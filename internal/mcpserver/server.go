// Package mcpserver exposes the knowledge store as MCP (Model Context
// Protocol) tools and resources over stdio transport.
package mcpserver

import (
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/mimir/internal/apperr"
	"github.com/starford/mimir/internal/knowledge"
	"github.com/starford/mimir/internal/todo"
)

// Server wraps the MCP server with the knowledge store tools.
type Server struct {
	mcp       *server.MCPServer
	knowledge *knowledge.Service
	todos     *todo.Manager
}

// New creates an MCP server with all tools and resources registered.
func New(svc *knowledge.Service, todos *todo.Manager) *Server {
	s := &Server{knowledge: svc, todos: todos}

	s.mcp = server.NewMCPServer(
		"Mimir",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.registerMainTools()
	s.registerKnowledgeTools()
	s.registerTodoTools()
	s.registerResources()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// jsonResult marshals v as an indented JSON tool result.
func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

// successResult is the payload shape for mutations.
func successResult(message string) *mcp.CallToolResult {
	return jsonResult(map[string]any{"success": true, "message": message})
}

// errResult converts a service error into an error payload with a stable
// code so callers can react without parsing the message.
func errResult(err error) *mcp.CallToolResult {
	return jsonResult(map[string]any{
		"success": false,
		"code":    errCode(err),
		"error":   err.Error(),
	})
}

func errCode(err error) string {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, apperr.ErrAlreadyExists):
		return "ALREADY_EXISTS"
	case errors.Is(err, apperr.ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, apperr.ErrSync):
		return "SYNC_ERROR"
	default:
		return "STORAGE_ERROR"
	}
}
