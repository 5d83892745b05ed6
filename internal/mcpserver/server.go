// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes portfolio tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/chrisjgf/portfolio/internal/api"
	"github.com/chrisjgf/portfolio/internal/apperr"
)

// Server wraps the MCP server with portfolio tools. The tools are read and
// refresh only: unlocking happens over the HTTP API, so no password ever
// crosses the MCP transport.
type Server struct {
	mcp *server.MCPServer
	svc *api.Service
}

// New creates a new MCP server with all portfolio tools registered.
func New(svc *api.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Portfolio",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("portfolio_status",
		mcp.WithDescription("Report whether the vault exists and whether a session is unlocked."),
	), s.status)

	s.mcp.AddTool(mcp.NewTool("get_valuation",
		mcp.WithDescription("Value every holding against the current price cache, flagging stale prices. "+
			"Requires an unlocked vault."),
	), s.valuation)

	s.mcp.AddTool(mcp.NewTool("refresh_prices",
		mcp.WithDescription("Fetch fresh prices for holdings whose cache entries expired and return the "+
			"updated valuation. Requires an unlocked vault."),
	), s.refreshPrices)

	s.mcp.AddTool(mcp.NewTool("create_snapshot",
		mcp.WithDescription("Record an immutable history snapshot of the current portfolio value, "+
			"totalled per category. Requires an unlocked vault."),
	), s.createSnapshot)

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

func (s *Server) status(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Status())
}

func (s *Server) valuation(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	valued, err := s.svc.Valuation()
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(valued)
}

func (s *Server) refreshPrices(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	valued, _, err := s.svc.RefreshPrices(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(valued)
}

func (s *Server) createSnapshot(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := s.svc.CreateSnapshot()
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(snap)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrLocked) {
		return mcp.NewToolResultError("vault is locked; unlock it via the HTTP API first")
	}
	return mcp.NewToolResultError(err.Error())
}
