// Package mcp exposes lpfix fixes and components as Model Context Protocol
// tools over stdio.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/AverEE0/lpfix/internal/component"
	"github.com/AverEE0/lpfix/internal/fix"
	"github.com/AverEE0/lpfix/internal/preview"
)

// FixInfo is the list_fixes entry for one fix.
type FixInfo struct {
	fix.Metadata
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Server wraps an MCP server bound to one project root.
type Server struct {
	root   string
	opts   fix.Options
	server *server.MCPServer
}

// NewServer creates an MCP server that applies fixes under root.
func NewServer(root, version string, opts fix.Options) *Server {
	s := &Server{
		root: root,
		opts: opts,
	}

	mcpServer := server.NewMCPServer(
		"lpfix",
		version,
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)

	s.server = mcpServer
	return s
}

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(
		mcp.NewTool("list_fixes",
			mcp.WithDescription("List every maintenance fix with its target file and current status (pending, applied, drifted)."),
		),
		s.handleListFixes,
	)

	mcpServer.AddTool(
		mcp.NewTool("fix_status",
			mcp.WithDescription("Show the status of one fix against the project checkout."),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Fix name (e.g., 'fix-bitrix24', 'restore-rich-text-editor')"),
				mcp.Enum(fix.Names()...),
			),
		),
		s.handleFixStatus,
	)

	mcpServer.AddTool(
		mcp.NewTool("apply_fix",
			mcp.WithDescription("Apply one fix to the project checkout. With dry_run, return the unified diff instead of writing."),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Fix name (e.g., 'fix-csrf-middleware')"),
				mcp.Enum(fix.Names()...),
			),
			mcp.WithBoolean("dry_run",
				mcp.Description("Show the diff without writing (default: false)"),
			),
		),
		s.handleApplyFix,
	)

	mcpServer.AddTool(
		mcp.NewTool("show_component",
			mcp.WithDescription("Return the source of a stock UI component."),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Component file name: theme-toggle.tsx or notifications-bell.tsx"),
				mcp.Enum(component.Names()...),
			),
		),
		s.handleShowComponent,
	)
}

// handleListFixes handles the list_fixes tool.
func (s *Server) handleListFixes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reports := fix.Check(s.root)
	infos := make([]FixInfo, 0, len(reports))
	for _, r := range reports {
		info := FixInfo{Metadata: r.Fix, Status: string(r.Status)}
		if r.Err != nil {
			info.Status = "error"
			info.Error = r.Err.Error()
		}
		infos = append(infos, info)
	}

	jsonBytes, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal fixes failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// handleFixStatus handles the fix_status tool.
func (s *Server) handleFixStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("name parameter is required"), nil
	}

	f, err := fix.Lookup(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	change, err := f.Plan(s.root)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("check failed: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s: %s (%s)", name, change.Status, f.Metadata().Target)), nil
}

// handleApplyFix handles the apply_fix tool.
func (s *Server) handleApplyFix(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("name parameter is required"), nil
	}

	f, err := fix.Lookup(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := s.opts
	opts.DryRun = request.GetBool("dry_run", false)

	res, err := fix.Apply(ctx, f, s.root, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("apply failed: %v", err)), nil
	}

	if opts.DryRun && res.Change.Changed() {
		var buf bytes.Buffer
		if err := preview.Unified(&buf, f.Metadata().Target, res.Change.Exists, res.Change.Before, res.Change.After); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("diff failed: %v", err)), nil
		}
		return mcp.NewToolResultText(buf.String()), nil
	}

	return mcp.NewToolResultText(res.Message), nil
}

// handleShowComponent handles the show_component tool.
func (s *Server) handleShowComponent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "")
	src, ok := component.Lookup(name)
	if !ok {
		return mcp.NewToolResultError(component.Usage()), nil
	}
	return mcp.NewToolResultText(src), nil
}

// ServeStdio starts the MCP server on stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.server)
}
