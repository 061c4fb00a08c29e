package mcp

import (
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/kasuganosora/sheetmerge/pkg/api"
	"github.com/kasuganosora/sheetmerge/pkg/config"
)

// Server is the MCP protocol server exposing the merge tools
type Server struct {
	cfg    *config.Config
	deps   *ToolDeps
	mcpSrv *mcpserver.MCPServer
}

// NewServer creates a new MCP server and registers its tools.
// cfg supplies the defaults for arguments a tool call leaves out.
func NewServer(merger *api.Merger, cfg *config.Config, version string) *Server {
	deps := &ToolDeps{
		Merger:   merger,
		Defaults: cfg,
	}

	mcpSrv := mcpserver.NewMCPServer(
		"sheetmerge",
		version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)

	mergeTool := mcp.NewTool("merge_tables",
		mcp.WithDescription("Left-join a primary table with secondary tables in order and add one encoded column per secondary table, named after the source file."),
		mcp.WithString("primary", mcp.Description("Path of the primary table (xlsx, csv, sqlite)"), mcp.Required()),
		mcp.WithArray("sources", mcp.Description("Paths of the secondary tables, merged in the given order"), mcp.WithStringItems()),
		mcp.WithString("source_dir", mcp.Description("Directory whose matching files are merged after the listed sources")),
		mcp.WithString("source_pattern", mcp.Description("Glob used with source_dir (default *.xlsx)")),
		mcp.WithString("main_key_column", mcp.Description("Key column of the primary table")),
		mcp.WithString("secondary_key_column", mcp.Description("Key column of the secondary tables (defaults to main_key_column)")),
		mcp.WithString("value_column", mcp.Description("Column of the secondary tables to encode")),
		mcp.WithString("policy", mcp.Description("Encoding policy"), mcp.Enum(config.PolicyMarker, config.PolicySubstitution)),
		mcp.WithString("find_list", mcp.Description("Comma separated values to find (substitution policy)")),
		mcp.WithString("replace_list", mcp.Description("Comma separated replacements (substitution policy)")),
		mcp.WithString("on_error", mcp.Description("What to do when a source fails"), mcp.Enum("abort", "skip")),
		mcp.WithBoolean("allow_overwrite", mcp.Description("Replace a column derived earlier with the same name")),
		mcp.WithString("output", mcp.Description("Output path (default: next to the primary with the configured suffix)")),
		mcp.WithBoolean("dry_run", mcp.Description("Merge without writing the output file")),
	)

	describeTableTool := mcp.NewTool("describe_table",
		mcp.WithDescription("Read a table and show its columns, inferred types and the first rows"),
		mcp.WithString("path", mcp.Description("Path of the table file, or DSN for mysql/postgresql"), mcp.Required()),
		mcp.WithString("type", mcp.Description("Data source type (inferred from the extension when empty)")),
		mcp.WithString("sheet_name", mcp.Description("Worksheet to read (xlsx)")),
		mcp.WithString("table", mcp.Description("Table to read (sqlite, mysql, postgresql)")),
		mcp.WithNumber("limit", mcp.Description("Number of rows to preview"), mcp.DefaultNumber(10)),
	)

	listRunsTool := mcp.NewTool("list_runs",
		mcp.WithDescription("List previous merge runs, newest first"),
		mcp.WithNumber("limit", mcp.Description("Maximum number of runs"), mcp.DefaultNumber(20)),
	)

	mcpSrv.AddTool(mergeTool, deps.HandleMergeTables)
	mcpSrv.AddTool(describeTableTool, deps.HandleDescribeTable)
	mcpSrv.AddTool(listRunsTool, deps.HandleListRuns)

	return &Server{
		cfg:    cfg,
		deps:   deps,
		mcpSrv: mcpSrv,
	}
}

// MCPServer returns the underlying mcp-go server
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpSrv
}

// Start starts the MCP server over streamable HTTP (blocking)
func (s *Server) Start() error {
	addr := s.cfg.GetListenAddress()

	httpServer := mcpserver.NewStreamableHTTPServer(
		s.mcpSrv,
		mcpserver.WithEndpointPath(s.cfg.MCP.Endpoint),
	)

	log.Printf("[MCP] 启动 MCP 服务器: %s%s", addr, s.cfg.MCP.Endpoint)
	return httpServer.Start(addr)
}

// ServeStdio serves the MCP protocol on stdin/stdout (blocking)
func (s *Server) ServeStdio() error {
	return mcpserver.ServeStdio(s.mcpSrv)
}
