package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kasuganosora/sheetmerge/pkg/api"
	"github.com/kasuganosora/sheetmerge/pkg/config"
	"github.com/kasuganosora/sheetmerge/pkg/resource/domain"
)

// previewRows rows of the merged table shown in the merge_tables result
const previewRows = 10

// ToolDeps holds shared dependencies for MCP tool handlers
type ToolDeps struct {
	Merger   *api.Merger
	Defaults *config.Config
}

// HandleMergeTables runs a merge with the call arguments layered over the defaults
func (d *ToolDeps) HandleMergeTables(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	primary := request.GetString("primary", "")
	if primary == "" {
		return mcp.NewToolResultError("primary parameter is required"), nil
	}

	cfg := d.requestConfig(request)
	cfg.Inputs.Primary = domain.DataSourceConfig{Path: primary}
	if err := cfg.Validate(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	req, err := api.RequestFromConfig(cfg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(req.Sources) == 0 {
		return mcp.NewToolResultError("no secondary tables: pass sources or source_dir"), nil
	}
	if request.GetBool("dry_run", false) {
		req.Output = nil
	}

	res, err := d.Merger.Merge(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("merge failed: %v", err)), nil
	}

	var sb strings.Builder
	if res.Output != "" {
		sb.WriteString(fmt.Sprintf("Merged %d sources into %s\n", len(res.Reports), res.Output))
	} else {
		sb.WriteString(fmt.Sprintf("Merged %d sources (dry run, nothing written)\n", len(res.Reports)))
	}
	if res.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run: %s\n", res.RunID))
	}
	sb.WriteString("\nSource\tMatched\tUnmatched\tDuplicate keys\n")
	for _, r := range res.Reports {
		sb.WriteString(fmt.Sprintf("%s\t%d\t%d\t%d\n", r.Source, r.Matched, r.Unmatched, r.DuplicateKeys))
	}
	for _, s := range res.Skipped {
		sb.WriteString(fmt.Sprintf("skipped %s: %v\n", s.Source, s.Err))
	}
	sb.WriteString("\n")
	sb.WriteString(res.Table.Preview(previewRows))

	return mcp.NewToolResultText(sb.String()), nil
}

// requestConfig copies the defaults and applies the merge arguments
func (d *ToolDeps) requestConfig(request mcp.CallToolRequest) *config.Config {
	cfg := config.DefaultConfig()
	if d.Defaults != nil {
		c := *d.Defaults
		cfg = &c
	}
	cfg.Inputs.Sources = nil

	for _, p := range request.GetStringSlice("sources", nil) {
		cfg.Inputs.Sources = append(cfg.Inputs.Sources, domain.DataSourceConfig{Path: p})
	}
	cfg.Inputs.SourceDir = request.GetString("source_dir", "")
	cfg.Inputs.SourcePattern = request.GetString("source_pattern", cfg.Inputs.SourcePattern)

	m := &cfg.Merge
	m.MainKeyColumn = request.GetString("main_key_column", m.MainKeyColumn)
	m.SecondaryKeyColumn = request.GetString("secondary_key_column", m.SecondaryKeyColumn)
	m.ValueColumn = request.GetString("value_column", m.ValueColumn)
	m.Policy = request.GetString("policy", m.Policy)
	find := request.GetString("find_list", "")
	replace := request.GetString("replace_list", "")
	if find != "" {
		m.FindList = find
	}
	if replace != "" {
		m.ReplaceList = replace
	}
	// 与命令行一致：给出查找/替换列表而未指定策略时使用替换策略
	if (find != "" || replace != "") && request.GetString("policy", "") == "" {
		m.Policy = config.PolicySubstitution
	}
	m.OnError = request.GetString("on_error", m.OnError)
	m.AllowOverwrite = request.GetBool("allow_overwrite", m.AllowOverwrite)

	cfg.Output.Path = request.GetString("output", "")
	return cfg
}

// HandleDescribeTable returns the inferred schema and a preview of a table
func (d *ToolDeps) HandleDescribeTable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := request.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("path parameter is required"), nil
	}

	source := &domain.DataSourceConfig{
		Type:    domain.DataSourceType(request.GetString("type", "")),
		Path:    path,
		Options: map[string]interface{}{},
	}
	if sheet := request.GetString("sheet_name", ""); sheet != "" {
		source.Options["sheet_name"] = sheet
	}
	if table := request.GetString("table", ""); table != "" {
		source.Options["table"] = table
	}
	if source.Type != "" && !source.Type.IsFile() {
		source.Options["dsn"] = path
	}

	desc, err := d.Merger.Describe(ctx, source, request.GetInt("limit", 10))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to describe table: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Table: %s (%d rows)\n\n", desc.Info.Name, desc.Info.Rows))
	sb.WriteString("Column\tType\tNullable\n")
	for _, c := range desc.Info.Columns {
		sb.WriteString(fmt.Sprintf("%s\t%s\t%t\n", c.Name, c.Type, c.Nullable))
	}
	sb.WriteString("\n")
	sb.WriteString(desc.Preview)

	return mcp.NewToolResultText(sb.String()), nil
}

// HandleListRuns lists previous merge runs
func (d *ToolDeps) HandleListRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runs, err := d.Merger.History(ctx, request.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list runs: %v", err)), nil
	}
	if len(runs) == 0 {
		return mcp.NewToolResultText("No runs recorded"), nil
	}

	var sb strings.Builder
	sb.WriteString("ID\tStarted\tStatus\tSources\tPrimary\tOutput\n")
	for _, r := range runs {
		sb.WriteString(fmt.Sprintf("%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Status, len(r.Sources), r.Primary, r.Output))
	}
	sb.WriteString(fmt.Sprintf("\n(%d runs)", len(runs)))
	return mcp.NewToolResultText(sb.String()), nil
}
