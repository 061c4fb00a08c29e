package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kasuganosora/sheetmerge/pkg/api"
	"github.com/kasuganosora/sheetmerge/pkg/config"
	"github.com/kasuganosora/sheetmerge/pkg/journal"
	"github.com/kasuganosora/sheetmerge/pkg/resource/domain"
	mcpserver "github.com/kasuganosora/sheetmerge/server/mcp"
)

// rootOptions 全局参数
type rootOptions struct {
	configFile string
	logLevel   string
	journalDir string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "sheetmerge",
		Short: "Merge periodic reports into a primary table",
		Long: `sheetmerge left-joins a primary table with secondary tables in order and
adds one column per secondary table, named after its file, holding an encoded
marker for each key (x = value 1, - = other value, ? = key not found).

Merge every monthly report in a directory:
  sheetmerge merge main.xlsx --source-dir reports/ --key Profile --value Value

Use a config file:
  sheetmerge merge --config sheetmerge.yaml`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file path (json or yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&opts.journalDir, "journal-dir", "", "directory of the run journal (enables run history)")

	rootCmd.AddCommand(
		newMergeCmd(opts),
		newInspectCmd(opts),
		newHistoryCmd(opts),
		newMCPCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "sheetmerge %s (built %s)\n", version, buildDate)
			},
		},
	)
	return rootCmd
}

// load 加载配置并应用全局参数
func (o *rootOptions) load() (*config.Config, error) {
	var cfg *config.Config
	if o.configFile != "" {
		config.LoadEnv()
		loaded, err := config.LoadConfig(o.configFile)
		if err != nil {
			return nil, err
		}
		loaded.ApplyEnv()
		cfg = loaded
	} else {
		cfg = config.LoadConfigOrDefault()
	}

	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.journalDir != "" {
		cfg.Journal.Dir = o.journalDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// signalContext 在收到中断信号时取消
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt)
}

// mergeOptions merge 命令参数
type mergeOptions struct {
	mainKey        string
	secondaryKey   string
	valueColumn    string
	sourceDir      string
	pattern        string
	policy         string
	findList       string
	replaceList    string
	lenientPairs   bool
	onError        string
	allowOverwrite bool
	output         string
	suffix         string
	format         string
	sheet          string
	parallelism    int
	dryRun         bool
	jsonOutput     bool
}

func newMergeCmd(root *rootOptions) *cobra.Command {
	opts := &mergeOptions{}

	cmd := &cobra.Command{
		Use:   "merge [primary] [sources...]",
		Short: "Merge secondary tables into the primary table",
		Long: `Merge secondary tables into the primary table in the given order.

Sources named on the command line come first, followed by the files matching
--pattern in --source-dir (sorted by name). The primary table itself and
duplicate paths are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(cmd, root, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.mainKey, "key", "k", "", "key column of the primary table")
	f.StringVar(&opts.secondaryKey, "secondary-key", "", "key column of the secondary tables (default: --key)")
	f.StringVarP(&opts.valueColumn, "value", "v", "", "value column of the secondary tables")
	f.StringVar(&opts.sourceDir, "source-dir", "", "directory with secondary tables")
	f.StringVar(&opts.pattern, "pattern", "", "glob for --source-dir (default *.xlsx)")
	f.StringVar(&opts.policy, "policy", "", "encoding policy: marker or substitution")
	f.StringVar(&opts.findList, "find", "", "comma separated values to find (substitution)")
	f.StringVar(&opts.replaceList, "replace", "", "comma separated replacements (substitution)")
	f.BoolVar(&opts.lenientPairs, "lenient-pairs", false, "pair find/replace values up to the shorter list instead of failing")
	f.StringVar(&opts.onError, "on-error", "", "abort or skip when a source fails")
	f.BoolVar(&opts.allowOverwrite, "allow-overwrite", false, "replace a column merged earlier under the same name")
	f.StringVarP(&opts.output, "output", "o", "", "output path (default: next to the primary)")
	f.StringVar(&opts.suffix, "suffix", "", "output file suffix (default _updated)")
	f.StringVar(&opts.format, "format", "", "output format: xlsx or csv (default: the primary's)")
	f.StringVar(&opts.sheet, "sheet", "", "sheet of the primary table to read (xlsx)")
	f.IntVar(&opts.parallelism, "parallelism", 0, "maximum parallelism when encoding large tables")
	f.BoolVar(&opts.dryRun, "dry-run", false, "merge without writing the output")
	f.BoolVar(&opts.jsonOutput, "json", false, "print the run summary as JSON")
	return cmd
}

// apply 用命令行参数覆盖配置，只处理显式给出的参数
func (o *mergeOptions) apply(cmd *cobra.Command, cfg *config.Config, args []string) {
	changed := cmd.Flags().Changed

	if len(args) > 0 {
		cfg.Inputs.Primary = domain.DataSourceConfig{Path: args[0]}
		if len(args) > 1 {
			cfg.Inputs.Sources = nil
			for _, p := range args[1:] {
				cfg.Inputs.Sources = append(cfg.Inputs.Sources, domain.DataSourceConfig{Path: p})
			}
		}
	}
	if changed("sheet") {
		if cfg.Inputs.Primary.Options == nil {
			cfg.Inputs.Primary.Options = map[string]interface{}{}
		}
		cfg.Inputs.Primary.Options["sheet_name"] = o.sheet
	}

	m := &cfg.Merge
	if changed("key") {
		m.MainKeyColumn = o.mainKey
	}
	if changed("secondary-key") {
		m.SecondaryKeyColumn = o.secondaryKey
	}
	if changed("value") {
		m.ValueColumn = o.valueColumn
	}
	if changed("policy") {
		m.Policy = o.policy
	}
	if changed("find") {
		m.FindList = o.findList
	}
	if changed("replace") {
		m.ReplaceList = o.replaceList
	}
	if changed("find") || changed("replace") {
		if !changed("policy") {
			m.Policy = config.PolicySubstitution
		}
	}
	if changed("lenient-pairs") {
		m.StrictPairs = !o.lenientPairs
	}
	if changed("on-error") {
		m.OnError = o.onError
	}
	if changed("allow-overwrite") {
		m.AllowOverwrite = o.allowOverwrite
	}

	if changed("source-dir") {
		cfg.Inputs.SourceDir = o.sourceDir
	}
	if changed("pattern") {
		cfg.Inputs.SourcePattern = o.pattern
	}
	if changed("output") {
		cfg.Output.Path = o.output
	}
	if changed("suffix") {
		cfg.Output.Suffix = o.suffix
	}
	if changed("format") {
		cfg.Output.Format = o.format
	}
	if changed("parallelism") {
		cfg.Pool.Parallelism = o.parallelism
	}
}

func runMerge(cmd *cobra.Command, root *rootOptions, opts *mergeOptions, args []string) error {
	cfg, err := root.load()
	if err != nil {
		return err
	}
	opts.apply(cmd, cfg, args)
	if err := cfg.Validate(); err != nil {
		return err
	}

	req, err := api.RequestFromConfig(cfg)
	if err != nil {
		return err
	}
	if len(req.Sources) == 0 {
		return fmt.Errorf("no secondary tables: pass them as arguments or use --source-dir")
	}
	if opts.dryRun {
		req.Output = nil
	}

	merger, err := api.NewMergerFromConfig(cfg)
	if err != nil {
		return err
	}
	defer merger.Close()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	res, err := merger.Merge(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.jsonOutput {
		return writeJSON(out, res)
	}
	printMergeSummary(out, res)
	return nil
}

func printMergeSummary(out io.Writer, res *api.MergeResult) {
	fmt.Fprintf(out, "%-24s %8s %8s %10s %10s\n", "SOURCE", "ROWS", "MATCHED", "UNMATCHED", "DUPLICATES")
	for _, r := range res.Reports {
		fmt.Fprintf(out, "%-24s %8d %8d %10d %10d\n", r.Source, r.Rows, r.Matched, r.Unmatched, r.DuplicateKeys)
	}
	for _, s := range res.Skipped {
		fmt.Fprintf(out, "skipped %s: %v\n", s.Source, s.Err)
	}

	if res.Output != "" {
		fmt.Fprintf(out, "\nwrote %s (%d rows, %d columns) in %s\n",
			res.Output, res.Table.NumRows(), res.Table.NumColumns(), res.Duration.Round(time.Millisecond))
	} else {
		fmt.Fprintf(out, "\ndry run: %d rows, %d columns, nothing written\n", res.Table.NumRows(), res.Table.NumColumns())
	}
	if res.RunID != "" {
		fmt.Fprintf(out, "run %s\n", res.RunID)
	}
}

func newInspectCmd(root *rootOptions) *cobra.Command {
	var (
		sheet string
		table string
		typ   string
		rows  int
	)

	cmd := &cobra.Command{
		Use:   "inspect <path>",
		Short: "Show the columns, inferred types and first rows of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			merger, err := api.NewMergerFromConfig(cfg)
			if err != nil {
				return err
			}
			defer merger.Close()

			source := &domain.DataSourceConfig{
				Type:    domain.DataSourceType(typ),
				Path:    args[0],
				Options: map[string]interface{}{},
			}
			if sheet != "" {
				source.Options["sheet_name"] = sheet
			}
			if table != "" {
				source.Options["table"] = table
			}

			desc, err := merger.Describe(cmd.Context(), source, rows)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Table: %s (%d rows)\n\n", desc.Info.Name, desc.Info.Rows)
			for _, c := range desc.Info.Columns {
				null := ""
				if c.Nullable {
					null = " (nullable)"
				}
				fmt.Fprintf(out, "  %-24s %s%s\n", c.Name, c.Type, null)
			}
			fmt.Fprintf(out, "\n%s\n", desc.Preview)
			return nil
		},
	}

	cmd.Flags().StringVar(&sheet, "sheet", "", "sheet name (xlsx)")
	cmd.Flags().StringVar(&table, "table", "", "table name (sqlite, mysql, postgresql)")
	cmd.Flags().StringVar(&typ, "type", "", "data source type (default: from the extension)")
	cmd.Flags().IntVarP(&rows, "rows", "n", 10, "number of rows to preview")
	return cmd
}

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List previous merge runs, or show one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if !cfg.Journal.Enabled() {
				return fmt.Errorf("run history is disabled: set --journal-dir or %s", config.EnvJournalDir)
			}
			merger, err := api.NewMergerFromConfig(cfg)
			if err != nil {
				return err
			}
			defer merger.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				run, err := merger.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(out, run)
				}
				printRun(out, run)
				return nil
			}

			runs, err := merger.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(out, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "no runs recorded")
				return nil
			}
			fmt.Fprintf(out, "%-36s  %-19s  %-6s  %7s  %s\n", "ID", "STARTED", "STATUS", "SOURCES", "PRIMARY")
			for _, r := range runs {
				fmt.Fprintf(out, "%-36s  %-19s  %-6s  %7d  %s\n",
					r.ID, r.StartedAt.Local().Format(time.DateTime), r.Status, len(r.Sources), r.Primary)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs (0 = all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print as JSON")
	return cmd
}

func printRun(out io.Writer, run *journal.Run) {
	fmt.Fprintf(out, "Run:      %s\n", run.ID)
	fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(out, "Duration: %s\n", run.Duration().Round(time.Millisecond))
	fmt.Fprintf(out, "Status:   %s\n", run.Status)
	if run.Error != "" {
		fmt.Fprintf(out, "Error:    %s\n", run.Error)
	}
	fmt.Fprintf(out, "Primary:  %s\n", run.Primary)
	fmt.Fprintf(out, "Sources:  %s\n", strings.Join(run.Sources, ", "))
	if run.Output != "" {
		fmt.Fprintf(out, "Output:   %s (%d rows, %d columns)\n", run.Output, run.Rows, run.Columns)
	}
	s := run.Settings
	fmt.Fprintf(out, "Settings: key=%s secondary_key=%s value=%s policy=%s on_error=%s\n",
		s.MainKey, s.SecondaryKey, s.ValueColumn, s.Policy, s.OnError)
	for _, r := range run.Reports {
		fmt.Fprintf(out, "  %s: %d matched, %d unmatched, %d duplicate keys\n", r.Source, r.Matched, r.Unmatched, r.DuplicateKeys)
	}
	for _, sk := range run.Skipped {
		fmt.Fprintf(out, "  %s: skipped (%s)\n", sk.Source, sk.Error)
	}
}

func newMCPCmd(root *rootOptions) *cobra.Command {
	var (
		stdio bool
		host  string
		port  int
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the merge tools over the Model Context Protocol",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.MCP.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.MCP.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			merger, err := api.NewMergerFromConfig(cfg)
			if err != nil {
				return err
			}
			defer merger.Close()

			srv := mcpserver.NewServer(merger, cfg, version)
			if stdio {
				return srv.ServeStdio()
			}
			return srv.Start()
		},
	}

	cmd.Flags().BoolVar(&stdio, "stdio", false, "serve on stdin/stdout instead of HTTP")
	cmd.Flags().StringVar(&host, "host", "", "listen host")
	cmd.Flags().IntVar(&port, "port", 0, "listen port")
	return cmd
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
