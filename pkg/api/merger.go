package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kasuganosora/sheetmerge/pkg/config"
	"github.com/kasuganosora/sheetmerge/pkg/journal"
	"github.com/kasuganosora/sheetmerge/pkg/merge"
	"github.com/kasuganosora/sheetmerge/pkg/resource/application"
	"github.com/kasuganosora/sheetmerge/pkg/resource/domain"
)

// MergeRequest 一次合并请求
type MergeRequest struct {
	Primary *domain.DataSourceConfig
	Sources []*domain.DataSourceConfig
	// Output 输出位置，为空时只返回结果表不写出
	Output *domain.DataSourceConfig
	Config merge.Config
}

// MergeResult 合并结果
type MergeResult struct {
	RunID    string                `json:"run_id,omitempty"`
	Output   string                `json:"output,omitempty"`
	Table    *domain.Table         `json:"-"`
	Reports  []merge.StepReport    `json:"reports"`
	Skipped  []merge.SkippedSource `json:"-"`
	Duration time.Duration         `json:"duration"`
}

// TableDescription 表结构和预览
type TableDescription struct {
	Info    *domain.TableInfo `json:"info"`
	Preview string            `json:"preview"`
}

// MergerOptions Merger 选项
type MergerOptions struct {
	Loader  *application.Loader
	Logger  Logger
	Journal *journal.Journal
}

// Merger 读取来源、运行合并流水线、写出结果并记录运行历史
type Merger struct {
	mu      sync.Mutex
	loader  *application.Loader
	logger  Logger
	journal *journal.Journal
	owned   bool
}

// NewMerger 创建 Merger
func NewMerger(opts MergerOptions) *Merger {
	if opts.Loader == nil {
		opts.Loader = application.NewLoader(nil)
	}
	if opts.Logger == nil {
		opts.Logger = NewDefaultLogger(LogInfo)
	}
	return &Merger{
		loader:  opts.Loader,
		logger:  opts.Logger,
		journal: opts.Journal,
	}
}

// NewMergerFromConfig 按应用配置创建 Merger，启用运行记录时打开日志存储
func NewMergerFromConfig(cfg *config.Config) (*Merger, error) {
	level, err := ParseLogLevel(cfg.Log.Level)
	if err != nil {
		return nil, NewError(ErrCodeInvalidConfig, "invalid log level", err)
	}
	logger := NewDefaultLogger(level)

	m := NewMerger(MergerOptions{
		Loader: application.NewLoader(nil).SetConcurrency(cfg.Pool.LoadConcurrency),
		Logger: logger,
	})

	if cfg.Journal.Enabled() {
		j, err := journal.Open(journal.Options{
			Dir:      cfg.Journal.Dir,
			InMemory: cfg.Journal.InMemory,
			Logger:   badgerLogger{logger: logger},
		})
		if err != nil {
			return nil, WrapError(err, ErrCodeInternal, "failed to open run journal")
		}
		m.journal = j
		m.owned = true
	}
	return m, nil
}

// RequestFromConfig 由应用配置构造合并请求
func RequestFromConfig(cfg *config.Config) (*MergeRequest, error) {
	mcfg, err := cfg.MergeConfig()
	if err != nil {
		return nil, ClassifyError(err, "invalid merge configuration")
	}
	if cfg.Inputs.Primary.Path == "" && cfg.Inputs.Primary.Type == "" {
		return nil, NewError(ErrCodeInvalidConfig, "primary table is not configured", nil)
	}

	sources, err := cfg.SourceConfigs()
	if err != nil {
		return nil, WrapError(err, ErrCodeReadFailed, "failed to list sources")
	}

	primary := cfg.Inputs.Primary
	output := &domain.DataSourceConfig{Path: cfg.OutputPath()}
	if cfg.Output.SheetName != "" {
		output.Options = map[string]interface{}{"sheet_name": cfg.Output.SheetName}
	}

	return &MergeRequest{
		Primary: &primary,
		Sources: sources,
		Output:  output,
		Config:  mcfg,
	}, nil
}

// Logger 返回使用的日志
func (m *Merger) Logger() Logger {
	return m.logger
}

// Journal 返回运行日志，未启用时为 nil
func (m *Merger) Journal() *journal.Journal {
	return m.journal
}

// Close 关闭由 Merger 打开的运行日志
func (m *Merger) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.journal != nil && m.owned {
		err := m.journal.Close()
		m.journal = nil
		return err
	}
	return nil
}

// Merge 执行一次合并
func (m *Merger) Merge(ctx context.Context, req *MergeRequest) (*MergeResult, error) {
	if req == nil || req.Primary == nil {
		return nil, NewError(ErrCodeInvalidConfig, "primary table is not configured", nil)
	}
	if err := req.Config.Validate(); err != nil {
		return nil, ClassifyError(err, "invalid merge configuration")
	}

	run := &journal.Run{
		StartedAt: time.Now().UTC(),
		Primary:   describeSource(req.Primary),
		Settings:  settingsOf(req.Config),
	}
	for _, s := range req.Sources {
		run.Sources = append(run.Sources, describeSource(s))
	}

	result, err := m.merge(ctx, req, run)
	run.FinishedAt = time.Now().UTC()
	if err != nil {
		run.Status = journal.StatusFailed
		run.Error = err.Error()
		m.logger.Error("merge failed: %v", err)
	} else {
		run.Status = journal.StatusOK
		result.Duration = run.Duration()
	}

	if id := m.record(run); result != nil {
		result.RunID = id
	}

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (m *Merger) merge(ctx context.Context, req *MergeRequest, run *journal.Run) (*MergeResult, error) {
	m.logger.Info("loading primary %s", describeSource(req.Primary))
	primary, err := m.loader.Load(ctx, req.Primary)
	if err != nil {
		return nil, ClassifyError(err, fmt.Sprintf("failed to load primary %s", application.SourceName(req.Primary)))
	}

	m.logger.Info("loading %d sources", len(req.Sources))
	sources, err := m.loader.LoadSources(ctx, req.Sources)
	if err != nil {
		return nil, ClassifyError(err, "failed to load sources")
	}

	pipeline, err := merge.NewPipeline(req.Config)
	if err != nil {
		return nil, ClassifyError(err, "invalid merge configuration")
	}
	pipeline.OnStep(m.logStep)

	res, err := pipeline.Run(ctx, primary, sources)
	if err != nil {
		return nil, ClassifyError(err, "merge aborted")
	}

	run.Rows = res.Table.NumRows()
	run.Columns = res.Table.NumColumns()
	run.Reports = res.Reports
	for _, s := range res.Skipped {
		run.Skipped = append(run.Skipped, journal.Skipped{Source: s.Source, Error: s.Err.Error()})
	}

	out := &MergeResult{
		Table:   res.Table,
		Reports: res.Reports,
		Skipped: res.Skipped,
	}

	if req.Output != nil {
		target := writableConfig(req.Output)
		ds, err := m.loader.Open(target)
		if err != nil {
			return nil, ClassifyError(err, "failed to open output")
		}
		if err := ds.Write(ctx, res.Table); err != nil {
			return nil, ClassifyError(err, fmt.Sprintf("failed to write %s", target.Path))
		}
		out.Output = target.Path
		run.Output = target.Path
		m.logger.Info("wrote %d rows x %d columns to %s", run.Rows, run.Columns, target.Path)
	}

	return out, nil
}

// logStep 记录每个来源的处理结果
func (m *Merger) logStep(report merge.StepReport, err error) {
	if err != nil {
		m.logger.Error("source %s failed: %v", report.Source, err)
		return
	}
	m.logger.Info("source %s: %d rows, %d matched, %d unmatched",
		report.Source, report.Rows, report.Matched, report.Unmatched)
	if report.DuplicateKeys > 0 {
		m.logger.Warn("source %s: %d duplicate keys ignored (first occurrence wins)", report.Source, report.DuplicateKeys)
	}
}

// record 写入运行记录，失败只记日志
func (m *Merger) record(run *journal.Run) string {
	m.mu.Lock()
	j := m.journal
	m.mu.Unlock()
	if j == nil {
		return ""
	}

	id, err := j.Record(context.Background(), run)
	if err != nil {
		m.logger.Warn("failed to record run: %v", err)
		return ""
	}
	m.logger.Debug("recorded run %s", id)
	return id
}

// Describe 读取表并返回推断的结构和前 limit 行预览
func (m *Merger) Describe(ctx context.Context, cfg *domain.DataSourceConfig, limit int) (*TableDescription, error) {
	table, err := m.loader.Load(ctx, cfg)
	if err != nil {
		return nil, ClassifyError(err, fmt.Sprintf("failed to load %s", application.SourceName(cfg)))
	}
	return &TableDescription{
		Info:    table.Info(),
		Preview: table.Preview(limit),
	}, nil
}

// History 按时间倒序返回运行记录
func (m *Merger) History(ctx context.Context, limit int) ([]*journal.Run, error) {
	if m.journal == nil {
		return nil, NewError(ErrCodeInvalidConfig, "run journal is not enabled", nil)
	}
	runs, err := m.journal.List(ctx, limit)
	if err != nil {
		return nil, ClassifyError(err, "failed to list runs")
	}
	return runs, nil
}

// GetRun 读取一条运行记录
func (m *Merger) GetRun(ctx context.Context, id string) (*journal.Run, error) {
	if m.journal == nil {
		return nil, NewError(ErrCodeInvalidConfig, "run journal is not enabled", nil)
	}
	run, err := m.journal.Get(ctx, id)
	if err != nil {
		return nil, ClassifyError(err, fmt.Sprintf("run %s", id))
	}
	return run, nil
}

func writableConfig(c *domain.DataSourceConfig) *domain.DataSourceConfig {
	out := *c
	out.Options = make(map[string]interface{}, len(c.Options)+1)
	for k, v := range c.Options {
		out.Options[k] = v
	}
	out.Options["writable"] = true
	return &out
}

func describeSource(c *domain.DataSourceConfig) string {
	if c.Path != "" && (c.Type == "" || c.Type.IsFile()) {
		return c.Path
	}
	return string(c.Type) + ":" + application.SourceName(c)
}

func settingsOf(c merge.Config) journal.Settings {
	s := journal.Settings{
		MainKey:      c.MainKey,
		SecondaryKey: c.SecondaryKey,
		ValueColumn:  c.ValueColumn,
		OnError:      string(c.OnError),
	}
	if c.Policy != nil {
		s.Policy = c.Policy.Name()
	}
	if s.OnError == "" {
		s.OnError = string(merge.OnErrorAbort)
	}
	return s
}
