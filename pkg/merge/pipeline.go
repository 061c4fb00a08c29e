package merge

import (
	"context"

	"github.com/kasuganosora/sheetmerge/pkg/resource/domain"
)

// SkippedSource 在 skip 模式下被跳过的来源
type SkippedSource struct {
	Source string
	Err    error
}

// Result 流水线运行结果
type Result struct {
	Table   *domain.Table
	Reports []StepReport
	Skipped []SkippedSource
}

// StepHook 每个来源处理完成后调用，err 非空表示该来源失败
type StepHook func(report StepReport, err error)

// Pipeline 按顺序把多个次表依次合并进主表
type Pipeline struct {
	cfg  Config
	hook StepHook
}

// NewPipeline 创建流水线
func NewPipeline(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.OnError == "" {
		cfg.OnError = OnErrorAbort
	}
	return &Pipeline{cfg: cfg}, nil
}

// Config 返回流水线配置
func (p *Pipeline) Config() Config { return p.cfg }

// OnStep 设置步骤回调
func (p *Pipeline) OnStep(hook StepHook) *Pipeline {
	p.hook = hook
	return p
}

// Run 依次执行每个来源的合并
//
// abort 模式下第一个失败直接返回该错误，不返回任何表。
// skip 模式下失败的来源记入 Result.Skipped，继续处理后续来源。
// 同一来源标识出现两次时，除非 AllowOverwrite，否则为 SchemaError。
// 派生列名与主表原有列冲突时总是 SchemaError。
func (p *Pipeline) Run(ctx context.Context, primary *domain.Table, sources []Source) (*Result, error) {
	if !primary.HasColumn(p.cfg.MainKey) {
		return nil, &KeyColumnMissing{Table: primary.Name(), Column: p.cfg.MainKey}
	}

	res := &Result{Table: primary}
	derived := make(map[string]bool, len(sources))

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		table, report, err := p.step(ctx, res.Table, src, derived)
		if p.hook != nil {
			p.hook(report, err)
		}
		if err != nil {
			if p.cfg.OnError == OnErrorSkip {
				res.Skipped = append(res.Skipped, SkippedSource{Source: src.ID, Err: err})
				continue
			}
			return nil, err
		}

		derived[src.ID] = true
		res.Table = table
		res.Reports = append(res.Reports, report)
	}

	return res, nil
}

func (p *Pipeline) step(ctx context.Context, acc *domain.Table, src Source, derived map[string]bool) (*domain.Table, StepReport, error) {
	if acc.HasColumn(src.ID) {
		if !derived[src.ID] {
			return nil, StepReport{Source: src.ID}, &SchemaError{
				Source: src.ID,
				Column: src.ID,
				Reason: "collides with a column of the primary table",
			}
		}
		if !p.cfg.AllowOverwrite {
			return nil, StepReport{Source: src.ID}, &SchemaError{
				Source: src.ID,
				Column: src.ID,
				Reason: "source already merged",
			}
		}
	}
	return StepContext(ctx, acc, src, p.cfg)
}
