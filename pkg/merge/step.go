package merge

import (
	"context"

	"github.com/kasuganosora/sheetmerge/pkg/resource/domain"
	"github.com/kasuganosora/sheetmerge/pkg/workerpool"
)

const (
	joinSuffix    = "_right"
	indicatorName = "_matched"

	// minRowsPerTask 并行编码时每个任务至少处理的行数
	minRowsPerTask = 1024
)

// Source 一个次表及其来源标识
type Source struct {
	ID    string
	Table *domain.Table
}

// StepReport 单步合并统计
type StepReport struct {
	Source        string `json:"source"`
	Rows          int    `json:"rows"`
	Matched       int    `json:"matched"`
	Unmatched     int    `json:"unmatched"`
	DuplicateKeys int    `json:"duplicate_keys"`
}

// Step 把一个次表合并进 result，追加一列以 src.ID 命名的派生列
func Step(result *domain.Table, src Source, cfg Config) (*domain.Table, StepReport, error) {
	return StepContext(context.Background(), result, src, cfg)
}

// StepContext 同 Step，ctx 用于取消并行编码
//
// 结果与 result 行数、行序相同，只多出一列。
// 开启 AllowOverwrite 时，已存在的同名列（主键列除外）被原位替换。
func StepContext(ctx context.Context, result *domain.Table, src Source, cfg Config) (*domain.Table, StepReport, error) {
	report := StepReport{Source: src.ID, Rows: result.NumRows()}

	if err := checkStep(result, src, cfg); err != nil {
		return nil, report, err
	}

	right, rightKey, err := alignKeys(result, src.Table, cfg)
	if err != nil {
		return nil, report, err
	}

	indicator := uniqueName(indicatorName, result, right)
	joined, err := result.LeftJoin(right, cfg.MainKey, rightKey, domain.JoinOptions{
		Suffix:    joinSuffix,
		Indicator: indicator,
	})
	if err != nil {
		return nil, report, err
	}
	report.Matched = joined.Stats.Matched
	report.Unmatched = joined.Stats.Unmatched
	report.DuplicateKeys = joined.Stats.DuplicateKeys

	values, err := joined.Table.Column(joined.RightColumns[cfg.ValueColumn])
	if err != nil {
		return nil, report, err
	}
	flags, err := joined.Table.Column(indicator)
	if err != nil {
		return nil, report, err
	}

	encoded, err := encode(ctx, cfg, values, flags)
	if err != nil {
		return nil, report, err
	}

	var out *domain.Table
	if result.HasColumn(src.ID) {
		out, err = result.ReplaceColumn(src.ID, encoded)
	} else {
		out, err = result.WithColumn(src.ID, encoded)
	}
	if err != nil {
		return nil, report, err
	}
	return out, report, nil
}

func checkStep(result *domain.Table, src Source, cfg Config) error {
	if src.ID == "" {
		return &SchemaError{Source: src.ID, Column: src.ID, Reason: "empty source identifier"}
	}
	if src.Table == nil {
		return &KeyColumnMissing{Source: src.ID, Column: cfg.SecondaryKey}
	}
	if !result.HasColumn(cfg.MainKey) {
		return &KeyColumnMissing{Source: src.ID, Table: result.Name(), Column: cfg.MainKey}
	}
	for _, c := range []string{cfg.SecondaryKey, cfg.ValueColumn} {
		if !src.Table.HasColumn(c) {
			return &KeyColumnMissing{Source: src.ID, Table: src.Table.Name(), Column: c}
		}
	}
	if src.ID == cfg.MainKey {
		return &SchemaError{Source: src.ID, Column: src.ID, Reason: "collides with the key column"}
	}
	if result.HasColumn(src.ID) && !cfg.AllowOverwrite {
		return &SchemaError{Source: src.ID, Column: src.ID}
	}
	return nil
}

// alignKeys 次表只保留键列和值列，键列按主表键列的类型重新解析。
// 每个文件独立推断列类型，同一个编号可能在主表中是文本、在次表中是整数。
// 返回的表中键列名与值列名不同。
func alignKeys(result, src *domain.Table, cfg Config) (*domain.Table, string, error) {
	mainKeys, err := result.Column(cfg.MainKey)
	if err != nil {
		return nil, "", err
	}
	keys, err := src.Column(cfg.SecondaryKey)
	if err != nil {
		return nil, "", err
	}
	values, err := src.Column(cfg.ValueColumn)
	if err != nil {
		return nil, "", err
	}

	kind := domain.DominantKind(mainKeys)
	aligned := make([]domain.Value, len(keys))
	for i, k := range keys {
		if k.IsNull() || k.Kind() == kind {
			aligned[i] = k
			continue
		}
		aligned[i] = domain.ParseValueAs(k.String(), kind)
	}

	keyName := cfg.SecondaryKey
	if keyName == cfg.ValueColumn {
		keyName = uniqueName("_key", result, src)
	}
	right, err := domain.NewTable(src.Name(), []string{keyName, cfg.ValueColumn}, [][]domain.Value{aligned, values})
	if err != nil {
		return nil, "", err
	}
	return right, keyName, nil
}

// uniqueName 返回在所有表中都不存在的列名
// 右表列在连接时可能带后缀，加上前缀后不会与之冲突
func uniqueName(name string, tables ...*domain.Table) string {
	for {
		taken := false
		for _, t := range tables {
			if t.HasColumn(name) {
				taken = true
				break
			}
		}
		if !taken {
			return name
		}
		name = "_" + name
	}
}

// encode 逐行编码。各行互不依赖，行数足够多时按行区间并行
func encode(ctx context.Context, cfg Config, values, flags []domain.Value) ([]domain.Value, error) {
	out := make([]domain.Value, len(values))
	fn := func(ctx context.Context, task workerpool.ScanTask) error {
		for i := task.StartIndex; i < task.EndIndex; i++ {
			present, _ := flags[i].AsBool()
			out[i] = cfg.Policy.Encode(values[i], present)
		}
		return nil
	}

	size := cfg.Parallelism
	if len(values) < cfg.ParallelThreshold {
		size = 1
	}
	if err := workerpool.RunRanges(ctx, len(values), size, minRowsPerTask, fn); err != nil {
		return nil, err
	}
	return out, nil
}
