package domain

import "fmt"

// JoinOptions 左连接选项
type JoinOptions struct {
	// Suffix 右表列与左表列重名时追加的后缀，默认 "_right"
	Suffix string
	// Indicator 非空时追加一个布尔列，标记该行是否匹配到右表
	Indicator string
}

// JoinStats 左连接统计
type JoinStats struct {
	Matched       int
	Unmatched     int
	DuplicateKeys int // 右表中重复出现的键（只有第一次出现的行参与匹配）
}

// JoinResult 左连接结果
type JoinResult struct {
	Table *Table
	// RightColumns 右表列在结果中的名称，顺序与右表一致
	RightColumns map[string]string
	Stats        JoinStats
}

// LeftJoin 以 leftOn = rightOn 做左连接。
// 结果保留左表全部行及其顺序；右表键重复时只取第一次出现的行，因此行数不变。
// 缺失键不参与匹配，未匹配行的右表列为缺失值。
func (t *Table) LeftJoin(right *Table, leftOn, rightOn string, opts JoinOptions) (*JoinResult, error) {
	leftKeys, err := t.Column(leftOn)
	if err != nil {
		return nil, err
	}
	rightKeys, err := right.Column(rightOn)
	if err != nil {
		return nil, err
	}
	if opts.Suffix == "" {
		opts.Suffix = "_right"
	}

	// build
	firstRow := make(map[Value]int, len(rightKeys))
	duplicates := 0
	for i, k := range rightKeys {
		if k.IsNull() {
			continue
		}
		if _, seen := firstRow[k]; seen {
			duplicates++
			continue
		}
		firstRow[k] = i
	}

	// probe
	match := make([]int, len(leftKeys))
	matched := 0
	for i, k := range leftKeys {
		match[i] = -1
		if k.IsNull() {
			continue
		}
		if r, ok := firstRow[k]; ok {
			match[i] = r
			matched++
		}
	}

	out := t
	names := make(map[string]string, right.NumColumns())
	for _, rc := range right.columns {
		name := rc
		for out.HasColumn(name) {
			name += opts.Suffix
		}

		src, _ := right.Column(rc)
		col := make([]Value, len(match))
		for i, r := range match {
			if r >= 0 {
				col[i] = src[r]
			}
		}

		out, err = out.WithColumn(name, col)
		if err != nil {
			return nil, err
		}
		names[rc] = name
	}

	if opts.Indicator != "" {
		if out.HasColumn(opts.Indicator) {
			return nil, fmt.Errorf("left join: indicator column %s already exists", opts.Indicator)
		}
		flags := make([]Value, len(match))
		for i, r := range match {
			flags[i] = Bool(r >= 0)
		}
		if out, err = out.WithColumn(opts.Indicator, flags); err != nil {
			return nil, err
		}
	}

	return &JoinResult{
		Table:        out,
		RightColumns: names,
		Stats: JoinStats{
			Matched:       matched,
			Unmatched:     len(match) - matched,
			DuplicateKeys: duplicates,
		},
	}, nil
}
