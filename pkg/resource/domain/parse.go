package domain

import "fmt"

// InferSampleSize 推断列类型时采样的行数
const InferSampleSize = 100

// InferColumnKinds 采样前 InferSampleSize 行，为每列选择出现最多的类型
// 没有非空样本的列视为文本
func InferColumnKinds(ncols int, rows [][]string) []ValueKind {
	sample := len(rows)
	if sample > InferSampleSize {
		sample = InferSampleSize
	}

	counts := make([][KindText + 1]int, ncols)
	for i := 0; i < sample; i++ {
		for j, raw := range rows[i] {
			if j >= ncols {
				break
			}
			counts[j][DetectType(raw)]++
		}
	}

	kinds := make([]ValueKind, ncols)
	for j := range kinds {
		best, most := KindText, 0
		for _, k := range []ValueKind{KindInt, KindFloat, KindBool, KindText} {
			if counts[j][k] > most {
				best, most = k, counts[j][k]
			}
		}
		kinds[j] = best
	}
	return kinds
}

// NormalizeHeaders 补齐空列名（column_N），重复列名追加 .1、.2 ...
func NormalizeHeaders(headers []string) []string {
	out := make([]string, len(headers))
	used := make(map[string]bool, len(headers))
	for j, h := range headers {
		if h == "" {
			h = fmt.Sprintf("column_%d", j+1)
		}
		name := h
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("%s.%d", h, n)
		}
		used[name] = true
		out[j] = name
	}
	return out
}

// ParseTable 由文本单元格创建表：列类型按采样推断，短行以缺失值补齐
func ParseTable(name string, headers []string, rows [][]string) (*Table, error) {
	columns := NormalizeHeaders(headers)
	kinds := InferColumnKinds(len(columns), rows)

	data := make([][]Value, len(columns))
	for j := range columns {
		col := make([]Value, len(rows))
		for i, row := range rows {
			if j < len(row) {
				col[i] = ParseValueAs(row[j], kinds[j])
			}
		}
		data[j] = col
	}
	return NewTable(name, columns, data)
}
