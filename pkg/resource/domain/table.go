package domain

import (
	"fmt"
	"strings"
)

// Table 内存表（按列存储）
// Table 不可变：所有操作返回新表，列切片在构造后不再修改，可以在表之间共享
type Table struct {
	name    string
	columns []string
	index   map[string]int
	data    [][]Value
	rows    int
}

// NewTable 根据列名和列数据创建表，所有列长度必须一致
func NewTable(name string, columns []string, data [][]Value) (*Table, error) {
	if len(columns) != len(data) {
		return nil, fmt.Errorf("table %s: %d column names for %d columns", name, len(columns), len(data))
	}

	index := make(map[string]int, len(columns))
	rows := 0
	for i, col := range columns {
		if _, dup := index[col]; dup {
			return nil, NewErrColumnAlreadyExists(col, name)
		}
		index[col] = i
		if i == 0 {
			rows = len(data[i])
		} else if len(data[i]) != rows {
			return nil, fmt.Errorf("table %s: column %s has %d rows, expected %d", name, col, len(data[i]), rows)
		}
	}

	return &Table{
		name:    name,
		columns: append([]string(nil), columns...),
		index:   index,
		data:    append([][]Value(nil), data...),
		rows:    rows,
	}, nil
}

// NewTableFromRows 根据行数据创建表，短行以缺失值补齐，多余的单元格被丢弃
func NewTableFromRows(name string, columns []string, rows [][]Value) (*Table, error) {
	data := make([][]Value, len(columns))
	for j := range columns {
		col := make([]Value, len(rows))
		for i, row := range rows {
			if j < len(row) {
				col[i] = row[j]
			}
		}
		data[j] = col
	}
	return NewTable(name, columns, data)
}

// MustNewTable 创建表，失败时 panic（用于测试和常量表）
func MustNewTable(name string, columns []string, data [][]Value) *Table {
	t, err := NewTable(name, columns, data)
	if err != nil {
		panic(err)
	}
	return t
}

// Name 返回表名
func (t *Table) Name() string { return t.name }

// Columns 返回列名（副本）
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// NumColumns 返回列数
func (t *Table) NumColumns() int { return len(t.columns) }

// NumRows 返回行数
func (t *Table) NumRows() int { return t.rows }

// HasColumn 检查列是否存在
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column 返回列数据。返回的切片与表共享，调用方不得修改
func (t *Table) Column(name string) ([]Value, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, NewErrColumnNotFound(name, t.name)
	}
	return t.data[i], nil
}

// Cell 返回指定行列的值
func (t *Table) Cell(row int, column string) (Value, error) {
	col, err := t.Column(column)
	if err != nil {
		return Value{}, err
	}
	if row < 0 || row >= t.rows {
		return Value{}, fmt.Errorf("table %s: row %d out of range [0,%d)", t.name, row, t.rows)
	}
	return col[row], nil
}

// Row 返回一行数据（副本），顺序与 Columns 一致
func (t *Table) Row(row int) []Value {
	out := make([]Value, len(t.columns))
	for j := range t.columns {
		out[j] = t.data[j][row]
	}
	return out
}

// Info 推断表结构：每列取出现最多的非空类型
func (t *Table) Info() *TableInfo {
	cols := make([]ColumnInfo, len(t.columns))
	for j, name := range t.columns {
		nullable := false
		for _, v := range t.data[j] {
			if v.IsNull() {
				nullable = true
				break
			}
		}
		cols[j] = ColumnInfo{Name: name, Type: DominantKind(t.data[j]).String(), Nullable: nullable}
	}
	return &TableInfo{Name: t.name, Columns: cols, Rows: t.rows}
}

// DominantKind 返回出现最多的非空类型，全为空时为文本
func DominantKind(values []Value) ValueKind {
	var counts [KindText + 1]int
	for _, v := range values {
		if !v.IsNull() {
			counts[v.Kind()]++
		}
	}

	best, most := KindText, 0
	for _, k := range []ValueKind{KindInt, KindFloat, KindBool, KindText} {
		if counts[k] > most {
			best, most = k, counts[k]
		}
	}
	return best
}

// WithName 返回改名后的表
func (t *Table) WithName(name string) *Table {
	out := t.clone()
	out.name = name
	return out
}

// Select 选择列（按给定顺序）
func (t *Table) Select(columns ...string) (*Table, error) {
	data := make([][]Value, len(columns))
	for i, c := range columns {
		col, err := t.Column(c)
		if err != nil {
			return nil, err
		}
		data[i] = col
	}
	return NewTable(t.name, columns, data)
}

// WithColumn 追加一列，列名已存在时报错
func (t *Table) WithColumn(name string, values []Value) (*Table, error) {
	if t.HasColumn(name) {
		return nil, NewErrColumnAlreadyExists(name, t.name)
	}
	if len(t.columns) > 0 && len(values) != t.rows {
		return nil, fmt.Errorf("table %s: column %s has %d rows, expected %d", t.name, name, len(values), t.rows)
	}

	out := t.clone()
	out.columns = append(out.columns, name)
	out.data = append(out.data, values)
	out.index[name] = len(out.columns) - 1
	out.rows = len(values)
	return out, nil
}

// ReplaceColumn 用新数据替换已有列，列位置不变
func (t *Table) ReplaceColumn(name string, values []Value) (*Table, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, NewErrColumnNotFound(name, t.name)
	}
	if len(values) != t.rows {
		return nil, fmt.Errorf("table %s: column %s has %d rows, expected %d", t.name, name, len(values), t.rows)
	}

	out := t.clone()
	out.data[i] = values
	return out, nil
}

// Rename 重命名列
func (t *Table) Rename(from, to string) (*Table, error) {
	i, ok := t.index[from]
	if !ok {
		return nil, NewErrColumnNotFound(from, t.name)
	}
	if from == to {
		return t, nil
	}
	if t.HasColumn(to) {
		return nil, NewErrColumnAlreadyExists(to, t.name)
	}

	out := t.clone()
	out.columns[i] = to
	delete(out.index, from)
	out.index[to] = i
	return out, nil
}

// Drop 删除列，不存在的列报错
func (t *Table) Drop(columns ...string) (*Table, error) {
	drop := make(map[string]bool, len(columns))
	for _, c := range columns {
		if !t.HasColumn(c) {
			return nil, NewErrColumnNotFound(c, t.name)
		}
		drop[c] = true
	}

	names := make([]string, 0, len(t.columns)-len(drop))
	data := make([][]Value, 0, len(t.columns)-len(drop))
	for j, c := range t.columns {
		if drop[c] {
			continue
		}
		names = append(names, c)
		data = append(data, t.data[j])
	}

	out, err := NewTable(t.name, names, data)
	if err != nil {
		return nil, err
	}
	out.rows = t.rows
	return out, nil
}

// FillNull 将列中的缺失值替换为 fill
func (t *Table) FillNull(column string, fill Value) (*Table, error) {
	col, err := t.Column(column)
	if err != nil {
		return nil, err
	}

	filled := make([]Value, len(col))
	for i, v := range col {
		if v.IsNull() {
			filled[i] = fill
		} else {
			filled[i] = v
		}
	}
	return t.ReplaceColumn(column, filled)
}

// Equal 比较两个表的列名、顺序和所有单元格
func (t *Table) Equal(o *Table) bool {
	if t.rows != o.rows || len(t.columns) != len(o.columns) {
		return false
	}
	for j, c := range t.columns {
		if o.columns[j] != c {
			return false
		}
		for i := 0; i < t.rows; i++ {
			if !t.data[j][i].Equal(o.data[j][i]) {
				return false
			}
		}
	}
	return true
}

// Preview 以制表符分隔的文本输出表头和前 limit 行（limit<=0 输出全部）
func (t *Table) Preview(limit int) string {
	var sb strings.Builder
	sb.WriteString(strings.Join(t.columns, "\t"))
	sb.WriteString("\n")

	n := t.rows
	if limit > 0 && limit < n {
		n = limit
	}
	vals := make([]string, len(t.columns))
	for i := 0; i < n; i++ {
		for j := range t.columns {
			vals[j] = t.data[j][i].String()
		}
		sb.WriteString(strings.Join(vals, "\t"))
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("\n(%d rows)", t.rows))
	return sb.String()
}

func (t *Table) clone() *Table {
	index := make(map[string]int, len(t.index))
	for k, v := range t.index {
		index[k] = v
	}
	return &Table{
		name:    t.name,
		columns: append([]string(nil), t.columns...),
		index:   index,
		data:    append([][]Value(nil), t.data...),
		rows:    t.rows,
	}
}
