package csv

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/kasuganosora/sheetmerge/pkg/resource/domain"
)

// writeFile 创建测试文件
func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func newAdapter(path string, options map[string]interface{}) *CSVAdapter {
	return NewCSVAdapter(&domain.DataSourceConfig{
		Type:    domain.DataSourceTypeCSV,
		Path:    path,
		Options: options,
	}, path)
}

// TestNewCSVAdapter 测试选项解析
func TestNewCSVAdapter(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		options   map[string]interface{}
		delimiter rune
		header    bool
		writable  bool
	}{
		{"defaults", "a.csv", nil, ',', true, false},
		{"tsv extension", "a.tsv", nil, '\t', true, false},
		{"semicolon", "a.csv", map[string]interface{}{"delimiter": ";"}, ';', true, false},
		{"tab keyword", "a.csv", map[string]interface{}{"delimiter": "tab"}, '\t', true, false},
		{"no header", "a.csv", map[string]interface{}{"header": false}, ',', false, false},
		{"header as string", "a.csv", map[string]interface{}{"header": "false"}, ',', false, false},
		{"writable", "a.csv", map[string]interface{}{"writable": true}, ',', true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAdapter(tt.path, tt.options)
			assert.Equal(t, tt.delimiter, a.delimiter)
			assert.Equal(t, tt.header, a.hasHeader)
			assert.Equal(t, tt.writable, a.IsWritable())
		})
	}
}

// TestCSVAdapter_Read 测试读取
func TestCSVAdapter_Read(t *testing.T) {
	path := writeFile(t, "2024-02.csv", []byte("ID,Flag,Note\nA,1,first\nB,0\nC,,\"quoted, text\"\n"))

	table, err := newAdapter(path, nil).Read(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2024-02", table.Name())
	assert.Equal(t, []string{"ID", "Flag", "Note"}, table.Columns())
	assert.Equal(t, 3, table.NumRows())

	flags, _ := table.Column("Flag")
	assert.Equal(t, []domain.Value{domain.Int(1), domain.Int(0), domain.Null()}, flags)

	notes, _ := table.Column("Note")
	assert.Equal(t, []domain.Value{domain.Text("first"), domain.Null(), domain.Text("quoted, text")}, notes)
}

// TestCSVAdapter_ReadNoHeader 测试无表头文件
func TestCSVAdapter_ReadNoHeader(t *testing.T) {
	path := writeFile(t, "raw.csv", []byte("A,1\nB,2,extra\n"))

	table, err := newAdapter(path, map[string]interface{}{"header": false}).Read(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"column_1", "column_2", "column_3"}, table.Columns())
	assert.Equal(t, 2, table.NumRows())
}

// TestCSVAdapter_ReadCharsets 测试字符集解码
func TestCSVAdapter_ReadCharsets(t *testing.T) {
	gbk, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte("编号,状态\n甲,1\n"))
	require.NoError(t, err)

	utf16 := []byte{0xFF, 0xFE}
	for _, r := range "编号,状态\n甲,1\n" {
		utf16 = append(utf16, byte(r), byte(r>>8))
	}

	tests := []struct {
		name    string
		content []byte
		charset string
	}{
		{"gbk", gbk, "gbk"},
		{"utf-16 with bom", utf16, "utf-16"},
		{"utf-8 with bom", append([]byte{0xEF, 0xBB, 0xBF}, []byte("编号,状态\n甲,1\n")...), "utf-8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "data.csv", tt.content)

			table, err := newAdapter(path, map[string]interface{}{"charset": tt.charset}).Read(context.Background())
			require.NoError(t, err)

			assert.Equal(t, []string{"编号", "状态"}, table.Columns())
			v, _ := table.Cell(0, "编号")
			assert.Equal(t, domain.Text("甲"), v)
		})
	}
}

// TestCSVAdapter_ReadErrors 测试读取错误
func TestCSVAdapter_ReadErrors(t *testing.T) {
	_, err := newAdapter(filepath.Join(t.TempDir(), "missing.csv"), nil).Read(context.Background())
	var readErr *domain.ErrReadFailed
	assert.True(t, errors.As(err, &readErr))

	empty := writeFile(t, "empty.csv", nil)
	_, err = newAdapter(empty, nil).Read(context.Background())
	assert.True(t, errors.As(err, &readErr))

	_, err = newAdapter(empty, map[string]interface{}{"charset": "ebcdic"}).Read(context.Background())
	var cfgErr *domain.ErrInvalidConfig
	assert.True(t, errors.As(err, &cfgErr))
}

// TestCSVAdapter_WriteReadOnly 测试只读数据源写入
func TestCSVAdapter_WriteReadOnly(t *testing.T) {
	table := domain.MustNewTable("t", []string{"ID"}, [][]domain.Value{{domain.Text("A")}})

	err := newAdapter(filepath.Join(t.TempDir(), "out.csv"), nil).Write(context.Background(), table)
	var ro *domain.ErrReadOnly
	assert.True(t, errors.As(err, &ro))
}

func resultTable() *domain.Table {
	return domain.MustNewTable("main", []string{"ID", "Score", "2024-01"}, [][]domain.Value{
		{domain.Text("A"), domain.Text("B,C"), domain.Text("D")},
		{domain.Float(1.5), domain.Null(), domain.Float(3)},
		{domain.Text("x"), domain.Text("-"), domain.Text("?")},
	})
}

// TestCSVAdapter_Write 测试写入内容
func TestCSVAdapter_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "main_updated.csv")
	require.NoError(t, newAdapter(path, map[string]interface{}{"writable": true}).Write(context.Background(), resultTable()))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ID,Score,2024-01\nA,1.5,x\n\"B,C\",,-\nD,3,?\n", string(content))

	// 临时文件已清理
	entries, _ := os.ReadDir(filepath.Dir(path))
	assert.Len(t, entries, 1)
}

// TestCSVAdapter_WriteIsDeterministic 同一张表写两次，字节完全相同
func TestCSVAdapter_WriteIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.csv")
	second := filepath.Join(dir, "b.csv")

	opts := map[string]interface{}{"writable": true, "charset": "gb18030"}
	require.NoError(t, newAdapter(first, opts).Write(context.Background(), resultTable()))
	require.NoError(t, newAdapter(second, opts).Write(context.Background(), resultTable()))

	a, _ := os.ReadFile(first)
	b, _ := os.ReadFile(second)
	assert.True(t, bytes.Equal(a, b))
}

// TestCSVAdapter_WriteReadRoundTrip 测试写入后按相同选项读回
func TestCSVAdapter_WriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "round.tsv")
	opts := map[string]interface{}{"writable": true, "charset": "gbk"}

	table := domain.MustNewTable("round", []string{"编号", "值"}, [][]domain.Value{
		{domain.Text("甲"), domain.Text("乙")},
		{domain.Int(1), domain.Int(0)},
	})
	require.NoError(t, newAdapter(path, opts).Write(context.Background(), table))

	back, err := newAdapter(path, opts).Read(context.Background())
	require.NoError(t, err)
	assert.True(t, table.Equal(back))
}

// TestCSVFactory 测试工厂
func TestCSVFactory(t *testing.T) {
	f := NewCSVFactory()
	assert.Equal(t, domain.DataSourceTypeCSV, f.GetType())
	assert.Equal(t, []string{".csv", ".tsv"}, f.Extensions())

	_, err := f.Create(nil)
	assert.Error(t, err)

	_, err = f.Create(&domain.DataSourceConfig{Type: domain.DataSourceTypeCSV})
	assert.Error(t, err)

	_, err = f.Create(&domain.DataSourceConfig{Path: "a.csv", Options: map[string]interface{}{"charset": "klingon"}})
	assert.Error(t, err)

	ds, err := f.Create(&domain.DataSourceConfig{Path: "a.csv"})
	require.NoError(t, err)
	assert.Equal(t, "a.csv", ds.(*CSVAdapter).filePath)
}
