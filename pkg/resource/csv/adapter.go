package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/kasuganosora/sheetmerge/pkg/resource/domain"
)

// CSVAdapter CSV文件数据源适配器
type CSVAdapter struct {
	config    *domain.DataSourceConfig
	filePath  string
	delimiter rune
	hasHeader bool
	writable  bool
	charset   string
}

// NewCSVAdapter 创建CSV数据源适配器
func NewCSVAdapter(config *domain.DataSourceConfig, filePath string) *CSVAdapter {
	delimiter := ','
	if strings.EqualFold(filepath.Ext(filePath), ".tsv") {
		delimiter = '\t'
	}
	switch d := config.StringOption("delimiter", ""); d {
	case "":
	case "tab", `\t`:
		delimiter = '\t'
	default:
		delimiter = []rune(d)[0]
	}

	return &CSVAdapter{
		config:    config,
		filePath:  filePath,
		delimiter: delimiter,
		hasHeader: config.BoolOption("header", true),
		writable:  config.BoolOption("writable", false),
		charset:   config.StringOption("charset", "utf-8"),
	}
}

// GetConfig 获取数据源配置
func (a *CSVAdapter) GetConfig() *domain.DataSourceConfig {
	return a.config
}

// IsWritable 检查是否可写
func (a *CSVAdapter) IsWritable() bool {
	return a.writable
}

// Read 读取CSV文件
func (a *CSVAdapter) Read(ctx context.Context) (*domain.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	enc, err := lookupCharset(a.charset)
	if err != nil {
		return nil, domain.NewErrInvalidConfig("charset", err.Error())
	}

	file, err := os.Open(a.filePath)
	if err != nil {
		return nil, domain.NewErrReadFailed(a.filePath, err)
	}
	defer file.Close()

	// BOMOverride 在文件带 BOM 时优先按 BOM 解码
	reader := csv.NewReader(transform.NewReader(file, unicode.BOMOverride(enc.NewDecoder())))
	reader.Comma = a.delimiter
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, domain.NewErrReadFailed(a.filePath, fmt.Errorf("failed to read CSV file: %w", err))
	}
	if len(records) == 0 {
		return nil, domain.NewErrReadFailed(a.filePath, fmt.Errorf("CSV file is empty"))
	}

	var headers []string
	dataRows := records
	if a.hasHeader {
		headers = records[0]
		dataRows = records[1:]
	} else {
		width := 0
		for _, r := range records {
			if len(r) > width {
				width = len(r)
			}
		}
		headers = make([]string, width) // column_N
	}

	table, err := domain.ParseTable(a.tableName(), headers, dataRows)
	if err != nil {
		return nil, domain.NewErrReadFailed(a.filePath, err)
	}
	return table, nil
}

func (a *CSVAdapter) tableName() string {
	if a.config.Name != "" {
		return a.config.Name
	}
	return strings.TrimSuffix(filepath.Base(a.filePath), filepath.Ext(a.filePath))
}

// Write 写入CSV文件（覆盖）。先写临时文件再重命名
func (a *CSVAdapter) Write(ctx context.Context, table *domain.Table) error {
	if !a.writable {
		return domain.NewErrReadOnly("csv", "write")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	enc, err := lookupCharset(a.charset)
	if err != nil {
		return domain.NewErrInvalidConfig("charset", err.Error())
	}

	if err := a.writeFile(table, enc); err != nil {
		return domain.NewErrWriteFailed(a.filePath, err)
	}
	return nil
}

func (a *CSVAdapter) writeFile(table *domain.Table, enc encoding.Encoding) error {
	dir := filepath.Dir(a.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".sheetmerge-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	encoder := transform.NewWriter(tmp, enc.NewEncoder())
	writer := csv.NewWriter(encoder)
	writer.Comma = a.delimiter

	if a.hasHeader {
		if err := writer.Write(table.Columns()); err != nil {
			tmp.Close()
			return err
		}
	}

	record := make([]string, table.NumColumns())
	for i := 0; i < table.NumRows(); i++ {
		for j, v := range table.Row(i) {
			record[j] = v.String()
		}
		if err := writer.Write(record); err != nil {
			tmp.Close()
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := encoder.Close(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), a.filePath)
}
