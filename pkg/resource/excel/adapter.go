package excel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kasuganosora/sheetmerge/pkg/resource/domain"
)

const defaultSheet = "Sheet1"

// ExcelAdapter Excel 文件数据源适配器
// 读取一个工作表为 Table；写入时重建整个文件
type ExcelAdapter struct {
	config    *domain.DataSourceConfig
	filePath  string
	sheetName string
	writable  bool
}

// NewExcelAdapter 创建 Excel 数据源适配器
func NewExcelAdapter(config *domain.DataSourceConfig, filePath string) *ExcelAdapter {
	return &ExcelAdapter{
		config:    config,
		filePath:  filePath,
		sheetName: config.StringOption("sheet_name", ""),
		writable:  config.BoolOption("writable", false), // Excel 默认只读
	}
}

// GetConfig 获取数据源配置
func (a *ExcelAdapter) GetConfig() *domain.DataSourceConfig {
	return a.config
}

// IsWritable 检查是否可写
func (a *ExcelAdapter) IsWritable() bool {
	return a.writable
}

// Read 读取工作表，第一行为列头
func (a *ExcelAdapter) Read(ctx context.Context) (*domain.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := excelize.OpenFile(a.filePath)
	if err != nil {
		return nil, domain.NewErrReadFailed(a.filePath, err)
	}
	defer file.Close()

	sheet, err := a.resolveSheet(file)
	if err != nil {
		return nil, domain.NewErrReadFailed(a.filePath, err)
	}

	rows, err := file.GetRows(sheet)
	if err != nil {
		return nil, domain.NewErrReadFailed(a.filePath, fmt.Errorf("failed to read excel rows: %w", err))
	}
	if len(rows) == 0 {
		return nil, domain.NewErrReadFailed(a.filePath, fmt.Errorf("sheet is empty: %s", sheet))
	}

	table, err := domain.ParseTable(a.tableName(sheet), rows[0], rows[1:])
	if err != nil {
		return nil, domain.NewErrReadFailed(a.filePath, err)
	}
	return table, nil
}

// resolveSheet 确定使用的工作表：指定的工作表或第一个工作表
func (a *ExcelAdapter) resolveSheet(file *excelize.File) (string, error) {
	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("no sheets found in excel file")
	}
	if a.sheetName == "" {
		return sheets[0], nil
	}
	for _, s := range sheets {
		if s == a.sheetName {
			return s, nil
		}
	}
	return "", fmt.Errorf("sheet not found: %s", a.sheetName)
}

func (a *ExcelAdapter) tableName(sheet string) string {
	if a.config.Name != "" {
		return a.config.Name
	}
	if name := strings.TrimSuffix(filepath.Base(a.filePath), filepath.Ext(a.filePath)); name != "" {
		return name
	}
	return sheet
}

// Write 将表写入新的 Excel 文件（覆盖已有文件）
func (a *ExcelAdapter) Write(ctx context.Context, table *domain.Table) error {
	if !a.writable {
		return domain.NewErrReadOnly("excel", "write")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := a.writeFile(table); err != nil {
		return domain.NewErrWriteFailed(a.filePath, err)
	}
	return nil
}

func (a *ExcelAdapter) writeFile(table *domain.Table) error {
	file := excelize.NewFile()
	defer file.Close()

	sheet := sheetName(a.sheetName)
	if sheet != defaultSheet {
		if err := file.SetSheetName(defaultSheet, sheet); err != nil {
			return err
		}
	}

	sw, err := file.NewStreamWriter(sheet)
	if err != nil {
		return err
	}

	columns := table.Columns()
	header := make([]interface{}, len(columns))
	for j, c := range columns {
		header[j] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i := 0; i < table.NumRows(); i++ {
		row := table.Row(i)
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v.Interface()
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2) // 跳过 header 行
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return err
		}
	}

	if err := sw.Flush(); err != nil {
		return err
	}

	if dir := filepath.Dir(a.filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return file.SaveAs(a.filePath)
}

// sheetName 返回合法的工作表名，非法时使用默认名
func sheetName(name string) string {
	if name == "" || len([]rune(name)) > 31 || strings.ContainsAny(name, `[]:*?/\`) {
		return defaultSheet
	}
	return name
}
