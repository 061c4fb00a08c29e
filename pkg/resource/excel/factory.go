package excel

import (
	"fmt"

	"github.com/kasuganosora/sheetmerge/pkg/resource/domain"
)

// ExcelFactory Excel 数据源工厂
type ExcelFactory struct{}

// NewExcelFactory 创建 Excel 数据源工厂
func NewExcelFactory() *ExcelFactory {
	return &ExcelFactory{}
}

// GetType 实现DataSourceFactory接口
func (f *ExcelFactory) GetType() domain.DataSourceType {
	return domain.DataSourceTypeExcel
}

// Extensions 实现DataSourceFactory接口
func (f *ExcelFactory) Extensions() []string {
	return []string{".xlsx", ".xlsm"}
}

// Create 实现DataSourceFactory接口
func (f *ExcelFactory) Create(config *domain.DataSourceConfig) (domain.DataSource, error) {
	if config == nil {
		return nil, fmt.Errorf("excel factory: config cannot be nil")
	}
	filePath := config.StringOption("path", config.Path)
	if filePath == "" {
		return nil, fmt.Errorf("excel factory: file path required (set config.Path or options[\"path\"])")
	}
	return NewExcelAdapter(config, filePath), nil
}
