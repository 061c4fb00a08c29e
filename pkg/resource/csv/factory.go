package csv

import (
	"fmt"

	"github.com/kasuganosora/sheetmerge/pkg/resource/domain"
)

// CSVFactory CSV 数据源工厂
type CSVFactory struct{}

// NewCSVFactory 创建 CSV 数据源工厂
func NewCSVFactory() *CSVFactory {
	return &CSVFactory{}
}

// GetType 实现DataSourceFactory接口
func (f *CSVFactory) GetType() domain.DataSourceType {
	return domain.DataSourceTypeCSV
}

// Extensions 实现DataSourceFactory接口
func (f *CSVFactory) Extensions() []string {
	return []string{".csv", ".tsv"}
}

// Create 实现DataSourceFactory接口
func (f *CSVFactory) Create(config *domain.DataSourceConfig) (domain.DataSource, error) {
	if config == nil {
		return nil, fmt.Errorf("csv factory: config cannot be nil")
	}
	filePath := config.StringOption("path", config.Path)
	if filePath == "" {
		return nil, fmt.Errorf("csv factory: file path required (set config.Path or options[\"path\"])")
	}
	if _, err := lookupCharset(config.StringOption("charset", "")); err != nil {
		return nil, domain.NewErrInvalidConfig("charset", err.Error())
	}
	return NewCSVAdapter(config, filePath), nil
}
