package domain

import (
	"strconv"
	"strings"
)

// DataSourceType 数据源类型
type DataSourceType string

// String 返回数据源类型的字符串表示
func (t DataSourceType) String() string {
	return string(t)
}

const (
	// DataSourceTypeExcel Excel文件数据源
	DataSourceTypeExcel DataSourceType = "excel"
	// DataSourceTypeCSV CSV文件数据源
	DataSourceTypeCSV DataSourceType = "csv"
	// DataSourceTypeSQLite SQLite数据源
	DataSourceTypeSQLite DataSourceType = "sqlite"
	// DataSourceTypeMySQL MySQL数据源
	DataSourceTypeMySQL DataSourceType = "mysql"
	// DataSourceTypePostgreSQL PostgreSQL数据源
	DataSourceTypePostgreSQL DataSourceType = "postgresql"
)

// IsFile 是否为文件型数据源
func (t DataSourceType) IsFile() bool {
	switch t {
	case DataSourceTypeExcel, DataSourceTypeCSV, DataSourceTypeSQLite:
		return true
	}
	return false
}

// DataSourceConfig 数据源配置
type DataSourceConfig struct {
	Type    DataSourceType         `json:"type,omitempty" yaml:"type,omitempty"`
	Name    string                 `json:"name,omitempty" yaml:"name,omitempty"` // 来源标识，为空时取文件名
	Path    string                 `json:"path" yaml:"path"`                     // 文件路径；数据库数据源为 DSN
	Options map[string]interface{} `json:"options,omitempty" yaml:"options,omitempty"`
}

// StringOption 读取字符串选项
func (c *DataSourceConfig) StringOption(key, def string) string {
	if c.Options == nil {
		return def
	}
	if v, ok := c.Options[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

// BoolOption 读取布尔选项
func (c *DataSourceConfig) BoolOption(key string, def bool) bool {
	if c.Options == nil {
		return def
	}
	if v, ok := c.Options[key]; ok {
		switch b := v.(type) {
		case bool:
			return b
		case string:
			return strings.EqualFold(b, "true")
		}
	}
	return def
}

// IntOption 读取整数选项（JSON 解码得到的 float64 和字符串也可以）
func (c *DataSourceConfig) IntOption(key string, def int) int {
	if c.Options == nil {
		return def
	}
	switch n := c.Options[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return def
}

// TableInfo 表信息
type TableInfo struct {
	Name    string       `json:"name"`
	Columns []ColumnInfo `json:"columns"`
	Rows    int          `json:"rows"`
}

// ColumnInfo 列信息
type ColumnInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}
