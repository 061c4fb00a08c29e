package domain

import "context"

// DataSource 表格数据源接口
type DataSource interface {
	// Read 读取整张表
	Read(ctx context.Context) (*Table, error)

	// Write 将表写入数据源（覆盖）
	Write(ctx context.Context, table *Table) error

	// IsWritable 检查是否可写
	IsWritable() bool

	// GetConfig 获取数据源配置
	GetConfig() *DataSourceConfig
}
