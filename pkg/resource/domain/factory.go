package domain

// DataSourceFactory 数据源工厂接口
type DataSourceFactory interface {
	// Create 创建数据源
	Create(config *DataSourceConfig) (DataSource, error)

	// GetType 支持的数据源类型
	GetType() DataSourceType

	// Extensions 该类型处理的文件扩展名（小写，带点），非文件数据源返回 nil
	Extensions() []string
}
