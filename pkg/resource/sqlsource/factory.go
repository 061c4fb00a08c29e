package sqlsource

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver

	"github.com/kasuganosora/sheetmerge/pkg/resource/domain"
)

// SQLFactory SQL 数据源工厂，每种数据库一个实例
type SQLFactory struct {
	typ        domain.DataSourceType
	dialect    Dialect
	extensions []string
}

// NewSQLiteFactory 创建 SQLite 数据源工厂
func NewSQLiteFactory() *SQLFactory {
	return &SQLFactory{
		typ:        domain.DataSourceTypeSQLite,
		dialect:    &SQLiteDialect{},
		extensions: []string{".db", ".sqlite", ".sqlite3"},
	}
}

// NewMySQLFactory 创建 MySQL 数据源工厂
func NewMySQLFactory() *SQLFactory {
	return &SQLFactory{typ: domain.DataSourceTypeMySQL, dialect: &MySQLDialect{}}
}

// NewPostgreSQLFactory 创建 PostgreSQL 数据源工厂
func NewPostgreSQLFactory() *SQLFactory {
	return &SQLFactory{typ: domain.DataSourceTypePostgreSQL, dialect: &PostgreSQLDialect{}}
}

// GetType 实现DataSourceFactory接口
func (f *SQLFactory) GetType() domain.DataSourceType {
	return f.typ
}

// Extensions 实现DataSourceFactory接口
func (f *SQLFactory) Extensions() []string {
	return f.extensions
}

// Create 实现DataSourceFactory接口
func (f *SQLFactory) Create(config *domain.DataSourceConfig) (domain.DataSource, error) {
	if config == nil {
		return nil, fmt.Errorf("%s factory: config cannot be nil", f.typ)
	}
	return NewSQLSource(config, f.dialect)
}
