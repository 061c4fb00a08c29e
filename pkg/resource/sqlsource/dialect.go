// Package sqlsource reads and writes tables through database/sql.
package sqlsource

import (
	"fmt"
	"strconv"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/kasuganosora/sheetmerge/pkg/resource/domain"
)

// Dialect encapsulates database-engine-specific behavior.
type Dialect interface {
	// DriverName returns the database/sql driver name
	DriverName() string

	// BuildDSN constructs the driver-specific connection string
	BuildDSN(cfg *domain.DataSourceConfig) (string, error)

	// QuoteIdentifier wraps a table/column name in dialect-specific quoting
	QuoteIdentifier(name string) string

	// Placeholder returns the parameter placeholder for the n-th parameter (1-based)
	Placeholder(n int) string

	// ColumnKind maps a database column type name to a cell kind
	ColumnKind(dbTypeName string) domain.ValueKind

	// ColumnType returns the column type used when creating a table for kind
	ColumnType(kind domain.ValueKind) string
}

// dsnOption returns the explicit DSN: options["dsn"] or, for network databases, config.Path.
func dsnOption(cfg *domain.DataSourceConfig) string {
	return cfg.StringOption("dsn", cfg.Path)
}

// commonKind maps the type names shared by all engines.
func commonKind(dbTypeName string) domain.ValueKind {
	t := strings.ToUpper(dbTypeName)
	switch {
	case strings.Contains(t, "INT"):
		return domain.KindInt
	case strings.Contains(t, "BOOL"):
		return domain.KindBool
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"),
		strings.Contains(t, "NUMERIC"), strings.Contains(t, "DECIMAL"):
		return domain.KindFloat
	}
	return domain.KindText
}

// ==================== SQLite ====================

// SQLiteDialect implements Dialect for SQLite (modernc.org/sqlite).
type SQLiteDialect struct{}

func (d *SQLiteDialect) DriverName() string { return "sqlite" }

func (d *SQLiteDialect) BuildDSN(cfg *domain.DataSourceConfig) (string, error) {
	dsn := dsnOption(cfg)
	if dsn == "" {
		return "", domain.NewErrInvalidConfig("path", "sqlite database file required")
	}
	return dsn, nil
}

func (d *SQLiteDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d *SQLiteDialect) Placeholder(n int) string { return "?" }

func (d *SQLiteDialect) ColumnKind(dbTypeName string) domain.ValueKind {
	return commonKind(dbTypeName)
}

func (d *SQLiteDialect) ColumnType(kind domain.ValueKind) string {
	switch kind {
	case domain.KindInt, domain.KindBool:
		return "INTEGER"
	case domain.KindFloat:
		return "REAL"
	}
	return "TEXT"
}

// ==================== MySQL ====================

// MySQLDialect implements Dialect for MySQL.
type MySQLDialect struct{}

func (d *MySQLDialect) DriverName() string { return "mysql" }

// BuildDSN 使用 options.dsn，或由 host/port/user/password/database 组装
func (d *MySQLDialect) BuildDSN(cfg *domain.DataSourceConfig) (string, error) {
	if dsn := dsnOption(cfg); dsn != "" {
		parsed, err := mysqldriver.ParseDSN(dsn)
		if err != nil {
			return "", domain.NewErrInvalidConfig("dsn", err.Error())
		}
		return parsed.FormatDSN(), nil
	}

	host := cfg.StringOption("host", "")
	if host == "" {
		return "", domain.NewErrInvalidConfig("host", "mysql host or dsn required")
	}

	c := mysqldriver.NewConfig()
	c.User = cfg.StringOption("user", "")
	c.Passwd = cfg.StringOption("password", "")
	c.Net = "tcp"
	c.Addr = fmt.Sprintf("%s:%d", host, cfg.IntOption("port", 3306))
	c.DBName = cfg.StringOption("database", "")
	c.AllowNativePasswords = true
	c.Params = map[string]string{
		"charset": cfg.StringOption("charset", "utf8mb4"),
	}
	return c.FormatDSN(), nil
}

func (d *MySQLDialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (d *MySQLDialect) Placeholder(n int) string { return "?" }

func (d *MySQLDialect) ColumnKind(dbTypeName string) domain.ValueKind {
	if strings.EqualFold(dbTypeName, "BIT") {
		return domain.KindBool
	}
	return commonKind(dbTypeName)
}

func (d *MySQLDialect) ColumnType(kind domain.ValueKind) string {
	switch kind {
	case domain.KindInt:
		return "BIGINT"
	case domain.KindFloat:
		return "DOUBLE"
	case domain.KindBool:
		return "BOOLEAN"
	}
	return "TEXT"
}

// ==================== PostgreSQL ====================

// PostgreSQLDialect implements Dialect for PostgreSQL.
type PostgreSQLDialect struct{}

func (d *PostgreSQLDialect) DriverName() string { return "postgres" }

// BuildDSN 使用 options.dsn，或由 host/port/user/password/database/sslmode 组装
func (d *PostgreSQLDialect) BuildDSN(cfg *domain.DataSourceConfig) (string, error) {
	if dsn := dsnOption(cfg); dsn != "" {
		return dsn, nil
	}

	host := cfg.StringOption("host", "")
	if host == "" {
		return "", domain.NewErrInvalidConfig("host", "postgresql host or dsn required")
	}

	parts := []string{
		fmt.Sprintf("host=%s", host),
		fmt.Sprintf("port=%d", cfg.IntOption("port", 5432)),
		fmt.Sprintf("user=%s", cfg.StringOption("user", "")),
		fmt.Sprintf("password=%s", cfg.StringOption("password", "")),
		fmt.Sprintf("dbname=%s", cfg.StringOption("database", "")),
		fmt.Sprintf("sslmode=%s", cfg.StringOption("sslmode", "disable")),
	}
	if schema := cfg.StringOption("schema", ""); schema != "" {
		parts = append(parts, fmt.Sprintf("search_path=%s", schema))
	}
	return strings.Join(parts, " "), nil
}

func (d *PostgreSQLDialect) QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

func (d *PostgreSQLDialect) Placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func (d *PostgreSQLDialect) ColumnKind(dbTypeName string) domain.ValueKind {
	return commonKind(dbTypeName)
}

func (d *PostgreSQLDialect) ColumnType(kind domain.ValueKind) string {
	switch kind {
	case domain.KindInt:
		return "BIGINT"
	case domain.KindFloat:
		return "DOUBLE PRECISION"
	case domain.KindBool:
		return "BOOLEAN"
	}
	return "TEXT"
}
