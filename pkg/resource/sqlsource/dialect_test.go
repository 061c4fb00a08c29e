package sqlsource

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/sheetmerge/pkg/resource/domain"
)

func TestMySQLDialect_BuildDSN(t *testing.T) {
	d := &MySQLDialect{}

	dsn, err := d.BuildDSN(&domain.DataSourceConfig{Options: map[string]interface{}{
		"host":     "db.local",
		"port":     3307,
		"user":     "report",
		"password": "secret",
		"database": "audit",
	}})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dsn, "report:secret@tcp(db.local:3307)/audit"), dsn)
	assert.Contains(t, dsn, "charset=utf8mb4")

	dsn, err = d.BuildDSN(&domain.DataSourceConfig{Options: map[string]interface{}{
		"dsn": "u:p@tcp(127.0.0.1:3306)/db",
	}})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dsn, "u:p@tcp(127.0.0.1:3306)/db"), dsn)

	_, err = d.BuildDSN(&domain.DataSourceConfig{Options: map[string]interface{}{"dsn": "not a dsn"}})
	assert.Error(t, err)

	_, err = d.BuildDSN(&domain.DataSourceConfig{})
	assert.Error(t, err)
}

func TestPostgreSQLDialect_BuildDSN(t *testing.T) {
	d := &PostgreSQLDialect{}

	dsn, err := d.BuildDSN(&domain.DataSourceConfig{Options: map[string]interface{}{
		"host":     "pg.local",
		"user":     "report",
		"database": "audit",
		"schema":   "monthly",
	}})
	require.NoError(t, err)
	assert.Equal(t, "host=pg.local port=5432 user=report password= dbname=audit sslmode=disable search_path=monthly", dsn)

	dsn, err = d.BuildDSN(&domain.DataSourceConfig{Path: "postgres://u@h/db"})
	require.NoError(t, err)
	assert.Equal(t, "postgres://u@h/db", dsn)

	_, err = d.BuildDSN(&domain.DataSourceConfig{})
	assert.Error(t, err)
}

func TestDialect_QuoteIdentifier(t *testing.T) {
	assert.Equal(t, "`a``b`", (&MySQLDialect{}).QuoteIdentifier("a`b"))
	assert.Equal(t, `"a""b"`, (&PostgreSQLDialect{}).QuoteIdentifier(`a"b`))
	assert.Equal(t, `"2024-01"`, (&SQLiteDialect{}).QuoteIdentifier("2024-01"))
}

func TestDialect_Placeholder(t *testing.T) {
	assert.Equal(t, "?", (&MySQLDialect{}).Placeholder(3))
	assert.Equal(t, "?", (&SQLiteDialect{}).Placeholder(3))
	assert.Equal(t, "$3", (&PostgreSQLDialect{}).Placeholder(3))
}

func TestDialect_ColumnKind(t *testing.T) {
	tests := []struct {
		dialect Dialect
		dbType  string
		want    domain.ValueKind
	}{
		{&SQLiteDialect{}, "INTEGER", domain.KindInt},
		{&SQLiteDialect{}, "REAL", domain.KindFloat},
		{&SQLiteDialect{}, "TEXT", domain.KindText},
		{&SQLiteDialect{}, "", domain.KindText},
		{&MySQLDialect{}, "BIGINT", domain.KindInt},
		{&MySQLDialect{}, "DECIMAL", domain.KindFloat},
		{&MySQLDialect{}, "BIT", domain.KindBool},
		{&MySQLDialect{}, "VARCHAR", domain.KindText},
		{&PostgreSQLDialect{}, "INT4", domain.KindInt},
		{&PostgreSQLDialect{}, "FLOAT8", domain.KindFloat},
		{&PostgreSQLDialect{}, "BOOL", domain.KindBool},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.dialect.ColumnKind(tt.dbType), "%s %s", tt.dialect.DriverName(), tt.dbType)
	}
}
