package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/kasuganosora/sheetmerge/pkg/resource/domain"
)

// SQLSource 读取数据库中的一张表或一条查询结果
type SQLSource struct {
	config   *domain.DataSourceConfig
	dialect  Dialect
	table    string
	query    string
	writable bool
}

// NewSQLSource 创建 SQL 数据源
func NewSQLSource(config *domain.DataSourceConfig, dialect Dialect) (*SQLSource, error) {
	s := &SQLSource{
		config:   config,
		dialect:  dialect,
		table:    config.StringOption("table", ""),
		query:    config.StringOption("query", ""),
		writable: config.BoolOption("writable", false),
	}
	if s.table == "" && s.query == "" {
		return nil, domain.NewErrInvalidConfig("table", "table or query required")
	}
	if s.table != "" && s.query != "" {
		return nil, domain.NewErrInvalidConfig("query", "table and query are mutually exclusive")
	}
	if s.writable && s.table == "" {
		return nil, domain.NewErrInvalidConfig("writable", "only a table can be written")
	}
	if _, err := dialect.BuildDSN(config); err != nil {
		return nil, err
	}
	return s, nil
}

// GetConfig 获取数据源配置
func (s *SQLSource) GetConfig() *domain.DataSourceConfig {
	return s.config
}

// IsWritable 检查是否可写
func (s *SQLSource) IsWritable() bool {
	return s.writable
}

func (s *SQLSource) location() string {
	if s.table != "" {
		return s.dialect.DriverName() + ":" + s.table
	}
	return s.dialect.DriverName() + ":query"
}

func (s *SQLSource) tableName() string {
	if s.config.Name != "" {
		return s.config.Name
	}
	if s.table != "" {
		return s.table
	}
	return "query"
}

// open 打开连接并确认可用
func (s *SQLSource) open(ctx context.Context) (*sql.DB, error) {
	dsn, err := s.dialect.BuildDSN(s.config)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(s.dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.dialect.DriverName(), err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", s.dialect.DriverName(), err)
	}
	return db, nil
}

// Read 执行查询并读取全部结果
func (s *SQLSource) Read(ctx context.Context) (*domain.Table, error) {
	db, err := s.open(ctx)
	if err != nil {
		return nil, domain.NewErrReadFailed(s.location(), err)
	}
	defer db.Close()

	query := s.query
	if query == "" {
		query = "SELECT * FROM " + s.dialect.QuoteIdentifier(s.table)
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, domain.NewErrReadFailed(s.location(), err)
	}
	defer rows.Close()

	table, err := scanTable(s.tableName(), rows, s.dialect)
	if err != nil {
		return nil, domain.NewErrReadFailed(s.location(), err)
	}
	return table, nil
}

// scanTable reads all rows from *sql.Rows into a Table.
func scanTable(name string, rows *sql.Rows, dialect Dialect) (*domain.Table, error) {
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("get column types: %w", err)
	}

	names := make([]string, len(colTypes))
	kinds := make([]domain.ValueKind, len(colTypes))
	for i, ct := range colTypes {
		names[i] = ct.Name()
		kinds[i] = dialect.ColumnKind(ct.DatabaseTypeName())
	}

	data := make([][]domain.Value, len(colTypes))
	values := make([]interface{}, len(colTypes))
	targets := make([]interface{}, len(colTypes))
	for i := range values {
		targets[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for i, v := range values {
			data[i] = append(data[i], normalizeValue(v, kinds[i]))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	for i := range data {
		if data[i] == nil {
			data[i] = []domain.Value{}
		}
	}
	return domain.NewTable(name, domain.NormalizeHeaders(names), data)
}

// normalizeValue converts database/sql scanned values to cells.
// Text protocols return []byte for every type; those are parsed with the column kind.
func normalizeValue(v interface{}, kind domain.ValueKind) domain.Value {
	switch val := v.(type) {
	case nil:
		return domain.Null()
	case []byte:
		return domain.ParseValueAs(string(val), kind)
	case string:
		if kind == domain.KindText {
			return domain.Text(val)
		}
		return domain.ParseValueAs(val, kind)
	case time.Time:
		return domain.Text(val.Format("2006-01-02 15:04:05"))
	}
	return domain.FromInterface(v)
}

// Write 以表覆盖数据库中的目标表（删除后重建），在一个事务中完成
func (s *SQLSource) Write(ctx context.Context, table *domain.Table) error {
	if !s.writable {
		return domain.NewErrReadOnly(s.dialect.DriverName(), "write")
	}

	db, err := s.open(ctx)
	if err != nil {
		return domain.NewErrWriteFailed(s.location(), err)
	}
	defer db.Close()

	if err := s.writeTable(ctx, db, table); err != nil {
		return domain.NewErrWriteFailed(s.location(), err)
	}
	return nil
}

func (s *SQLSource) writeTable(ctx context.Context, db *sql.DB, table *domain.Table) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	quoted := s.dialect.QuoteIdentifier(s.table)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoted); err != nil {
		return err
	}

	info := table.Info()
	defs := make([]string, len(info.Columns))
	cols := make([]string, len(info.Columns))
	marks := make([]string, len(info.Columns))
	for j, c := range info.Columns {
		cols[j] = s.dialect.QuoteIdentifier(c.Name)
		defs[j] = cols[j] + " " + s.dialect.ColumnType(domain.ParseKind(c.Type))
		marks[j] = s.dialect.Placeholder(j + 1)
	}

	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoted, strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return err
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoted, strings.Join(cols, ", "), strings.Join(marks, ", "))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return err
	}
	defer stmt.Close()

	args := make([]interface{}, table.NumColumns())
	for i := 0; i < table.NumRows(); i++ {
		for j, v := range table.Row(i) {
			args[j] = v.Interface()
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}

	return tx.Commit()
}
