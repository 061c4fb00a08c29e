package domain

import "fmt"

// 数据源领域错误

// ErrReadOnly 只读错误
type ErrReadOnly struct {
	DataSourceType string
	Operation      string
}

func (e *ErrReadOnly) Error() string {
	return fmt.Sprintf("data source %s is read-only, cannot %s", e.DataSourceType, e.Operation)
}

// ErrTableNotFound 表不存在错误
type ErrTableNotFound struct {
	TableName string
}

func (e *ErrTableNotFound) Error() string {
	return fmt.Sprintf("table %s not found", e.TableName)
}

// ErrColumnNotFound 列不存在错误
type ErrColumnNotFound struct {
	ColumnName string
	TableName  string
}

func (e *ErrColumnNotFound) Error() string {
	return fmt.Sprintf("column %s not found in table %s", e.ColumnName, e.TableName)
}

// ErrColumnAlreadyExists 列已存在错误
type ErrColumnAlreadyExists struct {
	ColumnName string
	TableName  string
}

func (e *ErrColumnAlreadyExists) Error() string {
	return fmt.Sprintf("column %s already exists in table %s", e.ColumnName, e.TableName)
}

// ErrUnsupportedOperation 不支持的操作错误
type ErrUnsupportedOperation struct {
	DataSourceType string
	Operation      string
}

func (e *ErrUnsupportedOperation) Error() string {
	return fmt.Sprintf("operation %s is not supported by %s data source", e.Operation, e.DataSourceType)
}

// ErrInvalidConfig 配置无效错误
type ErrInvalidConfig struct {
	ConfigKey string
	Message   string
}

func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("invalid config for %s: %s", e.ConfigKey, e.Message)
}

// ErrReadFailed 读取失败错误
type ErrReadFailed struct {
	Path   string
	Reason error
}

func (e *ErrReadFailed) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Path, e.Reason)
}

func (e *ErrReadFailed) Unwrap() error { return e.Reason }

// ErrWriteFailed 写入失败错误
type ErrWriteFailed struct {
	Path   string
	Reason error
}

func (e *ErrWriteFailed) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Reason)
}

func (e *ErrWriteFailed) Unwrap() error { return e.Reason }

// 辅助函数

// NewErrReadOnly 创建只读错误
func NewErrReadOnly(dataSourceType, operation string) *ErrReadOnly {
	return &ErrReadOnly{DataSourceType: dataSourceType, Operation: operation}
}

// NewErrTableNotFound 创建表不存在错误
func NewErrTableNotFound(tableName string) *ErrTableNotFound {
	return &ErrTableNotFound{TableName: tableName}
}

// NewErrColumnNotFound 创建列不存在错误
func NewErrColumnNotFound(columnName, tableName string) *ErrColumnNotFound {
	return &ErrColumnNotFound{ColumnName: columnName, TableName: tableName}
}

// NewErrColumnAlreadyExists 创建列已存在错误
func NewErrColumnAlreadyExists(columnName, tableName string) *ErrColumnAlreadyExists {
	return &ErrColumnAlreadyExists{ColumnName: columnName, TableName: tableName}
}

// NewErrUnsupportedOperation 创建不支持操作错误
func NewErrUnsupportedOperation(dataSourceType, operation string) *ErrUnsupportedOperation {
	return &ErrUnsupportedOperation{DataSourceType: dataSourceType, Operation: operation}
}

// NewErrInvalidConfig 创建配置无效错误
func NewErrInvalidConfig(key, message string) *ErrInvalidConfig {
	return &ErrInvalidConfig{ConfigKey: key, Message: message}
}

// NewErrReadFailed 创建读取失败错误
func NewErrReadFailed(path string, reason error) *ErrReadFailed {
	return &ErrReadFailed{Path: path, Reason: reason}
}

// NewErrWriteFailed 创建写入失败错误
func NewErrWriteFailed(path string, reason error) *ErrWriteFailed {
	return &ErrWriteFailed{Path: path, Reason: reason}
}
