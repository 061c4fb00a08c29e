package merge

import "fmt"

// KeyColumnMissing 配置的键列或值列在表中不存在
type KeyColumnMissing struct {
	Source string
	Table  string
	Column string
}

func (e *KeyColumnMissing) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("column %q not found in table %q", e.Column, e.Table)
	}
	return fmt.Sprintf("source %q: column %q not found in table %q", e.Source, e.Column, e.Table)
}

// SchemaError 派生列名冲突
type SchemaError struct {
	Source string
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "column already exists"
	}
	return fmt.Sprintf("source %q: derived column %q: %s", e.Source, e.Column, reason)
}

// ConfigError 合并配置错误
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid merge config: %s: %s", e.Field, e.Reason)
}
