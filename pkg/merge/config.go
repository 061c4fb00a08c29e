package merge

import (
	"fmt"
	"runtime"
)

// OnError 单个来源失败时的处理方式
type OnError string

const (
	// OnErrorAbort 第一个失败即终止，不产生输出
	OnErrorAbort OnError = "abort"
	// OnErrorSkip 记录失败并继续处理后续来源
	OnErrorSkip OnError = "skip"
)

// DefaultParallelThreshold 行数达到该值时编码阶段并行执行
const DefaultParallelThreshold = 8192

// Config 合并配置，运行期间不可修改
type Config struct {
	MainKey      string
	SecondaryKey string
	ValueColumn  string
	Policy       Policy

	OnError        OnError
	AllowOverwrite bool

	// Parallelism 编码阶段的最大并行度，<=1 表示顺序执行
	Parallelism int
	// ParallelThreshold 启用并行编码的最小行数
	ParallelThreshold int
}

// DefaultConfig 返回使用默认标记映射的配置
func DefaultConfig(mainKey, secondaryKey, valueColumn string) Config {
	return Config{
		MainKey:           mainKey,
		SecondaryKey:      secondaryKey,
		ValueColumn:       valueColumn,
		Policy:            DefaultMarkerMapping(),
		OnError:           OnErrorAbort,
		Parallelism:       runtime.NumCPU(),
		ParallelThreshold: DefaultParallelThreshold,
	}
}

// Validate 校验配置
func (c Config) Validate() error {
	if c.MainKey == "" {
		return &ConfigError{Field: "main_key_column", Reason: "must not be empty"}
	}
	if c.SecondaryKey == "" {
		return &ConfigError{Field: "secondary_key_column", Reason: "must not be empty"}
	}
	if c.ValueColumn == "" {
		return &ConfigError{Field: "value_column", Reason: "must not be empty"}
	}
	if c.Policy == nil {
		return &ConfigError{Field: "policy", Reason: "must be set"}
	}
	switch c.OnError {
	case "", OnErrorAbort, OnErrorSkip:
	default:
		return &ConfigError{Field: "on_error", Reason: fmt.Sprintf("unknown mode %q", c.OnError)}
	}
	if c.Parallelism < 0 {
		return &ConfigError{Field: "parallelism", Reason: "must not be negative"}
	}
	if c.ParallelThreshold < 0 {
		return &ConfigError{Field: "parallel_threshold", Reason: "must not be negative"}
	}
	return nil
}
