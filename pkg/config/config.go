package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kasuganosora/sheetmerge/pkg/merge"
	"github.com/kasuganosora/sheetmerge/pkg/resource/application"
	"github.com/kasuganosora/sheetmerge/pkg/resource/domain"
)

// 环境变量
const (
	EnvConfig       = "SHEETMERGE_CONFIG"
	EnvMainKey      = "SHEETMERGE_MAIN_KEY"
	EnvSecondaryKey = "SHEETMERGE_SECONDARY_KEY"
	EnvValueColumn  = "SHEETMERGE_VALUE_COLUMN"
	EnvLogLevel     = "SHEETMERGE_LOG_LEVEL"
	EnvJournalDir   = "SHEETMERGE_JOURNAL_DIR"
)

// 合并策略名称
const (
	PolicyMarker       = "marker"
	PolicySubstitution = "substitution"
)

// Config 应用程序配置
type Config struct {
	Merge   MergeConfig   `json:"merge" yaml:"merge"`
	Inputs  InputsConfig  `json:"inputs" yaml:"inputs"`
	Output  OutputConfig  `json:"output" yaml:"output"`
	Log     LogConfig     `json:"log" yaml:"log"`
	Pool    PoolConfig    `json:"pool" yaml:"pool"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	MCP     MCPConfig     `json:"mcp" yaml:"mcp"`
}

// MergeConfig 合并配置
type MergeConfig struct {
	MainKeyColumn      string               `json:"main_key_column" yaml:"main_key_column"`
	SecondaryKeyColumn string               `json:"secondary_key_column" yaml:"secondary_key_column"` // 为空时与主键列同名
	ValueColumn        string               `json:"value_column" yaml:"value_column"`
	Policy             string               `json:"policy" yaml:"policy"` // marker or substitution
	Markers            MarkersConfig        `json:"markers" yaml:"markers"`
	Substitutions      []merge.Substitution `json:"substitutions" yaml:"substitutions"`
	FindList           string               `json:"find_list" yaml:"find_list"`       // 逗号分隔
	ReplaceList        string               `json:"replace_list" yaml:"replace_list"` // 逗号分隔
	StrictPairs        bool                 `json:"strict_pairs" yaml:"strict_pairs"`
	OnError            string               `json:"on_error" yaml:"on_error"` // abort or skip
	AllowOverwrite     bool                 `json:"allow_overwrite" yaml:"allow_overwrite"`
}

// MarkersConfig 标记映射配置
type MarkersConfig struct {
	Present  domain.Value `json:"present" yaml:"present"`
	Negative domain.Value `json:"negative" yaml:"negative"`
	Absent   domain.Value `json:"absent" yaml:"absent"`
	Truthy   domain.Value `json:"truthy" yaml:"truthy"`
}

// InputsConfig 输入配置
type InputsConfig struct {
	Primary       domain.DataSourceConfig   `json:"primary" yaml:"primary"`
	Sources       []domain.DataSourceConfig `json:"sources" yaml:"sources"`
	SourceDir     string                    `json:"source_dir" yaml:"source_dir"`
	SourcePattern string                    `json:"source_pattern" yaml:"source_pattern"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	Path      string `json:"path" yaml:"path"`     // 为空时写到主表旁边
	Suffix    string `json:"suffix" yaml:"suffix"` // 默认 _updated
	Format    string `json:"format" yaml:"format"` // xlsx、csv；为空时沿用主表格式
	SheetName string `json:"sheet_name" yaml:"sheet_name"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

// PoolConfig 并发配置
type PoolConfig struct {
	Parallelism       int `json:"parallelism" yaml:"parallelism"`
	ParallelThreshold int `json:"parallel_threshold" yaml:"parallel_threshold"`
	LoadConcurrency   int `json:"load_concurrency" yaml:"load_concurrency"`
}

// JournalConfig 运行记录配置
type JournalConfig struct {
	Dir      string `json:"dir" yaml:"dir"` // 为空时不记录
	InMemory bool   `json:"in_memory" yaml:"in_memory"`
}

// Enabled 是否记录运行历史
func (j JournalConfig) Enabled() bool {
	return j.Dir != "" || j.InMemory
}

// MCPConfig MCP 服务配置
type MCPConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Merge: MergeConfig{
			Policy: PolicyMarker,
			Markers: MarkersConfig{
				Present:  merge.DefaultPresent,
				Negative: merge.DefaultNegative,
				Absent:   merge.DefaultAbsent,
				Truthy:   merge.DefaultTruthy,
			},
			StrictPairs: true,
			OnError:     string(merge.OnErrorAbort),
		},
		Inputs: InputsConfig{
			SourcePattern: "*.xlsx",
		},
		Output: OutputConfig{
			Suffix: "_updated",
		},
		Log: LogConfig{
			Level: "info",
		},
		Pool: PoolConfig{
			Parallelism:       4,
			ParallelThreshold: merge.DefaultParallelThreshold,
			LoadConcurrency:   4,
		},
		MCP: MCPConfig{
			Host:     "127.0.0.1",
			Port:     8080,
			Endpoint: "/mcp",
		},
	}
}

// LoadConfig 从文件加载配置（.yaml/.yml 按 YAML 解析，其余按 JSON）
func LoadConfig(configPath string) (*Config, error) {
	// 如果没有指定配置文件，使用默认配置
	if configPath == "" {
		return DefaultConfig(), nil
	}

	// 检查配置文件是否存在
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("配置文件不存在: %s", configPath)
	}

	// 读取配置文件
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 解析配置
	config := DefaultConfig()
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	default:
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 验证配置
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadConfigOrDefault 尝试从常见位置加载配置文件，并应用 .env 和环境变量
func LoadConfigOrDefault() *Config {
	LoadEnv()

	config := loadFirst()
	config.ApplyEnv()
	return config
}

func loadFirst() *Config {
	// 尝试从环境变量获取配置文件路径
	if envPath := os.Getenv(EnvConfig); envPath != "" {
		if config, err := LoadConfig(envPath); err == nil {
			return config
		}
	}

	// 尝试的配置文件路径
	possiblePaths := []string{
		"sheetmerge.json",
		"sheetmerge.yaml",
		"sheetmerge.yml",
		"./config/sheetmerge.json",
		"./config/sheetmerge.yaml",
	}
	for _, path := range possiblePaths {
		if absPath, err := filepath.Abs(path); err == nil {
			if config, err := LoadConfig(absPath); err == nil {
				return config
			}
		}
	}

	// 使用默认配置
	return DefaultConfig()
}

// LoadEnv 加载 .env 文件（不覆盖已存在的环境变量），文件不存在时忽略
func LoadEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
}

// ApplyEnv 用环境变量覆盖配置
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvMainKey); v != "" {
		c.Merge.MainKeyColumn = v
	}
	if v := os.Getenv(EnvSecondaryKey); v != "" {
		c.Merge.SecondaryKeyColumn = v
	}
	if v := os.Getenv(EnvValueColumn); v != "" {
		c.Merge.ValueColumn = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvJournalDir); v != "" {
		c.Journal.Dir = v
	}
}

// validateConfig 验证配置
func validateConfig(config *Config) error {
	return config.Validate()
}

// Validate 验证配置中与具体运行无关的部分（键列等在合并前由 MergeConfig 检查）
func (c *Config) Validate() error {
	switch c.Merge.Policy {
	case PolicyMarker, PolicySubstitution:
	default:
		return fmt.Errorf("无效的合并策略: %q", c.Merge.Policy)
	}

	switch merge.OnError(c.Merge.OnError) {
	case merge.OnErrorAbort, merge.OnErrorSkip:
	default:
		return fmt.Errorf("无效的错误处理方式: %q", c.Merge.OnError)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("无效的日志级别: %q", c.Log.Level)
	}

	switch strings.ToLower(strings.TrimPrefix(c.Output.Format, ".")) {
	case "", "xlsx", "xlsm", "csv", "tsv":
	default:
		return fmt.Errorf("不支持的输出格式: %q", c.Output.Format)
	}

	if c.Pool.Parallelism < 0 {
		return fmt.Errorf("并行度不能为负数")
	}
	if c.Pool.ParallelThreshold < 0 {
		return fmt.Errorf("并行阈值不能为负数")
	}
	if c.Pool.LoadConcurrency < 1 {
		return fmt.Errorf("并发加载数必须大于0")
	}

	if c.MCP.Port < 1 || c.MCP.Port > 65535 {
		return fmt.Errorf("无效的端口号: %d", c.MCP.Port)
	}

	return nil
}

// MergeConfig 生成合并流水线配置
func (c *Config) MergeConfig() (merge.Config, error) {
	m := c.Merge

	secondary := m.SecondaryKeyColumn
	if secondary == "" {
		secondary = m.MainKeyColumn
	}

	cfg := merge.Config{
		MainKey:           m.MainKeyColumn,
		SecondaryKey:      secondary,
		ValueColumn:       m.ValueColumn,
		OnError:           merge.OnError(m.OnError),
		AllowOverwrite:    m.AllowOverwrite,
		Parallelism:       c.Pool.Parallelism,
		ParallelThreshold: c.Pool.ParallelThreshold,
	}

	policy, err := c.policy()
	if err != nil {
		return merge.Config{}, err
	}
	cfg.Policy = policy

	if err := cfg.Validate(); err != nil {
		return merge.Config{}, err
	}
	return cfg, nil
}

func (c *Config) policy() (merge.Policy, error) {
	m := c.Merge
	switch m.Policy {
	case PolicyMarker, "":
		return merge.MarkerMapping{
			Truthy:   m.Markers.Truthy,
			Present:  m.Markers.Present,
			Negative: m.Markers.Negative,
			Absent:   m.Markers.Absent,
		}, nil
	case PolicySubstitution:
		pairs := append([]merge.Substitution(nil), m.Substitutions...)
		if m.FindList != "" || m.ReplaceList != "" {
			parsed, err := merge.ParseSubstitutions(m.FindList, m.ReplaceList, m.StrictPairs)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, parsed...)
		}
		return merge.SubstitutionList{Pairs: pairs, Absent: m.Markers.Absent}, nil
	}
	return nil, &merge.ConfigError{Field: "policy", Reason: fmt.Sprintf("unknown policy %q", m.Policy)}
}

// SourceConfigs 返回全部次表配置：显式列出的来源加上 source_dir 中匹配的文件
// 按出现顺序去重，主表和输出文件不会作为次表
func (c *Config) SourceConfigs() ([]*domain.DataSourceConfig, error) {
	configs := make([]*domain.DataSourceConfig, 0, len(c.Inputs.Sources))
	for i := range c.Inputs.Sources {
		configs = append(configs, &c.Inputs.Sources[i])
	}

	if c.Inputs.SourceDir != "" {
		paths, err := application.DiscoverSources(c.Inputs.SourceDir, c.Inputs.SourcePattern)
		if err != nil {
			return nil, fmt.Errorf("扫描来源目录失败: %w", err)
		}
		for _, p := range paths {
			configs = append(configs, &domain.DataSourceConfig{Path: p})
		}
	}

	// 主表和本次的输出文件都不作为次表，否则重复运行会读到上次的结果
	excluded := make(map[string]bool, 2)
	if c.Inputs.Primary.Path != "" {
		if abs, err := filepath.Abs(c.Inputs.Primary.Path); err == nil {
			excluded[abs] = true
		}
	}
	if abs, err := filepath.Abs(c.OutputPath()); err == nil {
		excluded[abs] = true
	}

	out := make([]*domain.DataSourceConfig, 0, len(configs))
	for _, s := range application.DedupeConfigs(configs) {
		if s.Path != "" {
			if abs, err := filepath.Abs(s.Path); err == nil && excluded[abs] {
				continue
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// OutputPath 返回输出文件路径
// 主表是文件表格时写到主表旁边；主表来自数据库时在当前目录生成 xlsx
func (c *Config) OutputPath() string {
	if c.Output.Path != "" {
		return c.Output.Path
	}

	primary := c.Inputs.Primary
	typ := primary.Type
	if typ == "" && primary.Path != "" {
		typ, _ = application.GetRegistry().ResolveType(primary.Path)
	}

	switch typ {
	case domain.DataSourceTypeExcel, domain.DataSourceTypeCSV:
		return merge.OutputPath(primary.Path, c.Output.Suffix, c.Output.Format)
	}

	format := c.Output.Format
	if format == "" {
		format = "xlsx"
	}
	name := application.SourceName(&primary)
	if name == "" {
		name = "sheetmerge"
	}
	return name + c.Output.Suffix + "." + strings.TrimPrefix(format, ".")
}

// GetListenAddress 获取 MCP 服务监听地址
func (c *Config) GetListenAddress() string {
	return fmt.Sprintf("%s:%d", c.MCP.Host, c.MCP.Port)
}
