package application

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/kasuganosora/sheetmerge/pkg/resource/csv"
	"github.com/kasuganosora/sheetmerge/pkg/resource/domain"
	"github.com/kasuganosora/sheetmerge/pkg/resource/excel"
	"github.com/kasuganosora/sheetmerge/pkg/resource/sqlsource"
)

// ==================== 工厂注册表 ====================

// Registry 数据源工厂注册表
// 按类型查找工厂，按文件扩展名推断类型
type Registry struct {
	factories  map[domain.DataSourceType]domain.DataSourceFactory
	extensions map[string]domain.DataSourceType
	mu         sync.RWMutex
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{
		factories:  make(map[domain.DataSourceType]domain.DataSourceFactory),
		extensions: make(map[string]domain.DataSourceType),
	}
}

// NewDefaultRegistry 创建注册了全部内置数据源的注册表
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, f := range []domain.DataSourceFactory{
		excel.NewExcelFactory(),
		csv.NewCSVFactory(),
		sqlsource.NewSQLiteFactory(),
		sqlsource.NewMySQLFactory(),
		sqlsource.NewPostgreSQLFactory(),
	} {
		if err := r.Register(f); err != nil {
			panic(err)
		}
	}
	return r
}

// Register 注册数据源工厂
func (r *Registry) Register(factory domain.DataSourceFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	factoryType := factory.GetType()
	if _, exists := r.factories[factoryType]; exists {
		return fmt.Errorf("factory %s already registered", factoryType)
	}
	for _, ext := range factory.Extensions() {
		if owner, taken := r.extensions[strings.ToLower(ext)]; taken {
			return fmt.Errorf("extension %s already registered by %s", ext, owner)
		}
	}

	r.factories[factoryType] = factory
	for _, ext := range factory.Extensions() {
		r.extensions[strings.ToLower(ext)] = factoryType
	}
	return nil
}

// Unregister 注销数据源工厂
func (r *Registry) Unregister(factoryType domain.DataSourceType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[factoryType]; !exists {
		return fmt.Errorf("factory %s not found", factoryType)
	}

	delete(r.factories, factoryType)
	for ext, t := range r.extensions {
		if t == factoryType {
			delete(r.extensions, ext)
		}
	}
	return nil
}

// Get 获取数据源工厂
func (r *Registry) Get(factoryType domain.DataSourceType) (domain.DataSourceFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[factoryType]
	if !ok {
		return nil, fmt.Errorf("factory %s not found", factoryType)
	}
	return factory, nil
}

// ResolveType 由文件扩展名推断数据源类型
func (r *Registry) ResolveType(path string) (domain.DataSourceType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := r.extensions[ext]; ok {
		return t, nil
	}
	return "", domain.NewErrInvalidConfig("type", fmt.Sprintf("cannot infer data source type from %q", path))
}

// Create 使用工厂创建数据源，未指定类型时按扩展名推断
func (r *Registry) Create(config *domain.DataSourceConfig) (domain.DataSource, error) {
	if config == nil {
		return nil, fmt.Errorf("data source config cannot be nil")
	}
	if config.Type == "" {
		t, err := r.ResolveType(config.Path)
		if err != nil {
			return nil, err
		}
		resolved := *config
		resolved.Type = t
		config = &resolved
	}

	factory, err := r.Get(config.Type)
	if err != nil {
		return nil, err
	}
	return factory.Create(config)
}

// List 列出所有已注册的工厂类型（按名称排序）
func (r *Registry) List() []domain.DataSourceType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]domain.DataSourceType, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Exists 检查工厂是否存在
func (r *Registry) Exists(factoryType domain.DataSourceType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.factories[factoryType]
	return exists
}

// Clear 清空所有注册的工厂
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories = make(map[domain.DataSourceType]domain.DataSourceFactory)
	r.extensions = make(map[string]domain.DataSourceType)
}

// ==================== 全局注册表 ====================

var (
	globalRegistry *Registry
	registryOnce   sync.Once
)

// GetRegistry 获取全局注册表（包含全部内置数据源）
func GetRegistry() *Registry {
	registryOnce.Do(func() {
		globalRegistry = NewDefaultRegistry()
	})
	return globalRegistry
}

// CreateDataSource 使用全局注册表创建数据源
func CreateDataSource(config *domain.DataSourceConfig) (domain.DataSource, error) {
	return GetRegistry().Create(config)
}

// GetSupportedTypes 获取支持的数据源类型
func GetSupportedTypes() []domain.DataSourceType {
	return GetRegistry().List()
}
