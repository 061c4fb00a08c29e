package application

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kasuganosora/sheetmerge/pkg/merge"
	"github.com/kasuganosora/sheetmerge/pkg/resource/domain"
)

// Loader 通过注册表创建数据源并读取表
type Loader struct {
	registry    *Registry
	concurrency int
}

// NewLoader 创建加载器，registry 为空时使用全局注册表
func NewLoader(registry *Registry) *Loader {
	if registry == nil {
		registry = GetRegistry()
	}
	return &Loader{registry: registry, concurrency: 4}
}

// SetConcurrency 设置并发读取的数据源数量上限
func (l *Loader) SetConcurrency(n int) *Loader {
	if n > 0 {
		l.concurrency = n
	}
	return l
}

// Registry 返回使用的注册表
func (l *Loader) Registry() *Registry {
	return l.registry
}

// Open 创建数据源
func (l *Loader) Open(config *domain.DataSourceConfig) (domain.DataSource, error) {
	return l.registry.Create(config)
}

// Load 读取单个数据源
func (l *Loader) Load(ctx context.Context, config *domain.DataSourceConfig) (*domain.Table, error) {
	ds, err := l.Open(config)
	if err != nil {
		return nil, err
	}
	return ds.Read(ctx)
}

// LoadSources 并发读取次表，结果顺序与 configs 一致
// 任意一个读取失败时取消其余读取并返回该错误
func (l *Loader) LoadSources(ctx context.Context, configs []*domain.DataSourceConfig) ([]merge.Source, error) {
	sources := make([]merge.Source, len(configs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for i, config := range configs {
		g.Go(func() error {
			table, err := l.Load(ctx, config)
			if err != nil {
				return fmt.Errorf("load %s: %w", SourceName(config), err)
			}
			sources[i] = merge.Source{ID: SourceName(config), Table: table}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sources, nil
}

// SourceName 来源标识：配置的名称，或文件名（不含扩展名）
func SourceName(config *domain.DataSourceConfig) string {
	if config.Name != "" {
		return config.Name
	}
	if config.Type != "" && !config.Type.IsFile() {
		return config.StringOption("table", string(config.Type))
	}
	return merge.SourceID(config.Path)
}

// DiscoverSources 列出目录中匹配 pattern 的文件，按文件名排序
// Office 的锁文件（~$ 开头）被忽略
func DiscoverSources(dir, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*.xlsx"
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		if strings.HasPrefix(filepath.Base(m), "~$") {
			continue
		}
		if fi, err := os.Stat(m); err != nil || fi.IsDir() {
			continue
		}
		paths = append(paths, m)
	}
	sort.Strings(paths)
	return paths, nil
}

// DedupeConfigs 去掉重复路径的配置，保留第一次出现的位置
func DedupeConfigs(configs []*domain.DataSourceConfig) []*domain.DataSourceConfig {
	seen := make(map[string]bool, len(configs))
	out := make([]*domain.DataSourceConfig, 0, len(configs))
	for _, c := range configs {
		path := c.Path
		if abs, err := filepath.Abs(path); path != "" && err == nil {
			path = abs
		}
		key := strings.Join([]string{string(c.Type), path, c.StringOption("table", ""), c.StringOption("sheet_name", "")}, "|")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}
