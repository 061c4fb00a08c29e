// Package journal 使用 Badger 记录每次合并运行，供 history 命令和 list_runs 工具查询。
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/kasuganosora/sheetmerge/pkg/merge"
)

// PrefixRun 运行记录的键前缀
const PrefixRun = "run:"

// 运行状态
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

var (
	// ErrRunNotFound 运行记录不存在
	ErrRunNotFound = errors.New("run not found")
	// ErrClosed 日志已关闭
	ErrClosed = errors.New("journal is closed")
)

// Run 一次合并运行的记录
type Run struct {
	ID         string             `json:"id"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Status     string             `json:"status"`
	Error      string             `json:"error,omitempty"`
	Primary    string             `json:"primary"`
	Sources    []string           `json:"sources"`
	Output     string             `json:"output,omitempty"`
	Settings   Settings           `json:"settings"`
	Rows       int                `json:"rows"`
	Columns    int                `json:"columns"`
	Reports    []merge.StepReport `json:"reports,omitempty"`
	Skipped    []Skipped          `json:"skipped,omitempty"`
}

// Settings 运行时使用的合并参数
type Settings struct {
	MainKey      string `json:"main_key"`
	SecondaryKey string `json:"secondary_key"`
	ValueColumn  string `json:"value_column"`
	Policy       string `json:"policy"`
	OnError      string `json:"on_error"`
}

// Skipped 被跳过的来源
type Skipped struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// Duration 运行耗时
func (r *Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Options 日志存储选项
type Options struct {
	// Dir 数据目录，InMemory 为 true 时忽略
	Dir string
	// InMemory 纯内存模式（测试用）
	InMemory bool
	// Logger Badger 内部日志，nil 时不输出
	Logger badger.Logger
}

// Journal 运行日志
type Journal struct {
	mu     sync.RWMutex
	db     *badger.DB
	closed bool
}

// Open 打开运行日志
func Open(opts Options) (*Journal, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Dir == "" {
			return nil, fmt.Errorf("journal: data dir is required")
		}
		bopts = badger.DefaultOptions(opts.Dir)
	}
	bopts = bopts.WithLogger(opts.Logger)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close 关闭运行日志，重复调用无副作用
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}
	return nil
}

// Record 保存运行记录，ID 为空时分配一个按时间排序的 UUID
func (j *Journal) Record(ctx context.Context, run *Run) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if run.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("failed to generate run id: %w", err)
		}
		run.ID = id.String()
	} else if _, err := uuid.Parse(run.ID); err != nil {
		return "", fmt.Errorf("invalid run id %q: %w", run.ID, err)
	}

	data, err := json.Marshal(run)
	if err != nil {
		return "", fmt.Errorf("failed to encode run: %w", err)
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return "", ErrClosed
	}

	if err := j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(runKey(run.ID), data)
	}); err != nil {
		return "", fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return run.ID, nil
}

// Get 按 ID 读取运行记录
func (j *Journal) Get(ctx context.Context, id string) (*Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, ErrClosed
	}

	var run *Run
	err := j.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(runKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrRunNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			run, err = decodeRun(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// List 按时间倒序列出运行记录，limit<=0 表示全部
func (j *Journal) List(ctx context.Context, limit int) ([]*Run, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, ErrClosed
	}

	runs := make([]*Run, 0)
	err := j.db.View(func(txn *badger.Txn) error {
		prefix := []byte(PrefixRun)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(append(prefix, 0xff)); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if limit > 0 && len(runs) >= limit {
				break
			}

			item := it.Item()
			if err := item.Value(func(val []byte) error {
				run, err := decodeRun(val)
				if err != nil {
					return fmt.Errorf("failed to decode %s: %w", item.Key(), err)
				}
				runs = append(runs, run)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// Delete 删除运行记录
func (j *Journal) Delete(ctx context.Context, id string) error {
	if _, err := j.Get(ctx, id); err != nil {
		return err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrClosed
	}
	return j.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(runKey(id))
	})
}

func runKey(id string) []byte {
	return []byte(PrefixRun + id)
}

func decodeRun(val []byte) (*Run, error) {
	var run Run
	if err := json.Unmarshal(val, &run); err != nil {
		return nil, err
	}
	return &run, nil
}
