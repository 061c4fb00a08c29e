package api

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestDefaultLogger_Levels 每个级别的输出格式与过滤
func TestDefaultLogger_Levels(t *testing.T) {
	emit := map[LogLevel]func(l Logger){
		LogDebug: func(l Logger) { l.Debug("probe %s", "jan.xlsx") },
		LogInfo:  func(l Logger) { l.Info("merged %d rows", 3) },
		LogWarn:  func(l Logger) { l.Warn("%d duplicate keys ignored", 2) },
		LogError: func(l Logger) { l.Error("source %s failed", "feb.csv") },
	}
	want := map[LogLevel]string{
		LogDebug: "[DEBUG] probe jan.xlsx\n",
		LogInfo:  "[INFO] merged 3 rows\n",
		LogWarn:  "[WARN] 2 duplicate keys ignored\n",
		LogError: "[ERROR] source feb.csv failed\n",
	}

	for _, threshold := range []LogLevel{LogError, LogWarn, LogInfo, LogDebug} {
		t.Run(threshold.String(), func(t *testing.T) {
			for level, fn := range emit {
				var buf bytes.Buffer
				fn(NewDefaultLoggerWithOutput(threshold, &buf))
				if level <= threshold {
					assert.Equal(t, want[level], buf.String())
				} else {
					assert.Empty(t, buf.String())
				}
			}
		})
	}
}

// TestDefaultLogger_Timestamps 默认日志带时间戳前缀
func TestDefaultLogger_Timestamps(t *testing.T) {
	var buf bytes.Buffer
	logger := NewDefaultLogger(LogInfo)
	logger.output = &buf

	logger.Info("run finished")

	line := buf.String()
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} \[INFO\] run finished\n$`, line)
}

// TestDefaultLogger_SetLevel 运行时调整级别
func TestDefaultLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewDefaultLoggerWithOutput(LogInfo, &buf)

	logger.Debug("hidden")
	logger.SetLevel(LogDebug)
	assert.Equal(t, LogDebug, logger.GetLevel())
	logger.Debug("visible")

	assert.Equal(t, "[DEBUG] visible\n", buf.String())
}

// TestDefaultLogger_Concurrency 并发写入时每行完整
func TestDefaultLogger_Concurrency(t *testing.T) {
	var buf bytes.Buffer
	logger := NewDefaultLoggerWithOutput(LogInfo, &buf)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			logger.Info("source %d merged", n)
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 100)
	for _, line := range lines {
		assert.Regexp(t, `^\[INFO\] source \d+ merged$`, line)
	}
	assert.Contains(t, buf.String(), fmt.Sprintf("source %d merged", 99))
}

// TestNoOpLogger 空日志忽略一切调用
func TestNoOpLogger(t *testing.T) {
	var logger Logger = NewNoOpLogger()
	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")
	logger.SetLevel(LogDebug)
	assert.Equal(t, LogInfo, logger.GetLevel())
}

func TestLogLevels_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LogError, "ERROR"},
		{LogWarn, "WARN"},
		{LogInfo, "INFO"},
		{LogDebug, "DEBUG"},
		{LogLevel(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.level.String())
		})
	}
}

func TestNewDefaultLogger(t *testing.T) {
	logger := NewDefaultLogger(LogInfo)

	assert.NotNil(t, logger)
	assert.Equal(t, LogInfo, logger.GetLevel())
	// 日志写 stderr，stdout 留给命令输出
	assert.Equal(t, os.Stderr, logger.output)
	assert.True(t, logger.timestamps)
}

func TestNewDefaultLoggerWithOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewDefaultLoggerWithOutput(LogInfo, &buf)

	assert.NotNil(t, logger)
	assert.Equal(t, LogInfo, logger.GetLevel())
	assert.Equal(t, &buf, logger.output)

	logger.Info("test message")
	assert.Equal(t, "[INFO] test message\n", buf.String())
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
		wantErr  bool
	}{
		{"debug", LogDebug, false},
		{"INFO", LogInfo, false},
		{"", LogInfo, false},
		{"warn", LogWarn, false},
		{"Warning", LogWarn, false},
		{"error", LogError, false},
		{"verbose", LogInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLogLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestBadgerLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewDefaultLoggerWithOutput(LogInfo, &buf)
	bl := badgerLogger{logger: logger}

	bl.Errorf("open failed: %s\n", "disk")
	bl.Warningf("slow")
	bl.Infof("compaction") // INFO 降为 DEBUG，不输出
	bl.Debugf("noise")

	output := buf.String()
	assert.Contains(t, output, "[ERROR] journal: open failed: disk\n")
	assert.Contains(t, output, "[WARN] journal: slow")
	assert.NotContains(t, output, "compaction")
	assert.NotContains(t, output, "noise")
}

func ExampleDefaultLogger() {
	logger := NewDefaultLogger(LogInfo)
	logger.Info("Application started")
	logger.Debug("This won't be shown due to log level")
	logger.Error("An error occurred")
}
