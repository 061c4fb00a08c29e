package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/sheetmerge/pkg/config"
	"github.com/kasuganosora/sheetmerge/pkg/journal"
)

// runCmd 执行命令并返回标准输出
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func setupFiles(t *testing.T) string {
	t.Helper()
	t.Setenv(config.EnvConfig, "")
	t.Setenv(config.EnvJournalDir, "")

	dir := t.TempDir()
	files := map[string]string{
		"main.csv": "ID,Name\n1,a\n2,b\n3,c\n",
		"jan.csv":  "ID,Status\n1,1\n2,0\n",
		"feb.csv":  "ID,Status\n3,1\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func TestVersionCmd(t *testing.T) {
	out, err := runCmd(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "sheetmerge "+version+" (built "+buildDate+")\n", out)
}

func TestMergeCmd_WithHistory(t *testing.T) {
	dir := setupFiles(t)
	journalDir := filepath.Join(t.TempDir(), "journal")

	out, err := runCmd(t, "merge",
		filepath.Join(dir, "main.csv"), filepath.Join(dir, "jan.csv"), filepath.Join(dir, "feb.csv"),
		"--key", "ID", "--value", "Status", "--journal-dir", journalDir, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+filepath.Join(dir, "main_updated.csv"))

	data, err := os.ReadFile(filepath.Join(dir, "main_updated.csv"))
	require.NoError(t, err)
	assert.Equal(t, "ID,Name,jan,feb\n1,a,x,?\n2,b,-,?\n3,c,?,x\n", string(data))

	m := regexp.MustCompile(`(?m)^run (\S+)$`).FindStringSubmatch(out)
	require.Len(t, m, 2)
	runID := m[1]

	// 列出历史
	out, err = runCmd(t, "history", "--journal-dir", journalDir)
	require.NoError(t, err)
	assert.Contains(t, out, runID)
	assert.Contains(t, out, filepath.Join(dir, "main.csv"))

	// 查看单次运行
	out, err = runCmd(t, "history", runID, "--journal-dir", journalDir, "--json")
	require.NoError(t, err)
	var run journal.Run
	require.NoError(t, json.Unmarshal([]byte(out), &run))
	assert.Equal(t, runID, run.ID)
	assert.Equal(t, journal.StatusOK, run.Status)
	assert.Len(t, run.Reports, 2)
}

func TestMergeCmd_SourceDirAndSubstitution(t *testing.T) {
	dir := setupFiles(t)
	output := filepath.Join(t.TempDir(), "result.csv")

	out, err := runCmd(t, "merge", filepath.Join(dir, "main.csv"),
		"--source-dir", dir, "--pattern", "*.csv",
		"-k", "ID", "-v", "Status",
		"--find", "1,0", "--replace", "yes,no",
		"-o", output, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "jan")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	// 目录中的来源按文件名排序，主表被排除
	assert.Equal(t, "ID,Name,feb,jan\n1,a,?,yes\n2,b,?,no\n3,c,yes,?\n", string(data))
}

func TestMergeCmd_DryRunJSON(t *testing.T) {
	dir := setupFiles(t)

	out, err := runCmd(t, "merge", filepath.Join(dir, "main.csv"), filepath.Join(dir, "jan.csv"),
		"-k", "ID", "-v", "Status", "--dry-run", "--json", "--log-level", "error")
	require.NoError(t, err)

	var summary struct {
		Output  string `json:"output"`
		Reports []struct {
			Source  string `json:"source"`
			Matched int    `json:"matched"`
		} `json:"reports"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Empty(t, summary.Output)
	require.Len(t, summary.Reports, 1)
	assert.Equal(t, "jan", summary.Reports[0].Source)
	assert.Equal(t, 2, summary.Reports[0].Matched)

	_, statErr := os.Stat(filepath.Join(dir, "main_updated.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestMergeCmd_Errors(t *testing.T) {
	dir := setupFiles(t)
	primary := filepath.Join(dir, "main.csv")

	tests := []struct {
		name    string
		args    []string
		message string
	}{
		{
			name:    "no sources",
			args:    []string{"merge", primary, "-k", "ID", "-v", "Status"},
			message: "no secondary tables",
		},
		{
			name:    "missing key",
			args:    []string{"merge", primary, filepath.Join(dir, "jan.csv"), "-v", "Status"},
			message: "main_key_column",
		},
		{
			name:    "bad policy",
			args:    []string{"merge", primary, filepath.Join(dir, "jan.csv"), "-k", "ID", "-v", "Status", "--policy", "regex"},
			message: "无效的合并策略",
		},
		{
			name:    "mismatched lists",
			args:    []string{"merge", primary, filepath.Join(dir, "jan.csv"), "-k", "ID", "-v", "Status", "--find", "1,0", "--replace", "yes"},
			message: "find_list",
		},
		{
			name:    "missing column",
			args:    []string{"merge", primary, filepath.Join(dir, "jan.csv"), "-k", "ID", "-v", "Missing", "--log-level", "error"},
			message: "COLUMN_NOT_FOUND",
		},
		{
			name:    "missing config file",
			args:    []string{"merge", "--config", filepath.Join(dir, "nope.json")},
			message: "配置文件不存在",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCmd(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestMergeCmd_ConfigFile(t *testing.T) {
	dir := setupFiles(t)
	cfgPath := filepath.Join(dir, "sheetmerge.yaml")
	content := "merge:\n  main_key_column: ID\n  value_column: Status\n" +
		"inputs:\n  primary:\n    path: " + filepath.Join(dir, "main.csv") + "\n" +
		"  sources:\n    - path: " + filepath.Join(dir, "feb.csv") + "\n" +
		"output:\n  suffix: _merged\n" +
		"log:\n  level: error\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0644))

	_, err := runCmd(t, "merge", "--config", cfgPath)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "main_merged.csv"))
	require.NoError(t, err)
	assert.Equal(t, "ID,Name,feb\n1,a,?\n2,b,?\n3,c,x\n", string(data))
}

func TestInspectCmd(t *testing.T) {
	dir := setupFiles(t)

	out, err := runCmd(t, "inspect", filepath.Join(dir, "jan.csv"), "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Table: jan (2 rows)")
	assert.Contains(t, out, "Status")
	assert.Contains(t, out, "int64")
	assert.Contains(t, out, "ID\tStatus\n1\t1\n\n(2 rows)")

	_, err = runCmd(t, "inspect")
	assert.Error(t, err)
}

func TestHistoryCmd_Disabled(t *testing.T) {
	setupFiles(t)

	_, err := runCmd(t, "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run history is disabled")
}
