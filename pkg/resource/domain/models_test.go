package domain

import (
	"testing"
)

// TestDataSourceType_String 测试DataSourceType的String方法
func TestDataSourceType_String(t *testing.T) {
	tests := []struct {
		name     string
		dataType DataSourceType
		want     string
	}{
		{"excel type", DataSourceTypeExcel, "excel"},
		{"csv type", DataSourceTypeCSV, "csv"},
		{"sqlite type", DataSourceTypeSQLite, "sqlite"},
		{"mysql type", DataSourceTypeMySQL, "mysql"},
		{"postgresql type", DataSourceTypePostgreSQL, "postgresql"},
		{"custom type", DataSourceType("custom"), "custom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dataType.String(); got != tt.want {
				t.Errorf("DataSourceType.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestDataSourceType_IsFile 测试文件型数据源判断
func TestDataSourceType_IsFile(t *testing.T) {
	if !DataSourceTypeExcel.IsFile() || !DataSourceTypeCSV.IsFile() || !DataSourceTypeSQLite.IsFile() {
		t.Errorf("excel, csv and sqlite should be file types")
	}
	if DataSourceTypeMySQL.IsFile() || DataSourceTypePostgreSQL.IsFile() {
		t.Errorf("mysql and postgresql should not be file types")
	}
}

// TestDataSourceConfig_Options 测试选项读取
func TestDataSourceConfig_Options(t *testing.T) {
	config := &DataSourceConfig{
		Type: DataSourceTypeCSV,
		Path: "/tmp/a.csv",
		Options: map[string]interface{}{
			"delimiter": ";",
			"header":    false,
			"writable":  "TRUE",
			"empty":     "",
		},
	}

	if got := config.StringOption("delimiter", ","); got != ";" {
		t.Errorf("StringOption(delimiter) = %q, want %q", got, ";")
	}
	if got := config.StringOption("empty", "x"); got != "x" {
		t.Errorf("StringOption(empty) = %q, want default", got)
	}
	if got := config.StringOption("missing", "d"); got != "d" {
		t.Errorf("StringOption(missing) = %q, want default", got)
	}
	if config.BoolOption("header", true) {
		t.Errorf("BoolOption(header) should be false")
	}
	if !config.BoolOption("writable", false) {
		t.Errorf("BoolOption(writable) should accept string true")
	}

	var empty DataSourceConfig
	if empty.StringOption("any", "d") != "d" || !empty.BoolOption("any", true) {
		t.Errorf("nil options should return defaults")
	}
}

// TestDataSourceConfig_IntOption 测试整数选项
func TestDataSourceConfig_IntOption(t *testing.T) {
	config := &DataSourceConfig{Options: map[string]interface{}{
		"int":    3306,
		"float":  float64(5432),
		"string": "42",
		"bad":    "x",
	}}

	tests := []struct {
		key  string
		want int
	}{
		{"int", 3306},
		{"float", 5432},
		{"string", 42},
		{"bad", 7},
		{"missing", 7},
	}
	for _, tt := range tests {
		if got := config.IntOption(tt.key, 7); got != tt.want {
			t.Errorf("IntOption(%q) = %d, want %d", tt.key, got, tt.want)
		}
	}

	if got := (&DataSourceConfig{}).IntOption("port", 1); got != 1 {
		t.Errorf("IntOption on nil options = %d, want 1", got)
	}
}
