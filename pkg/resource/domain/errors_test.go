package domain

import (
	"errors"
	"strings"
	"testing"
)

// TestErrReadOnly_Error 测试ErrReadOnly的Error方法
func TestErrReadOnly_Error(t *testing.T) {
	err := NewErrReadOnly("mysql", "write")
	expected := "data source mysql is read-only, cannot write"
	if err.Error() != expected {
		t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
	}
}

// TestErrColumnNotFound_Error 测试ErrColumnNotFound的Error方法
func TestErrColumnNotFound_Error(t *testing.T) {
	err := NewErrColumnNotFound("Profile", "main")
	expected := "column Profile not found in table main"
	if err.Error() != expected {
		t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
	}
}

// TestErrColumnAlreadyExists_Error 测试ErrColumnAlreadyExists的Error方法
func TestErrColumnAlreadyExists_Error(t *testing.T) {
	err := NewErrColumnAlreadyExists("2024-04", "main")
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("Expected error message to contain 'already exists', got '%s'", err.Error())
	}
	var target *ErrColumnAlreadyExists
	if !errors.As(error(err), &target) || target.ColumnName != "2024-04" {
		t.Errorf("errors.As should find ErrColumnAlreadyExists")
	}
}

// TestErrReadWriteFailed_Unwrap 测试读写错误的Unwrap
func TestErrReadWriteFailed_Unwrap(t *testing.T) {
	cause := errors.New("permission denied")

	readErr := NewErrReadFailed("/data/a.xlsx", cause)
	if !errors.Is(readErr, cause) {
		t.Errorf("ErrReadFailed should unwrap to cause")
	}
	if !strings.Contains(readErr.Error(), "/data/a.xlsx") {
		t.Errorf("Expected error message to contain path, got '%s'", readErr.Error())
	}

	writeErr := NewErrWriteFailed("/data/b.xlsx", cause)
	if !errors.Is(writeErr, cause) {
		t.Errorf("ErrWriteFailed should unwrap to cause")
	}
}

// TestOtherErrors 测试其余错误信息
func TestOtherErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"table not found", NewErrTableNotFound("Sheet9"), "table Sheet9 not found"},
		{"unsupported", NewErrUnsupportedOperation("mysql", "write"), "operation write is not supported by mysql data source"},
		{"invalid config", NewErrInvalidConfig("delimiter", "must be one character"), "invalid config for delimiter: must be one character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.want)
			}
		})
	}
}
