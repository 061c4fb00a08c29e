package merge

import (
	"fmt"
	"strings"

	"github.com/kasuganosora/sheetmerge/pkg/resource/domain"
)

// ParseSubstitutions 解析逗号分隔的查找列表和替换列表
// 查找项按单元格的类型推断规则解析（"1" 为整数），替换项保持文本。
// strict 为 true 时两个列表长度不同返回 ConfigError，否则按较短的列表配对。
func ParseSubstitutions(find, replace string, strict bool) ([]Substitution, error) {
	finds := splitList(find)
	replaces := splitList(replace)

	if strict && len(finds) != len(replaces) {
		return nil, &ConfigError{
			Field:  "find_list",
			Reason: fmt.Sprintf("%d find values but %d replace values", len(finds), len(replaces)),
		}
	}

	n := len(finds)
	if len(replaces) < n {
		n = len(replaces)
	}

	pairs := make([]Substitution, n)
	for i := 0; i < n; i++ {
		pairs[i] = Substitution{
			Find:    domain.ParseValue(finds[i]),
			Replace: domain.Text(replaces[i]),
		}
	}
	return pairs, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
