package merge

import (
	"github.com/kasuganosora/sheetmerge/pkg/resource/domain"
)

// Policy 值编码策略：把一个连接得到的单元格映射为输出值
// present 表示该行的主键在次表中找到了匹配
type Policy interface {
	Encode(v domain.Value, present bool) domain.Value
	Name() string
}

// 默认标记
var (
	DefaultTruthy   = domain.Int(1)
	DefaultPresent  = domain.Text("x")
	DefaultNegative = domain.Text("-")
	DefaultAbsent   = domain.Text("?")
)

// MarkerMapping 三态标记映射
//   - 未匹配           → Absent
//   - 匹配且等于 Truthy → Present
//   - 其他             → Negative（包括匹配但值为空的行）
//
// Truthy 的比较是严格相等，Int(1) 不等于 Text("1") 或 Bool(true)
type MarkerMapping struct {
	Truthy   domain.Value
	Present  domain.Value
	Negative domain.Value
	Absent   domain.Value
}

// DefaultMarkerMapping 返回 1 → "x" / "-" / "?" 的映射
func DefaultMarkerMapping() MarkerMapping {
	return MarkerMapping{
		Truthy:   DefaultTruthy,
		Present:  DefaultPresent,
		Negative: DefaultNegative,
		Absent:   DefaultAbsent,
	}
}

// Name 实现 Policy
func (m MarkerMapping) Name() string { return "marker" }

// Encode 实现 Policy
func (m MarkerMapping) Encode(v domain.Value, present bool) domain.Value {
	if !present {
		return m.Absent
	}
	if v.Equal(m.Truthy) {
		return m.Present
	}
	return m.Negative
}

// Substitution 一条查找替换规则
type Substitution struct {
	Find    domain.Value `json:"find" yaml:"find"`
	Replace domain.Value `json:"replace" yaml:"replace"`
}

// SubstitutionList 有序查找替换
// 第一条 Find 与单元格严格相等的规则生效；没有规则匹配时原值保留；
// 未匹配的行以及结果仍为空的单元格填充 Absent
type SubstitutionList struct {
	Pairs  []Substitution
	Absent domain.Value
}

// NewSubstitutionList 使用默认缺失标记创建替换列表
func NewSubstitutionList(pairs ...Substitution) SubstitutionList {
	return SubstitutionList{Pairs: pairs, Absent: DefaultAbsent}
}

// Name 实现 Policy
func (s SubstitutionList) Name() string { return "substitution" }

// Encode 实现 Policy
func (s SubstitutionList) Encode(v domain.Value, present bool) domain.Value {
	if !present {
		return s.Absent
	}

	out := v
	for _, p := range s.Pairs {
		if p.Find.Equal(v) {
			out = p.Replace
			break
		}
	}

	if out.IsNull() {
		return s.Absent
	}
	return out
}
