package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValueKind 单元格值类型
type ValueKind uint8

const (
	// KindNull 缺失值
	KindNull ValueKind = iota
	// KindInt 整数
	KindInt
	// KindFloat 浮点数
	KindFloat
	// KindBool 布尔值
	KindBool
	// KindText 文本
	KindText
)

// String 返回类型名，与 ColumnInfo.Type 使用相同的名称
func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int64"
	case KindFloat:
		return "float64"
	case KindBool:
		return "bool"
	case KindText:
		return "string"
	default:
		return "unknown"
	}
}

// ParseKind 由类型名解析 ValueKind，未知名称视为文本
func ParseKind(name string) ValueKind {
	for _, k := range []ValueKind{KindNull, KindInt, KindFloat, KindBool, KindText} {
		if k.String() == name {
			return k
		}
	}
	return KindText
}

// Value 单元格值（带类型标签的联合体）
// Value 可比较，可直接作为 map 的键使用
type Value struct {
	kind ValueKind
	i    int64
	f    float64
	b    bool
	s    string
}

// Null 返回缺失值
func Null() Value { return Value{} }

// Int 构造整数值
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Float 构造浮点数值
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// Bool 构造布尔值
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Text 构造文本值
func Text(v string) Value { return Value{kind: KindText, s: v} }

// Kind 返回值类型
func (v Value) Kind() ValueKind { return v.kind }

// IsNull 是否为缺失值
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsInt 返回整数内容
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat 返回浮点数内容
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsBool 返回布尔内容
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsText 返回文本内容
func (v Value) AsText() (string, bool) { return v.s, v.kind == KindText }

// Equal 严格相等：类型和内容都相同。Int(1)、Float(1)、Text("1")、Bool(true) 互不相等。
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	default:
		return v.s == o.s
	}
}

// Interface 转换为 Go 原生值，缺失值返回 nil
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindText:
		return v.s
	default:
		return nil
	}
}

// String 返回单元格的文本形式，缺失值为空串
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindText:
		return v.s
	default:
		return ""
	}
}

// GoString 用于调试输出
func (v Value) GoString() string {
	if v.kind == KindText {
		return strconv.Quote(v.s)
	}
	if v.kind == KindNull {
		return "<null>"
	}
	return v.String()
}

// DetectType 检测字符串的值类型
func DetectType(raw string) ValueKind {
	if raw == "" {
		return KindNull
	}
	if _, ok := parseBool(raw); ok {
		return KindBool
	}
	if hasLeadingZero(raw) {
		return KindText
	}
	if _, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return KindInt
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return KindFloat
	}
	return KindText
}

// parseBool 只接受 true/false（不区分大小写，Excel 输出 TRUE/FALSE）
func parseBool(raw string) (bool, bool) {
	switch {
	case strings.EqualFold(raw, "true"):
		return true, true
	case strings.EqualFold(raw, "false"):
		return false, true
	}
	return false, false
}

// hasLeadingZero 编号类文本（"007"、"-012"、"00.5"）按文本保留，否则读回时会丢失前导零
// "0"、"0.5"、"-0.25" 不受影响
func hasLeadingZero(raw string) bool {
	s := raw
	if s[0] == '+' || s[0] == '-' {
		s = s[1:]
	}
	return len(s) > 1 && s[0] == '0' && s[1] >= '0' && s[1] <= '9'
}

// ParseValue 按推断的类型解析字符串
func ParseValue(raw string) Value {
	return ParseValueAs(raw, DetectType(raw))
}

// ParseValueAs 按指定类型解析字符串，解析失败时退化为文本
func ParseValueAs(raw string, kind ValueKind) Value {
	if raw == "" {
		return Null()
	}

	switch kind {
	case KindInt:
		if hasLeadingZero(raw) {
			break
		}
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return Int(i)
		}
	case KindFloat:
		if hasLeadingZero(raw) {
			break
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return Float(f)
		}
	case KindBool:
		if b, ok := parseBool(raw); ok {
			return Bool(b)
		}
	}

	return Text(raw)
}

// FromInterface 从 Go 原生值构造 Value（数据库驱动扫描结果等）
func FromInterface(x interface{}) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case int:
		return Int(int64(t))
	case int8:
		return Int(int64(t))
	case int16:
		return Int(int64(t))
	case int32:
		return Int(int64(t))
	case int64:
		return Int(t)
	case uint8:
		return Int(int64(t))
	case uint16:
		return Int(int64(t))
	case uint32:
		return Int(int64(t))
	case uint64:
		if t <= math.MaxInt64 {
			return Int(int64(t))
		}
		return Float(float64(t))
	case float32:
		return Float(float64(t))
	case float64:
		return Float(t)
	case bool:
		return Bool(t)
	case string:
		return Text(t)
	case []byte:
		return Text(string(t))
	default:
		return Text(fmt.Sprintf("%v", t))
	}
}

// MarshalJSON 实现 json.Marshaler
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON 实现 json.Unmarshaler
// 整数字面量解析为 Int，带小数的数字为 Float
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	switch t := raw.(type) {
	case nil:
		*v = Null()
	case json.Number:
		if i, err := t.Int64(); err == nil {
			*v = Int(i)
			return nil
		}
		f, err := t.Float64()
		if err != nil {
			return fmt.Errorf("invalid number %s: %w", t.String(), err)
		}
		*v = Float(f)
	case bool:
		*v = Bool(t)
	case string:
		*v = Text(t)
	default:
		return fmt.Errorf("unsupported cell value %s", string(data))
	}
	return nil
}

// UnmarshalYAML 实现 yaml.Unmarshaler，仅接受标量
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: cell value must be a scalar", node.Line)
	}

	switch node.Tag {
	case "!!null":
		*v = Null()
	case "!!int":
		var i int64
		if err := node.Decode(&i); err != nil {
			return err
		}
		*v = Int(i)
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		*v = Float(f)
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*v = Bool(b)
	default:
		*v = Text(node.Value)
	}
	return nil
}

// MarshalYAML 实现 yaml.Marshaler
func (v Value) MarshalYAML() (interface{}, error) {
	return v.Interface(), nil
}
