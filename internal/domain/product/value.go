package product

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind tags the variant held by a Value.
type Kind uint8

// Value kinds.
const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindArray
	KindObject
)

// Value is a free-form specification or metadata value.
// Exactly one variant is meaningful, selected by Kind.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	arr  []Value
	obj  map[string]Value
}

// String creates a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number creates a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool creates a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Array creates an array value.
func Array(items ...Value) Value { return Value{kind: KindArray, arr: items} }

// Object creates an object value.
func Object(m map[string]Value) Value { return Value{kind: KindObject, obj: m} }

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v holds no value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string variant.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Num returns the numeric variant.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// Boolean returns the boolean variant.
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == KindBool }

// Items returns the array variant.
func (v Value) Items() ([]Value, bool) { return v.arr, v.kind == KindArray }

// Fields returns the object variant.
func (v Value) Fields() (map[string]Value, bool) { return v.obj, v.kind == KindObject }

// Text renders the value for inclusion in chunk text.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindArray:
		parts := make([]string, 0, len(v.arr))
		for _, item := range v.arr {
			parts = append(parts, item.Text())
		}
		return strings.Join(parts, ", ")
	case KindObject:
		keys := sortedKeys(v.obj)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+v.obj[k].Text())
		}
		return strings.Join(parts, "; ")
	default:
		return ""
	}
}

// FromAny converts a decoded JSON/YAML value into a Value.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Value{}, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("parse number %q: %w", t, err)
		}
		return Number(f), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = v
		}
		return Array(items...), nil
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			v, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			m[k] = v
		}
		return Object(m), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", x)
	}
}

// Any converts v back into plain Go values (for JSON/JSONB encoding).
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindArray:
		out := make([]any, len(v.arr))
		for i, item := range v.arr {
			out[i] = item.Any()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, item := range v.obj {
			out[k] = item.Any()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any()) //nolint:wrapcheck // plain encoding
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// DecodeMap parses a JSON object into a map of Values. Empty input yields nil.
func DecodeMap(data []byte) (map[string]Value, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var m map[string]Value
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode value map: %w", err)
	}
	return m, nil
}

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
