/*
 * backend/compare/model/value.go
 *
 * Tagged union for structure-preserving configuration values.
 * - Null, Scalar, Map and Sequence variants.
 * - Conversion from decoded YAML/JSON trees and back.
 */

package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// ValueKind identifies which variant a Value holds.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindScalar
	KindMap
	KindSequence
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindScalar:
		return "scalar"
	case KindMap:
		return "map"
	case KindSequence:
		return "sequence"
	default:
		return "unknown"
	}
}

// Value is one node of a structured configuration tree. The zero Value is Null.
// Scalars keep their original Go value for hashing and serialization and expose a
// canonical string form for comparison.
type Value struct {
	kind   ValueKind
	scalar any
	fields map[string]Value
	items  []Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// Scalar wraps a string, bool or numeric leaf. nil yields Null.
func Scalar(v any) Value {
	if v == nil {
		return Value{}
	}
	return Value{kind: KindScalar, scalar: v}
}

// Map wraps a set of named children. A nil map yields an empty Map, not Null.
func Map(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: KindMap, fields: fields}
}

// Sequence wraps an ordered list of children.
func Sequence(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindSequence, items: items}
}

// ValueOf converts a decoded YAML/JSON tree (maps, slices, scalars) into a Value.
// Unsupported leaf types are kept as scalars and stringified with %v.
func ValueOf(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, child := range t {
			fields[k] = ValueOf(child)
		}
		return Map(fields)
	case map[any]any:
		fields := make(map[string]Value, len(t))
		for k, child := range t {
			fields[fmt.Sprint(k)] = ValueOf(child)
		}
		return Map(fields)
	case map[string]string:
		fields := make(map[string]Value, len(t))
		for k, child := range t {
			fields[k] = Scalar(child)
		}
		return Map(fields)
	case []any:
		items := make([]Value, len(t))
		for i, child := range t {
			items[i] = ValueOf(child)
		}
		return Sequence(items...)
	case []string:
		items := make([]Value, len(t))
		for i, child := range t {
			items[i] = Scalar(child)
		}
		return Sequence(items...)
	case []map[string]any:
		items := make([]Value, len(t))
		for i, child := range t {
			items[i] = ValueOf(child)
		}
		return Sequence(items...)
	default:
		return Scalar(t)
	}
}

// Kind reports the variant.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether v is the null variant.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsMap reports whether v is the map variant.
func (v Value) IsMap() bool { return v.kind == KindMap }

// IsSequence reports whether v is the sequence variant.
func (v Value) IsSequence() bool { return v.kind == KindSequence }

// Fields returns the children of a Map, or nil for other variants.
func (v Value) Fields() map[string]Value {
	if v.kind != KindMap {
		return nil
	}
	return v.fields
}

// Items returns the children of a Sequence, or nil for other variants.
func (v Value) Items() []Value {
	if v.kind != KindSequence {
		return nil
	}
	return v.items
}

// Get returns the named child of a Map, or Null.
func (v Value) Get(key string) Value {
	if v.kind != KindMap {
		return Null()
	}
	return v.fields[key]
}

// Len is the number of children of a Map or Sequence, 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindMap:
		return len(v.fields)
	case KindSequence:
		return len(v.items)
	default:
		return 0
	}
}

// SortedKeys returns the keys of a Map in lexical order.
func (v Value) SortedKeys() []string {
	if v.kind != KindMap {
		return nil
	}
	keys := make([]string, 0, len(v.fields))
	for k := range v.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders the canonical comparison form. Scalars use FormatScalar,
// compound values use compact JSON, Null is the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindScalar:
		return FormatScalar(v.scalar)
	default:
		data, err := json.Marshal(v.Interface())
		if err != nil {
			return fmt.Sprintf("%v", v.Interface())
		}
		return string(data)
	}
}

// Interface converts v back to plain Go maps, slices and scalars.
func (v Value) Interface() any {
	switch v.kind {
	case KindScalar:
		return v.scalar
	case KindMap:
		out := make(map[string]any, len(v.fields))
		for k, child := range v.fields {
			out[k] = child.Interface()
		}
		return out
	case KindSequence:
		out := make([]any, len(v.items))
		for i, child := range v.items {
			out[i] = child.Interface()
		}
		return out
	default:
		return nil
	}
}

// Canonical is Interface with every scalar replaced by its FormatScalar string, so
// trees decoded from YAML and from the API server hash identically.
func (v Value) Canonical() any {
	switch v.kind {
	case KindScalar:
		return FormatScalar(v.scalar)
	case KindMap:
		out := make(map[string]any, len(v.fields))
		for k, child := range v.fields {
			out[k] = child.Canonical()
		}
		return out
	case KindSequence:
		out := make([]any, len(v.items))
		for i, child := range v.items {
			out[i] = child.Canonical()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON encodes the plain Go form.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes any JSON document into a Value.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = ValueOf(raw)
	return nil
}

// FormatScalar stringifies a leaf so that YAML- and JSON-decoded numbers compare equal
// (3, int64(3) and float64(3) all render as "3").
func FormatScalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
