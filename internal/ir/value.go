package ir

import (
	"bytes"
	"cmp"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"
)

// Value is a sealed interface representing a section key or record attribute.
// Only Null, Bool, Int, Uint, Float, String, Time and Bytes implement it.
//
// Every implementation is comparable with == and usable as a map key. Time is
// stored as UTC unix nanoseconds and Bytes is string-backed for that reason.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null represents an absent attribute value.
// A Null is never a valid section key.
type Null struct{}

func (Null) value() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) value() {}

// Int represents a signed integer of any width (widened to int64).
type Int int64

func (Int) value() {}

// Uint represents an unsigned integer of any width (widened to uint64).
type Uint uint64

func (Uint) value() {}

// Float represents a floating point value (float32 is widened to float64).
type Float float64

func (Float) value() {}

// String represents a text value.
type String string

func (String) value() {}

// Time represents a timestamp with nanosecond precision.
// The zero Time is the unix epoch.
type Time struct {
	ns int64
}

func (Time) value() {}

// NewTime converts a time.Time into a Time, dropping location and the
// monotonic clock reading.
func NewTime(t time.Time) Time {
	return Time{ns: t.UnixNano()}
}

// TimeFromUnixNano builds a Time from unix nanoseconds.
func TimeFromUnixNano(ns int64) Time {
	return Time{ns: ns}
}

// T returns the timestamp as a UTC time.Time.
func (t Time) T() time.Time {
	return time.Unix(0, t.ns).UTC()
}

// UnixNano returns the timestamp as unix nanoseconds.
func (t Time) UnixNano() int64 {
	return t.ns
}

// Bytes represents an opaque byte blob.
// Backed by string so that the value stays comparable.
type Bytes string

func (Bytes) value() {}

// NewBytes copies b into a Bytes value.
func NewBytes(b []byte) Bytes {
	return Bytes(string(b))
}

// Kind identifies the primitive type of a Value.
type Kind int

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindTime
	KindBytes
)

var kindNames = map[Kind]string{
	KindInvalid: "invalid",
	KindBool:    "bool",
	KindInt:     "int",
	KindUint:    "uint",
	KindFloat:   "float",
	KindString:  "string",
	KindTime:    "time",
	KindBytes:   "bytes",
}

// kindAliases maps schema type names to kinds. Every integer width collapses
// into its signed or unsigned kind.
var kindAliases = map[string]Kind{
	"bool":    KindBool,
	"boolean": KindBool,
	"int":     KindInt,
	"int8":    KindInt,
	"int16":   KindInt,
	"int32":   KindInt,
	"int64":   KindInt,
	"uint":    KindUint,
	"uint8":   KindUint,
	"uint16":  KindUint,
	"uint32":  KindUint,
	"uint64":  KindUint,
	"float":   KindFloat,
	"float32": KindFloat,
	"float64": KindFloat,
	"double":  KindFloat,
	"string":  KindString,
	"time":    KindTime,
	"date":    KindTime,
	"bytes":   KindBytes,
	"data":    KindBytes,
}

// String returns the canonical name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind resolves a schema type name (e.g. "int32", "date", "data").
func ParseKind(name string) (Kind, error) {
	if k, ok := kindAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return k, nil
	}
	return KindInvalid, fmt.Errorf("unknown kind %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	if string(text) == kindNames[KindInvalid] {
		*k = KindInvalid
		return nil
	}
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// KindOf returns the kind of v. Null and nil report KindInvalid.
func KindOf(v Value) Kind {
	switch v.(type) {
	case Bool:
		return KindBool
	case Int:
		return KindInt
	case Uint:
		return KindUint
	case Float:
		return KindFloat
	case String:
		return KindString
	case Time:
		return KindTime
	case Bytes:
		return KindBytes
	default:
		return KindInvalid
	}
}

// IsNull reports whether v is absent (nil or Null).
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// IsKey reports whether v can serve as a section key: it is present and
// equal to itself, which rules out a NaN Float.
func IsKey(v Value) bool {
	if IsNull(v) {
		return false
	}
	if f, ok := v.(Float); ok && math.IsNaN(float64(f)) {
		return false
	}
	return true
}

// Coerce converts a dynamic attribute value into a Value of the wanted kind.
//
// Accepted inputs are Values of the wanted kind and the Go native types that
// map onto it (every int/uint width, float32/float64, string, []byte,
// time.Time). Integral floats coerce into integer kinds, which is what JSON
// and YAML decoders produce, and RFC 3339 strings coerce into KindTime.
// Returns false for nil, Null, NaN and anything that does not fit.
func Coerce(v any, want Kind) (Value, bool) {
	if v == nil {
		return nil, false
	}
	if val, ok := v.(Value); ok {
		if KindOf(val) == want {
			if !IsKey(val) {
				return nil, false
			}
			return val, true
		}
		v = native(val)
		if v == nil {
			return nil, false
		}
	}

	switch want {
	case KindBool:
		if b, ok := v.(bool); ok {
			return Bool(b), true
		}
	case KindInt:
		if n, ok := toInt64(v); ok {
			return Int(n), true
		}
	case KindUint:
		if n, ok := toUint64(v); ok {
			return Uint(n), true
		}
	case KindFloat:
		switch f := v.(type) {
		case float64:
			if !math.IsNaN(f) {
				return Float(f), true
			}
		case float32:
			if !math.IsNaN(float64(f)) {
				return Float(float64(f)), true
			}
		}
	case KindString:
		if s, ok := v.(string); ok {
			return String(s), true
		}
	case KindTime:
		switch t := v.(type) {
		case time.Time:
			return NewTime(t), true
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, t)
			if err != nil {
				return nil, false
			}
			return NewTime(parsed), true
		}
	case KindBytes:
		if b, ok := v.([]byte); ok {
			return NewBytes(b), true
		}
	}
	return nil, false
}

// native unwraps a Value into the Go type Coerce understands.
func native(v Value) any {
	switch val := v.(type) {
	case Bool:
		return bool(val)
	case Int:
		return int64(val)
	case Uint:
		return uint64(val)
	case Float:
		return float64(val)
	case String:
		return string(val)
	case Time:
		return val.T()
	case Bytes:
		return []byte(val)
	default:
		return nil
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}

func toUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	case float64:
		if n != math.Trunc(n) || n < 0 || n >= math.MaxUint64 {
			return 0, false
		}
		return uint64(n), true
	default:
		i, ok := toInt64(v)
		if !ok || i < 0 {
			return 0, false
		}
		return uint64(i), true
	}
}

// Compare orders two values. Values of different kinds order by kind, with
// Null first; within a kind the natural order applies (false < true, bytewise
// for strings and blobs, chronological for times).
func Compare(a, b Value) int {
	ka, kb := KindOf(a), KindOf(b)
	if ka != kb {
		return cmp.Compare(ka, kb)
	}
	switch av := a.(type) {
	case Bool:
		bv := b.(Bool)
		switch {
		case av == bv:
			return 0
		case !bool(av):
			return -1
		default:
			return 1
		}
	case Int:
		return cmp.Compare(av, b.(Int))
	case Uint:
		return cmp.Compare(av, b.(Uint))
	case Float:
		return cmp.Compare(av, b.(Float))
	case String:
		return strings.Compare(string(av), string(b.(String)))
	case Time:
		return cmp.Compare(av.ns, b.(Time).ns)
	case Bytes:
		return bytes.Compare([]byte(av), []byte(b.(Bytes)))
	default:
		return 0
	}
}

// Format renders v for logs, tables and golden files.
func Format(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return "null"
	case Bool:
		return fmt.Sprintf("%t", bool(val))
	case Int:
		return fmt.Sprintf("%d", int64(val))
	case Uint:
		return fmt.Sprintf("%d", uint64(val))
	case Float:
		return fmt.Sprintf("%g", float64(val))
	case String:
		return string(val)
	case Time:
		return val.T().Format(time.RFC3339Nano)
	case Bytes:
		return "0x" + hex.EncodeToString([]byte(val))
	default:
		return fmt.Sprintf("%v", v)
	}
}
