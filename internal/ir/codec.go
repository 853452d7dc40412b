package ir

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
)

// taggedValue is the storage encoding of a Value: {"k":"<kind>","v":<json>}.
//
// The payload is chosen so that SQLite's json_extract(attrs, '$."f".v')
// orders values of one kind the same way Compare does: times are unix
// nanoseconds and blobs are lowercase hex.
type taggedValue struct {
	Kind  string          `json:"k"`
	Value json.RawMessage `json:"v"`
}

// MarshalValue encodes a Value in the tagged storage format.
func MarshalValue(v Value) ([]byte, error) {
	var (
		kind    string
		payload any
	)
	switch val := v.(type) {
	case nil, Null:
		kind, payload = "null", nil
	case Bool:
		kind, payload = KindBool.String(), bool(val)
	case Int:
		kind, payload = KindInt.String(), int64(val)
	case Uint:
		kind, payload = KindUint.String(), uint64(val)
	case Float:
		kind, payload = KindFloat.String(), float64(val)
	case String:
		kind, payload = KindString.String(), string(val)
	case Time:
		kind, payload = KindTime.String(), val.ns
	case Bytes:
		kind, payload = KindBytes.String(), hex.EncodeToString([]byte(val))
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return json.Marshal(taggedValue{Kind: kind, Value: raw})
}

// UnmarshalValue decodes a Value from the tagged storage format.
func UnmarshalValue(data []byte) (Value, error) {
	var tv taggedValue
	if err := json.Unmarshal(data, &tv); err != nil {
		return nil, fmt.Errorf("decode tagged value: %w", err)
	}
	if tv.Kind == "null" {
		return Null{}, nil
	}

	kind, err := ParseKind(tv.Kind)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(tv.Value))
	dec.UseNumber()

	switch kind {
	case KindBool:
		var b bool
		if err := dec.Decode(&b); err != nil {
			return nil, fmt.Errorf("decode bool: %w", err)
		}
		return Bool(b), nil
	case KindInt:
		var n int64
		if err := dec.Decode(&n); err != nil {
			return nil, fmt.Errorf("decode int: %w", err)
		}
		return Int(n), nil
	case KindUint:
		var n uint64
		if err := dec.Decode(&n); err != nil {
			return nil, fmt.Errorf("decode uint: %w", err)
		}
		return Uint(n), nil
	case KindFloat:
		var f float64
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("decode float: %w", err)
		}
		return Float(f), nil
	case KindString:
		var s string
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("decode string: %w", err)
		}
		return String(s), nil
	case KindTime:
		var ns int64
		if err := dec.Decode(&ns); err != nil {
			return nil, fmt.Errorf("decode time: %w", err)
		}
		return TimeFromUnixNano(ns), nil
	case KindBytes:
		var s string
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("decode bytes: %w", err)
		}
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("decode bytes: %w", err)
		}
		return NewBytes(b), nil
	default:
		return nil, fmt.Errorf("unsupported kind %s", kind)
	}
}

// SortedKeys returns the attribute names in byte order for deterministic
// iteration.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// MarshalJSON implements json.Marshaler for Object with sorted keys.
func (obj Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, k := range obj.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := MarshalValue(obj[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler for Object.
func (obj *Object) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*obj = make(Object, len(raw))
	for k, v := range raw {
		val, err := UnmarshalValue(v)
		if err != nil {
			return fmt.Errorf("Object key %q: %w", k, err)
		}
		(*obj)[k] = val
	}
	return nil
}
