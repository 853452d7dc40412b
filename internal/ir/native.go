package ir

import (
	"fmt"
	"math"
	"time"
)

// ObjectFromNative converts decoded JSON or YAML attributes into an Object.
// Attributes the schema declares are coerced into the declared kind; the
// rest take the kind their decoded value suggests.
func ObjectFromNative(raw map[string]any, schema Schema) (Object, error) {
	obj := make(Object, len(raw))
	for name, v := range raw {
		val, err := ValueFromNative(v, schema, name)
		if err != nil {
			return nil, err
		}
		obj[name] = val
	}
	return obj, nil
}

// ValueFromNative converts one decoded attribute. Nil becomes Null.
func ValueFromNative(v any, schema Schema, name string) (Value, error) {
	if v == nil {
		return Null{}, nil
	}
	if kind, declared := schema.Field(name); declared {
		// YAML decodes integral floats as int.
		if n, isInt := v.(int); isInt && kind == KindFloat {
			v = float64(n)
		}
		val, ok := Coerce(v, kind)
		if !ok {
			return nil, fmt.Errorf("attribute %q: %v (%T) is not a %s", name, v, v, kind)
		}
		return val, nil
	}
	return inferValue(v, name)
}

// inferValue picks a kind for an undeclared attribute. JSON numbers without
// a fraction are ints.
func inferValue(v any, name string) (Value, error) {
	switch val := v.(type) {
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint64:
		return Uint(val), nil
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return Int(int64(val)), nil
		}
		return Float(val), nil
	case string:
		return String(val), nil
	case time.Time:
		return NewTime(val), nil
	case []byte:
		return NewBytes(val), nil
	default:
		return nil, fmt.Errorf("attribute %q: unsupported value %v (%T)", name, v, v)
	}
}
