package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/liveresults/internal/ir"
)

// marshalAttrs converts an attribute object to tagged JSON TEXT for storage.
// Keys are sorted so identical records store identical text.
func marshalAttrs(attrs ir.Object) (string, error) {
	if attrs == nil {
		attrs = ir.Object{}
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("marshal attrs: %w", err)
	}
	return string(data), nil
}

// unmarshalAttrs parses tagged JSON TEXT into an attribute object.
func unmarshalAttrs(data string) (ir.Object, error) {
	if data == "" || data == "{}" {
		return ir.Object{}, nil
	}
	var attrs ir.Object
	if err := json.Unmarshal([]byte(data), &attrs); err != nil {
		return nil, fmt.Errorf("unmarshal attrs: %w", err)
	}
	return attrs, nil
}

// marshalFields converts a schema's field kinds to JSON TEXT.
// encoding/json sorts map keys, so output is deterministic.
func marshalFields(fields map[string]ir.Kind) (string, error) {
	named := make(map[string]string, len(fields))
	for name, kind := range fields {
		if kind == ir.KindInvalid {
			return "", fmt.Errorf("marshal fields: field %q has no kind", name)
		}
		named[name] = kind.String()
	}
	data, err := json.Marshal(named)
	if err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}
	return string(data), nil
}

// unmarshalFields parses JSON TEXT into field kinds.
func unmarshalFields(data string) (map[string]ir.Kind, error) {
	var named map[string]string
	if err := json.Unmarshal([]byte(data), &named); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	fields := make(map[string]ir.Kind, len(named))
	for name, kindName := range named {
		kind, err := ir.ParseKind(kindName)
		if err != nil {
			return nil, fmt.Errorf("unmarshal fields: field %q: %w", name, err)
		}
		fields[name] = kind
	}
	return fields, nil
}
