package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/liveresults/internal/ir"
)

// CompileSchema parses a CUE struct of attribute declarations into a Schema.
// The collection name is the struct's label.
//
// Attributes are declared with a CUE type or a kind name:
//
//	schema: tasks: {
//		priority: string
//		rank:     int
//		due:      "time"
//	}
func CompileSchema(v cue.Value) (*ir.Schema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	schema := &ir.Schema{Fields: make(map[string]ir.Kind)}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		schema.Collection = labels[len(labels)-1].String()
	}
	if schema.Collection == "" {
		return nil, &CompileError{
			Field:   "schema",
			Message: "schema must be declared under a collection label",
			Pos:     v.Pos(),
		}
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		kind, err := extractKind(iter.Value())
		if err != nil {
			return nil, err
		}
		schema.Fields[iter.Label()] = kind
	}

	if len(schema.Fields) == 0 {
		return nil, &CompileError{
			Field:   "schema",
			Message: "at least one attribute is required",
			Pos:     v.Pos(),
		}
	}
	return schema, nil
}

// extractKind converts a CUE type, or a string naming a kind, to an ir.Kind.
func extractKind(v cue.Value) (ir.Kind, error) {
	if v.IsConcrete() && v.Kind() == cue.StringKind {
		name, err := v.String()
		if err != nil {
			return ir.KindInvalid, formatCUEError(err)
		}
		kind, err := ir.ParseKind(name)
		if err != nil {
			return ir.KindInvalid, &CompileError{Field: "type", Message: err.Error(), Pos: v.Pos()}
		}
		return kind, nil
	}

	switch v.IncompleteKind() {
	case cue.StringKind:
		return ir.KindString, nil
	case cue.IntKind:
		return ir.KindInt, nil
	case cue.BoolKind:
		return ir.KindBool, nil
	case cue.FloatKind, cue.NumberKind:
		return ir.KindFloat, nil
	case cue.BytesKind:
		return ir.KindBytes, nil
	default:
		return ir.KindInvalid, &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}
