package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"golang.org/x/text/language"

	"github.com/roach88/liveresults/internal/ir"
	"github.com/roach88/liveresults/internal/partition"
)

// Title and title order names accepted in view definitions.
const (
	TitlesNone    = "none"
	TitlesKey     = "key"
	TitlesInitial = "initial"

	TitleOrderNone         = "none"
	TitleOrderAlphabetical = "alphabetical"
)

// CompileView parses a CUE value into a ViewSpec.
// The view name is the struct's label.
//
//	view: by_priority: {
//		collection:  "tasks"
//		section_key: "priority"
//		kind:        "string"
//		sort: [{key: "priority"}, {key: "title", ascending: false}]
//		where: done: false
//		titles: "initial"
//	}
//
// kind may be omitted; it is then resolved from the collection schema.
// sort defaults to the section key, ascending. Sort terms are ascending
// unless stated otherwise.
func CompileView(v cue.Value) (*ir.ViewSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.ViewSpec{
		Titles:     TitlesNone,
		TitleOrder: TitleOrderNone,
		Locale:     "en",
		KeyPolicy:  partition.SkipInvalid.String(),
	}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	var err error
	if spec.Collection, err = requiredString(v, "collection"); err != nil {
		return nil, err
	}
	if spec.SectionKey, err = requiredString(v, "section_key"); err != nil {
		return nil, err
	}

	if kindVal := v.LookupPath(cue.ParsePath("kind")); kindVal.Exists() {
		name, err := kindVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if spec.Kind, err = ir.ParseKind(name); err != nil {
			return nil, &CompileError{Field: "kind", Message: err.Error(), Pos: kindVal.Pos()}
		}
	}

	if spec.Sort, err = parseSort(v); err != nil {
		return nil, err
	}
	if len(spec.Sort) == 0 {
		spec.Sort = []ir.SortSpec{{Key: spec.SectionKey, Ascending: true}}
	}

	if spec.Where, err = parseWhere(v); err != nil {
		return nil, err
	}

	if err := optionalEnum(v, "titles", &spec.Titles, TitlesNone, TitlesKey, TitlesInitial); err != nil {
		return nil, err
	}
	if err := optionalEnum(v, "title_order", &spec.TitleOrder, TitleOrderNone, TitleOrderAlphabetical); err != nil {
		return nil, err
	}
	if err := optionalEnum(v, "key_policy", &spec.KeyPolicy, partition.SkipInvalid.String(), partition.RejectInvalid.String()); err != nil {
		return nil, err
	}

	if localeVal := v.LookupPath(cue.ParsePath("locale")); localeVal.Exists() {
		locale, err := localeVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if _, err := language.Parse(locale); err != nil {
			return nil, &CompileError{Field: "locale", Message: err.Error(), Pos: localeVal.Pos()}
		}
		spec.Locale = locale
	}

	if movesVal := v.LookupPath(cue.ParsePath("moves")); movesVal.Exists() {
		if spec.Moves, err = movesVal.Bool(); err != nil {
			return nil, formatCUEError(err)
		}
	}

	return spec, nil
}

// parseSort extracts the sort term list.
func parseSort(v cue.Value) ([]ir.SortSpec, error) {
	sortVal := v.LookupPath(cue.ParsePath("sort"))
	if !sortVal.Exists() {
		return nil, nil
	}

	iter, err := sortVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var terms []ir.SortSpec
	for iter.Next() {
		termVal := iter.Value()

		// Shorthand: a bare string sorts ascending.
		if key, err := termVal.String(); err == nil {
			terms = append(terms, ir.SortSpec{Key: key, Ascending: true})
			continue
		}

		key, err := requiredString(termVal, "key")
		if err != nil {
			return nil, err
		}
		term := ir.SortSpec{Key: key, Ascending: true}
		if ascVal := termVal.LookupPath(cue.ParsePath("ascending")); ascVal.Exists() {
			if term.Ascending, err = ascVal.Bool(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		terms = append(terms, term)
	}
	return terms, nil
}

// parseWhere extracts equality filters.
func parseWhere(v cue.Value) (ir.Object, error) {
	whereVal := v.LookupPath(cue.ParsePath("where"))
	if !whereVal.Exists() {
		return nil, nil
	}

	iter, err := whereVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	where := ir.Object{}
	for iter.Next() {
		lit, err := literal(iter.Value())
		if err != nil {
			return nil, &CompileError{
				Field:   "where." + iter.Label(),
				Message: err.Error(),
				Pos:     iter.Value().Pos(),
			}
		}
		where[iter.Label()] = lit
	}
	return where, nil
}

// literal converts a concrete CUE scalar into a Value.
func literal(v cue.Value) (ir.Value, error) {
	switch v.Kind() {
	case cue.BoolKind:
		b, err := v.Bool()
		return ir.Bool(b), err
	case cue.IntKind:
		n, err := v.Int64()
		return ir.Int(n), err
	case cue.FloatKind:
		f, err := v.Float64()
		return ir.Float(f), err
	case cue.StringKind:
		s, err := v.String()
		return ir.String(s), err
	case cue.BytesKind:
		b, err := v.Bytes()
		return ir.NewBytes(b), err
	default:
		return nil, fmt.Errorf("must be a concrete bool, number, string or bytes value")
	}
}

// requiredString looks up a concrete, non-empty string field.
func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	if s == "" {
		return "", &CompileError{
			Field:   field,
			Message: field + " must not be empty",
			Pos:     fv.Pos(),
		}
	}
	return s, nil
}

// optionalEnum reads an optional string field restricted to allowed values.
func optionalEnum(v cue.Value, field string, dst *string, allowed ...string) error {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil
	}
	s, err := fv.String()
	if err != nil {
		return formatCUEError(err)
	}
	for _, a := range allowed {
		if s == a {
			*dst = s
			return nil
		}
	}
	return &CompileError{
		Field:   field,
		Message: fmt.Sprintf("unknown value %q (want one of %v)", s, allowed),
		Pos:     fv.Pos(),
	}
}
