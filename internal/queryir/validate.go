package queryir

import (
	"fmt"

	"github.com/roach88/liveresults/internal/ir"
)

// ValidationResult contains the warnings found in a query.
//
// Warnings flag queries that will execute but probably do not do what the
// caller meant (NULL comparisons, empty search strings, repeated sort keys).
type ValidationResult struct {
	// IsClean indicates the query produced no warnings.
	IsClean bool

	// Warnings lists suspicious constructs in the query.
	// Empty when IsClean is true.
	Warnings []string
}

// Validate inspects a query for suspicious constructs.
//
// Checks:
//  1. Select names a collection
//  2. Predicates and sort terms name an attribute
//  3. No Equals against NULL (never matches)
//  4. No empty Contains substring (matches every string)
//  5. No repeated sort key paths
//
// Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{
		warnings: []string{},
	}
	v.validateQuery(query)

	return ValidationResult{
		IsClean:  len(v.warnings) == 0,
		Warnings: v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

// addWarning appends a warning message.
func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

// validateQuery recursively validates a query node.
func (v *validator) validateQuery(q Query) {
	if q == nil {
		v.addWarning("nil query")
		return
	}

	switch query := q.(type) {
	case Select:
		v.validateSelect(query)
	case *Select:
		v.validateSelect(*query)
	default:
		v.addWarning("Unknown query type: %T", q)
	}
}

// validateSelect validates a Select query node.
func (v *validator) validateSelect(sel Select) {
	if sel.From == "" {
		v.addWarning("Select has no collection")
	}

	seen := make(map[string]bool, len(sel.OrderBy))
	for i, term := range sel.OrderBy {
		if term.KeyPath == "" {
			v.addWarning("Sort term %d has an empty key path", i)
			continue
		}
		if seen[term.KeyPath] {
			v.addWarning("Sort key path '%s' repeated - later term has no effect", term.KeyPath)
		}
		seen[term.KeyPath] = true
	}

	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}
}

// validatePredicate recursively validates a predicate node.
func (v *validator) validatePredicate(p Predicate) {
	if p == nil {
		return // nil predicates are valid (no filter)
	}

	switch pred := p.(type) {
	case Equals:
		v.validateEquals(pred)
	case *Equals:
		v.validateEquals(*pred)
	case Contains:
		v.validateContains(pred)
	case *Contains:
		v.validateContains(*pred)
	case And:
		v.validateAnd(pred)
	case *And:
		v.validateAnd(*pred)
	default:
		v.addWarning("Unknown predicate type: %T", p)
	}
}

// validateEquals validates an Equals predicate.
func (v *validator) validateEquals(eq Equals) {
	if eq.Field == "" {
		v.addWarning("Equals predicate has an empty field")
	}
	if ir.IsNull(eq.Value) {
		v.addWarning("Field '%s' compared to NULL - never matches", eq.Field)
	}
}

// validateContains validates a Contains predicate.
func (v *validator) validateContains(c Contains) {
	if c.Field == "" {
		v.addWarning("Contains predicate has an empty field")
	}
	if c.Substring == "" {
		v.addWarning("Field '%s' searched for an empty string - matches every string", c.Field)
	}
}

// validateAnd validates an And predicate.
func (v *validator) validateAnd(and And) {
	for _, subPred := range and.Predicates {
		v.validatePredicate(subPred)
	}
}
