package queryir

import "github.com/roach88/liveresults/internal/ir"

// Query represents an abstract query in the QueryIR.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in backend compilers.
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Predicate represents a filter condition in the QueryIR.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Equals: field = literal_value
//   - Contains: field contains a substring (search predicates)
//   - And: all predicates must be true
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// SortTerm orders results by one attribute.
type SortTerm struct {
	KeyPath   string `json:"key_path"`
	Ascending bool   `json:"ascending"`
}

// Select represents an ordered, filtered read of one collection.
//
// Semantics:
//
//	SELECT id, seq, attrs FROM records
//	WHERE collection = <from> AND <filter>
//	ORDER BY <order_by...>, id
//
// Example:
//
//	Select{
//	  From:   "tasks",
//	  Filter: &Equals{Field: "archived", Value: ir.Bool(false)},
//	  OrderBy: []SortTerm{
//	    {KeyPath: "priority", Ascending: false},
//	    {KeyPath: "title", Ascending: true},
//	  },
//	}
//
// The record id is always the final tiebreaker so that two reads of the same
// data return the same sequence.
type Select struct {
	From    string     // Collection name
	Filter  Predicate  // WHERE conditions (nil = no filter)
	OrderBy []SortTerm // Primary term first
}

func (Select) queryNode() {}

// Equals represents a field-equals-literal predicate.
//
// Semantics:
//
//	<field> = <value>
//
// Values compare by kind and payload; Null never equals anything.
type Equals struct {
	Field string   // Attribute name
	Value ir.Value // Literal value
}

func (Equals) predicateNode() {}

// Contains represents a substring match on a string attribute.
//
// Semantics:
//
//	instr(<field>, <substring>) > 0
//
// CaseInsensitive folds ASCII letters only, matching SQLite's lower().
// Non-string attributes never match.
type Contains struct {
	Field           string
	Substring       string
	CaseInsensitive bool
}

func (Contains) predicateNode() {}

// And represents a conjunction of predicates (all must be true).
// Empty Predicates slice means "always true".
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Conjoin combines predicates into one, dropping nils.
// Returns nil when nothing remains and the sole predicate when only one does.
func Conjoin(preds ...Predicate) Predicate {
	var kept []Predicate
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return And{Predicates: kept}
	}
}
