package queryir

import (
	"reflect"
	"strings"

	"github.com/roach88/liveresults/internal/ir"
)

// Getter reads one attribute of a record.
type Getter func(field string) (ir.Value, bool)

// Match evaluates a predicate in memory with the same semantics the SQL
// backend compiles to. A nil predicate matches everything.
//
// Used by in-memory providers and test fixtures; the store evaluates
// predicates in SQLite.
func Match(p Predicate, get Getter) bool {
	if p == nil {
		return true
	}

	switch pred := p.(type) {
	case Equals:
		return matchEquals(pred, get)
	case *Equals:
		return matchEquals(*pred, get)
	case Contains:
		return matchContains(pred, get)
	case *Contains:
		return matchContains(*pred, get)
	case And:
		return matchAnd(pred, get)
	case *And:
		return matchAnd(*pred, get)
	default:
		return false
	}
}

func matchEquals(eq Equals, get Getter) bool {
	if ir.IsNull(eq.Value) {
		return false
	}
	v, ok := get(eq.Field)
	return ok && v == eq.Value
}

func matchContains(c Contains, get Getter) bool {
	v, ok := get(c.Field)
	if !ok {
		return false
	}
	s, ok := v.(ir.String)
	if !ok {
		return false
	}
	if c.CaseInsensitive {
		return strings.Contains(asciiLower(string(s)), asciiLower(c.Substring))
	}
	return strings.Contains(string(s), c.Substring)
}

func matchAnd(and And, get Getter) bool {
	for _, sub := range and.Predicates {
		if !Match(sub, get) {
			return false
		}
	}
	return true
}

// asciiLower lowercases A-Z only, like SQLite's built-in lower().
func asciiLower(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

// CompareBy orders two records by sort terms, then by id, mirroring the
// ORDER BY the SQL backend emits. Absent attributes sort first.
func CompareBy(terms []SortTerm, aID string, a Getter, bID string, b Getter) int {
	for _, term := range terms {
		av, aok := a(term.KeyPath)
		bv, bok := b(term.KeyPath)
		if !aok {
			av = ir.Null{}
		}
		if !bok {
			bv = ir.Null{}
		}
		c := ir.Compare(av, bv)
		if !term.Ascending {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return strings.Compare(aID, bID)
}

// EqualPredicates reports whether two predicates are structurally equal.
// Both nil compare equal.
func EqualPredicates(a, b Predicate) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.DeepEqual(a, b)
}
