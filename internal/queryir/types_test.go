package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/liveresults/internal/ir"
)

func TestSealedInterfaces(t *testing.T) {
	// Compile-time check via assignment
	var _ Query = Select{}
	var _ Query = &Select{}
	var _ Predicate = Equals{}
	var _ Predicate = Contains{}
	var _ Predicate = And{}
	var _ Predicate = &And{}
}

func TestConjoin(t *testing.T) {
	eq := Equals{Field: "archived", Value: ir.Bool(false)}
	search := Contains{Field: "title", Substring: "milk", CaseInsensitive: true}

	assert.Nil(t, Conjoin())
	assert.Nil(t, Conjoin(nil, nil))
	assert.Equal(t, eq, Conjoin(nil, eq))
	assert.Equal(t, And{Predicates: []Predicate{eq, search}}, Conjoin(eq, nil, search))
}

func getter(attrs ir.Object) Getter {
	return func(field string) (ir.Value, bool) {
		v, ok := attrs[field]
		return v, ok
	}
}

func TestMatch(t *testing.T) {
	rec := getter(ir.Object{
		"title":    ir.String("Buy Milk"),
		"priority": ir.String("high"),
		"rank":     ir.Int(2),
	})

	tests := []struct {
		name string
		pred Predicate
		want bool
	}{
		{"nil matches", nil, true},
		{"equals", Equals{Field: "priority", Value: ir.String("high")}, true},
		{"equals other value", &Equals{Field: "priority", Value: ir.String("low")}, false},
		{"equals other kind", Equals{Field: "rank", Value: ir.Uint(2)}, false},
		{"equals null", Equals{Field: "rank", Value: ir.Null{}}, false},
		{"equals missing field", Equals{Field: "owner", Value: ir.String("x")}, false},
		{"contains", Contains{Field: "title", Substring: "Milk"}, true},
		{"contains case sensitive", Contains{Field: "title", Substring: "milk"}, false},
		{"contains case insensitive", &Contains{Field: "title", Substring: "MILK", CaseInsensitive: true}, true},
		{"contains on non-string", Contains{Field: "rank", Substring: "2"}, false},
		{"empty and", And{}, true},
		{"and all true", And{Predicates: []Predicate{
			Equals{Field: "rank", Value: ir.Int(2)},
			Contains{Field: "title", Substring: "Buy"},
		}}, true},
		{"and one false", &And{Predicates: []Predicate{
			Equals{Field: "rank", Value: ir.Int(2)},
			Contains{Field: "title", Substring: "Sell"},
		}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.pred, rec))
		})
	}
}

func TestCompareBy(t *testing.T) {
	terms := []SortTerm{{KeyPath: "priority", Ascending: false}, {KeyPath: "rank", Ascending: true}}
	high1 := getter(ir.Object{"priority": ir.String("high"), "rank": ir.Int(1)})
	high2 := getter(ir.Object{"priority": ir.String("high"), "rank": ir.Int(2)})
	low := getter(ir.Object{"priority": ir.String("low"), "rank": ir.Int(0)})

	assert.Equal(t, 1, CompareBy(terms, "a", high1, "b", low), "descending primary term")
	assert.Equal(t, -1, CompareBy(terms, "a", high1, "b", high2), "ascending secondary term")
	assert.Equal(t, -1, CompareBy(terms, "a", high1, "b", high1), "id tiebreaker")
	assert.Equal(t, 0, CompareBy(terms, "a", high1, "a", high1))

	missing := getter(ir.Object{})
	assert.Equal(t, -1, CompareBy([]SortTerm{{KeyPath: "rank", Ascending: true}}, "z", missing, "a", low),
		"absent attributes sort first")
}

func TestEqualPredicates(t *testing.T) {
	a := Contains{Field: "title", Substring: "milk"}
	b := Contains{Field: "title", Substring: "milk"}
	c := Contains{Field: "title", Substring: "eggs"}

	assert.True(t, EqualPredicates(nil, nil))
	assert.True(t, EqualPredicates(a, b))
	assert.False(t, EqualPredicates(a, c))
	assert.False(t, EqualPredicates(a, nil))
	assert.False(t, EqualPredicates(a, &b), "value and pointer differ")
}
