package views

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/liveresults/internal/compiler"
	"github.com/roach88/liveresults/internal/controller"
	"github.com/roach88/liveresults/internal/ir"
	"github.com/roach88/liveresults/internal/queryir"
	"github.com/roach88/liveresults/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "views.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func defineGroceries(t *testing.T, s *store.Store) {
	t.Helper()
	require.NoError(t, s.DefineSchema(context.Background(), ir.Schema{
		Collection: "groceries",
		Fields: map[string]ir.Kind{
			"aisle": ir.KindString,
			"name":  ir.KindString,
			"done":  ir.KindBool,
		},
	}))
}

func grocery(id, aisle, name string, done bool) ir.Record {
	return ir.Record{ID: id, Attrs: ir.Object{
		"aisle": ir.String(aisle),
		"name":  ir.String(name),
		"done":  ir.Bool(done),
	}}
}

func byAisle() ir.ViewSpec {
	return ir.ViewSpec{
		Name:       "by_aisle",
		Collection: "groceries",
		SectionKey: "aisle",
		Sort: []ir.SortSpec{
			{Key: "aisle", Ascending: true},
			{Key: "name", Ascending: true},
		},
		Titles:     compiler.TitlesInitial,
		TitleOrder: compiler.TitleOrderAlphabetical,
		Locale:     "en",
		KeyPolicy:  "skip",
	}
}

func TestOptions_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ir.ViewSpec)
		errMsg string
	}{
		{"bad locale", func(v *ir.ViewSpec) { v.Locale = "not a locale!" }, "locale"},
		{"bad key policy", func(v *ir.ViewSpec) { v.KeyPolicy = "strict" }, "key policy"},
		{"bad titles", func(v *ir.ViewSpec) { v.Titles = "emoji" }, "titles"},
		{"bad title order", func(v *ir.ViewSpec) { v.TitleOrder = "random" }, "title_order"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := byAisle()
			tt.mutate(&view)
			_, err := Options(view)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestOptions_Defaults(t *testing.T) {
	opts, err := Options(ir.ViewSpec{Name: "bare"})
	require.NoError(t, err)
	assert.Len(t, opts, 3)
}

func TestPredicates_AttributeOrder(t *testing.T) {
	preds := Predicates(ir.Object{"name": ir.String("milk"), "done": ir.Bool(false)})

	assert.Equal(t, []queryir.Predicate{
		queryir.Equals{Field: "done", Value: ir.Bool(false)},
		queryir.Equals{Field: "name", Value: ir.String("milk")},
	}, preds)
	assert.Nil(t, Predicates(nil))
}

func TestSortTerms(t *testing.T) {
	terms := SortTerms([]ir.SortSpec{{Key: "aisle", Ascending: true}, {Key: "name"}})

	assert.Equal(t, []queryir.SortTerm{
		{KeyPath: "aisle", Ascending: true},
		{KeyPath: "name", Ascending: false},
	}, terms)
}

func TestResolveKind(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	view := byAisle()
	assert.Equal(t, ir.KindInvalid, ResolveKind(ctx, s, view), "no schema yet")

	defineGroceries(t, s)
	assert.Equal(t, ir.KindString, ResolveKind(ctx, s, view))

	view.Kind = ir.KindInt
	assert.Equal(t, ir.KindInt, ResolveKind(ctx, s, view), "declared kind wins")
}

func TestNew_SchemaUnavailable(t *testing.T) {
	_, err := New(context.Background(), openStore(t), byAisle())

	require.Error(t, err)
	assert.True(t, controller.IsConfigError(err, controller.ErrCodeSchemaUnavailable))
}

func TestNew_SectionsAndTitles(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	defineGroceries(t, s)
	_, err := s.PutBatch(ctx, "groceries", []ir.Record{
		grocery("1", "dairy", "milk", false),
		grocery("2", "bakery", "bread", false),
		grocery("3", "dairy", "butter", true),
	})
	require.NoError(t, err)

	view := byAisle()
	view.Where = ir.Object{"done": ir.Bool(false)}

	c, err := New(ctx, s, view)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	require.NoError(t, c.Start(ctx))
	require.NoError(t, s.Barrier(ctx))

	assert.Equal(t, []ir.Value{ir.String("bakery"), ir.String("dairy")}, c.Sections())
	assert.Equal(t, 1, c.NumberOfItems(1), "done items are filtered out")
	assert.Equal(t, []string{"B", "D"}, c.IndexTitles())

	id, ok := c.ItemID(ir.IndexPath{Section: 1, Item: 0})
	require.True(t, ok)
	assert.Equal(t, "1", id)
}
