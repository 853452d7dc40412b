package controller

import (
	"context"

	"github.com/roach88/liveresults/internal/ir"
	"github.com/roach88/liveresults/internal/queryir"
)

// Provider is the observable ordered collection the controller sections.
//
// The provider evaluates filters and ordering; the controller never does.
// Observe must deliver OnInitial before any OnUpdate, and report update
// positions as ir.Changes documents (deletions against the previous
// sequence, insertions and modifications against the new one).
//
// *store.Store implements Provider[ir.Record].
type Provider[R any] interface {
	Schema(ctx context.Context, collection string) (ir.Schema, error)
	Fetch(ctx context.Context, q queryir.Select) ([]R, error)
	Observe(ctx context.Context, q queryir.Select, obs ir.Observer[R]) (ir.Subscription, error)
}

// Accessor reads what the controller needs from an opaque record.
type Accessor[R any, ID comparable] struct {
	// Collection names the provider collection to observe.
	Collection string

	// Identity returns the stable identity of a record.
	Identity func(R) ID

	// Attr returns the attribute at a key path. It returns false when the
	// record has no such attribute.
	Attr func(R, string) (ir.Value, bool)
}

// RecordAccessor is the Accessor for ir.Record collections.
func RecordAccessor(collection string) Accessor[ir.Record, string] {
	return Accessor[ir.Record, string]{
		Collection: collection,
		Identity:   ir.RecordID,
		Attr:       ir.Record.Attr,
	}
}
