package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/roach88/liveresults/internal/ir"
)

// createTestStore opens a fresh store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord builds a record from string attributes.
func createTestRecord(id string, attrs map[string]string) ir.Record {
	obj := ir.Object{}
	for k, v := range attrs {
		obj[k] = ir.String(v)
	}
	return ir.Record{ID: id, Attrs: obj}
}

// mustPut writes records and fails the test on error.
func mustPut(t *testing.T, s *Store, collection string, recs ...ir.Record) []ir.Record {
	t.Helper()
	out, err := s.PutBatch(context.Background(), collection, recs)
	if err != nil {
		t.Fatalf("PutBatch() failed: %v", err)
	}
	return out
}

// observation is one notification captured by recorder.
type observation struct {
	kind    string
	ids     []string
	changes ir.Changes
	err     error
}

// recorder is an ir.Observer that keeps every notification.
type recorder struct {
	mu   sync.Mutex
	seen []observation
}

func ids(records []ir.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func (r *recorder) OnInitial(records []ir.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, observation{kind: "initial", ids: ids(records)})
}

func (r *recorder) OnUpdate(records []ir.Record, changes ir.Changes) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, observation{kind: "update", ids: ids(records), changes: changes})
}

func (r *recorder) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, observation{kind: "error", err: err})
}

func (r *recorder) observations() []observation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]observation(nil), r.seen...)
}
