package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/liveresults/internal/ir"
	"github.com/roach88/liveresults/internal/metrics"
)

// DefineSchema creates or replaces the schema of a collection.
// Existing records are not revalidated.
func (s *Store) DefineSchema(ctx context.Context, schema ir.Schema) error {
	if schema.Collection == "" {
		return fmt.Errorf("define schema: empty collection name")
	}
	fieldsJSON, err := marshalFields(schema.Fields)
	if err != nil {
		return fmt.Errorf("define schema: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO schemas (collection, fields)
		VALUES (?, ?)
		ON CONFLICT(collection) DO UPDATE SET fields = excluded.fields
	`, schema.Collection, fieldsJSON)
	if err != nil {
		return fmt.Errorf("define schema: %w", err)
	}

	s.logger.Debug("schema defined",
		"collection", schema.Collection,
		"fields", len(schema.Fields),
	)
	return nil
}

// Put inserts or replaces a record and announces the write.
// The record's Seq is stamped from the store clock; the stamped record is
// returned.
//
// When the collection has a schema, declared attributes must hold a value of
// the declared kind (or Null). Undeclared attributes are stored as-is.
func (s *Store) Put(ctx context.Context, collection string, rec ir.Record) (ir.Record, error) {
	out, err := s.PutBatch(ctx, collection, []ir.Record{rec})
	if err != nil {
		return ir.Record{}, err
	}
	return out[0], nil
}

// PutBatch writes many records in one transaction and one notification.
// Either every record is written or none is.
func (s *Store) PutBatch(ctx context.Context, collection string, recs []ir.Record) ([]ir.Record, error) {
	if collection == "" {
		return nil, fmt.Errorf("put: empty collection name")
	}
	if len(recs) == 0 {
		return nil, nil
	}

	schema, err := s.Schema(ctx, collection)
	hasSchema := err == nil
	if err != nil && !errors.Is(err, ErrNoSchema) {
		return nil, fmt.Errorf("put: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("put: begin: %w", err)
	}
	defer tx.Rollback()

	out := make([]ir.Record, 0, len(recs))
	for _, rec := range recs {
		if rec.ID == "" {
			return nil, fmt.Errorf("put: record has empty id")
		}
		if hasSchema {
			if err := checkAttrs(schema, rec.Attrs); err != nil {
				return nil, fmt.Errorf("put %s/%s: %w", collection, rec.ID, err)
			}
		}
		attrsJSON, err := marshalAttrs(rec.Attrs)
		if err != nil {
			return nil, fmt.Errorf("put %s/%s: %w", collection, rec.ID, err)
		}

		rec.Seq = s.clock.Next()
		if err := upsertRecord(ctx, tx, collection, rec, attrsJSON); err != nil {
			return nil, fmt.Errorf("put %s/%s: %w", collection, rec.ID, err)
		}
		out = append(out, rec)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("put: commit: %w", err)
	}

	metrics.StoreWrites.WithLabelValues(collection, "put").Add(float64(len(out)))
	s.announce(collection)
	return out, nil
}

// Delete removes a record and announces the write.
// Returns false if no record had that id.
func (s *Store) Delete(ctx context.Context, collection, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM records WHERE collection = ? AND id = ?
	`, collection, id)
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if n == 0 {
		return false, nil
	}

	s.clock.Next()
	metrics.StoreWrites.WithLabelValues(collection, "delete").Inc()
	s.announce(collection)
	return true, nil
}

// upsertRecord writes one record inside a transaction.
func upsertRecord(ctx context.Context, tx *sql.Tx, collection string, rec ir.Record, attrsJSON string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO records (collection, id, seq, attrs)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			seq = excluded.seq,
			attrs = excluded.attrs
	`, collection, rec.ID, rec.Seq, attrsJSON)
	return err
}

// checkAttrs verifies declared attributes against the schema.
func checkAttrs(schema ir.Schema, attrs ir.Object) error {
	for _, name := range attrs.SortedKeys() {
		want, declared := schema.Field(name)
		if !declared {
			continue
		}
		v := attrs[name]
		if ir.IsNull(v) {
			continue
		}
		if got := ir.KindOf(v); got != want {
			return fmt.Errorf("attribute %q is %s, schema declares %s", name, got, want)
		}
	}
	return nil
}

// announce queues a collection change for the notifier.
func (s *Store) announce(collection string) {
	if !s.queue.Enqueue(change{kind: changeCollection, collection: collection}) {
		s.logger.Debug("change dropped: store closed", "collection", collection)
	}
}
