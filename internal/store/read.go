package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/liveresults/internal/ir"
	"github.com/roach88/liveresults/internal/queryir"
)

// ErrNoSchema is returned by Schema for collections without a schema.
var ErrNoSchema = errors.New("no schema defined")

// Schema returns the schema of a collection.
// Returns an error wrapping ErrNoSchema if none was defined.
func (s *Store) Schema(ctx context.Context, collection string) (ir.Schema, error) {
	var fieldsJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT fields FROM schemas WHERE collection = ?
	`, collection).Scan(&fieldsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Schema{}, fmt.Errorf("collection %q: %w", collection, ErrNoSchema)
	}
	if err != nil {
		return ir.Schema{}, fmt.Errorf("read schema %q: %w", collection, err)
	}

	fields, err := unmarshalFields(fieldsJSON)
	if err != nil {
		return ir.Schema{}, fmt.Errorf("read schema %q: %w", collection, err)
	}
	return ir.Schema{Collection: collection, Fields: fields}, nil
}

// Collections lists collections that have a schema, in name order.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT collection FROM schemas ORDER BY collection COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query collections: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collections: %w", err)
	}
	return names, nil
}

// Get returns one record. The boolean is false if it does not exist.
func (s *Store) Get(ctx context.Context, collection, id string) (ir.Record, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, attrs FROM records WHERE collection = ? AND id = ?
	`, collection, id)

	rec, err := scanRecordRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Record{}, false, nil
	}
	if err != nil {
		return ir.Record{}, false, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return rec, true, nil
}

// Fetch runs a query and returns the matching records in query order.
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) Fetch(ctx context.Context, q queryir.Select) ([]ir.Record, error) {
	query, params, err := s.compiler.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", q.From, err)
	}
	defer rows.Close()

	records := []ir.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", q.From, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch %s: iterate: %w", q.From, err)
	}
	return records, nil
}

// scanRecord scans one (id, seq, attrs) row.
func scanRecord(rows *sql.Rows) (ir.Record, error) {
	var (
		rec       ir.Record
		attrsJSON string
	)
	if err := rows.Scan(&rec.ID, &rec.Seq, &attrsJSON); err != nil {
		return ir.Record{}, fmt.Errorf("scan record: %w", err)
	}
	attrs, err := unmarshalAttrs(attrsJSON)
	if err != nil {
		return ir.Record{}, fmt.Errorf("record %s: %w", rec.ID, err)
	}
	rec.Attrs = attrs
	return rec, nil
}

// scanRecordRow is scanRecord for a single-row query.
func scanRecordRow(row *sql.Row) (ir.Record, error) {
	var (
		rec       ir.Record
		attrsJSON string
	)
	if err := row.Scan(&rec.ID, &rec.Seq, &attrsJSON); err != nil {
		return ir.Record{}, err
	}
	attrs, err := unmarshalAttrs(attrsJSON)
	if err != nil {
		return ir.Record{}, fmt.Errorf("record %s: %w", rec.ID, err)
	}
	rec.Attrs = attrs
	return rec, nil
}
