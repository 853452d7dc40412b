package controller

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/liveresults/internal/ir"
	"github.com/roach88/liveresults/internal/partition"
	"github.com/roach88/liveresults/internal/queryir"
)

// ErrNoItem is returned by Item when the index path addresses nothing.
var ErrNoItem = errors.New("no item at index path")

// NumberOfSections returns the section count of the current snapshot.
func (c *Controller[R, ID]) NumberOfSections() int {
	return c.snap.Load().partition.Len()
}

// NumberOfItems returns the item count of a section, or 0 if the section
// does not exist.
func (c *Controller[R, ID]) NumberOfItems(section int) int {
	return c.snap.Load().partition.Count(section)
}

// Section returns the key of the section at index.
func (c *Controller[R, ID]) Section(index int) (ir.Value, bool) {
	return c.snap.Load().partition.KeyAt(index)
}

// IndexOf returns the index of the section with the given key.
func (c *Controller[R, ID]) IndexOf(key ir.Value) (int, bool) {
	return c.snap.Load().partition.IndexOf(key)
}

// Sections returns the section keys in order.
func (c *Controller[R, ID]) Sections() []ir.Value {
	return c.snap.Load().partition.Keys()
}

// ItemID returns the identity at an index path without querying the
// provider.
func (c *Controller[R, ID]) ItemID(path ir.IndexPath) (ID, bool) {
	m, ok := c.snap.Load().partition.Member(path)
	return m.ID, ok
}

// IndexTitles returns the section index titles, or nil if no title
// formatter is configured.
//
// Titles may be reordered by the title sorter, so titles[i] does not
// necessarily name section i; use IndexPath or IndexTitlePairs to resolve
// a title.
func (c *Controller[R, ID]) IndexTitles() []string {
	return slices.Clone(c.snap.Load().titles)
}

// IndexTitlePairs returns each index title with the key of its section, in
// title order.
func (c *Controller[R, ID]) IndexTitlePairs() []partition.SectionTitle {
	return slices.Clone(c.snap.Load().pairs)
}

// IndexPath returns the first item of the section named by an index title.
// Unknown titles resolve to (0,0).
func (c *Controller[R, ID]) IndexPath(title string) ir.IndexPath {
	snap := c.snap.Load()
	for _, pair := range snap.pairs {
		if pair.Title != title {
			continue
		}
		if idx, ok := snap.partition.IndexOf(pair.Key); ok {
			return ir.IndexPath{Section: idx, Item: 0}
		}
	}
	return ir.IndexPath{}
}

// Item resolves an index path into a full record with a live provider
// query. Call it from the consumer context only.
func (c *Controller[R, ID]) Item(ctx context.Context, path ir.IndexPath) (R, error) {
	var zero R

	snap := c.snap.Load()
	member, ok := snap.partition.Member(path)
	if !ok {
		return zero, fmt.Errorf("item %s: %w", path, ErrNoItem)
	}
	key, _ := snap.partition.KeyAt(path.Section)

	q, cfg := c.currentQuery()
	q.Filter = queryir.Conjoin(q.Filter, queryir.Equals{Field: cfg.keyPath, Value: key})

	records, err := c.provider.Fetch(ctx, q)
	if err != nil {
		return zero, fmt.Errorf("item %s: %w", path, err)
	}
	for _, rec := range records {
		if c.access.Identity(rec) == member.ID {
			return rec, nil
		}
	}
	return zero, fmt.Errorf("item %s: %w", path, ErrNoItem)
}

// Objects returns the unsectioned result of the current configuration with
// a live provider query. Call it from the consumer context only.
func (c *Controller[R, ID]) Objects(ctx context.Context) ([]R, error) {
	q, _ := c.currentQuery()
	records, err := c.provider.Fetch(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("objects %s: %w", c.access.Collection, err)
	}
	return records, nil
}
