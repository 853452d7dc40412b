package diff

import (
	"cmp"
	"slices"

	"github.com/roach88/liveresults/internal/ir"
)

// Section is one generation of a section: its key and ordered item identities.
type Section[K comparable, ID comparable] struct {
	Key   K
	Items []ID
}

// Options tunes Nested.
type Options struct {
	// IncludeMoves pairs a delete and an insert of the same section key or
	// item identity into a move. When false (the default) moves are reported
	// as a delete plus an insert, which is what batch-update consumers accept.
	IncludeMoves bool

	// Updated lists items the source reported as modified, already
	// translated into new-generation index paths.
	Updated []ir.IndexPath
}

// Move relocates a section from an old index to a new index.
type Move struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// PathMove relocates an item from an old index path to a new index path.
type PathMove struct {
	From ir.IndexPath `json:"from"`
	To   ir.IndexPath `json:"to"`
}

// Script is a two-level edit script.
//
// Deletions (sections and items) index the old generation; insertions,
// updates and move targets index the new generation. Item entries never
// reference a section that was itself inserted or deleted. All slices are
// sorted ascending.
type Script struct {
	SectionInserts []int
	SectionDeletes []int
	SectionMoves   []Move

	ItemInserts []ir.IndexPath
	ItemDeletes []ir.IndexPath
	ItemUpdates []ir.IndexPath
	ItemMoves   []PathMove
}

// HasSectionChanges reports whether the section-level script is non-empty.
func (s Script) HasSectionChanges() bool {
	return len(s.SectionInserts) > 0 || len(s.SectionDeletes) > 0 || len(s.SectionMoves) > 0
}

// HasItemChanges reports whether the item-level script is non-empty.
func (s Script) HasItemChanges() bool {
	return len(s.ItemInserts) > 0 || len(s.ItemDeletes) > 0 ||
		len(s.ItemUpdates) > 0 || len(s.ItemMoves) > 0
}

// IsEmpty reports whether the script changes nothing.
func (s Script) IsEmpty() bool {
	return !s.HasSectionChanges() && !s.HasItemChanges()
}

// ItemDeletesWithMoves returns item deletions plus the sources of item moves,
// for consumers that apply moves as delete+insert.
func (s Script) ItemDeletesWithMoves() []ir.IndexPath {
	out := slices.Clone(s.ItemDeletes)
	for _, m := range s.ItemMoves {
		out = append(out, m.From)
	}
	slices.SortFunc(out, comparePaths)
	return out
}

// ItemInsertsWithMoves returns item insertions plus the targets of item moves.
func (s Script) ItemInsertsWithMoves() []ir.IndexPath {
	out := slices.Clone(s.ItemInserts)
	for _, m := range s.ItemMoves {
		out = append(out, m.To)
	}
	slices.SortFunc(out, comparePaths)
	return out
}

// Nested computes the two-level edit script between two generations.
//
//  1. Sections are diffed by key alone.
//  2. Sections present in both generations have their items diffed by identity.
//  3. With IncludeMoves, deletes and inserts of the same key or identity pair
//     into moves; otherwise they stay separate.
//  4. Updates landing on an inserted section, an inserted item or a move
//     target are dropped; an item is never both inserted and updated.
//  5. Item entries targeting a section that is empty in the relevant
//     generation are dropped.
//
// Nested never fails. Diffing a generation against itself yields an empty
// script.
func Nested[K comparable, ID comparable](old, new []Section[K, ID], opts Options) Script {
	var script Script

	sectionEdits := Flat(sectionKeys(old), sectionKeys(new))
	deletedSections := Deletions(sectionEdits)
	insertedSections := Insertions(sectionEdits)
	common := Matches(sectionEdits)

	if opts.IncludeMoves {
		var moved [][2]int
		deletedSections, insertedSections, moved = pairMoves(
			deletedSections, insertedSections,
			func(i int) K { return old[i].Key },
			func(i int) K { return new[i].Key },
		)
		for _, m := range moved {
			script.SectionMoves = append(script.SectionMoves, Move{From: m[0], To: m[1]})
		}
		// A moved section still carries its own item changes.
		common = append(common, moved...)
	}
	script.SectionDeletes = deletedSections
	script.SectionInserts = insertedSections

	oldEmpty := func(s int) bool { return len(old[s].Items) == 0 }
	newEmpty := func(s int) bool { return len(new[s].Items) == 0 }

	for _, pair := range common {
		o, n := pair[0], pair[1]
		for _, e := range Flat(old[o].Items, new[n].Items) {
			switch e.Op {
			case OpDelete:
				if !oldEmpty(o) {
					script.ItemDeletes = append(script.ItemDeletes, ir.IndexPath{Section: o, Item: e.Old})
				}
			case OpInsert:
				if !newEmpty(n) {
					script.ItemInserts = append(script.ItemInserts, ir.IndexPath{Section: n, Item: e.New})
				}
			}
		}
	}
	slices.SortFunc(script.ItemDeletes, comparePaths)
	slices.SortFunc(script.ItemInserts, comparePaths)

	if opts.IncludeMoves {
		script.ItemDeletes, script.ItemInserts, script.ItemMoves = pairItemMoves(
			script.ItemDeletes, script.ItemInserts,
			func(p ir.IndexPath) ID { return old[p.Section].Items[p.Item] },
			func(p ir.IndexPath) ID { return new[p.Section].Items[p.Item] },
		)
	}

	script.ItemUpdates = filterUpdates(opts.Updated, new, script)
	return script
}

// filterUpdates keeps updates that address an existing, non-new item.
func filterUpdates[K comparable, ID comparable](updated []ir.IndexPath, new []Section[K, ID], script Script) []ir.IndexPath {
	if len(updated) == 0 {
		return nil
	}

	insertedSection := make(map[int]bool, len(script.SectionInserts)+len(script.SectionMoves))
	for _, s := range script.SectionInserts {
		insertedSection[s] = true
	}
	insertedItem := make(map[ir.IndexPath]bool, len(script.ItemInserts)+len(script.ItemMoves))
	for _, p := range script.ItemInserts {
		insertedItem[p] = true
	}
	for _, m := range script.ItemMoves {
		insertedItem[m.To] = true
	}

	seen := make(map[ir.IndexPath]bool, len(updated))
	var out []ir.IndexPath
	for _, p := range updated {
		if p.Section < 0 || p.Section >= len(new) {
			continue
		}
		if p.Item < 0 || p.Item >= len(new[p.Section].Items) {
			continue
		}
		if insertedSection[p.Section] || insertedItem[p] || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	slices.SortFunc(out, comparePaths)
	return out
}

// pairMoves matches deleted and inserted indices whose symbols are equal.
// Returns the unmatched deletes and inserts plus (from, to) pairs.
func pairMoves[T comparable](deleted, inserted []int, oldAt, newAt func(int) T) ([]int, []int, [][2]int) {
	if len(deleted) == 0 || len(inserted) == 0 {
		return deleted, inserted, nil
	}

	byValue := make(map[T]int, len(deleted))
	for _, d := range deleted {
		byValue[oldAt(d)] = d
	}

	var keptInserts []int
	var moves [][2]int
	used := make(map[int]bool)
	for _, i := range inserted {
		if d, ok := byValue[newAt(i)]; ok && !used[d] {
			used[d] = true
			moves = append(moves, [2]int{d, i})
			continue
		}
		keptInserts = append(keptInserts, i)
	}

	var keptDeletes []int
	for _, d := range deleted {
		if !used[d] {
			keptDeletes = append(keptDeletes, d)
		}
	}
	return keptDeletes, keptInserts, moves
}

// pairItemMoves is pairMoves for index paths.
func pairItemMoves[ID comparable](deleted, inserted []ir.IndexPath, oldAt, newAt func(ir.IndexPath) ID) ([]ir.IndexPath, []ir.IndexPath, []PathMove) {
	if len(deleted) == 0 || len(inserted) == 0 {
		return deleted, inserted, nil
	}

	byID := make(map[ID]ir.IndexPath, len(deleted))
	for _, d := range deleted {
		byID[oldAt(d)] = d
	}

	var keptInserts []ir.IndexPath
	var moves []PathMove
	used := make(map[ir.IndexPath]bool)
	for _, i := range inserted {
		if d, ok := byID[newAt(i)]; ok && !used[d] {
			used[d] = true
			moves = append(moves, PathMove{From: d, To: i})
			continue
		}
		keptInserts = append(keptInserts, i)
	}

	var keptDeletes []ir.IndexPath
	for _, d := range deleted {
		if !used[d] {
			keptDeletes = append(keptDeletes, d)
		}
	}
	return keptDeletes, keptInserts, moves
}

func sectionKeys[K comparable, ID comparable](sections []Section[K, ID]) []K {
	keys := make([]K, len(sections))
	for i, s := range sections {
		keys[i] = s.Key
	}
	return keys
}

func comparePaths(a, b ir.IndexPath) int {
	if c := cmp.Compare(a.Section, b.Section); c != 0 {
		return c
	}
	return cmp.Compare(a.Item, b.Item)
}
