package diff

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Op is the kind of one edit.
type Op int

const (
	// OpEqual keeps an element present in both sequences.
	OpEqual Op = iota
	// OpDelete removes an element of the old sequence.
	OpDelete
	// OpInsert adds an element of the new sequence.
	OpInsert
)

// String returns the op name.
func (o Op) String() string {
	switch o {
	case OpEqual:
		return "equal"
	case OpDelete:
		return "delete"
	case OpInsert:
		return "insert"
	default:
		return "unknown"
	}
}

// Edit is one element-level step of a flat edit script.
// Old is the index in the old sequence (-1 for inserts), New the index in
// the new sequence (-1 for deletes).
type Edit struct {
	Op  Op
	Old int
	New int
}

// firstSymbol skips control characters; any valid code point works.
const firstSymbol = 0x100

// Flat computes a minimal edit script turning old into new.
//
// Elements are matched by equality. Each distinct element is encoded as one
// rune and the sequences are diffed with diffmatchpatch's Myers
// implementation, with the timeout disabled so the script stays minimal.
// If the inputs hold more distinct elements than there are code points the
// script degrades to deleting everything and inserting everything.
func Flat[T comparable](old, new []T) []Edit {
	switch {
	case len(old) == 0:
		return replaceAll(0, len(new))
	case len(new) == 0:
		return replaceAll(len(old), 0)
	}

	enc := newRuneEncoder[T](len(old) + len(new))
	a, okA := enc.encode(old)
	b, okB := enc.encode(new)
	if !okA || !okB {
		return replaceAll(len(old), len(new))
	}

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	diffs := dmp.DiffMainRunes(a, b, false)

	edits := make([]Edit, 0, max(len(old), len(new)))
	oi, ni := 0, 0
	for _, d := range diffs {
		n := len([]rune(d.Text))
		for range n {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				edits = append(edits, Edit{Op: OpEqual, Old: oi, New: ni})
				oi++
				ni++
			case diffmatchpatch.DiffDelete:
				edits = append(edits, Edit{Op: OpDelete, Old: oi, New: -1})
				oi++
			case diffmatchpatch.DiffInsert:
				edits = append(edits, Edit{Op: OpInsert, Old: -1, New: ni})
				ni++
			}
		}
	}

	if oi != len(old) || ni != len(new) {
		return replaceAll(len(old), len(new))
	}
	return edits
}

// replaceAll deletes every old element, then inserts every new one.
func replaceAll(oldLen, newLen int) []Edit {
	edits := make([]Edit, 0, oldLen+newLen)
	for i := range oldLen {
		edits = append(edits, Edit{Op: OpDelete, Old: i, New: -1})
	}
	for i := range newLen {
		edits = append(edits, Edit{Op: OpInsert, Old: -1, New: i})
	}
	return edits
}

// Deletions returns the old indices removed by the script, ascending.
func Deletions(edits []Edit) []int {
	var out []int
	for _, e := range edits {
		if e.Op == OpDelete {
			out = append(out, e.Old)
		}
	}
	return out
}

// Insertions returns the new indices added by the script, ascending.
func Insertions(edits []Edit) []int {
	var out []int
	for _, e := range edits {
		if e.Op == OpInsert {
			out = append(out, e.New)
		}
	}
	return out
}

// Matches returns the (old, new) index pairs kept by the script.
func Matches(edits []Edit) [][2]int {
	var out [][2]int
	for _, e := range edits {
		if e.Op == OpEqual {
			out = append(out, [2]int{e.Old, e.New})
		}
	}
	return out
}

// runeEncoder assigns one valid code point per distinct element.
type runeEncoder[T comparable] struct {
	symbols map[T]rune
	next    rune
}

func newRuneEncoder[T comparable](sizeHint int) *runeEncoder[T] {
	return &runeEncoder[T]{
		symbols: make(map[T]rune, sizeHint),
		next:    firstSymbol,
	}
}

func (e *runeEncoder[T]) encode(seq []T) ([]rune, bool) {
	out := make([]rune, len(seq))
	for i, v := range seq {
		r, ok := e.symbols[v]
		if !ok {
			if e.next > maxSymbol {
				return nil, false
			}
			r = e.next
			e.symbols[v] = r
			e.next++
			// Surrogate halves do not survive a round trip through string.
			if e.next == surrogateMin {
				e.next = surrogateMax + 1
			}
		}
		out[i] = r
	}
	return out, true
}

const (
	surrogateMin = 0xD800
	surrogateMax = 0xDFFF
	maxSymbol    = 0x10FFFF
)
