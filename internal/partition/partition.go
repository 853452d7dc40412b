package partition

import (
	"github.com/roach88/liveresults/internal/diff"
	"github.com/roach88/liveresults/internal/ir"
)

// Member is one record inside a section: its identity and its flat position
// in the source sequence the partition was built from.
type Member[ID comparable] struct {
	ID       ID
	Position int
}

// Partition is an insertion-ordered mapping from section key to members.
//
// Invariants:
//   - keys keep the order in which their first member was inserted
//   - members of a key keep insertion order
//   - no key appears twice and no slot is empty
//
// A Partition is filled by Builder and treated as immutable afterwards, so
// it can be shared across goroutines once published.
type Partition[ID comparable] struct {
	keys    []ir.Value
	index   map[ir.Value]int
	members [][]Member[ID]
	paths   map[int]ir.IndexPath // flat position -> index path
	total   int
}

// New creates an empty partition.
func New[ID comparable]() *Partition[ID] {
	return &Partition[ID]{
		index: make(map[ir.Value]int),
		paths: make(map[int]ir.IndexPath),
	}
}

// Insert appends a member to key's slot, creating the slot at the next
// section index if absent. Returns true when a new slot was created.
// key must satisfy ir.IsKey; Builder filters out the rest.
func (p *Partition[ID]) Insert(key ir.Value, m Member[ID]) bool {
	idx, ok := p.index[key]
	created := !ok
	if !ok {
		idx = len(p.keys)
		p.index[key] = idx
		p.keys = append(p.keys, key)
		p.members = append(p.members, nil)
	}
	p.paths[m.Position] = ir.IndexPath{Section: idx, Item: len(p.members[idx])}
	p.members[idx] = append(p.members[idx], m)
	p.total++
	return created
}

// Len returns the number of sections.
func (p *Partition[ID]) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// IsEmpty reports whether the partition has no sections.
func (p *Partition[ID]) IsEmpty() bool {
	return p.Len() == 0
}

// Total returns the number of members across all sections.
func (p *Partition[ID]) Total() int {
	if p == nil {
		return 0
	}
	return p.total
}

// KeyAt returns the key of the section at index.
func (p *Partition[ID]) KeyAt(index int) (ir.Value, bool) {
	if index < 0 || index >= p.Len() {
		return nil, false
	}
	return p.keys[index], true
}

// IndexOf returns the section index of key.
func (p *Partition[ID]) IndexOf(key ir.Value) (int, bool) {
	if p == nil {
		return 0, false
	}
	idx, ok := p.index[key]
	return idx, ok
}

// Keys returns the section keys in section order.
func (p *Partition[ID]) Keys() []ir.Value {
	if p == nil {
		return nil
	}
	out := make([]ir.Value, len(p.keys))
	copy(out, p.keys)
	return out
}

// Members returns the members of the section at index, in source order.
// The returned slice must not be modified.
func (p *Partition[ID]) Members(index int) []Member[ID] {
	if index < 0 || index >= p.Len() {
		return nil
	}
	return p.members[index]
}

// Count returns the number of members in the section at index.
func (p *Partition[ID]) Count(index int) int {
	return len(p.Members(index))
}

// Member returns the member at an index path.
func (p *Partition[ID]) Member(path ir.IndexPath) (Member[ID], bool) {
	members := p.Members(path.Section)
	if path.Item < 0 || path.Item >= len(members) {
		return Member[ID]{}, false
	}
	return members[path.Item], true
}

// PathOf translates a flat position of the source sequence into the index
// path of the member built from it. Positions of skipped records report
// false.
func (p *Partition[ID]) PathOf(position int) (ir.IndexPath, bool) {
	if p == nil {
		return ir.IndexPath{}, false
	}
	path, ok := p.paths[position]
	return path, ok
}

// Sections exposes the partition as diff input.
func (p *Partition[ID]) Sections() []diff.Section[ir.Value, ID] {
	out := make([]diff.Section[ir.Value, ID], p.Len())
	for i := range out {
		ids := make([]ID, len(p.members[i]))
		for j, m := range p.members[i] {
			ids[j] = m.ID
		}
		out[i] = diff.Section[ir.Value, ID]{Key: p.keys[i], Items: ids}
	}
	return out
}

// Difference returns the sections whose keys are in p but not in other
// (inserted) and those in other but not in p (deleted), each in its own
// side's order and with its members.
//
// This is a structural comparison by key. Section edits for a view are
// computed by diff.Nested, which also accounts for reordering.
func (p *Partition[ID]) Difference(other *Partition[ID]) (inserted, deleted *Partition[ID]) {
	return p.without(other), other.without(p)
}

// without copies the sections of p whose keys are absent from other.
func (p *Partition[ID]) without(other *Partition[ID]) *Partition[ID] {
	out := New[ID]()
	for i := 0; i < p.Len(); i++ {
		key := p.keys[i]
		if _, ok := other.IndexOf(key); ok {
			continue
		}
		for _, m := range p.members[i] {
			out.Insert(key, m)
		}
	}
	return out
}
