package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/liveresults/internal/diff"
	"github.com/roach88/liveresults/internal/ir"
)

func member(id, pos int) Member[int] {
	return Member[int]{ID: id, Position: pos}
}

func TestPartition_InsertOrder(t *testing.T) {
	p := New[int]()

	assert.True(t, p.Insert(ir.String("high"), member(1, 0)))
	assert.False(t, p.Insert(ir.String("high"), member(2, 1)))
	assert.True(t, p.Insert(ir.String("low"), member(3, 2)))

	assert.Equal(t, 2, p.Len())
	assert.Equal(t, 3, p.Total())
	assert.Equal(t, []ir.Value{ir.String("high"), ir.String("low")}, p.Keys())

	key, ok := p.KeyAt(1)
	require.True(t, ok)
	assert.Equal(t, ir.String("low"), key)

	idx, ok := p.IndexOf(ir.String("high"))
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	assert.Equal(t, []Member[int]{member(1, 0), member(2, 1)}, p.Members(0))
	assert.Equal(t, 2, p.Count(0))
}

func TestPartition_NoDuplicateKeys(t *testing.T) {
	p := New[int]()
	p.Insert(ir.Int(1), member(1, 0))
	p.Insert(ir.Int(2), member(2, 1))
	p.Insert(ir.Int(1), member(3, 2))

	assert.Equal(t, 2, p.Len())
	assert.Equal(t, []Member[int]{member(1, 0), member(3, 2)}, p.Members(0))
}

func TestPartition_OutOfRange(t *testing.T) {
	p := New[int]()
	p.Insert(ir.Bool(true), member(1, 0))

	_, ok := p.KeyAt(1)
	assert.False(t, ok)
	_, ok = p.KeyAt(-1)
	assert.False(t, ok)
	_, ok = p.IndexOf(ir.Bool(false))
	assert.False(t, ok)
	assert.Nil(t, p.Members(3))
	assert.Equal(t, 0, p.Count(3))

	_, ok = p.Member(ir.IndexPath{Section: 0, Item: 1})
	assert.False(t, ok)
	m, ok := p.Member(ir.IndexPath{Section: 0, Item: 0})
	require.True(t, ok)
	assert.Equal(t, 1, m.ID)
}

func TestPartition_NilIsEmpty(t *testing.T) {
	var p *Partition[int]

	assert.Equal(t, 0, p.Len())
	assert.True(t, p.IsEmpty())
	assert.Equal(t, 0, p.Total())
	assert.Nil(t, p.Keys())
	_, ok := p.PathOf(0)
	assert.False(t, ok)
}

func TestPartition_PathOf(t *testing.T) {
	p := New[int]()
	p.Insert(ir.String("a"), member(10, 0))
	// position 1 skipped by the builder
	p.Insert(ir.String("a"), member(11, 2))
	p.Insert(ir.String("b"), member(12, 3))

	path, ok := p.PathOf(2)
	require.True(t, ok)
	assert.Equal(t, ir.IndexPath{Section: 0, Item: 1}, path)

	path, ok = p.PathOf(3)
	require.True(t, ok)
	assert.Equal(t, ir.IndexPath{Section: 1, Item: 0}, path)

	_, ok = p.PathOf(1)
	assert.False(t, ok)
}

func TestPartition_Sections(t *testing.T) {
	p := New[int]()
	p.Insert(ir.String("high"), member(1, 0))
	p.Insert(ir.String("high"), member(2, 1))
	p.Insert(ir.String("low"), member(3, 2))

	assert.Equal(t, []diff.Section[ir.Value, int]{
		{Key: ir.String("high"), Items: []int{1, 2}},
		{Key: ir.String("low"), Items: []int{3}},
	}, p.Sections())
}

func TestPartition_Difference(t *testing.T) {
	old := New[int]()
	old.Insert(ir.String("a"), member(1, 0))
	old.Insert(ir.String("b"), member(2, 1))
	old.Insert(ir.String("c"), member(3, 2))

	cur := New[int]()
	cur.Insert(ir.String("d"), member(4, 0))
	cur.Insert(ir.String("b"), member(2, 1))
	cur.Insert(ir.String("e"), member(5, 2))

	inserted, deleted := cur.Difference(old)

	assert.Equal(t, []ir.Value{ir.String("d"), ir.String("e")}, inserted.Keys())
	assert.Equal(t, []Member[int]{member(5, 2)}, inserted.Members(1))
	assert.Equal(t, []ir.Value{ir.String("a"), ir.String("c")}, deleted.Keys())

	same, none := cur.Difference(cur)
	assert.True(t, same.IsEmpty())
	assert.True(t, none.IsEmpty())

	all, gone := cur.Difference(nil)
	assert.Equal(t, 3, all.Len())
	assert.True(t, gone.IsEmpty())
}
