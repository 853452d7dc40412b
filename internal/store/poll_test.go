package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoll_NoForeignWrites(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	changed, err := s.Poll(ctx)
	require.NoError(t, err)
	assert.False(t, changed)

	// Own writes are announced directly, not through Poll.
	mustPut(t, s, "tasks", createTestRecord("a", map[string]string{"title": "a"}))
	changed, err = s.Poll(ctx)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestPoll_ForeignWriteNotifiesSubscriptions(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.db")

	reader, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { reader.Close() })
	writer, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { writer.Close() })

	rec, _ := observeTasks(t, reader)

	written := mustPut(t, writer, "tasks",
		createTestRecord("a", map[string]string{"title": "a"}),
		createTestRecord("b", map[string]string{"title": "b"}),
	)

	changed, err := reader.Poll(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	require.NoError(t, reader.Barrier(ctx))

	seen := rec.observations()
	require.Len(t, seen, 2)
	assert.Equal(t, "update", seen[1].kind)
	assert.Equal(t, []string{"a", "b"}, seen[1].ids)
	assert.Equal(t, []int{0, 1}, seen[1].changes.Insertions)

	// The clock moved past the foreign seqs.
	assert.GreaterOrEqual(t, reader.LastSeq(), written[1].Seq)

	changed, err = reader.Poll(ctx)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestClock_AdvanceTo(t *testing.T) {
	c := NewClockAt(5)
	c.AdvanceTo(3)
	assert.Equal(t, int64(5), c.Current())
	c.AdvanceTo(9)
	assert.Equal(t, int64(9), c.Current())
	assert.Equal(t, int64(10), c.Next())
}
