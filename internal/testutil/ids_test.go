package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialIDs(t *testing.T) {
	gen := NewSequentialIDs("todo")

	assert.Equal(t, "todo-001", gen.Generate())
	assert.Equal(t, "todo-002", gen.Generate())

	gen.Reset()
	assert.Equal(t, "todo-001", gen.Generate())
}

func TestSequentialIDs_DefaultPrefix(t *testing.T) {
	assert.Equal(t, "rec-001", NewSequentialIDs("").Generate())
}

func TestSequentialIDs_Unique(t *testing.T) {
	gen := NewSequentialIDs("x")
	seen := make(map[string]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := gen.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 500)
}
