package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	id   string
	name string
}

func TestRegistry(t *testing.T) {
	r := New[*entry]()

	idA := r.Add(func(id string) *entry { return &entry{id: id, name: "a"} })
	idB := r.Add(func(id string) *entry { return &entry{id: id, name: "b"} })
	assert.NotEqual(t, idA, idB)
	assert.Equal(t, 2, r.Count())

	got, err := r.Get(idA)
	require.NoError(t, err)
	assert.Equal(t, idA, got.id)
	assert.Equal(t, "a", got.name)

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].name)
	assert.Equal(t, "b", all[1].name)

	removed, err := r.Remove(idA)
	require.NoError(t, err)
	assert.Equal(t, "a", removed.name)

	_, err = r.Get(idA)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.Remove(idA)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_Concurrent(t *testing.T) {
	r := New[int]()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := r.Add(func(string) int { return n })
			_, _ = r.Get(id)
			_ = r.All()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, r.Count())
}
