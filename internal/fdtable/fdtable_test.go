package fdtable_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-accept/internal/fdtable"
)

func TestTableLifecycle(t *testing.T) {
	tbl := fdtable.New[string]()

	_, ok := tbl.Load(12)
	require.False(t, ok)

	tbl.Store(12, "client")
	tbl.Store(7, "acceptor")
	v, ok := tbl.Load(12)
	require.True(t, ok)
	assert.Equal(t, "client", v)
	assert.Equal(t, 2, tbl.Len())

	assert.True(t, tbl.Delete(12))
	assert.False(t, tbl.Delete(12))
	assert.Equal(t, 1, tbl.Len())
}

func TestTableSparse(t *testing.T) {
	tbl := fdtable.New[int]()
	tbl.Store(1<<20, 1)
	assert.Equal(t, 1, tbl.Len())
	tbl.Delete(1 << 20)
	assert.Equal(t, 0, tbl.Len())
}

func TestTableUpdate(t *testing.T) {
	tbl := fdtable.New[int]()

	got := tbl.Update(3, func(cur int, ok bool) (int, bool) {
		assert.False(t, ok)
		return 10, true
	})
	assert.Equal(t, 10, got)

	got = tbl.Update(3, func(cur int, ok bool) (int, bool) {
		assert.True(t, ok)
		return cur + 1, false
	})
	assert.Equal(t, 10, got)

	v, _ := tbl.Load(3)
	assert.Equal(t, 10, v)
}

func TestTableConcurrentOwners(t *testing.T) {
	tbl := fdtable.New[int]()
	var wg sync.WaitGroup
	for fd := 0; fd < 256; fd++ {
		wg.Add(1)
		go func(fd int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				tbl.Update(fd, func(cur int, _ bool) (int, bool) { return cur + 1, true })
			}
		}(fd)
	}
	wg.Wait()

	assert.Equal(t, 256, tbl.Len())
	count := 0
	tbl.Range(func(fd int, v int) bool {
		assert.Equal(t, 100, v, "fd %d", fd)
		count++
		return true
	})
	assert.Equal(t, 256, count)
}

func TestTableRangeStops(t *testing.T) {
	tbl := fdtable.New[int]()
	for fd := 0; fd < 10; fd++ {
		tbl.Store(fd, fd)
	}
	seen := 0
	tbl.Range(func(int, int) bool {
		seen++
		return false
	})
	assert.Equal(t, 1, seen)
}
