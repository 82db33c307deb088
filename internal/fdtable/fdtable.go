// File: internal/fdtable/fdtable.go
// Package fdtable
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Sparse descriptor table keyed by fd number. Entries are inserted and removed
// explicitly on descriptor lifecycle events; nothing grows with the highest fd
// ever seen. Each fd hashes to one of a fixed set of shards so concurrent
// owners of different descriptors rarely contend.

package fdtable

import "sync"

const shardCount = 64

type shard[V any] struct {
	mu sync.Mutex
	m  map[int]V
}

// Table maps descriptor numbers to values of type V.
type Table[V any] struct {
	shards [shardCount]shard[V]
}

// New creates an empty table.
func New[V any]() *Table[V] {
	t := &Table[V]{}
	for i := range t.shards {
		t.shards[i].m = make(map[int]V)
	}
	return t
}

func (t *Table[V]) shard(fd int) *shard[V] {
	if fd < 0 {
		fd = -fd
	}
	return &t.shards[fd%shardCount]
}

// Load returns the value stored for fd.
func (t *Table[V]) Load(fd int) (V, bool) {
	s := t.shard(fd)
	s.mu.Lock()
	v, ok := s.m[fd]
	s.mu.Unlock()
	return v, ok
}

// Store sets the value for fd.
func (t *Table[V]) Store(fd int, v V) {
	s := t.shard(fd)
	s.mu.Lock()
	s.m[fd] = v
	s.mu.Unlock()
}

// Update runs fn under the fd's shard lock. fn receives the current value and
// whether it exists; when it returns store=true the result replaces it.
func (t *Table[V]) Update(fd int, fn func(cur V, ok bool) (next V, store bool)) V {
	s := t.shard(fd)
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.m[fd]
	next, store := fn(cur, ok)
	if !store {
		return cur
	}
	s.m[fd] = next
	return next
}

// Delete removes fd and reports whether it was present.
func (t *Table[V]) Delete(fd int) bool {
	s := t.shard(fd)
	s.mu.Lock()
	_, ok := s.m[fd]
	delete(s.m, fd)
	s.mu.Unlock()
	return ok
}

// Len returns the number of entries.
func (t *Table[V]) Len() int {
	n := 0
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		n += len(s.m)
		s.mu.Unlock()
	}
	return n
}

// Range calls fn for every entry until fn returns false. The shard being
// visited is locked; fn must not call back into the table.
func (t *Table[V]) Range(fn func(fd int, v V) bool) {
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		for fd, v := range s.m {
			if !fn(fd, v) {
				s.mu.Unlock()
				return
			}
		}
		s.mu.Unlock()
	}
}
