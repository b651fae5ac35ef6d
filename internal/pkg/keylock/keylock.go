// Package keylock serializes work on string keys using a fixed set of
// striped mutexes. Keys are mapped to stripes with FNV-32a, so two different
// keys may share a stripe but one key always maps to the same stripe.
package keylock

import (
	"hash/fnv"
	"sort"
	"sync"
)

const defaultStripes = 64

// Locker hands out exclusive locks for sets of keys.
type Locker struct {
	stripes []sync.Mutex
}

// New creates a Locker with n stripes. If n <= 0, defaultStripes is used.
func New(n int) *Locker {
	if n <= 0 {
		n = defaultStripes
	}
	return &Locker{stripes: make([]sync.Mutex, n)}
}

// Lock acquires every stripe covering keys and returns the matching unlock
// func. Stripes are taken in ascending order so overlapping multi-key calls
// cannot deadlock.
func (l *Locker) Lock(keys ...string) (unlock func()) {
	idx := l.indexes(keys)
	for _, i := range idx {
		l.stripes[i].Lock()
	}
	return func() {
		for j := len(idx) - 1; j >= 0; j-- {
			l.stripes[idx[j]].Unlock()
		}
	}
}

// indexes returns the distinct, sorted stripe indexes for keys.
func (l *Locker) indexes(keys []string) []int {
	seen := make(map[int]struct{}, len(keys))
	idx := make([]int, 0, len(keys))
	for _, k := range keys {
		i := l.shardIndex(k)
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

func (l *Locker) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(l.stripes)))
}
