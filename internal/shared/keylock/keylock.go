// Package keylock serializes work per composite key using a fixed table of
// mutexes. Keys hash onto shards, so unrelated keys may share one.
package keylock

import (
	"hash/fnv"
	"sync"
)

const shards = 64

type Table struct {
	mu [shards]sync.Mutex
}

// Lock acquires the shard for the key formed by parts and returns its unlock function.
func (t *Table) Lock(parts ...string) func() {
	m := &t.mu[shardFor(parts...)]
	m.Lock()
	return m.Unlock
}

func shardFor(parts ...string) uint32 {
	h := fnv.New32a()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return h.Sum32() % shards
}
