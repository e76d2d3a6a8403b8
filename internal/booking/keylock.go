package booking

import "sync"

const lockShards = 256

// seatKey is the unit of mutual exclusion for claim adjudication.
type seatKey struct {
	performanceID int
	seatID        int
}

// keyLockTable serializes competing claims on the same (performance, seat)
// key while claims on unrelated seats proceed in parallel. The table is
// sharded rather than per-key: two distinct keys may occasionally share a
// mutex, which costs a little parallelism but never correctness. A claim
// holds at most one shard at a time, so the table cannot deadlock.
type keyLockTable struct {
	shards [lockShards]sync.Mutex
}

func newKeyLockTable() *keyLockTable {
	return &keyLockTable{}
}

// lock acquires the exclusive section for the key and returns its release
// function.
func (t *keyLockTable) lock(k seatKey) func() {
	m := &t.shards[k.shard()]
	m.Lock()
	return m.Unlock
}

// shard hashes the key FNV-1a style over both id components.
func (k seatKey) shard() uint32 {
	h := uint32(2166136261)

	for _, id := range [2]int{k.performanceID, k.seatID} {
		v := uint32(id)
		for i := 0; i < 4; i++ {
			h ^= (v >> (8 * i)) & 0xff
			h *= 16777619
		}
	}

	return h % lockShards
}
