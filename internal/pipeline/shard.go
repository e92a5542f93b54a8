package pipeline

import "sync"

// DefaultShardCount is the fixed per-file lock shard count (N=64).
const DefaultShardCount = 64

// shardLocks is an N-way sharded map of mutexes keyed by hash(file_id) mod
// N: two events for the same file always serialize, while events for
// different files proceed in parallel up to the shard count (and the
// worker pool size on top of that).
type shardLocks struct {
	shards []sync.Mutex
}

func newShardLocks(n int) *shardLocks {
	if n <= 0 {
		n = DefaultShardCount
	}
	return &shardLocks{shards: make([]sync.Mutex, n)}
}

// lock acquires the shard for fileID and returns the unlock func.
func (s *shardLocks) lock(fileID uint64) func() {
	m := &s.shards[fileID%uint64(len(s.shards))]
	m.Lock()
	return m.Unlock
}
