package embed

import (
	"encoding/gob"
	"os"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the in-memory fingerprint → vector cache; it
// backstops (rather than replaces) the persisted embed_cache.db, matching
// CachedEmbedder's DefaultEmbeddingCacheSize intent.
const DefaultCacheSize = 8192

// FingerprintCache maps a chunk's content fingerprint (types.ContentFingerprint)
// to its embedding vector, the persistent mapping the coordinator needs so
// that re-indexing unchanged content skips inference entirely. In-memory
// storage is an LRU (github.com/hashicorp/golang-lru/v2,
// already used by cached.go); durability across restarts
// comes from gob-encoding the full map to embed_cache.db on Flush, the same
// persistence shape internal/store/hnsw.go uses for its own index.
type FingerprintCache struct {
	mu   sync.RWMutex
	lru  *lru.Cache[string, []float32]
	path string
}

// NewFingerprintCache builds a cache of the given size backed by path (the
// repo's embed_cache.db), loading any existing contents.
func NewFingerprintCache(path string, size int) (*FingerprintCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	l, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	c := &FingerprintCache{lru: l, path: path}
	if path != "" {
		if err := c.load(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Get returns the cached vector for fingerprint, if present.
func (c *FingerprintCache) Get(fingerprint string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lru.Get(fingerprint)
}

// Put stores vector under fingerprint.
func (c *FingerprintCache) Put(fingerprint string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(fingerprint, vector)
}

// Len reports the number of cached entries.
func (c *FingerprintCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lru.Len()
}

// Flush gob-encodes the cache's contents to disk, so a future process
// skips re-embedding unchanged chunks.
func (c *FingerprintCache) Flush() error {
	if c.path == "" {
		return nil
	}
	c.mu.RLock()
	snapshot := make(map[string][]float32, c.lru.Len())
	for _, key := range c.lru.Keys() {
		if v, ok := c.lru.Peek(key); ok {
			snapshot[key] = v
		}
	}
	c.mu.RUnlock()

	tmp := c.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(snapshot); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}

func (c *FingerprintCache) load() error {
	f, err := os.Open(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	var snapshot map[string][]float32
	if err := gob.NewDecoder(f).Decode(&snapshot); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range snapshot {
		c.lru.Add(k, v)
	}
	return nil
}
