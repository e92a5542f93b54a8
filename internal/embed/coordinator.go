package embed

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	omnierrors "github.com/omnicontext/omnicontext/internal/errors"
	"golang.org/x/sync/singleflight"
)

// Request is one chunk queued for embedding: its content fingerprint (the
// cache key) and the embedding text to send if the fingerprint misses the
// cache.
type Request struct {
	ChunkID     uint64
	Fingerprint string
	Text        string
}

// Result is the coordinator's outcome for one Request: either a vector or
// an error. A permanent failure marks the chunk `embed_failed` but never
// removes it from the lexical index.
type Result struct {
	ChunkID uint64
	Vector  []float32
	Err     error
}

// Coordinator maps a stream of chunk requests to vectors with
// deduplication by fingerprint, cross-call batching, retries, and
// degradation to keyword-only mode. Grounded on the reference
// CachedEmbedder (cached.go) for the cache-then-compute shape, but its
// Submit no longer slices one caller's own chunks into batches in
// isolation: every miss is enqueued onto a shared queue (the same
// mutex-plus-timer shape internal/watcher's Debouncer uses to coalesce
// events) that a background dispatch fires once it holds batchSize
// requests or flushDelay has elapsed since the oldest still-queued one,
// whichever comes first. That lets chunks discovered by unrelated files
// in the same debounce window ride the same embedder call instead of each
// firing its own HTTP round trip.
type Coordinator struct {
	embedder   Embedder
	cache      *FingerprintCache
	breaker    *omnierrors.CircuitBreaker
	sf         singleflight.Group
	batchSize  int
	flushDelay time.Duration

	keywordOnly atomic.Bool

	mu      sync.Mutex
	pending []pendingItem
	timer   *time.Timer
}

// pendingItem is one fingerprint miss sitting in the shared queue,
// awaiting a batch dispatch. done is buffered by one so dispatch never
// blocks delivering the result even if the original Submit call already
// gave up waiting (context cancellation).
type pendingItem struct {
	req  Request
	done chan Result
}

// CoordinatorOption configures a Coordinator at construction time.
type CoordinatorOption func(*Coordinator)

// WithBatchSize overrides the default batch size (embedder.batch, 32).
func WithBatchSize(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithFlushDelay overrides the default flush window (50ms) a partial
// batch waits for more fingerprints before dispatching anyway.
func WithFlushDelay(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.flushDelay = d
		}
	}
}

// NewCoordinator builds a Coordinator over embedder, backed by cache, with
// a fresh circuit breaker tuned to a 3-failure/30s degrade policy.
func NewCoordinator(embedder Embedder, cache *FingerprintCache, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		embedder:   embedder,
		cache:      cache,
		breaker:    omnierrors.NewCircuitBreaker("embedder"),
		batchSize:  32,
		flushDelay: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartInKeywordOnlyMode latches the coordinator into keyword-only mode
// immediately, matching `OMNI_SKIP_MODEL_DOWNLOAD=1`'s forced
// model_unavailable startup behavior.
func (c *Coordinator) StartInKeywordOnlyMode() {
	c.keywordOnly.Store(true)
}

// IsKeywordOnly reports whether new chunks currently skip embedding
// entirely (status()'s search_mode field).
func (c *Coordinator) IsKeywordOnly() bool {
	return c.keywordOnly.Load() || !c.breaker.Allow()
}

// Submit processes reqs: cache hits resolve immediately, cache misses are
// deduplicated by fingerprint within this call and then queued for the
// shared background dispatch, which may coalesce them with misses queued
// by other concurrent Submit calls into one embedder call. If the
// coordinator is latched into keyword-only mode, every miss is returned
// as an embed_failed Result without touching the queue at all.
func (c *Coordinator) Submit(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, len(reqs))

	var misses []Request
	missIdx := make(map[string][]int) // fingerprint -> result indices

	for i, req := range reqs {
		if v, ok := c.cache.Get(req.Fingerprint); ok {
			results[i] = Result{ChunkID: req.ChunkID, Vector: v}
			continue
		}
		missIdx[req.Fingerprint] = append(missIdx[req.Fingerprint], i)
		if len(missIdx[req.Fingerprint]) == 1 {
			misses = append(misses, req)
		}
	}

	if len(misses) == 0 {
		return results
	}

	if c.IsKeywordOnly() {
		err := omnierrors.ModelUnavailable("embedding coordinator is in keyword-only mode")
		for _, req := range misses {
			fillMiss(results, reqs, missIdx, req.Fingerprint, nil, err)
		}
		return results
	}

	type outcome struct {
		fingerprint string
		res         Result
	}
	outcomes := make(chan outcome, len(misses))
	for _, req := range misses {
		req := req
		go func() {
			outcomes <- outcome{fingerprint: req.Fingerprint, res: c.embedOne(ctx, req)}
		}()
	}
	for range misses {
		o := <-outcomes
		fillMiss(results, reqs, missIdx, o.fingerprint, o.res.Vector, o.res.Err)
	}

	return results
}

// embedOne enqueues req onto the shared batch queue and blocks until a
// dispatch resolves it or ctx is cancelled. singleflight collapses
// concurrent embedOne calls for the same fingerprint (e.g. two files
// sharing a vendored chunk discovered in the same debounce window) onto a
// single queue entry rather than enqueuing — and later embedding — the
// same text twice.
func (c *Coordinator) embedOne(ctx context.Context, req Request) Result {
	v, _, _ := c.sf.Do(req.Fingerprint, func() (interface{}, error) {
		done := make(chan Result, 1)
		c.mu.Lock()
		c.pending = append(c.pending, pendingItem{req: req, done: done})
		c.flushLocked()
		c.mu.Unlock()

		select {
		case res := <-done:
			return res, nil
		case <-ctx.Done():
			return Result{ChunkID: req.ChunkID, Err: ctx.Err()}, nil
		}
	})
	return v.(Result)
}

// flushLocked must be called with c.mu held. It peels off and dispatches
// every full batchSize-sized group already queued, then arms the flush
// timer, unless it is already running, for whatever partial group
// remains so it still goes out within flushDelay of the oldest queued
// request even if nothing else arrives.
func (c *Coordinator) flushLocked() {
	for len(c.pending) >= c.batchSize {
		batch := c.pending[:c.batchSize:c.batchSize]
		c.pending = c.pending[c.batchSize:]
		go c.dispatch(batch)
	}

	if len(c.pending) == 0 {
		if c.timer != nil {
			c.timer.Stop()
			c.timer = nil
		}
		return
	}
	if c.timer == nil {
		c.timer = time.AfterFunc(c.flushDelay, c.flushOnTimer)
	}
}

// flushOnTimer dispatches whatever is left in the queue once flushDelay
// has passed without it filling up on its own.
func (c *Coordinator) flushOnTimer() {
	c.mu.Lock()
	batch := c.pending
	c.pending = nil
	c.timer = nil
	c.mu.Unlock()

	if len(batch) > 0 {
		c.dispatch(batch)
	}
}

// dispatch embeds one coalesced batch and delivers a Result to every
// item's done channel. It runs detached from any single Submit call's
// context (context.Background()) since a batch can combine misses queued
// by several unrelated callers — one caller cancelling its own context
// must not abort embedding work the rest are still waiting on.
func (c *Coordinator) dispatch(batch []pendingItem) {
	texts := make([]string, len(batch))
	for i, item := range batch {
		texts[i] = item.req.Text
	}

	ctx := context.Background()
	var vectors [][]float32
	err := omnierrors.Retry(ctx, omnierrors.EmbedRetryConfig(), func() error {
		out, err := c.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return err
		}
		vectors = out
		return nil
	})

	if err != nil {
		c.breaker.RecordFailure()
		wrapped := omnierrors.EmbedError(batch[0].req.ChunkID, err)
		for _, item := range batch {
			item.done <- Result{ChunkID: item.req.ChunkID, Err: wrapped}
		}
		return
	}

	c.breaker.RecordSuccess()
	for i, item := range batch {
		c.cache.Put(item.req.Fingerprint, vectors[i])
		item.done <- Result{ChunkID: item.req.ChunkID, Vector: vectors[i]}
	}
}

// fillMiss writes a result to every original request sharing fingerprint,
// since cache misses are deduplicated to one embedder call per
// fingerprint but every original request still needs an answer keyed by
// its own chunk id.
func fillMiss(results []Result, reqs []Request, missIdx map[string][]int, fingerprint string, vector []float32, err error) {
	for _, idx := range missIdx[fingerprint] {
		results[idx] = Result{ChunkID: reqs[idx].ChunkID, Vector: vector, Err: err}
	}
}

// Probe runs the embedder's health check and, on success, closes the
// circuit breaker — the 30s periodic recovery check the degradation model
// requires. Scheduled by internal/schedule.
func (c *Coordinator) Probe(ctx context.Context) error {
	if err := c.embedder.Health(ctx); err != nil {
		c.breaker.RecordFailure()
		return err
	}
	c.breaker.RecordSuccess()
	c.keywordOnly.Store(false)
	return nil
}
