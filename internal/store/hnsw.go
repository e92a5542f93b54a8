package store

import (
	"bufio"
	"encoding/gob"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"

	omnierrors "github.com/omnicontext/omnicontext/internal/errors"
)

// HNSWIndex implements VectorIndex over github.com/coder/hnsw, a pure-Go
// HNSW graph (no cgo). Parameters (M=16, efSearch=max(k,64)) and the
// tombstone-rebuild threshold (0.25) are this design's defaults, overriding
// the library's own; the efConstruction value (200) is stored on the index
// but never applied to the graph.
type HNSWIndex struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[uint64]

	tombstones map[uint64]struct{}
	total      int // nodes ever added, including tombstoned ones

	m                 int
	efConstruction    int
	efSearchFloor     int
	tombstoneFraction float64
}

var _ VectorIndex = (*HNSWIndex)(nil)

// hnswMeta is the gob-encoded sidecar persisted alongside the exported
// graph, carrying the tombstone set (coder/hnsw's own Export/Import only
// round-trips the graph itself).
type hnswMeta struct {
	Tombstones map[uint64]struct{}
	Total      int
}

// NewHNSWIndex builds an empty index with the given construction parameters.
func NewHNSWIndex(m, efConstruction, efSearchFloor int) *HNSWIndex {
	graph := hnsw.NewGraph[uint64]()
	graph.M = m
	graph.EfSearch = efSearchFloor
	graph.Distance = hnsw.CosineDistance
	graph.Ml = 1 / math.Log(float64(m))

	return &HNSWIndex{
		graph:             graph,
		tombstones:        make(map[uint64]struct{}),
		m:                 m,
		efConstruction:    efConstruction,
		efSearchFloor:     efSearchFloor,
		tombstoneFraction: 0.25,
	}
}

// Add implements VectorIndex. Re-adding an id clears any prior tombstone
// (coder/hnsw's Add replaces a node with the same key in place).
func (h *HNSWIndex) Add(chunkID uint64, v []float32) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := checkUnitNorm(v); err != nil {
		return err
	}

	if _, wasTombstoned := h.tombstones[chunkID]; wasTombstoned {
		delete(h.tombstones, chunkID)
	} else {
		h.total++
	}

	h.graph.Add(hnsw.MakeNode(chunkID, v))
	return nil
}

// Remove implements VectorIndex via lazy tombstoning: coder/hnsw has no
// safe way to delete the last node in a graph, so removal just marks the
// id excluded from Search until the tombstone fraction trips a rebuild.
func (h *HNSWIndex) Remove(chunkID uint64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tombstones[chunkID] = struct{}{}
	return nil
}

// Search implements VectorIndex, filtering tombstoned ids from the
// underlying graph's results and using efSearch=max(k, 64).
func (h *HNSWIndex) Search(q []float32, k int) ([]VectorHit, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if err := checkUnitNorm(q); err != nil {
		return nil, err
	}
	if h.graph.Len() == 0 {
		return nil, nil
	}

	ef := k
	if ef < h.efSearchFloor {
		ef = h.efSearchFloor
	}
	h.graph.EfSearch = ef

	// Overfetch to absorb tombstoned results, since coder/hnsw's Search
	// has no exclusion-set parameter.
	nodes := h.graph.Search(q, k+len(h.tombstones))

	hits := make([]VectorHit, 0, k)
	for _, node := range nodes {
		if _, dead := h.tombstones[node.Key]; dead {
			continue
		}
		// CosineDistance in coder/hnsw returns 1 - cosine_similarity for
		// unit vectors; convert back to similarity in [-1, 1].
		dist := h.graph.Distance(q, node.Value)
		hits = append(hits, VectorHit{ChunkID: node.Key, Similarity: 1 - dist})
		if len(hits) == k {
			break
		}
	}
	return hits, nil
}

// Len implements VectorIndex: live vectors only, excluding tombstones.
func (h *HNSWIndex) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.graph.Len() - len(h.tombstones)
}

// ShouldRebuild reports whether the tombstone fraction has crossed the
// 0.25 threshold, at which point the caller should rebuild the index from
// the metadata store's live vectors.
func (h *HNSWIndex) ShouldRebuild() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.total == 0 {
		return false
	}
	return float64(len(h.tombstones))/float64(h.total) > h.tombstoneFraction
}

// Rebuild physically deletes every lazily-tombstoned node, reclaiming the
// space Remove left behind. Guards against coder/hnsw's single-node-graph
// deletion hazard (see Remove's comment) by never deleting a graph's last
// remaining node; any tombstone left over on that account simply waits for
// the next Rebuild once more live nodes exist. Returns the number of nodes
// actually compacted away.
func (h *HNSWIndex) Rebuild() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	compacted := 0
	for id := range h.tombstones {
		if h.graph.Len() <= 1 {
			break
		}
		h.graph.Delete(id)
		delete(h.tombstones, id)
		compacted++
	}
	h.total -= compacted
	return compacted
}

func checkUnitNorm(v []float32) error {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	if math.Abs(norm-1.0) > 1e-5 && len(v) > 0 {
		return omnierrors.New(omnierrors.CodeInternal,
			"vector is not unit-normalized (caller must normalize via v / max(|v|, 1e-12))", nil)
	}
	return nil
}

// Persist implements VectorIndex: the graph is gob-exported to path, and
// tombstones/total are written to a `.meta` sidecar, matching the
// teacher's atomic-ish (temp file + rename) persistence scheme.
func (h *HNSWIndex) Persist(path string) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return omnierrors.Wrap(omnierrors.CodeIO, err)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return omnierrors.Wrap(omnierrors.CodeIO, err)
	}
	if err := h.graph.Export(f); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return omnierrors.Wrap(omnierrors.CodeIO, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return omnierrors.Wrap(omnierrors.CodeIO, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return omnierrors.Wrap(omnierrors.CodeIO, err)
	}

	return h.persistMeta(path + ".meta")
}

func (h *HNSWIndex) persistMeta(metaPath string) error {
	tmpPath := metaPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return omnierrors.Wrap(omnierrors.CodeIO, err)
	}
	meta := hnswMeta{Tombstones: h.tombstones, Total: h.total}
	if err := gob.NewEncoder(f).Encode(meta); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return omnierrors.Wrap(omnierrors.CodeIO, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return omnierrors.Wrap(omnierrors.CodeIO, err)
	}
	return os.Rename(tmpPath, metaPath)
}

// Load implements VectorIndex. An unreadable or missing index is reported
// as VectorUnavailable so the engine can degrade to keyword-only search
// rather than blocking indexing.
func (h *HNSWIndex) Load(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	metaFile, err := os.Open(path + ".meta")
	if err != nil {
		return omnierrors.VectorUnavailable(err.Error())
	}
	defer metaFile.Close()
	var meta hnswMeta
	if err := gob.NewDecoder(metaFile).Decode(&meta); err != nil {
		return omnierrors.VectorUnavailable(err.Error())
	}

	f, err := os.Open(path)
	if err != nil {
		return omnierrors.VectorUnavailable(err.Error())
	}
	defer f.Close()

	if err := h.graph.Import(bufio.NewReader(f)); err != nil {
		return omnierrors.VectorUnavailable(err.Error())
	}

	h.tombstones = meta.Tombstones
	if h.tombstones == nil {
		h.tombstones = make(map[uint64]struct{})
	}
	h.total = meta.Total
	return nil
}

// Close implements VectorIndex. coder/hnsw holds no external resources, so
// this is a no-op kept for interface symmetry with the metadata store.
func (h *HNSWIndex) Close() error { return nil }
