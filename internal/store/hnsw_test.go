package store

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/omnicontext/omnicontext/internal/errors"
)

func unitVec(dims ...float32) []float32 {
	var sumSq float64
	for _, d := range dims {
		sumSq += float64(d) * float64(d)
	}
	norm := math.Sqrt(sumSq)
	out := make([]float32, len(dims))
	for i, d := range dims {
		out[i] = float32(float64(d) / norm)
	}
	return out
}

func TestHNSWIndexAddRejectsNonUnitVector(t *testing.T) {
	idx := NewHNSWIndex(16, 200, 64)
	err := idx.Add(1, []float32{1, 2, 3})
	if err == nil {
		t.Fatal("expected error for non-unit-norm vector")
	}
	if errors.GetCode(err) != errors.CodeInternal {
		t.Errorf("expected CodeInternal, got %v", errors.GetCode(err))
	}
}

func TestHNSWIndexAddAndSearch(t *testing.T) {
	idx := NewHNSWIndex(16, 200, 64)

	vecs := map[uint64][]float32{
		1: unitVec(1, 0, 0),
		2: unitVec(0, 1, 0),
		3: unitVec(0.9, 0.1, 0),
	}
	for id, v := range vecs {
		if err := idx.Add(id, v); err != nil {
			t.Fatalf("Add(%d): %v", id, err)
		}
	}
	if idx.Len() != 3 {
		t.Fatalf("expected Len()=3, got %d", idx.Len())
	}

	hits, err := idx.Search(unitVec(1, 0, 0), 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) == 0 || hits[0].ChunkID != 1 {
		t.Errorf("expected closest match to be chunk 1, got %+v", hits)
	}
}

func TestHNSWIndexRemoveTombstonesAndExcludesFromSearch(t *testing.T) {
	idx := NewHNSWIndex(16, 200, 64)
	_ = idx.Add(1, unitVec(1, 0, 0))
	_ = idx.Add(2, unitVec(0, 1, 0))

	if err := idx.Remove(1); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if idx.Len() != 1 {
		t.Errorf("expected Len()=1 after removal, got %d", idx.Len())
	}

	hits, err := idx.Search(unitVec(1, 0, 0), 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, h := range hits {
		if h.ChunkID == 1 {
			t.Errorf("expected tombstoned chunk 1 to be excluded from search results")
		}
	}
}

func TestHNSWIndexShouldRebuildCrossesThreshold(t *testing.T) {
	idx := NewHNSWIndex(16, 200, 64)
	for i := uint64(1); i <= 4; i++ {
		_ = idx.Add(i, unitVec(float32(i), 1, 0))
	}
	if idx.ShouldRebuild() {
		t.Fatal("expected no rebuild needed with zero tombstones")
	}

	_ = idx.Remove(1)
	if idx.ShouldRebuild() {
		t.Fatal("expected 1/4 tombstone fraction to stay under the 0.25 threshold")
	}

	_ = idx.Remove(2)
	if !idx.ShouldRebuild() {
		t.Fatal("expected 2/4 tombstone fraction to cross the 0.25 threshold")
	}
}

func TestHNSWIndexRebuildCompactsTombstonesAndKeepsLiveVectorsSearchable(t *testing.T) {
	idx := NewHNSWIndex(16, 200, 64)
	for i := uint64(1); i <= 4; i++ {
		_ = idx.Add(i, unitVec(float32(i), 1, 0))
	}
	_ = idx.Remove(1)
	_ = idx.Remove(2)
	if !idx.ShouldRebuild() {
		t.Fatal("expected rebuild to be needed before compacting")
	}

	compacted := idx.Rebuild()
	if compacted != 2 {
		t.Errorf("expected 2 nodes compacted, got %d", compacted)
	}
	if idx.ShouldRebuild() {
		t.Error("expected ShouldRebuild() to report false immediately after compaction")
	}
	if idx.Len() != 2 {
		t.Errorf("expected Len()=2 after compaction, got %d", idx.Len())
	}

	hits, err := idx.Search(unitVec(3, 1, 0), 4)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, h := range hits {
		if h.ChunkID == 1 || h.ChunkID == 2 {
			t.Errorf("expected compacted chunk %d to stay absent from search results", h.ChunkID)
		}
	}
}

func TestHNSWIndexRebuildNeverDeletesLastRemainingNode(t *testing.T) {
	idx := NewHNSWIndex(16, 200, 64)
	_ = idx.Add(1, unitVec(1, 0, 0))
	_ = idx.Remove(1)

	compacted := idx.Rebuild()
	if compacted != 0 {
		t.Errorf("expected the sole remaining node to be left alone, compacted=%d", compacted)
	}
	if idx.Len() != 0 {
		t.Errorf("expected Len()=0 (tombstoned) even though the node wasn't physically deleted, got %d", idx.Len())
	}
}

func TestHNSWIndexPersistLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.hnsw")

	idx := NewHNSWIndex(16, 200, 64)
	_ = idx.Add(1, unitVec(1, 0, 0))
	_ = idx.Add(2, unitVec(0, 1, 0))
	_ = idx.Remove(2)

	if err := idx.Persist(path); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	loaded := NewHNSWIndex(16, 200, 64)
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.Len() != idx.Len() {
		t.Errorf("expected Len() to round-trip: got %d, want %d", loaded.Len(), idx.Len())
	}
	if loaded.ShouldRebuild() != idx.ShouldRebuild() {
		t.Errorf("expected ShouldRebuild() to round-trip")
	}

	hits, err := loaded.Search(unitVec(1, 0, 0), 1)
	if err != nil {
		t.Fatalf("Search after load: %v", err)
	}
	if len(hits) != 1 || hits[0].ChunkID != 1 {
		t.Errorf("expected loaded index to still find chunk 1, got %+v", hits)
	}
}

func TestHNSWIndexLoadMissingFileReportsVectorUnavailable(t *testing.T) {
	idx := NewHNSWIndex(16, 200, 64)
	err := idx.Load(filepath.Join(t.TempDir(), "missing.hnsw"))
	if err == nil {
		t.Fatal("expected error loading a missing index")
	}
	if errors.GetCode(err) != errors.CodeVectorUnavailable {
		t.Errorf("expected CodeVectorUnavailable, got %v", errors.GetCode(err))
	}
	if errors.GetBand(err) != errors.Degraded {
		t.Errorf("expected Degraded band, got %v", errors.GetBand(err))
	}
}
