package search

import (
	"testing"

	"github.com/omnicontext/omnicontext/internal/store"
)

func TestFusion_CombinesBothPaths(t *testing.T) {
	f := NewFusion(RRFConstant)

	lex := []store.FTSHit{{ChunkID: 1, Score: 5}, {ChunkID: 2, Score: 3}}
	sem := []store.VectorHit{{ChunkID: 2, Similarity: 0.9}, {ChunkID: 3, Similarity: 0.8}}

	results := f.Fuse(lex, sem, nil, WeightsForClass(ClassMixed))
	if len(results) != 3 {
		t.Fatalf("expected 3 fused candidates, got %d", len(results))
	}

	// Chunk 2 appears in both lists at rank 2/1, so it should outrank the
	// single-path candidates.
	if results[0].ChunkID != 2 {
		t.Errorf("expected chunk 2 (in both lists) to rank first, got %d", results[0].ChunkID)
	}
}

func TestFusion_GraphCandidatesContributeFixedRank(t *testing.T) {
	f := NewFusion(RRFConstant)

	results := f.Fuse(nil, nil, []uint64{42}, WeightsForClass(ClassSymbolLookup))
	if len(results) != 1 || results[0].ChunkID != 42 {
		t.Fatalf("expected a single graph-only candidate, got %+v", results)
	}
	if !results[0].InGraph {
		t.Error("expected InGraph to be set")
	}
	if results[0].RRFScore <= 0 {
		t.Error("expected a positive RRF score from the graph path")
	}
}

func TestFusion_TiesBreakByAscendingChunkID(t *testing.T) {
	f := NewFusion(RRFConstant)

	// Graph-only candidates all share the fixed graph rank, so chunks 9
	// and 4 tie exactly on RRFScore and must break by ascending id.
	results := f.Fuse(nil, nil, []uint64{9, 4}, WeightsForClass(ClassSymbolLookup))

	if len(results) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(results))
	}
	if results[0].ChunkID != 4 || results[1].ChunkID != 9 {
		t.Errorf("expected ascending chunk id tie-break [4, 9], got [%d, %d]", results[0].ChunkID, results[1].ChunkID)
	}
}

func TestFusion_DeterministicAcrossRepeatedCalls(t *testing.T) {
	f := NewFusion(RRFConstant)
	lex := []store.FTSHit{{ChunkID: 1, Score: 5}, {ChunkID: 2, Score: 3}}
	sem := []store.VectorHit{{ChunkID: 3, Similarity: 0.9}}

	first := f.Fuse(lex, sem, []uint64{4}, WeightsForClass(ClassMixed))
	second := f.Fuse(lex, sem, []uint64{4}, WeightsForClass(ClassMixed))

	if len(first) != len(second) {
		t.Fatalf("expected identical result counts, got %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ChunkID != second[i].ChunkID {
			t.Errorf("expected identical ordering at position %d, got %d vs %d", i, first[i].ChunkID, second[i].ChunkID)
		}
	}
}

func TestFusion_EmptyInputsProduceEmptyResult(t *testing.T) {
	f := NewFusion(RRFConstant)
	results := f.Fuse(nil, nil, nil, WeightsForClass(ClassMixed))
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}
