package search

import (
	"sort"

	"github.com/omnicontext/omnicontext/internal/store"
)

// RRFConstant is the fixed k_rrf smoothing constant, also the default for
// config.SearchConfig.KRRF.
const RRFConstant = 60

// graphCandidateRank is the fixed uniform rank assigned to every chunk
// surfaced by the graph-proximity path — graph candidates aren't ranked
// against each other, only included or not.
const graphCandidateRank = 1

// FusedResult is one candidate chunk after RRF fusion across the lexical,
// semantic, and graph-proximity retrieval paths.
type FusedResult struct {
	ChunkID  uint64
	RRFScore float64
	LexRank  int
	SemRank  int
	InGraph  bool
}

// Fusion combines the three retrieval paths' ranked candidate lists into a
// single RRF-scored, deterministically ordered list.
type Fusion struct {
	K int
}

// NewFusion builds a Fusion with the default k_rrf=60 (or the configured k
// when k > 0).
func NewFusion(k int) *Fusion {
	if k <= 0 {
		k = RRFConstant
	}
	return &Fusion{K: k}
}

// Fuse computes RRF(c) = Σ_p w_p · 1/(k_rrf + rank_p(c)) over the lexical
// (FTS), semantic (ANN), and graph-proximity candidate lists. Graph
// candidates all share graphCandidateRank. Ties break by ascending chunk
// id for deterministic ordering.
func (f *Fusion) Fuse(lex []store.FTSHit, sem []store.VectorHit, graph []uint64, w Weights) []FusedResult {
	scores := make(map[uint64]*FusedResult)

	get := func(id uint64) *FusedResult {
		r, ok := scores[id]
		if !ok {
			r = &FusedResult{ChunkID: id}
			scores[id] = r
		}
		return r
	}

	for i, hit := range lex {
		rank := i + 1
		r := get(hit.ChunkID)
		r.LexRank = rank
		r.RRFScore += w.Lexical / float64(f.K+rank)
	}

	for i, hit := range sem {
		rank := i + 1
		r := get(hit.ChunkID)
		r.SemRank = rank
		r.RRFScore += w.Semantic / float64(f.K+rank)
	}

	for _, chunkID := range graph {
		r := get(chunkID)
		if r.InGraph {
			continue // a symbol can resolve to more than one chunk; count once
		}
		r.InGraph = true
		r.RRFScore += w.Graph / float64(f.K+graphCandidateRank)
	}

	results := make([]FusedResult, 0, len(scores))
	for _, r := range scores {
		results = append(results, *r)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].RRFScore != results[j].RRFScore {
			return results[i].RRFScore > results[j].RRFScore
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	return results
}
