package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"
)

// rerankTopK is the fixed candidate-pool size for reranking.
const rerankTopK = 20

// defaultRerankerTimeout matches the MLX reranker client's timeout.
const defaultRerankerTimeout = 30 * time.Second

// RerankCandidate is one fused result offered to the reranker.
type RerankCandidate struct {
	ChunkID  uint64
	Text     string
	RRFScore float64
	RRFRank  int
}

// Reranker scores query-document pairs with a cross-encoder model, more
// accurately than the bi-encoder embeddings used for ANN retrieval, at
// higher per-query cost — so it only runs over the top rerankTopK fused
// candidates.
type Reranker interface {
	// Rerank scores candidates against query. Returns a score per
	// candidate, same order as the input slice.
	Rerank(ctx context.Context, query string, candidates []RerankCandidate) ([]float64, error)

	// Available reports whether the reranker endpoint is reachable. The
	// engine skips reranking silently when this is false.
	Available(ctx context.Context) bool
}

// NoOpReranker reports unavailable, so the engine always skips it. Used
// when no reranker endpoint is configured.
type NoOpReranker struct{}

func (NoOpReranker) Rerank(_ context.Context, _ string, candidates []RerankCandidate) ([]float64, error) {
	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		scores[i] = c.RRFScore
	}
	return scores, nil
}

func (NoOpReranker) Available(_ context.Context) bool { return false }

// HTTPReranker calls an HTTP cross-encoder reranking endpoint (an Ollama
// or MLX-style local inference server), grounded on the MLXReranker
// client — generalized to a plain host+model pair instead of a single
// hardcoded MLX server, matching how internal/embed's OllamaEmbedder
// already treats its serving endpoint as configuration.
type HTTPReranker struct {
	client *http.Client
	host   string
	model  string
}

// NewHTTPReranker builds an HTTPReranker targeting host's "/rerank" endpoint.
func NewHTTPReranker(host, model string) *HTTPReranker {
	return &HTTPReranker{
		client: &http.Client{Timeout: defaultRerankerTimeout},
		host:   host,
		model:  model,
	}
}

var _ Reranker = (*HTTPReranker)(nil)

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model,omitempty"`
}

type rerankResponseItem struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

type rerankResponse struct {
	Results []rerankResponseItem `json:"results"`
}

// Rerank implements Reranker.
func (r *HTTPReranker) Rerank(ctx context.Context, query string, candidates []RerankCandidate) ([]float64, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	docs := make([]string, len(candidates))
	for i, c := range candidates {
		docs[i] = c.Text
	}

	body, err := json.Marshal(rerankRequest{Query: query, Documents: docs, Model: r.model})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.host+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reranker returned status %d", resp.StatusCode)
	}

	var decoded rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	scores := make([]float64, len(candidates))
	for _, item := range decoded.Results {
		if item.Index >= 0 && item.Index < len(scores) {
			scores[item.Index] = item.Score
		}
	}
	return scores, nil
}

// Available implements Reranker.
func (r *HTTPReranker) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.host+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// applyRerank replaces the top rerankTopK fused candidates' scores with
// the reranker's min-max-rescaled scores, leaving the rest of the fused
// ranking untouched. Ties from the reranker break by prior RRF rank.
func applyRerank(ctx context.Context, reranker Reranker, query string, fused []FusedResult, texts map[uint64]string) []FusedResult {
	if reranker == nil || !reranker.Available(ctx) || len(fused) == 0 {
		return fused
	}

	poolSize := rerankTopK
	if poolSize > len(fused) {
		poolSize = len(fused)
	}
	pool := fused[:poolSize]

	candidates := make([]RerankCandidate, poolSize)
	for i, r := range pool {
		candidates[i] = RerankCandidate{ChunkID: r.ChunkID, Text: texts[r.ChunkID], RRFScore: r.RRFScore, RRFRank: i + 1}
	}

	scores, err := reranker.Rerank(ctx, query, candidates)
	if err != nil || len(scores) != poolSize {
		return fused
	}

	rescaled := minMaxRescale(scores)

	type scored struct {
		result FusedResult
		rank   int
	}
	reordered := make([]scored, poolSize)
	for i := range pool {
		reordered[i] = scored{result: pool[i], rank: i + 1}
		reordered[i].result.RRFScore = rescaled[i]
	}

	sort.SliceStable(reordered, func(i, j int) bool {
		if reordered[i].result.RRFScore != reordered[j].result.RRFScore {
			return reordered[i].result.RRFScore > reordered[j].result.RRFScore
		}
		return reordered[i].rank < reordered[j].rank
	})

	out := make([]FusedResult, 0, len(fused))
	for _, s := range reordered {
		out = append(out, s.result)
	}
	out = append(out, fused[poolSize:]...)
	return out
}

// minMaxRescale maps scores onto [0,1] via min-max normalization.
func minMaxRescale(scores []float64) []float64 {
	if len(scores) == 0 {
		return scores
	}
	min, max := scores[0], scores[0]
	for _, s := range scores {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}

	out := make([]float64, len(scores))
	if max == min {
		for i := range out {
			out[i] = 1.0
		}
		return out
	}
	for i, s := range scores {
		out[i] = (s - min) / (max - min)
	}
	return out
}
