package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNoOpReranker_PreservesOriginalOrderAndIsUnavailable(t *testing.T) {
	r := NoOpReranker{}
	if r.Available(context.Background()) {
		t.Error("expected NoOpReranker to report unavailable so the engine skips it")
	}
	scores, err := r.Rerank(context.Background(), "q", []RerankCandidate{{ChunkID: 1, RRFScore: 0.5}})
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if len(scores) != 1 || scores[0] != 0.5 {
		t.Errorf("expected passthrough of RRFScore, got %v", scores)
	}
}

func TestHTTPReranker_RerankParsesScores(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rerank" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req rerankRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		resp := rerankResponse{Results: []rerankResponseItem{{Index: 0, Score: 0.2}, {Index: 1, Score: 0.9}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	r := NewHTTPReranker(srv.URL, "reranker-small")
	scores, err := r.Rerank(t.Context(), "query", []RerankCandidate{{Text: "a"}, {Text: "b"}})
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if len(scores) != 2 || scores[0] != 0.2 || scores[1] != 0.9 {
		t.Fatalf("unexpected scores: %v", scores)
	}
}

func TestHTTPReranker_AvailableChecksHealthEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	r := NewHTTPReranker(srv.URL, "reranker-small")
	if !r.Available(t.Context()) {
		t.Error("expected Available to report true on 200")
	}
}

func TestMinMaxRescale_MapsToUnitRange(t *testing.T) {
	out := minMaxRescale([]float64{2, 4, 6})
	if out[0] != 0 || out[2] != 1 {
		t.Errorf("expected endpoints 0 and 1, got %v", out)
	}
}

func TestMinMaxRescale_ConstantScoresBecomeOne(t *testing.T) {
	out := minMaxRescale([]float64{3, 3, 3})
	for _, v := range out {
		if v != 1.0 {
			t.Errorf("expected constant scores to rescale to 1.0, got %v", out)
		}
	}
}

func TestApplyRerank_SkippedWhenRerankerUnavailable(t *testing.T) {
	fused := []FusedResult{{ChunkID: 1, RRFScore: 0.9}, {ChunkID: 2, RRFScore: 0.1}}
	out := applyRerank(context.Background(), NoOpReranker{}, "q", fused, nil)
	if len(out) != 2 || out[0].ChunkID != 1 {
		t.Errorf("expected fused order preserved when reranker unavailable, got %+v", out)
	}
}
