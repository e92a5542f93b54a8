package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	omnierrors "github.com/omnicontext/omnicontext/internal/errors"
)

// BleveFTSIndex is the alternate FullTextIndex backend, selected by
// `store.fts_backend = "bleve"`. It reuses the same TokenizeCode
// preprocessing as SQLiteStore's FTS5 table so the two backends agree on
// tokenization (camelCase/snake_case boundaries, lowercase, no stemming);
// bleve's own default analyzer then just scores whitespace-separated
// pre-tokenized terms.
type BleveFTSIndex struct {
	mu    sync.RWMutex
	index bleve.Index
	path  string
}

var _ FullTextIndex = (*BleveFTSIndex)(nil)

type bleveDocument struct {
	Content string `json:"content"`
}

// NewBleveFTSIndex opens (creating if absent) a bleve index at path, or an
// in-memory index if path is empty.
func NewBleveFTSIndex(path string) (*BleveFTSIndex, error) {
	indexMapping := buildIndexMapping()

	var idx bleve.Index
	var err error
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		idx, err = bleve.Open(path)
		if err != nil {
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, omnierrors.Wrap(omnierrors.CodeIO, err)
	}

	return &BleveFTSIndex{index: idx, path: path}, nil
}

func buildIndexMapping() *mapping.IndexMappingImpl {
	docMapping := bleve.NewDocumentMapping()
	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = "standard"
	docMapping.AddFieldMappingsAt("content", contentField)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = docMapping
	return m
}

// Index implements FullTextIndex.
func (b *BleveFTSIndex) Index(ctx context.Context, chunkID uint64, content string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	tokens := TokenizeCode(content)
	doc := bleveDocument{Content: strings.Join(tokens, " ")}
	return omnierrors.Wrap(omnierrors.CodeIO, b.index.Index(docID(chunkID), doc))
}

// Search implements FullTextIndex.
func (b *BleveFTSIndex) Search(ctx context.Context, query string, limit int) ([]FTSHit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	tokens := TokenizeCode(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	matchQuery := bleve.NewMatchQuery(strings.Join(tokens, " "))
	matchQuery.SetField("content")

	req := bleve.NewSearchRequest(matchQuery)
	req.Size = limit

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, omnierrors.Wrap(omnierrors.CodeIO, err)
	}

	hits := make([]FTSHit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		id, err := chunkIDFromDocID(hit.ID)
		if err != nil {
			continue
		}
		hits = append(hits, FTSHit{ChunkID: id, Score: hit.Score})
	}
	return hits, nil
}

// Delete implements FullTextIndex.
func (b *BleveFTSIndex) Delete(ctx context.Context, chunkIDs []uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	batch := b.index.NewBatch()
	for _, id := range chunkIDs {
		batch.Delete(docID(id))
	}
	return omnierrors.Wrap(omnierrors.CodeIO, b.index.Batch(batch))
}

// Close implements FullTextIndex.
func (b *BleveFTSIndex) Close() error {
	return b.index.Close()
}

func docID(chunkID uint64) string {
	return strconv.FormatUint(chunkID, 10)
}

func chunkIDFromDocID(id string) (uint64, error) {
	v, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid doc id %q: %w", id, err)
	}
	return v, nil
}
