package pipeline

import (
	"context"
	"sync"

	"github.com/omnicontext/omnicontext/internal/store"
	"github.com/omnicontext/omnicontext/internal/types"
)

// fakeMetadataStore is an in-memory stand-in for store.MetadataStore.
type fakeMetadataStore struct {
	mu     sync.Mutex
	files  map[string]types.File // keyed by path
	chunks map[uint64]types.Chunk
	edges  map[uint64][]types.Edge // keyed by fileID
}

func newFakeMetadataStore() *fakeMetadataStore {
	return &fakeMetadataStore{
		files:  make(map[string]types.File),
		chunks: make(map[uint64]types.Chunk),
		edges:  make(map[uint64][]types.Edge),
	}
}

func (f *fakeMetadataStore) UpsertFile(ctx context.Context, path, contentHash, language string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := types.FileID(path)
	f.files[path] = types.File{ID: id, Path: path, ContentHash: contentHash, Language: language}
	return id, nil
}

func (f *fakeMetadataStore) ReplaceChunks(ctx context.Context, fileID uint64, chunks []types.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.chunks {
		if c.FileID == fileID {
			delete(f.chunks, id)
		}
	}
	for _, c := range chunks {
		f.chunks[c.ID] = c
	}
	return nil
}

func (f *fakeMetadataStore) UpsertEdges(ctx context.Context, fileID uint64, edges []types.Edge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edges[fileID] = edges
	return nil
}

func (f *fakeMetadataStore) QueryFTS(ctx context.Context, query string, k int) ([]store.FTSHit, error) {
	return nil, nil
}

func (f *fakeMetadataStore) GetChunk(ctx context.Context, id uint64) (*types.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chunks[id]
	if !ok {
		return nil, context.Canceled
	}
	return &c, nil
}

func (f *fakeMetadataStore) GetChunksByFile(ctx context.Context, fileID uint64) ([]types.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Chunk
	for _, c := range f.chunks {
		if c.FileID == fileID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeMetadataStore) GetChunksBySymbolPath(ctx context.Context, fqn string) ([]types.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Chunk
	for _, c := range f.chunks {
		if c.SymbolPath == fqn {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeMetadataStore) GetFileByPath(ctx context.Context, path string) (*types.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[path]
	if !ok {
		return nil, context.Canceled
	}
	return &file, nil
}

func (f *fakeMetadataStore) AllFiles(ctx context.Context) ([]types.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.File, 0, len(f.files))
	for _, file := range f.files {
		out = append(out, file)
	}
	return out, nil
}

func (f *fakeMetadataStore) DeleteFile(ctx context.Context, fileID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for path, file := range f.files {
		if file.ID == fileID {
			delete(f.files, path)
		}
	}
	for id, c := range f.chunks {
		if c.FileID == fileID {
			delete(f.chunks, id)
		}
	}
	delete(f.edges, fileID)
	return nil
}

func (f *fakeMetadataStore) Stats(ctx context.Context) (store.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return store.Stats{FileCount: len(f.files), ChunkCount: len(f.chunks)}, nil
}

func (f *fakeMetadataStore) Close() error { return nil }

var _ store.MetadataStore = (*fakeMetadataStore)(nil)

// fakeVectorIndex is a trivial VectorIndex recording adds/removes.
type fakeVectorIndex struct {
	mu      sync.Mutex
	vectors map[uint64][]float32
}

func newFakeVectorIndex() *fakeVectorIndex {
	return &fakeVectorIndex{vectors: make(map[uint64][]float32)}
}

func (f *fakeVectorIndex) Add(chunkID uint64, v []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors[chunkID] = v
	return nil
}
func (f *fakeVectorIndex) Remove(chunkID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.vectors, chunkID)
	return nil
}
func (f *fakeVectorIndex) Search(q []float32, k int) ([]store.VectorHit, error) { return nil, nil }
func (f *fakeVectorIndex) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.vectors)
}
func (f *fakeVectorIndex) Persist(path string) error { return nil }
func (f *fakeVectorIndex) Load(path string) error    { return nil }
func (f *fakeVectorIndex) Close() error              { return nil }

var _ store.VectorIndex = (*fakeVectorIndex)(nil)

// fakeEmbedder returns a fixed-length deterministic vector for every text.
type fakeEmbedder struct{}

func (fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}
func (fakeEmbedder) Health(ctx context.Context) error { return nil }
func (fakeEmbedder) Dimensions() int                  { return 2 }
func (fakeEmbedder) ModelName() string                { return "fake" }
