package store

import (
	"context"

	"github.com/omnicontext/omnicontext/internal/types"
)

// FTSBackedStore composes a MetadataStore (relational storage only) with a
// standalone FullTextIndex, routing QueryFTS through the latter instead of
// the store's own embedded full-text table. It exists for
// `store.fts_backend = "bleve"`: SQLiteStore always maintains its FTS5
// table internally, so in the default "sqlite" mode no wrapping is needed
// and NewFullTextIndex returns a nil index; this type only comes into play
// once a non-nil FullTextIndex has been selected.
type FTSBackedStore struct {
	MetadataStore
	fts FullTextIndex
}

var _ MetadataStore = (*FTSBackedStore)(nil)

// NewFTSBackedStore wraps metadata so that full-text queries and the chunk
// content they index are kept in fts instead of metadata's own table.
func NewFTSBackedStore(metadata MetadataStore, fts FullTextIndex) *FTSBackedStore {
	return &FTSBackedStore{MetadataStore: metadata, fts: fts}
}

// ReplaceChunks delegates the relational write to the embedded store, then
// retires the file's previous chunk ids from fts and indexes the
// replacement content.
func (s *FTSBackedStore) ReplaceChunks(ctx context.Context, fileID uint64, chunks []types.Chunk) error {
	old, err := s.MetadataStore.GetChunksByFile(ctx, fileID)
	if err != nil {
		return err
	}

	if err := s.MetadataStore.ReplaceChunks(ctx, fileID, chunks); err != nil {
		return err
	}

	if len(old) > 0 {
		oldIDs := make([]uint64, len(old))
		for i, c := range old {
			oldIDs[i] = c.ID
		}
		if err := s.fts.Delete(ctx, oldIDs); err != nil {
			return err
		}
	}

	for _, c := range chunks {
		if err := s.fts.Index(ctx, c.ID, c.Content+" "+c.SymbolPath); err != nil {
			return err
		}
	}
	return nil
}

// DeleteFile delegates to the embedded store, then drops the file's chunk
// ids from fts.
func (s *FTSBackedStore) DeleteFile(ctx context.Context, fileID uint64) error {
	old, err := s.MetadataStore.GetChunksByFile(ctx, fileID)
	if err != nil {
		return err
	}

	if err := s.MetadataStore.DeleteFile(ctx, fileID); err != nil {
		return err
	}

	if len(old) == 0 {
		return nil
	}
	oldIDs := make([]uint64, len(old))
	for i, c := range old {
		oldIDs[i] = c.ID
	}
	return s.fts.Delete(ctx, oldIDs)
}

// QueryFTS searches fts instead of the embedded store's own table.
func (s *FTSBackedStore) QueryFTS(ctx context.Context, query string, k int) ([]FTSHit, error) {
	return s.fts.Search(ctx, query, k)
}

// Close releases the embedded store and the fts index.
func (s *FTSBackedStore) Close() error {
	storeErr := s.MetadataStore.Close()
	ftsErr := s.fts.Close()
	if storeErr != nil {
		return storeErr
	}
	return ftsErr
}
