package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/omnicontext/omnicontext/internal/types"
)

func TestFTSBackedStore_QueryFTSUsesWrappedIndex(t *testing.T) {
	dir := t.TempDir()
	meta, err := OpenSQLiteStore(filepath.Join(dir, "meta.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	defer meta.Close()

	fts, err := NewBleveFTSIndex(filepath.Join(dir, "fts.bleve"))
	if err != nil {
		t.Fatalf("NewBleveFTSIndex: %v", err)
	}

	s := NewFTSBackedStore(meta, fts)
	ctx := context.Background()

	fileID, err := s.UpsertFile(ctx, "/repo/widget.go", "hash1", "go")
	if err != nil {
		t.Fatalf("UpsertFile: %v", err)
	}

	chunk := mustChunk("/repo/widget.go", 0, 40, types.KindFunction, "widget.Render", "func Render() string { return \"frobnicate\" }")
	chunk.FileID = fileID
	if err := s.ReplaceChunks(ctx, fileID, []types.Chunk{chunk}); err != nil {
		t.Fatalf("ReplaceChunks: %v", err)
	}

	hits, err := s.QueryFTS(ctx, "frobnicate", 10)
	if err != nil {
		t.Fatalf("QueryFTS: %v", err)
	}
	if len(hits) != 1 || hits[0].ChunkID != chunk.ID {
		t.Fatalf("expected one hit for chunk %d, got %+v", chunk.ID, hits)
	}
}

func TestFTSBackedStore_ReplaceChunksRetiresOldEntries(t *testing.T) {
	dir := t.TempDir()
	meta, err := OpenSQLiteStore(filepath.Join(dir, "meta.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	defer meta.Close()

	fts, err := NewBleveFTSIndex(filepath.Join(dir, "fts.bleve"))
	if err != nil {
		t.Fatalf("NewBleveFTSIndex: %v", err)
	}
	s := NewFTSBackedStore(meta, fts)
	ctx := context.Background()

	fileID, err := s.UpsertFile(ctx, "/repo/widget.go", "hash1", "go")
	if err != nil {
		t.Fatalf("UpsertFile: %v", err)
	}

	first := mustChunk("/repo/widget.go", 0, 20, types.KindFunction, "widget.Old", "func Old() { legacyBehavior() }")
	first.FileID = fileID
	if err := s.ReplaceChunks(ctx, fileID, []types.Chunk{first}); err != nil {
		t.Fatalf("ReplaceChunks (first): %v", err)
	}

	second := mustChunk("/repo/widget.go", 0, 20, types.KindFunction, "widget.New", "func New() { freshBehavior() }")
	second.FileID = fileID
	if err := s.ReplaceChunks(ctx, fileID, []types.Chunk{second}); err != nil {
		t.Fatalf("ReplaceChunks (second): %v", err)
	}

	hits, err := s.QueryFTS(ctx, "legacyBehavior", 10)
	if err != nil {
		t.Fatalf("QueryFTS: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected stale chunk to be retired from fts, got %+v", hits)
	}

	hits, err = s.QueryFTS(ctx, "freshBehavior", 10)
	if err != nil {
		t.Fatalf("QueryFTS: %v", err)
	}
	if len(hits) != 1 || hits[0].ChunkID != second.ID {
		t.Fatalf("expected replacement chunk to be indexed, got %+v", hits)
	}
}

func TestFTSBackedStore_DeleteFileRemovesFromIndex(t *testing.T) {
	dir := t.TempDir()
	meta, err := OpenSQLiteStore(filepath.Join(dir, "meta.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	defer meta.Close()

	fts, err := NewBleveFTSIndex(filepath.Join(dir, "fts.bleve"))
	if err != nil {
		t.Fatalf("NewBleveFTSIndex: %v", err)
	}
	s := NewFTSBackedStore(meta, fts)
	ctx := context.Background()

	fileID, err := s.UpsertFile(ctx, "/repo/widget.go", "hash1", "go")
	if err != nil {
		t.Fatalf("UpsertFile: %v", err)
	}
	chunk := mustChunk("/repo/widget.go", 0, 20, types.KindFunction, "widget.Gone", "func Gone() { soonRemoved() }")
	chunk.FileID = fileID
	if err := s.ReplaceChunks(ctx, fileID, []types.Chunk{chunk}); err != nil {
		t.Fatalf("ReplaceChunks: %v", err)
	}

	if err := s.DeleteFile(ctx, fileID); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}

	hits, err := s.QueryFTS(ctx, "soonRemoved", 10)
	if err != nil {
		t.Fatalf("QueryFTS: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected deleted file's chunk to be removed from fts, got %+v", hits)
	}
}
