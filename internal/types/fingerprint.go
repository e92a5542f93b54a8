package types

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// ChunkID derives a bit-stable 64-bit chunk identifier from
// hash(file_path || byte_range || kind), per the chunker's determinism
// requirement: fixed file content + extractor version yields the same ids.
//
// SHA-256 (stdlib crypto/sha256) is used rather than BLAKE3: no example repo
// in the corpus vendors a BLAKE3 binding reachable from this module, and the
// teacher's own content hashing uses SHA-256 throughout (see DESIGN.md).
func ChunkID(filePath string, br ByteRange, kind ChunkKind) uint64 {
	h := sha256.New()
	h.Write([]byte(filePath))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(br.Start))
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], uint64(br.End))
	h.Write(buf[:])
	h.Write([]byte(kind))
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}

// ContentFingerprint derives the embedding cache key: hash(kind || symbol_path || content).
func ContentFingerprint(kind ChunkKind, symbolPath, content string) string {
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write([]byte(symbolPath))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}

// FileID derives a stable file identifier from the file's stored path
// (relative to the project root when written by the pipeline).
func FileID(absPath string) uint64 {
	h := sha256.Sum256([]byte(absPath))
	return binary.BigEndian.Uint64(h[:8])
}

// HashContent returns the hex SHA-256 of file content, used for the File.ContentHash
// change-detection field.
func HashContent(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

// InternFQN derives a stable 64-bit id for interning a symbol FQN in the
// dependency graph's adjacency tables.
func InternFQN(fqn string) uint64 {
	h := sha256.Sum256([]byte(fqn))
	return binary.BigEndian.Uint64(h[:8])
}
