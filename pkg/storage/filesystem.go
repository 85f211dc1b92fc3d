package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// BlobStore persists attachment blobs on disk, addressed by content hash.
// Deleting a binding never touches the blob; blobs are shared by reference.
type BlobStore struct {
	baseDir string
}

// NewBlobStore ensures the base directory exists and returns a handle.
func NewBlobStore(baseDir string) (*BlobStore, error) {
	if baseDir == "" {
		baseDir = "./attachments"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create attachments directory: %w", err)
	}
	return &BlobStore{baseDir: baseDir}, nil
}

// Put stores the blob and returns its content hash. Writing the same bytes
// twice yields the same hash and a single file.
func (s *BlobStore) Put(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	path := s.resolve(hash)
	if _, err := os.Stat(path); err == nil {
		return hash, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare blob directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	return hash, nil
}

// PutStream hashes and stores from a reader.
func (s *BlobStore) PutStream(r io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", fmt.Errorf("read blob stream: %w", err)
	}
	return s.Put(buf.Bytes())
}

// Get returns the blob bytes for a content hash.
func (s *BlobStore) Get(hash string) ([]byte, error) {
	data, err := os.ReadFile(s.resolve(hash))
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

// Exists reports whether a blob with the given hash is stored.
func (s *BlobStore) Exists(hash string) bool {
	_, err := os.Stat(s.resolve(hash))
	return err == nil
}

// Path exposes the underlying absolute path (useful for debugging).
func (s *BlobStore) Path(hash string) string {
	return s.resolve(hash)
}

func (s *BlobStore) resolve(hash string) string {
	if len(hash) < 2 {
		return filepath.Join(s.baseDir, hash)
	}
	// two-level fanout keeps directories small
	return filepath.Join(s.baseDir, hash[:2], hash)
}
