package discovery

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileRef points at one blob in the content-addressed file pool. Multiple
// discoveries may reference the same blob; none owns it exclusively.
type FileRef struct {
	Name   string `json:"name"`
	SHA256 string `json:"sha256"`
	Path   string `json:"path"`
}

// FileStore is a content-addressed store for uploaded inputs. Files are
// named by the SHA-256 of their content plus the original suffix, so
// identical bytes always resolve to the same reference and are written at
// most once.
type FileStore struct {
	root string
}

// NewFileStore creates the store root if needed.
func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		return nil, errors.New("file store root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create file store root: %w", err)
	}
	return &FileStore{root: root}, nil
}

// Path returns the absolute location of a stored file by name.
func (s *FileStore) Path(name string) string {
	return filepath.Join(s.root, name)
}

// Put stores content under its hash-derived name. Re-uploading identical
// content is a no-op write.
func (s *FileStore) Put(content []byte, suffix string) (FileRef, error) {
	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])
	name := hash + suffix
	path := s.Path(name)

	_, err := os.Stat(path)
	switch {
	case err == nil:
		// identical content already present
	case errors.Is(err, fs.ErrNotExist):
		if werr := os.WriteFile(path, content, 0o644); werr != nil {
			return FileRef{}, fmt.Errorf("write %s: %w", name, werr)
		}
	default:
		return FileRef{}, err
	}

	return FileRef{Name: name, SHA256: hash, Path: path}, nil
}

// GetBySHA256 returns the stored file whose name stem matches hash.
func (s *FileStore) GetBySHA256(hash string) (FileRef, []byte, error) {
	ref, err := s.findBySHA256(hash)
	if err != nil {
		return FileRef{}, nil, err
	}

	content, err := os.ReadFile(ref.Path)
	if err != nil {
		return FileRef{}, nil, err
	}
	return ref, content, nil
}

// Exists reports whether a blob with the given hash is stored.
func (s *FileStore) Exists(hash string) bool {
	_, err := s.findBySHA256(hash)
	return err == nil
}

// Delete removes the blob with the given hash. Deleting an absent blob is a
// no-op.
func (s *FileStore) Delete(hash string) error {
	ref, err := s.findBySHA256(hash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	return os.Remove(ref.Path)
}

func (s *FileStore) findBySHA256(hash string) (FileRef, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return FileRef{}, err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if stem == hash {
			return FileRef{Name: name, SHA256: hash, Path: s.Path(name)}, nil
		}
	}

	return FileRef{}, fmt.Errorf("file %s: %w", hash, ErrNotFound)
}
