// Package storage keeps uploaded documents on the local filesystem. Files are
// stored flat, one per job, named <jobID>_<originalName> so concurrent uploads
// of identically named documents never collide.
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/svchk12/agnet-que/internal/domain"
)

// UploadStore saves and resolves uploaded documents under a single directory.
type UploadStore struct {
	dir string
}

// NewUploadStore creates the upload directory if needed.
func NewUploadStore(dir string) (*UploadStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &UploadStore{dir: dir}, nil
}

// Save writes an uploaded document and returns the stored filename.
func (s *UploadStore) Save(jobID, originalName string, r io.Reader) (string, error) {
	name := fmt.Sprintf("%s_%s", jobID, filepath.Base(originalName))
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to store uploaded file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		return "", fmt.Errorf("failed to store uploaded file: %w", err)
	}
	return name, nil
}

// Resolve returns the path of a stored file, or domain.ErrFileNotFound if the
// artifact is missing.
func (s *UploadStore) Resolve(storedFilename string) (string, error) {
	path := filepath.Join(s.dir, filepath.Base(storedFilename))
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", domain.ErrFileNotFound, storedFilename)
		}
		return "", err
	}
	return path, nil
}
