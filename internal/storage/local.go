package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalStore keeps receipts on the local filesystem. Staged uploads live
// under <root>/staging and move into <root>/receipts on Promote.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	for _, dir := range []string{filepath.Join(root, "staging"), filepath.Join(root, "receipts")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) Stage(ctx context.Context, name, mimeType string, r io.Reader) (*StagedFile, error) {
	key := uuid.NewString() + filepath.Ext(name)
	path := filepath.Join(s.root, "staging", key)

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	return &StagedFile{Key: key, Name: name, MimeType: mimeType, Size: size}, nil
}

func (s *LocalStore) Promote(ctx context.Context, staged *StagedFile) (*StoredFile, error) {
	src := filepath.Join(s.root, "staging", staged.Key)
	dst := filepath.Join(s.root, "receipts", staged.Key)

	if _, err := os.Stat(src); os.IsNotExist(err) {
		return nil, ErrStagedFileNotFound
	}
	if err := os.Rename(src, dst); err != nil {
		return nil, err
	}

	return &StoredFile{
		URL:      "file://" + dst,
		Name:     staged.Name,
		MimeType: staged.MimeType,
		Size:     staged.Size,
	}, nil
}

func (s *LocalStore) Discard(ctx context.Context, staged *StagedFile) error {
	err := os.Remove(filepath.Join(s.root, "staging", staged.Key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
