package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lexvault/import-engine/internal/core/domain"
)

// Storage keeps extracted attachments and generated reports on the local
// filesystem under a single base directory. Keys are relative paths derived
// from PST folder names and attachment filenames, so they are sanitized
// before touching the filesystem.
type Storage struct {
	basePath string
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/storage"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{basePath: basePath}, nil
}

func (s *Storage) Save(_ context.Context, key string, data io.Reader) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func (s *Storage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.WrapError(domain.ErrNotFound, "open object", err)
		}
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

// resolve maps a storage key onto a path strictly inside basePath. Mailbox
// exports carry backslash separators and occasionally "..", neither of which
// may escape the storage root.
func (s *Storage) resolve(key string) (string, error) {
	key = strings.ReplaceAll(key, `\`, "/")
	cleaned := filepath.Clean("/" + key)
	if cleaned == "/" {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve storage key", errors.New("empty key"))
	}
	return filepath.Join(s.basePath, cleaned), nil
}
