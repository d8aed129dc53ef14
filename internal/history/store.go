package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/zhongkairen/airtable-sync/internal/logging"
)

// DefaultFileName is the history file name, both in a gist and on disk.
const DefaultFileName = "run_history.csv"

// Store persists a history.
type Store interface {
	Load(ctx context.Context) (*History, error)
	// Save writes h when it has unsaved items and reports whether it wrote.
	Save(ctx context.Context, h *History) (bool, error)
}

// GistClient reads and writes gist files. *github.Client implements it.
type GistClient interface {
	GetGistFile(ctx context.Context, gistID, fileName string) (string, error)
	UpdateGistFile(ctx context.Context, gistID, fileName, content string) error
}

// GistStore keeps the history in one file of a gist.
type GistStore struct {
	client   GistClient
	gistID   string
	fileName string
	logger   *zap.Logger
}

// NewGistStore creates a gist backed store.
func NewGistStore(client GistClient, gistID, fileName string, logger *zap.Logger) *GistStore {
	if fileName == "" {
		fileName = DefaultFileName
	}
	return &GistStore{client: client, gistID: gistID, fileName: fileName, logger: logging.OrNop(logger)}
}

// Load reads and parses the gist file.
func (s *GistStore) Load(ctx context.Context) (*History, error) {
	s.logger.Info("fetching existing history")
	content, err := s.client.GetGistFile(ctx, s.gistID, s.fileName)
	if err != nil {
		return nil, err
	}
	return Parse(content)
}

// Save replaces the gist file with h.
func (s *GistStore) Save(ctx context.Context, h *History) (bool, error) {
	if !h.Updated() {
		return false, nil
	}
	if err := s.client.UpdateGistFile(ctx, s.gistID, s.fileName, h.String()); err != nil {
		return false, err
	}
	h.MarkSaved()
	s.logger.Info(fmt.Sprintf("successfully updated gist: %s", s.fileName))
	return true, nil
}

// FileStore keeps the history in a local file.
type FileStore struct {
	path   string
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewFileStore creates a file backed store.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{path: path, logger: logging.OrNop(logger)}
}

// Load reads the file. A missing file is an empty history.
func (s *FileStore) Load(context.Context) (*History, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		logging.Verbose(s.logger, fmt.Sprintf("file store: no history file found at %s", s.path))
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	h, err := Parse(string(data))
	if err != nil {
		return nil, err
	}
	logging.Verbose(s.logger, fmt.Sprintf("file store: loaded %d run(s) from %s", h.Len(), s.path))
	return h, nil
}

// Save writes h through a temporary file and a rename.
func (s *FileStore) Save(_ context.Context, h *History) (bool, error) {
	if !h.Updated() {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tempFile := s.path + ".tmp"
	if err := os.WriteFile(tempFile, []byte(h.String()+"\n"), 0644); err != nil {
		return false, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempFile, s.path); err != nil {
		os.Remove(tempFile)
		return false, fmt.Errorf("failed to rename temp file: %w", err)
	}

	h.MarkSaved()
	logging.Verbose(s.logger, fmt.Sprintf("file store: saved %d run(s) to %s", h.Len(), s.path))
	return true, nil
}
