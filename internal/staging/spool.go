// Package staging spools the pending upload for each chat session between
// file selection and upload submission.
package staging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/doc-chat/frontend/internal/models"
	"github.com/google/uuid"
)

// Spool defines the interface for pending-upload storage.
// Each session holds at most one staged file; staging again replaces it.
type Spool interface {
	Stage(sessionID, name string, r io.Reader) (*models.PendingUpload, error)
	Pending(sessionID string) (*models.PendingUpload, bool)
	Open(sessionID string) (io.ReadCloser, *models.PendingUpload, error)
	Clear(sessionID string) error
}

// LocalSpool implements Spool on the local filesystem. Staged files are
// transient: they are removed on upload success, re-selection, session
// cleanup, or process restart.
type LocalSpool struct {
	mu      sync.RWMutex
	dir     string
	pending map[string]*stagedFile
}

type stagedFile struct {
	info *models.PendingUpload
	path string
}

// NewLocalSpool creates a LocalSpool rooted at dir.
func NewLocalSpool(dir string) (*LocalSpool, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating spool directory: %w", err)
	}

	return &LocalSpool{
		dir:     dir,
		pending: make(map[string]*stagedFile),
	}, nil
}

// Stage writes the file to the spool and records it as the session's
// pending upload, replacing and deleting any previously staged file.
func (s *LocalSpool) Stage(sessionID, name string, r io.Reader) (*models.PendingUpload, error) {
	id := uuid.New().String()
	path := filepath.Join(s.dir, id)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating spool file: %w", err)
	}

	size, err := io.Copy(f, r)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing spool file: %w", err)
	}

	info := &models.PendingUpload{
		ID:       id,
		Name:     name,
		Size:     size,
		StagedAt: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.pending[sessionID]; ok {
		os.Remove(old.path)
	}
	s.pending[sessionID] = &stagedFile{info: info, path: path}

	return info, nil
}

// Pending returns the metadata of the session's staged file, if any.
func (s *LocalSpool) Pending(sessionID string) (*models.PendingUpload, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	staged, ok := s.pending[sessionID]
	if !ok {
		return nil, false
	}
	return staged.info, true
}

// Open opens the staged file for reading. The caller must close it.
func (s *LocalSpool) Open(sessionID string) (io.ReadCloser, *models.PendingUpload, error) {
	s.mu.RLock()
	staged, ok := s.pending[sessionID]
	s.mu.RUnlock()

	if !ok {
		return nil, nil, fmt.Errorf("no pending upload for session %s", sessionID)
	}

	f, err := os.Open(staged.path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening spool file: %w", err)
	}
	return f, staged.info, nil
}

// Clear removes the session's staged file. Clearing a session with nothing
// staged is a no-op.
func (s *LocalSpool) Clear(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged, ok := s.pending[sessionID]
	if !ok {
		return nil
	}

	delete(s.pending, sessionID)
	if err := os.Remove(staged.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing spool file: %w", err)
	}
	return nil
}
