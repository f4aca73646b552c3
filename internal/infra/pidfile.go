package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/misua/watah/internal/domain"
)

// FilePIDStore implements domain.PIDStore with a small JSON file.
type FilePIDStore struct {
	path           string
	processManager domain.ProcessManager
}

// NewFilePIDStore creates a PID store at path (~ is expanded).
func NewFilePIDStore(path string, pm domain.ProcessManager) domain.PIDStore {
	return &FilePIDStore{
		path:           ExpandHome(path),
		processManager: pm,
	}
}

// Path returns the PID file location.
func (s *FilePIDStore) Path() string {
	return s.path
}

// Acquire records rec, refusing when another live process owns the file.
// A record left behind by a dead process is overwritten.
func (s *FilePIDStore) Acquire(rec domain.PIDRecord) error {
	existing, err := s.Get()
	if err != nil {
		return err
	}
	if existing != nil && existing.PID != rec.PID && s.processManager.IsRunning(existing.PID) {
		return fmt.Errorf("%w (pid %d)", domain.ErrAlreadyRunning, existing.PID)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create pid dir: %w", err)
		}
	}
	return s.atomicWrite(&rec)
}

// Get returns the stored record, or nil when the file does not exist.
func (s *FilePIDStore) Get() (*domain.PIDRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var rec domain.PIDRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("corrupt pid file %s: %w", s.path, err)
	}
	return &rec, nil
}

// IsRunning reports whether the recorded PID is alive.
func (s *FilePIDStore) IsRunning() bool {
	rec, err := s.Get()
	if err != nil || rec == nil {
		return false
	}
	return s.processManager.IsRunning(rec.PID)
}

// Release removes the PID file. A missing file is not an error.
func (s *FilePIDStore) Release() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// atomicWrite writes the record to file atomically (write + rename).
func (s *FilePIDStore) atomicWrite(rec *domain.PIDRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	// Write to temp file first (unique per process to avoid race)
	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath) // Clean up on failure
		return err
	}
	return nil
}

// Ensure FilePIDStore implements domain.PIDStore.
var _ domain.PIDStore = (*FilePIDStore)(nil)
