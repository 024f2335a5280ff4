package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"resumeforge/internal/errors"
)

// FileStore keeps the CLI's single session in a JSON credentials file readable only by its owner.
// Load ignores the id unless it is non-empty and differs from the stored one.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the credentials file location
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Load(_ context.Context, id string) (*Session, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read credentials file", err).
			WithContext("path", f.path)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.NewDecodeError(errors.ErrCodeSessionStore,
			"credentials file is corrupt; run 'resumeforge login' again", err).
			WithContext("path", f.path)
	}
	if id != "" && s.ID != id {
		return nil, nil
	}
	return &s, nil
}

func (f *FileStore) Save(_ context.Context, s *Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeSessionStore, "failed to encode credentials", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return errors.NewIOError(errors.ErrCodeSessionStore, "failed to create credentials directory", err).
			WithContext("path", f.path)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.NewIOError(errors.ErrCodeSessionStore, "failed to write credentials file", err).
			WithContext("path", f.path)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return errors.NewIOError(errors.ErrCodeSessionStore, "failed to write credentials file", err).
			WithContext("path", f.path)
	}
	return nil
}

func (f *FileStore) Delete(_ context.Context, _ string) error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.NewIOError(errors.ErrCodeSessionStore, "failed to remove credentials file", err).
			WithContext("path", f.path)
	}
	return nil
}
