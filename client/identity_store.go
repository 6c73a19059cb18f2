package client

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// IdentityStore keeps the last participant id issued by the server.
type IdentityStore interface {
	Load() (string, error)
	Save(participantID string) error
	Clear() error
}

// FileIdentityStore keeps the id in a single file, absent when no identity is known.
type FileIdentityStore struct {
	mu   sync.Mutex
	path string
}

func NewFileIdentityStore(path string) *FileIdentityStore {
	return &FileIdentityStore{path: path}
}

func (f *FileIdentityStore) Load() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (f *FileIdentityStore) Save(participantID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(f.path, []byte(participantID+"\n"), 0o600)
}

func (f *FileIdentityStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
