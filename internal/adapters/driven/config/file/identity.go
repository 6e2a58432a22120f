package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/ports/driven"
)

// Ensure IdentityStore implements the interface.
var _ driven.IdentityStore = (*IdentityStore)(nil)

// IdentityStore keeps the signed-in identity in a TOML file readable
// only by the owner.
type IdentityStore struct {
	mu       sync.Mutex
	filePath string
}

// NewIdentityStore creates a store at path.
// If path is empty, defaults to ~/.ragbot/identity.toml.
func NewIdentityStore(path string) (*IdentityStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		path = filepath.Join(home, ".ragbot", "identity.toml")
	}
	return &IdentityStore{filePath: path}, nil
}

// Load returns the saved identity, or a zero identity if none is saved.
func (s *IdentityStore) Load() (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Identity{}, nil
		}
		return domain.Identity{}, fmt.Errorf("read identity: %w", err)
	}

	var identity domain.Identity
	if err := toml.Unmarshal(data, &identity); err != nil {
		return domain.Identity{}, fmt.Errorf("parse identity: %w", err)
	}
	return identity, nil
}

// Save replaces the saved identity.
func (s *IdentityStore) Save(identity domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := toml.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0700); err != nil {
		return fmt.Errorf("create identity directory: %w", err)
	}
	return os.WriteFile(s.filePath, data, 0600)
}

// Clear removes the saved identity. Clearing an absent identity is not an error.
func (s *IdentityStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove identity: %w", err)
	}
	return nil
}

// Path returns the identity file path.
func (s *IdentityStore) Path() string {
	return s.filePath
}
