package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spec-kit/storefront-client/internal/domain"
)

const sessionFile = "session.json"

// storedSession is the on-disk document. Holding both keys in one file makes
// the write-both/clear-both rule a single atomic rename.
type storedSession struct {
	User  *domain.Identity  `json:"user"`
	Token domain.Credential `json:"token"`
}

// FileStore persists the session as a JSON file under the user config
// directory, the default mirror for a single-user desktop install.
type FileStore struct {
	path string
}

var _ DurableStore = (*FileStore)(nil)

// NewFileStore creates a FileStore rooted at dir, creating it if needed.
// An empty dir defaults to <user config dir>/storefront.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve config dir: %w", err)
		}
		dir = filepath.Join(base, "storefront")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{path: filepath.Join(dir, sessionFile)}, nil
}

// Load reads the stored session.
func (s *FileStore) Load() (*domain.Identity, domain.Credential, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("read session file: %w", err)
	}
	var stored storedSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, "", fmt.Errorf("decode session file: %w", err)
	}
	if stored.User == nil || stored.Token.Empty() {
		return nil, "", ErrNotFound
	}
	return stored.User, stored.Token, nil
}

// Save writes identity and credential together via a temp-file rename, so a
// crash can never leave one key without the other.
func (s *FileStore) Save(identity *domain.Identity, credential domain.Credential) error {
	data, err := json.MarshalIndent(storedSession{User: identity, Token: credential}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Delete removes the stored session. Deleting an absent session is not an
// error.
func (s *FileStore) Delete() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
