package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/AnshRaj112/wayfarer-backend/pkg/utils"
)

// IdentityCacheKey is the single key of the local identity cache.
const IdentityCacheKey = "anonymous_user_id"

// ErrIdentityCacheCorrupt is returned when the cache file cannot be decoded.
var ErrIdentityCacheCorrupt = errors.New("identity cache is corrupt")

// IdentityStore is the durable local cache of the current identity.
type IdentityStore interface {
	Get(ctx context.Context) (string, bool, error)
	Set(ctx context.Context, identity string) error
	Clear(ctx context.Context) error
}

// FileIdentityStore keeps the identity in a small JSON file. Writes go to a
// temp file that is renamed over the old one. When a key is configured the
// value is sealed with AES-256-GCM.
type FileIdentityStore struct {
	path string
	key  []byte
	mu   sync.Mutex
}

func NewFileIdentityStore(path string, key []byte) *FileIdentityStore {
	return &FileIdentityStore{path: path, key: key}
}

func (s *FileIdentityStore) Get(ctx context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrIdentityCacheCorrupt, err)
	}
	raw, ok := values[IdentityCacheKey]
	if !ok || raw == "" {
		return "", false, nil
	}

	if s.key != nil {
		plain, err := utils.Decrypt(s.key, raw)
		if err != nil {
			return "", false, fmt.Errorf("%w: %v", ErrIdentityCacheCorrupt, err)
		}
		raw = plain
	}
	return raw, true, nil
}

func (s *FileIdentityStore) Set(ctx context.Context, identity string) error {
	if identity == "" {
		return errors.New("identity must not be empty")
	}

	value := identity
	if s.key != nil {
		sealed, err := utils.Encrypt(s.key, identity)
		if err != nil {
			return err
		}
		value = sealed
	}

	data, err := json.MarshalIndent(map[string]string{IdentityCacheKey: value}, "", "  ")
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".identity-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (s *FileIdentityStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// MemoryIdentityStore is an in-process IdentityStore.
type MemoryIdentityStore struct {
	mu       sync.Mutex
	identity string
}

func (s *MemoryIdentityStore) Get(ctx context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity, s.identity != "", nil
}

func (s *MemoryIdentityStore) Set(ctx context.Context, identity string) error {
	if identity == "" {
		return errors.New("identity must not be empty")
	}
	s.mu.Lock()
	s.identity = identity
	s.mu.Unlock()
	return nil
}

func (s *MemoryIdentityStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.identity = ""
	s.mu.Unlock()
	return nil
}
