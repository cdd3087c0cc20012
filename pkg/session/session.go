// Package session is the opaque key-value store used for the signed-in
// user's session (token, user id, role). It has no contract beyond
// Get, Set and Clear.
package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/benmeehan/waste-reporter/pkg/file"
)

// Store is a key-value session store.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Clear() error
}

// MemoryStore keeps the session in memory only.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = make(map[string]string)
	return nil
}

// EncryptedFileStore persists the session as AES-256-GCM sealed JSON.
type EncryptedFileStore struct {
	path    string
	fileOps file.FileOperations
	aesgcm  cipher.AEAD

	mu     sync.RWMutex
	values map[string]string
}

// NewEncryptedFileStore loads the store at path with a 32-byte key. A missing
// or empty file starts an empty session.
func NewEncryptedFileStore(path string, key []byte, fileOps file.FileOperations) (*EncryptedFileStore, error) {
	const keySize = 32
	if len(key) != keySize {
		return nil, fmt.Errorf("invalid AES key size: got %d bytes, want %d bytes", len(key), keySize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher block: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES-GCM: %w", err)
	}

	s := &EncryptedFileStore{
		path:    path,
		fileOps: fileOps,
		aesgcm:  aesgcm,
		values:  make(map[string]string),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *EncryptedFileStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *EncryptedFileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.save()
}

func (s *EncryptedFileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
	return s.save()
}

func (s *EncryptedFileStore) load() error {
	data, err := s.fileOps.ReadFileRaw(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read session file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	nonceSize := s.aesgcm.NonceSize()
	if len(data) < nonceSize {
		return errors.New("session file too short: must include nonce and encrypted data")
	}
	plaintext, err := s.aesgcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return fmt.Errorf("failed to decrypt session file: %w", err)
	}
	if err := json.Unmarshal(plaintext, &s.values); err != nil {
		return fmt.Errorf("failed to parse session data: %w", err)
	}
	return nil
}

// save must be called with mu held.
func (s *EncryptedFileStore) save() error {
	plaintext, err := json.Marshal(s.values)
	if err != nil {
		return err
	}
	nonce := make([]byte, s.aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := s.aesgcm.Seal(nonce, nonce, plaintext, nil)
	if err := s.fileOps.WriteFileRaw(s.path, sealed); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// BearerToken returns the stored token unless its exp claim has passed. The
// token is not verified here; the gateway does that.
func BearerToken(store Store, key string, now time.Time) (string, bool) {
	token, ok := store.Get(key)
	if !ok || token == "" {
		return "", false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		// Opaque tokens are passed through as they are.
		return token, true
	}
	exp, err := claims.GetExpirationTime()
	if err == nil && exp != nil && !now.Before(exp.Time) {
		return "", false
	}
	return token, true
}
