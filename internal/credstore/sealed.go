package credstore

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	secretLen = 32
	saltLen   = 16
	keyLen    = 32

	argonTime    uint32 = 3
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 1
)

// SealedStore keeps the record AEAD-encrypted on disk. The key is derived
// with Argon2id from a per-host machine secret created on first use; the
// sealed file is salt || nonce || ciphertext.
type SealedStore struct {
	mu     sync.Mutex
	path   string
	secret []byte
}

var _ Store = (*SealedStore)(nil)

// OpenSealed initializes the sealed store in dir, creating the machine
// secret if needed. An error here means the host cannot run the sealed
// backend and the caller should fall back.
func OpenSealed(dir string) (*SealedStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	secretPath := filepath.Join(dir, "machine.key")
	secret, err := os.ReadFile(secretPath)
	if os.IsNotExist(err) {
		secret = make([]byte, secretLen)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
		if err := os.WriteFile(secretPath, secret, 0o600); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	if len(secret) != secretLen {
		return nil, errors.New("machine secret corrupted")
	}
	return &SealedStore{path: filepath.Join(dir, "credentials.sealed"), secret: secret}, nil
}

func (s *SealedStore) seal(m map[string]string) error {
	plain, err := json.Marshal(m)
	if err != nil {
		return err
	}
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return err
	}
	key := argon2.IDKey(s.secret, salt, argonTime, argonMemory, argonThreads, keyLen)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return err
	}
	out := make([]byte, 0, len(salt)+len(nonce)+len(plain)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, aead.Seal(nil, nonce, plain, nil)...)
	return os.WriteFile(s.path, out, 0o600)
}

func (s *SealedStore) unseal() (map[string]string, error) {
	blob, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	if len(blob) < saltLen+chacha20poly1305.NonceSizeX {
		return nil, errors.New("sealed record too short")
	}
	salt := blob[:saltLen]
	nonce := blob[saltLen : saltLen+chacha20poly1305.NonceSizeX]
	ct := blob[saltLen+chacha20poly1305.NonceSizeX:]
	key := argon2.IDKey(s.secret, salt, argonTime, argonMemory, argonThreads, keyLen)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, err
	}
	m := map[string]string{}
	if err := json.Unmarshal(plain, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *SealedStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.unseal()
	if err != nil {
		return "", err
	}
	return m[key], nil
}

func (s *SealedStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.unseal()
	if err != nil {
		return err
	}
	m[key] = value
	return s.seal(m)
}

func (s *SealedStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.unseal()
	if err != nil {
		return err
	}
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	return s.seal(m)
}

func (s *SealedStore) Clear(ctx context.Context) error {
	for _, k := range credentialKeys {
		if err := s.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}
