package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var ErrEmptyToken = errors.New("empty token")

// CredentialSource supplies the operator credential for a single call. ok is
// false when the operator is not authenticated.
type CredentialSource interface {
	Token(ctx context.Context) (token string, ok bool)
}

// Store is a CredentialSource that login/logout can write to.
type Store interface {
	CredentialSource
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the credential in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: strings.TrimSpace(token)}
}

func (s *MemoryStore) Token(ctx context.Context) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

func (s *MemoryStore) Save(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	return nil
}
