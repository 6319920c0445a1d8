package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-checkin/internal/secret"
)

const (
	// SessionTokenKey is the Redis key holding the operator session
	SessionTokenKey = "checkin:session_token"
	// TokenExpiryBuffer is how long before expiry a token is already treated as gone (in seconds)
	TokenExpiryBuffer = 60
	// DefaultSessionTTL applies to credentials without an exp claim
	DefaultSessionTTL = 12 * time.Hour
)

// TokenCache is the stored session. Token is encrypted when the store has a Box.
type TokenCache struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsValid checks that the token is still valid with a buffer before expiry
func (tc *TokenCache) IsValid(now time.Time) bool {
	if tc == nil || tc.Token == "" {
		return false
	}
	return now.Add(TokenExpiryBuffer * time.Second).Before(tc.ExpiresAt)
}

// RedisStore keeps the operator session in Redis so the scanner console and
// the kiosk host share one login.
type RedisStore struct {
	Client *redis.Client
	Box    *secret.Box
	Now    func() time.Time
}

func NewRedisStore(client *redis.Client, box *secret.Box) *RedisStore {
	return &RedisStore{Client: client, Box: box, Now: time.Now}
}

// Token returns the stored credential. Any lookup failure counts as not authenticated.
func (s *RedisStore) Token(ctx context.Context) (string, bool) {
	cache, err := s.load(ctx)
	if err != nil || cache == nil {
		return "", false
	}
	return cache.Token, true
}

func (s *RedisStore) load(ctx context.Context) (*TokenCache, error) {
	if s.Client == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}

	tokenJSON, err := s.Client.Get(ctx, SessionTokenKey).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get session from Redis: %w", err)
	}

	var cache TokenCache
	if err := json.Unmarshal([]byte(tokenJSON), &cache); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	if !cache.IsValid(s.Now()) {
		return nil, nil
	}

	if s.Box != nil {
		plain, err := s.Box.Decrypt(cache.Token)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt session: %w", err)
		}
		cache.Token = plain
	}

	return &cache, nil
}

// Save stores the credential until its exp claim, or DefaultSessionTTL for opaque tokens.
func (s *RedisStore) Save(ctx context.Context, token string) error {
	if s.Client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}

	now := s.Now()
	expiresAt := now.Add(DefaultSessionTTL)
	if op, err := ParseOperator(token); err == nil && !op.ExpiresAt.IsZero() {
		expiresAt = op.ExpiresAt
	}
	if !expiresAt.After(now) {
		return fmt.Errorf("token already expired at %s", expiresAt.Format(time.RFC3339))
	}

	stored := token
	if s.Box != nil {
		enc, err := s.Box.Encrypt(token)
		if err != nil {
			return fmt.Errorf("failed to encrypt session: %w", err)
		}
		stored = enc
	}

	tokenJSON, err := json.Marshal(&TokenCache{Token: stored, ExpiresAt: expiresAt})
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ttl := expiresAt.Sub(now)
	if err := s.Client.Set(ctx, SessionTokenKey, tokenJSON, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session in Redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if s.Client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	if err := s.Client.Del(ctx, SessionTokenKey).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
