package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/storefront-client/internal/domain"
)

const (
	userField  = "user"
	tokenField = "token"
)

// RedisStore mirrors the session into a Redis hash, for shared-host or kiosk
// deployments where several storefront processes on one terminal must see the
// same session. One hash per install keeps user and token in a single key,
// so writes and deletes of both fields are one round trip each.
type RedisStore struct {
	client  *redis.Client
	key     string
	timeout time.Duration
}

var _ DurableStore = (*RedisStore)(nil)

// NewRedisStore builds a store writing under the given key.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = "storefront:session"
	}
	return &RedisStore{client: client, key: key, timeout: 3 * time.Second}
}

// Load reads the stored session.
func (s *RedisStore) Load() (*domain.Identity, domain.Credential, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, "", fmt.Errorf("read session hash: %w", err)
	}
	rawUser, okUser := fields[userField]
	rawToken, okToken := fields[tokenField]
	if !okUser || !okToken || rawToken == "" {
		return nil, "", ErrNotFound
	}

	var identity domain.Identity
	if err := json.Unmarshal([]byte(rawUser), &identity); err != nil {
		return nil, "", fmt.Errorf("decode stored identity: %w", err)
	}
	return &identity, domain.Credential(rawToken), nil
}

// Save writes both fields in a single HSET.
func (s *RedisStore) Save(identity *domain.Identity, credential domain.Credential) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	return s.client.HSet(ctx, s.key,
		userField, string(data),
		tokenField, string(credential),
	).Err()
}

// Delete removes the whole hash.
func (s *RedisStore) Delete() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Del(ctx, s.key).Err()
}
