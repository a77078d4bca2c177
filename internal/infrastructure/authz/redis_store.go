// Package authz resolves API bearer tokens against Redis. Tokens are
// provisioned by the main case-management application; this service only
// reads them.
package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lexvault/import-engine/internal/core/domain"
)

const tokenPrefix = "import:token:"

type tokenRecord struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

type RedisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(redisURL string) (*RedisTokenStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisTokenStore{client: client}, nil
}

func NewRedisTokenStoreWithClient(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func (s *RedisTokenStore) Close() error {
	return s.client.Close()
}

func (s *RedisTokenStore) Lookup(ctx context.Context, token string) (*domain.AuthUser, error) {
	raw, err := s.client.Get(ctx, tokenPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.WrapError(domain.ErrForbidden, "token lookup",
			errors.New("unknown or expired token"))
	}
	if err != nil {
		return nil, fmt.Errorf("token lookup: %w", err)
	}

	var record tokenRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("unmarshal token record: %w", err)
	}

	return &domain.AuthUser{
		ID:   record.UserID,
		Name: record.Name,
		Role: domain.NormalizeRole(record.Role),
	}, nil
}

// Register writes a token record with a TTL. Used by provisioning scripts
// and tests.
func (s *RedisTokenStore) Register(ctx context.Context, token string, user domain.AuthUser, ttl time.Duration) error {
	raw, err := json.Marshal(tokenRecord{
		UserID: user.ID,
		Name:   user.Name,
		Role:   string(user.Role),
	})
	if err != nil {
		return fmt.Errorf("marshal token record: %w", err)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if err := s.client.Set(ctx, tokenPrefix+token, raw, ttl).Err(); err != nil {
		return fmt.Errorf("save token record: %w", err)
	}
	return nil
}
