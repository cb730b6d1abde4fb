package carrier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTokenKey = "checkout:carrier:b2b-token"

// RedisTokenStore shares the B2B token between replicas.
type RedisTokenStore struct {
	rdb redis.Cmdable
	key string
}

func NewRedisTokenStore(rdb redis.Cmdable, key string) *RedisTokenStore {
	if key == "" {
		key = defaultTokenKey
	}
	return &RedisTokenStore{rdb: rdb, key: key}
}

func (s *RedisTokenStore) Load(ctx context.Context) (Token, bool, error) {
	raw, err := s.rdb.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Token{}, false, nil
		}
		return Token{}, false, err
	}
	var tok Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return Token{}, false, fmt.Errorf("decode cached token: %w", err)
	}
	return tok, true, nil
}

// Store writes the token with a redis TTL matching its expiry.
func (s *RedisTokenStore) Store(ctx context.Context, tok Token) error {
	ttl := time.Until(tok.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key, raw, ttl).Err()
}

func (s *RedisTokenStore) Clear(ctx context.Context) error {
	return s.rdb.Del(ctx, s.key).Err()
}
