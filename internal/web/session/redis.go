package session

import (
	"context"
	"encoding/json"
	"time"

	errors "github.com/Laisky/errors/v2"
	"github.com/redis/go-redis/v9"
)

var _ Store = new(RedisStore)

// DefaultRedisPrefix namespaces session keys in a shared redis.
const DefaultRedisPrefix = "rango/session/"

// RedisStore keeps each session as a JSON string with a native TTL.
type RedisStore struct {
	rdb    redis.Cmdable
	prefix string
}

// NewRedisStore wraps rdb. An empty prefix uses DefaultRedisPrefix.
func NewRedisStore(rdb redis.Cmdable, prefix string) (*RedisStore, error) {
	if rdb == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}

	return &RedisStore{rdb: rdb, prefix: prefix}, nil
}

func (s *RedisStore) redisKey(key string) string {
	return s.prefix + key
}

// Load returns the stored values, or empty values when the key is absent.
func (s *RedisStore) Load(ctx context.Context, key string) (Values, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}

	data, err := s.rdb.Get(ctx, s.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Values{}, nil
		}
		return nil, errors.Wrap(err, "load session")
	}

	values := Values{}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, errors.Wrapf(err, "decode session %s", key)
	}

	return values, nil
}

// Save writes values with ttl.
func (s *RedisStore) Save(ctx context.Context, key string, values Values, ttl time.Duration) error {
	if err := validKey(key); err != nil {
		return err
	}
	if ttl <= 0 {
		return errors.Errorf("ttl must be greater than 0: %s", ttl)
	}

	data, err := json.Marshal(values.Clone())
	if err != nil {
		return errors.Wrap(err, "encode session")
	}

	if err := s.rdb.Set(ctx, s.redisKey(key), data, ttl).Err(); err != nil {
		return errors.Wrap(err, "save session")
	}
	return nil
}

// Delete removes the session.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return errors.Wrap(err, "delete session")
	}
	return nil
}
