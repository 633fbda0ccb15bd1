package store

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/kiw9761/GAIN/core/model"
	"github.com/kiw9761/GAIN/pkg/errors"
)

// RedisStore keeps JSON-encoded checkpoints under <Prefix><key>.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to cfg.RedisAddr and verifies the connection.
func NewRedisStore(ctx context.Context, cfg Config) (*RedisStore, error) {
	if cfg.RedisAddr == "" {
		return nil, errors.NewValidationError("store.redis_addr", "required for the redis store", cfg.RedisAddr)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, errors.NewModelError("NewRedisStore", "failed to connect to redis", err)
	}
	return NewRedisStoreFromClient(client, cfg.Prefix, cfg.TTL), nil
}

// NewRedisStoreFromClient wraps an existing client. A zero ttl keeps
// checkpoints forever.
func NewRedisStoreFromClient(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + key
}

// Load implements gain.ModelStore.
func (s *RedisStore) Load(ctx context.Context, key string) (*model.Checkpoint, error) {
	if err := validateKey("RedisStore.Load", key); err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err == redis.Nil {
		return nil, notFound("RedisStore.Load", key)
	}
	if err != nil {
		return nil, errors.NewModelError("RedisStore.Load", "get failed", err)
	}
	var cp model.Checkpoint
	if err := cp.FromJSON(data); err != nil {
		return nil, err
	}
	return &cp, nil
}

// Save implements gain.ModelStore.
func (s *RedisStore) Save(ctx context.Context, key string, cp *model.Checkpoint) error {
	if err := validateKey("RedisStore.Save", key); err != nil {
		return err
	}
	if err := cp.Validate(); err != nil {
		return err
	}
	data, err := cp.ToJSON()
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(key), data, s.ttl).Err(); err != nil {
		return errors.NewModelError("RedisStore.Save", "set failed", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
