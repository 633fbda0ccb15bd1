// Package store persists imputer checkpoints. Every backend implements
// gain.ModelStore and reports a missing key with errors.ErrCheckpointNotFound.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/kiw9761/GAIN/core/model"
	"github.com/kiw9761/GAIN/pkg/errors"
)

// Backend types accepted by New.
const (
	TypeFile   = "file"
	TypeMemory = "memory"
	TypeRedis  = "redis"
	TypeS3     = "s3"
)

// Config selects and configures a backend.
type Config struct {
	Type string `mapstructure:"type"`

	// File
	Dir string `mapstructure:"dir"`

	// Redis
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`

	// S3
	Bucket         string `mapstructure:"bucket"`
	Region         string `mapstructure:"region"`
	Endpoint       string `mapstructure:"endpoint"`
	ForcePathStyle bool   `mapstructure:"force_path_style"`

	// Prefix is prepended to keys by the redis and s3 backends.
	Prefix string `mapstructure:"prefix"`
}

// DefaultConfig stores checkpoints as files under ./model.
func DefaultConfig() Config {
	return Config{Type: TypeFile, Dir: "model", Prefix: "gain/"}
}

// New builds the backend named by cfg.Type. Network backends are contacted
// once to fail fast on bad configuration.
func New(ctx context.Context, cfg Config) (model.CheckpointStore, error) {
	switch cfg.Type {
	case TypeFile, "":
		return NewFileStore(cfg.Dir), nil
	case TypeMemory:
		return NewMemoryStore(), nil
	case TypeRedis:
		return NewRedisStore(ctx, cfg)
	case TypeS3:
		return NewS3Store(cfg)
	default:
		return nil, errors.NewValidationError("store.type", "must be one of file, memory, redis, s3", cfg.Type)
	}
}

// validateKey rejects keys that could escape a directory or prefix.
func validateKey(op, key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return errors.NewValidationError("key", op+": invalid checkpoint key", key)
	}
	return nil
}

func notFound(op, key string) error {
	return errors.Wrapf(errors.ErrCheckpointNotFound, "%s: %q", op, key)
}
