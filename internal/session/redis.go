package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"resumeforge/internal/config"
	"resumeforge/internal/errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in redis as JSON under a key prefix, expiring with the session TTL.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// NewRedisStore connects to the configured redis and pings it once.
func NewRedisStore(ctx context.Context, cfg config.RedisConfig, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.NewIOError(errors.ErrCodeSessionStore, "failed to connect to redis session store", err).
			WithContext("addr", cfg.Addr)
	}
	return NewRedisStoreWithClient(client, cfg.KeyPrefix, ttl), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (r *RedisStore) key(id string) string {
	return r.keyPrefix + id
}

func (r *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeSessionStore, "failed to load session", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		// A corrupt entry is as good as no session.
		return nil, nil
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeSessionStore, "failed to encode session", err)
	}
	if err := r.client.Set(ctx, r.key(s.ID), data, r.ttl).Err(); err != nil {
		return errors.NewIOError(errors.ErrCodeSessionStore, "failed to save session", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return errors.NewIOError(errors.ErrCodeSessionStore, "failed to delete session", err)
	}
	return nil
}

// Close releases the redis connection pool
func (r *RedisStore) Close() error {
	return r.client.Close()
}
