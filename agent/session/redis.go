package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "agent-teams:session:"

type RedisConfig struct {
	URL       string        `envconfig:"URL" split_words:"true" required:"true"`
	KeyPrefix string        `envconfig:"KEY_PREFIX" split_words:"true" default:"agent-teams:session:"`
	TTL       time.Duration `envconfig:"TTL" split_words:"true" default:"24h"`
}

type RedisStore struct {
	rdb       *redis.Client
	keyPrefix string
	ttl       time.Duration
}

var _ Store = (*RedisStore)(nil)

func NewRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opt), nil
}

func NewRedisStore(rdb *redis.Client, cfg RedisConfig) (*RedisStore, error) {
	if rdb == nil {
		return nil, errors.New("redis client is required")
	}
	if cfg.TTL < 0 {
		return nil, errors.New("ttl must be >= 0")
	}
	prefix := strings.TrimSpace(cfg.KeyPrefix)
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{rdb: rdb, keyPrefix: prefix, ttl: cfg.TTL}, nil
}

func (r *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	if err := validID(id); err != nil {
		return nil, err
	}

	raw, err := r.rdb.Get(ctx, r.keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	if s == nil {
		return ErrNilSession
	}
	if err := validID(s.ID); err != nil {
		return err
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.rdb.Set(ctx, r.keyPrefix+s.ID, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	if err := r.rdb.Del(ctx, r.keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.rdb.Close()
}
