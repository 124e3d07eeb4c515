// Package intentstore keeps the active intent pinned per conversation.
package intentstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"nexi-assistant/internal/common/config"
	"nexi-assistant/internal/models"
)

// Store reads and writes the pinned intent. Unknown conversations resolve to
// models.ActiveRouter.
type Store interface {
	Get(ctx context.Context, conversationID string) (models.ActiveIntent, error)
	Set(ctx context.Context, conversationID string, intent models.ActiveIntent) error
	Delete(ctx context.Context, conversationID string) error
}

// New builds the store selected in cfg. client is only used for the redis
// backend.
func New(cfg config.IntentStoreConfig, client redis.Cmdable) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", config.StoreMemory:
		return NewMemoryStore(), nil
	case config.StoreRedis:
		if client == nil {
			return nil, fmt.Errorf("intent store: redis backend without client")
		}
		return NewRedisStore(client, WithPrefix(cfg.Prefix), WithTTL(config.GetDuration(cfg.TTL))), nil
	default:
		return nil, fmt.Errorf("intent store: unknown backend %q", cfg.Backend)
	}
}

// MemoryStore is a process-local store. Concurrent writes for the same
// conversation are last-write-wins.
type MemoryStore struct {
	mu      sync.RWMutex
	intents map[string]models.ActiveIntent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{intents: make(map[string]models.ActiveIntent)}
}

func (s *MemoryStore) Get(_ context.Context, conversationID string) (models.ActiveIntent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.intents[conversationID]; ok {
		return a, nil
	}
	return models.ActiveRouter, nil
}

func (s *MemoryStore) Set(_ context.Context, conversationID string, intent models.ActiveIntent) error {
	if !intent.Valid() {
		return fmt.Errorf("intent store: invalid intent %q", intent)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents[conversationID] = intent
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.intents, conversationID)
	return nil
}

// RedisStore keeps intents as plain string keys.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

type Option func(*RedisStore)

func WithPrefix(prefix string) Option {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithTTL sets the key expiry; zero keeps keys forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *RedisStore) { s.ttl = ttl }
}

func NewRedisStore(client redis.Cmdable, opts ...Option) *RedisStore {
	s := &RedisStore{client: client, prefix: "nexi:intent:"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(conversationID string) string {
	return s.prefix + conversationID
}

func (s *RedisStore) Get(ctx context.Context, conversationID string) (models.ActiveIntent, error) {
	val, err := s.client.Get(ctx, s.key(conversationID)).Result()
	if err == redis.Nil {
		return models.ActiveRouter, nil
	}
	if err != nil {
		return models.ActiveRouter, fmt.Errorf("intent store get: %w", err)
	}
	return models.ParseActiveIntent(val), nil
}

func (s *RedisStore) Set(ctx context.Context, conversationID string, intent models.ActiveIntent) error {
	if !intent.Valid() {
		return fmt.Errorf("intent store: invalid intent %q", intent)
	}
	if err := s.client.Set(ctx, s.key(conversationID), string(intent), s.ttl).Err(); err != nil {
		return fmt.Errorf("intent store set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, conversationID string) error {
	if err := s.client.Del(ctx, s.key(conversationID)).Err(); err != nil {
		return fmt.Errorf("intent store delete: %w", err)
	}
	return nil
}
