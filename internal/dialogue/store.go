package dialogue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// Store keeps one draft per conversation. Load returns an empty draft for
// unknown conversations.
type Store interface {
	Load(ctx context.Context, conversationID string) (Draft, error)
	Save(ctx context.Context, conversationID string, d Draft) error
	Clear(ctx context.Context, conversationID string) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	drafts map[string]Draft
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{drafts: make(map[string]Draft)}
}

func (m *MemoryStore) Load(_ context.Context, conversationID string) (Draft, error) {
	m.mu.RLock()
	d, ok := m.drafts[conversationID]
	m.mu.RUnlock()
	if !ok {
		return Draft{}, nil
	}
	return d.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, conversationID string, d Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.Empty() {
		delete(m.drafts, conversationID)
		return nil
	}
	m.drafts[conversationID] = d.Clone()
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, conversationID string) error {
	m.mu.Lock()
	delete(m.drafts, conversationID)
	m.mu.Unlock()
	return nil
}

// Len returns the number of non-empty drafts held.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.drafts)
}

// RedisStore keeps drafts in Redis so they survive restarts. Drafts expire
// after ttl of inactivity; a zero ttl keeps them forever.
type RedisStore struct {
	client    redis.UniversalClient
	namespace string
	ttl       time.Duration
}

func NewRedisStore(client redis.UniversalClient, namespace string, ttl time.Duration) *RedisStore {
	if namespace == "" {
		namespace = "gymbro:draft"
	}
	return &RedisStore{client: client, namespace: namespace, ttl: ttl}
}

func (r *RedisStore) key(conversationID string) string {
	return r.namespace + ":" + conversationID
}

func (r *RedisStore) Load(ctx context.Context, conversationID string) (Draft, error) {
	raw, err := r.client.Get(ctx, r.key(conversationID)).Bytes()
	if err == redis.Nil {
		return Draft{}, nil
	}
	if err != nil {
		return Draft{}, fmt.Errorf("loading draft: %w", err)
	}
	var d Draft
	if err := sonic.Unmarshal(raw, &d); err != nil {
		return Draft{}, fmt.Errorf("decoding draft: %w", err)
	}
	return d, nil
}

func (r *RedisStore) Save(ctx context.Context, conversationID string, d Draft) error {
	if d.Empty() {
		return r.Clear(ctx, conversationID)
	}
	raw, err := sonic.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding draft: %w", err)
	}
	if err := r.client.Set(ctx, r.key(conversationID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("saving draft: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context, conversationID string) error {
	if err := r.client.Del(ctx, r.key(conversationID)).Err(); err != nil {
		return fmt.Errorf("clearing draft: %w", err)
	}
	return nil
}
