package ai

import (
	"container/list"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"github.com/tOgg1/replydesk/internal/logging"
)

// Cache stores transform results by key.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// MemoryCache is a size-bounded LRU with per-entry expiry.
type MemoryCache struct {
	mu      sync.Mutex
	size    int
	ttl     time.Duration
	order   *list.List
	entries map[string]*list.Element
	now     func() time.Time
}

type memoryEntry struct {
	key     string
	value   string
	expires time.Time
}

// NewMemoryCache creates an LRU holding at most size entries for ttl each.
// A non-positive ttl keeps entries until evicted.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = 256
	}
	return &MemoryCache{
		size:    size,
		ttl:     ttl,
		order:   list.New(),
		entries: make(map[string]*list.Element, size),
		now:     time.Now,
	}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return "", false, nil
	}
	e := el.Value.(*memoryEntry)
	if !e.expires.IsZero() && c.now().After(e.expires) {
		c.order.Remove(el)
		delete(c.entries, key)
		return "", false, nil
	}
	c.order.MoveToFront(el)
	return e.value, true, nil
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var expires time.Time
	if c.ttl > 0 {
		expires = c.now().Add(c.ttl)
	}
	if el, ok := c.entries[key]; ok {
		e := el.Value.(*memoryEntry)
		e.value, e.expires = value, expires
		c.order.MoveToFront(el)
		return nil
	}
	c.entries[key] = c.order.PushFront(&memoryEntry{key: key, value: value, expires: expires})
	for c.order.Len() > c.size {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*memoryEntry).key)
	}
	return nil
}

// Len is the number of cached entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// RedisCache shares transform results between desks through redis.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisCache wraps client. Keys are namespaced under prefix.
func NewRedisCache(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "replydesk:ai:"
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return v, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key, value string) error {
	if err := c.client.Set(ctx, c.prefix+key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Cached decorates a Service with a result cache for the deterministic
// calls: Translate, Revise and Formats. SmartReply and Generate always reach
// the backend so regenerating yields a fresh answer.
type Cached struct {
	next  Service
	cache Cache
}

// NewCached wraps next with cache.
func NewCached(next Service, cache Cache) *Cached {
	return &Cached{next: next, cache: cache}
}

func cacheKey(parts ...string) string {
	h, _ := blake2b.New256(nil)
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cached) lookup(ctx context.Context, key string) (string, bool) {
	v, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		log := logging.Component("ai")
		log.Warn().Err(err).Msg("cache read failed")
		return "", false
	}
	return v, ok
}

func (c *Cached) store(ctx context.Context, key, value string) {
	if err := c.cache.Set(ctx, key, value); err != nil {
		log := logging.Component("ai")
		log.Warn().Err(err).Msg("cache write failed")
	}
}

// Translate implements Service.
func (c *Cached) Translate(ctx context.Context, text, language string) (string, error) {
	key := cacheKey("translate", language, text)
	if v, ok := c.lookup(ctx, key); ok {
		return v, nil
	}
	out, err := c.next.Translate(ctx, text, language)
	if err != nil {
		return "", err
	}
	if out != "" {
		c.store(ctx, key, out)
	}
	return out, nil
}

// Revise implements Service.
func (c *Cached) Revise(ctx context.Context, text, formatID string) (string, error) {
	key := cacheKey("revise", formatID, text)
	if v, ok := c.lookup(ctx, key); ok {
		return v, nil
	}
	out, err := c.next.Revise(ctx, text, formatID)
	if err != nil {
		return "", err
	}
	if out != "" {
		c.store(ctx, key, out)
	}
	return out, nil
}

// Formats implements Service.
func (c *Cached) Formats(ctx context.Context) ([]Format, error) {
	key := cacheKey("formats")
	if v, ok := c.lookup(ctx, key); ok {
		var formats []Format
		if err := json.Unmarshal([]byte(v), &formats); err == nil {
			return formats, nil
		}
	}
	formats, err := c.next.Formats(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(formats); err == nil && len(formats) > 0 {
		c.store(ctx, key, string(data))
	}
	return formats, nil
}

// SmartReply implements Service.
func (c *Cached) SmartReply(ctx context.Context, req SmartReplyRequest) (Review, error) {
	return c.next.SmartReply(ctx, req)
}

// Generate implements Service.
func (c *Cached) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return c.next.Generate(ctx, req)
}
