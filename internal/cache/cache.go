package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/presence-app/presence/pkg/models"
)

// Cache provides caching functionality using Redis
type Cache struct {
	client *redis.Client
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Meditation Cache Operations

// SetMeditation caches a generated meditation by quote id
func (c *Cache) SetMeditation(ctx context.Context, m *models.Meditation, ttl time.Duration) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal meditation: %w", err)
	}

	key := fmt.Sprintf("meditation:%s", m.QuoteID)
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetMeditation retrieves a cached meditation by quote id
func (c *Cache) GetMeditation(ctx context.Context, quoteID string) (*models.Meditation, error) {
	key := fmt.Sprintf("meditation:%s", quoteID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get meditation from cache: %w", err)
	}

	var m models.Meditation
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal meditation: %w", err)
	}

	return &m, nil
}

// Quote Cache Operations

// SetQuote caches a quote
func (c *Cache) SetQuote(ctx context.Context, quote *models.Quote, ttl time.Duration) error {
	data, err := json.Marshal(quote)
	if err != nil {
		return fmt.Errorf("failed to marshal quote: %w", err)
	}

	key := fmt.Sprintf("quote:%s", quote.ID)
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetQuote retrieves a cached quote
func (c *Cache) GetQuote(ctx context.Context, quoteID string) (*models.Quote, error) {
	key := fmt.Sprintf("quote:%s", quoteID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get quote from cache: %w", err)
	}

	var quote models.Quote
	if err := json.Unmarshal(data, &quote); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quote: %w", err)
	}

	return &quote, nil
}

// DeleteQuote removes a quote from the cache
func (c *Cache) DeleteQuote(ctx context.Context, quoteID string) error {
	key := fmt.Sprintf("quote:%s", quoteID)
	return c.client.Del(ctx, key).Err()
}

// Rate Limiting Operations

// CheckRateLimit checks if a fixed-window rate limit has been exceeded.
// The counter is incremented on every call; the window starts with the
// first request and expires as a whole.
func (c *Cache) CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	rateLimitKey := fmt.Sprintf("ratelimit:%s", key)

	// Increment counter
	count, err := c.client.Incr(ctx, rateLimitKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	// Set expiry on first request
	if count == 1 {
		if err := c.client.Expire(ctx, rateLimitKey, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set expiry: %w", err)
		}
	}

	// Check if limit exceeded
	return count <= limit, nil
}

// Health check
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
