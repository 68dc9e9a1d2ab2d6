// Package cache puts a Redis read-through layer in front of metadata resolution.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"bookresale/internal/extract"
)

const metadataKeyPrefix = "metadata:"

// MetadataResolver is the uncached resolver being wrapped.
type MetadataResolver interface {
	Resolve(ctx context.Context, isbn string) extract.Metadata
}

type MetadataCache struct {
	client redis.Cmdable
	next   MetadataResolver
	ttl    time.Duration
	logger *slog.Logger
}

func NewMetadataCache(client redis.Cmdable, next MetadataResolver, ttl time.Duration, logger *slog.Logger) *MetadataCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &MetadataCache{
		client: client,
		next:   next,
		ttl:    ttl,
		logger: logger.With("component", "metadata_cache"),
	}
}

// Resolve serves from Redis when possible. Only non-empty results are stored,
// so an ISBN nobody knew yet is asked again next time. Redis errors degrade to
// an uncached resolve.
func (c *MetadataCache) Resolve(ctx context.Context, isbn string) extract.Metadata {
	key := metadataKeyPrefix + isbn

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var m extract.Metadata
		if err := json.Unmarshal(raw, &m); err == nil {
			c.logger.Debug("metadata cache hit", "isbn", isbn)
			return m
		}
		c.logger.Warn("discarding corrupt cache entry", "isbn", isbn)
	case errors.Is(err, redis.Nil):
		// miss
	default:
		c.logger.Warn("metadata cache unavailable", "isbn", isbn, "error", err)
	}

	m := c.next.Resolve(ctx, isbn)
	if m.IsEmpty() {
		return m
	}

	payload, err := json.Marshal(m)
	if err != nil {
		return m
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("metadata cache write failed", "isbn", isbn, "error", err)
	}
	return m
}
