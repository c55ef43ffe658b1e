// Package cache provides a TTL'd key-value cache with transparent
// compression over the persistence layer. Store failures degrade to
// misses so pipeline stages never hard-fail on cache unavailability.
package cache

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/intel-cli/internal/config"
	"github.com/sells-group/intel-cli/internal/model"
	"github.com/sells-group/intel-cli/internal/store"
)

// Cache wraps a store.Store with TTL and compression semantics.
type Cache struct {
	store store.Store
	cfg   config.CacheConfig
	now   func() time.Time
}

// New creates a Cache over the given store.
func New(st store.Store, cfg config.CacheConfig) *Cache {
	if cfg.TTLHours <= 0 {
		cfg.TTLHours = 24
	}
	if cfg.CompressThreshold <= 0 {
		cfg.CompressThreshold = 4096
	}
	return &Cache{store: st, cfg: cfg, now: time.Now}
}

// Get returns the cached payload for key, or (nil, false) on a miss.
// Expired entries and store errors both behave as misses; errors are
// logged, never propagated.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	entry, err := c.store.GetEntry(ctx, key)
	if err != nil {
		zap.L().Warn("cache: get failed, treating as miss",
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, false
	}
	if entry == nil {
		return nil, false
	}

	value := entry.Value
	if entry.Compressed {
		value, err = gunzip(value)
		if err != nil {
			zap.L().Warn("cache: decompress failed, treating as miss",
				zap.String("key", key),
				zap.Error(err),
			)
			return nil, false
		}
	}
	return value, true
}

// Set writes a payload under key with the configured TTL, gzipping
// payloads above the compression threshold. Compression is invisible to
// callers: Get always returns the original bytes. Store errors are
// logged and swallowed.
func (c *Cache) Set(ctx context.Context, key string, value []byte, entryType string) {
	c.SetTTL(ctx, key, value, entryType, time.Duration(c.cfg.TTLHours)*time.Hour)
}

// SetTTL is Set with an explicit TTL override.
func (c *Cache) SetTTL(ctx context.Context, key string, value []byte, entryType string, ttl time.Duration) {
	now := c.now().UTC()
	entry := model.CacheEntry{
		Key:       key,
		Value:     value,
		Type:      entryType,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	if len(value) >= c.cfg.CompressThreshold {
		compressed, err := gzipBytes(value)
		if err != nil {
			zap.L().Warn("cache: compress failed, storing raw",
				zap.String("key", key),
				zap.Error(err),
			)
		} else if len(compressed) < len(value) {
			entry.Value = compressed
			entry.Compressed = true
		}
	}

	if err := c.store.SetEntry(ctx, entry); err != nil {
		zap.L().Warn("cache: set failed",
			zap.String("key", key),
			zap.String("type", entryType),
			zap.Error(err),
		)
	}
}

// Delete removes the entry for key. Store errors are logged and swallowed.
func (c *Cache) Delete(ctx context.Context, key string) {
	if err := c.store.DeleteEntry(ctx, key); err != nil {
		zap.L().Warn("cache: delete failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// ListKeys returns unexpired keys matching the optional glob pattern and
// type tag.
func (c *Cache) ListKeys(ctx context.Context, pattern string, limit int, entryType string) ([]string, error) {
	keys, err := c.store.ListKeys(ctx, pattern, limit, entryType)
	return keys, eris.Wrap(err, "cache: list keys")
}

// Clear removes all entries, or only those tagged entryType when non-empty.
func (c *Cache) Clear(ctx context.Context, entryType string) (int, error) {
	n, err := c.store.ClearEntries(ctx, entryType)
	return n, eris.Wrap(err, "cache: clear")
}

// DeleteExpired removes rows past their TTL. Expiry is otherwise lazy;
// this exists for the cache maintenance command.
func (c *Cache) DeleteExpired(ctx context.Context) (int, error) {
	n, err := c.store.DeleteExpiredEntries(ctx)
	return n, eris.Wrap(err, "cache: delete expired")
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, eris.Wrap(err, "cache: gzip write")
	}
	if err := w.Close(); err != nil {
		return nil, eris.Wrap(err, "cache: gzip close")
	}
	return buf.Bytes(), nil
}

func gunzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrap(err, "cache: gzip reader")
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "cache: gunzip read")
	}
	return out, nil
}
