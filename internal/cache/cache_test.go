package cache

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/intel-cli/internal/config"
	"github.com/sells-group/intel-cli/internal/model"
	"github.com/sells-group/intel-cli/internal/store"
)

func newTestCache(t *testing.T) (*Cache, *store.SQLiteStore) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	st, err := store.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return New(st, config.CacheConfig{TTLHours: 1, CompressThreshold: 64}), st
}

func TestKey_Deterministic(t *testing.T) {
	k1 := Key("shopify.com", "discovery", "intelligence")
	k2 := Key("shopify.com", "discovery", "intelligence")
	assert.Equal(t, k1, k2)
}

func TestKey_NormalizesCaseAndPunctuation(t *testing.T) {
	k1 := Key("Shopify.COM", "Discovery")
	k2 := Key("shopify.com", "discovery")
	assert.Equal(t, k1, k2)
	assert.NotContains(t, k1, ".")
	assert.NotContains(t, k1, " ")
}

func TestKey_ContextChangesKey(t *testing.T) {
	k1 := Key("shopify.com", "discovery")
	k2 := Key("shopify.com", "renewal")
	assert.NotEqual(t, k1, k2)
}

func TestKey_ExtraDiscriminator(t *testing.T) {
	k1 := Key("shopify.com", "discovery", "intelligence")
	k2 := Key("shopify.com", "discovery", "search")
	assert.NotEqual(t, k1, k2)
}

func TestCache_SetAndGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "k1", []byte("small payload"), "intelligence")

	got, ok := c.Get(ctx, "k1")
	require.True(t, ok)
	assert.Equal(t, "small payload", string(got))
}

func TestCache_Miss(t *testing.T) {
	c, _ := newTestCache(t)

	_, ok := c.Get(context.Background(), "nope")
	assert.False(t, ok)
}

func TestCache_TTLExpiry(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	// Simulate a clock two hours ahead of the write for a 1-hour TTL entry.
	base := time.Now().UTC().Add(-2 * time.Hour)
	c.now = func() time.Time { return base }
	c.Set(ctx, "old", []byte("aged out"), "intelligence")
	c.now = time.Now

	_, ok := c.Get(ctx, "old")
	assert.False(t, ok)
}

func TestCache_CompressionInvisible(t *testing.T) {
	c, st := newTestCache(t)
	ctx := context.Background()

	// Repetitive payload over the 64-byte threshold compresses well.
	payload := []byte(strings.Repeat("company intelligence ", 50))
	c.Set(ctx, "big", payload, "intelligence")

	// Stored compressed...
	entry, err := st.GetEntry(ctx, "big")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.Compressed)
	assert.Less(t, len(entry.Value), len(payload))

	// ...but callers see the original bytes.
	got, ok := c.Get(ctx, "big")
	require.True(t, ok)
	assert.Equal(t, payload, got)
}

func TestCache_SmallPayloadNotCompressed(t *testing.T) {
	c, st := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "tiny", []byte("short"), "search")

	entry, err := st.GetEntry(ctx, "tiny")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.False(t, entry.Compressed)
}

func TestCache_StoreFailureDegradesToMiss(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "closed.db")
	st, err := store.NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	require.NoError(t, st.Close())

	c := New(st, config.CacheConfig{TTLHours: 1, CompressThreshold: 64})

	// Reads and writes on a closed store must not panic or error out.
	_, ok := c.Get(context.Background(), "any")
	assert.False(t, ok)
	c.Set(context.Background(), "any", []byte("v"), "intelligence")
}

func TestCache_ClearByType(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "a", []byte("1"), "intelligence")
	c.Set(ctx, "b", []byte("2"), "search")

	n, err := c.Clear(ctx, "search")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok := c.Get(ctx, "a")
	assert.True(t, ok)
	_, ok = c.Get(ctx, "b")
	assert.False(t, ok)
}

func TestCache_DeleteExpired(t *testing.T) {
	c, st := newTestCache(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, st.SetEntry(ctx, model.CacheEntry{
		Key: "stale", Value: []byte("x"), CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}))
	c.Set(ctx, "fresh", []byte("y"), "intelligence")

	n, err := c.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
