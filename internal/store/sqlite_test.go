package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/intel-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testEntry(key string, ttl time.Duration) model.CacheEntry {
	now := time.Now().UTC()
	return model.CacheEntry{
		Key:       key,
		Value:     []byte(`{"payload":"data"}`),
		Type:      "intelligence",
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// --- Cache entries ---

func TestSQLite_Entry_SetAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetEntry(ctx, testEntry("company:shopify:discovery", time.Hour)))

	got, err := st.GetEntry(ctx, "company:shopify:discovery")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, `{"payload":"data"}`, string(got.Value))
	assert.Equal(t, "intelligence", got.Type)
	assert.False(t, got.Compressed)
}

func TestSQLite_Entry_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetEntry(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Entry_Expired(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	// Written with an expiry one hour in the past.
	require.NoError(t, st.SetEntry(ctx, testEntry("stale-key", -time.Hour)))

	got, err := st.GetEntry(ctx, "stale-key")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Entry_Overwrite(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	e := testEntry("key-ow", time.Hour)
	require.NoError(t, st.SetEntry(ctx, e))

	e.Value = []byte("updated")
	e.Compressed = true
	require.NoError(t, st.SetEntry(ctx, e))

	got, err := st.GetEntry(ctx, "key-ow")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "updated", string(got.Value))
	assert.True(t, got.Compressed)
}

func TestSQLite_Entry_Delete(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetEntry(ctx, testEntry("key-del", time.Hour)))
	require.NoError(t, st.DeleteEntry(ctx, "key-del"))

	got, err := st.GetEntry(ctx, "key-del")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_ListKeys_PatternAndType(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := testEntry("company:shopify:discovery", time.Hour)
	b := testEntry("company:shopify:renewal", time.Hour)
	c := testEntry("search:shopify+overview", time.Hour)
	c.Type = "search"
	for _, e := range []model.CacheEntry{a, b, c} {
		require.NoError(t, st.SetEntry(ctx, e))
	}

	keys, err := st.ListKeys(ctx, "company:*", 10, "")
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	keys, err = st.ListKeys(ctx, "", 10, "search")
	require.NoError(t, err)
	assert.Equal(t, []string{"search:shopify+overview"}, keys)
}

func TestSQLite_ListKeys_Limit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, key := range []string{"k1", "k2", "k3"} {
		require.NoError(t, st.SetEntry(ctx, testEntry(key, time.Hour)))
	}

	keys, err := st.ListKeys(ctx, "", 2, "")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestSQLite_ClearEntries_ByType(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := testEntry("i1", time.Hour)
	b := testEntry("s1", time.Hour)
	b.Type = "search"
	require.NoError(t, st.SetEntry(ctx, a))
	require.NoError(t, st.SetEntry(ctx, b))

	n, err := st.ClearEntries(ctx, "search")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := st.GetEntry(ctx, "i1")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestSQLite_ClearEntries_All(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetEntry(ctx, testEntry("i1", time.Hour)))
	require.NoError(t, st.SetEntry(ctx, testEntry("i2", time.Hour)))

	n, err := st.ClearEntries(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSQLite_DeleteExpiredEntries(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetEntry(ctx, testEntry("fresh", time.Hour)))
	require.NoError(t, st.SetEntry(ctx, testEntry("stale", -time.Hour)))

	n, err := st.DeleteExpiredEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// --- Async requests ---

func newTestRequest(id string) *model.AsyncRequest {
	now := time.Now().UTC()
	return &model.AsyncRequest{
		RequestID:     id,
		Status:        model.StatusPending,
		CompanyDomain: "shopify.com",
		RequestType:   "intelligence",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestSQLite_Request_CreateAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	req := newTestRequest("req-1")
	req.AdditionalData = map[string]any{"sales_context": "discovery"}
	require.NoError(t, st.CreateRequest(ctx, req, 48))

	got, err := st.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, "shopify.com", got.CompanyDomain)
	assert.Equal(t, "discovery", got.AdditionalData["sales_context"])
	assert.Nil(t, got.Result)
}

func TestSQLite_Request_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetRequest(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Request_TTLExpired(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	req := newTestRequest("req-old")
	req.CreatedAt = time.Now().UTC().Add(-72 * time.Hour)
	req.UpdatedAt = req.CreatedAt
	require.NoError(t, st.CreateRequest(ctx, req, 48))

	got, err := st.GetRequest(ctx, "req-old")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Request_UpdateWithResult(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	req := newTestRequest("req-2")
	require.NoError(t, st.CreateRequest(ctx, req, 48))

	req.Status = model.StatusCompleted
	req.UpdatedAt = time.Now().UTC().Add(time.Minute)
	req.Result = &model.Intelligence{
		CompanyDomain:   "shopify.com",
		CompanyName:     "Shopify",
		ConfidenceScore: 0.82,
	}
	require.NoError(t, st.UpdateRequest(ctx, req))

	got, err := st.GetRequest(ctx, "req-2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.StatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.InDelta(t, 0.82, got.Result.ConfidenceScore, 1e-9)
	assert.Positive(t, got.ProcessingTime())
}

func TestSQLite_Request_UpdateMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	req := newTestRequest("ghost")
	err := st.UpdateRequest(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_Request_ListByStatusAndDomain(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := newTestRequest("req-a")
	b := newTestRequest("req-b")
	b.CompanyDomain = "stripe.com"
	c := newTestRequest("req-c")
	c.Status = model.StatusFailed
	c.Error = "search unavailable"
	for _, r := range []*model.AsyncRequest{a, b, c} {
		require.NoError(t, st.CreateRequest(ctx, r, 48))
	}

	pending, err := st.ListRequests(ctx, RequestFilter{Status: model.StatusPending})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	stripe, err := st.ListRequests(ctx, RequestFilter{CompanyDomain: "stripe.com"})
	require.NoError(t, err)
	require.Len(t, stripe, 1)
	assert.Equal(t, "req-b", stripe[0].RequestID)

	failed, err := st.ListRequests(ctx, RequestFilter{Status: model.StatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "search unavailable", failed[0].Error)
}
