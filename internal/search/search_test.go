package search

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/intel-cli/internal/cache"
	"github.com/sells-group/intel-cli/internal/config"
	"github.com/sells-group/intel-cli/internal/store"
	"github.com/sells-group/intel-cli/pkg/jina"
)

// fakeJina records calls and serves canned responses per query.
type fakeJina struct {
	mu        sync.Mutex
	calls     []string
	inFlight  int
	overlap   bool
	responses map[string]*jina.SearchResponse
	errs      map[string]error
}

func (f *fakeJina) Search(ctx context.Context, query string, opts ...jina.SearchOption) (*jina.SearchResponse, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > 1 {
		f.overlap = true
	}
	f.calls = append(f.calls, query)
	f.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if err, ok := f.errs[query]; ok {
		return nil, err
	}
	if resp, ok := f.responses[query]; ok {
		return resp, nil
	}
	return &jina.SearchResponse{Code: 200}, nil
}

func (f *fakeJina) Read(ctx context.Context, targetURL string) (*jina.ReadResponse, error) {
	return nil, eris.New("not implemented")
}

func searchResults(n int) *jina.SearchResponse {
	resp := &jina.SearchResponse{Code: 200}
	for i := 0; i < n; i++ {
		resp.Data = append(resp.Data, jina.SearchResult{
			Title:       "Result",
			URL:         "https://example.com/page",
			Description: "snippet text",
		})
	}
	return resp
}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "search.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return cache.New(st, config.CacheConfig{TTLHours: 1, CompressThreshold: 1 << 20})
}

func testConfig() config.SearchConfig {
	return config.SearchConfig{
		RequestsPerSecond: 100, // keep tests fast
		InterCallDelayMS:  1,
		MaxResults:        10,
		TimeoutSecs:       5,
	}
}

func TestSearch_MapsResults(t *testing.T) {
	fj := &fakeJina{responses: map[string]*jina.SearchResponse{
		"Shopify overview": {Code: 200, Data: []jina.SearchResult{
			{Title: "Shopify - Wikipedia", URL: "https://en.wikipedia.org/wiki/Shopify", Description: "Commerce company"},
		}},
	}}
	c := New(fj, nil, testConfig())

	resp, err := c.Search(context.Background(), "Shopify overview", 10, false)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "en.wikipedia.org", resp.Results[0].SourceDomain)
	assert.Equal(t, "Commerce company", resp.Results[0].Snippet)
}

func TestSearch_CapsMaxResults(t *testing.T) {
	fj := &fakeJina{responses: map[string]*jina.SearchResponse{
		"q": searchResults(25),
	}}
	cfg := testConfig()
	cfg.MaxResults = 10
	c := New(fj, nil, cfg)

	// Caller asks for more than the provider cap.
	resp, err := c.Search(context.Background(), "q", 50, false)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(resp.Results), 10)
}

func TestSearchAll_StrictlySequential(t *testing.T) {
	fj := &fakeJina{responses: map[string]*jina.SearchResponse{}}
	c := New(fj, nil, testConfig())

	queries := []string{"q1", "q2", "q3"}
	responses := c.SearchAll(context.Background(), queries, 5, false)

	require.Len(t, responses, 3)
	assert.Equal(t, queries, fj.calls)
	assert.False(t, fj.overlap, "queries must never run in parallel")
}

func TestSearchAll_FailureIsolated(t *testing.T) {
	fj := &fakeJina{
		responses: map[string]*jina.SearchResponse{
			"good": searchResults(3),
		},
		errs: map[string]error{
			"bad": eris.New("upstream 500"),
		},
	}
	c := New(fj, nil, testConfig())

	responses := c.SearchAll(context.Background(), []string{"good", "bad", "good"}, 5, false)
	require.Len(t, responses, 3)
	assert.Len(t, responses[0].Results, 3)
	assert.Empty(t, responses[1].Results)
	assert.Len(t, responses[2].Results, 3)
}

func TestSearch_CacheHitSkipsProvider(t *testing.T) {
	fj := &fakeJina{responses: map[string]*jina.SearchResponse{
		"cached query": searchResults(2),
	}}
	c := New(fj, newTestCache(t), testConfig())
	ctx := context.Background()

	first, err := c.Search(ctx, "cached query", 5, true)
	require.NoError(t, err)
	second, err := c.Search(ctx, "cached query", 5, true)
	require.NoError(t, err)

	assert.Equal(t, first.Results, second.Results)
	assert.Len(t, fj.calls, 1, "second call must be served from cache")
}
