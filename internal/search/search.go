// Package search executes web-search queries against the Jina search API,
// strictly sequentially and under a fixed requests-per-second ceiling.
package search

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/intel-cli/internal/cache"
	"github.com/sells-group/intel-cli/internal/config"
	"github.com/sells-group/intel-cli/internal/model"
	"github.com/sells-group/intel-cli/pkg/jina"
)

// Provider is the search capability the pipeline depends on.
type Provider interface {
	// Search runs one query. A nil error with empty results is a valid
	// outcome; the caller decides how to degrade.
	Search(ctx context.Context, query string, maxResults int, useCache bool) (*model.SearchResponse, error)
	// SearchAll runs queries strictly sequentially, never in parallel.
	// A failed query contributes an empty result set instead of aborting
	// the remainder.
	SearchAll(ctx context.Context, queries []string, maxResults int, useCache bool) []model.SearchResponse
}

// Client implements Provider over jina.Client with rate limiting and an
// optional result cache.
type Client struct {
	jina    jina.Client
	cache   *cache.Cache
	limiter *rate.Limiter
	cfg     config.SearchConfig
}

// New creates a search client. The limiter enforces the external
// provider's documented requests-per-second ceiling; keep it at or below
// that ceiling regardless of caller concurrency.
func New(jc jina.Client, c *cache.Cache, cfg config.SearchConfig) *Client {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	if cfg.TimeoutSecs <= 0 {
		cfg.TimeoutSecs = 15
	}
	return &Client{
		jina:    jc,
		cache:   c,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		cfg:     cfg,
	}
}

func (c *Client) Search(ctx context.Context, query string, maxResults int, useCache bool) (*model.SearchResponse, error) {
	if maxResults <= 0 || maxResults > c.cfg.MaxResults {
		maxResults = c.cfg.MaxResults
	}

	cacheKey := cache.Key(query, "search", strconv.Itoa(maxResults))
	if useCache && c.cache != nil {
		if raw, ok := c.cache.Get(ctx, cacheKey); ok {
			var resp model.SearchResponse
			if err := json.Unmarshal(raw, &resp); err == nil {
				zap.L().Debug("search: cache hit", zap.String("query", query))
				return &resp, nil
			}
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "search: rate limit wait")
	}

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.TimeoutSecs)*time.Second)
	defer cancel()

	raw, err := c.jina.Search(callCtx, query, jina.WithMaxResults(maxResults))
	if err != nil {
		return nil, eris.Wrapf(err, "search: query %q", query)
	}

	resp := &model.SearchResponse{
		Query:        query,
		Results:      make([]model.SearchResult, 0, len(raw.Data)),
		TotalResults: len(raw.Data),
		SearchTime:   time.Since(start),
	}
	for _, r := range raw.Data {
		if len(resp.Results) >= maxResults {
			break
		}
		resp.Results = append(resp.Results, model.SearchResult{
			URL:          r.URL,
			Title:        r.Title,
			Snippet:      firstNonEmpty(r.Description, r.Content),
			SourceDomain: domainOf(r.URL),
		})
	}

	if useCache && c.cache != nil {
		if data, err := json.Marshal(resp); err == nil {
			c.cache.Set(ctx, cacheKey, data, "search")
		}
	}
	return resp, nil
}

func (c *Client) SearchAll(ctx context.Context, queries []string, maxResults int, useCache bool) []model.SearchResponse {
	responses := make([]model.SearchResponse, 0, len(queries))
	for i, q := range queries {
		// Enforced inter-call delay on top of the limiter; each query
		// awaits completion of the previous one before starting.
		if i > 0 && c.cfg.InterCallDelay() > 0 {
			select {
			case <-ctx.Done():
				return responses
			case <-time.After(c.cfg.InterCallDelay()):
			}
		}

		resp, err := c.Search(ctx, q, maxResults, useCache)
		if err != nil {
			zap.L().Warn("search: query failed, continuing with empty results",
				zap.String("query", q),
				zap.Error(err),
			)
			responses = append(responses, model.SearchResponse{Query: q})
			continue
		}
		responses = append(responses, *resp)
	}
	return responses
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
