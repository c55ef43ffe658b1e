// Package fetch retrieves page content for batches of URLs. Fetches fan
// out concurrently since target hosts are independent; each URL gets its
// own timeout and a failure never affects sibling fetches.
package fetch

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/intel-cli/internal/config"
	"github.com/sells-group/intel-cli/internal/model"
	"github.com/sells-group/intel-cli/pkg/jina"
)

// Fetcher is the content-fetch capability the pipeline depends on.
type Fetcher interface {
	// FetchBatch returns one FetchResult per input URL, order preserved.
	FetchBatch(ctx context.Context, urls []string) []model.FetchResult
}

// HTTPFetcher fetches pages directly over HTTP, extracting readable text,
// with an optional Jina Reader fallback for pages that refuse direct
// requests.
type HTTPFetcher struct {
	client   *http.Client
	fallback jina.Client
	cfg      config.FetchConfig
}

// New creates an HTTPFetcher. fallback may be nil to disable the reader
// fallback.
func New(cfg config.FetchConfig, fallback jina.Client) *HTTPFetcher {
	if cfg.TimeoutSecs <= 0 {
		cfg.TimeoutSecs = 10
	}
	if cfg.MaxContentKB <= 0 {
		cfg.MaxContentKB = 256
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 10
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "intel-cli/1.0"
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSecs) * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
		fallback: fallback,
		cfg:      cfg,
	}
}

// FetchBatch fetches all URLs concurrently, preserving input order. The
// batch itself never fails; per-URL errors land in the corresponding
// FetchResult.
func (f *HTTPFetcher) FetchBatch(ctx context.Context, urls []string) []model.FetchResult {
	results := make([]model.FetchResult, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.MaxConcurrency)

	for i, u := range urls {
		g.Go(func() error {
			results[i] = f.fetchOne(gctx, u)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return errors

	return results
}

func (f *HTTPFetcher) fetchOne(ctx context.Context, targetURL string) model.FetchResult {
	start := time.Now()
	result := model.FetchResult{URL: targetURL}

	content, err := f.fetchDirect(ctx, targetURL)
	if err != nil && f.fallback != nil {
		zap.L().Debug("fetch: direct fetch failed, trying reader fallback",
			zap.String("url", targetURL),
			zap.Error(err),
		)
		content, err = f.fetchViaReader(ctx, targetURL)
	}

	result.FetchTime = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		zap.L().Warn("fetch: url failed",
			zap.String("url", targetURL),
			zap.Error(err),
		)
		return result
	}

	content = truncate(content, f.cfg.MaxContentKB*1024)
	result.Content = &content
	return result
}

func (f *HTTPFetcher) fetchDirect(ctx context.Context, targetURL string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, time.Duration(f.cfg.TimeoutSecs)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", httpStatusError(resp.StatusCode)
	}

	limit := int64(f.cfg.MaxContentKB*1024) * 4 // raw HTML is larger than its text
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return "", err
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "text/html") || looksLikeHTML(body) {
		return extractReadableText(targetURL, body), nil
	}
	return string(body), nil
}

func (f *HTTPFetcher) fetchViaReader(ctx context.Context, targetURL string) (string, error) {
	resp, err := f.fallback.Read(ctx, targetURL)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Data.Content) == "" {
		return "", errEmptyContent
	}
	return resp.Data.Content, nil
}

// truncate cuts s down to at most maxBytes, backing off to a rune
// boundary so the result stays valid UTF-8.
func truncate(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func looksLikeHTML(body []byte) bool {
	head := strings.ToLower(string(body[:min(len(body), 512)]))
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html")
}
