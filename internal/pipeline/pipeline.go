// Package pipeline orchestrates one intelligence run: progressive
// collection (queries, sequential search, selective fetch) followed by
// two-stage synthesis, with caching around the whole run.
package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/intel-cli/internal/analyze"
	"github.com/sells-group/intel-cli/internal/cache"
	"github.com/sells-group/intel-cli/internal/config"
	"github.com/sells-group/intel-cli/internal/fetch"
	"github.com/sells-group/intel-cli/internal/model"
	"github.com/sells-group/intel-cli/internal/query"
	"github.com/sells-group/intel-cli/internal/scorer"
	"github.com/sells-group/intel-cli/internal/search"
)

// ErrMissingDomain rejects requests without a target company domain.
var ErrMissingDomain = eris.New("pipeline: company domain is required")

// GapAnalyzer is the snippet-analysis stage. Implementations never
// fail; they degrade.
type GapAnalyzer interface {
	Analyze(ctx context.Context, companyName string, salesContext model.SalesContext, results []model.SearchResult) model.GapAnalysis
}

// Synthesizer is the final synthesis stage. Implementations never
// fail; they degrade.
type Synthesizer interface {
	Synthesize(ctx context.Context, companyName string, salesContext model.SalesContext, gap model.GapAnalysis, fetched []model.FetchResult, sources []model.AuthoritativeSource) model.SynthesizedInsights
}

// Enricher resolves a company record out-of-band; nil results are fine.
type Enricher interface {
	Enrich(ctx context.Context, companyName string) *model.CompanyRecord
}

// Pipeline runs the full research flow. Every capability is injected
// so each can be faked independently.
type Pipeline struct {
	search   search.Provider
	fetcher  fetch.Fetcher
	analyzer GapAnalyzer
	synth    Synthesizer
	enricher Enricher
	cache    *cache.Cache

	cfg        config.PipelineConfig
	maxResults int
}

// New wires a Pipeline. enricher may be nil; c may be nil to disable
// caching entirely.
func New(provider search.Provider, fetcher fetch.Fetcher, analyzer GapAnalyzer, synth Synthesizer, enricher Enricher, c *cache.Cache, cfg config.Config) *Pipeline {
	return &Pipeline{
		search:     provider,
		fetcher:    fetcher,
		analyzer:   analyzer,
		synth:      synth,
		enricher:   enricher,
		cache:      c,
		cfg:        cfg.Pipeline,
		maxResults: cfg.Search.MaxResults,
	}
}

// Research executes one run end to end. A cache hit returns the stored
// result unchanged (FromCache set); otherwise the run always produces
// a fully-typed Intelligence, degrading stage by stage rather than
// failing, and caches it on the way out.
func (p *Pipeline) Research(ctx context.Context, req model.ResearchRequest) (*model.Intelligence, error) {
	if req.CompanyDomain == "" {
		return nil, ErrMissingDomain
	}

	start := time.Now()
	companyName := req.CompanyName
	if companyName == "" {
		companyName = query.CompanyNameFromDomain(req.CompanyDomain)
	}

	key := cache.Key(req.CompanyDomain, string(req.SalesContext), "intelligence")
	if req.UseCache {
		if intel, ok := p.cachedResult(ctx, key); ok {
			zap.L().Info("intelligence cache hit",
				zap.String("domain", req.CompanyDomain),
				zap.String("context", string(req.SalesContext)))
			return intel, nil
		}
	}

	queries := query.Build(req.CompanyDomain, req.SalesContext, req.SellerCompany)
	responses := p.search.SearchAll(ctx, queries, p.maxResults, req.UseCache)
	results := dedupeResults(responses, p.cfg.MaxSources)

	gap := p.analyzer.Analyze(ctx, companyName, req.SalesContext, results)

	urls := analyze.PlanFetch(gap, results, p.cfg.MaxSelectiveFetches)
	var fetched []model.FetchResult
	if len(urls) > 0 {
		fetched = p.fetcher.FetchBatch(ctx, urls)
	}

	sources := p.buildSources(results, fetched, companyName, req.CompanyDomain)
	insights := p.synth.Synthesize(ctx, companyName, req.SalesContext, gap, fetched, sources)

	var record *model.CompanyRecord
	if p.enricher != nil {
		record = p.enricher.Enrich(ctx, companyName)
	}

	intel := &model.Intelligence{
		CompanyDomain:   req.CompanyDomain,
		CompanyName:     companyName,
		SalesContext:    req.SalesContext,
		Sources:         sources,
		GapAnalysis:     gap,
		Insights:        insights,
		CompanyRecord:   record,
		ConfidenceScore: confidenceScore(insights, sources),
		QueriesIssued:   queries,
		URLsFetched:     urls,
		GeneratedAt:     time.Now().UTC(),
		ElapsedMS:       time.Since(start).Milliseconds(),
	}

	p.storeResult(ctx, key, intel)
	return intel, nil
}

func (p *Pipeline) cachedResult(ctx context.Context, key string) (*model.Intelligence, bool) {
	if p.cache == nil {
		return nil, false
	}
	data, ok := p.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var intel model.Intelligence
	if err := json.Unmarshal(data, &intel); err != nil {
		zap.L().Warn("discarding undecodable cached intelligence", zap.Error(err))
		return nil, false
	}
	intel.FromCache = true
	return &intel, true
}

func (p *Pipeline) storeResult(ctx context.Context, key string, intel *model.Intelligence) {
	if p.cache == nil {
		return
	}
	data, err := json.Marshal(intel)
	if err != nil {
		zap.L().Warn("marshal intelligence for cache", zap.Error(err))
		return
	}
	p.cache.Set(ctx, key, data, "intelligence")
}

// dedupeResults flattens search responses preserving order, drops
// duplicate URLs, and caps the total.
func dedupeResults(responses []model.SearchResponse, maxSources int) []model.SearchResult {
	if maxSources <= 0 {
		maxSources = 30
	}
	seen := make(map[string]bool)
	out := make([]model.SearchResult, 0, maxSources)
	for _, resp := range responses {
		for _, r := range resp.Results {
			if r.URL == "" || seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			out = append(out, r)
			if len(out) == maxSources {
				return out
			}
		}
	}
	return out
}

// buildSources scores and filters the deduplicated results into the
// numbered source list. URLs with fetched content are scored against
// that content; when the run fetched nothing, snippets carry a
// descending synthetic relevancy ramp so source ordering survives.
func (p *Pipeline) buildSources(results []model.SearchResult, fetched []model.FetchResult, companyName, companyDomain string) []model.AuthoritativeSource {
	contentByURL := make(map[string]string, len(fetched))
	for _, f := range fetched {
		if !f.Failed() {
			contentByURL[f.URL] = f.Text()
		}
	}
	snippetOnly := len(contentByURL) == 0

	threshold := p.cfg.SnippetRelevancyThreshold
	if !snippetOnly {
		threshold = p.cfg.ContentRelevancyThreshold
	}

	sources := make([]model.AuthoritativeSource, 0, len(results))
	for i, r := range results {
		var relevancy float64
		if snippetOnly {
			relevancy = syntheticRelevancy(i)
		} else if content, ok := contentByURL[r.URL]; ok {
			relevancy = scorer.Relevancy(content, companyName, r.Snippet)
		} else {
			relevancy = scorer.Relevancy(r.Snippet+" "+r.Title, companyName, r.Title)
		}

		sources = append(sources, model.AuthoritativeSource{
			URL:              r.URL,
			Title:            r.Title,
			Domain:           r.SourceDomain,
			SourceType:       scorer.SourceType(r.URL),
			Snippet:          r.Snippet,
			CredibilityScore: scorer.CredibilityFor(r.URL, companyDomain),
			RelevancyScore:   relevancy,
		})
	}

	sources = scorer.FilterByRelevancy(sources, threshold)

	// Citation numbers are contiguous from 1 after filtering.
	for i := range sources {
		sources[i].ID = i + 1
	}
	return sources
}

// syntheticRelevancy is the descending ramp applied when no content
// was fetched: earlier search hits rank higher.
func syntheticRelevancy(position int) float64 {
	rel := 0.9 - 0.02*float64(position)
	if rel < 0.3 {
		rel = 0.3
	}
	return rel
}

// confidenceScore folds the model's self-assessment together with the
// average source credibility into a single [0,1] value.
func confidenceScore(insights model.SynthesizedInsights, sources []model.AuthoritativeSource) float64 {
	modelConfidence := float64(insights.Confidence.Overall) / 100

	if len(sources) == 0 {
		return clamp01(modelConfidence * 0.5)
	}

	var credSum float64
	for _, s := range sources {
		credSum += s.CredibilityScore
	}
	avgCred := credSum / float64(len(sources))

	return clamp01(0.6*modelConfidence + 0.4*avgCred)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
