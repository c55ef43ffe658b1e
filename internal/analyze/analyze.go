// Package analyze runs the snippet-only gap analysis pass: one model
// call over search snippets that reports what is already known and
// which URLs deserve a full fetch.
package analyze

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/intel-cli/internal/llm"
	"github.com/sells-group/intel-cli/internal/model"
)

const gapSystemPrompt = `You are a B2B sales research analyst. You receive web-search snippets about a target company and must assess what they reveal and what is missing.

Respond with ONLY a JSON object, no prose, matching exactly:
{
  "summary": "one-paragraph summary of what the snippets establish",
  "key_insights": ["..."],
  "identified_gaps": ["..."],
  "data_quality": "excellent|good|fair|poor",
  "confidence_level": "high|medium|low",
  "critical_urls": [{"url": "...", "reason": "...", "priority": 1}]
}

critical_urls lists at most 5 search-result URLs whose full content would close the most important gaps; higher priority means fetch first.`

// Analyzer issues the snippet gap-analysis model call.
type Analyzer struct {
	invoker     llm.Invoker
	maxSnippets int
	maxTokens   int
}

// NewAnalyzer builds an Analyzer. maxSnippets caps how many search
// results go into the prompt.
func NewAnalyzer(invoker llm.Invoker, maxSnippets int) *Analyzer {
	if maxSnippets <= 0 {
		maxSnippets = 15
	}
	return &Analyzer{invoker: invoker, maxSnippets: maxSnippets, maxTokens: 2048}
}

// Analyze runs the gap analysis over the given search results. It never
// returns an error: a failed model call or unparseable response
// degrades to a conservative result with Degraded set.
func (a *Analyzer) Analyze(ctx context.Context, companyName string, salesContext model.SalesContext, results []model.SearchResult) model.GapAnalysis {
	if len(results) > a.maxSnippets {
		results = results[:a.maxSnippets]
	}

	raw, err := a.invoker.Invoke(ctx, llm.Invocation{
		System:      gapSystemPrompt,
		User:        buildGapPrompt(companyName, salesContext, results),
		MaxTokens:   a.maxTokens,
		Temperature: 0.2,
	})
	if err != nil {
		zap.L().Warn("gap analysis model call failed",
			zap.String("company", companyName),
			zap.Error(err))
		return degradedGapAnalysis("model call failed")
	}

	gap, err := parseGapAnalysis(raw)
	if err != nil {
		zap.L().Warn("gap analysis strict parse failed, using fallback",
			zap.String("company", companyName),
			zap.Error(err))
		return fallbackGapAnalysis(raw)
	}
	return gap
}

func buildGapPrompt(companyName string, salesContext model.SalesContext, results []model.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\nSales context: %s\n\nSearch snippets:\n", companyName, salesContext)
	for i, r := range results {
		fmt.Fprintf(&b, "%d. [%s] %s\n   URL: %s\n   %s\n", i+1, r.SourceDomain, r.Title, r.URL, r.Snippet)
	}
	b.WriteString("\nAnalyze coverage and gaps for this sales context.")
	return b.String()
}

// degradedGapAnalysis is the floor the analyzer can degrade to when the
// model response is unusable in its entirety.
func degradedGapAnalysis(reason string) model.GapAnalysis {
	return model.GapAnalysis{
		Summary:         "",
		KeyInsights:     []string{},
		IdentifiedGaps:  []string{},
		DataQuality:     model.QualityPoor,
		ConfidenceLevel: model.ConfidenceLow,
		CriticalURLs:    []model.CriticalURL{},
		Degraded:        true,
		DegradedReason:  reason,
	}
}
