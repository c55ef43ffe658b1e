// Package synthesis runs the second model call: turning the gap
// analysis, fetched content, and numbered source list into structured,
// cited sales insights.
package synthesis

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/intel-cli/internal/llm"
	"github.com/sells-group/intel-cli/internal/model"
)

const synthesisSystemPrompt = `You are a B2B sales intelligence analyst. You receive a snippet-level gap analysis, optionally full page content, and a numbered source list about a target company.

Every factual claim MUST carry inline numeric citations like [1] or [2][3] referencing the numbered source list. Claims without a supporting source must be omitted.

Respond with ONLY a JSON object, no prose, matching exactly:
{
  "company_overview": {"text": "... [1]", "citations": [1]},
  "pain_points": [{"text": "... [2]", "citations": [2]}],
  "opportunities": [{"text": "...", "citations": []}],
  "risks": [{"text": "...", "citations": []}],
  "competitive_landscape": {"text": "...", "citations": []},
  "talking_points": [{"text": "...", "citations": []}],
  "objections": [{"text": "...", "citations": []}],
  "recommended_actions": [{"text": "...", "citations": []}],
  "deal_probability": 50,
  "confidence": {"overall": 70, "data_quality": 70, "source_reliability": 70}
}

deal_probability and all confidence values are integers in [0,100].`

// Engine issues the synthesis model call.
type Engine struct {
	invoker   llm.Invoker
	maxTokens int
}

// NewEngine builds a synthesis Engine on the given invoker.
func NewEngine(invoker llm.Invoker) *Engine {
	return &Engine{invoker: invoker, maxTokens: 4096}
}

// Synthesize produces insights from the collected material. It never
// returns an error: a failed call or unusable response yields the
// conservative default with overall confidence 25.
func (e *Engine) Synthesize(ctx context.Context, companyName string, salesContext model.SalesContext, gap model.GapAnalysis, fetched []model.FetchResult, sources []model.AuthoritativeSource) model.SynthesizedInsights {
	raw, err := e.invoker.Invoke(ctx, llm.Invocation{
		System:      synthesisSystemPrompt,
		User:        buildSynthesisPrompt(companyName, salesContext, gap, fetched, sources),
		MaxTokens:   e.maxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		zap.L().Warn("synthesis model call failed",
			zap.String("company", companyName),
			zap.Error(err))
		return ConservativeDefault("model call failed")
	}

	insights, err := parseInsights(raw)
	if err != nil {
		zap.L().Warn("synthesis strict parse failed, using fallback",
			zap.String("company", companyName),
			zap.Error(err))
		return fallbackInsights(raw)
	}
	return insights
}

func buildSynthesisPrompt(companyName string, salesContext model.SalesContext, gap model.GapAnalysis, fetched []model.FetchResult, sources []model.AuthoritativeSource) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\nSales context: %s\n\n", companyName, salesContext)

	fmt.Fprintf(&b, "Gap analysis summary: %s\n", gap.Summary)
	if len(gap.KeyInsights) > 0 {
		b.WriteString("Known insights:\n")
		for _, k := range gap.KeyInsights {
			fmt.Fprintf(&b, "- %s\n", k)
		}
	}
	if len(gap.IdentifiedGaps) > 0 {
		b.WriteString("Remaining gaps:\n")
		for _, g := range gap.IdentifiedGaps {
			fmt.Fprintf(&b, "- %s\n", g)
		}
	}

	b.WriteString("\nNumbered sources:\n")
	for _, s := range sources {
		fmt.Fprintf(&b, "[%d] %s — %s (%s, credibility %.2f)\n    %s\n",
			s.ID, s.Title, s.URL, s.SourceType, s.CredibilityScore, s.Snippet)
	}

	var hasContent bool
	for _, f := range fetched {
		if f.Failed() {
			continue
		}
		if !hasContent {
			b.WriteString("\nFull page content:\n")
			hasContent = true
		}
		fmt.Fprintf(&b, "--- %s ---\n%s\n", f.URL, f.Text())
	}
	if !hasContent {
		b.WriteString("\nNo full page content available; synthesize from snippets and gap analysis only.\n")
	}

	b.WriteString("\nProduce the cited sales intelligence JSON.")
	return b.String()
}

// ConservativeDefault is the floor synthesis degrades to on total
// failure. Every field is present and typed; overall confidence is 25.
func ConservativeDefault(reason string) model.SynthesizedInsights {
	return model.SynthesizedInsights{
		CompanyOverview:      model.CitedContent{Citations: []int{}},
		PainPoints:           []model.CitedContent{},
		Opportunities:        []model.CitedContent{},
		Risks:                []model.CitedContent{},
		CompetitiveLandscape: model.CitedContent{Citations: []int{}},
		TalkingPoints:        []model.CitedContent{},
		Objections:           []model.CitedContent{},
		RecommendedActions:   []model.CitedContent{},
		DealProbability:      0,
		Confidence: model.ConfidenceBreakdown{
			Overall:           25,
			DataQuality:       25,
			SourceReliability: 25,
		},
		Degraded:       true,
		DegradedReason: reason,
	}
}
