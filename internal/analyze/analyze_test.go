package analyze

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/intel-cli/internal/llm"
	"github.com/sells-group/intel-cli/internal/model"
)

type fakeInvoker struct {
	response string
	err      error
	calls    int
	lastUser string
}

func (f *fakeInvoker) Invoke(_ context.Context, inv llm.Invocation) (string, error) {
	f.calls++
	f.lastUser = inv.User
	return f.response, f.err
}

func sampleResults(n int) []model.SearchResult {
	out := make([]model.SearchResult, n)
	for i := range out {
		out[i] = model.SearchResult{
			URL:          "https://example.com/a",
			Title:        "Acme expands",
			Snippet:      "Acme Corp announced expansion plans.",
			SourceDomain: "example.com",
		}
	}
	return out
}

const validGapJSON = `{
	"summary": "Acme is a mid-market logistics company.",
	"key_insights": ["recently raised funding", "hiring engineers"],
	"identified_gaps": ["no pricing data"],
	"data_quality": "good",
	"confidence_level": "medium",
	"critical_urls": [{"url": "https://acme.com/about", "reason": "official profile", "priority": 2}]
}`

func TestAnalyzeStrictParse(t *testing.T) {
	inv := &fakeInvoker{response: validGapJSON}
	a := NewAnalyzer(inv, 15)

	gap := a.Analyze(context.Background(), "Acme", model.ContextDiscovery, sampleResults(3))

	assert.False(t, gap.Degraded)
	assert.Equal(t, model.QualityGood, gap.DataQuality)
	assert.Len(t, gap.KeyInsights, 2)
	require.Len(t, gap.CriticalURLs, 1)
	assert.Equal(t, "https://acme.com/about", gap.CriticalURLs[0].URL)
}

func TestAnalyzeCodeFencedResponse(t *testing.T) {
	inv := &fakeInvoker{response: "Here is the analysis:\n```json\n" + validGapJSON + "\n```"}
	a := NewAnalyzer(inv, 15)

	gap := a.Analyze(context.Background(), "Acme", model.ContextDiscovery, sampleResults(3))

	assert.False(t, gap.Degraded)
	assert.Equal(t, "Acme is a mid-market logistics company.", gap.Summary)
}

func TestAnalyzeFallbackOnBrokenJSON(t *testing.T) {
	broken := `the model rambles... "summary": "Partial info about Acme." and mentions
	"key_insights": ["one insight"] plus https://acme.com/news as a link, unbalanced {`
	inv := &fakeInvoker{response: broken}
	a := NewAnalyzer(inv, 15)

	gap := a.Analyze(context.Background(), "Acme", model.ContextDiscovery, sampleResults(3))

	assert.True(t, gap.Degraded)
	assert.Equal(t, "Partial info about Acme.", gap.Summary)
	assert.Equal(t, []string{"one insight"}, gap.KeyInsights)
	require.NotEmpty(t, gap.CriticalURLs)
	assert.Equal(t, "https://acme.com/news", gap.CriticalURLs[0].URL)
	// Fully typed even when degraded.
	assert.NotNil(t, gap.IdentifiedGaps)
	assert.Equal(t, model.ConfidenceLow, gap.ConfidenceLevel)
}

func TestAnalyzeFallbackURLOrderSurvivesPlanning(t *testing.T) {
	broken := `unparseable, but links: https://first.com then https://second.com
	then https://third.com and finally https://fourth.com {`
	inv := &fakeInvoker{response: broken}
	a := NewAnalyzer(inv, 15)

	gap := a.Analyze(context.Background(), "Acme", model.ContextDiscovery, sampleResults(3))
	urls := PlanFetch(gap, sampleResults(3), 0)

	// Order of appearance carries through the priority sort.
	assert.Equal(t, []string{"https://first.com", "https://second.com", "https://third.com"}, urls)
}

func TestAnalyzeFallbackURLDedupeKeepsCap(t *testing.T) {
	raw := `https://dup.com https://dup.com https://dup.com https://dup.com
	https://a.com https://b.com https://c.com https://d.com {`
	gap := fallbackGapAnalysis(raw)

	// Repeated mentions do not count against the recovery cap.
	require.Len(t, gap.CriticalURLs, 5)
	assert.Equal(t, "https://dup.com", gap.CriticalURLs[0].URL)
	assert.Equal(t, "https://d.com", gap.CriticalURLs[4].URL)
}

func TestAnalyzeModelError(t *testing.T) {
	inv := &fakeInvoker{err: eris.New("boom")}
	a := NewAnalyzer(inv, 15)

	gap := a.Analyze(context.Background(), "Acme", model.ContextDiscovery, sampleResults(3))

	assert.True(t, gap.Degraded)
	assert.Equal(t, model.QualityPoor, gap.DataQuality)
	assert.NotNil(t, gap.KeyInsights)
	assert.NotNil(t, gap.CriticalURLs)
}

func TestAnalyzeSnippetCap(t *testing.T) {
	inv := &fakeInvoker{response: validGapJSON}
	a := NewAnalyzer(inv, 5)

	a.Analyze(context.Background(), "Acme", model.ContextDiscovery, sampleResults(20))

	// Prompt numbering stops at the cap.
	assert.Contains(t, inv.lastUser, "5. [example.com]")
	assert.NotContains(t, inv.lastUser, "6. [example.com]")
}

func TestPlanFetchPrefersCriticalURLs(t *testing.T) {
	gap := model.GapAnalysis{
		CriticalURLs: []model.CriticalURL{
			{URL: "https://a.com", Priority: 1},
			{URL: "https://b.com", Priority: 5},
			{URL: "https://c.com", Priority: 3},
			{URL: "https://d.com", Priority: 4},
		},
	}

	urls := PlanFetch(gap, sampleResults(10), 0)

	assert.Equal(t, []string{"https://b.com", "https://d.com", "https://c.com"}, urls)
}

func TestPlanFetchFallsBackToRawResults(t *testing.T) {
	results := []model.SearchResult{
		{URL: "https://1.com"}, {URL: "https://2.com"}, {URL: "https://3.com"},
		{URL: "https://4.com"}, {URL: "https://5.com"}, {URL: "https://6.com"},
	}

	urls := PlanFetch(model.GapAnalysis{}, results, 0)

	assert.Equal(t, []string{"https://1.com", "https://2.com", "https://3.com"}, urls)
}

func TestPlanFetchNeverExceedsCap(t *testing.T) {
	gap := model.GapAnalysis{}
	for i := 0; i < 50; i++ {
		gap.CriticalURLs = append(gap.CriticalURLs, model.CriticalURL{
			URL:      "https://example.com/" + string(rune('a'+i%26)) + string(rune('a'+i/26)),
			Priority: i,
		})
	}

	assert.LessOrEqual(t, len(PlanFetch(gap, nil, 0)), 3)
}

func TestPlanFetchHonorsConfiguredCap(t *testing.T) {
	gap := model.GapAnalysis{
		CriticalURLs: []model.CriticalURL{
			{URL: "https://a.com", Priority: 5},
			{URL: "https://b.com", Priority: 4},
			{URL: "https://c.com", Priority: 3},
		},
	}

	assert.Len(t, PlanFetch(gap, nil, 2), 2)
	assert.Len(t, PlanFetch(gap, nil, 0), 3)
}

func TestPlanFetchEmptyInputs(t *testing.T) {
	assert.Empty(t, PlanFetch(model.GapAnalysis{}, nil, 0))
}
