package synthesis

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
	lastUser string
}

func (f *fakeInvoker) Invoke(_ context.Context, inv llm.Invocation) (string, error) {
	f.lastUser = inv.User
	return f.response, f.err
}

const validInsightsJSON = `{
	"company_overview": {"text": "Acme builds logistics software [1].", "citations": [1]},
	"pain_points": [{"text": "Legacy fleet tracking [2]", "citations": [2]}],
	"opportunities": [{"text": "Route optimization upsell [1][2]", "citations": [1, 2]}],
	"risks": [],
	"competitive_landscape": {"text": "Crowded mid-market [1]", "citations": [1]},
	"talking_points": [{"text": "Ask about fleet size", "citations": []}],
	"objections": [],
	"recommended_actions": [{"text": "Book a discovery call", "citations": []}],
	"deal_probability": 60,
	"confidence": {"overall": 72, "data_quality": 70, "source_reliability": 75}
}`

func testSources() []model.AuthoritativeSource {
	return []model.AuthoritativeSource{
		{ID: 1, URL: "https://acme.com", Title: "Acme", Domain: "acme.com", SourceType: model.SourceCompany, CredibilityScore: 0.6},
		{ID: 2, URL: "https://news.example.com/acme", Title: "Acme in the news", Domain: "news.example.com", SourceType: model.SourceNews, CredibilityScore: 0.85},
	}
}

func TestSynthesizeStrictParse(t *testing.T) {
	inv := &fakeInvoker{response: validInsightsJSON}
	e := NewEngine(inv)

	out := e.Synthesize(context.Background(), "Acme", model.ContextDiscovery,
		model.GapAnalysis{Summary: "some summary"}, nil, testSources())

	assert.False(t, out.Degraded)
	assert.Equal(t, 60, out.DealProbability)
	assert.Equal(t, []int{1}, out.CompanyOverview.Citations)
	require.Len(t, out.Opportunities, 1)
	assert.Equal(t, []int{1, 2}, out.Opportunities[0].Citations)
	// Absent lists come back empty, never nil.
	assert.NotNil(t, out.Risks)
	assert.NotNil(t, out.Objections)
}

func TestSynthesizePromptIncludesSourcesAndContent(t *testing.T) {
	inv := &fakeInvoker{response: validInsightsJSON}
	e := NewEngine(inv)
	content := "Acme full page text"

	e.Synthesize(context.Background(), "Acme", model.ContextDiscovery,
		model.GapAnalysis{}, []model.FetchResult{{URL: "https://acme.com", Content: &content}}, testSources())

	assert.Contains(t, inv.lastUser, "[1] Acme")
	assert.Contains(t, inv.lastUser, "[2] Acme in the news")
	assert.Contains(t, inv.lastUser, "Acme full page text")
}

func TestSynthesizeSnippetOnlyPrompt(t *testing.T) {
	inv := &fakeInvoker{response: validInsightsJSON}
	e := NewEngine(inv)

	e.Synthesize(context.Background(), "Acme", model.ContextDiscovery,
		model.GapAnalysis{}, nil, testSources())

	assert.Contains(t, inv.lastUser, "No full page content available")
}

func TestSynthesizeFallbackOnBrokenJSON(t *testing.T) {
	broken := `Sure! Here are the insights:
	"company_overview": {"text": "Acme does logistics [1].",
	"pain_points": [{"text": "Old tooling [2]", "citations": [2]}],
	"deal_probability": 45 and then the model trails off`
	inv := &fakeInvoker{response: broken}
	e := NewEngine(inv)

	out := e.Synthesize(context.Background(), "Acme", model.ContextDiscovery,
		model.GapAnalysis{}, nil, testSources())

	assert.True(t, out.Degraded)
	assert.Equal(t, "Acme does logistics [1].", out.CompanyOverview.Text)
	assert.Equal(t, []int{1}, out.CompanyOverview.Citations)
	require.Len(t, out.PainPoints, 1)
	assert.Equal(t, []int{2}, out.PainPoints[0].Citations)
	assert.Equal(t, 45, out.DealProbability)
	// Still fully typed.
	assert.NotNil(t, out.Risks)
	assert.NotNil(t, out.TalkingPoints)
}

func TestSynthesizeModelErrorReturnsConservativeDefault(t *testing.T) {
	inv := &fakeInvoker{err: eris.New("model unavailable")}
	e := NewEngine(inv)

	out := e.Synthesize(context.Background(), "Acme", model.ContextDiscovery,
		model.GapAnalysis{}, nil, testSources())

	assert.True(t, out.Degraded)
	assert.Equal(t, 25, out.Confidence.Overall)
	assert.Zero(t, out.DealProbability)
	assert.NotNil(t, out.PainPoints)
}

func TestParseInsightsClampsRanges(t *testing.T) {
	raw := `{"deal_probability": 180, "confidence": {"overall": -5, "data_quality": 250, "source_reliability": 50}}`

	out, err := parseInsights(raw)
	require.NoError(t, err)

	assert.Equal(t, 100, out.DealProbability)
	assert.Equal(t, 0, out.Confidence.Overall)
	assert.Equal(t, 100, out.Confidence.DataQuality)
}
