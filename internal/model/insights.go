package model

import "time"

// DataQuality grades how much the collected snippets cover the company.
type DataQuality string

const (
	QualityExcellent DataQuality = "excellent"
	QualityGood      DataQuality = "good"
	QualityFair      DataQuality = "fair"
	QualityPoor      DataQuality = "poor"
)

// ConfidenceLevel is the analyzer's coarse self-assessment.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// CriticalURL is a search result the gap analyzer flagged as worth a full
// content fetch, with a priority used for ranking.
type CriticalURL struct {
	URL      string `json:"url"`
	Reason   string `json:"reason"`
	Priority int    `json:"priority"`
}

// GapAnalysis is the output of the first (snippet-only) model call.
type GapAnalysis struct {
	Summary         string          `json:"summary"`
	KeyInsights     []string        `json:"key_insights"`
	IdentifiedGaps  []string        `json:"identified_gaps"`
	DataQuality     DataQuality     `json:"data_quality"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`
	CriticalURLs    []CriticalURL   `json:"critical_urls"`

	// Degraded is set when the model response failed strict JSON parsing
	// and the fallback extractor produced this value instead.
	Degraded       bool   `json:"degraded,omitempty"`
	DegradedReason string `json:"degraded_reason,omitempty"`
}

// CitedContent is a statement with numeric citations referencing
// AuthoritativeSource.ID values.
type CitedContent struct {
	Text      string `json:"text"`
	Citations []int  `json:"citations"`
}

// ConfidenceBreakdown scores the synthesis on a 0-100 scale per axis.
type ConfidenceBreakdown struct {
	Overall           int `json:"overall"`
	DataQuality       int `json:"data_quality"`
	SourceReliability int `json:"source_reliability"`
}

// SynthesizedInsights is the structured, cited output of the second model
// call. Every field is always present; a failed call yields the
// conservative default rather than an error.
type SynthesizedInsights struct {
	CompanyOverview      CitedContent        `json:"company_overview"`
	PainPoints           []CitedContent      `json:"pain_points"`
	Opportunities        []CitedContent      `json:"opportunities"`
	Risks                []CitedContent      `json:"risks"`
	CompetitiveLandscape CitedContent        `json:"competitive_landscape"`
	TalkingPoints        []CitedContent      `json:"talking_points"`
	Objections           []CitedContent      `json:"objections"`
	RecommendedActions   []CitedContent      `json:"recommended_actions"`
	DealProbability      int                 `json:"deal_probability"`
	Confidence           ConfidenceBreakdown `json:"confidence"`

	Degraded       bool   `json:"degraded,omitempty"`
	DegradedReason string `json:"degraded_reason,omitempty"`
}

// CompanyRecord is the opaque result of the entity-lookup collaborator.
type CompanyRecord struct {
	Name          string `json:"name"`
	Domain        string `json:"domain"`
	Industry      string `json:"industry,omitempty"`
	EmployeeCount int    `json:"employee_count,omitempty"`
	Description   string `json:"description,omitempty"`
	Location      string `json:"location,omitempty"`
	FoundedYear   int    `json:"founded_year,omitempty"`
}

// Intelligence is the full result of one pipeline run.
type Intelligence struct {
	CompanyDomain   string                `json:"company_domain"`
	CompanyName     string                `json:"company_name"`
	SalesContext    SalesContext          `json:"sales_context"`
	Sources         []AuthoritativeSource `json:"sources"`
	GapAnalysis     GapAnalysis           `json:"gap_analysis"`
	Insights        SynthesizedInsights   `json:"insights"`
	CompanyRecord   *CompanyRecord        `json:"company_record,omitempty"`
	ConfidenceScore float64               `json:"confidence_score"`
	QueriesIssued   []string              `json:"queries_issued"`
	URLsFetched     []string              `json:"urls_fetched"`
	FromCache       bool                  `json:"from_cache"`
	GeneratedAt     time.Time             `json:"generated_at"`
	ElapsedMS       int64                 `json:"elapsed_ms"`
}
