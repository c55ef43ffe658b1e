package model

import "time"

// SearchResult is a single web-search hit. Produced only by the search
// client; read-only downstream.
type SearchResult struct {
	URL          string `json:"url"`
	Title        string `json:"title"`
	Snippet      string `json:"snippet"`
	SourceDomain string `json:"source_domain"`
}

// SearchResponse wraps the results of one query.
type SearchResponse struct {
	Query        string         `json:"query"`
	Results      []SearchResult `json:"results"`
	TotalResults int            `json:"total_results"`
	SearchTime   time.Duration  `json:"search_time"`
}

// FetchResult is the outcome of fetching one URL. Content is nil iff the
// fetch failed; a failed fetch never aborts its batch.
type FetchResult struct {
	URL       string        `json:"url"`
	Content   *string       `json:"content"`
	Error     string        `json:"error,omitempty"`
	FetchTime time.Duration `json:"fetch_time"`
}

// Failed reports whether the fetch produced no content.
func (f FetchResult) Failed() bool {
	return f.Content == nil
}

// Text returns the fetched content or "" for failed fetches.
func (f FetchResult) Text() string {
	if f.Content == nil {
		return ""
	}
	return *f.Content
}

// SourceType labels the kind of publisher behind a URL.
type SourceType string

const (
	SourceNews         SourceType = "news"
	SourceCompany      SourceType = "company"
	SourceBlog         SourceType = "blog"
	SourceSocial       SourceType = "social"
	SourcePressRelease SourceType = "press_release"
	SourceReport       SourceType = "report"
	SourceFinancial    SourceType = "financial"
	SourceEducational  SourceType = "educational"
	SourceOther        SourceType = "other"
)

// AuthoritativeSource is a scored, citable source. ID is the 1-based
// citation number used as [id] in synthesized text; IDs are contiguous
// within one pipeline run. Immutable once built.
type AuthoritativeSource struct {
	ID               int        `json:"id"`
	URL              string     `json:"url"`
	Title            string     `json:"title"`
	Domain           string     `json:"domain"`
	SourceType       SourceType `json:"source_type"`
	Snippet          string     `json:"snippet"`
	CredibilityScore float64    `json:"credibility_score"`
	RelevancyScore   float64    `json:"relevancy_score"`
	PublishedDate    *time.Time `json:"published_date,omitempty"`
	Author           string     `json:"author,omitempty"`
}
