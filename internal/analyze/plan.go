package analyze

import (
	"sort"

	"github.com/sells-group/intel-cli/internal/model"
)

// defaultMaxFetches caps how many URLs one pipeline run will fetch in
// full after gap analysis when the caller passes no limit.
const defaultMaxFetches = 3

// PlanFetch selects which URLs deserve a full content fetch. Critical
// URLs from the gap analysis win, highest priority first; if the
// analyzer flagged none, the top raw search results stand in. maxFetches
// bounds the plan (<=0 means the default of three). The result may be
// empty, in which case synthesis proceeds on snippets alone.
func PlanFetch(gap model.GapAnalysis, rawResults []model.SearchResult, maxFetches int) []string {
	if maxFetches <= 0 {
		maxFetches = defaultMaxFetches
	}

	if len(gap.CriticalURLs) > 0 {
		critical := make([]model.CriticalURL, len(gap.CriticalURLs))
		copy(critical, gap.CriticalURLs)
		sort.SliceStable(critical, func(i, j int) bool {
			return critical[i].Priority > critical[j].Priority
		})
		return takeURLs(critical, func(c model.CriticalURL) string { return c.URL }, maxFetches)
	}

	// No analyzer guidance: fall back to the top 5 raw results.
	top := rawResults
	if len(top) > 5 {
		top = top[:5]
	}
	return takeURLs(top, func(r model.SearchResult) string { return r.URL }, maxFetches)
}

func takeURLs[T any](items []T, url func(T) string, limit int) []string {
	urls := make([]string, 0, limit)
	seen := map[string]bool{}
	for _, it := range items {
		u := url(it)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
		if len(urls) == limit {
			break
		}
	}
	return urls
}
