package analyze

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/intel-cli/internal/model"
)

// cleanJSON strips code fences and anything outside the outermost
// object so a mostly-JSON model response can be unmarshalled strictly.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first { and last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// parseGapAnalysis attempts the strict tier of the two-tier parse.
func parseGapAnalysis(raw string) (model.GapAnalysis, error) {
	var gap model.GapAnalysis
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &gap); err != nil {
		return model.GapAnalysis{}, eris.Wrap(err, "analyze: unmarshal gap analysis")
	}
	normalizeGapAnalysis(&gap)
	return gap, nil
}

// normalizeGapAnalysis fills nil slices and out-of-vocabulary enums so
// callers always see a fully-typed value.
func normalizeGapAnalysis(gap *model.GapAnalysis) {
	if gap.KeyInsights == nil {
		gap.KeyInsights = []string{}
	}
	if gap.IdentifiedGaps == nil {
		gap.IdentifiedGaps = []string{}
	}
	if gap.CriticalURLs == nil {
		gap.CriticalURLs = []model.CriticalURL{}
	}
	switch gap.DataQuality {
	case model.QualityExcellent, model.QualityGood, model.QualityFair, model.QualityPoor:
	default:
		gap.DataQuality = model.QualityPoor
	}
	switch gap.ConfidenceLevel {
	case model.ConfidenceHigh, model.ConfidenceMedium, model.ConfidenceLow:
	default:
		gap.ConfidenceLevel = model.ConfidenceLow
	}
}

var (
	summaryRe  = regexp.MustCompile(`"summary"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	quotedRe   = regexp.MustCompile(`"((?:[^"\\]|\\.)+)"`)
	urlRe      = regexp.MustCompile(`https?://[^\s"'<>)\]]+`)
	sectionRes = map[string]*regexp.Regexp{
		"key_insights":    regexp.MustCompile(`"key_insights"\s*:\s*\[([^\]]*)\]`),
		"identified_gaps": regexp.MustCompile(`"identified_gaps"\s*:\s*\[([^\]]*)\]`),
	}
)

// fallbackGapAnalysis is the second tier: best-effort regex extraction
// over the raw response. It always produces a fully-typed value and
// marks it degraded.
func fallbackGapAnalysis(raw string) model.GapAnalysis {
	gap := degradedGapAnalysis("strict JSON parse failed")

	if m := summaryRe.FindStringSubmatch(raw); m != nil {
		gap.Summary = unescape(m[1])
	}
	gap.KeyInsights = extractSection(raw, "key_insights")
	gap.IdentifiedGaps = extractSection(raw, "identified_gaps")

	// Any URLs the model mentioned still count as fetch candidates.
	// Earlier mentions get higher priority so the planner keeps the
	// order of appearance.
	seen := map[string]bool{}
	for _, u := range urlRe.FindAllString(raw, -1) {
		u = strings.TrimRight(u, ".,;")
		if seen[u] {
			continue
		}
		seen[u] = true
		gap.CriticalURLs = append(gap.CriticalURLs, model.CriticalURL{
			URL:      u,
			Reason:   "recovered from unparsed response",
			Priority: 5 - len(gap.CriticalURLs),
		})
		if len(gap.CriticalURLs) == 5 {
			break
		}
	}

	if strings.Contains(raw, `"data_quality": "good"`) || strings.Contains(raw, `"data_quality":"good"`) {
		gap.DataQuality = model.QualityGood
	}
	return gap
}

func extractSection(raw, name string) []string {
	re, ok := sectionRes[name]
	if !ok {
		return []string{}
	}
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return []string{}
	}
	items := []string{}
	for _, q := range quotedRe.FindAllStringSubmatch(m[1], -1) {
		items = append(items, unescape(q[1]))
	}
	return items
}

func unescape(s string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err != nil {
		return s
	}
	return out
}
