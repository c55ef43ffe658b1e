package synthesis

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/intel-cli/internal/model"
)

// cleanJSON strips code fences and anything outside the outermost
// object so a mostly-JSON model response can be unmarshalled strictly.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

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

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// parseInsights is the strict tier of the two-tier parse.
func parseInsights(raw string) (model.SynthesizedInsights, error) {
	var out model.SynthesizedInsights
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &out); err != nil {
		return model.SynthesizedInsights{}, eris.Wrap(err, "synthesis: unmarshal insights")
	}
	normalizeInsights(&out)
	return out, nil
}

// normalizeInsights makes every field present and in range so a
// partially-populated model response never leaks a partially-typed
// value downstream.
func normalizeInsights(in *model.SynthesizedInsights) {
	fixCited := func(c *model.CitedContent) {
		if c.Citations == nil {
			c.Citations = []int{}
		}
	}
	fixList := func(list *[]model.CitedContent) {
		if *list == nil {
			*list = []model.CitedContent{}
		}
		for i := range *list {
			fixCited(&(*list)[i])
		}
	}

	fixCited(&in.CompanyOverview)
	fixCited(&in.CompetitiveLandscape)
	fixList(&in.PainPoints)
	fixList(&in.Opportunities)
	fixList(&in.Risks)
	fixList(&in.TalkingPoints)
	fixList(&in.Objections)
	fixList(&in.RecommendedActions)

	in.DealProbability = clampInt(in.DealProbability, 0, 100)
	in.Confidence.Overall = clampInt(in.Confidence.Overall, 0, 100)
	in.Confidence.DataQuality = clampInt(in.Confidence.DataQuality, 0, 100)
	in.Confidence.SourceReliability = clampInt(in.Confidence.SourceReliability, 0, 100)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

var (
	overviewRe = regexp.MustCompile(`"company_overview"\s*:\s*\{\s*"text"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	probRe     = regexp.MustCompile(`"deal_probability"\s*:\s*(\d+)`)
	citationRe = regexp.MustCompile(`\[(\d+)\]`)
	listTextRe = regexp.MustCompile(`"text"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	sectionRes = map[string]*regexp.Regexp{
		"pain_points":         regexp.MustCompile(`(?s)"pain_points"\s*:\s*\[(.*?)\}\s*\]`),
		"opportunities":       regexp.MustCompile(`(?s)"opportunities"\s*:\s*\[(.*?)\}\s*\]`),
		"talking_points":      regexp.MustCompile(`(?s)"talking_points"\s*:\s*\[(.*?)\}\s*\]`),
		"recommended_actions": regexp.MustCompile(`(?s)"recommended_actions"\s*:\s*\[(.*?)\}\s*\]`),
	}
)

// fallbackInsights is the second tier: regex-section extraction over
// the raw response. The result is always fully typed, marked degraded,
// and conservative where nothing could be recovered.
func fallbackInsights(raw string) model.SynthesizedInsights {
	out := ConservativeDefault("strict JSON parse failed")

	if m := overviewRe.FindStringSubmatch(raw); m != nil {
		out.CompanyOverview = citedFromText(unescape(m[1]))
	}
	out.PainPoints = extractCitedList(raw, "pain_points")
	out.Opportunities = extractCitedList(raw, "opportunities")
	out.TalkingPoints = extractCitedList(raw, "talking_points")
	out.RecommendedActions = extractCitedList(raw, "recommended_actions")

	if m := probRe.FindStringSubmatch(raw); m != nil {
		if p, err := strconv.Atoi(m[1]); err == nil {
			out.DealProbability = clampInt(p, 0, 100)
		}
	}
	return out
}

func extractCitedList(raw, name string) []model.CitedContent {
	re, ok := sectionRes[name]
	if !ok {
		return []model.CitedContent{}
	}
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return []model.CitedContent{}
	}
	items := []model.CitedContent{}
	for _, t := range listTextRe.FindAllStringSubmatch(m[1], -1) {
		items = append(items, citedFromText(unescape(t[1])))
	}
	return items
}

// citedFromText recovers [n] citation markers embedded in a statement.
func citedFromText(text string) model.CitedContent {
	cited := model.CitedContent{Text: text, Citations: []int{}}
	for _, m := range citationRe.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil {
			cited.Citations = append(cited.Citations, n)
		}
	}
	return cited
}

func unescape(s string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err != nil {
		return s
	}
	return out
}
