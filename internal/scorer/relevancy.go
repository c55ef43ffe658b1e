// Package scorer assigns relevancy and credibility scores to fetched
// sources. Relevancy measures content-level match against the target
// company; credibility is a domain-tier trust estimate independent of the
// content. All scores lie in [0,1].
package scorer

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/sells-group/intel-cli/internal/model"
)

var tokenFolder = cases.Fold()

// stopwords excluded from relevancy tokenization. Short function words
// would otherwise dominate the overlap count.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {},
	"from": {}, "are": {}, "was": {}, "has": {}, "have": {}, "its": {},
	"inc": {}, "llc": {}, "ltd": {}, "corp": {}, "company": {},
}

// Relevancy scores how strongly content matches the target company using
// token overlap between the company name (plus optional snippet terms)
// and the content. Returns 0 for empty inputs.
func Relevancy(content, companyName string, snippetTerms string) float64 {
	terms := tokenize(companyName)
	for tok := range tokenize(snippetTerms) {
		terms[tok] = struct{}{}
	}
	if len(terms) == 0 || strings.TrimSpace(content) == "" {
		return 0
	}

	contentTokens := tokenize(content)
	matched := 0
	for term := range terms {
		if _, ok := contentTokens[term]; ok {
			matched++
		}
	}

	score := float64(matched) / float64(len(terms))

	// Multiple mentions of the company name itself signal a page about
	// the company, not one that mentions it in passing.
	name := tokenFolder.String(strings.TrimSpace(companyName))
	if name != "" {
		mentions := strings.Count(tokenFolder.String(content), name)
		if mentions >= 3 {
			score += 0.2
		} else if mentions >= 1 {
			score += 0.1
		}
	}

	return clamp01(score)
}

// FilterByRelevancy keeps sources scoring at or above threshold. Filtering
// is monotonic: a higher threshold never yields more items.
func FilterByRelevancy(sources []model.AuthoritativeSource, threshold float64) []model.AuthoritativeSource {
	out := make([]model.AuthoritativeSource, 0, len(sources))
	for _, s := range sources {
		if s.RelevancyScore >= threshold {
			out = append(out, s)
		}
	}
	return out
}

func tokenize(s string) map[string]struct{} {
	folded := tokenFolder.String(s)
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		tokens[f] = struct{}{}
	}
	return tokens
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
