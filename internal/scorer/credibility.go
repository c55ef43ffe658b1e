package scorer

import (
	"net/url"
	"strings"
	"time"
)

// Domain tiers for credibility. Checked in order; first match wins.
var credibilityTiers = []struct {
	score   float64
	domains []string
}{
	{0.95, []string{"sec.gov", "investor.gov", "ftc.gov", "reuters.com", "apnews.com", "wsj.com", "bloomberg.com", "ft.com"}},
	{0.90, []string{"nytimes.com", "cnbc.com", "forbes.com", "marketwatch.com", "economist.com"}},
	{0.85, []string{"techcrunch.com", "theverge.com", "wired.com", "axios.com", "businessinsider.com", "theinformation.com", "venturebeat.com"}},
	{0.80, []string{"crunchbase.com", "pitchbook.com", "gartner.com", "forrester.com", "statista.com"}},
	{0.75, []string{"linkedin.com", "glassdoor.com", "g2.com", "capterra.com", "trustradius.com"}},
}

const (
	defaultCredibility = 0.50
	companyCredibility = 0.60
	investorRelations  = 0.70
)

// Credibility returns a domain-tier trust estimate in [0,1]. Government
// and .edu hosts score like the top tier; unrecognized domains default to
// 0.50; company-owned pages get 0.60, or 0.70 for investor-relations
// subpaths.
func Credibility(rawURL string) float64 {
	return CredibilityFor(rawURL, "")
}

// CredibilityFor is Credibility with the research target's own domain
// known: any page on that host counts as company-owned, not just paths
// that look like one.
func CredibilityFor(rawURL, targetDomain string) float64 {
	u, err := url.Parse(strings.ToLower(rawURL))
	if err != nil {
		return defaultCredibility
	}
	host := strings.TrimPrefix(u.Host, "www.")
	if host == "" {
		// Callers sometimes pass a bare domain instead of a URL.
		host = strings.TrimPrefix(strings.ToLower(rawURL), "www.")
	}

	if strings.HasSuffix(host, ".gov") {
		return 0.95
	}
	if strings.HasSuffix(host, ".edu") {
		return 0.80
	}

	for _, tier := range credibilityTiers {
		for _, d := range tier.domains {
			if host == d || strings.HasSuffix(host, "."+d) {
				return tier.score
			}
		}
	}

	if containsAny(u.Path, "/investor-relations", "/investors", "/ir/") {
		return investorRelations
	}

	if target := strings.TrimPrefix(strings.ToLower(targetDomain), "www."); target != "" {
		if host == target || strings.HasSuffix(host, "."+target) {
			return companyCredibility
		}
	}
	if containsAny(u.Path, "/about", "/company", "/products", "/press") {
		return companyCredibility
	}
	return defaultCredibility
}

// ComprehensiveCredibility adds content-level boosts to the domain tier:
// an identifiable author, recent publication, and long-form content each
// nudge the score up. Capped at 1.0.
func ComprehensiveCredibility(rawURL string, author string, publishedDate *time.Time, contentLength int) float64 {
	score := Credibility(rawURL)

	if strings.TrimSpace(author) != "" {
		score += 0.05
	}
	if publishedDate != nil {
		age := time.Since(*publishedDate)
		switch {
		case age <= 90*24*time.Hour:
			score += 0.10
		case age <= 365*24*time.Hour:
			score += 0.05
		}
	}
	if contentLength >= 3000 {
		score += 0.02
	}

	return clamp01(score)
}
