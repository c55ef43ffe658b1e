package scorer

import (
	"net/url"
	"strings"

	"github.com/sells-group/intel-cli/internal/model"
)

// SourceType classifies a URL by publisher kind via ordered pattern
// matching over the domain and path. The order matters: financial and
// government domains are checked before news so "sec.gov" never reads as
// generic news, and press-release wires before company pages.
func SourceType(rawURL string) model.SourceType {
	u, err := url.Parse(strings.ToLower(rawURL))
	if err != nil {
		return model.SourceOther
	}
	host := strings.TrimPrefix(u.Host, "www.")
	path := u.Path

	switch {
	case containsAny(host, "sec.gov", "investor.gov", "ftc.gov", "treasury.gov") ||
		strings.HasSuffix(host, ".gov") ||
		containsAny(host, "bloomberg.com", "marketwatch.com", "fool.com", "seekingalpha.com", "morningstar.com") ||
		containsAny(path, "/investor-relations", "/investors", "/sec-filings"):
		return model.SourceFinancial

	case strings.HasSuffix(host, ".edu") ||
		containsAny(host, "scholar.google", "jstor.org", "arxiv.org", "researchgate.net"):
		return model.SourceEducational

	case containsAny(host, "reuters.com", "apnews.com", "wsj.com", "nytimes.com", "ft.com",
		"cnbc.com", "forbes.com", "businessinsider.com", "techcrunch.com", "theverge.com",
		"wired.com", "axios.com", "theinformation.com") ||
		containsAny(path, "/news/", "/article/", "/story/"):
		return model.SourceNews

	case containsAny(host, "prnewswire.com", "businesswire.com", "globenewswire.com", "newswire.com") ||
		containsAny(path, "/press-release", "/press/", "/newsroom"):
		return model.SourcePressRelease

	case containsAny(path, "/about", "/company", "/team", "/careers", "/products", "/solutions", "/customers"):
		return model.SourceCompany

	case containsAny(host, "linkedin.com", "twitter.com", "x.com", "facebook.com",
		"reddit.com", "youtube.com", "instagram.com"):
		return model.SourceSocial

	case containsAny(host, "medium.com", "substack.com", "wordpress.com", "blogspot.com") ||
		containsAny(path, "/blog/", "/posts/"):
		return model.SourceBlog

	case containsAny(host, "gartner.com", "forrester.com", "idc.com", "statista.com", "mckinsey.com") ||
		containsAny(path, "/report", "/research", "/whitepaper", "/insights"):
		return model.SourceReport
	}
	return model.SourceOther
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
