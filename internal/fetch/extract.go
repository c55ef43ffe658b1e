package fetch

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/rotisserie/eris"
)

var errEmptyContent = eris.New("fetch: empty content")

type httpStatusError int

func (e httpStatusError) Error() string {
	return fmt.Sprintf("fetch: unexpected status %d", int(e))
}

// extractReadableText distills raw HTML into plain text. Readability
// finds the main article body; if it produces nothing useful, goquery
// strips the whole document instead. The raw HTML is the last resort.
func extractReadableText(pageURL string, html []byte) string {
	parsedURL, err := url.Parse(pageURL)
	if err == nil {
		article, rerr := readability.FromReader(bytes.NewReader(html), parsedURL)
		if rerr == nil && strings.TrimSpace(article.TextContent) != "" {
			return collapseWhitespace(article.TextContent)
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return string(html)
	}
	doc.Find("script, style, nav, footer, header, noscript").Remove()
	text := doc.Find("body").Text()
	if strings.TrimSpace(text) == "" {
		text = doc.Text()
	}
	return collapseWhitespace(text)
}

func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
