package enrich

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/intel-cli/internal/model"
	"github.com/sells-group/intel-cli/internal/resilience"
)

// HTTPOption configures the HTTP lookup client.
type HTTPOption func(*httpLookup)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(l *httpLookup) {
		l.http = hc
	}
}

type httpLookup struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// NewHTTPLookup builds a Lookup over an entity-lookup HTTP endpoint.
// The endpoint is queried as GET {endpoint}?name={companyName} and is
// expected to return a company record as JSON, or 404 for a miss.
func NewHTTPLookup(endpoint, apiKey string, timeout time.Duration, opts ...HTTPOption) Lookup {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	l := &httpLookup{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *httpLookup) Lookup(ctx context.Context, companyName string) (*model.CompanyRecord, error) {
	reqURL := l.endpoint + "?name=" + url.QueryEscape(companyName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: create lookup request")
	}
	if l.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+l.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "enrich: lookup request failed"), 0)
	}
	defer resp.Body.Close()

	// A miss is not an error; the caller treats nil as no match.
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("enrich: lookup unexpected status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "enrich: read lookup response"), 0)
	}

	var record model.CompanyRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, eris.Wrap(err, "enrich: unmarshal lookup response")
	}
	if record.Name == "" && record.Domain == "" {
		return nil, nil
	}
	return &record, nil
}
