// Package enrich resolves a company name to a structured record via an
// external entity-lookup collaborator. Enrichment is best-effort and
// sits outside the core pipeline: a failed lookup never fails a run.
package enrich

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/intel-cli/internal/model"
	"github.com/sells-group/intel-cli/internal/resilience"
)

// Lookup resolves a company name to a structured record, or nil when
// the provider has no match.
type Lookup interface {
	Lookup(ctx context.Context, companyName string) (*model.CompanyRecord, error)
}

// Enricher wraps a Lookup with bounded exponential-backoff retries.
// This is the only retry site in the system.
type Enricher struct {
	lookup Lookup
	retry  resilience.RetryConfig
}

// New builds an Enricher over the given collaborator.
func New(lookup Lookup) *Enricher {
	return &Enricher{lookup: lookup, retry: resilience.DefaultRetryConfig()}
}

// Enrich looks up the company, retrying transient failures. On
// exhaustion or a permanent error it returns nil: callers treat a
// missing record the same as a provider miss.
func (e *Enricher) Enrich(ctx context.Context, companyName string) *model.CompanyRecord {
	if e == nil || e.lookup == nil || companyName == "" {
		return nil
	}

	record, err := resilience.DoVal(ctx, e.retry, "entity lookup", func(ctx context.Context) (*model.CompanyRecord, error) {
		return e.lookup.Lookup(ctx, companyName)
	})
	if err != nil {
		zap.L().Warn("entity lookup failed, continuing without enrichment",
			zap.String("company", companyName),
			zap.Error(err))
		return nil
	}
	return record
}
