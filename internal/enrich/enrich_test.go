package enrich

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/intel-cli/internal/model"
	"github.com/sells-group/intel-cli/internal/resilience"
)

type fakeLookup struct {
	record *model.CompanyRecord
	errs   []error
	calls  int
}

func (f *fakeLookup) Lookup(_ context.Context, _ string) (*model.CompanyRecord, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.record, nil
}

func fastEnricher(lookup Lookup) *Enricher {
	e := New(lookup)
	e.retry = resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: 1, MaxBackoff: 1}
	return e
}

func TestEnrichSuccess(t *testing.T) {
	lookup := &fakeLookup{record: &model.CompanyRecord{Name: "Acme", Domain: "acme.com"}}

	record := fastEnricher(lookup).Enrich(context.Background(), "Acme")

	require.NotNil(t, record)
	assert.Equal(t, "acme.com", record.Domain)
	assert.Equal(t, 1, lookup.calls)
}

func TestEnrichRetriesTransientThenSucceeds(t *testing.T) {
	lookup := &fakeLookup{
		record: &model.CompanyRecord{Name: "Acme"},
		errs:   []error{resilience.NewTransientError(eris.New("429"), 429), nil},
	}

	record := fastEnricher(lookup).Enrich(context.Background(), "Acme")

	require.NotNil(t, record)
	assert.Equal(t, 2, lookup.calls)
}

func TestEnrichGivesUpOnPermanentError(t *testing.T) {
	lookup := &fakeLookup{errs: []error{eris.New("unauthorized")}}

	record := fastEnricher(lookup).Enrich(context.Background(), "Acme")

	assert.Nil(t, record)
	assert.Equal(t, 1, lookup.calls)
}

func TestEnrichProviderMiss(t *testing.T) {
	lookup := &fakeLookup{record: nil}

	assert.Nil(t, fastEnricher(lookup).Enrich(context.Background(), "Acme"))
}

func TestEnrichNilLookup(t *testing.T) {
	assert.Nil(t, New(nil).Enrich(context.Background(), "Acme"))
	assert.Nil(t, fastEnricher(&fakeLookup{}).Enrich(context.Background(), ""))
}
