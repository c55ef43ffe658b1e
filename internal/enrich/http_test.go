package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/intel-cli/internal/resilience"
)

func TestHTTPLookupMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Acme Corp", r.URL.Query().Get("name"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name": "Acme Corp", "domain": "acme.com", "industry": "Logistics"}`))
	}))
	defer srv.Close()

	l := NewHTTPLookup(srv.URL, "test-key", 5*time.Second)

	record, err := l.Lookup(context.Background(), "Acme Corp")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "acme.com", record.Domain)
	assert.Equal(t, "Logistics", record.Industry)
}

func TestHTTPLookupMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	l := NewHTTPLookup(srv.URL, "", 5*time.Second)

	record, err := l.Lookup(context.Background(), "Nobody Inc")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestHTTPLookupTransientStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	l := NewHTTPLookup(srv.URL, "", 5*time.Second)

	_, err := l.Lookup(context.Background(), "Acme Corp")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestHTTPLookupPermanentStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	l := NewHTTPLookup(srv.URL, "", 5*time.Second)

	_, err := l.Lookup(context.Background(), "Acme Corp")
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}

func TestHTTPLookupEmptyRecordIsMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	l := NewHTTPLookup(srv.URL, "", 5*time.Second)

	record, err := l.Lookup(context.Background(), "Acme Corp")
	require.NoError(t, err)
	assert.Nil(t, record)
}
