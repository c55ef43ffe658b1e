// Package store persists cache entries and async request records behind a
// single key-value oriented interface with SQLite and Postgres backends.
package store

import (
	"context"

	"github.com/sells-group/intel-cli/internal/model"
)

// RequestFilter specifies criteria for listing async requests.
type RequestFilter struct {
	Status        model.RequestStatus `json:"status,omitempty"`
	CompanyDomain string              `json:"company_domain,omitempty"`
	Limit         int                 `json:"limit,omitempty"`
	Offset        int                 `json:"offset,omitempty"`
}

// Store defines the persistence operations for the intelligence pipeline.
// Both backends treat every operation as externally atomic; there is no
// in-process locking above this layer.
type Store interface {
	// Cache entries
	GetEntry(ctx context.Context, key string) (*model.CacheEntry, error)
	SetEntry(ctx context.Context, entry model.CacheEntry) error
	DeleteEntry(ctx context.Context, key string) error
	ListKeys(ctx context.Context, pattern string, limit int, entryType string) ([]string, error)
	ClearEntries(ctx context.Context, entryType string) (int, error)
	DeleteExpiredEntries(ctx context.Context) (int, error)

	// Async requests
	CreateRequest(ctx context.Context, req *model.AsyncRequest, ttlHours int) error
	GetRequest(ctx context.Context, requestID string) (*model.AsyncRequest, error)
	UpdateRequest(ctx context.Context, req *model.AsyncRequest) error
	ListRequests(ctx context.Context, filter RequestFilter) ([]model.AsyncRequest, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
