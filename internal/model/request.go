package model

import "time"

// RequestStatus represents the lifecycle state of an async intelligence request.
type RequestStatus string

const (
	StatusPending    RequestStatus = "pending"
	StatusProcessing RequestStatus = "processing"
	StatusCompleted  RequestStatus = "completed"
	StatusFailed     RequestStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s RequestStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether the status is one of the known lifecycle states.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// SalesContext identifies the stage of the sales motion driving a request.
// Unknown values fall back to generic query templates.
type SalesContext string

const (
	ContextDiscovery   SalesContext = "discovery"
	ContextCompetitive SalesContext = "competitive"
	ContextRenewal     SalesContext = "renewal"
	ContextDemo        SalesContext = "demo"
	ContextNegotiation SalesContext = "negotiation"
	ContextClosing     SalesContext = "closing"
)

// Known reports whether the context maps to a dedicated template set.
func (c SalesContext) Known() bool {
	switch c {
	case ContextDiscovery, ContextCompetitive, ContextRenewal,
		ContextDemo, ContextNegotiation, ContextClosing:
		return true
	}
	return false
}

// ResearchRequest describes one intelligence run for a target company.
type ResearchRequest struct {
	CompanyDomain string       `json:"company_domain"`
	CompanyName   string       `json:"company_name,omitempty"`
	SalesContext  SalesContext `json:"sales_context"`
	SellerCompany string       `json:"seller_company,omitempty"`
	UseCache      bool         `json:"use_cache"`
}

// AsyncRequest is the persisted record a background worker and its caller
// communicate through. Created once with StatusPending; mutated only by the
// tracker, which rejects transitions out of a terminal status.
type AsyncRequest struct {
	RequestID      string         `json:"request_id"`
	Status         RequestStatus  `json:"status"`
	CompanyDomain  string         `json:"company_domain"`
	RequestType    string         `json:"request_type"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Result         *Intelligence  `json:"result,omitempty"`
	Error          string         `json:"error,omitempty"`
	AdditionalData map[string]any `json:"additional_data,omitempty"`
}

// ProcessingTime returns the wall-clock duration of a terminal request,
// or zero for requests still in flight.
func (r *AsyncRequest) ProcessingTime() time.Duration {
	if !r.Status.Terminal() {
		return 0
	}
	return r.UpdatedAt.Sub(r.CreatedAt)
}
