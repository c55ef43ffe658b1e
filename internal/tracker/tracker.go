// Package tracker persists async request records and enforces their
// lifecycle: pending -> processing -> completed|failed. Terminal statuses
// are final; an update against one is rejected, never silently applied.
package tracker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/intel-cli/internal/config"
	"github.com/sells-group/intel-cli/internal/model"
	"github.com/sells-group/intel-cli/internal/store"
)

// ErrTerminalStatus is returned when an update targets a request already
// in a terminal status.
var ErrTerminalStatus = eris.New("tracker: request is in a terminal status")

// ErrInvalidTransition is returned for transitions the state machine does
// not permit (e.g. completed before processing-capable states).
var ErrInvalidTransition = eris.New("tracker: invalid status transition")

// Tracker mediates all mutations of AsyncRequest records.
type Tracker struct {
	store store.Store
	cfg   config.TrackerConfig
	now   func() time.Time
}

// New creates a Tracker over the given store.
func New(st store.Store, cfg config.TrackerConfig) *Tracker {
	if cfg.TTLHours <= 0 {
		cfg.TTLHours = 48
	}
	return &Tracker{store: st, cfg: cfg, now: time.Now}
}

// Create persists a new pending request and returns its ID.
func (t *Tracker) Create(ctx context.Context, companyDomain, requestType string, additional map[string]any) (string, error) {
	if companyDomain == "" {
		return "", eris.New("tracker: company domain is required")
	}
	now := t.now().UTC()
	req := &model.AsyncRequest{
		RequestID:      uuid.New().String(),
		Status:         model.StatusPending,
		CompanyDomain:  companyDomain,
		RequestType:    requestType,
		CreatedAt:      now,
		UpdatedAt:      now,
		AdditionalData: additional,
	}
	if err := t.store.CreateRequest(ctx, req, t.cfg.TTLHours); err != nil {
		return "", eris.Wrap(err, "tracker: create request")
	}
	zap.L().Info("tracker: request created",
		zap.String("request_id", req.RequestID),
		zap.String("company_domain", companyDomain),
		zap.String("request_type", requestType),
	)
	return req.RequestID, nil
}

// UpdateStatus is the sole mutator. It loads the current record, validates
// the transition, and persists the new state. Result and errMsg are only
// stored with terminal statuses.
func (t *Tracker) UpdateStatus(ctx context.Context, requestID string, status model.RequestStatus, result *model.Intelligence, errMsg string) error {
	if !status.Valid() {
		return eris.Errorf("tracker: unknown status %q", status)
	}

	req, err := t.store.GetRequest(ctx, requestID)
	if err != nil {
		return eris.Wrapf(err, "tracker: load request %s", requestID)
	}
	if req == nil {
		return eris.Errorf("tracker: request %s not found", requestID)
	}
	if req.Status.Terminal() {
		return ErrTerminalStatus
	}
	if !legalTransition(req.Status, status) {
		return eris.Wrapf(ErrInvalidTransition, "%s -> %s", req.Status, status)
	}

	req.Status = status
	req.UpdatedAt = t.now().UTC()
	switch status {
	case model.StatusCompleted:
		req.Result = result
	case model.StatusFailed:
		req.Error = errMsg
	}

	if err := t.store.UpdateRequest(ctx, req); err != nil {
		return eris.Wrapf(err, "tracker: update request %s", requestID)
	}
	zap.L().Info("tracker: status updated",
		zap.String("request_id", requestID),
		zap.String("status", string(status)),
	)
	return nil
}

// Get returns the request, or nil if absent or past its own TTL.
// Store failures degrade to nil with a logged warning.
func (t *Tracker) Get(ctx context.Context, requestID string) *model.AsyncRequest {
	req, err := t.store.GetRequest(ctx, requestID)
	if err != nil {
		zap.L().Warn("tracker: get failed",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return nil
	}
	return req
}

// List returns requests matching the filter.
func (t *Tracker) List(ctx context.Context, filter store.RequestFilter) ([]model.AsyncRequest, error) {
	reqs, err := t.store.ListRequests(ctx, filter)
	return reqs, eris.Wrap(err, "tracker: list requests")
}

// legalTransition encodes pending -> processing -> {completed, failed}.
// Failing straight from pending is allowed (e.g. dispatch never happened).
func legalTransition(from, to model.RequestStatus) bool {
	switch from {
	case model.StatusPending:
		return to == model.StatusProcessing || to == model.StatusFailed
	case model.StatusProcessing:
		return to == model.StatusCompleted || to == model.StatusFailed
	}
	return false
}
