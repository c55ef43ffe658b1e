package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/intel-cli/internal/model"
	"github.com/sells-group/intel-cli/internal/store"
	"github.com/sells-group/intel-cli/internal/tracker"
)

// Dispatcher hands a research task to a background worker. Dispatch is
// fire-and-forget: the caller returns as soon as the task is accepted,
// and all further communication happens through the persisted
// AsyncRequest record.
type Dispatcher interface {
	Dispatch(requestID string, req model.ResearchRequest) error
}

// Worker runs dispatched research tasks and drives the tracker at
// phase boundaries. It shares no in-memory state with the dispatching
// handler.
type Worker struct {
	pipeline *Pipeline
	tracker  *tracker.Tracker
	timeout  time.Duration
}

// NewWorker builds a Worker. timeout bounds one whole run; zero means
// no bound.
func NewWorker(p *Pipeline, t *tracker.Tracker, timeout time.Duration) *Worker {
	return &Worker{pipeline: p, tracker: t, timeout: timeout}
}

// Process runs one research task to a terminal tracker status. Errors
// are recorded on the AsyncRequest, not returned: the worker has no
// caller to report to.
func (w *Worker) Process(ctx context.Context, requestID string, req model.ResearchRequest) {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	if err := w.tracker.UpdateStatus(ctx, requestID, model.StatusProcessing, nil, ""); err != nil {
		zap.L().Error("mark request processing",
			zap.String("request_id", requestID),
			zap.Error(err))
		return
	}

	intel, err := w.pipeline.Research(ctx, req)
	if err != nil {
		if uerr := w.tracker.UpdateStatus(ctx, requestID, model.StatusFailed, nil, err.Error()); uerr != nil {
			zap.L().Error("mark request failed",
				zap.String("request_id", requestID),
				zap.Error(uerr))
		}
		return
	}

	if err := w.tracker.UpdateStatus(ctx, requestID, model.StatusCompleted, intel, ""); err != nil {
		zap.L().Error("mark request completed",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}

// Drain processes every pending request one at a time and returns how
// many it picked up. It is the entry point for a standalone worker
// process sharing a store with the API server.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	pending, err := w.tracker.List(ctx, store.RequestFilter{Status: model.StatusPending})
	if err != nil {
		return 0, err
	}
	for i := range pending {
		if ctx.Err() != nil {
			return i, ctx.Err()
		}
		r := &pending[i]
		w.Process(ctx, r.RequestID, researchRequestFromRecord(r))
	}
	return len(pending), nil
}

// researchRequestFromRecord rebuilds the research parameters a handler
// stashed in the record's additional data when it enqueued the request.
func researchRequestFromRecord(r *model.AsyncRequest) model.ResearchRequest {
	rr := model.ResearchRequest{
		CompanyDomain: r.CompanyDomain,
		UseCache:      true,
	}
	if v, ok := r.AdditionalData["company_name"].(string); ok {
		rr.CompanyName = v
	}
	if v, ok := r.AdditionalData["sales_context"].(string); ok {
		rr.SalesContext = model.SalesContext(v)
	}
	if v, ok := r.AdditionalData["seller_company"].(string); ok {
		rr.SellerCompany = v
	}
	if v, ok := r.AdditionalData["use_cache"].(bool); ok {
		rr.UseCache = v
	}
	return rr
}

// GoDispatcher runs each task on its own goroutine, detached from the
// dispatching request's context.
type GoDispatcher struct {
	worker *Worker
}

// NewGoDispatcher builds a Dispatcher over the given worker.
func NewGoDispatcher(w *Worker) *GoDispatcher {
	return &GoDispatcher{worker: w}
}

func (d *GoDispatcher) Dispatch(requestID string, req model.ResearchRequest) error {
	go d.worker.Process(context.Background(), requestID, req)
	return nil
}
