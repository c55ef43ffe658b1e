// Package workflow reports progress for pipeline runs executed by an
// external Temporal workflow.
package workflow

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
)

// ExecutionInfo is the engine's view of one workflow execution.
type ExecutionInfo struct {
	Status    string
	StartTime time.Time
	EndTime   time.Time
}

// HistoryEvent is one entered state in an execution's history.
type HistoryEvent struct {
	StateName string
	Timestamp time.Time
	EventType string
}

// Engine abstracts the workflow service so the poller can be tested
// against fakes.
type Engine interface {
	Start(ctx context.Context, name string, input any) (string, error)
	Describe(ctx context.Context, executionID string) (ExecutionInfo, error)
	History(ctx context.Context, executionID string) ([]HistoryEvent, error)
}

// TemporalEngine implements Engine over a Temporal client.
type TemporalEngine struct {
	client    client.Client
	taskQueue string
}

// NewTemporalEngine wraps an existing Temporal client.
func NewTemporalEngine(c client.Client, taskQueue string) *TemporalEngine {
	return &TemporalEngine{client: c, taskQueue: taskQueue}
}

func (e *TemporalEngine) Start(ctx context.Context, name string, input any) (string, error) {
	run, err := e.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		TaskQueue: e.taskQueue,
	}, name, input)
	if err != nil {
		return "", eris.Wrap(err, "workflow: start execution")
	}
	return run.GetID(), nil
}

func (e *TemporalEngine) Describe(ctx context.Context, executionID string) (ExecutionInfo, error) {
	desc, err := e.client.DescribeWorkflowExecution(ctx, executionID, "")
	if err != nil {
		return ExecutionInfo{}, eris.Wrap(err, "workflow: describe execution")
	}

	info := desc.GetWorkflowExecutionInfo()
	out := ExecutionInfo{
		Status: statusName(info.GetStatus()),
	}
	if st := info.GetStartTime(); st != nil {
		out.StartTime = st.AsTime()
	}
	if ct := info.GetCloseTime(); ct != nil {
		out.EndTime = ct.AsTime()
	}
	return out, nil
}

func (e *TemporalEngine) History(ctx context.Context, executionID string) ([]HistoryEvent, error) {
	it := e.client.GetWorkflowHistory(ctx, executionID, "", false, enumspb.HISTORY_EVENT_FILTER_TYPE_ALL_EVENT)
	if it == nil {
		return nil, eris.New("workflow: nil history iterator")
	}

	var events []HistoryEvent
	for it.HasNext() {
		ev, err := it.Next()
		if err != nil {
			return nil, eris.Wrap(err, "workflow: iterate history")
		}
		ts := ev.GetEventTime().AsTime()

		switch ev.GetEventType() {
		case enumspb.EVENT_TYPE_ACTIVITY_TASK_SCHEDULED:
			if a := ev.GetActivityTaskScheduledEventAttributes(); a != nil {
				events = append(events, HistoryEvent{
					StateName: a.GetActivityType().GetName(),
					Timestamp: ts,
					EventType: "state_entered",
				})
			}
		case enumspb.EVENT_TYPE_WORKFLOW_EXECUTION_COMPLETED:
			events = append(events, HistoryEvent{StateName: StageCompleted, Timestamp: ts, EventType: "execution_closed"})
		case enumspb.EVENT_TYPE_WORKFLOW_EXECUTION_FAILED,
			enumspb.EVENT_TYPE_WORKFLOW_EXECUTION_TIMED_OUT,
			enumspb.EVENT_TYPE_WORKFLOW_EXECUTION_TERMINATED:
			events = append(events, HistoryEvent{StateName: StageFailed, Timestamp: ts, EventType: "execution_closed"})
		}
	}
	return events, nil
}

func statusName(s enumspb.WorkflowExecutionStatus) string {
	switch s {
	case enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING:
		return "running"
	case enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		return "completed"
	case enumspb.WORKFLOW_EXECUTION_STATUS_FAILED,
		enumspb.WORKFLOW_EXECUTION_STATUS_TIMED_OUT,
		enumspb.WORKFLOW_EXECUTION_STATUS_TERMINATED:
		return "failed"
	case enumspb.WORKFLOW_EXECUTION_STATUS_CANCELED:
		return "canceled"
	default:
		return "unknown"
	}
}
