package workflow

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Stage names form a fixed four-stage vocabulary (plus the two
// terminal states); clients never see anything outside it.
const (
	StageCacheCheck     = "cache-check"
	StageDataCollection = "data-collection"
	StageLLMAnalysis    = "llm-analysis"
	StageFinalization   = "finalization"
	StageCompleted      = "completed"
	StageFailed         = "failed"
)

// stageProgress maps each stage to its progress percentage.
var stageProgress = map[string]int{
	StageCacheCheck:     25,
	StageDataCollection: 50,
	StageLLMAnalysis:    75,
	StageFinalization:   90,
	StageCompleted:      100,
	StageFailed:         0,
}

// Progress is the client-visible progress of one execution.
type Progress struct {
	Status          string `json:"status"`
	CurrentStep     string `json:"current_step"`
	ProgressPercent int    `json:"progress_percent"`
}

// Poller answers progress queries for workflow executions.
type Poller struct {
	engine Engine
	now    func() time.Time
}

// NewPoller builds a Poller over the given engine.
func NewPoller(engine Engine) *Poller {
	return &Poller{engine: engine, now: time.Now}
}

// Progress reports the current stage of an execution. The primary
// strategy reads the most recently entered state from the execution
// history; when history is unavailable or names no known stage, it
// falls back to classifying by elapsed wall-clock time. Both paths
// emit the same stage vocabulary.
func (p *Poller) Progress(ctx context.Context, executionID string) (Progress, error) {
	info, err := p.engine.Describe(ctx, executionID)
	if err != nil {
		return Progress{}, err
	}

	switch info.Status {
	case "completed":
		return progressFor(StageCompleted, info.Status), nil
	case "failed", "canceled":
		return progressFor(StageFailed, "failed"), nil
	}

	if stage, ok := p.latestStage(ctx, executionID); ok {
		return progressFor(stage, info.Status), nil
	}
	return progressFor(p.stageByElapsed(info.StartTime), info.Status), nil
}

// latestStage returns the most recently entered known stage, if any.
func (p *Poller) latestStage(ctx context.Context, executionID string) (string, bool) {
	events, err := p.engine.History(ctx, executionID)
	if err != nil {
		zap.L().Warn("workflow history unavailable, falling back to elapsed time",
			zap.String("execution_id", executionID),
			zap.Error(err))
		return "", false
	}

	for i := len(events) - 1; i >= 0; i-- {
		if _, known := stageProgress[events[i].StateName]; known {
			return events[i].StateName, true
		}
	}
	return "", false
}

// stageByElapsed classifies an execution by wall-clock age alone.
func (p *Poller) stageByElapsed(start time.Time) string {
	elapsed := p.now().Sub(start)
	switch {
	case elapsed < 30*time.Second:
		return StageCacheCheck
	case elapsed < 120*time.Second:
		return StageDataCollection
	case elapsed < 180*time.Second:
		return StageLLMAnalysis
	default:
		return StageFinalization
	}
}

func progressFor(stage, status string) Progress {
	return Progress{
		Status:          status,
		CurrentStep:     stage,
		ProgressPercent: stageProgress[stage],
	}
}
