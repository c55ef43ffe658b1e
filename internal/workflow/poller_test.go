package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	info        ExecutionInfo
	describeErr error
	events      []HistoryEvent
	historyErr  error
}

func (f *fakeEngine) Start(_ context.Context, _ string, _ any) (string, error) {
	return "exec-1", nil
}

func (f *fakeEngine) Describe(_ context.Context, _ string) (ExecutionInfo, error) {
	return f.info, f.describeErr
}

func (f *fakeEngine) History(_ context.Context, _ string) ([]HistoryEvent, error) {
	return f.events, f.historyErr
}

func pollerAt(engine Engine, now time.Time) *Poller {
	p := NewPoller(engine)
	p.now = func() time.Time { return now }
	return p
}

func TestProgressFromHistory(t *testing.T) {
	engine := &fakeEngine{
		info: ExecutionInfo{Status: "running", StartTime: time.Now()},
		events: []HistoryEvent{
			{StateName: StageCacheCheck},
			{StateName: StageDataCollection},
			{StateName: StageLLMAnalysis},
		},
	}

	got, err := NewPoller(engine).Progress(context.Background(), "exec-1")
	require.NoError(t, err)

	assert.Equal(t, StageLLMAnalysis, got.CurrentStep)
	assert.Equal(t, 75, got.ProgressPercent)
	assert.Equal(t, "running", got.Status)
}

func TestProgressIgnoresUnknownStates(t *testing.T) {
	engine := &fakeEngine{
		info: ExecutionInfo{Status: "running", StartTime: time.Now()},
		events: []HistoryEvent{
			{StateName: StageDataCollection},
			{StateName: "some-internal-activity"},
		},
	}

	got, err := NewPoller(engine).Progress(context.Background(), "exec-1")
	require.NoError(t, err)

	assert.Equal(t, StageDataCollection, got.CurrentStep)
	assert.Equal(t, 50, got.ProgressPercent)
}

func TestProgressElapsedFallback(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		elapsed time.Duration
		stage   string
		percent int
	}{
		{10 * time.Second, StageCacheCheck, 25},
		{60 * time.Second, StageDataCollection, 50},
		{150 * time.Second, StageLLMAnalysis, 75},
		{300 * time.Second, StageFinalization, 90},
	}

	for _, tc := range cases {
		engine := &fakeEngine{
			info:       ExecutionInfo{Status: "running", StartTime: start},
			historyErr: eris.New("history unavailable"),
		}
		got, err := pollerAt(engine, start.Add(tc.elapsed)).Progress(context.Background(), "exec-1")
		require.NoError(t, err)
		assert.Equal(t, tc.stage, got.CurrentStep, "elapsed %s", tc.elapsed)
		assert.Equal(t, tc.percent, got.ProgressPercent, "elapsed %s", tc.elapsed)
	}
}

func TestProgressTerminalStates(t *testing.T) {
	got, err := NewPoller(&fakeEngine{info: ExecutionInfo{Status: "completed"}}).Progress(context.Background(), "exec-1")
	require.NoError(t, err)
	assert.Equal(t, StageCompleted, got.CurrentStep)
	assert.Equal(t, 100, got.ProgressPercent)

	got, err = NewPoller(&fakeEngine{info: ExecutionInfo{Status: "failed"}}).Progress(context.Background(), "exec-1")
	require.NoError(t, err)
	assert.Equal(t, StageFailed, got.CurrentStep)
	assert.Zero(t, got.ProgressPercent)
}

func TestProgressDescribeError(t *testing.T) {
	engine := &fakeEngine{describeErr: eris.New("not found")}

	_, err := NewPoller(engine).Progress(context.Background(), "missing")
	assert.Error(t, err)
}
