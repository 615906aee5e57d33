package pipeline_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dylanvkmns/rqmProject/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	runs atomic.Int64
	err  error
}

func (r *countingRunner) RunOnce(context.Context) (int, error) {
	r.runs.Add(1)
	return 0, r.err
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	_, err := pipeline.NewScheduler("whenever", &countingRunner{}, discardLogger())
	require.Error(t, err)
}

func TestScheduler_RunsImmediatelyAndStops(t *testing.T) {
	runner := &countingRunner{err: errors.New("one file failed")}
	s, err := pipeline.NewScheduler("@every 1h", runner, discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return runner.runs.Load() == 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, int64(1), runner.runs.Load())
}

func TestScheduler_CancelledBeforeStart(t *testing.T) {
	runner := &countingRunner{}
	s, err := pipeline.NewScheduler("@every 1h", runner, discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Run(ctx))
	assert.Zero(t, runner.runs.Load())
}
