package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueRunsOnWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := New(4, 1)
	svc.Start(ctx)

	done := make(chan string, 1)
	ok := svc.Enqueue("test", "u1", func(context.Context) (any, error) {
		done <- "ran"
		return nil, nil
	})
	require.True(t, ok)

	select {
	case got := <-done:
		assert.Equal(t, "ran", got)
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
	cancel()
	svc.Wait()
}

func TestEnqueueReportsFullQueue(t *testing.T) {
	svc := New(1, 1)
	noop := func(context.Context) (any, error) { return nil, nil }
	require.True(t, svc.Enqueue("a", "", noop))
	assert.False(t, svc.Enqueue("b", "", noop))
}

func TestRunNowReturnsResult(t *testing.T) {
	svc := New(0, 0)
	details, err := svc.RunNow(context.Background(), "x", "", func(context.Context) (any, error) {
		return map[string]int{"deleted": 2}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"deleted": 2}, details)

	boom := errors.New("boom")
	_, err = svc.RunNow(context.Background(), "x", "", func(context.Context) (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func TestEverySchedulesRuns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := New(8, 1)
	var runs atomic.Int32
	svc.Every("tick", 10*time.Millisecond, func(context.Context) (any, error) {
		runs.Add(1)
		return nil, nil
	})
	svc.Every("ignored", 0, func(context.Context) (any, error) {
		t.Error("zero interval schedule should never run")
		return nil, nil
	})
	svc.Start(ctx)

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	svc.Wait()
}
