package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddJobRejectsDuplicates(t *testing.T) {
	s := New(nil)

	require.NoError(t, s.AddJob("cleanup", "@hourly", func(context.Context) error { return nil }))

	err := s.AddJob("cleanup", "@daily", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrJobExists)
	assert.Equal(t, []string{"cleanup"}, s.Jobs())
}

func TestAddJobInvalidSpec(t *testing.T) {
	s := New(nil)

	err := s.AddJob("bad", "not a schedule", func(context.Context) error { return nil })
	assert.Error(t, err)
	assert.Empty(t, s.Jobs())
}

func TestRunNowAndFailingJob(t *testing.T) {
	s := New(nil)

	var runs atomic.Int32
	require.NoError(t, s.AddJob("count", "@hourly", func(context.Context) error {
		runs.Add(1)
		return nil
	}))
	require.NoError(t, s.AddJob("fail", "@hourly", func(context.Context) error {
		return errors.New("boom")
	}))

	require.NoError(t, s.RunNow("count"))
	require.NoError(t, s.RunNow("fail"))
	assert.Equal(t, int32(1), runs.Load())

	assert.ErrorIs(t, s.RunNow("missing"), ErrJobNotFound)
}

func TestPanickingJobIsRecovered(t *testing.T) {
	s := New(nil)

	require.NoError(t, s.AddJob("panic", "@hourly", func(context.Context) error {
		panic("boom")
	}))

	assert.NotPanics(t, func() { _ = s.RunNow("panic") })
}

func TestStopJob(t *testing.T) {
	s := New(nil)

	require.NoError(t, s.AddJob("a", "@hourly", func(context.Context) error { return nil }))
	require.NoError(t, s.StopJob("a"))
	assert.ErrorIs(t, s.StopJob("a"), ErrJobNotFound)

	require.NoError(t, s.AddJob("a", "@hourly", func(context.Context) error { return nil }))
}

func TestScheduledRunAndStopWaits(t *testing.T) {
	s := New(nil)

	started := make(chan struct{}, 1)
	var finished atomic.Bool
	require.NoError(t, s.AddJob("slow", "@every 1s", func(context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		time.Sleep(200 * time.Millisecond)
		finished.Store(true)
		return nil
	}))

	s.Start()

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never ran")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, s.Stop(ctx))
	assert.True(t, finished.Load())
}

func TestStopHonoursDeadline(t *testing.T) {
	s := New(nil)

	started := make(chan struct{}, 1)
	require.NoError(t, s.AddJob("stuck", "@every 1s", func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return ctx.Err()
	}))

	s.Start()

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never ran")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, s.Stop(ctx), context.DeadlineExceeded)
}
