package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/L1nkStart/optimizacion-combinatoria/pkg/errors"
)

func TestQueueProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	seen := make([]string, 0)
	done := make(chan struct{}, 3)

	q := NewQueue("test", func(ctx context.Context, job Job) error {
		mu.Lock()
		seen = append(seen, job.ID)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, Config{Workers: 2, Capacity: 3})
	q.Start(context.Background())
	defer q.Stop()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Job{ID: id}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}
	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"a", "b", "c"}, seen)
}

func TestQueueRejectsWhenFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	q := NewQueue("full", func(ctx context.Context, job Job) error {
		started <- struct{}{}
		<-release
		return nil
	}, Config{Workers: 1, Capacity: 1})
	q.Start(context.Background())
	defer func() {
		close(release)
		q.Stop()
	}()

	require.NoError(t, q.Enqueue(Job{ID: "running"}))
	<-started
	require.NoError(t, q.Enqueue(Job{ID: "buffered"}))
	assert.Equal(t, 1, q.Pending())
	assert.Equal(t, 1, q.Active())

	err := q.Enqueue(Job{ID: "rejected"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrQueueFull))
}

func TestQueueRequiresStart(t *testing.T) {
	q := NewQueue("idle", func(context.Context, Job) error { return nil }, Config{})
	err := q.Enqueue(Job{ID: "x"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnavailable))

	q.Start(context.Background())
	q.Stop()
	assert.Error(t, q.Enqueue(Job{ID: "y"}))
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var calls atomic.Int32
	done := make(chan int, 1)
	q := NewQueue("retry", func(ctx context.Context, job Job) error {
		calls.Add(1)
		if job.Attempt < 2 {
			return errors.New("boom")
		}
		done <- job.Attempt
		return nil
	}, Config{Workers: 1, MaxRetries: 2, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "flaky"}))
	select {
	case attempt := <-done:
		assert.Equal(t, 2, attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestQueueWithoutRetriesDropsFailures(t *testing.T) {
	var calls atomic.Int32
	q := NewQueue("once", func(ctx context.Context, job Job) error {
		calls.Add(1)
		return errors.New("boom")
	}, Config{Workers: 1, RetryDelay: time.Millisecond})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "x"}))
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	q.Stop()
	assert.Equal(t, int32(1), calls.Load())
}
