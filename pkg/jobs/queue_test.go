package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	handled []string
}

func (r *recorder) add(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handled = append(r.handled, id)
}

func (r *recorder) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.handled...)
}

func TestQueueDeliversJobs(t *testing.T) {
	rec := &recorder{}
	q := NewQueue("test", func(_ context.Context, job Job) error {
		rec.add(job.ID)
		return nil
	}, QueueConfig{Workers: 2, BufferSize: 4})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "j-1", Type: "SUBMITTED"}))
	require.NoError(t, q.Enqueue(Job{ID: "j-2", Type: "SUBMITTED"}))

	require.Eventually(t, func() bool {
		return len(rec.ids()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{"j-1", "j-2"}, rec.ids())
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})
	require.Error(t, q.Enqueue(Job{ID: "j-1"}))
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	q := NewQueue("test", func(_ context.Context, job Job) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts == 1 {
			return errors.New("transient store error")
		}
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "j-1"}))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return attempts == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestQueueStopDrainsBufferedJobs(t *testing.T) {
	gate := make(chan struct{})
	rec := &recorder{}
	q := NewQueue("test", func(_ context.Context, job Job) error {
		rec.add(job.ID)
		if job.ID == "j-1" {
			<-gate
		}
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 4})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	require.NoError(t, q.Enqueue(Job{ID: "j-1"}))
	require.Eventually(t, func() bool {
		return len(rec.ids()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// The single worker is busy, so these stay in the buffer.
	require.NoError(t, q.Enqueue(Job{ID: "j-2"}))
	require.NoError(t, q.Enqueue(Job{ID: "j-3"}))

	stopped := make(chan struct{})
	go func() {
		q.Stop()
		close(stopped)
	}()
	close(gate)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("queue did not stop")
	}
	assert.ElementsMatch(t, []string{"j-1", "j-2", "j-3"}, rec.ids())
}
