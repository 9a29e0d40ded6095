package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liewchinchuan/EventStream/pkg/queue"
)

type fakeSource struct {
	mu      sync.Mutex
	jobs    []*queue.Job
	retried []*queue.Job
}

func (f *fakeSource) Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.jobs) == 0 {
		return nil, nil
	}
	job := f.jobs[0]
	f.jobs = f.jobs[1:]
	return job, nil
}

func (f *fakeSource) Retry(_ context.Context, job *queue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retried = append(f.retried, job)
	return nil
}

func (f *fakeSource) remaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

type fakeWriter struct {
	mu      sync.Mutex
	batches []map[int64]time.Time
	err     error
}

func (f *fakeWriter) TouchMany(_ context.Context, seen map[int64]time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, seen)
	return f.err
}

func (f *fakeWriter) merged() map[int64]time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[int64]time.Time{}
	for _, b := range f.batches {
		for id, at := range b {
			out[id] = at
		}
	}
	return out
}

func activityJob(t *testing.T, id string, participantID int64, at time.Time) *queue.Job {
	t.Helper()
	body, err := json.Marshal(queue.ActivityPayload{ParticipantID: participantID, SeenAt: at})
	require.NoError(t, err)
	return &queue.Job{ID: id, Type: queue.JobTypeParticipantActivity, Payload: body}
}

func TestAddCoalescesByParticipant(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	writer := &fakeWriter{}
	p := NewActivityProcessor(&fakeSource{}, writer, Options{}, nil)

	require.NoError(t, p.Add(activityJob(t, "a", 1, base.Add(time.Minute))))
	require.NoError(t, p.Add(activityJob(t, "b", 1, base)))
	require.NoError(t, p.Add(activityJob(t, "c", 2, base)))
	require.NoError(t, p.Flush(context.Background()))

	require.Len(t, writer.batches, 1)
	assert.Equal(t, map[int64]time.Time{1: base.Add(time.Minute), 2: base}, writer.batches[0])

	// Nothing pending: no write.
	require.NoError(t, p.Flush(context.Background()))
	assert.Len(t, writer.batches, 1)
}

func TestAddRejectsBadJobs(t *testing.T) {
	p := NewActivityProcessor(&fakeSource{}, &fakeWriter{}, Options{}, nil)

	assert.Error(t, p.Add(&queue.Job{ID: "x", Type: "recording"}))
	assert.Error(t, p.Add(&queue.Job{ID: "y", Type: queue.JobTypeParticipantActivity, Payload: json.RawMessage(`{`)}))
	assert.Error(t, p.Add(activityJob(t, "z", 0, time.Now())))
}

func TestFlushFailureRetriesEveryJob(t *testing.T) {
	source := &fakeSource{}
	writer := &fakeWriter{err: errors.New("db down")}
	p := NewActivityProcessor(source, writer, Options{}, nil)

	now := time.Now()
	require.NoError(t, p.Add(activityJob(t, "a", 1, now)))
	require.NoError(t, p.Add(activityJob(t, "b", 1, now.Add(time.Second))))

	assert.Error(t, p.Flush(context.Background()))
	require.Len(t, source.retried, 2)
	assert.Equal(t, "a", source.retried[0].ID)
	assert.Equal(t, "b", source.retried[1].ID)
}

func TestRunDrainsQueueAndFlushesOnStop(t *testing.T) {
	now := time.Now().UTC()
	source := &fakeSource{jobs: []*queue.Job{
		activityJob(t, "a", 1, now),
		activityJob(t, "b", 2, now),
		activityJob(t, "c", 3, now),
	}}
	writer := &fakeWriter{}
	p := NewActivityProcessor(source, writer, Options{BatchSize: 2, FlushInterval: time.Hour, PollTimeout: time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return source.remaining() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Len(t, writer.merged(), 3)
	assert.GreaterOrEqual(t, len(writer.batches), 2)
}
