// Package worker drains the participant activity queue into the database.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/liewchinchuan/EventStream/pkg/queue"
)

// JobSource is the queue the processor drains.
type JobSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// ActivityWriter applies a batch of heartbeats, keyed by participant.
type ActivityWriter interface {
	TouchMany(ctx context.Context, seen map[int64]time.Time) error
}

// Options tune batching.
type Options struct {
	BatchSize     int
	FlushInterval time.Duration
	PollTimeout   time.Duration
	RetryBackoff  time.Duration
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 500
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = 2 * time.Second
	}
	if o.PollTimeout <= 0 {
		o.PollTimeout = time.Second
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = queue.RetryBackoff
	}
	return o
}

// ActivityProcessor coalesces heartbeat jobs and writes them in batches.
// Several heartbeats from one participant collapse into the latest.
type ActivityProcessor struct {
	source JobSource
	writer ActivityWriter
	opts   Options
	logger *zap.Logger

	pending map[int64]time.Time
	jobs    []*queue.Job
}

// NewActivityProcessor creates an activity processor.
func NewActivityProcessor(source JobSource, writer ActivityWriter, opts Options, logger *zap.Logger) *ActivityProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityProcessor{
		source:  source,
		writer:  writer,
		opts:    opts.withDefaults(),
		logger:  logger,
		pending: make(map[int64]time.Time),
	}
}

// Add decodes one job into the pending batch.
func (p *ActivityProcessor) Add(job *queue.Job) error {
	if job.Type != queue.JobTypeParticipantActivity {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.ActivityPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if payload.ParticipantID <= 0 {
		return fmt.Errorf("invalid participant id: %d", payload.ParticipantID)
	}
	if payload.SeenAt.After(p.pending[payload.ParticipantID]) {
		p.pending[payload.ParticipantID] = payload.SeenAt
	}
	p.jobs = append(p.jobs, job)
	return nil
}

// Flush writes the pending batch. On failure every job in it is retried.
func (p *ActivityProcessor) Flush(ctx context.Context) error {
	if len(p.pending) == 0 {
		return nil
	}
	batch, jobs := p.pending, p.jobs
	p.pending, p.jobs = make(map[int64]time.Time), nil

	if err := p.writer.TouchMany(ctx, batch); err != nil {
		p.logger.Error("activity batch failed", zap.Int("participants", len(batch)), zap.Error(err))
		for _, job := range jobs {
			if reErr := p.source.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.String("job_id", job.ID), zap.Error(reErr))
			}
		}
		return err
	}
	p.logger.Debug("activity batch written", zap.Int("participants", len(batch)), zap.Int("jobs", len(jobs)))
	return nil
}

// Run starts the worker loop: dequeue, batch, flush. It flushes what is
// pending before returning when ctx is done.
func (p *ActivityProcessor) Run(ctx context.Context) error {
	lastFlush := time.Now()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("activity worker stopping")
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = p.Flush(flushCtx)
			cancel()
			return nil
		default:
		}

		job, err := p.source.Dequeue(ctx, p.opts.PollTimeout)
		if err != nil && ctx.Err() == nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			sleep(ctx, p.opts.RetryBackoff)
			continue
		}
		if job != nil {
			if err := p.Add(job); err != nil {
				p.logger.Warn("dropping job", zap.String("job_id", job.ID), zap.Error(err))
			}
		}

		if len(p.pending) >= p.opts.BatchSize || time.Since(lastFlush) >= p.opts.FlushInterval {
			if err := p.Flush(ctx); err != nil {
				sleep(ctx, p.opts.RetryBackoff)
			}
			lastFlush = time.Now()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
