// MIT License
//
// Copyright (c) 2025 Mike Lane
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/time/rate"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mikelane/threadrelay/internal/event"
	"github.com/mikelane/threadrelay/internal/projection"
)

var (
	// ErrQueueFull is returned when a job is submitted to a full queue.
	ErrQueueFull = errors.New("dispatch queue is full")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("dispatch queue already started")
)

// Defaults applied by NewQueue for zero Config fields.
const (
	DefaultQueueSize     = 256
	DefaultRatePerSecond = 5
	DefaultBurst         = 5
	DefaultJobTimeout    = 2 * time.Minute
)

// Projector projects a classified event. *projection.Engine implements it.
type Projector interface {
	Project(ctx context.Context, ev *event.Event) projection.Result
}

// Config holds Queue settings.
type Config struct {
	QueueSize     int
	RatePerSecond float64
	Burst         int
	JobTimeout    time.Duration
}

// Stats is a point-in-time view of the queue.
type Stats struct {
	Pending   int
	Processed uint64
	Failed    uint64
	Dropped   uint64
	Running   bool
}

type job struct {
	logger logr.Logger
	run    func(ctx context.Context) error
	name   string
}

// Queue runs jobs one at a time in submission order.
type Queue struct {
	projector  Projector
	jobs       chan job
	limiter    *rate.Limiter
	jobTimeout time.Duration

	running   atomic.Bool
	processed atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// NewQueue creates a Queue that projects events with projector.
func NewQueue(cfg Config, projector Projector) *Queue {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = DefaultRatePerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultJobTimeout
	}
	return &Queue{
		projector:  projector,
		jobs:       make(chan job, cfg.QueueSize),
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		jobTimeout: cfg.JobTimeout,
	}
}

// Start runs the worker until ctx is canceled. Jobs still queued at that
// point are abandoned.
func (q *Queue) Start(ctx context.Context) error {
	if !q.running.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer q.running.Store(false)

	logger := log.FromContext(ctx).WithName("dispatch")
	logger.Info("Starting dispatch worker", "capacity", cap(q.jobs))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping dispatch worker", "pending", len(q.jobs))
			return nil
		case j := <-q.jobs:
			if err := q.limiter.Wait(ctx); err != nil {
				logger.Info("Stopping dispatch worker", "pending", len(q.jobs)+1)
				return nil
			}
			q.runJob(ctx, j)
		}
	}
}

// NeedLeaderElection reports that every replica runs its own worker.
func (q *Queue) NeedLeaderElection() bool {
	return false
}

// Ready reports whether the worker is running.
func (q *Queue) Ready() bool {
	return q.running.Load()
}

// Stats returns counters describing the queue.
func (q *Queue) Stats() Stats {
	return Stats{
		Pending:   len(q.jobs),
		Processed: q.processed.Load(),
		Failed:    q.failed.Load(),
		Dropped:   q.dropped.Load(),
		Running:   q.running.Load(),
	}
}

// SubmitEvent queues the projection of ev. The returned channel receives
// the Result once the worker has run it. The logger in ctx is used for the
// job; its cancellation is not.
func (q *Queue) SubmitEvent(ctx context.Context, ev *event.Event) (<-chan projection.Result, error) {
	done := make(chan projection.Result, 1)
	err := q.enqueue(job{
		name:   ev.Kind.String(),
		logger: log.FromContext(ctx),
		run: func(ctx context.Context) error {
			res := q.projector.Project(ctx, ev)
			logResult(log.FromContext(ctx), res)
			done <- res
			return res.Err
		},
	})
	if err != nil {
		return nil, err
	}
	return done, nil
}

// Do runs fn on the worker and waits for it to finish or for ctx to be
// canceled. fn keeps running after a cancellation.
func (q *Queue) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	done := make(chan error, 1)
	err := q.enqueue(job{
		name:   name,
		logger: log.FromContext(ctx),
		run: func(ctx context.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("job %s panicked: %v", name, r)
				}
				done <- err
			}()
			return fn(ctx)
		},
	})
	if err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) enqueue(j job) error {
	select {
	case q.jobs <- j:
		return nil
	default:
		q.dropped.Add(1)
		j.logger.Info("Dispatch queue full, dropping job", "job", j.name, "capacity", cap(q.jobs))
		return fmt.Errorf("%w: %s", ErrQueueFull, j.name)
	}
}

func (q *Queue) runJob(ctx context.Context, j job) {
	ctx = log.IntoContext(ctx, j.logger)
	ctx, cancel := context.WithTimeout(ctx, q.jobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			q.failed.Add(1)
			j.logger.Error(fmt.Errorf("%v", r), "Dispatch job panicked", "job", j.name)
		}
	}()

	start := time.Now()
	err := j.run(ctx)
	q.processed.Add(1)
	if err != nil {
		q.failed.Add(1)
	}
	j.logger.V(1).Info("Dispatch job finished", "job", j.name, "duration", time.Since(start), "failed", err != nil)
}

func logResult(logger logr.Logger, res projection.Result) {
	kv := []any{"kind", res.Kind.String(), "repository", res.Repository}
	if res.Number > 0 {
		kv = append(kv, "pr", res.Number)
	}
	switch res.Outcome {
	case projection.OutcomeFailed:
		logger.Error(res.Err, "Failed to project event", kv...)
	case projection.OutcomeProjected:
		logger.Info("Projected event", append(kv, "thread", res.Thread.ID, "created", res.Created)...)
	default:
		logger.V(1).Info("Ignored event", append(kv, "reason", res.Reason)...)
	}
}
