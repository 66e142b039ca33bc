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

package sync

import (
	"context"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Scheduler runs a full sync periodically.
type Scheduler struct {
	syncer    *Syncer
	interval  time.Duration
	onStartup bool
}

// NewScheduler creates a new sync scheduler with the specified interval.
// With onStartup set, the first sync runs immediately instead of after one
// interval.
func NewScheduler(syncer *Syncer, interval time.Duration, onStartup bool) *Scheduler {
	return &Scheduler{
		syncer:    syncer,
		interval:  interval,
		onStartup: onStartup,
	}
}

// Start begins the sync scheduler, running periodically until the context is canceled.
// A failed pass is logged and the scheduler waits for the next tick.
func (s *Scheduler) Start(ctx context.Context) error {
	logger := log.FromContext(ctx).WithName("sync")
	ctx = log.IntoContext(ctx, logger)

	if s.onStartup {
		s.pass(ctx)
	}
	if s.interval <= 0 {
		logger.Info("Periodic sync disabled")
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.pass(ctx)
		}
	}
}

// NeedLeaderElection restricts periodic syncs to the elected replica.
func (s *Scheduler) NeedLeaderElection() bool {
	return true
}

func (s *Scheduler) pass(ctx context.Context) {
	if _, err := s.syncer.SyncAll(ctx); err != nil && ctx.Err() == nil {
		log.FromContext(ctx).Error(err, "sync pass failed")
	}
}
