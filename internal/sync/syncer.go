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
	"errors"
	"fmt"
	"sort"
	"strings"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mikelane/threadrelay/internal/github"
	"github.com/mikelane/threadrelay/internal/thread"
)

// Ensurer resolves or creates the thread of an open pull request.
// *projection.Engine implements it.
type Ensurer interface {
	EnsureThread(ctx context.Context, repository string, pr *github.PullRequest) (thread.Handle, bool, error)
}

// Runner executes fn on the goroutine that owns chat operations.
// *dispatch.Queue implements it.
type Runner interface {
	Do(ctx context.Context, name string, fn func(ctx context.Context) error) error
}

// Report summarizes the sync of one repository.
type Report struct {
	Repository string
	Open       int
	Created    int
	Failed     int
}

func (r Report) String() string {
	return fmt.Sprintf("%s: %d open, %d threads created, %d failed", r.Repository, r.Open, r.Created, r.Failed)
}

// Syncer ensures threads exist for open pull requests.
type Syncer struct {
	origin       github.Client
	ensurer      Ensurer
	runner       Runner
	repositories func() []string
}

// NewSyncer creates a Syncer. repositories lists the repositories SyncAll
// covers. runner may be nil, in which case thread operations run on the
// calling goroutine.
func NewSyncer(origin github.Client, ensurer Ensurer, runner Runner, repositories func() []string) *Syncer {
	return &Syncer{
		origin:       origin,
		ensurer:      ensurer,
		runner:       runner,
		repositories: repositories,
	}
}

// SyncRepository ensures a thread for every open pull request of
// repository.
func (s *Syncer) SyncRepository(ctx context.Context, repository string) (Report, error) {
	logger := log.FromContext(ctx).WithValues("repository", repository)
	report := Report{Repository: repository}

	owner, repo, err := github.SplitRepository(repository)
	if err != nil {
		return report, err
	}
	prs, err := s.origin.ListOpenPullRequests(ctx, owner, repo)
	if err != nil {
		return report, fmt.Errorf("failed to list open pull requests of %s: %w", repository, err)
	}
	report.Open = len(prs)

	// Each pull request is its own dispatch job so a large repository
	// never runs into the per-job timeout. A job may outlive a canceled
	// Do, so its results are only read after Do returns successfully.
	var errs []error
	for _, pr := range prs {
		var (
			h       thread.Handle
			ok      bool
			ensured error
		)
		err := s.run(ctx, fmt.Sprintf("sync %s#%d", repository, pr.Number), func(ctx context.Context) error {
			h, ok, ensured = s.ensurer.EnsureThread(ctx, repository, pr)
			return nil
		})
		if err != nil {
			return report, err
		}
		if ensured != nil {
			report.Failed++
			errs = append(errs, ensured)
			continue
		}
		if ok {
			report.Created++
			logger.Info("Created missing thread", "pr", pr.Number, "thread", h.ID)
		}
	}

	logger.Info("Synced repository", "open", report.Open, "created", report.Created, "failed", report.Failed)
	return report, errors.Join(errs...)
}

// SyncAll syncs every known repository. It carries on past failures and
// returns them joined.
func (s *Syncer) SyncAll(ctx context.Context) ([]Report, error) {
	var reports []Report
	var errs []error
	for _, repository := range s.Repositories() {
		report, err := s.SyncRepository(ctx, repository)
		reports = append(reports, report)
		if err != nil {
			errs = append(errs, err)
		}
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
	}
	return reports, errors.Join(errs...)
}

// Repositories returns the repositories SyncAll covers, deduplicated
// case-insensitively and sorted.
func (s *Syncer) Repositories() []string {
	if s.repositories == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, repo := range s.repositories() {
		k := strings.ToLower(repo)
		if _, dup := seen[k]; dup || repo == "" {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, repo)
	}
	sort.Strings(out)
	return out
}

func (s *Syncer) run(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if s.runner == nil {
		return fn(ctx)
	}
	return s.runner.Do(ctx, name, fn)
}
