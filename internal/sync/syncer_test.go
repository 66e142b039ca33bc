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
	"slices"
	"testing"

	"github.com/mikelane/threadrelay/internal/github"
	"github.com/mikelane/threadrelay/internal/projection"
	"github.com/mikelane/threadrelay/internal/thread"
	"github.com/mikelane/threadrelay/internal/thread/threadtest"
)

const (
	testChannel = "100"
	testRepo    = "acme/widgets"
)

type staticRouter map[string]string

func (r staticRouter) Route(repository string) (string, bool) {
	id, ok := r[repository]
	return id, ok
}

type fakeOrigin struct {
	open    map[string][]*github.PullRequest
	listErr error
	lists   int
}

func (f *fakeOrigin) GetPullRequest(_ context.Context, owner, repo string, number int) (*github.PullRequest, error) {
	return nil, fmt.Errorf("%s/%s#%d not found", owner, repo, number)
}

func (f *fakeOrigin) ListOpenPullRequests(_ context.Context, owner, repo string) ([]*github.PullRequest, error) {
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.open[owner+"/"+repo], nil
}

type recordingRunner struct {
	names []string
}

func (r *recordingRunner) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	r.names = append(r.names, name)
	return fn(ctx)
}

func openPRs(numbers ...int) []*github.PullRequest {
	out := make([]*github.PullRequest, 0, len(numbers))
	for _, n := range numbers {
		out = append(out, &github.PullRequest{
			Number:  n,
			Title:   fmt.Sprintf("Change %d", n),
			HTMLURL: fmt.Sprintf("https://github.com/acme/widgets/pull/%d", n),
			Author:  "octocat",
			State:   "open",
		})
	}
	return out
}

func newTestSyncer(t *testing.T, origin *fakeOrigin, runner Runner, repos ...string) (*Syncer, *threadtest.Gateway) {
	t.Helper()
	gw := threadtest.NewGateway(testChannel)
	resolver, err := thread.NewResolver(gw, 16)
	if err != nil {
		t.Fatalf("NewResolver() unexpected error: %v", err)
	}
	engine := projection.NewEngine(projection.Config{}, gw, resolver, origin, staticRouter{testRepo: testChannel})
	return NewSyncer(origin, engine, runner, func() []string { return repos }), gw
}

func TestSyncRepositoryCreatesMissingThreads(t *testing.T) {
	origin := &fakeOrigin{open: map[string][]*github.PullRequest{testRepo: openPRs(1, 2, 3)}}
	runner := &recordingRunner{}
	syncer, gw := newTestSyncer(t, origin, runner, testRepo)
	gw.AddThread(testChannel, thread.Name(testRepo, 2, "Change 2"))

	report, err := syncer.SyncRepository(context.Background(), testRepo)

	if err != nil {
		t.Fatalf("SyncRepository() unexpected error: %v", err)
	}
	if report.Open != 3 || report.Created != 2 || report.Failed != 0 {
		t.Errorf("report = %+v, want 3 open, 2 created, 0 failed", report)
	}
	if got := len(gw.Threads(testChannel)); got != 3 {
		t.Errorf("channel has %d threads, want 3", got)
	}
	want := []string{"sync acme/widgets#1", "sync acme/widgets#2", "sync acme/widgets#3"}
	if !slices.Equal(runner.names, want) {
		t.Errorf("runner jobs = %q, want %q", runner.names, want)
	}
}

type stoppingRunner struct {
	allowed int
	calls   int
}

func (r *stoppingRunner) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	r.calls++
	if r.calls > r.allowed {
		return context.DeadlineExceeded
	}
	return fn(ctx)
}

func TestSyncRepositoryStopsWhenAJobIsNotRun(t *testing.T) {
	origin := &fakeOrigin{open: map[string][]*github.PullRequest{testRepo: openPRs(1, 2, 3)}}
	runner := &stoppingRunner{allowed: 1}
	syncer, gw := newTestSyncer(t, origin, runner, testRepo)

	report, err := syncer.SyncRepository(context.Background(), testRepo)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("SyncRepository() error = %v, want %v", err, context.DeadlineExceeded)
	}
	if runner.calls != 2 {
		t.Errorf("runner called %d times, want 2", runner.calls)
	}
	if report.Created != 1 {
		t.Errorf("report.Created = %d, want 1", report.Created)
	}
	if got := len(gw.Threads(testChannel)); got != 1 {
		t.Errorf("channel has %d threads, want 1", got)
	}
}

func TestSyncRepositoryIsIdempotent(t *testing.T) {
	origin := &fakeOrigin{open: map[string][]*github.PullRequest{testRepo: openPRs(7, 8)}}
	syncer, gw := newTestSyncer(t, origin, nil, testRepo)

	if _, err := syncer.SyncRepository(context.Background(), testRepo); err != nil {
		t.Fatalf("first SyncRepository() unexpected error: %v", err)
	}
	report, err := syncer.SyncRepository(context.Background(), testRepo)

	if err != nil {
		t.Fatalf("second SyncRepository() unexpected error: %v", err)
	}
	if report.Created != 0 {
		t.Errorf("second sync created %d threads, want 0", report.Created)
	}
	if got := len(gw.Threads(testChannel)); got != 2 {
		t.Errorf("channel has %d threads, want 2", got)
	}
}

func TestSyncRepositoryErrors(t *testing.T) {
	tests := []struct {
		name       string
		repository string
		origin     *fakeOrigin
		wantFailed int
	}{
		{
			name:       "malformed repository",
			repository: "widgets",
			origin:     &fakeOrigin{},
		},
		{
			name:       "origin failure",
			repository: testRepo,
			origin:     &fakeOrigin{listErr: errors.New("boom")},
		},
		{
			name:       "unrouted repository",
			repository: "acme/other",
			origin:     &fakeOrigin{open: map[string][]*github.PullRequest{"acme/other": openPRs(1, 2)}},
			wantFailed: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			syncer, gw := newTestSyncer(t, tt.origin, nil)

			report, err := syncer.SyncRepository(context.Background(), tt.repository)

			if err == nil {
				t.Fatal("SyncRepository() expected error, got nil")
			}
			if report.Failed != tt.wantFailed {
				t.Errorf("Failed = %d, want %d", report.Failed, tt.wantFailed)
			}
			if got := len(gw.Threads(testChannel)); got != 0 {
				t.Errorf("channel has %d threads, want 0", got)
			}
		})
	}
}

func TestSyncRepositoryPlatformFailureIsCounted(t *testing.T) {
	origin := &fakeOrigin{open: map[string][]*github.PullRequest{testRepo: openPRs(1)}}
	syncer, gw := newTestSyncer(t, origin, nil, testRepo)
	gw.CreateErr = fmt.Errorf("create rejected: %w", thread.ErrPlatform)

	report, err := syncer.SyncRepository(context.Background(), testRepo)

	if !errors.Is(err, thread.ErrPlatform) {
		t.Fatalf("SyncRepository() error = %v, want ErrPlatform", err)
	}
	if report.Failed != 1 || report.Created != 0 {
		t.Errorf("report = %+v, want 1 failed", report)
	}
}

func TestSyncAllContinuesPastFailures(t *testing.T) {
	origin := &fakeOrigin{open: map[string][]*github.PullRequest{testRepo: openPRs(5)}}
	syncer, gw := newTestSyncer(t, origin, nil, "broken", testRepo, "ACME/Widgets")

	reports, err := syncer.SyncAll(context.Background())

	if err == nil {
		t.Fatal("SyncAll() expected error for malformed repository, got nil")
	}
	if len(reports) != 2 {
		t.Fatalf("SyncAll() returned %d reports, want 2: %+v", len(reports), reports)
	}
	if got := len(gw.Threads(testChannel)); got != 1 {
		t.Errorf("channel has %d threads, want 1", got)
	}
}

func TestRepositories(t *testing.T) {
	syncer := NewSyncer(nil, nil, nil, func() []string {
		return []string{"b/two", "a/one", "", "A/One"}
	})

	got := syncer.Repositories()

	want := []string{"a/one", "b/two"}
	if len(got) != len(want) {
		t.Fatalf("Repositories() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Repositories()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRepositoriesWithoutSource(t *testing.T) {
	if got := NewSyncer(nil, nil, nil, nil).Repositories(); got != nil {
		t.Errorf("Repositories() = %q, want nil", got)
	}
}
