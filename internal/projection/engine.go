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

package projection

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikelane/threadrelay/internal/event"
	"github.com/mikelane/threadrelay/internal/github"
	"github.com/mikelane/threadrelay/internal/thread"
)

var (
	// ErrLookup means the destination channel or thread could not be
	// resolved.
	ErrLookup = thread.ErrLookup

	// ErrPlatform means the chat platform rejected an operation.
	ErrPlatform = thread.ErrPlatform

	// ErrOriginFetch means pull request detail could not be fetched from
	// GitHub.
	ErrOriginFetch = errors.New("origin fetch failure")
)

// Outcome summarizes what a projection did.
type Outcome int

const (
	// OutcomeIgnored means the event required no outbound operation.
	OutcomeIgnored Outcome = iota
	// OutcomeProjected means every outbound operation succeeded.
	OutcomeProjected
	// OutcomeFailed means an outbound operation failed; Result.Err says why.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeProjected:
		return "Projected"
	case OutcomeFailed:
		return "Failed"
	default:
		return "Ignored"
	}
}

// Result is the outcome of projecting one event.
type Result struct {
	Err        error
	Repository string
	// Reason explains an ignored event.
	Reason  string
	Thread  thread.Handle
	Kind    event.Kind
	Number  int
	Outcome Outcome
	// Created is set when the projection created the thread.
	Created bool
}

// Router maps a repository to the channel its threads live in.
type Router interface {
	Route(repository string) (channelID string, ok bool)
}

// Config holds Engine settings.
type Config struct {
	// PushChannelID receives environment update notices. When empty they
	// go to the repository's routed channel.
	PushChannelID string
}

// Engine projects events onto chat threads. It is not safe to run
// projections concurrently; callers serialize them.
type Engine struct {
	gateway  thread.Gateway
	origin   github.Client
	resolver *thread.Resolver
	router   Router
	config   Config
}

// NewEngine creates an Engine. origin may be nil, in which case events
// carrying partial pull request detail fail with ErrOriginFetch.
func NewEngine(cfg Config, gateway thread.Gateway, resolver *thread.Resolver, origin github.Client, router Router) *Engine {
	return &Engine{
		gateway:  gateway,
		origin:   origin,
		resolver: resolver,
		router:   router,
		config:   cfg,
	}
}

// Project performs the thread operations for ev.
func (e *Engine) Project(ctx context.Context, ev *event.Event) (res Result) {
	if ev == nil {
		return Result{Outcome: OutcomeIgnored, Reason: "no event"}
	}
	res = Result{Kind: ev.Kind, Repository: ev.Repository}
	if ev.PullRequest != nil {
		res.Number = ev.PullRequest.Number
	}

	defer func() {
		if r := recover(); r != nil {
			res.Outcome = OutcomeFailed
			res.Err = fmt.Errorf("projection of %s panicked: %v", ev.Kind, r)
		}
	}()

	switch {
	case ev.Kind == event.KindUnknown:
		res.Reason = ev.Reason
		return res
	case ev.Kind == event.KindPush:
		return e.projectPush(ctx, ev, res)
	case ev.Kind.PullRequestScoped():
		return e.projectPullRequest(ctx, ev, res)
	default:
		res.Reason = "unhandled kind " + ev.Kind.String()
		return res
	}
}

func (e *Engine) projectPush(ctx context.Context, ev *event.Event, res Result) Result {
	if ev.Push == nil || !ev.Push.Tracked {
		res.Reason = "untracked branch"
		return res
	}

	channelID := e.config.PushChannelID
	if channelID == "" {
		var ok bool
		if channelID, ok = e.route(ev.Repository); !ok {
			res.Reason = "no channel for repository"
			return res
		}
	}

	if err := e.gateway.SendMessage(ctx, channelID, PushMessage(ev)); err != nil {
		return failed(res, fmt.Errorf("failed to send environment update: %w", err))
	}
	res.Outcome = OutcomeProjected
	return res
}

func (e *Engine) projectPullRequest(ctx context.Context, ev *event.Event, res Result) Result {
	if ev.PullRequest == nil || ev.PullRequest.Number <= 0 {
		res.Reason = "missing pull request number"
		return res
	}
	channelID, ok := e.route(ev.Repository)
	if !ok {
		res.Reason = "no channel for repository"
		return res
	}

	if ev.PullRequest.Partial {
		pr, err := e.hydrate(ctx, ev.Repository, ev.PullRequest.Number)
		if err != nil {
			return failed(res, err)
		}
		hydrated := *ev
		hydrated.PullRequest = pr
		ev = &hydrated
	}

	var h thread.Handle
	var created bool
	var err error
	switch ev.Kind {
	case event.KindPullRequestOpened:
		h, created, err = e.opened(ctx, channelID, ev)
	case event.KindPullRequestClosed:
		h, created, err = e.closed(ctx, channelID, ev)
	default:
		h, created, err = e.appendMessage(ctx, channelID, ev, ActivityMessage(ev))
	}
	res.Thread = h
	res.Created = created
	if err != nil {
		return failed(res, err)
	}
	res.Outcome = OutcomeProjected
	return res
}

func (e *Engine) opened(ctx context.Context, channelID string, ev *event.Event) (thread.Handle, bool, error) {
	msg := OpenedMessage(ev)
	target := targetFor(ev.Repository, ev.PullRequest)
	target.Intro = msg

	h, created, err := e.resolver.ResolveOrCreate(ctx, channelID, target)
	if err != nil || created {
		return h, created, e.afterResolve(channelID, ev, err)
	}
	// The thread predates the opened event, for example after a sync.
	return e.send(ctx, channelID, ev, h, msg)
}

func (e *Engine) closed(ctx context.Context, channelID string, ev *event.Event) (thread.Handle, bool, error) {
	h, created, err := e.resolver.ResolveOrCreate(ctx, channelID, targetFor(ev.Repository, ev.PullRequest))
	if err != nil {
		return h, created, e.afterResolve(channelID, ev, err)
	}

	if !h.Closed() {
		if err := e.gateway.SendMessage(ctx, h.ID, ClosedMessage(ev)); err != nil {
			e.resolver.Invalidate(channelID, ev.Repository, ev.PullRequest.Number)
			return h, created, fmt.Errorf("failed to send close notice to thread %s: %w", h.ID, err)
		}
	}

	closed, err := e.gateway.ArchiveAndLock(ctx, h.ID, thread.ClosedName(h.Name))
	e.resolver.Invalidate(channelID, ev.Repository, ev.PullRequest.Number)
	if err != nil {
		return h, created, fmt.Errorf("failed to archive thread %s: %w", h.ID, err)
	}
	return closed, created, nil
}

func (e *Engine) appendMessage(ctx context.Context, channelID string, ev *event.Event, msg string) (thread.Handle, bool, error) {
	h, created, err := e.resolver.ResolveOrCreate(ctx, channelID, targetFor(ev.Repository, ev.PullRequest))
	if err != nil {
		return h, created, e.afterResolve(channelID, ev, err)
	}
	h, _, err = e.send(ctx, channelID, ev, h, msg)
	return h, created, err
}

// send posts msg to h. A closed thread is archived and locked again
// afterwards so that activity never reopens it.
func (e *Engine) send(ctx context.Context, channelID string, ev *event.Event, h thread.Handle, msg string) (thread.Handle, bool, error) {
	if err := e.gateway.SendMessage(ctx, h.ID, msg); err != nil {
		e.resolver.Invalidate(channelID, ev.Repository, ev.PullRequest.Number)
		return h, false, fmt.Errorf("failed to send message to thread %s: %w", h.ID, err)
	}
	if !h.Closed() {
		return h, false, nil
	}
	rearchived, err := e.gateway.ArchiveAndLock(ctx, h.ID, h.Name)
	if err != nil {
		e.resolver.Invalidate(channelID, ev.Repository, ev.PullRequest.Number)
		return h, false, fmt.Errorf("failed to re-archive thread %s: %w", h.ID, err)
	}
	return rearchived, false, nil
}

// afterResolve drops the cached handle when resolution partly failed so
// the next event rescans the channel.
func (e *Engine) afterResolve(channelID string, ev *event.Event, err error) error {
	if err == nil {
		return nil
	}
	e.resolver.Invalidate(channelID, ev.Repository, ev.PullRequest.Number)
	return fmt.Errorf("failed to resolve thread for %s#%d: %w", ev.Repository, ev.PullRequest.Number, err)
}

// EnsureThread makes sure an open pull request has a thread, creating it
// when missing. It is used by repository syncs.
func (e *Engine) EnsureThread(ctx context.Context, repository string, pr *github.PullRequest) (thread.Handle, bool, error) {
	if pr == nil || pr.Number <= 0 {
		return thread.Handle{}, false, errors.New("pull request number is required")
	}
	channelID, ok := e.route(repository)
	if !ok {
		return thread.Handle{}, false, fmt.Errorf("no channel for repository %s: %w", repository, ErrLookup)
	}
	target := thread.Target{
		Repository: repository,
		Number:     pr.Number,
		Title:      pr.Title,
		URL:        pr.HTMLURL,
		Author:     pr.Author,
	}
	h, created, err := e.resolver.ResolveOrCreate(ctx, channelID, target)
	if err != nil {
		e.resolver.Invalidate(channelID, repository, pr.Number)
		return h, created, fmt.Errorf("failed to ensure thread for %s#%d: %w", repository, pr.Number, err)
	}
	return h, created, nil
}

// Channel reports the channel a repository routes to.
func (e *Engine) Channel(repository string) (string, bool) {
	return e.route(repository)
}

func (e *Engine) route(repository string) (string, bool) {
	if e.router == nil || repository == "" {
		return "", false
	}
	channelID, ok := e.router.Route(repository)
	return channelID, ok && channelID != ""
}

func (e *Engine) hydrate(ctx context.Context, repository string, number int) (*event.PullRequest, error) {
	if e.origin == nil {
		return nil, fmt.Errorf("no GitHub client configured for %s#%d: %w", repository, number, ErrOriginFetch)
	}
	owner, repo, err := github.SplitRepository(repository)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOriginFetch, err)
	}
	pr, err := e.origin.GetPullRequest(ctx, owner, repo, number)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOriginFetch, err)
	}
	if pr == nil {
		return nil, fmt.Errorf("empty response for %s#%d: %w", repository, number, ErrOriginFetch)
	}
	return &event.PullRequest{
		Number:  number,
		Title:   pr.Title,
		Body:    pr.Body,
		HTMLURL: pr.HTMLURL,
		Author:  pr.Author,
		Merged:  pr.Merged,
	}, nil
}

func targetFor(repository string, pr *event.PullRequest) thread.Target {
	return thread.Target{
		Repository: repository,
		Number:     pr.Number,
		Title:      pr.Title,
		URL:        pr.HTMLURL,
		Author:     pr.Author,
	}
}

func failed(res Result, err error) Result {
	res.Outcome = OutcomeFailed
	res.Err = err
	return res
}
