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

package thread

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// DefaultCacheSize is the number of thread handles kept in memory.
const DefaultCacheSize = 512

// Target describes the pull request a thread is resolved for.
type Target struct {
	Repository string
	Title      string
	URL        string
	Author     string
	// Intro replaces the default introductory message posted to a newly
	// created thread.
	Intro  string
	Number int
}

// Resolver finds or creates the thread for a pull request.
type Resolver struct {
	gateway Gateway
	cache   *lru.Cache[string, Handle]
}

// NewResolver creates a Resolver over gateway with an LRU cache of
// cacheSize entries. A non-positive size uses DefaultCacheSize.
func NewResolver(gateway Gateway, cacheSize int) (*Resolver, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, Handle](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create thread cache: %w", err)
	}
	return &Resolver{gateway: gateway, cache: cache}, nil
}

// ResolveOrCreate returns the thread for target in channelID, creating it
// when none exists. The boolean reports whether this call created it.
func (r *Resolver) ResolveOrCreate(ctx context.Context, channelID string, target Target) (Handle, bool, error) {
	logger := log.FromContext(ctx).WithValues("repository", target.Repository, "pr", target.Number)
	prefix := Prefix(target.Repository, target.Number)
	key := cacheKey(channelID, prefix)

	if h, ok := r.cache.Get(key); ok {
		return h, false, nil
	}

	if _, err := r.gateway.Channel(ctx, channelID); err != nil {
		return Handle{}, false, fmt.Errorf("failed to resolve channel %s: %w", channelID, err)
	}

	existing, err := r.scan(ctx, channelID, prefix)
	if err != nil {
		return Handle{}, false, err
	}
	if len(existing) > 0 {
		r.cache.Add(key, existing[0])
		return existing[0], false, nil
	}

	name := Name(target.Repository, target.Number, target.Title)
	created, err := r.gateway.CreateThread(ctx, channelID, name)
	if err != nil {
		return Handle{}, false, fmt.Errorf("failed to create thread %q: %w", name, err)
	}
	logger.Info("Created thread", "thread", created.ID, "name", created.Name)

	winner, err := r.settle(ctx, channelID, prefix, created)
	if err != nil {
		return Handle{}, false, err
	}
	r.cache.Add(key, winner)
	if winner.ID != created.ID {
		return winner, false, nil
	}

	intro := target.Intro
	if intro == "" {
		intro = DefaultIntro(target)
	}
	if err := r.gateway.SendMessage(ctx, created.ID, intro); err != nil {
		return created, true, fmt.Errorf("failed to send introduction to thread %s: %w", created.ID, err)
	}
	return created, true, nil
}

// Lookup returns the existing thread for a pull request without creating
// one.
func (r *Resolver) Lookup(ctx context.Context, channelID, repository string, number int) (Handle, bool, error) {
	prefix := Prefix(repository, number)
	key := cacheKey(channelID, prefix)
	if h, ok := r.cache.Get(key); ok {
		return h, true, nil
	}
	existing, err := r.scan(ctx, channelID, prefix)
	if err != nil {
		return Handle{}, false, err
	}
	if len(existing) == 0 {
		return Handle{}, false, nil
	}
	r.cache.Add(key, existing[0])
	return existing[0], true, nil
}

// Invalidate drops the cached handle for a pull request.
func (r *Resolver) Invalidate(channelID, repository string, number int) {
	r.cache.Remove(cacheKey(channelID, Prefix(repository, number)))
}

func (r *Resolver) scan(ctx context.Context, channelID, prefix string) ([]Handle, error) {
	found, err := r.gateway.FindThreadsByPrefix(ctx, channelID, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads of channel %s: %w", channelID, err)
	}
	matches := found[:0:0]
	for _, h := range found {
		if Matches(h.Name, prefix) {
			matches = append(matches, h)
		}
	}
	SortOldestFirst(matches)
	return matches, nil
}

// settle re-scans after a creation. When another creator raced us, the
// oldest thread is canonical and ours is retired.
func (r *Resolver) settle(ctx context.Context, channelID, prefix string, created Handle) (Handle, error) {
	logger := log.FromContext(ctx)

	matches, err := r.scan(ctx, channelID, prefix)
	if err != nil {
		// The thread exists; a failed re-scan only loses duplicate detection.
		logger.Error(err, "Failed to re-scan after thread creation", "thread", created.ID)
		return created, nil
	}
	if len(matches) == 0 || matches[0].ID == created.ID {
		return created, nil
	}

	winner := matches[0]
	logger.Info("Duplicate thread detected, retiring ours", "winner", winner.ID, "duplicate", created.ID)
	if _, err := r.gateway.ArchiveAndLock(ctx, created.ID, DuplicateName(created.Name)); err != nil {
		logger.Error(err, "Failed to retire duplicate thread", "thread", created.ID)
	}
	return winner, nil
}

// DefaultIntro is the first message of a thread created lazily.
func DefaultIntro(target Target) string {
	msg := fmt.Sprintf("Tracking PR #%d", target.Number)
	if target.Author != "" {
		msg += " by " + target.Author
	}
	if target.URL != "" {
		msg += ": " + target.URL
	}
	return msg
}

func cacheKey(channelID, prefix string) string {
	return channelID + "|" + prefix
}
