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

// Package threadtest provides an in-memory thread.Gateway for tests.
package threadtest

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/mikelane/threadrelay/internal/thread"
)

// Gateway is an in-memory chat platform. The zero value is not usable;
// call NewGateway.
type Gateway struct {
	mu       sync.Mutex
	nextID   uint64
	channels map[string]*thread.Channel
	threads  []*thread.Handle
	messages map[string][]string

	// CreateErr, SendErr and ArchiveErr are returned by the matching
	// operations when set.
	CreateErr  error
	SendErr    error
	ArchiveErr error

	// OnCreate runs inside CreateThread before the new thread is stored,
	// letting tests simulate a concurrent creator.
	OnCreate func(g *Gateway, channelID, name string)

	Creates  int
	Archives int
}

// NewGateway creates a Gateway that knows the given channel IDs.
func NewGateway(channelIDs ...string) *Gateway {
	g := &Gateway{
		nextID:   1000,
		channels: make(map[string]*thread.Channel),
		messages: make(map[string][]string),
	}
	for _, id := range channelIDs {
		g.channels[id] = &thread.Channel{ID: id, GuildID: "guild", Name: "channel-" + id}
	}
	return g
}

// AddThread stores a thread directly, bypassing CreateThread.
func (g *Gateway) AddThread(channelID, name string) thread.Handle {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addThreadLocked(channelID, name)
}

func (g *Gateway) addThreadLocked(channelID, name string) thread.Handle {
	g.nextID++
	h := &thread.Handle{ID: strconv.FormatUint(g.nextID, 10), ChannelID: channelID, Name: name}
	g.threads = append(g.threads, h)
	return *h
}

// Threads returns a snapshot of all threads of a channel.
func (g *Gateway) Threads(channelID string) []thread.Handle {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []thread.Handle
	for _, h := range g.threads {
		if h.ChannelID == channelID {
			out = append(out, *h)
		}
	}
	return out
}

// Thread returns a thread by ID.
func (g *Gateway) Thread(id string) (thread.Handle, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, h := range g.threads {
		if h.ID == id {
			return *h, true
		}
	}
	return thread.Handle{}, false
}

// Messages returns the messages posted to a channel or thread.
func (g *Gateway) Messages(id string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.messages[id]...)
}

func (g *Gateway) Channel(_ context.Context, channelID string) (*thread.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.channels[channelID]
	if !ok {
		return nil, fmt.Errorf("channel %s: %w", channelID, thread.ErrLookup)
	}
	c := *ch
	return &c, nil
}

func (g *Gateway) FindThreadsByPrefix(_ context.Context, channelID, prefix string) ([]thread.Handle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.channels[channelID]; !ok {
		return nil, fmt.Errorf("channel %s: %w", channelID, thread.ErrLookup)
	}
	var out []thread.Handle
	for _, h := range g.threads {
		if h.ChannelID == channelID && thread.Matches(h.Name, prefix) {
			out = append(out, *h)
		}
	}
	return out, nil
}

func (g *Gateway) CreateThread(_ context.Context, channelID, name string) (thread.Handle, error) {
	g.mu.Lock()
	if g.CreateErr != nil {
		g.mu.Unlock()
		return thread.Handle{}, g.CreateErr
	}
	hook := g.OnCreate
	g.mu.Unlock()

	if hook != nil {
		hook(g, channelID, name)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.Creates++
	return g.addThreadLocked(channelID, name), nil
}

func (g *Gateway) SendMessage(_ context.Context, channelID, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.SendErr != nil {
		return g.SendErr
	}
	_, isChannel := g.channels[channelID]
	if !isChannel && g.findLocked(channelID) == nil {
		return fmt.Errorf("channel %s: %w", channelID, thread.ErrLookup)
	}
	g.messages[channelID] = append(g.messages[channelID], text)
	return nil
}

func (g *Gateway) ArchiveAndLock(_ context.Context, threadID, name string) (thread.Handle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ArchiveErr != nil {
		return thread.Handle{}, g.ArchiveErr
	}
	h := g.findLocked(threadID)
	if h == nil {
		return thread.Handle{}, fmt.Errorf("thread %s: %w", threadID, thread.ErrLookup)
	}
	if h.Name == name && h.Archived && h.Locked {
		return *h, nil
	}
	g.Archives++
	h.Name = name
	h.Archived = true
	h.Locked = true
	return *h, nil
}

func (g *Gateway) findLocked(id string) *thread.Handle {
	for _, h := range g.threads {
		if h.ID == id {
			return h
		}
	}
	return nil
}

var _ thread.Gateway = (*Gateway)(nil)
