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

package binding

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mikelane/threadrelay/internal/github"
)

// Binding associates a repository with a channel.
type Binding struct {
	Repository string
	ChannelID  string
}

// Table is the concurrency-safe repository routing table.
type Table struct {
	mu             sync.RWMutex
	bindings       map[string]Binding
	defaultChannel string
}

// NewTable creates a Table with an optional default channel and initial
// bindings keyed by repository.
func NewTable(defaultChannel string, initial map[string]string) (*Table, error) {
	t := &Table{
		bindings:       make(map[string]Binding, len(initial)),
		defaultChannel: defaultChannel,
	}
	for repo, channelID := range initial {
		if err := t.Set(repo, channelID); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Route returns the channel for repository, falling back to the default
// channel.
func (t *Table) Route(repository string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if b, ok := t.bindings[key(repository)]; ok {
		return b.ChannelID, true
	}
	if t.defaultChannel != "" {
		return t.defaultChannel, true
	}
	return "", false
}

// Lookup returns the explicit binding for repository, ignoring the default
// channel.
func (t *Table) Lookup(repository string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	b, ok := t.bindings[key(repository)]
	return b.ChannelID, ok
}

// Set binds repository to channelID, replacing any previous binding.
func (t *Table) Set(repository, channelID string) error {
	if err := Validate(repository, channelID); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bindings[key(repository)] = Binding{Repository: repository, ChannelID: channelID}
	return nil
}

// Delete removes the binding for repository and reports whether it existed.
func (t *Table) Delete(repository string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := key(repository)
	_, ok := t.bindings[k]
	delete(t.bindings, k)
	return ok
}

// Snapshot returns all explicit bindings sorted by repository.
func (t *Table) Snapshot() []Binding {
	t.mu.RLock()
	out := make([]Binding, 0, len(t.bindings))
	for _, b := range t.bindings {
		out = append(out, b)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return key(out[i].Repository) < key(out[j].Repository)
	})
	return out
}

// DefaultChannel returns the fallback channel, which may be empty.
func (t *Table) DefaultChannel() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.defaultChannel
}

// Validate checks a repository name and channel ID.
func Validate(repository, channelID string) error {
	if _, _, err := github.SplitRepository(repository); err != nil {
		return err
	}
	if channelID == "" {
		return fmt.Errorf("channel ID for %s is empty", repository)
	}
	for _, r := range channelID {
		if r < '0' || r > '9' {
			return fmt.Errorf("invalid channel ID %q for %s: want a numeric snowflake", channelID, repository)
		}
	}
	return nil
}

// GitHub repository names are case-insensitive.
func key(repository string) string {
	return strings.ToLower(repository)
}
