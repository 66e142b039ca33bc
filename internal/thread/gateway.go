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
	"errors"
)

var (
	// ErrLookup means the destination channel or thread could not be
	// resolved.
	ErrLookup = errors.New("lookup failure")

	// ErrPlatform means the chat platform rejected an operation because of
	// permissions, rate limits, or a transient fault.
	ErrPlatform = errors.New("platform rejection")
)

// Handle is a reference to a discussion thread.
type Handle struct {
	ID        string
	ChannelID string
	Name      string
	Archived  bool
	Locked    bool
}

// Closed reports whether the thread has been closed.
func (h Handle) Closed() bool {
	return IsClosed(h.Name)
}

// Channel is a destination channel.
type Channel struct {
	ID      string
	GuildID string
	Name    string
}

// Gateway is the chat platform surface the relay needs. Implementations
// wrap ErrLookup for unknown channels or threads and ErrPlatform for
// rejected operations.
type Gateway interface {
	// Channel resolves a channel by ID.
	Channel(ctx context.Context, channelID string) (*Channel, error)
	// FindThreadsByPrefix returns active and archived threads of a channel
	// whose names match prefix, closed or not.
	FindThreadsByPrefix(ctx context.Context, channelID, prefix string) ([]Handle, error)
	// CreateThread starts a public thread in a channel.
	CreateThread(ctx context.Context, channelID, name string) (Handle, error)
	// SendMessage posts text to a channel or thread.
	SendMessage(ctx context.Context, channelID, text string) error
	// ArchiveAndLock renames, archives and locks a thread. Applying it to a
	// thread already in that state is a no-op.
	ArchiveAndLock(ctx context.Context, threadID, name string) (Handle, error)
}
