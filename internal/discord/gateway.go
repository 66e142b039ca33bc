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

package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mikelane/threadrelay/internal/thread"
)

const (
	// DefaultAutoArchiveMinutes is how long an idle thread stays in the
	// active list before Discord archives it.
	DefaultAutoArchiveMinutes = 1440

	archivedPageSize = 100
	maxArchivedPages = 50
)

// API is the part of *discordgo.Session the Gateway uses.
type API interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	GuildThreadsActive(guildID string, options ...discordgo.RequestOption) (*discordgo.ThreadsList, error)
	ThreadsArchived(channelID string, before *time.Time, limit int, options ...discordgo.RequestOption) (*discordgo.ThreadsList, error)
	ThreadStartComplex(channelID string, data *discordgo.ThreadStart, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelEdit(channelID string, data *discordgo.ChannelEdit, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

var _ API = (*discordgo.Session)(nil)

// Gateway implements thread.Gateway over the Discord REST API.
type Gateway struct {
	api         API
	autoArchive int
}

var _ thread.Gateway = (*Gateway)(nil)

// NewGateway creates a Gateway. A non-positive autoArchiveMinutes uses
// DefaultAutoArchiveMinutes.
func NewGateway(api API, autoArchiveMinutes int) *Gateway {
	if autoArchiveMinutes <= 0 {
		autoArchiveMinutes = DefaultAutoArchiveMinutes
	}
	return &Gateway{api: api, autoArchive: autoArchiveMinutes}
}

// Channel resolves a channel by ID.
func (g *Gateway) Channel(ctx context.Context, channelID string) (*thread.Channel, error) {
	ch, err := g.api.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify("get channel "+channelID, err)
	}
	return &thread.Channel{ID: ch.ID, GuildID: ch.GuildID, Name: ch.Name}, nil
}

// FindThreadsByPrefix scans the guild's active threads and the channel's
// archived public threads.
func (g *Gateway) FindThreadsByPrefix(ctx context.Context, channelID, prefix string) ([]thread.Handle, error) {
	ch, err := g.Channel(ctx, channelID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var found []thread.Handle
	collect := func(threads []*discordgo.Channel) {
		for _, t := range threads {
			if t == nil || t.ParentID != channelID || !thread.Matches(t.Name, prefix) {
				continue
			}
			if _, dup := seen[t.ID]; dup {
				continue
			}
			seen[t.ID] = struct{}{}
			found = append(found, handle(t))
		}
	}

	active, err := g.api.GuildThreadsActive(ch.GuildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify("list active threads of guild "+ch.GuildID, err)
	}
	collect(active.Threads)

	var before *time.Time
	for page := 0; page < maxArchivedPages; page++ {
		archived, err := g.api.ThreadsArchived(channelID, before, archivedPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, classify("list archived threads of channel "+channelID, err)
		}
		collect(archived.Threads)
		if !archived.HasMore || len(archived.Threads) == 0 {
			break
		}
		last := archived.Threads[len(archived.Threads)-1]
		if last.ThreadMetadata == nil {
			break
		}
		ts := last.ThreadMetadata.ArchiveTimestamp
		before = &ts
	}

	return found, nil
}

// CreateThread starts a public thread in channelID.
func (g *Gateway) CreateThread(ctx context.Context, channelID, name string) (thread.Handle, error) {
	ch, err := g.api.ThreadStartComplex(channelID, &discordgo.ThreadStart{
		Name:                name,
		AutoArchiveDuration: g.autoArchive,
		Type:                discordgo.ChannelTypeGuildPublicThread,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return thread.Handle{}, classify(fmt.Sprintf("create thread %q in channel %s", name, channelID), err)
	}
	h := handle(ch)
	if h.ChannelID == "" {
		h.ChannelID = channelID
	}
	return h, nil
}

// SendMessage posts text to a channel or thread. An archived thread is
// reopened once and the send retried.
func (g *Gateway) SendMessage(ctx context.Context, channelID, text string) error {
	_, err := g.api.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
	if err != nil && isArchivedThread(err) {
		log.FromContext(ctx).V(1).Info("Reopening archived thread to post", "thread", channelID)
		if _, editErr := g.api.ChannelEdit(channelID, &discordgo.ChannelEdit{Archived: boolPtr(false)}, discordgo.WithContext(ctx)); editErr != nil {
			return classify("reopen thread "+channelID, editErr)
		}
		_, err = g.api.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
	}
	if err != nil {
		return classify("send message to "+channelID, err)
	}
	return nil
}

// ArchiveAndLock renames, archives and locks a thread. A thread already
// archived and locked under name is left untouched.
func (g *Gateway) ArchiveAndLock(ctx context.Context, threadID, name string) (thread.Handle, error) {
	ch, err := g.api.Channel(threadID, discordgo.WithContext(ctx))
	if err != nil {
		return thread.Handle{}, classify("get thread "+threadID, err)
	}
	current := handle(ch)
	if current.Name == name && current.Archived && current.Locked {
		return current, nil
	}

	// Discord rejects renames of archived threads.
	if current.Archived && current.Name != name {
		if _, err := g.api.ChannelEdit(threadID, &discordgo.ChannelEdit{Archived: boolPtr(false)}, discordgo.WithContext(ctx)); err != nil {
			return thread.Handle{}, classify("reopen thread "+threadID, err)
		}
	}

	edited, err := g.api.ChannelEdit(threadID, &discordgo.ChannelEdit{
		Name:     name,
		Archived: boolPtr(true),
		Locked:   boolPtr(true),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return thread.Handle{}, classify("archive thread "+threadID, err)
	}
	return handle(edited), nil
}

func handle(ch *discordgo.Channel) thread.Handle {
	h := thread.Handle{ID: ch.ID, ChannelID: ch.ParentID, Name: ch.Name}
	if ch.ThreadMetadata != nil {
		h.Archived = ch.ThreadMetadata.Archived
		h.Locked = ch.ThreadMetadata.Locked
	}
	return h
}

func boolPtr(b bool) *bool {
	return &b
}
