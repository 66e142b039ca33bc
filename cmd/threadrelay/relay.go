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

package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/mikelane/threadrelay/internal/binding"
	"github.com/mikelane/threadrelay/internal/config"
	"github.com/mikelane/threadrelay/internal/discord"
	"github.com/mikelane/threadrelay/internal/dispatch"
	"github.com/mikelane/threadrelay/internal/event"
	"github.com/mikelane/threadrelay/internal/github"
	"github.com/mikelane/threadrelay/internal/projection"
	prsync "github.com/mikelane/threadrelay/internal/sync"
	"github.com/mikelane/threadrelay/internal/thread"
	"github.com/mikelane/threadrelay/internal/webhook"
)

// relay holds the wired components shared by serve and sync.
type relay struct {
	cfg      *config.Config
	table    *binding.Table
	bindings *binding.Service
	session  *discordgo.Session
	gateway  thread.Gateway
	origin   github.Client
	engine   *projection.Engine
	queue    *dispatch.Queue
	syncer   *prsync.Syncer
}

// newRelay wires the components for cfg. store may be nil when bindings
// are not persisted. gateway may be nil, in which case a Discord session
// is created from the configured token.
func newRelay(cfg *config.Config, store *binding.Store, gateway thread.Gateway) (*relay, error) {
	table, err := binding.NewTable(cfg.Discord.ChannelID, cfg.Bindings)
	if err != nil {
		return nil, fmt.Errorf("invalid bindings: %w", err)
	}

	r := &relay{
		cfg:      cfg,
		table:    table,
		bindings: binding.NewService(table, store),
		gateway:  gateway,
	}

	if r.gateway == nil {
		session, err := discord.NewSession(cfg.Discord.Token)
		if err != nil {
			return nil, err
		}
		r.session = session
		r.gateway = discord.NewGateway(session, cfg.Discord.AutoArchiveMinutes)
	}

	var opts []github.Option
	if cfg.GitHub.BaseURL != "" {
		opts = append(opts, github.WithBaseURL(cfg.GitHub.BaseURL))
	}
	r.origin, err = github.NewClient(cfg.GitHub.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}

	resolver, err := thread.NewResolver(r.gateway, cfg.ThreadCacheSize)
	if err != nil {
		return nil, err
	}
	r.engine = projection.NewEngine(
		projection.Config{PushChannelID: cfg.Discord.PushChannelID},
		r.gateway, resolver, r.origin, table,
	)
	r.queue = dispatch.NewQueue(dispatch.Config{
		QueueSize:     cfg.Dispatch.QueueSize,
		RatePerSecond: cfg.Dispatch.RatePerSecond,
		Burst:         cfg.Dispatch.Burst,
		JobTimeout:    cfg.Dispatch.JobTimeout,
	}, r.engine)
	r.syncer = prsync.NewSyncer(r.origin, r.engine, r.queue, r.repositories)

	return r, nil
}

// repositories lists configured and bound repositories.
func (r *relay) repositories() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(repo string) {
		k := strings.ToLower(repo)
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, repo)
	}
	for _, repo := range r.cfg.GitHub.Repositories {
		add(repo)
	}
	for _, b := range r.table.Snapshot() {
		add(b.Repository)
	}
	sort.Strings(out)
	return out
}

func (r *relay) webhookServer() *webhook.Server {
	return webhook.NewServer(webhook.Options{
		Ready:      r.queue.Ready,
		Address:    r.cfg.Listen.Address,
		Port:       r.cfg.Listen.Port,
		Secret:     r.cfg.GitHub.WebhookSecret,
		AckTimeout: r.cfg.AckTimeout,
	}, event.NewClassifier(r.cfg.TrackedBranches), r.queue)
}

func (r *relay) commands() *discord.Commands {
	return discord.NewCommands(discord.CommandsOptions{
		Runner:   r.queue,
		Gateway:  r.gateway,
		Stats:    r.queue,
		Syncer:   r.syncer,
		Bindings: r.bindings,
		Origin:   r.origin,
		Prefix:   r.cfg.Discord.CommandPrefix,
	})
}
