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
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mikelane/threadrelay/internal/binding"
	"github.com/mikelane/threadrelay/internal/dispatch"
	"github.com/mikelane/threadrelay/internal/github"
	"github.com/mikelane/threadrelay/internal/projection"
	prsync "github.com/mikelane/threadrelay/internal/sync"
	"github.com/mikelane/threadrelay/internal/thread"
)

// DefaultPrefix starts every chat command.
const DefaultPrefix = "!"

const helpText = "Commands:\n" +
	"`%[1]shelp` shows this message\n" +
	"`%[1]sstatus` reports queue and binding state\n" +
	"`%[1]ssync [owner/name]` creates missing threads for open pull requests\n" +
	"`%[1]sprs [owner/name]` lists open pull requests\n" +
	"`%[1]sbind owner/name <channel>` routes a repository to a channel\n" +
	"`%[1]sunbind owner/name` removes a repository route"

// Runner executes fn on the dispatch worker.
type Runner interface {
	Do(ctx context.Context, name string, fn func(ctx context.Context) error) error
}

// StatsSource reports dispatch queue statistics.
type StatsSource interface {
	Stats() dispatch.Stats
}

// Syncer creates missing pull request threads.
type Syncer interface {
	SyncRepository(ctx context.Context, repository string) (prsync.Report, error)
	SyncAll(ctx context.Context) ([]prsync.Report, error)
	Repositories() []string
}

// Bindings changes repository routes.
type Bindings interface {
	Bind(ctx context.Context, repository, channelID string) error
	Unbind(ctx context.Context, repository string) error
	Table() *binding.Table
}

// CommandsOptions wires the collaborators of Commands. Origin, Syncer and
// Bindings may be nil; the commands that need them then reply that they
// are unavailable.
type CommandsOptions struct {
	Runner   Runner
	Gateway  thread.Gateway
	Stats    StatsSource
	Syncer   Syncer
	Bindings Bindings
	Origin   github.Client
	Prefix   string
}

// Commands handles chat commands.
type Commands struct {
	runner   Runner
	gateway  thread.Gateway
	stats    StatsSource
	syncer   Syncer
	bindings Bindings
	origin   github.Client
	started  time.Time
	prefix   string
}

// NewCommands creates the chat command handler.
func NewCommands(opts CommandsOptions) *Commands {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Commands{
		runner:   opts.Runner,
		gateway:  opts.Gateway,
		stats:    opts.Stats,
		syncer:   opts.Syncer,
		bindings: opts.Bindings,
		origin:   opts.Origin,
		started:  time.Now(),
		prefix:   prefix,
	}
}

// HandleMessage answers a command posted to Discord. Messages from bots
// and messages that are not commands are ignored.
func (c *Commands) HandleMessage(ctx context.Context, m *discordgo.MessageCreate) {
	if m == nil || m.Message == nil || m.Author == nil || m.Author.Bot {
		return
	}
	logger := log.FromContext(ctx).WithValues("channel", m.ChannelID, "user", m.Author.Username)
	ctx = log.IntoContext(ctx, logger)

	reply, ok := c.Handle(ctx, m.Content)
	if !ok {
		return
	}
	reply = projection.Truncate(reply, projection.MaxMessageLength)

	send := func(ctx context.Context) error {
		return c.gateway.SendMessage(ctx, m.ChannelID, reply)
	}
	var err error
	if c.runner != nil {
		err = c.runner.Do(ctx, "reply", send)
	} else {
		err = send(ctx)
	}
	if err != nil {
		logger.Error(err, "Failed to reply to command")
	}
}

// Handle runs the command in content and returns the reply. The boolean
// is false when content is not a command.
func (c *Commands) Handle(ctx context.Context, content string) (string, bool) {
	name, args, ok := c.parse(content)
	if !ok {
		return "", false
	}
	log.FromContext(ctx).V(1).Info("Handling command", "command", name, "args", args)

	switch name {
	case "help":
		return fmt.Sprintf(helpText, c.prefix), true
	case "status":
		return c.status(), true
	case "sync":
		return c.sync(ctx, args), true
	case "prs":
		return c.pullRequests(ctx, args), true
	case "bind":
		return c.bind(ctx, args), true
	case "unbind":
		return c.unbind(ctx, args), true
	default:
		return fmt.Sprintf("Unknown command `%s%s`. Try `%shelp`.", c.prefix, name, c.prefix), true
	}
}

func (c *Commands) parse(content string) (string, []string, bool) {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, c.prefix) {
		return "", nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(content, c.prefix))
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

func (c *Commands) status() string {
	var b strings.Builder
	fmt.Fprintf(&b, "threadrelay up %s.", time.Since(c.started).Truncate(time.Second))
	if c.stats != nil {
		s := c.stats.Stats()
		state := "stopped"
		if s.Running {
			state = "running"
		}
		fmt.Fprintf(&b, "\nQueue %s: %d pending, %d processed, %d failed, %d dropped.",
			state, s.Pending, s.Processed, s.Failed, s.Dropped)
	}
	if c.bindings != nil {
		table := c.bindings.Table()
		bound := table.Snapshot()
		fmt.Fprintf(&b, "\nBindings: %d.", len(bound))
		for _, bd := range bound {
			fmt.Fprintf(&b, "\n%s -> <#%s>", bd.Repository, bd.ChannelID)
		}
		if def := table.DefaultChannel(); def != "" {
			fmt.Fprintf(&b, "\nDefault channel: <#%s>", def)
		}
	}
	return b.String()
}

func (c *Commands) sync(ctx context.Context, args []string) string {
	if c.syncer == nil {
		return "Sync is not available."
	}
	if len(args) > 0 {
		report, err := c.syncer.SyncRepository(ctx, args[0])
		if err != nil {
			return fmt.Sprintf("Sync of %s failed: %v", args[0], err)
		}
		return "Synced " + report.String() + "."
	}

	reports, err := c.syncer.SyncAll(ctx)
	if len(reports) == 0 && err == nil {
		return "No repositories to sync."
	}
	lines := make([]string, 0, len(reports)+1)
	for _, r := range reports {
		lines = append(lines, r.String())
	}
	if err != nil {
		lines = append(lines, fmt.Sprintf("Errors: %v", err))
	}
	return strings.Join(lines, "\n")
}

func (c *Commands) pullRequests(ctx context.Context, args []string) string {
	if c.origin == nil {
		return "GitHub access is not configured."
	}
	repos := args
	if len(repos) == 0 && c.syncer != nil {
		repos = c.syncer.Repositories()
	}
	if len(repos) == 0 {
		return fmt.Sprintf("No repositories configured. Usage: `%sprs owner/name`", c.prefix)
	}

	var b strings.Builder
	for i, repository := range repos {
		if i > 0 {
			b.WriteString("\n\n")
		}
		owner, repo, err := github.SplitRepository(repository)
		if err != nil {
			fmt.Fprintf(&b, "%v", err)
			continue
		}
		prs, err := c.origin.ListOpenPullRequests(ctx, owner, repo)
		if err != nil {
			fmt.Fprintf(&b, "Could not list pull requests of %s.", repository)
			log.FromContext(ctx).Error(err, "Failed to list pull requests", "repository", repository)
			continue
		}
		if len(prs) == 0 {
			fmt.Fprintf(&b, "No open pull requests in %s.", repository)
			continue
		}
		fmt.Fprintf(&b, "Open pull requests in %s:", repository)
		for _, pr := range prs {
			fmt.Fprintf(&b, "\n#%d %s (%s) <%s>", pr.Number, pr.Title, pr.Author, pr.HTMLURL)
		}
	}
	return b.String()
}

func (c *Commands) bind(ctx context.Context, args []string) string {
	if c.bindings == nil {
		return "Bindings cannot be changed."
	}
	if len(args) != 2 {
		return fmt.Sprintf("Usage: `%sbind owner/name <channel>`", c.prefix)
	}
	repository, channelID := args[0], parseChannel(args[1])
	if err := c.bindings.Bind(ctx, repository, channelID); err != nil {
		return fmt.Sprintf("Could not bind %s: %v", repository, err)
	}
	return fmt.Sprintf("Bound %s to <#%s>.", repository, channelID)
}

func (c *Commands) unbind(ctx context.Context, args []string) string {
	if c.bindings == nil {
		return "Bindings cannot be changed."
	}
	if len(args) != 1 {
		return fmt.Sprintf("Usage: `%sunbind owner/name`", c.prefix)
	}
	if err := c.bindings.Unbind(ctx, args[0]); err != nil {
		return fmt.Sprintf("Could not unbind %s: %v", args[0], err)
	}
	return fmt.Sprintf("Unbound %s.", args[0])
}

// parseChannel accepts a raw snowflake or a channel mention like <#123>.
func parseChannel(arg string) string {
	return strings.TrimSuffix(strings.TrimPrefix(arg, "<#"), ">")
}

