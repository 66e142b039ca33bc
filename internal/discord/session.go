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
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Intents requested on the gateway websocket. Message content is needed
// to read chat commands.
const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

// NewSession creates a bot session for token.
func NewSession(token string) (*discordgo.Session, error) {
	if token == "" {
		return nil, errors.New("discord bot token is required")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Identify.Intents = Intents
	return s, nil
}

// Connection keeps the websocket open and routes chat messages to
// Commands.
type Connection struct {
	session  *discordgo.Session
	commands *Commands
}

// NewConnection creates a Connection. commands may be nil.
func NewConnection(session *discordgo.Session, commands *Commands) *Connection {
	return &Connection{session: session, commands: commands}
}

// Start opens the websocket and blocks until ctx is canceled.
func (c *Connection) Start(ctx context.Context) error {
	if c.session == nil {
		return errors.New("discord session is required")
	}
	logger := log.FromContext(ctx).WithName("discord")
	ctx = log.IntoContext(ctx, logger)

	c.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		logger.Info("Connected to Discord", "user", r.User.Username, "guilds", len(r.Guilds))
	})
	if c.commands != nil {
		c.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
			c.commands.HandleMessage(ctx, m)
		})
	}

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	<-ctx.Done()
	logger.Info("Closing Discord session")
	return c.session.Close()
}

// NeedLeaderElection keeps a single replica answering chat commands.
func (c *Connection) NeedLeaderElection() bool {
	return true
}
