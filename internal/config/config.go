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

// Package config loads threadrelay settings from a YAML file with
// environment overrides.
//
// Precedence: environment > config file > defaults. Secrets are normally
// supplied through the environment so the file can be committed.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mikelane/threadrelay/internal/binding"
	"github.com/mikelane/threadrelay/internal/github"
)

// Environment variables that override file settings.
const (
	EnvDiscordToken     = "DISCORD_BOT_TOKEN"
	EnvDiscordChannelID = "THREADRELAY_DISCORD_CHANNEL_ID"
	EnvWebhookSecret    = "GITHUB_WEBHOOK_SECRET"
	EnvGitHubToken      = "GITHUB_TOKEN"
	EnvPort             = "PORT"
)

// Config is the complete threadrelay configuration.
type Config struct {
	Listen ListenConfig `yaml:"listen"`

	// AckTimeout bounds how long the webhook waits for its projection
	// before acknowledging.
	AckTimeout time.Duration `yaml:"ack_timeout"`

	// TrackedBranches are the branches whose pushes are announced.
	TrackedBranches []string `yaml:"tracked_branches"`

	Discord DiscordConfig `yaml:"discord"`
	GitHub  GitHubConfig  `yaml:"github"`

	// Bindings routes repositories (owner/name) to channel IDs.
	Bindings map[string]string `yaml:"bindings,omitempty"`

	Kubernetes KubernetesConfig `yaml:"kubernetes"`
	Sync       SyncConfig       `yaml:"sync"`
	Dispatch   DispatchConfig   `yaml:"dispatch"`

	// ThreadCacheSize is the number of thread handles cached in memory.
	ThreadCacheSize int `yaml:"thread_cache_size"`
}

// ListenConfig is the webhook listener address.
type ListenConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// DiscordConfig holds bot settings.
type DiscordConfig struct {
	Token string `yaml:"token,omitempty"`

	// ChannelID is the default channel for repositories without a binding.
	ChannelID string `yaml:"channel_id,omitempty"`

	// PushChannelID receives environment update notices. Empty means the
	// repository's channel.
	PushChannelID string `yaml:"push_channel_id,omitempty"`

	CommandPrefix string `yaml:"command_prefix"`

	// AutoArchiveMinutes is the idle time before Discord archives a thread.
	AutoArchiveMinutes int `yaml:"auto_archive_minutes"`
}

// GitHubConfig holds webhook and API settings.
type GitHubConfig struct {
	WebhookSecret string `yaml:"webhook_secret,omitempty"`
	Token         string `yaml:"token,omitempty"`
	BaseURL       string `yaml:"base_url,omitempty"`

	// Repositories are synced even when they have no explicit binding.
	Repositories []string `yaml:"repositories,omitempty"`
}

// KubernetesConfig enables the RepositoryBinding controller.
type KubernetesConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Namespace      string `yaml:"namespace"`
	LeaderElection bool   `yaml:"leader_election"`
	ProbeAddress   string `yaml:"probe_address"`
	MetricsAddress string `yaml:"metrics_address"`
}

// SyncConfig controls open pull request syncs.
type SyncConfig struct {
	// Interval between periodic syncs. Zero disables them.
	Interval  time.Duration `yaml:"interval"`
	OnStartup bool          `yaml:"on_startup"`
}

// DispatchConfig tunes the outbound queue.
type DispatchConfig struct {
	QueueSize     int           `yaml:"queue_size"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	Burst         int           `yaml:"burst"`
	JobTimeout    time.Duration `yaml:"job_timeout"`
}

// Default returns the configuration used for anything not set.
func Default() *Config {
	return &Config{
		Listen:          ListenConfig{Address: "0.0.0.0", Port: 5000},
		AckTimeout:      60 * time.Second,
		TrackedBranches: []string{"main", "test", "develop"},
		Discord: DiscordConfig{
			CommandPrefix:      "!",
			AutoArchiveMinutes: 1440,
		},
		Kubernetes: KubernetesConfig{
			Namespace:      "threadrelay",
			ProbeAddress:   ":8081",
			MetricsAddress: "0",
		},
		Sync: SyncConfig{
			Interval:  30 * time.Minute,
			OnStartup: true,
		},
		Dispatch: DispatchConfig{
			QueueSize:     256,
			RatePerSecond: 5,
			Burst:         5,
			JobTimeout:    2 * time.Minute,
		},
		ThreadCacheSize: 512,
	}
}

// Load reads the config file at path over the defaults and applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvDiscordToken, &c.Discord.Token)
	set(EnvDiscordChannelID, &c.Discord.ChannelID)
	set(EnvWebhookSecret, &c.GitHub.WebhookSecret)
	set(EnvGitHubToken, &c.GitHub.Token)

	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		c.Listen.Port = port
	}
	return nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	var errs []error

	if c.Discord.Token == "" {
		errs = append(errs, fmt.Errorf("discord token is required (set %s)", EnvDiscordToken))
	}
	if c.Discord.ChannelID == "" && len(c.Bindings) == 0 && !c.Kubernetes.Enabled {
		errs = append(errs, fmt.Errorf("a default channel or at least one binding is required (set %s)", EnvDiscordChannelID))
	}
	if c.Discord.ChannelID != "" && !numeric(c.Discord.ChannelID) {
		errs = append(errs, fmt.Errorf("discord channel_id %q is not a channel ID", c.Discord.ChannelID))
	}
	if c.Discord.PushChannelID != "" && !numeric(c.Discord.PushChannelID) {
		errs = append(errs, fmt.Errorf("discord push_channel_id %q is not a channel ID", c.Discord.PushChannelID))
	}
	for repo, channelID := range c.Bindings {
		if err := binding.Validate(repo, channelID); err != nil {
			errs = append(errs, err)
		}
	}
	for _, repo := range c.GitHub.Repositories {
		if _, _, err := github.SplitRepository(repo); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Kubernetes.Enabled && c.Kubernetes.Namespace == "" {
		errs = append(errs, errors.New("kubernetes namespace is required when kubernetes is enabled"))
	}
	if c.Sync.Interval < 0 {
		errs = append(errs, fmt.Errorf("sync interval %s must not be negative", c.Sync.Interval))
	}
	if c.Dispatch.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("dispatch queue_size must be positive, got %d", c.Dispatch.QueueSize))
	}
	if c.Dispatch.RatePerSecond < 0 || c.Dispatch.Burst < 0 {
		errs = append(errs, errors.New("dispatch rate_per_second and burst must not be negative"))
	}

	return errors.Join(errs...)
}

// ValidateServe checks the settings the webhook server needs on top of
// Validate.
func (c *Config) ValidateServe() error {
	var errs []error
	if err := c.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.GitHub.WebhookSecret == "" {
		errs = append(errs, fmt.Errorf("webhook secret is required (set %s)", EnvWebhookSecret))
	}
	if c.Listen.Port <= 0 || c.Listen.Port > 65535 {
		errs = append(errs, fmt.Errorf("listen port %d is out of range", c.Listen.Port))
	}
	if c.AckTimeout <= 0 {
		errs = append(errs, fmt.Errorf("ack_timeout must be positive, got %s", c.AckTimeout))
	}
	return errors.Join(errs...)
}

func numeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
