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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "threadrelay.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvDiscordToken, EnvDiscordChannelID, EnvWebhookSecret, EnvGitHubToken, EnvPort} {
		t.Setenv(key, "")
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// Should return defaults
	if cfg.Listen.Port != 5000 {
		t.Errorf("Listen.Port = %d, want 5000", cfg.Listen.Port)
	}
	if cfg.AckTimeout != 60*time.Second {
		t.Errorf("AckTimeout = %s, want 60s", cfg.AckTimeout)
	}
	if strings.Join(cfg.TrackedBranches, ",") != "main,test,develop" {
		t.Errorf("TrackedBranches = %v", cfg.TrackedBranches)
	}
	if cfg.Discord.CommandPrefix != "!" {
		t.Errorf("CommandPrefix = %q, want %q", cfg.Discord.CommandPrefix, "!")
	}
	if !cfg.Sync.OnStartup || cfg.Sync.Interval != 30*time.Minute {
		t.Errorf("Sync = %+v", cfg.Sync)
	}
}

func TestLoad_ValidConfigFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
listen:
  port: 8080
ack_timeout: 5s
tracked_branches: [main, release]
discord:
  token: "file-token"
  channel_id: "123"
  push_channel_id: "456"
github:
  webhook_secret: "file-secret"
  repositories: [acme/widgets]
bindings:
  acme/gadgets: "789"
sync:
  interval: 1h
  on_startup: false
dispatch:
  queue_size: 10
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Listen.Port != 8080 {
		t.Errorf("Listen.Port = %d, want 8080", cfg.Listen.Port)
	}
	if cfg.Listen.Address != "0.0.0.0" {
		t.Errorf("Listen.Address = %q, want default kept", cfg.Listen.Address)
	}
	if cfg.AckTimeout != 5*time.Second {
		t.Errorf("AckTimeout = %s, want 5s", cfg.AckTimeout)
	}
	if strings.Join(cfg.TrackedBranches, ",") != "main,release" {
		t.Errorf("TrackedBranches = %v", cfg.TrackedBranches)
	}
	if cfg.Discord.Token != "file-token" || cfg.Discord.ChannelID != "123" || cfg.Discord.PushChannelID != "456" {
		t.Errorf("Discord = %+v", cfg.Discord)
	}
	if cfg.Bindings["acme/gadgets"] != "789" {
		t.Errorf("Bindings = %v", cfg.Bindings)
	}
	if cfg.Sync.Interval != time.Hour || cfg.Sync.OnStartup {
		t.Errorf("Sync = %+v", cfg.Sync)
	}
	if cfg.Dispatch.QueueSize != 10 || cfg.Dispatch.Burst != 5 {
		t.Errorf("Dispatch = %+v", cfg.Dispatch)
	}
	if err := cfg.ValidateServe(); err != nil {
		t.Errorf("ValidateServe() unexpected error: %v", err)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
discord:
  token: "file-token"
github:
  webhook_secret: "file-secret"
`)
	t.Setenv(EnvDiscordToken, "env-token")
	t.Setenv(EnvDiscordChannelID, "999")
	t.Setenv(EnvWebhookSecret, "env-secret")
	t.Setenv(EnvGitHubToken, "ghp_env")
	t.Setenv(EnvPort, "9000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Discord.Token != "env-token" {
		t.Errorf("Discord.Token = %q, want env-token", cfg.Discord.Token)
	}
	if cfg.Discord.ChannelID != "999" {
		t.Errorf("Discord.ChannelID = %q, want 999", cfg.Discord.ChannelID)
	}
	if cfg.GitHub.WebhookSecret != "env-secret" || cfg.GitHub.Token != "ghp_env" {
		t.Errorf("GitHub = %+v", cfg.GitHub)
	}
	if cfg.Listen.Port != 9000 {
		t.Errorf("Listen.Port = %d, want 9000", cfg.Listen.Port)
	}
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of missing file should fail")
	}
	if _, err := Load(writeConfig(t, "listen: [not, a, map]")); err == nil {
		t.Error("Load() of malformed file should fail")
	}

	t.Setenv(EnvPort, "http")
	if _, err := Load(""); err == nil {
		t.Error("Load() with non-numeric PORT should fail")
	}
}

func TestValidateServe(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Discord.Token = "token"
		cfg.Discord.ChannelID = "123"
		cfg.GitHub.WebhookSecret = "secret"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.GitHub.WebhookSecret = "" }, wantErr: EnvWebhookSecret},
		{name: "missing token", mutate: func(c *Config) { c.Discord.Token = "" }, wantErr: EnvDiscordToken},
		{name: "no channel or binding", mutate: func(c *Config) { c.Discord.ChannelID = "" }, wantErr: EnvDiscordChannelID},
		{name: "binding instead of channel", mutate: func(c *Config) {
			c.Discord.ChannelID = ""
			c.Bindings = map[string]string{"acme/widgets": "1"}
		}},
		{name: "non-numeric channel", mutate: func(c *Config) { c.Discord.ChannelID = "general" }, wantErr: "not a channel ID"},
		{name: "bad binding", mutate: func(c *Config) { c.Bindings = map[string]string{"widgets": "1"} }, wantErr: "invalid repository"},
		{name: "bad repository", mutate: func(c *Config) { c.GitHub.Repositories = []string{"a/b/c"} }, wantErr: "invalid repository"},
		{name: "port out of range", mutate: func(c *Config) { c.Listen.Port = 70000 }, wantErr: "out of range"},
		{name: "zero ack timeout", mutate: func(c *Config) { c.AckTimeout = 0 }, wantErr: "ack_timeout"},
		{name: "negative sync interval", mutate: func(c *Config) { c.Sync.Interval = -time.Second }, wantErr: "sync interval"},
		{name: "empty queue", mutate: func(c *Config) { c.Dispatch.QueueSize = 0 }, wantErr: "queue_size"},
		{name: "kubernetes without namespace", mutate: func(c *Config) {
			c.Kubernetes.Enabled = true
			c.Kubernetes.Namespace = ""
		}, wantErr: "namespace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.ValidateServe()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidateServe() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidateServe() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_DoesNotRequireWebhookSecret(t *testing.T) {
	cfg := Default()
	cfg.Discord.Token = "token"
	cfg.Discord.ChannelID = "123"

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}
