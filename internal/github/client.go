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

package github

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

// RetryConfig defines the retry behavior for API calls
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
}

// DefaultRetryConfig returns the retry behavior used when none is supplied.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
	}
}

// Option configures the client built by NewClient.
type Option func(*githubClient) error

// WithBaseURL points the client at a different API root, such as a GitHub
// Enterprise installation or a test server.
func WithBaseURL(raw string) Option {
	return func(c *githubClient) error {
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid base URL %q: %w", raw, err)
		}
		c.client.BaseURL = u
		return nil
	}
}

// WithRetryConfig overrides the default retry behavior.
func WithRetryConfig(cfg *RetryConfig) Option {
	return func(c *githubClient) error {
		if cfg == nil {
			return errors.New("retry config must not be nil")
		}
		c.retryConfig = cfg
		return nil
	}
}

// githubClient implements the Client interface using go-github
type githubClient struct {
	client      *github.Client
	retryConfig *RetryConfig
}

// NewClient creates a new GitHub client with the provided token
func NewClient(token string, opts ...Option) (Client, error) {
	var httpClient *http.Client
	if token != "" {
		httpClient = oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		))
	}

	c := &githubClient{
		client:      github.NewClient(httpClient),
		retryConfig: DefaultRetryConfig(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// GetPullRequest retrieves metadata about a pull request
func (c *githubClient) GetPullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error) {
	var pr *github.PullRequest
	var err error

	err = c.executeWithRetry(ctx, func() error {
		pr, _, err = c.client.PullRequests.Get(ctx, owner, repo, number)
		return err
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get pull request %s/%s#%d: %w", owner, repo, number, err)
	}

	return c.convertPullRequest(pr), nil
}

// ListOpenPullRequests retrieves all open pull requests of a repository
func (c *githubClient) ListOpenPullRequests(ctx context.Context, owner, repo string) ([]*PullRequest, error) {
	all := []*PullRequest{}
	opts := &github.PullRequestListOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		var prs []*github.PullRequest
		var resp *github.Response
		var err error

		err = c.executeWithRetry(ctx, func() error {
			prs, resp, err = c.client.PullRequests.List(ctx, owner, repo, opts)
			return err
		})

		if err != nil {
			return nil, fmt.Errorf("failed to list pull requests of %s/%s: %w", owner, repo, err)
		}

		for _, pr := range prs {
			if converted := c.convertPullRequest(pr); converted != nil {
				all = append(all, converted)
			}
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// executeWithRetry executes an operation with exponential backoff retry
func (c *githubClient) executeWithRetry(ctx context.Context, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			return nil
		}

		if !c.isRetryableError(lastErr) {
			return lastErr
		}

		if attempt == c.retryConfig.MaxRetries {
			break
		}

		backoff := c.retryDelay(lastErr, attempt)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("operation failed after %d retries: %w", c.retryConfig.MaxRetries, lastErr)
}

// isRetryableError determines if an error should trigger a retry
func (c *githubClient) isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return true
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		case http.StatusForbidden:
			if strings.Contains(ghErr.Message, "rate limit") {
				return true
			}
		}
	}

	return false
}

// retryDelay picks the wait before the next attempt. A server supplied wait
// wins when it fits within MaxBackoff.
func (c *githubClient) retryDelay(err error, attempt int) time.Duration {
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) && abuseErr.RetryAfter != nil &&
		*abuseErr.RetryAfter > 0 && *abuseErr.RetryAfter <= c.retryConfig.MaxBackoff {
		return *abuseErr.RetryAfter
	}

	var resp *http.Response
	var rateErr *github.RateLimitError
	var ghErr *github.ErrorResponse
	switch {
	case errors.As(err, &rateErr):
		resp = rateErr.Response
	case errors.As(err, &ghErr):
		resp = ghErr.Response
	}
	if limited, wait := c.checkRateLimit(resp); limited && wait <= c.retryConfig.MaxBackoff {
		return wait
	}

	return c.calculateBackoff(attempt)
}

// calculateBackoff calculates the backoff duration for a retry attempt
func (c *githubClient) calculateBackoff(attempt int) time.Duration {
	factor := c.retryConfig.BackoffFactor
	if factor <= 0 {
		factor = 2.0
	}
	base := float64(c.retryConfig.InitialBackoff)
	for i := 0; i < attempt; i++ {
		base *= factor
	}

	// ±20% jitter
	jitter := (rand.Float64() * 0.4) - 0.2 //nolint:gosec // jitter does not need crypto randomness
	backoff := time.Duration(base * (1 + jitter))

	if backoff > c.retryConfig.MaxBackoff {
		backoff = c.retryConfig.MaxBackoff
	}

	return backoff
}

// checkRateLimit checks response headers for rate limit information
func (c *githubClient) checkRateLimit(resp *http.Response) (bool, time.Duration) {
	if resp == nil {
		return false, 0
	}

	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining != "" {
		if rem, err := strconv.Atoi(remaining); err == nil && rem == 0 {
			resetStr := resp.Header.Get("X-RateLimit-Reset")
			if resetStr != "" {
				if resetTime, err := strconv.ParseInt(resetStr, 10, 64); err == nil {
					waitTime := time.Until(time.Unix(resetTime, 0))
					if waitTime > 0 {
						return true, waitTime
					}
				}
			}
		}
	}

	// Secondary rate limit (403 without rate limit headers)
	if resp.StatusCode == http.StatusForbidden {
		return true, 60 * time.Second
	}

	return false, 0
}

// convertPullRequest converts a GitHub PR to our domain model
func (c *githubClient) convertPullRequest(pr *github.PullRequest) *PullRequest {
	if pr == nil {
		return nil
	}

	result := &PullRequest{
		Number:    pr.GetNumber(),
		Title:     pr.GetTitle(),
		Body:      pr.GetBody(),
		HTMLURL:   pr.GetHTMLURL(),
		State:     pr.GetState(),
		Merged:    pr.GetMerged() || pr.MergedAt != nil,
		CreatedAt: pr.GetCreatedAt().Time,
		UpdatedAt: pr.GetUpdatedAt().Time,
	}

	if pr.Head != nil {
		result.HeadBranch = pr.Head.GetRef()
	}

	if pr.Base != nil {
		result.BaseBranch = pr.Base.GetRef()
	}

	if pr.User != nil {
		result.Author = pr.User.GetLogin()
	}

	for _, label := range pr.Labels {
		if label != nil {
			result.Labels = append(result.Labels, label.GetName())
		}
	}

	return result
}
