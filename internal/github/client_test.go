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
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-github/v66/github"
)

func testRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     2,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     50 * time.Millisecond,
		BackoffFactor:  2.0,
	}
}

// TestNewClient tests the creation of a new GitHub client
func TestNewClient(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		opts      []Option
		wantError bool
	}{
		{
			name:      "Valid token creates client",
			token:     "github_pat_test123",
			wantError: false,
		},
		{
			name:      "Empty token creates client",
			token:     "",
			wantError: false,
		},
		{
			name:      "Custom base URL is accepted",
			token:     "github_pat_test123",
			opts:      []Option{WithBaseURL("https://ghe.example.com/api/v3")},
			wantError: false,
		},
		{
			name:      "Nil retry config is rejected",
			token:     "github_pat_test123",
			opts:      []Option{WithRetryConfig(nil)},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.token, tt.opts...)
			if tt.wantError && err == nil {
				t.Errorf("NewClient() expected error, got nil")
			}
			if !tt.wantError && err != nil {
				t.Errorf("NewClient() unexpected error: %v", err)
			}
			if !tt.wantError && client == nil {
				t.Errorf("NewClient() returned nil client")
			}
		})
	}
}

func TestNewClientSendsBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(&github.PullRequest{Number: github.Int(7)}) //nolint:errcheck,gosec
	}))
	defer server.Close()

	client, err := NewClient("secret-token", WithBaseURL(server.URL), WithRetryConfig(testRetryConfig()))
	if err != nil {
		t.Fatalf("NewClient() unexpected error: %v", err)
	}

	if _, err := client.GetPullRequest(context.Background(), "acme", "widgets", 7); err != nil {
		t.Fatalf("GetPullRequest() unexpected error: %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer secret-token")
	}
}

// TestGetPullRequest tests fetching pull request metadata
func TestGetPullRequest(t *testing.T) {
	mergedAt := &github.Timestamp{Time: time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)}

	tests := []struct {
		name       string
		owner      string
		repo       string
		number     int
		mockPR     *github.PullRequest
		wantPR     *PullRequest
		wantError  bool
		statusCode int
	}{
		{
			name:   "Successfully fetches pull request",
			owner:  "acme",
			repo:   "widgets",
			number: 42,
			mockPR: &github.PullRequest{
				Number:  github.Int(42),
				Title:   github.String("feat: add awesome feature"),
				Body:    github.String("This PR adds an awesome feature"),
				HTMLURL: github.String("https://github.com/acme/widgets/pull/42"),
				Head: &github.PullRequestBranch{
					SHA: github.String("abc123"),
					Ref: github.String("feature-branch"),
				},
				Base: &github.PullRequestBranch{
					Ref: github.String("main"),
				},
				User: &github.User{
					Login: github.String("octocat"),
				},
				State:     github.String("open"),
				CreatedAt: &github.Timestamp{Time: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
				UpdatedAt: &github.Timestamp{Time: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
				Labels: []*github.Label{
					{Name: github.String("feature")},
					{Name: github.String("enhancement")},
				},
			},
			wantPR: &PullRequest{
				Number:     42,
				Title:      "feat: add awesome feature",
				Body:       "This PR adds an awesome feature",
				HTMLURL:    "https://github.com/acme/widgets/pull/42",
				BaseBranch: "main",
				HeadBranch: "feature-branch",
				Author:     "octocat",
				State:      "open",
				Labels:     []string{"feature", "enhancement"},
				CreatedAt:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
				UpdatedAt:  time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
			},
			wantError:  false,
			statusCode: http.StatusOK,
		},
		{
			name:   "Reports merged pull request",
			owner:  "acme",
			repo:   "widgets",
			number: 43,
			mockPR: &github.PullRequest{
				Number:   github.Int(43),
				Title:    github.String("fix: flaky test"),
				State:    github.String("closed"),
				MergedAt: mergedAt,
				User:     &github.User{Login: github.String("hubot")},
			},
			wantPR: &PullRequest{
				Number: 43,
				Title:  "fix: flaky test",
				Author: "hubot",
				State:  "closed",
				Merged: true,
			},
			wantError:  false,
			statusCode: http.StatusOK,
		},
		{
			name:       "Handles not found error",
			owner:      "acme",
			repo:       "widgets",
			number:     999,
			wantError:  true,
			statusCode: http.StatusNotFound,
		},
		{
			name:       "Handles rate limit error",
			owner:      "acme",
			repo:       "widgets",
			number:     1,
			wantError:  true,
			statusCode: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				expectedPath := fmt.Sprintf("/repos/%s/%s/pulls/%d", tt.owner, tt.repo, tt.number)
				if r.URL.Path != expectedPath {
					t.Errorf("Expected path %s, got %s", expectedPath, r.URL.Path)
				}

				if tt.statusCode != http.StatusOK {
					w.WriteHeader(tt.statusCode)
					if tt.statusCode == http.StatusForbidden {
						w.Write([]byte(`{"message":"API rate limit exceeded"}`)) //nolint:errcheck,gosec
					} else if tt.statusCode == http.StatusNotFound {
						w.Write([]byte(`{"message":"Not Found"}`)) //nolint:errcheck,gosec
					}
					return
				}

				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(tt.mockPR) //nolint:errcheck,gosec
			}))
			defer server.Close()

			client := &githubClient{
				client:      github.NewClient(nil),
				retryConfig: testRetryConfig(),
			}
			client.client.BaseURL, _ = client.client.BaseURL.Parse(server.URL + "/")

			pr, err := client.GetPullRequest(context.Background(), tt.owner, tt.repo, tt.number)

			if tt.wantError && err == nil {
				t.Errorf("GetPullRequest() expected error, got nil")
			}
			if !tt.wantError && err != nil {
				t.Errorf("GetPullRequest() unexpected error: %v", err)
			}
			if !tt.wantError && pr == nil {
				t.Fatalf("GetPullRequest() returned nil PR")
			}
			if tt.wantPR != nil && pr != nil {
				if pr.Number != tt.wantPR.Number {
					t.Errorf("PR.Number = %d, want %d", pr.Number, tt.wantPR.Number)
				}
				if pr.Title != tt.wantPR.Title {
					t.Errorf("PR.Title = %s, want %s", pr.Title, tt.wantPR.Title)
				}
				if pr.Body != tt.wantPR.Body {
					t.Errorf("PR.Body = %s, want %s", pr.Body, tt.wantPR.Body)
				}
				if pr.HTMLURL != tt.wantPR.HTMLURL {
					t.Errorf("PR.HTMLURL = %s, want %s", pr.HTMLURL, tt.wantPR.HTMLURL)
				}
				if pr.Author != tt.wantPR.Author {
					t.Errorf("PR.Author = %s, want %s", pr.Author, tt.wantPR.Author)
				}
				if pr.Merged != tt.wantPR.Merged {
					t.Errorf("PR.Merged = %v, want %v", pr.Merged, tt.wantPR.Merged)
				}
				if pr.HeadBranch != tt.wantPR.HeadBranch {
					t.Errorf("PR.HeadBranch = %s, want %s", pr.HeadBranch, tt.wantPR.HeadBranch)
				}
				if len(pr.Labels) != len(tt.wantPR.Labels) {
					t.Errorf("PR.Labels length = %d, want %d", len(pr.Labels), len(tt.wantPR.Labels))
				}
				if !pr.CreatedAt.Equal(tt.wantPR.CreatedAt) {
					t.Errorf("PR.CreatedAt = %v, want %v", pr.CreatedAt, tt.wantPR.CreatedAt)
				}
			}
		})
	}
}

// TestListOpenPullRequests tests listing open pull requests across pages
func TestListOpenPullRequests(t *testing.T) {
	tests := []struct {
		name       string
		pages      [][]*github.PullRequest
		wantCount  int
		wantCalls  int32
		wantError  bool
		statusCode int
	}{
		{
			name: "Single page",
			pages: [][]*github.PullRequest{
				{
					{Number: github.Int(1), Title: github.String("one")},
					{Number: github.Int(2), Title: github.String("two")},
				},
			},
			wantCount:  2,
			wantCalls:  1,
			statusCode: http.StatusOK,
		},
		{
			name: "Follows next page links",
			pages: [][]*github.PullRequest{
				{{Number: github.Int(1)}, {Number: github.Int(2)}},
				{{Number: github.Int(3)}},
			},
			wantCount:  3,
			wantCalls:  2,
			statusCode: http.StatusOK,
		},
		{
			name:       "Empty repository",
			pages:      [][]*github.PullRequest{{}},
			wantCount:  0,
			wantCalls:  1,
			statusCode: http.StatusOK,
		},
		{
			name:       "Handles error response",
			wantError:  true,
			wantCalls:  1,
			statusCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			var server *httptest.Server
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				if r.URL.Path != "/repos/acme/widgets/pulls" {
					t.Errorf("Expected path /repos/acme/widgets/pulls, got %s", r.URL.Path)
				}
				if got := r.URL.Query().Get("state"); got != "open" {
					t.Errorf("state = %q, want open", got)
				}
				if got := r.URL.Query().Get("per_page"); got != "100" {
					t.Errorf("per_page = %q, want 100", got)
				}

				if tt.statusCode != http.StatusOK {
					w.WriteHeader(tt.statusCode)
					w.Write([]byte(`{"message":"Not Found"}`)) //nolint:errcheck,gosec
					return
				}

				page := 1
				if r.URL.Query().Get("page") == "2" {
					page = 2
				}
				if page < len(tt.pages) {
					w.Header().Set("Link", fmt.Sprintf(`<%s/repos/acme/widgets/pulls?page=%d>; rel="next"`, server.URL, page+1))
				}
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(tt.pages[page-1]) //nolint:errcheck,gosec
			}))
			defer server.Close()

			client, err := NewClient("", WithBaseURL(server.URL), WithRetryConfig(testRetryConfig()))
			if err != nil {
				t.Fatalf("NewClient() unexpected error: %v", err)
			}

			prs, err := client.ListOpenPullRequests(context.Background(), "acme", "widgets")

			if tt.wantError && err == nil {
				t.Errorf("ListOpenPullRequests() expected error, got nil")
			}
			if !tt.wantError && err != nil {
				t.Errorf("ListOpenPullRequests() unexpected error: %v", err)
			}
			if !tt.wantError && len(prs) != tt.wantCount {
				t.Errorf("ListOpenPullRequests() returned %d PRs, want %d", len(prs), tt.wantCount)
			}
			if got := atomic.LoadInt32(&calls); got != tt.wantCalls {
				t.Errorf("server received %d calls, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestSplitRepository(t *testing.T) {
	tests := []struct {
		input     string
		wantOwner string
		wantRepo  string
		wantError bool
	}{
		{input: "acme/widgets", wantOwner: "acme", wantRepo: "widgets"},
		{input: "acme", wantError: true},
		{input: "/widgets", wantError: true},
		{input: "acme/", wantError: true},
		{input: "acme/widgets/extra", wantError: true},
		{input: "", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			owner, repo, err := SplitRepository(tt.input)
			if tt.wantError {
				if err == nil {
					t.Errorf("SplitRepository(%q) expected error, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("SplitRepository(%q) unexpected error: %v", tt.input, err)
			}
			if owner != tt.wantOwner || repo != tt.wantRepo {
				t.Errorf("SplitRepository(%q) = %q, %q; want %q, %q", tt.input, owner, repo, tt.wantOwner, tt.wantRepo)
			}
		})
	}
}
