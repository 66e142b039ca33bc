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
	"fmt"
	"strings"
	"time"
)

// Client interface defines the contract for interacting with GitHub API
type Client interface {
	// GetPullRequest retrieves metadata about a pull request
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error)
	// ListOpenPullRequests retrieves all open pull requests of a repository
	ListOpenPullRequests(ctx context.Context, owner, repo string) ([]*PullRequest, error)
}

// PullRequest represents GitHub pull request metadata
type PullRequest struct {
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Title      string
	Body       string
	HTMLURL    string
	Author     string
	State      string // open, closed
	HeadBranch string
	BaseBranch string
	Labels     []string
	Number     int
	Merged     bool
}

// SplitRepository splits an "owner/name" repository into its parts.
func SplitRepository(fullName string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("invalid repository %q: want owner/name", fullName)
	}
	return owner, repo, nil
}
