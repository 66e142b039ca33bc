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

// Package github provides the GitHub API client threadrelay uses to fill in
// pull request detail that webhook payloads omit.
//
// issue_comment payloads only link to their pull request, so the relay
// fetches the pull request before it can name the thread. The sync command
// lists open pull requests to make sure each one has a thread.
//
// Key features:
//   - Fetch a single pull request (title, body, author, merged state)
//   - List open pull requests with pagination
//   - Retry logic with exponential backoff and jitter
//   - Rate limit handling based on GitHub's reset headers
//
// Authentication:
//
// The client uses a personal access token (or installation token) through
// an oauth2 static token source. Read access to pull requests is enough.
// Without a token the client falls back to unauthenticated requests, which
// GitHub limits to 60 per hour.
//
// Example usage:
//
//	client, err := github.NewClient(token)
//	if err != nil {
//	    return err
//	}
//	pr, err := client.GetPullRequest(ctx, "acme", "widgets", 42)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("PR #%d: %s\n", pr.Number, pr.Title)
//
// Retry Logic:
//
// Failed requests are retried for 429, 502, 503, 504 and rate-limit 403
// responses:
//   - Initial backoff: 100 milliseconds
//   - Maximum backoff: 30 seconds
//   - Maximum retries: 3
//
// When GitHub reports the primary rate limit as exhausted, the client waits
// until the reset time instead, provided it falls within the maximum backoff.
package github
