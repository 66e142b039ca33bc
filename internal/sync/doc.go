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

// Package sync makes sure every open pull request has a thread.
//
// Webhooks are the normal path, but deliveries can be missed while the
// relay is down, and repositories bound after their pull requests were
// opened have no threads at all. A sync lists the open pull requests of a
// repository and resolves (creating when missing) the thread for each. The
// resolver makes this idempotent, so syncing twice creates nothing new.
//
// Key features:
//   - Manual sync of one repository or all known repositories
//   - Periodic sync based on a configurable interval (default: 30 minutes)
//   - Optional sync at startup
//   - Graceful shutdown via context cancellation
//
// Example usage:
//
//	scheduler := sync.NewScheduler(
//		syncer,
//		30*time.Minute, // Sync every 30 minutes
//		true,           // and once at startup
//	)
//	if err := scheduler.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
package sync
