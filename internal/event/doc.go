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

// Package event classifies raw GitHub webhook payloads.
//
// GitHub delivers pull_request, pull_request_review, issue_comment,
// pull_request_review_comment and push payloads whose shapes overlap: a
// review payload also carries pull_request, and an issue_comment payload
// only links to its pull request through issue.pull_request. The
// Classifier inspects which top-level keys are present, in a fixed order,
// and produces a single Event describing what happened.
//
// Classification is a pure function of the payload bytes and the tracked
// branch set. Payloads that match no rule, or that cannot be decoded, are
// returned as KindUnknown with a Reason and a bounded Excerpt so the caller
// can log them and still acknowledge the delivery.
//
// Decision order (first match wins):
//  1. pull_request + action, without review or comment: opened, closed, merged
//  2. review: submitted, edited, dismissed
//  3. comment linked to a pull request (pull_request or issue.pull_request):
//     created, edited, deleted
//  4. ref: push, actionable only for tracked branches
//  5. anything else: unknown
//
// Example usage:
//
//	classifier := event.NewClassifier(event.DefaultTrackedBranches)
//	ev := classifier.Classify(payload)
//	if ev.Kind == event.KindUnknown {
//		logger.Info("ignoring delivery", "reason", ev.Reason, "excerpt", ev.Excerpt)
//	}
package event
