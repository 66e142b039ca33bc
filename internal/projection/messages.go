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

package projection

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mikelane/threadrelay/internal/event"
)

const (
	// MaxMessageLength is Discord's message length limit in characters.
	MaxMessageLength = 2000

	// maxBodyExcerpt bounds the pull request description quoted in the
	// opened notice.
	maxBodyExcerpt = 500

	noReviewComment = "No comment provided."
)

// OpenedMessage announces a newly opened pull request.
func OpenedMessage(ev *event.Event) string {
	pr := ev.PullRequest
	var b strings.Builder
	fmt.Fprintf(&b, "PR #%d opened by %s: **%s**", pr.Number, actor(ev), pr.Title)
	if body := strings.TrimSpace(pr.Body); body != "" {
		b.WriteString("\n\n")
		b.WriteString(Truncate(body, maxBodyExcerpt))
	}
	if pr.HTMLURL != "" {
		b.WriteString("\n\n")
		b.WriteString(pr.HTMLURL)
	}
	return Truncate(b.String(), MaxMessageLength)
}

// ClosedMessage announces a merged or closed pull request.
func ClosedMessage(ev *event.Event) string {
	verb := "closed without merging"
	if ev.PullRequest.Merged {
		verb = "merged"
	}
	return Truncate(fmt.Sprintf("PR #%d was %s by %s.", ev.PullRequest.Number, verb, actor(ev)), MaxMessageLength)
}

// ActivityMessage renders review and comment events. It returns an empty
// string for other kinds.
func ActivityMessage(ev *event.Event) string {
	var msg string
	switch ev.Kind {
	case event.KindReviewSubmitted:
		msg = fmt.Sprintf("New review by %s (%s): %s", actor(ev), reviewState(ev), reviewBody(ev))
	case event.KindReviewEdited:
		msg = fmt.Sprintf("Review by %s was edited: %s", actor(ev), reviewBody(ev))
	case event.KindReviewDismissed:
		msg = fmt.Sprintf("Review by %s was dismissed.", actor(ev))
	case event.KindCommentCreated:
		msg = fmt.Sprintf("New comment by %s: %s", actor(ev), commentBody(ev))
	case event.KindCommentEdited:
		msg = fmt.Sprintf("Comment by %s was edited: %s", actor(ev), commentBody(ev))
	case event.KindCommentDeleted:
		msg = fmt.Sprintf("A comment by %s was deleted.", actor(ev))
	}
	return Truncate(msg, MaxMessageLength)
}

// PushMessage renders an environment update notice.
func PushMessage(ev *event.Event) string {
	return Truncate(fmt.Sprintf("Environment update: %s branch of %s has been updated.",
		ev.Push.Branch, ev.Repository), MaxMessageLength)
}

// Truncate cuts s to at most limit characters, marking the cut with an
// ellipsis.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}

func actor(ev *event.Event) string {
	if ev.Actor != "" {
		return ev.Actor
	}
	if ev.PullRequest != nil && ev.PullRequest.Author != "" {
		return ev.PullRequest.Author
	}
	return "someone"
}

func reviewState(ev *event.Event) string {
	if ev.Review == nil || ev.Review.State == "" {
		return "commented"
	}
	return strings.ReplaceAll(strings.ToLower(ev.Review.State), "_", " ")
}

func reviewBody(ev *event.Event) string {
	if ev.Review == nil || strings.TrimSpace(ev.Review.Body) == "" {
		return noReviewComment
	}
	return ev.Review.Body
}

func commentBody(ev *event.Event) string {
	if ev.Comment == nil {
		return ""
	}
	return ev.Comment.Body
}
