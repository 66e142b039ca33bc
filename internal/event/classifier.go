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

package event

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// MaxExcerptLength bounds Event.Excerpt in bytes.
const MaxExcerptLength = 256

// Minimal payload shapes. Pointer fields distinguish an absent (or null)
// key from an empty object, which is what classification depends on.
type ghUser struct {
	Login string `json:"login"`
}

type ghRepository struct {
	FullName string `json:"full_name"`
	Name     string `json:"name"`
}

type ghPullRequest struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	HTMLURL string `json:"html_url"`
	User    ghUser `json:"user"`
	Number  int    `json:"number"`
	Merged  bool   `json:"merged"`
}

type ghReview struct {
	State   string `json:"state"`
	Body    string `json:"body"`
	HTMLURL string `json:"html_url"`
	User    ghUser `json:"user"`
}

type ghComment struct {
	Body    string `json:"body"`
	HTMLURL string `json:"html_url"`
	User    ghUser `json:"user"`
}

type ghIssuePullRequestLink struct {
	HTMLURL string `json:"html_url"`
}

type ghIssue struct {
	PullRequest *ghIssuePullRequestLink `json:"pull_request"`
	Title       string                  `json:"title"`
	Body        string                  `json:"body"`
	HTMLURL     string                  `json:"html_url"`
	User        ghUser                  `json:"user"`
	Number      int                     `json:"number"`
}

type ghPusher struct {
	Name string `json:"name"`
}

type ghPayload struct {
	PullRequest *ghPullRequest    `json:"pull_request"`
	Review      *ghReview         `json:"review"`
	Comment     *ghComment        `json:"comment"`
	Issue       *ghIssue          `json:"issue"`
	Repository  *ghRepository     `json:"repository"`
	Ref         *string           `json:"ref"`
	Pusher      *ghPusher         `json:"pusher"`
	Action      string            `json:"action"`
	Compare     string            `json:"compare"`
	Sender      ghUser            `json:"sender"`
	Number      int               `json:"number"`
	Commits     []json.RawMessage `json:"commits"`
}

// Classifier turns webhook payloads into Events.
type Classifier struct {
	tracked map[string]struct{}
}

// NewClassifier creates a Classifier that treats pushes to the given
// branches as actionable. An empty list falls back to
// DefaultTrackedBranches.
func NewClassifier(trackedBranches []string) *Classifier {
	if len(trackedBranches) == 0 {
		trackedBranches = DefaultTrackedBranches
	}
	tracked := make(map[string]struct{}, len(trackedBranches))
	for _, b := range trackedBranches {
		tracked[b] = struct{}{}
	}
	return &Classifier{tracked: tracked}
}

// Classify decodes and classifies a raw payload. It never fails: anything
// it cannot place becomes KindUnknown with a Reason.
func (c *Classifier) Classify(payload []byte) *Event {
	var p ghPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return unknown(payload, fmt.Sprintf("undecodable payload: %v", err))
	}

	var ev *Event
	switch {
	case p.PullRequest != nil && p.Action != "" && p.Review == nil && p.Comment == nil:
		ev = classifyPullRequest(&p)
	case p.Review != nil:
		ev = classifyReview(&p)
	case p.Comment != nil && (p.PullRequest != nil || (p.Issue != nil && p.Issue.PullRequest != nil)):
		ev = classifyComment(&p)
	case p.Ref != nil:
		ev = c.classifyPush(&p)
	case p.Comment != nil:
		ev = &Event{Reason: "comment on a plain issue"}
	default:
		ev = &Event{Reason: "unrecognized payload shape"}
	}

	if ev.Kind != KindUnknown && ev.Repository == "" {
		ev = &Event{Reason: "payload has no repository"}
	}
	if ev.Kind.PullRequestScoped() && (ev.PullRequest == nil || ev.PullRequest.Number <= 0) {
		ev = &Event{Reason: "payload has no pull request number"}
	}
	if ev.Kind == KindUnknown {
		ev.Action = p.Action
		ev.Excerpt = excerpt(payload)
	}
	return ev
}

func classifyPullRequest(p *ghPayload) *Event {
	ev := base(p)
	ev.PullRequest = fromPullRequest(p.PullRequest, p.Number)
	switch p.Action {
	case "opened":
		ev.Kind = KindPullRequestOpened
		if ev.Actor == "" {
			ev.Actor = ev.PullRequest.Author
		}
	case "closed":
		ev.Kind = KindPullRequestClosed
	case "merged":
		ev.Kind = KindPullRequestClosed
		ev.PullRequest.Merged = true
	default:
		return &Event{Reason: fmt.Sprintf("unsupported pull_request action %q", p.Action)}
	}
	return ev
}

func classifyReview(p *ghPayload) *Event {
	if p.PullRequest == nil {
		return &Event{Reason: "review without pull_request"}
	}
	ev := base(p)
	ev.PullRequest = fromPullRequest(p.PullRequest, p.Number)
	ev.Review = &Review{
		State:   p.Review.State,
		Body:    p.Review.Body,
		HTMLURL: p.Review.HTMLURL,
	}
	if p.Review.User.Login != "" {
		ev.Actor = p.Review.User.Login
	}
	switch p.Action {
	case "submitted":
		ev.Kind = KindReviewSubmitted
	case "edited":
		ev.Kind = KindReviewEdited
	case "dismissed":
		ev.Kind = KindReviewDismissed
	default:
		return &Event{Reason: fmt.Sprintf("unsupported review action %q", p.Action)}
	}
	return ev
}

func classifyComment(p *ghPayload) *Event {
	ev := base(p)
	if p.PullRequest != nil {
		ev.PullRequest = fromPullRequest(p.PullRequest, p.Number)
	} else {
		// issue_comment payloads only link the pull request; the title in
		// the issue object is not authoritative for the thread name.
		ev.PullRequest = &PullRequest{
			Number:  p.Issue.Number,
			Title:   p.Issue.Title,
			Body:    p.Issue.Body,
			HTMLURL: p.Issue.PullRequest.HTMLURL,
			Author:  p.Issue.User.Login,
			Partial: true,
		}
		if ev.PullRequest.HTMLURL == "" {
			ev.PullRequest.HTMLURL = p.Issue.HTMLURL
		}
	}
	ev.Comment = &Comment{
		Body:    p.Comment.Body,
		HTMLURL: p.Comment.HTMLURL,
	}
	if p.Comment.User.Login != "" {
		ev.Actor = p.Comment.User.Login
	}
	switch p.Action {
	case "created":
		ev.Kind = KindCommentCreated
	case "edited":
		ev.Kind = KindCommentEdited
	case "deleted":
		ev.Kind = KindCommentDeleted
	default:
		return &Event{Reason: fmt.Sprintf("unsupported comment action %q", p.Action)}
	}
	return ev
}

func (c *Classifier) classifyPush(p *ghPayload) *Event {
	ev := base(p)
	ev.Kind = KindPush
	branch := BranchFromRef(*p.Ref)
	_, tracked := c.tracked[branch]
	ev.Push = &Push{
		Ref:         *p.Ref,
		Branch:      branch,
		CompareURL:  p.Compare,
		CommitCount: len(p.Commits),
		Tracked:     tracked,
	}
	if p.Pusher != nil {
		ev.Push.Pusher = p.Pusher.Name
	}
	if ev.Push.Pusher == "" {
		ev.Push.Pusher = p.Sender.Login
	}
	return ev
}

func base(p *ghPayload) *Event {
	ev := &Event{
		Action: p.Action,
		Actor:  p.Sender.Login,
	}
	if p.Repository != nil {
		ev.Repository = p.Repository.FullName
	}
	return ev
}

func fromPullRequest(pr *ghPullRequest, number int) *PullRequest {
	if pr.Number == 0 {
		pr.Number = number
	}
	return &PullRequest{
		Number:  pr.Number,
		Title:   pr.Title,
		Body:    pr.Body,
		HTMLURL: pr.HTMLURL,
		Author:  pr.User.Login,
		Merged:  pr.Merged,
	}
}

func unknown(payload []byte, reason string) *Event {
	return &Event{Reason: reason, Excerpt: excerpt(payload)}
}

func excerpt(payload []byte) string {
	if len(payload) <= MaxExcerptLength {
		return string(payload)
	}
	cut := MaxExcerptLength
	for cut > 0 && !utf8.RuneStart(payload[cut]) {
		cut--
	}
	return string(payload[:cut])
}
