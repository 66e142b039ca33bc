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

import "strings"

// Kind identifies what a classified webhook payload represents.
type Kind int

const (
	// KindUnknown is any payload the relay does not project.
	KindUnknown Kind = iota
	// KindPullRequestOpened is a pull_request "opened" action.
	KindPullRequestOpened
	// KindPullRequestClosed is a pull_request "closed" (or "merged") action.
	KindPullRequestClosed
	// KindReviewSubmitted is a pull_request_review "submitted" action.
	KindReviewSubmitted
	// KindReviewEdited is a pull_request_review "edited" action.
	KindReviewEdited
	// KindReviewDismissed is a pull_request_review "dismissed" action.
	KindReviewDismissed
	// KindCommentCreated is a new comment on a pull request.
	KindCommentCreated
	// KindCommentEdited is an edited comment on a pull request.
	KindCommentEdited
	// KindCommentDeleted is a deleted comment on a pull request.
	KindCommentDeleted
	// KindPush is a push to a branch.
	KindPush
)

var kindNames = map[Kind]string{
	KindUnknown:           "Unknown",
	KindPullRequestOpened: "PullRequestOpened",
	KindPullRequestClosed: "PullRequestClosed",
	KindReviewSubmitted:   "ReviewSubmitted",
	KindReviewEdited:      "ReviewEdited",
	KindReviewDismissed:   "ReviewDismissed",
	KindCommentCreated:    "CommentCreated",
	KindCommentEdited:     "CommentEdited",
	KindCommentDeleted:    "CommentDeleted",
	KindPush:              "Push",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// PullRequestScoped reports whether events of this kind belong to a
// pull request thread.
func (k Kind) PullRequestScoped() bool {
	return k >= KindPullRequestOpened && k <= KindCommentDeleted
}

// DefaultTrackedBranches are the branches whose pushes produce environment
// update notices when no other set is configured.
var DefaultTrackedBranches = []string{"main", "test", "develop"}

// Event is the classified view of one webhook payload.
type Event struct {
	PullRequest *PullRequest
	Review      *Review
	Comment     *Comment
	Push        *Push

	// Action is the raw action string from the payload.
	Action string
	// Repository is the full "owner/name" of the repository.
	Repository string
	// Actor is the login of the user who triggered this event.
	Actor string
	// Reason explains why a payload was classified as KindUnknown.
	Reason string
	// Excerpt is a bounded prefix of the payload for diagnostics.
	Excerpt string

	Kind Kind
}

// Actionable reports whether the event leads to any outbound operation.
func (e *Event) Actionable() bool {
	switch {
	case e == nil, e.Kind == KindUnknown:
		return false
	case e.Kind == KindPush:
		return e.Push != nil && e.Push.Tracked
	default:
		return true
	}
}

// PullRequest is the pull request an event refers to.
type PullRequest struct {
	Title   string
	Body    string
	HTMLURL string
	Author  string
	Number  int
	Merged  bool

	// Partial is set when the detail was reconstructed from an issue
	// object and must be fetched from GitHub before use.
	Partial bool
}

// Review is the review carried by a pull_request_review payload.
type Review struct {
	State   string
	Body    string
	HTMLURL string
}

// Comment is the comment carried by a comment payload.
type Comment struct {
	Body    string
	HTMLURL string
}

// Push describes a push to a branch.
type Push struct {
	Ref         string
	Branch      string
	CompareURL  string
	Pusher      string
	CommitCount int
	Tracked     bool
}

// BranchFromRef returns the last "/"-delimited segment of a git ref.
func BranchFromRef(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}
