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

package thread

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// MaxNameLength is the longest thread name the platform accepts, in runes.
	MaxNameLength = 100

	// ClosedMarker prefixes the name of a closed pull request thread.
	ClosedMarker = "[CLOSED] "

	// DuplicateMarker prefixes threads retired after a creation race.
	DuplicateMarker = "[DUPLICATE] "

	// maxPrefixLength leaves room for the closed marker and a truncation
	// ellipsis, so a closed name always keeps its whole prefix.
	maxPrefixLength = MaxNameLength - len(ClosedMarker) - 1
)

// Prefix returns the name-key prefix identifying a pull request thread.
// Repository names too long to fit are shortened to a leading part plus
// a hash of the full name, the same way every time.
func Prefix(repository string, number int) string {
	p := fmt.Sprintf("[%s] PR #%d:", repository, number)
	over := utf8.RuneCountInString(p) - maxPrefixLength
	if over <= 0 {
		return p
	}
	return fmt.Sprintf("[%s] PR #%d:", shortRepository(repository, over), number)
}

// shortRepository drops over runes from repository, ending it with "~"
// and the FNV-1a hash of the full name.
func shortRepository(repository string, over int) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(repository))
	suffix := fmt.Sprintf("~%08x", h.Sum32())

	runes := []rune(repository)
	keep := len(runes) - over - len(suffix)
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + suffix
}

// Name returns the full thread name for a pull request. Only the title is
// truncated; the prefix is always kept whole.
func Name(repository string, number int, title string) string {
	prefix := Prefix(repository, number)
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return prefix
	}
	room := MaxNameLength - utf8.RuneCountInString(prefix) - 1
	if room <= 0 {
		return prefix
	}
	return prefix + " " + truncate(title, room)
}

// ClosedName returns name with the closed marker applied exactly once.
func ClosedName(name string) string {
	if IsClosed(name) {
		return name
	}
	return truncate(ClosedMarker+name, MaxNameLength)
}

// DuplicateName returns the name a losing duplicate thread is renamed to.
// The result no longer matches any pull request prefix.
func DuplicateName(name string) string {
	return truncate(DuplicateMarker+strings.TrimPrefix(name, ClosedMarker), MaxNameLength)
}

// IsClosed reports whether a thread name carries the closed marker.
func IsClosed(name string) bool {
	return strings.HasPrefix(name, ClosedMarker)
}

// Matches reports whether a thread name belongs to the pull request
// identified by prefix, whether or not the thread has been closed.
func Matches(name, prefix string) bool {
	return strings.HasPrefix(strings.TrimPrefix(name, ClosedMarker), prefix)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	if limit <= 1 {
		return string(runes[:limit])
	}
	return string(runes[:limit-1]) + "…"
}

// SortOldestFirst orders handles by creation, using the numeric
// snowflake IDs chat platforms assign in increasing order.
func SortOldestFirst(handles []Handle) {
	sort.SliceStable(handles, func(i, j int) bool {
		return idLess(handles[i].ID, handles[j].ID)
	})
}

func idLess(a, b string) bool {
	ai, aerr := strconv.ParseUint(a, 10, 64)
	bi, berr := strconv.ParseUint(b, 10, 64)
	if aerr == nil && berr == nil {
		return ai < bi
	}
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
