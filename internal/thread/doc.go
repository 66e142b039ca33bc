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

// Package thread owns the pull-request-to-thread mapping.
//
// A pull request is identified inside a chat channel purely by the name of
// its thread. The name key is
//
//	[{repository}] PR #{number}: {title}
//
// truncated to MaxNameLength by cutting the title only, so the prefix
// "[{repository}] PR #{number}:" is stable across title edits and
// truncation. Closed threads carry a leading "[CLOSED] " marker, which is
// ignored when matching.
//
// The Resolver finds the thread for a pull request by scanning the
// channel's threads for that prefix, creating one when none exists. A
// local LRU cache short-circuits repeated scans; the channel's thread list
// remains the source of truth. Concurrent creators are reconciled after
// creation: the oldest matching thread wins and a losing thread created by
// this process is renamed with a "[DUPLICATE] " marker and archived.
package thread
