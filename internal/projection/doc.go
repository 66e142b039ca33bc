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

// Package projection turns classified GitHub events into thread operations.
//
// An Engine owns everything a projection needs: the chat gateway, the
// GitHub client used to complete partial pull request detail, the thread
// resolver and the repository routing table. Engine.Project never panics
// and never returns an error directly. Every outcome, including failures,
// comes back as a Result so the caller decides how to log it.
//
// Thread lifecycle per pull request:
//
//	Absent --first event--> Open --review/comment--> Open
//	Open --closed/merged--> Closed (archived, locked, "[CLOSED] " name)
//
// Closed is terminal. Later events still resolve the archived thread and
// append messages, after which the thread is archived and locked again.
package projection
