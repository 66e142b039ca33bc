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

package binding

import (
	"sync"
	"testing"
)

func TestTableRoute(t *testing.T) {
	tests := []struct {
		name           string
		defaultChannel string
		bindings       map[string]string
		repository     string
		wantChannel    string
		wantOK         bool
	}{
		{
			name:        "bound repository",
			bindings:    map[string]string{"acme/widgets": "100"},
			repository:  "acme/widgets",
			wantChannel: "100",
			wantOK:      true,
		},
		{
			name:        "case-insensitive match",
			bindings:    map[string]string{"Acme/Widgets": "100"},
			repository:  "acme/widgets",
			wantChannel: "100",
			wantOK:      true,
		},
		{
			name:           "falls back to default channel",
			defaultChannel: "999",
			bindings:       map[string]string{"acme/widgets": "100"},
			repository:     "acme/gadgets",
			wantChannel:    "999",
			wantOK:         true,
		},
		{
			name:       "unbound without default is dropped",
			bindings:   map[string]string{"acme/widgets": "100"},
			repository: "acme/gadgets",
			wantOK:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := NewTable(tt.defaultChannel, tt.bindings)
			if err != nil {
				t.Fatalf("NewTable() unexpected error: %v", err)
			}

			channel, ok := table.Route(tt.repository)
			if ok != tt.wantOK || channel != tt.wantChannel {
				t.Errorf("Route(%q) = %q, %v; want %q, %v", tt.repository, channel, ok, tt.wantChannel, tt.wantOK)
			}
		})
	}
}

func TestNewTableRejectsInvalidBindings(t *testing.T) {
	tests := map[string]map[string]string{
		"no owner":            {"widgets": "100"},
		"empty channel":       {"acme/widgets": ""},
		"non-numeric channel": {"acme/widgets": "general"},
	}

	for name, bindings := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := NewTable("", bindings); err == nil {
				t.Errorf("NewTable(%v) expected error, got nil", bindings)
			}
		})
	}
}

func TestTableSetDeleteSnapshot(t *testing.T) {
	table, err := NewTable("", nil)
	if err != nil {
		t.Fatalf("NewTable() unexpected error: %v", err)
	}

	if err := table.Set("zeta/repo", "300"); err != nil {
		t.Fatalf("Set() unexpected error: %v", err)
	}
	if err := table.Set("acme/widgets", "100"); err != nil {
		t.Fatalf("Set() unexpected error: %v", err)
	}
	if err := table.Set("acme/widgets", "200"); err != nil {
		t.Fatalf("Set() unexpected error: %v", err)
	}

	snapshot := table.Snapshot()
	want := []Binding{{Repository: "acme/widgets", ChannelID: "200"}, {Repository: "zeta/repo", ChannelID: "300"}}
	if len(snapshot) != len(want) {
		t.Fatalf("Snapshot() = %v, want %v", snapshot, want)
	}
	for i := range want {
		if snapshot[i] != want[i] {
			t.Errorf("Snapshot()[%d] = %v, want %v", i, snapshot[i], want[i])
		}
	}

	if !table.Delete("ACME/widgets") {
		t.Errorf("Delete() = false, want true")
	}
	if table.Delete("acme/widgets") {
		t.Errorf("second Delete() = true, want false")
	}
	if _, ok := table.Lookup("acme/widgets"); ok {
		t.Errorf("Lookup() found a deleted binding")
	}
}

func TestTableConcurrentAccess(t *testing.T) {
	table, err := NewTable("1", nil)
	if err != nil {
		t.Fatalf("NewTable() unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				table.Set("acme/widgets", "100") //nolint:errcheck
				table.Delete("acme/widgets")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, ok := table.Route("acme/widgets"); !ok {
					t.Errorf("Route() = false with a default channel")
				}
				table.Snapshot()
			}
		}()
	}
	wg.Wait()
}
