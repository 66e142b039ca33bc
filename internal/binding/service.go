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
	"context"
	"fmt"
)

// Service applies binding changes to the routing table and, when a Store
// is configured, persists them.
type Service struct {
	table *Table
	store *Store
}

// NewService creates a Service. store may be nil.
func NewService(table *Table, store *Store) *Service {
	return &Service{table: table, store: store}
}

// Table returns the routing table the Service updates.
func (s *Service) Table() *Table {
	return s.table
}

// Bind routes repository to channelID.
func (s *Service) Bind(ctx context.Context, repository, channelID string) error {
	if err := Validate(repository, channelID); err != nil {
		return err
	}
	if s.store != nil {
		if err := s.store.Put(ctx, repository, channelID); err != nil {
			return err
		}
	}
	return s.table.Set(repository, channelID)
}

// Unbind removes the binding for repository.
func (s *Service) Unbind(ctx context.Context, repository string) error {
	if _, ok := s.table.Lookup(repository); !ok {
		return fmt.Errorf("%s is not bound", repository)
	}
	if s.store != nil {
		if err := s.store.Delete(ctx, repository); err != nil {
			return err
		}
	}
	s.table.Delete(repository)
	return nil
}

// Load copies every stored binding into the table.
func (s *Service) Load(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, nil
	}
	stored, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}
	loaded := 0
	for _, b := range stored {
		if err := s.table.Set(b.Repository, b.ChannelID); err != nil {
			continue
		}
		loaded++
	}
	return loaded, nil
}
