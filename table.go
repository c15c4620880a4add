// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package tracks

import (
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Table is a set of open documents, safe for concurrent use.
type Table struct {
	mu    sync.Mutex
	docs  map[uuid.UUID]*Document
	order []uuid.UUID
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{docs: make(map[uuid.UUID]*Document)}
}

// Add registers d and returns its id.
func (t *Table) Add(d *Document) uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := uuid.New()
	t.docs[id] = d
	t.order = append(t.order, id)
	return id
}

// Remove unregisters a document. It does not close it.
func (t *Table) Remove(id uuid.UUID) (*Document, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	d, ok := t.docs[id]
	if !ok {
		return nil, false
	}
	delete(t.docs, id)
	t.order = slices.DeleteFunc(t.order, func(other uuid.UUID) bool { return other == id })
	return d, true
}

// Get returns the document registered under id.
func (t *Table) Get(id uuid.UUID) (*Document, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	d, ok := t.docs[id]
	return d, ok
}

// Find returns the first document opened from path.
func (t *Table) Find(path string) (uuid.UUID, *Document, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	want := filepath.Clean(path)
	for _, id := range t.order {
		if d := t.docs[id]; filepath.Clean(d.Path()) == want {
			return id, d, true
		}
	}
	return uuid.Nil, nil, false
}

// ByFormat returns the documents opened by the named decoder, in insertion order.
func (t *Table) ByFormat(name string) []*Document {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []*Document
	for _, id := range t.order {
		if d := t.docs[id]; strings.EqualFold(d.Format(), name) {
			out = append(out, d)
		}
	}
	return out
}

// Len is the number of registered documents.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.docs)
}

// CloseAll closes and unregisters every document, returning the first error. Documents
// already closed by their owner are skipped.
func (t *Table) CloseAll() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var first error
	for _, id := range t.order {
		d := t.docs[id]
		if d.closed {
			continue
		}
		if err := d.Close(); err != nil && first == nil {
			first = err
		}
	}
	t.docs = make(map[uuid.UUID]*Document)
	t.order = nil
	return first
}
