// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cardinality

import (
	"time"

	"github.com/theatrus/statsrelay/internal/processors/cuckoo"
)

// multiCuckoo is a sliding-window membership structure made of an
// ordered list of cuckoo filters, each tagged with a valid_until time.
// Filter 0 is "current": it is the only one consulted for membership
// and size checks, but every insert touches all filters that exist at
// that moment. A key observed once therefore stays a member through the
// later rotations until the last filter it was inserted into expires,
// up to buckets*window after the insert (spec.md §4.4.2).
type multiCuckoo struct {
	buckets    int
	window     time.Duration
	capacity   int
	filters    []*filterSlot
}

type filterSlot struct {
	f          *cuckoo.Filter
	validUntil time.Time
}

func newMultiCuckoo(buckets int, window time.Duration, capacity int, now time.Time) *multiCuckoo {
	m := &multiCuckoo{buckets: buckets, window: window, capacity: capacity}
	for i := 0; i < buckets; i++ {
		m.filters = append(m.filters, &filterSlot{
			f:          cuckoo.New(capacity),
			validUntil: now.Add(time.Duration(i+1) * window),
		})
	}
	return m
}

// current is filter 0: the one membership and size checks apply to.
func (m *multiCuckoo) current() *filterSlot { return m.filters[0] }

// contains reports whether the current filter has seen key.
func (m *multiCuckoo) contains(key []byte) bool {
	return m.current().f.Contains(key)
}

// size reports the current filter's approximate item count.
func (m *multiCuckoo) size() int {
	return m.current().f.Len()
}

// insert adds key to every filter in the window.
func (m *multiCuckoo) insert(key []byte) {
	for _, slot := range m.filters {
		slot.f.Insert(key)
	}
}

// tick evicts an expired current filter and appends a fresh one at the
// back, valid for window*(buckets+1) so a new arrival stays visible for
// at least window*buckets before it can age out.
func (m *multiCuckoo) tick(now time.Time) {
	if !m.current().validUntil.Before(now) {
		return
	}
	m.filters = append(m.filters[1:], &filterSlot{
		f:          cuckoo.New(m.capacity),
		validUntil: now.Add(time.Duration(m.buckets+1) * m.window),
	})
}
