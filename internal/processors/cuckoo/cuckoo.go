// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cuckoo implements a small fixed-size cuckoo filter: a
// probabilistic set with O(1) insert/contains and no false negatives.
// internal/processors/cardinality stacks several of these into a
// sliding-window membership structure (spec.md §4.4.2's MultiCuckoo).
package cuckoo

import (
	"github.com/cespare/xxhash/v2"
)

const (
	bucketSize  = 4
	maxKicks    = 500
	emptySlot   = 0
)

type bucket [bucketSize]uint8

// Filter is a fixed-capacity cuckoo filter over arbitrary byte keys.
// Capacity is rounded up to a power of two number of buckets.
type Filter struct {
	buckets []bucket
	mask    uint64
	count   int
}

// New creates a filter sized for roughly capacity items (bucketSize per
// bucket, load factor ~0.95 before inserts start failing).
func New(capacity int) *Filter {
	numBuckets := nextPow2(uint64((capacity + bucketSize - 1) / bucketSize))
	if numBuckets < 1 {
		numBuckets = 1
	}
	return &Filter{
		buckets: make([]bucket, numBuckets),
		mask:    numBuckets - 1,
	}
}

func nextPow2(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	p := uint64(1)
	for p < n {
		p <<= 1
	}
	return p
}

// Len reports the number of items currently believed inserted.
func (f *Filter) Len() int { return f.count }

func (f *Filter) locate(key []byte) (i1 uint64, fp uint8) {
	h := xxhash.Sum64(key)
	fp = uint8(h >> 56)
	if fp == emptySlot {
		fp = 1
	}
	i1 = h & f.mask
	return
}

func (f *Filter) altIndex(i1 uint64, fp uint8) uint64 {
	h := xxhash.Sum64([]byte{fp})
	return (i1 ^ h) & f.mask
}

// Contains reports whether key was previously inserted (no false
// negatives; false positives are possible at the configured load).
func (f *Filter) Contains(key []byte) bool {
	i1, fp := f.locate(key)
	i2 := f.altIndex(i1, fp)
	return f.bucketHas(i1, fp) || f.bucketHas(i2, fp)
}

func (f *Filter) bucketHas(i uint64, fp uint8) bool {
	b := &f.buckets[i]
	for _, slot := range b {
		if slot == fp {
			return true
		}
	}
	return false
}

// Insert adds key to the filter. It returns false only if the filter is
// full enough that no eviction chain within maxKicks steps could place
// it; callers treat this as "the filter is saturated".
func (f *Filter) Insert(key []byte) bool {
	i1, fp := f.locate(key)
	if f.tryInsertAt(i1, fp) {
		f.count++
		return true
	}
	i2 := f.altIndex(i1, fp)
	if f.tryInsertAt(i2, fp) {
		f.count++
		return true
	}

	// Relocation chain: starting at i2, evict slot kick%bucketSize and move
	// the evicted fingerprint to its alternate bucket, repeatedly.
	i := i2
	for kick := 0; kick < maxKicks; kick++ {
		slot := kick % bucketSize
		evicted := f.buckets[i][slot]
		f.buckets[i][slot] = fp
		fp = evicted
		i = f.altIndex(i, fp)
		if f.tryInsertAt(i, fp) {
			f.count++
			return true
		}
	}
	return false
}

func (f *Filter) tryInsertAt(i uint64, fp uint8) bool {
	b := &f.buckets[i]
	for idx, slot := range b {
		if slot == emptySlot {
			b[idx] = fp
			return true
		}
	}
	return false
}
