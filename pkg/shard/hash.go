// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package shard implements the consistent-hash ring used to pick an
// endpoint client for a metric name, and the fixed 32-bit hash that backs
// it.
package shard

// fnvOffset32 and fnvPrime32 are the standard FNV-1a 32-bit constants.
const (
	fnvOffset32 uint32 = 2166136261
	fnvPrime32  uint32 = 16777619
)

// StatsrelayCompatHash is the fixed 32-bit hash over a metric name used
// for shard placement. It intentionally considers only the name bytes,
// not type or tags: ring selection and aggregation identity are separate
// concerns (see pkg/statsdproto's asymmetric hashing of Pdu vs Owned).
//
// This fold is documented and golden-vector tested (hash_golden_test.go)
// rather than derived from a legacy binary; see DESIGN.md Open Question
// #3 for why no byte-for-byte legacy reference was available to match
// against.
func StatsrelayCompatHash(name []byte) uint32 {
	h := fnvOffset32
	for _, b := range name {
		h ^= uint32(b)
		h *= fnvPrime32
	}
	return h
}
