// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package statsdproto implements the statsd wire format: a zero-copy PDU
// parse over an immutable byte buffer, and a fully owned, hashable metric
// identity promoted from it.
package statsdproto

import "errors"

// Errors returned by ParsePdu. These are structural/per-event only; a
// parse failure is never fatal to the process, only to the one datagram.
var (
	ErrInvalidLine        = errors.New("statsdproto: no structural elements found in line")
	ErrInvalidType        = errors.New("statsdproto: no name/value separator found before type field")
	ErrRepeatedSampleRate = errors.New("statsdproto: more than one sample rate field found")
	ErrRepeatedTags       = errors.New("statsdproto: more than one set of tags found")
)

// Errors returned when promoting a Pdu to an Owned value.
var (
	ErrInvalidValue      = errors.New("statsdproto: value is not a finite number")
	ErrInvalidSampleRate = errors.New("statsdproto: sample rate must be in (0, 1]")
	ErrInvalidMetricType = errors.New("statsdproto: unrecognized metric type token")
)
