// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statsdproto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	cases := map[string]Type{
		"c":  Counter,
		"ms": Timer,
		"g":  Gauge,
		"G":  DirectGauge,
		"s":  Set,
	}
	for raw, want := range cases {
		got, err := parseType([]byte(raw))
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, raw, string(got.Bytes()))
	}
}

func TestParseType_Invalid(t *testing.T) {
	_, err := parseType([]byte("bogus"))
	assert.ErrorIs(t, err, ErrInvalidMetricType)
}
