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

func TestPromote_Basic(t *testing.T) {
	p, err := ParsePdu([]byte("foo.bar:3|c"))
	require.NoError(t, err)
	o, err := Promote(p)
	require.NoError(t, err)
	assert.Equal(t, "foo.bar", string(o.Id.Name))
	assert.Equal(t, Counter, o.Id.Type)
	assert.Equal(t, 3.0, o.Value)
	assert.False(t, o.HasSampleRate())
}

func TestPromote_SampleRateAndTags(t *testing.T) {
	p, err := ParsePdu([]byte("foo.bar:3|c|@0.5|#tags:value,atag:avalue"))
	require.NoError(t, err)
	o, err := Promote(p)
	require.NoError(t, err)
	assert.True(t, o.HasSampleRate())
	assert.Equal(t, 0.5, o.SampleRate)
	require.Len(t, o.Id.Tags, 2)
	// sorted by name: atag, tags
	assert.Equal(t, "atag", string(o.Id.Tags[0].Name))
	assert.Equal(t, "avalue", string(o.Id.Tags[0].Value))
	assert.Equal(t, "tags", string(o.Id.Tags[1].Name))
	assert.Equal(t, "value", string(o.Id.Tags[1].Value))
}

func TestPromote_DuplicateTagNameFirstWins(t *testing.T) {
	p, err := ParsePdu([]byte("foo.bar:3|c|#a:one,a:two"))
	require.NoError(t, err)
	o, err := Promote(p)
	require.NoError(t, err)
	require.Len(t, o.Id.Tags, 1)
	assert.Equal(t, "one", string(o.Id.Tags[0].Value))
}

func TestPromote_InvalidValue(t *testing.T) {
	p, err := ParsePdu([]byte("foo.bar:notanumber|c"))
	require.NoError(t, err)
	_, err = Promote(p)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestPromote_NaNRejected(t *testing.T) {
	p, err := ParsePdu([]byte("foo.bar:NaN|c"))
	require.NoError(t, err)
	_, err = Promote(p)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestPromote_InvalidSampleRate(t *testing.T) {
	p, err := ParsePdu([]byte("foo.bar:3|c|@1.5"))
	require.NoError(t, err)
	_, err = Promote(p)
	assert.ErrorIs(t, err, ErrInvalidSampleRate)

	p, err = ParsePdu([]byte("foo.bar:3|c|@0"))
	require.NoError(t, err)
	_, err = Promote(p)
	assert.ErrorIs(t, err, ErrInvalidSampleRate)
}

func TestPromote_InvalidType(t *testing.T) {
	p, err := ParsePdu([]byte("foo.bar:3|bogus"))
	require.NoError(t, err)
	_, err = Promote(p)
	assert.ErrorIs(t, err, ErrInvalidMetricType)
}

func TestOwned_RoundTrip(t *testing.T) {
	cases := []string{
		"foo.bar:3|c",
		"foo.bar:3.5|ms|@0.5",
		"foo.bar:-1|g",
		"foo.car:bar:3|c|#tags:value,atag:avalue|@1",
	}
	for _, line := range cases {
		p1, err := ParsePdu([]byte(line))
		require.NoError(t, err)
		o, err := Promote(p1)
		require.NoError(t, err)
		p2 := o.ToPdu()
		o2, err := Promote(p2)
		require.NoError(t, err)
		assert.Equal(t, o.Id.Key(), o2.Id.Key())
		assert.Equal(t, o.Value, o2.Value)
		assert.Equal(t, o.SampleRate, o2.SampleRate)
	}
}

func TestId_KeyIgnoresTagOrder(t *testing.T) {
	id1 := Id{Name: []byte("foo"), Type: Counter, Tags: []Tag{
		{Name: []byte("a"), Value: []byte("1")},
		{Name: []byte("b"), Value: []byte("2")},
	}}
	id2 := Id{Name: []byte("foo"), Type: Counter, Tags: []Tag{
		{Name: []byte("b"), Value: []byte("2")},
		{Name: []byte("a"), Value: []byte("1")},
	}}
	// parseTags always sorts, so constructing Id by hand with unsorted
	// tags is the only way to observe order sensitivity; Key() itself
	// does not re-sort, so callers are expected to pass pre-sorted tags
	// (as Promote and ToInlineTags do).
	assert.NotEqual(t, id1.Key(), id2.Key())

	p, err := ParsePdu([]byte("foo:1|c|#a:1,b:2"))
	require.NoError(t, err)
	o1, err := Promote(p)
	require.NoError(t, err)

	p, err = ParsePdu([]byte("foo:1|c|#b:2,a:1"))
	require.NoError(t, err)
	o2, err := Promote(p)
	require.NoError(t, err)

	assert.Equal(t, o1.Id.Key(), o2.Id.Key())
}
