// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theatrus/statsrelay/internal/config"
	"github.com/theatrus/statsrelay/pkg/statsdproto"
)

func TestNormalizer_InlinesTags(t *testing.T) {
	route := []config.Route{{Type: config.RouteProcessor, Target: "final"}}
	n := New(route)

	p, err := statsdproto.ParsePdu([]byte("foo.bar:3|c|#tags:value|@1.0"))
	require.NoError(t, err)

	out := n.ProvideStatsd(statsdproto.EventFromPdu(p))
	require.NotNil(t, out)
	assert.Equal(t, route, out.Route)
	require.Len(t, out.NewEvents, 1)

	owned, err := out.NewEvents[0].AsOwned()
	require.NoError(t, err)
	assert.Equal(t, "foo.bar.__tags=value", string(owned.Id.Name))
	assert.Empty(t, owned.Id.Tags)
}

func TestNormalizer_InvalidEventIsDropped(t *testing.T) {
	n := New(nil)
	p, err := statsdproto.ParsePdu([]byte("foo.bar:notanumber|c"))
	require.NoError(t, err)
	out := n.ProvideStatsd(statsdproto.EventFromPdu(p))
	assert.Nil(t, out)
}
