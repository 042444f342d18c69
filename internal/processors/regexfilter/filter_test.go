// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package regexfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theatrus/statsrelay/internal/config"
	"github.com/theatrus/statsrelay/internal/scope"
	"github.com/theatrus/statsrelay/pkg/statsdproto"
)

func pduEvent(t *testing.T, line string) statsdproto.Event {
	t.Helper()
	p, err := statsdproto.ParsePdu([]byte(line))
	require.NoError(t, err)
	return statsdproto.EventFromPdu(p)
}

func TestFilter_Remove(t *testing.T) {
	sc := scope.NewCollector().Scope("test")
	f, err := New(sc, config.ProcessorConfig{
		Remove: []string{`^hello.*`, `^goodbye.*`},
	})
	require.NoError(t, err)

	assert.Nil(t, f.ProvideStatsd(pduEvent(t, "hello.world:1|c")))
	assert.Nil(t, f.ProvideStatsd(pduEvent(t, "goodbye.world:1|c")))
	assert.NotNil(t, f.ProvideStatsd(pduEvent(t, "pineapples:1|c")))
}

func TestFilter_Allow(t *testing.T) {
	sc := scope.NewCollector().Scope("test")
	f, err := New(sc, config.ProcessorConfig{
		Allow: []string{`^allowed\..*`},
	})
	require.NoError(t, err)

	assert.NotNil(t, f.ProvideStatsd(pduEvent(t, "allowed.metric:1|c")))
	assert.Nil(t, f.ProvideStatsd(pduEvent(t, "other.metric:1|c")))
}

func TestFilter_Expr(t *testing.T) {
	sc := scope.NewCollector().Scope("test")
	f, err := New(sc, config.ProcessorConfig{
		Expr: `len(Name) < 10`,
	})
	require.NoError(t, err)

	assert.NotNil(t, f.ProvideStatsd(pduEvent(t, "short:1|c")))
	assert.Nil(t, f.ProvideStatsd(pduEvent(t, "a.very.long.metric.name:1|c")))
}

func TestFilter_InvalidPattern(t *testing.T) {
	sc := scope.NewCollector().Scope("test")
	_, err := New(sc, config.ProcessorConfig{Allow: []string{"("}})
	assert.Error(t, err)
}
