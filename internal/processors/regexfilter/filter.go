// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package regexfilter implements the regex_filter processor: optional
// allow/remove regex sets over the metric name, plus an optional
// expr-lang predicate for conditions a regex can't express cleanly
// (spec.md §4.4.4, enriched per SPEC_FULL.md §11).
package regexfilter

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/theatrus/statsrelay/internal/config"
	"github.com/theatrus/statsrelay/internal/processors"
	"github.com/theatrus/statsrelay/internal/scope"
	"github.com/theatrus/statsrelay/pkg/statsdproto"
)

// exprEnv is the variable set available to an "expr" predicate.
type exprEnv struct {
	Name string
}

// Filter drops events whose name fails the allow set, matches the
// remove set, or fails the expr predicate.
type Filter struct {
	processors.NoTick
	allow   []*regexp.Regexp
	remove  []*regexp.Regexp
	program *vm.Program
	route   []config.Route
	removed scope.Counter
}

// New compiles allow/remove patterns and the optional expr predicate.
// An empty allow/remove slice means "no constraint" (nil, not a set
// that matches nothing).
func New(sc scope.Scope, cfg config.ProcessorConfig) (*Filter, error) {
	f := &Filter{
		route:   cfg.Route,
		removed: sc.Counter("removed"),
	}
	for _, pat := range cfg.Allow {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("regexfilter: bad allow pattern %q: %w", pat, err)
		}
		f.allow = append(f.allow, re)
	}
	for _, pat := range cfg.Remove {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("regexfilter: bad remove pattern %q: %w", pat, err)
		}
		f.remove = append(f.remove, re)
	}
	if cfg.Expr != "" {
		program, err := expr.Compile(cfg.Expr, expr.Env(exprEnv{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("regexfilter: bad expr %q: %w", cfg.Expr, err)
		}
		f.program = program
	}
	return f, nil
}

func (f *Filter) ProvideStatsd(event statsdproto.Event) *processors.Output {
	name := event.Name()
	if !utf8.Valid(name) {
		f.removed.Inc()
		return nil
	}
	if len(f.allow) > 0 && !anyMatch(f.allow, name) {
		f.removed.Inc()
		return nil
	}
	if len(f.remove) > 0 && anyMatch(f.remove, name) {
		f.removed.Inc()
		return nil
	}
	if f.program != nil {
		result, err := expr.Run(f.program, exprEnv{Name: string(name)})
		if err != nil || result != true {
			f.removed.Inc()
			return nil
		}
	}
	return &processors.Output{Route: f.route}
}

func anyMatch(patterns []*regexp.Regexp, name []byte) bool {
	for _, re := range patterns {
		if re.Match(name) {
			return true
		}
	}
	return false
}
