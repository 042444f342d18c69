// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package discovery polls or subscribes to external shard-map sources
// (spec.md §6 "Discovery update format") and hands each resulting
// Update to a Manager, which fans it out to the statsd backends whose
// BackendConfig.ShardMapSource names that source.
package discovery

import (
	"encoding/json"
	"reflect"
)

// Update is the JSON body a discovery source produces: "{ "sources":
// ["host:port", …] }". An empty string endpoint is ignored.
type Update struct {
	Sources []string `json:"sources"`
}

// UnmarshalJSON drops empty-string entries, matching the source
// format's documented behavior that an empty endpoint is ignored
// rather than treated as a literal empty-address target.
func (u *Update) UnmarshalJSON(data []byte) error {
	var raw struct {
		Sources []string `json:"sources"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	sources := make([]string, 0, len(raw.Sources))
	for _, s := range raw.Sources {
		if s != "" {
			sources = append(sources, s)
		}
	}
	u.Sources = sources
	return nil
}

// Equal reports whether two Updates carry the same source list, used
// to suppress no-op callbacks when a re-poll returns unchanged data.
func (u Update) Equal(other Update) bool {
	return reflect.DeepEqual(u.Sources, other.Sources)
}
