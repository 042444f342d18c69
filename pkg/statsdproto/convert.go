// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statsdproto

// ToInlineTags rewrites an Owned's external tags into the name itself,
// appending ".__<key>=<value>" per tag (sorted, the order Id.Tags already
// carries) and clearing the tag list. Each key/value byte is sanitized
// first: ':', '.' and '=' become '_', since those bytes would otherwise
// be ambiguous once folded into the name.
//
// Applying this twice is a no-op the second time: an event with no tags
// left is returned unchanged.
func ToInlineTags(o *Owned) *Owned {
	if len(o.Id.Tags) == 0 {
		return o
	}

	name := append([]byte(nil), o.Id.Name...)
	for _, t := range o.Id.Tags {
		name = append(name, '.', '_', '_')
		name = append(name, sanitize(t.Name)...)
		name = append(name, '=')
		name = append(name, sanitize(t.Value)...)
	}

	return &Owned{
		Id: Id{
			Name: name,
			Type: o.Id.Type,
		},
		Value:      o.Value,
		SampleRate: o.SampleRate,
	}
}

func sanitize(b []byte) []byte {
	out := append([]byte(nil), b...)
	for i, c := range out {
		switch c {
		case ':', '.', '=':
			out[i] = '_'
		}
	}
	return out
}
