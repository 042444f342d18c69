// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statsdproto

import (
	"bytes"
	"math"
	"sort"
	"strconv"
)

// Tag is a single key/value pair from a statsd "#tags" extension field.
// Ordering and equality compare by Name only: two tags with the same name
// but different values are "the same tag" for sort/dedup purposes, and the
// first occurrence wins (see parseTags).
type Tag struct {
	Name  []byte
	Value []byte
}

// Id is the hashable identity of a parsed metric. Equality and hashing
// ignore tag order (tags are sorted on construction) but do consider tag
// presence and value.
type Id struct {
	Name []byte
	Type Type
	Tags []Tag
}

// Key returns a comparable string suitable for use as a Go map key,
// encoding name, type and sorted tags unambiguously.
func (id Id) Key() string {
	var b bytes.Buffer
	b.Write(id.Name)
	b.WriteByte(0)
	b.WriteByte(byte(id.Type))
	for _, t := range id.Tags {
		b.WriteByte(0)
		b.Write(t.Name)
		b.WriteByte('=')
		b.Write(t.Value)
	}
	return b.String()
}

// Owned is a fully parsed statsd event: an Id plus a finite value and an
// optional sample rate in (0, 1].
type Owned struct {
	Id         Id
	Value      float64
	SampleRate float64 // 0 means "not present"; HasSampleRate reports this
}

func (o *Owned) HasSampleRate() bool { return o.SampleRate > 0 }

// NewOwned builds an Owned directly, for processors that synthesize
// events (aggregation flush, tag normalization) rather than parsing them.
func NewOwned(id Id, value float64, sampleRate float64) *Owned {
	return &Owned{Id: id, Value: value, SampleRate: sampleRate}
}

// Promote parses a Pdu's value, sample rate and tags, producing a fully
// owned event. Promotion copies all byte ranges out of the Pdu's buffer so
// that long-lived aggregation state (samplers, cardinality filters) never
// keeps a whole inbound datagram alive via one small retained metric.
func Promote(p *Pdu) (*Owned, error) {
	value, err := strconv.ParseFloat(string(p.Value()), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, ErrInvalidValue
	}

	var sampleRate float64
	if raw, ok := p.SampleRate(); ok {
		sampleRate, err = strconv.ParseFloat(string(raw), 64)
		if err != nil || sampleRate <= 0 || sampleRate > 1 {
			return nil, ErrInvalidSampleRate
		}
	}

	mtype, err := parseType(p.RawType())
	if err != nil {
		return nil, err
	}

	var tags []Tag
	if raw, ok := p.Tags(); ok {
		tags = parseTags(raw)
	}

	return &Owned{
		Id: Id{
			Name: append([]byte(nil), p.Name()...),
			Type: mtype,
			Tags: tags,
		},
		Value:      value,
		SampleRate: sampleRate,
	}, nil
}

// parseTags splits a raw "#tags" field on ',' then ':', copies each
// range into owned storage, sorts by name (stable, so equal names keep
// their original relative order), and keeps the first occurrence of any
// repeated tag name.
func parseTags(raw []byte) []Tag {
	if len(raw) == 0 {
		return nil
	}

	var tags []Tag
	scan := raw
	for {
		end := bytes.IndexByte(scan, ',')
		var chunk []byte
		if end < 0 {
			chunk = scan
		} else {
			chunk = scan[:end]
		}
		if ci := bytes.IndexByte(chunk, ':'); ci >= 0 {
			tags = append(tags, Tag{
				Name:  append([]byte(nil), chunk[:ci]...),
				Value: append([]byte(nil), chunk[ci+1:]...),
			})
		} else {
			tags = append(tags, Tag{Name: append([]byte(nil), chunk...)})
		}
		if end < 0 {
			break
		}
		scan = scan[end+1:]
	}

	sort.SliceStable(tags, func(i, j int) bool {
		return bytes.Compare(tags[i].Name, tags[j].Name) < 0
	})

	out := tags[:0:0]
	for i, t := range tags {
		if i > 0 && bytes.Equal(out[len(out)-1].Name, t.Name) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// ToPdu re-serializes an Owned value to a Pdu, in canonical field order
// name:value|type[|@rate][|#tags]. The round trip is stable up to the
// text formatting of float values.
func (o *Owned) ToPdu() *Pdu {
	buf := make([]byte, 0, len(o.Id.Name)+len(o.Id.Tags)*24+32)

	buf = append(buf, o.Id.Name...)
	buf = append(buf, ':')
	valueIndex := len(buf)
	buf = strconv.AppendFloat(buf, o.Value, 'g', -1, 64)
	buf = append(buf, '|')
	typeIndex := len(buf)
	buf = append(buf, o.Id.Type.Bytes()...)
	typeIndexEnd := len(buf)

	var sampleRate *span
	if o.HasSampleRate() {
		buf = append(buf, '|', '@')
		start := len(buf)
		buf = strconv.AppendFloat(buf, o.SampleRate, 'g', -1, 64)
		sampleRate = &span{start, len(buf)}
	}

	var tags *span
	if len(o.Id.Tags) > 0 {
		buf = append(buf, '|', '#')
		start := len(buf)
		for i, t := range o.Id.Tags {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = append(buf, t.Name...)
			buf = append(buf, ':')
			buf = append(buf, t.Value...)
		}
		tags = &span{start, len(buf)}
	}

	return &Pdu{
		buf:          buf,
		valueIndex:   valueIndex,
		typeIndex:    typeIndex,
		typeIndexEnd: typeIndexEnd,
		sampleRate:   sampleRate,
		tags:         tags,
	}
}
