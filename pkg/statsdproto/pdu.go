// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statsdproto

import "bytes"

// span is a byte-range offset into a Pdu's underlying buffer.
type span struct {
	start, end int
}

// Pdu is a raw statsd protocol unit: an immutable byte buffer plus the
// offsets of its mandatory and optional fields. Parsing only locates
// delimiters; values are not interpreted until promoted via Promote.
//
// A Pdu is cheap to copy: the underlying slice is never mutated after
// parsing, so sharing it across fan-out targets costs nothing beyond the
// struct itself.
type Pdu struct {
	buf          []byte
	valueIndex   int
	typeIndex    int
	typeIndexEnd int
	sampleRate   *span
	tags         *span
}

// ParsePdu parses a single statsd line (without its trailing newline) into
// a Pdu. It performs no semantic validation of the value, sample rate, or
// tags; that happens on promotion to Owned.
//
// Grammar:
//
//	pdu  := name ':' value '|' type ( '|' ext )*
//	ext  := '@' sample_rate | '#' tags
//
// The name/value boundary is the LAST ':' strictly before the first '|',
// so a name itself may contain colons (e.g. "foo:bar:3|c" -> name=foo:bar).
// Unknown extension characters are ignored: the type token simply ends at
// the first '|', and scanning continues past the unrecognized segment.
func ParsePdu(line []byte) (*Pdu, error) {
	length := len(line)
	pipe := bytes.IndexByte(line, '|')
	if pipe < 0 {
		return nil, ErrInvalidLine
	}
	typeIndex := pipe + 1

	valueIndex := 0
	for {
		window := line[valueIndex:typeIndex]
		idx := bytes.IndexByte(window, ':')
		if idx < 0 {
			if valueIndex <= 0 {
				return nil, ErrInvalidType
			}
			break
		}
		valueIndex = idx + valueIndex + 1
	}

	typeIndexEnd := length
	var sampleRate, tags *span

	scanIndex := typeIndex
	for {
		rel := bytes.IndexByte(line[scanIndex:], '|')
		if rel < 0 {
			break
		}
		idx := rel + scanIndex
		if idx+2 >= length {
			break
		}
		if idx < typeIndexEnd {
			typeIndexEnd = idx
		}
		switch line[idx+1] {
		case '@':
			if sampleRate != nil {
				return nil, ErrRepeatedSampleRate
			}
			sampleRate = &span{idx + 2, length}
			if tags != nil {
				tags.end = idx
			}
		case '#':
			if tags != nil {
				return nil, ErrRepeatedTags
			}
			tags = &span{idx + 2, length}
			if sampleRate != nil {
				sampleRate.end = idx
			}
		default:
			// Permissive: unknown extension fields are ignored rather than
			// rejected. The type token has already been closed off above.
		}
		scanIndex = idx + 1
	}

	return &Pdu{
		buf:          line,
		valueIndex:   valueIndex,
		typeIndex:    typeIndex,
		typeIndexEnd: typeIndexEnd,
		sampleRate:   sampleRate,
		tags:         tags,
	}, nil
}

func (p *Pdu) Name() []byte { return p.buf[:p.valueIndex-1] }

func (p *Pdu) Value() []byte { return p.buf[p.valueIndex : p.typeIndex-1] }

func (p *Pdu) RawType() []byte { return p.buf[p.typeIndex:p.typeIndexEnd] }

func (p *Pdu) SampleRate() ([]byte, bool) {
	if p.sampleRate == nil {
		return nil, false
	}
	return p.buf[p.sampleRate.start:p.sampleRate.end], true
}

func (p *Pdu) Tags() ([]byte, bool) {
	if p.tags == nil {
		return nil, false
	}
	return p.buf[p.tags.start:p.tags.end], true
}

// Bytes returns the full wire representation, without a trailing newline.
func (p *Pdu) Bytes() []byte { return p.buf }

func (p *Pdu) Len() int { return len(p.buf) }

// Clone returns a shallow copy sharing the same underlying buffer: O(1),
// since neither copy ever mutates the bytes.
func (p *Pdu) Clone() *Pdu {
	cp := *p
	return &cp
}

// WithPrefixSuffix returns a new Pdu whose name is wrapped in prefix and
// suffix. The source Pdu's buffer is never mutated; all offsets are
// recomputed for the new buffer.
func (p *Pdu) WithPrefixSuffix(prefix, suffix []byte) *Pdu {
	if len(prefix) == 0 && len(suffix) == 0 {
		return p.Clone()
	}
	offset := len(prefix) + len(suffix)
	buf := make([]byte, 0, len(p.buf)+offset)
	buf = append(buf, prefix...)
	buf = append(buf, p.Name()...)
	buf = append(buf, suffix...)
	buf = append(buf, p.buf[p.valueIndex-1:]...)

	np := &Pdu{
		buf:          buf,
		valueIndex:   p.valueIndex + offset,
		typeIndex:    p.typeIndex + offset,
		typeIndexEnd: p.typeIndexEnd + offset,
	}
	if p.sampleRate != nil {
		np.sampleRate = &span{p.sampleRate.start + offset, p.sampleRate.end + offset}
	}
	if p.tags != nil {
		np.tags = &span{p.tags.start + offset, p.tags.end + offset}
	}
	return np
}

// HashName returns the bare metric name used for shard placement. Asymmetric with
// Owned's Id hash by design: routing must not pay for tag parsing.
func (p *Pdu) HashName() []byte {
	return p.Name()
}
