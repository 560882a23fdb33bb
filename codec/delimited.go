// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package codec provides framing codecs for commpump.
//
// Every decoder keeps unconsumed bytes between Decode calls, an instance
// must be used by one goroutine only.
package codec

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
)

// DefaultMaxLineLength is the longest line a Delimited decoder accepts.
const DefaultMaxLineLength = 64 * 1024

var (
	errLineLength = errors.New("codec: line too long")
)

// Delimited is a codec for delimiter-terminated text frames. Decoded frames
// have the delimiter trimmed, encoded frames get exactly one.
type Delimited struct {
	// MaxLength bounds a frame without its delimiter, longer frames are
	// discarded up to the next delimiter. Zero means DefaultMaxLineLength.
	MaxLength int

	delim   []byte
	trimCR  bool
	buf     []byte
	discard bool
}

func NewDelimited(delim string) *Delimited {
	if delim == "" {
		panic("codec: empty delimiter")
	}
	return &Delimited{delim: []byte(delim)}
}

// Lines returns a codec for newline-terminated text, a trailing "\r" is
// trimmed too.
func Lines() *Delimited {
	d := NewDelimited("\n")
	d.trimCR = true
	return d
}

func (d *Delimited) maxLength() int {
	if d.MaxLength > 0 {
		return d.MaxLength
	}
	return DefaultMaxLineLength
}

func (d *Delimited) Decode(p []byte) (string, bool) {
	d.buf = append(d.buf, p...)

	for {
		i := bytes.Index(d.buf, d.delim)
		if i < 0 {
			// keep a possible delimiter prefix.
			keep := len(d.delim) - 1
			if len(d.buf)-keep > d.maxLength() {
				d.buf = append(d.buf[:0], d.buf[len(d.buf)-keep:]...)
				d.discard = true
			}
			return "", false
		}

		line := string(d.buf[:i])
		d.buf = append(d.buf[:0], d.buf[i+len(d.delim):]...)

		if d.discard || i > d.maxLength() {
			d.discard = false
			continue
		}
		if d.trimCR {
			line = strings.TrimSuffix(line, "\r")
		}
		return line, true
	}
}

// Encode fails for a frame longer than MaxLength, the decoder would
// discard it.
func (d *Delimited) Encode(v string) ([]byte, error) {
	v = strings.TrimSuffix(v, string(d.delim))
	if len(v) > d.maxLength() {
		return nil, errors.Wrapf(errLineLength, "%d", len(v))
	}
	b := make([]byte, 0, len(v)+len(d.delim))
	b = append(b, v...)
	return append(b, d.delim...), nil
}

// Buffered returns the number of bytes kept for the next frame.
func (d *Delimited) Buffered() int {
	return len(d.buf)
}
