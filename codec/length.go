// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// MaxFrameLength is the default maximum frame length.
const MaxFrameLength = 32 * 1024 * 1024

var (
	errFrameLength = errors.New("codec: wrong frame length")
)

// LengthPrefixed is a codec for binary frames, the layout is:
//
//	Length(4-bytes uint, little-endian)Payload
//
// A zero or oversized length is skipped, the decoder drops those 4 bytes
// and reads the next header right after them.
type LengthPrefixed struct {
	// Zero means MaxFrameLength.
	MaxLength int

	buf []byte
}

func (c *LengthPrefixed) maxLength() int {
	if c.MaxLength > 0 {
		return c.MaxLength
	}
	return MaxFrameLength
}

func (c *LengthPrefixed) Decode(p []byte) ([]byte, bool) {
	c.buf = append(c.buf, p...)

	for len(c.buf) >= 4 {
		l := uint64(binary.LittleEndian.Uint32(c.buf))
		if l == 0 || l > uint64(c.maxLength()) {
			// drop the bad header only.
			c.buf = append(c.buf[:0], c.buf[4:]...)
			continue
		}

		n := 4 + int(l)
		if len(c.buf) < n {
			return nil, false
		}

		m := append([]byte(nil), c.buf[4:n]...)
		c.buf = append(c.buf[:0], c.buf[n:]...)
		return m, true
	}
	return nil, false
}

func (c *LengthPrefixed) Encode(v []byte) ([]byte, error) {
	if len(v) == 0 || len(v) > c.maxLength() {
		return nil, errors.Wrapf(errFrameLength, "%d", len(v))
	}

	b := make([]byte, 0, 4+len(v))
	b = binary.LittleEndian.AppendUint32(b, uint32(len(v)))
	return append(b, v...), nil
}
