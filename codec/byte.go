// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

// Byte is a codec for single-byte enumerations. Bytes rejected by Valid
// are discarded.
type Byte[T ~uint8] struct {
	// Valid can be nil. If nil, every byte is a value.
	Valid func(T) bool

	buf []byte
}

func (c *Byte[T]) Decode(p []byte) (T, bool) {
	c.buf = append(c.buf, p...)

	for len(c.buf) > 0 {
		v := T(c.buf[0])
		c.buf = c.buf[1:]
		if c.Valid == nil || c.Valid(v) {
			return v, true
		}
	}

	var zero T
	return zero, false
}

func (c *Byte[T]) Encode(v T) ([]byte, error) {
	return []byte{byte(v)}, nil
}
