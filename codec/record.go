// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

var (
	ErrShortRecord = errors.New("codec: short record")
)

// Record builds a fixed-layout binary record. Numbers are little-endian,
// variable fields are prefixed with their length as a 4-bytes uint.
//
// The zero value is ready to use.
type Record struct {
	b []byte
}

func (r *Record) Uint8(v uint8) *Record {
	r.b = append(r.b, v)
	return r
}

func (r *Record) Uint16(v uint16) *Record {
	r.b = binary.LittleEndian.AppendUint16(r.b, v)
	return r
}

func (r *Record) Uint32(v uint32) *Record {
	r.b = binary.LittleEndian.AppendUint32(r.b, v)
	return r
}

func (r *Record) Uint64(v uint64) *Record {
	r.b = binary.LittleEndian.AppendUint64(r.b, v)
	return r
}

func (r *Record) Float32(v float32) *Record {
	return r.Uint32(math.Float32bits(v))
}

func (r *Record) Float64(v float64) *Record {
	return r.Uint64(math.Float64bits(v))
}

func (r *Record) Bytes(v []byte) *Record {
	r.Uint32(uint32(len(v)))
	r.b = append(r.b, v...)
	return r
}

func (r *Record) String(v string) *Record {
	r.Uint32(uint32(len(v)))
	r.b = append(r.b, v...)
	return r
}

// Payload returns the record built so far.
func (r *Record) Payload() []byte {
	return r.b
}

// RecordReader reads the fields of a Record in order. After the first
// short read every field is zero and Err returns ErrShortRecord.
type RecordReader struct {
	b   []byte
	err error
}

func NewRecordReader(b []byte) *RecordReader {
	return &RecordReader{b: b}
}

func (r *RecordReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.b) < n {
		r.err = ErrShortRecord
		return nil
	}
	p := r.b[:n]
	r.b = r.b[n:]
	return p
}

func (r *RecordReader) Uint8() uint8 {
	if p := r.take(1); p != nil {
		return p[0]
	}
	return 0
}

func (r *RecordReader) Uint16() uint16 {
	if p := r.take(2); p != nil {
		return binary.LittleEndian.Uint16(p)
	}
	return 0
}

func (r *RecordReader) Uint32() uint32 {
	if p := r.take(4); p != nil {
		return binary.LittleEndian.Uint32(p)
	}
	return 0
}

func (r *RecordReader) Uint64() uint64 {
	if p := r.take(8); p != nil {
		return binary.LittleEndian.Uint64(p)
	}
	return 0
}

func (r *RecordReader) Float32() float32 {
	return math.Float32frombits(r.Uint32())
}

func (r *RecordReader) Float64() float64 {
	return math.Float64frombits(r.Uint64())
}

func (r *RecordReader) Bytes() []byte {
	l := r.Uint32()
	if r.err != nil {
		return nil
	}
	if uint64(l) > uint64(len(r.b)) {
		r.err = ErrShortRecord
		return nil
	}
	return append([]byte(nil), r.take(int(l))...)
}

func (r *RecordReader) String() string {
	return string(r.Bytes())
}

// Len returns the number of unread bytes.
func (r *RecordReader) Len() int {
	return len(r.b)
}

func (r *RecordReader) Err() error {
	return r.err
}
