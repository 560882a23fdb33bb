// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"encoding/json"

	cbor "github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
)

// Marshaler converts one value to and from its payload.
type Marshaler[T any] interface {
	Marshal(v T) ([]byte, error)
	Unmarshal(b []byte) (T, error)
}

// MarshalFuncs is an adapter to allow the use of ordinary functions as
// Marshaler.
type MarshalFuncs[T any] struct {
	MarshalFunc   func(v T) ([]byte, error)
	UnmarshalFunc func(b []byte) (T, error)
}

func (f MarshalFuncs[T]) Marshal(v T) ([]byte, error) {
	return f.MarshalFunc(v)
}

func (f MarshalFuncs[T]) Unmarshal(b []byte) (T, error) {
	return f.UnmarshalFunc(b)
}

// Framed carries values as LengthPrefixed frames. A frame whose payload
// can not be unmarshaled is discarded.
type Framed[T any] struct {
	m      Marshaler[T]
	frames LengthPrefixed
}

func NewFramed[T any](m Marshaler[T]) *Framed[T] {
	return &Framed[T]{m: m}
}

func (f *Framed[T]) Decode(p []byte) (T, bool) {
	for {
		b, ok := f.frames.Decode(p)
		if !ok {
			var zero T
			return zero, false
		}
		p = nil

		if v, err := f.m.Unmarshal(b); err == nil {
			return v, true
		}
	}
}

func (f *Framed[T]) Encode(v T) ([]byte, error) {
	b, err := f.m.Marshal(v)
	if err != nil {
		return nil, err
	}
	return f.frames.Encode(b)
}

type cborMarshaler[T any] struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func (c cborMarshaler[T]) Marshal(v T) ([]byte, error) {
	return c.enc.Marshal(v)
}

func (c cborMarshaler[T]) Unmarshal(b []byte) (T, error) {
	var v T
	err := c.dec.Unmarshal(b, &v)
	return v, err
}

// CBOR returns a framed codec with deterministic CBOR (RFC 8949) payloads.
func CBOR[T any]() (*Framed[T], error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, errors.Wrap(err, "cbor encode mode")
	}
	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return nil, errors.Wrap(err, "cbor decode mode")
	}
	return NewFramed[T](cborMarshaler[T]{enc: em, dec: dm}), nil
}

type protoMarshaler[T proto.Message] struct {
	mo proto.MarshalOptions
}

func (p protoMarshaler[T]) Marshal(v T) ([]byte, error) {
	return p.mo.Marshal(v)
}

func (p protoMarshaler[T]) Unmarshal(b []byte) (T, error) {
	var zero T
	v := zero.ProtoReflect().New().Interface().(T)
	err := proto.Unmarshal(b, v)
	return v, err
}

// Proto returns a framed codec with deterministic protobuf payloads. T is a
// generated message pointer type.
func Proto[T proto.Message]() *Framed[T] {
	return NewFramed[T](protoMarshaler[T]{mo: proto.MarshalOptions{Deterministic: true}})
}

// JSONLines is a codec for newline-delimited JSON values. Lines which do
// not unmarshal into T are discarded.
type JSONLines[T any] struct {
	lines *Delimited
}

func NewJSONLines[T any]() *JSONLines[T] {
	return &JSONLines[T]{lines: Lines()}
}

func (c *JSONLines[T]) Decode(p []byte) (T, bool) {
	for {
		line, ok := c.lines.Decode(p)
		if !ok {
			var zero T
			return zero, false
		}
		p = nil

		var v T
		if err := json.Unmarshal([]byte(line), &v); err == nil {
			return v, true
		}
	}
}

func (c *JSONLines[T]) Encode(v T) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
