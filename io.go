// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commpump

import (
	"context"
)

// Transport is a live duplex byte channel.
//
// Send and Recv may be called concurrently from two goroutines, one each.
// Both calls must be bounded in time, the pump relies on it to observe
// termination.
type Transport interface {
	// Send transmits p. It fails if the transport is not connected or on
	// any I/O failure, partial sends are not recovered.
	Send(p []byte) error
	// Recv returns the bytes currently available. A nil slice with a nil
	// error means nothing is available right now.
	Recv() ([]byte, error)
	// Connected reports whether the transport is still usable.
	Connected() bool
}

// Factory builds a connected Transport, it may block during setup.
type Factory interface {
	Build(ctx context.Context) (Transport, error)
}

// The FactoryFunc type is an adapter to allow the use of
// ordinary functions as transport factories.
type FactoryFunc func(ctx context.Context) (Transport, error)

// Build calls f(ctx).
func (f FactoryFunc) Build(ctx context.Context) (Transport, error) {
	return f(ctx)
}

// Attach returns a Factory which hands out t, it must already be connected.
func Attach(t Transport) Factory {
	return FactoryFunc(func(ctx context.Context) (Transport, error) {
		if !t.Connected() {
			return nil, &ConnectError{Op: "attach", Kind: ErrNotConnected}
		}
		return t, nil
	})
}

// Decoder turns raw bytes into values.
//
// Decode appends p to the decoder's internal state and returns the next
// complete value. The false result means incomplete or discarded input, it
// is not an error. Decode(nil) returns further values already buffered.
type Decoder[T any] interface {
	Decode(p []byte) (v T, ok bool)
}

// Encoder serializes one value.
type Encoder[T any] interface {
	Encode(v T) ([]byte, error)
}

// Codec is a bidirectional mapping between raw bytes and T.
type Codec[T any] interface {
	Decoder[T]
	Encoder[T]
}

// Passthrough is the identity codec on raw byte chunks.
type Passthrough struct{}

func (Passthrough) Decode(p []byte) ([]byte, bool) {
	if len(p) == 0 {
		return nil, false
	}
	return append([]byte(nil), p...), true
}

func (Passthrough) Encode(v []byte) ([]byte, error) {
	return v, nil
}
