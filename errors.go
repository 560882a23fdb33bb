// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commpump

import (
	"github.com/pkg/errors"
)

var (
	// Connect-time error kinds, see ConnectError.
	ErrInvalidConfig  = errors.New("commpump: invalid configuration")
	ErrNotFound       = errors.New("commpump: no matching device")
	ErrConnectTimeout = errors.New("commpump: connect timeout")
	ErrIO             = errors.New("commpump: i/o failure")

	ErrNotConnected = errors.New("commpump: not connected")
	ErrQueueClosed  = errors.New("commpump: queue closed")
	ErrPumpStopped  = errors.New("commpump: pump stopped")
)

// ConnectError is returned by the factories when a transport can not be
// built. It matches both Kind and Err with errors.Is.
type ConnectError struct {
	Op   string
	Kind error
	Err  error
}

func (e *ConnectError) Error() string {
	s := e.Op + ": " + e.Kind.Error()
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *ConnectError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
