// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commpump

import (
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

const (
	netconnReadSize = 4096
	// maxGatherSize is the largest chunk returned by one Recv.
	maxGatherSize = 64 * 1024
)

// NetconnTransport converts a net.Conn to a Transport, every Recv and Send
// is bounded by timeout.
//
// A net.Conn allows one concurrent reader and one concurrent writer, so the
// two directions never wait for each other.
func NetconnTransport(conn net.Conn, timeout time.Duration) Transport {
	if timeout <= 0 {
		timeout = DefaultTCPTimeout
	}
	t := &netconnTransport{
		conn:    conn,
		timeout: timeout,
		buf:     make([]byte, netconnReadSize),
	}
	t.connected.Store(true)
	return t
}

type netconnTransport struct {
	conn      net.Conn
	timeout   time.Duration
	connected atomic.Bool

	// owned by the reader
	buf []byte
}

func (t *netconnTransport) Connected() bool {
	return t.connected.Load()
}

func (t *netconnTransport) Send(p []byte) error {
	if !t.Connected() {
		return ErrNotConnected
	}

	if err := t.conn.SetWriteDeadline(time.Now().Add(t.timeout)); err != nil {
		t.connected.Store(false)
		return errors.Wrap(err, "tcp send")
	}
	if _, err := t.conn.Write(p); err != nil {
		t.connected.Store(false)
		return errors.Wrap(err, "tcp send")
	}
	return nil
}

func (t *netconnTransport) Recv() ([]byte, error) {
	if !t.Connected() {
		return nil, ErrNotConnected
	}

	// Gather until the peer is quiet for one timeout, so a burst is
	// returned as one chunk.
	var data []byte
	for len(data) < maxGatherSize {
		if err := t.conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
			t.connected.Store(false)
			return nil, errors.Wrap(err, "tcp recv")
		}
		n, err := t.conn.Read(t.buf)
		data = append(data, t.buf[:n]...)
		if err == nil && n > 0 {
			continue
		}
		if len(data) > 0 {
			return data, nil
		}
		if err == nil || errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, nil
		}

		t.connected.Store(false)
		return nil, errors.Wrap(err, "tcp recv")
	}
	return data, nil
}

func (t *netconnTransport) Close() error {
	t.connected.Store(false)
	return t.conn.Close()
}
