// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commpump

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/someonegg/gox/syncx"
)

var (
	errWebsocketMessageType = errors.New("websocket io: need data message")
)

// WebsocketReader interface, see https://godoc.org/github.com/gorilla/websocket/#Conn.NextReader
type WebsocketReader interface {
	NextReader() (messageType int, r io.Reader, err error)
}

// WebsocketWriter interface, see https://godoc.org/github.com/gorilla/websocket/#Conn.NextWriter
type WebsocketWriter interface {
	NextWriter(messageType int) (io.WriteCloser, error)
}

// WebsocketConn interface, see https://godoc.org/github.com/gorilla/websocket/#Conn
type WebsocketConn interface {
	WebsocketReader
	WebsocketWriter
	io.Closer
}

// WebsocketDeadliner is optionally implemented by a WebsocketConn, see
// https://godoc.org/github.com/gorilla/websocket/#Conn.SetWriteDeadline
type WebsocketDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// See https://godoc.org/github.com/gorilla/websocket#pkg-constants
const (
	TextMessage   = 1
	BinaryMessage = 2
	CloseMessage  = 8
	PingMessage   = 9
	PongMessage   = 10
)

// WebsocketTransport converts a WebsocketConn to a Transport.
//
// Each websocket message is one received chunk, each sent chunk is one
// binary message. The conn's reads can not be bounded without breaking it,
// so a background goroutine reads and Recv waits at most timeout for it.
//
// Send is bounded by timeout only if c implements WebsocketDeadliner, as
// gorilla's Conn does. Otherwise the caller must bound the conn's writes.
func WebsocketTransport(c WebsocketConn, timeout time.Duration) Transport {
	if timeout <= 0 {
		timeout = DefaultTCPTimeout
	}
	t := &websocketTransport{
		c:       c,
		timeout: timeout,
		msgC:    make(chan []byte, 16),
		errD:    syncx.NewDoneChan(),
		closeD:  syncx.NewDoneChan(),
	}
	t.connected.Store(true)
	go t.reading()
	return t
}

type websocketTransport struct {
	c         WebsocketConn
	timeout   time.Duration
	connected atomic.Bool

	msgC   chan []byte
	err    error
	errD   syncx.DoneChan
	closeD syncx.DoneChan
	closeO sync.Once
}

func (t *websocketTransport) reading() {
	defer t.errD.SetDone()

	for {
		m, err := t.readMessage()
		if err != nil {
			t.err = err
			return
		}
		if len(m) == 0 {
			continue
		}

		select {
		case t.msgC <- m:
		case <-t.closeD:
			t.err = ErrNotConnected
			return
		}
	}
}

func (t *websocketTransport) readMessage() ([]byte, error) {
	wst, wsr, err := t.c.NextReader()
	if err != nil {
		return nil, err
	}

	if wst != TextMessage && wst != BinaryMessage {
		return nil, errWebsocketMessageType
	}

	return io.ReadAll(wsr)
}

func (t *websocketTransport) Connected() bool {
	return t.connected.Load()
}

func (t *websocketTransport) Send(p []byte) error {
	if !t.Connected() {
		return ErrNotConnected
	}

	var err error
	if d, ok := t.c.(WebsocketDeadliner); ok {
		err = d.SetWriteDeadline(time.Now().Add(t.timeout))
	}

	var wswc io.WriteCloser
	if err == nil {
		wswc, err = t.c.NextWriter(BinaryMessage)
	}
	if err == nil {
		_, err = wswc.Write(p)
		if cerr := wswc.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		t.connected.Store(false)
		return errors.Wrap(err, "websocket send")
	}
	return nil
}

func (t *websocketTransport) Recv() ([]byte, error) {
	if !t.Connected() {
		return nil, ErrNotConnected
	}

	timer := time.NewTimer(t.timeout)
	defer timer.Stop()

	select {
	case m := <-t.msgC:
		return m, nil
	case <-t.errD:
		// drain what was read before the error.
		select {
		case m := <-t.msgC:
			return m, nil
		default:
		}
		t.connected.Store(false)
		return nil, errors.Wrap(t.err, "websocket recv")
	case <-timer.C:
		return nil, nil
	}
}

func (t *websocketTransport) Close() error {
	t.connected.Store(false)
	t.closeO.Do(t.closeD.SetDone)
	return t.c.Close()
}
