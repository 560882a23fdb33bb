// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commpump

import (
	"encoding/hex"
	"fmt"
	"io"
	"sync"
)

// Dump is a debugging helper, it implements the Transport interface and
// dumps the traffic of the wrapped transport.
//
// The dump format is:
//
//	R|W:Size\nHexDump\n
type Dump struct {
	T    Transport
	Dump io.Writer

	// Filter can be nil. If nil, dump all chunks.
	Filter func(p []byte, read bool) bool

	mu sync.Mutex
}

func (d *Dump) needDump(p []byte, read bool) bool {
	if d.Filter != nil {
		return d.Filter(p, read)
	}
	return true
}

func (d *Dump) write(tag string, p []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	fmt.Fprintf(d.Dump, "%v:%v\n", tag, len(p))
	io.WriteString(d.Dump, hex.Dump(p))
	io.WriteString(d.Dump, "\n")
}

func (d *Dump) Recv() (p []byte, err error) {
	p, err = d.T.Recv()
	if err != nil || len(p) == 0 {
		return
	}

	if d.needDump(p, true) {
		d.write("R", p)
	}
	return
}

func (d *Dump) Send(p []byte) (err error) {
	err = d.T.Send(p)
	if err != nil {
		return
	}

	if d.needDump(p, false) {
		d.write("W", p)
	}
	return
}

func (d *Dump) Connected() bool {
	return d.T.Connected()
}

// Close closes the wrapped transport if it is an io.Closer.
func (d *Dump) Close() error {
	if c, ok := d.T.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
