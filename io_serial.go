// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commpump

import (
	"context"
	"io"
	"io/fs"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"go.uber.org/zap"
)

const (
	DefaultBaudRate          = 115200
	DefaultSerialReadTimeout = 10 * time.Millisecond
)

type FlowControl int

const (
	FlowNone FlowControl = iota
	FlowSoftware
	FlowHardware
)

func (f FlowControl) String() string {
	switch f {
	case FlowNone:
		return "none"
	case FlowSoftware:
		return "software"
	case FlowHardware:
		return "hardware"
	default:
		return "unknown"
	}
}

// SerialConfig opens a serial line. It implements the Factory interface.
//
// Zero values select 115200 baud, 8 data bits, no parity, one stop bit and
// a 10ms read timeout.
type SerialConfig struct {
	Port        string
	BaudRate    int
	DataBits    int
	Parity      serial.Parity
	StopBits    serial.StopBits
	FlowControl FlowControl
	ReadTimeout time.Duration

	// Logger can be nil. If nil, zap.L() is used.
	Logger *zap.Logger
}

func (c SerialConfig) mode() *serial.Mode {
	m := &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
		Parity:   c.Parity,
		StopBits: c.StopBits,
	}
	if m.BaudRate <= 0 {
		m.BaudRate = DefaultBaudRate
	}
	if m.DataBits <= 0 {
		m.DataBits = 8
	}
	return m
}

func (c SerialConfig) readTimeout() time.Duration {
	if c.ReadTimeout > 0 {
		return c.ReadTimeout
	}
	return DefaultSerialReadTimeout
}

func (c SerialConfig) validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return errors.New("empty port")
	}
	// the serial driver exposes no flow control setting.
	if c.FlowControl != FlowNone {
		return errors.Errorf("flow control %v not supported", c.FlowControl)
	}
	if c.DataBits != 0 && (c.DataBits < 5 || c.DataBits > 8) {
		return errors.Errorf("data bits %d", c.DataBits)
	}
	return nil
}

func (c SerialConfig) Build(ctx context.Context) (Transport, error) {
	op := "serial open " + c.Port
	if err := c.validate(); err != nil {
		return nil, &ConnectError{Op: op, Kind: ErrInvalidConfig, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &ConnectError{Op: op, Kind: ErrConnectTimeout, Err: err}
	}

	log := loggerOr(c.Logger)
	log.Debug("connecting to serial port", zap.String("port", c.Port), zap.Int("baud", c.mode().BaudRate))

	port, err := serial.Open(c.Port, c.mode())
	if err != nil {
		return nil, &ConnectError{Op: op, Kind: classifySerialError(err), Err: err}
	}
	if err = port.ResetInputBuffer(); err == nil {
		err = port.SetReadTimeout(c.readTimeout())
	}
	if err != nil {
		port.Close()
		return nil, &ConnectError{Op: op, Kind: classifySerialError(err), Err: err}
	}

	log.Debug("connected to serial port", zap.String("port", c.Port))
	return SerialTransport(port), nil
}

func classifySerialError(err error) error {
	var pe *serial.PortError
	if errors.As(err, &pe) {
		switch pe.Code() {
		case serial.PortNotFound:
			return ErrNotFound
		case serial.InvalidSpeed, serial.InvalidDataBits, serial.InvalidParity,
			serial.InvalidStopBits, serial.InvalidTimeoutValue, serial.InvalidSerialPort:
			return ErrInvalidConfig
		}
	}
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return ErrIO
}

// SerialTransport converts an opened serial.Port to a Transport. The port's
// read timeout bounds Recv.
//
// A port file allows one concurrent reader and one concurrent writer.
func SerialTransport(port serial.Port) Transport {
	t := &serialTransport{
		port: port,
		buf:  make([]byte, netconnReadSize),
	}
	t.connected.Store(true)
	return t
}

type serialTransport struct {
	port      serial.Port
	connected atomic.Bool

	// owned by the reader
	buf []byte
}

func (t *serialTransport) Connected() bool {
	return t.connected.Load()
}

func (t *serialTransport) Send(p []byte) error {
	if !t.Connected() {
		return ErrNotConnected
	}

	for len(p) > 0 {
		n, err := t.port.Write(p)
		if err != nil {
			t.connected.Store(false)
			return errors.Wrap(err, "serial send")
		}
		if n == 0 {
			t.connected.Store(false)
			return errors.Wrap(io.ErrShortWrite, "serial send")
		}
		p = p[n:]
	}
	return nil
}

func (t *serialTransport) Recv() ([]byte, error) {
	if !t.Connected() {
		return nil, ErrNotConnected
	}

	// A timed out read returns zero bytes, gather until then.
	var data []byte
	for len(data) < maxGatherSize {
		n, err := t.port.Read(t.buf)
		if err != nil {
			if len(data) > 0 {
				return data, nil
			}
			t.connected.Store(false)
			return nil, errors.Wrap(err, "serial recv")
		}
		if n == 0 {
			break
		}
		data = append(data, t.buf[:n]...)
	}
	return data, nil
}

func (t *serialTransport) Close() error {
	t.connected.Store(false)
	return t.port.Close()
}
