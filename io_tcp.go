// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commpump

import (
	"context"
	"net"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultTCPTimeout bounds each read and write on a TCP transport.
const DefaultTCPTimeout = 10 * time.Millisecond

// TCPConfig connects to a TCP peer. It implements the Factory interface.
type TCPConfig struct {
	Address string
	// Timeout bounds every Recv and Send call, and the dial when
	// DialTimeout is zero.
	Timeout     time.Duration
	DialTimeout time.Duration

	// Logger can be nil. If nil, zap.L() is used.
	Logger *zap.Logger
}

func (c TCPConfig) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTCPTimeout
}

func (c TCPConfig) Build(ctx context.Context) (Transport, error) {
	if strings.TrimSpace(c.Address) == "" {
		return nil, &ConnectError{Op: "tcp dial", Kind: ErrInvalidConfig, Err: errors.New("empty address")}
	}
	if _, _, err := net.SplitHostPort(c.Address); err != nil {
		return nil, &ConnectError{Op: "tcp dial", Kind: ErrInvalidConfig, Err: err}
	}

	log := loggerOr(c.Logger)
	log.Debug("connecting to tcp socket", zap.String("address", c.Address))

	d := net.Dialer{Timeout: c.DialTimeout}
	if d.Timeout <= 0 {
		d.Timeout = c.timeout()
	}
	conn, err := d.DialContext(ctx, "tcp", c.Address)
	if err != nil {
		return nil, &ConnectError{Op: "tcp dial " + c.Address, Kind: classifyDialError(err), Err: err}
	}

	log.Debug("connected to tcp socket", zap.String("address", c.Address))
	return NetconnTransport(conn, c.timeout()), nil
}

func loggerOr(l *zap.Logger) *zap.Logger {
	if l != nil {
		return l
	}
	return zap.L()
}

func classifyDialError(err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return ErrConnectTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrConnectTimeout
	}
	return ErrIO
}
