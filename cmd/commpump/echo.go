// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"net"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/someonegg/commpump"
)

var echoCmd = &cobra.Command{
	Use:   "echo-server",
	Short: "Accept TCP connections and echo every received chunk",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		l, err := net.Listen("tcp", cfg.Echo.Listen)
		if err != nil {
			return errors.Wrap(err, "listen")
		}
		zap.L().Info("echo server listening", zap.Stringer("address", l.Addr()))

		m, err := startMetrics(cfg.MetricsAddress)
		if err != nil {
			l.Close()
			return err
		}

		err = serveEcho(ctx, l, m)
		return multierr.Combine(err, m.stop())
	},
}

// serveEcho runs one passthrough pump per accepted connection until ctx is
// done, then stops them all.
func serveEcho(ctx context.Context, l net.Listener, m *metrics) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		return l.Close()
	})

	g.Go(func() error {
		for {
			conn, err := l.Accept()
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return errors.Wrap(err, "accept")
			}

			g.Go(func() error {
				echo(gctx, conn, m)
				return nil
			})
		}
	})

	err := g.Wait()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}

func echo(ctx context.Context, conn net.Conn, m *metrics) {
	name := "echo " + conn.RemoteAddr().String()
	log := zap.L().With(zap.Stringer("peer", conn.RemoteAddr()))

	p := commpump.NewPump[[]byte](commpump.NetconnTransport(conn, 0),
		commpump.Passthrough{}, commpump.Passthrough{}, commpump.WithLogger(log))
	defer m.add(name, p)()

	p.Start(ctx)
	log.Info("peer connected")

	p.Serve(ctx, commpump.HandlerFunc[[]byte](func(ctx context.Context, b []byte) {
		p.Output(b)
	}))

	p.Terminate()
	<-p.StopD()
	log.Info("peer disconnected", zap.Any("statistics", p.Statistics()), zap.Error(p.Error()))
}
