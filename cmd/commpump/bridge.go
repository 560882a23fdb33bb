// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/someonegg/commpump"
	"github.com/someonegg/commpump/codec"
)

// format maps stdin lines to values and values to stdout lines.
type format[T any] struct {
	dec   commpump.Decoder[T]
	enc   commpump.Encoder[T]
	parse func(line string) (T, error)
	show  func(v T) string
}

func linesFormat() format[string] {
	return format[string]{
		dec:   codec.Lines(),
		enc:   codec.Lines(),
		parse: func(line string) (string, error) { return line, nil },
		show:  func(v string) string { return v },
	}
}

func hexFormat() format[[]byte] {
	return format[[]byte]{
		dec: commpump.Passthrough{},
		enc: commpump.Passthrough{},
		parse: func(line string) ([]byte, error) {
			b, err := hex.DecodeString(strings.Join(strings.Fields(line), ""))
			if err == nil && len(b) == 0 {
				err = errors.New("empty line")
			}
			return b, err
		},
		show: hex.EncodeToString,
	}
}

// dumpFactory wraps the built transport with a traffic dump when --dump
// is set.
func dumpFactory(cmd *cobra.Command, f commpump.Factory) commpump.Factory {
	if on, _ := cmd.Flags().GetBool("dump"); !on {
		return f
	}
	return commpump.FactoryFunc(func(ctx context.Context) (commpump.Transport, error) {
		t, err := f.Build(ctx)
		if err != nil {
			return nil, err
		}
		return &commpump.Dump{T: t, Dump: cmd.ErrOrStderr()}, nil
	})
}

func runBridge(cmd *cobra.Command, name string, f commpump.Factory) error {
	f = dumpFactory(cmd, f)
	linger, _ := cmd.Flags().GetDuration("linger")
	if cfg.Hex {
		return bridge(cmd, name, f, hexFormat(), linger)
	}
	return bridge(cmd, name, f, linesFormat(), linger)
}

// bridge runs a pump over the transport built by f. It stops on an
// interrupt, when the pump stops, or linger after stdin is exhausted.
func bridge[T any](cmd *cobra.Command, name string, f commpump.Factory, fm format[T], linger time.Duration) (err error) {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log := zap.L().Named(name)

	p, err := commpump.Spawn[T](ctx, f, fm.dec, fm.enc, commpump.WithLogger(log))
	if err != nil {
		return err
	}
	defer func() {
		p.Terminate()
		<-p.StopD()
		if perr := p.Error(); perr != nil && !errors.Is(perr, io.EOF) {
			err = multierr.Append(err, perr)
		}
		log.Info("pump stopped", zap.Any("statistics", p.Statistics()))
	}()

	m, err := startMetrics(cfg.MetricsAddress)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, m.stop())
	}()
	defer m.add(name, p)()

	log.Info("pump started")

	// Scan can not be interrupted, so the input reader is not waited for.
	inputC := make(chan error, 1)
	go func() {
		inputC <- readInput(cmd.InOrStdin(), p, fm, log)
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out := cmd.OutOrStdout()
		err := p.Serve(gctx, commpump.HandlerFunc[T](func(ctx context.Context, v T) {
			fmt.Fprintln(out, fm.show(v))
		}))
		if errors.Is(err, commpump.ErrPumpStopped) || errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		defer p.Terminate()

		select {
		case <-gctx.Done():
			return nil
		case <-p.StopD():
			return nil
		case err := <-inputC:
			if err != nil {
				return err
			}
		}

		// stdin is exhausted, let the writer flush.
		for p.Outbound().Len() > 0 && !p.Writer().Stopped() {
			select {
			case <-gctx.Done():
				return nil
			case <-time.After(commpump.DefaultIdleInterval):
			}
		}

		var lingerC <-chan time.Time
		if linger > 0 {
			lingerC = time.After(linger)
		}
		select {
		case <-gctx.Done():
		case <-p.StopD():
		case <-lingerC:
		}
		return nil
	})
	return g.Wait()
}

func readInput[T any](r io.Reader, p *commpump.Pump[T], fm format[T], log *zap.Logger) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		v, err := fm.parse(sc.Text())
		if err != nil {
			log.Warn("skip input line", zap.Error(err))
			continue
		}
		if err = p.Output(v); err != nil {
			return err
		}
	}
	return errors.Wrap(sc.Err(), "read input")
}
