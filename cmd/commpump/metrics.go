// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/someonegg/commpump/pumpstat"
)

// metrics serves the counters of the running pumps. A nil *metrics is
// disabled, all methods are no-ops.
type metrics struct {
	reg *prometheus.Registry
	srv *http.Server
}

func startMetrics(addr string) (*metrics, error) {
	if addr == "" {
		return nil, nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "metrics listen")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	m := &metrics{
		reg: reg,
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
	}

	go func() {
		if err := m.srv.Serve(l); err != nil && err != http.ErrServerClosed {
			zap.L().Error("metrics server", zap.Error(err))
		}
	}()
	zap.L().Info("serving metrics", zap.Stringer("address", l.Addr()))
	return m, nil
}

// add exports src as pump name until the returned function is called.
func (m *metrics) add(name string, src pumpstat.Source) func() {
	if m == nil {
		return func() {}
	}

	c := pumpstat.NewCollector(name, src)
	if err := m.reg.Register(c); err != nil {
		zap.L().Warn("register pump metrics", zap.String("pump", name), zap.Error(err))
		return func() {}
	}
	return func() { m.reg.Unregister(c) }
}

func (m *metrics) stop() error {
	if m == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return errors.Wrap(m.srv.Shutdown(ctx), "metrics shutdown")
}
