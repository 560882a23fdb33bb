// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logging builds the zap logger of the commpump command.
package logging

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/someonegg/commpump/internal/config"
)

// Setup builds a zap.Logger from c and sets it as the global logger. The
// caller should defer logger.Sync().
func Setup(c config.LogConfig) (*zap.Logger, error) {
	name := strings.ToLower(strings.TrimSpace(c.Level))
	if name == "warning" {
		name = "warn"
	}
	lvl, err := zapcore.ParseLevel(name)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	level := zap.NewAtomicLevelAt(lvl)

	encCfg := zap.NewProductionEncoderConfig()
	if c.Development {
		encCfg = zap.NewDevelopmentEncoderConfig()
	}
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if strings.ToLower(c.Format) == "json" {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	var cores []zapcore.Core
	for _, out := range c.Outputs {
		ws, err := openOutput(out, c.Rotation)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(encoder, ws, level))
	}

	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel)}
	if c.Development {
		opts = append(opts, zap.Development())
	}

	logger := zap.New(zapcore.NewTee(cores...), opts...)
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func openOutput(out string, r config.RotationConfig) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(out) {
	case "stdout":
		return zapcore.Lock(os.Stdout), nil
	case "stderr":
		return zapcore.Lock(os.Stderr), nil
	}

	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "log output %s", out)
		}
	}

	if r.Enable {
		return zapcore.AddSync(&lumberjack.Logger{
			Filename:   out,
			MaxSize:    max(r.MaxSizeMB, 1),
			MaxBackups: r.MaxBackups,
			MaxAge:     r.MaxAgeDays,
			Compress:   r.Compress,
		}), nil
	}

	f, err := os.OpenFile(out, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "log output %s", out)
	}
	return zapcore.Lock(f), nil
}
