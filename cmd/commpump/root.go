// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/someonegg/commpump/internal/config"
	"github.com/someonegg/commpump/internal/logging"
)

var (
	// Global flags
	cfgFile string

	// Shared state set during PersistentPreRun
	cfg    *config.Config
	logger *zap.Logger
)

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"log-level":       "log.level",
	"hex":             "hex",
	"metrics-address": "metrics_address",
	"address":         "tcp.address",
	"timeout":         "tcp.timeout",
	"dial-timeout":    "tcp.dial_timeout",
	"port":            "serial.port",
	"baud":            "serial.baud_rate",
	"data-bits":       "serial.data_bits",
	"parity":          "serial.parity",
	"stop-bits":       "serial.stop_bits",
	"flow-control":    "serial.flow_control",
	"read-timeout":    "serial.read_timeout",
	"listen":          "echo.listen",
}

func bindings(fs *pflag.FlagSet) []config.Binding {
	var binds []config.Binding
	fs.VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			binds = append(binds, config.Binding{Key: key, Flag: f})
		}
	})
	return binds
}

// rootCmd is the base command for commpump.
var rootCmd = &cobra.Command{
	Use:   "commpump",
	Short: "Pump stdin and stdout through a TCP socket or a serial line",
	Long: `commpump connects to a peer and runs a pump over the link: every stdin
line is sent, every received line is printed. With --hex, stdin lines are
hex encoded bytes and received chunks are printed as hex.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile, bindings(cmd.Flags())...)
		if err != nil {
			return errors.Wrap(err, "failed to load config")
		}

		logger, err = logging.Setup(cfg.Log)
		if err != nil {
			return errors.Wrap(err, "failed to setup logging")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./commpump.yaml or ~/.commpump/commpump.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.Bool("hex", false, "send hex encoded stdin lines, print received chunks as hex")
	pf.Bool("dump", false, "dump the traffic to stderr")
	pf.String("metrics-address", "", "serve prometheus metrics on this address")
}
