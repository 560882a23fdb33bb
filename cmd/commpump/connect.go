// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/someonegg/commpump"
)

var tcpCmd = &cobra.Command{
	Use:   "tcp",
	Short: "Pump stdin and stdout through a TCP connection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cfg.TCP.Factory()
		f.Logger = zap.L().Named("tcp")
		return runBridge(cmd, "tcp", f)
	},
}

var serialCmd = &cobra.Command{
	Use:   "serial",
	Short: "Pump stdin and stdout through a serial line",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := cfg.Serial.Factory()
		if err != nil {
			return err
		}
		f.Logger = zap.L().Named("serial")
		return runBridge(cmd, "serial", f)
	},
}

func init() {
	fs := tcpCmd.Flags()
	fs.String("address", "", "peer address, host:port")
	fs.Duration("timeout", commpump.DefaultTCPTimeout, "bound of every read and write")
	fs.Duration("dial-timeout", 0, "bound of the connect")
	fs.Duration("linger", 0, "keep printing this long after stdin is exhausted, 0 waits for the peer")

	fs = serialCmd.Flags()
	fs.String("port", "", "serial port, e.g. /dev/ttyUSB0 or COM3")
	fs.Int("baud", commpump.DefaultBaudRate, "baud rate")
	fs.Int("data-bits", 8, "data bits, 5 to 8")
	fs.String("parity", "none", "parity: none, odd, even, mark, space")
	fs.String("stop-bits", "1", "stop bits: 1, 1.5, 2")
	fs.String("flow-control", "none", "flow control: none, software, hardware")
	fs.Duration("read-timeout", commpump.DefaultSerialReadTimeout, "bound of every read")
	fs.Duration("linger", 0, "keep printing this long after stdin is exhausted, 0 waits for the peer")

	rootCmd.AddCommand(tcpCmd, serialCmd)
}
