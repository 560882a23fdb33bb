// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config provides YAML-based configuration loading for the
// commpump command.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.bug.st/serial"

	"github.com/someonegg/commpump"
)

// Config is the root configuration.
type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	TCP    TCPConfig    `mapstructure:"tcp"`
	Serial SerialConfig `mapstructure:"serial"`
	Echo   EchoConfig   `mapstructure:"echo"`

	// Hex switches the bridges to raw chunks printed as hex.
	Hex bool `mapstructure:"hex"`
	// MetricsAddress serves prometheus metrics when not empty.
	MetricsAddress string `mapstructure:"metrics_address"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: stdout, stderr, or file paths
	Outputs []string `mapstructure:"outputs"`

	Rotation    RotationConfig `mapstructure:"rotation"`
	Development bool           `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool `mapstructure:"enable"`
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

type TCPConfig struct {
	Address     string        `mapstructure:"address"`
	Timeout     time.Duration `mapstructure:"timeout"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type SerialConfig struct {
	Port     string `mapstructure:"port"`
	BaudRate int    `mapstructure:"baud_rate"`
	DataBits int    `mapstructure:"data_bits"`
	// Parity: none, odd, even, mark, space
	Parity string `mapstructure:"parity"`
	// StopBits: 1, 1.5, 2
	StopBits string `mapstructure:"stop_bits"`
	// FlowControl: none, software, hardware
	FlowControl string        `mapstructure:"flow_control"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

type EchoConfig struct {
	Listen string `mapstructure:"listen"`
}

// Default returns a Config populated with defaults. Logs go to stderr,
// stdout carries the data.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stderr"},
			Rotation: RotationConfig{
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
		TCP: TCPConfig{
			Address:     "127.0.0.1:50000",
			Timeout:     commpump.DefaultTCPTimeout,
			DialTimeout: 5 * time.Second,
		},
		Serial: SerialConfig{
			BaudRate:    commpump.DefaultBaudRate,
			DataBits:    8,
			Parity:      "none",
			StopBits:    "1",
			FlowControl: "none",
			ReadTimeout: commpump.DefaultSerialReadTimeout,
		},
		Echo: EchoConfig{Listen: ":50000"},
	}
}

// Binding binds a command line flag to a configuration key, a changed flag
// overrides the file and the environment.
type Binding struct {
	Key  string
	Flag *pflag.Flag
}

// Load reads configuration from path (if non-empty), otherwise it searches
// common locations. Environment variables use the prefix COMMPUMP and
// `.`/`-` are replaced with `_`, e.g. COMMPUMP_TCP_ADDRESS.
func Load(path string, binds ...Binding) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("COMMPUMP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// env-only configs need every key known.
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
	v.SetDefault("tcp.address", cfg.TCP.Address)
	v.SetDefault("tcp.timeout", cfg.TCP.Timeout)
	v.SetDefault("tcp.dial_timeout", cfg.TCP.DialTimeout)
	v.SetDefault("serial.port", cfg.Serial.Port)
	v.SetDefault("serial.baud_rate", cfg.Serial.BaudRate)
	v.SetDefault("serial.data_bits", cfg.Serial.DataBits)
	v.SetDefault("serial.parity", cfg.Serial.Parity)
	v.SetDefault("serial.stop_bits", cfg.Serial.StopBits)
	v.SetDefault("serial.flow_control", cfg.Serial.FlowControl)
	v.SetDefault("serial.read_timeout", cfg.Serial.ReadTimeout)
	v.SetDefault("echo.listen", cfg.Echo.Listen)
	v.SetDefault("hex", cfg.Hex)
	v.SetDefault("metrics_address", cfg.MetricsAddress)

	for _, b := range binds {
		if err := v.BindPFlag(b.Key, b.Flag); err != nil {
			return nil, errors.Wrapf(err, "bind flag %s", b.Key)
		}
	}

	if path == "" {
		path = os.Getenv("COMMPUMP_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("commpump")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".commpump"))
		}
	}

	// a missing file leaves defaults and env.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.Errorf("invalid log.level: %q", c.Log.Level)
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Format)) {
	case "", "console", "json":
	default:
		return errors.Errorf("invalid log.format: %q", c.Log.Format)
	}

	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stderr"}
	}
	return nil
}

// Factory returns the transport factory for the tcp section.
func (c TCPConfig) Factory() commpump.TCPConfig {
	return commpump.TCPConfig{
		Address:     c.Address,
		Timeout:     c.Timeout,
		DialTimeout: c.DialTimeout,
	}
}

// Factory returns the transport factory for the serial section. Unknown
// names fail with commpump.ErrInvalidConfig.
func (c SerialConfig) Factory() (commpump.SerialConfig, error) {
	f := commpump.SerialConfig{
		Port:        c.Port,
		BaudRate:    c.BaudRate,
		DataBits:    c.DataBits,
		ReadTimeout: c.ReadTimeout,
	}

	var err error
	if f.Parity, err = parseParity(c.Parity); err != nil {
		return f, err
	}
	if f.StopBits, err = parseStopBits(c.StopBits); err != nil {
		return f, err
	}
	if f.FlowControl, err = parseFlowControl(c.FlowControl); err != nil {
		return f, err
	}
	return f, nil
}

func parseParity(s string) (serial.Parity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "n":
		return serial.NoParity, nil
	case "odd", "o":
		return serial.OddParity, nil
	case "even", "e":
		return serial.EvenParity, nil
	case "mark", "m":
		return serial.MarkParity, nil
	case "space", "s":
		return serial.SpaceParity, nil
	}
	return 0, errors.Wrapf(commpump.ErrInvalidConfig, "parity %q", s)
}

func parseStopBits(s string) (serial.StopBits, error) {
	switch strings.TrimSpace(s) {
	case "", "1":
		return serial.OneStopBit, nil
	case "1.5":
		return serial.OnePointFiveStopBits, nil
	case "2":
		return serial.TwoStopBits, nil
	}
	return 0, errors.Wrapf(commpump.ErrInvalidConfig, "stop bits %q", s)
}

func parseFlowControl(s string) (commpump.FlowControl, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return commpump.FlowNone, nil
	case "software", "xonxoff":
		return commpump.FlowSoftware, nil
	case "hardware", "rtscts":
		return commpump.FlowHardware, nil
	}
	return 0, errors.Wrapf(commpump.ErrInvalidConfig, "flow control %q", s)
}
