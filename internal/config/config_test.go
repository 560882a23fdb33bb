package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"go.bug.st/serial"
	"gotest.tools/v3/assert"

	"github.com/someonegg/commpump"
)

func writeConfig(test *testing.T, s string) string {
	path := filepath.Join(test.TempDir(), "commpump.yaml")
	assert.NilError(test, os.WriteFile(path, []byte(s), 0o644))
	return path
}

func TestLoadDefaults(test *testing.T) {
	test.Setenv("HOME", test.TempDir())
	test.Setenv("COMMPUMP_CONFIG", "")

	cfg, err := Load("")
	assert.NilError(test, err)
	assert.DeepEqual(test, cfg, Default())
}

func TestLoadFile(test *testing.T) {
	path := writeConfig(test, `
log:
  level: debug
  format: json
tcp:
  address: 10.0.0.1:7000
  timeout: 20ms
serial:
  port: /dev/ttyUSB0
  parity: even
  stop_bits: "2"
hex: true
`)

	cfg, err := Load(path)
	assert.NilError(test, err)
	assert.Equal(test, cfg.Log.Level, "debug")
	assert.Equal(test, cfg.Log.Format, "json")
	assert.DeepEqual(test, cfg.Log.Outputs, []string{"stderr"})
	assert.Equal(test, cfg.TCP.Address, "10.0.0.1:7000")
	assert.Equal(test, cfg.TCP.Timeout, 20*time.Millisecond)
	assert.Equal(test, cfg.TCP.DialTimeout, 5*time.Second)
	assert.Equal(test, cfg.Serial.BaudRate, commpump.DefaultBaudRate)
	assert.Assert(test, cfg.Hex)

	f, err := cfg.Serial.Factory()
	assert.NilError(test, err)
	assert.Equal(test, f.Port, "/dev/ttyUSB0")
	assert.Equal(test, f.Parity, serial.EvenParity)
	assert.Equal(test, f.StopBits, serial.TwoStopBits)
	assert.Equal(test, f.FlowControl, commpump.FlowNone)
}

func TestLoadEnvAndFlags(test *testing.T) {
	path := writeConfig(test, "tcp:\n  address: file:1\n")
	test.Setenv("COMMPUMP_TCP_ADDRESS", "env:2")
	test.Setenv("COMMPUMP_SERIAL_BAUD_RATE", "9600")

	cfg, err := Load(path)
	assert.NilError(test, err)
	assert.Equal(test, cfg.TCP.Address, "env:2")
	assert.Equal(test, cfg.Serial.BaudRate, 9600)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("address", "", "")
	fs.Duration("timeout", 0, "")
	assert.NilError(test, fs.Parse([]string{"--address", "flag:3"}))

	cfg, err = Load(path,
		Binding{Key: "tcp.address", Flag: fs.Lookup("address")},
		Binding{Key: "tcp.timeout", Flag: fs.Lookup("timeout")},
	)
	assert.NilError(test, err)
	assert.Equal(test, cfg.TCP.Address, "flag:3")
	// unchanged flags keep the configured value.
	assert.Equal(test, cfg.TCP.Timeout, commpump.DefaultTCPTimeout)

	tf := cfg.TCP.Factory()
	assert.Equal(test, tf.Address, "flag:3")
}

func TestLoadInvalid(test *testing.T) {
	_, err := Load(writeConfig(test, "log:\n  level: loud\n"))
	assert.ErrorContains(test, err, "invalid log.level")

	_, err = Load(writeConfig(test, "log: [\n"))
	assert.ErrorContains(test, err, "read config")

	_, err = Load(filepath.Join(test.TempDir(), "missing.yaml"))
	assert.ErrorContains(test, err, "read config")
}

func TestSerialFactoryInvalid(test *testing.T) {
	for _, c := range []SerialConfig{
		{Parity: "bogus"},
		{StopBits: "3"},
		{FlowControl: "magic"},
	} {
		_, err := c.Factory()
		assert.Assert(test, errors.Is(err, commpump.ErrInvalidConfig), "%+v", c)
	}

	f, err := SerialConfig{FlowControl: "rtscts"}.Factory()
	assert.NilError(test, err)
	assert.Equal(test, f.FlowControl, commpump.FlowHardware)
}
