package uart

import (
	"errors"
	"time"
)

// Default link parameters for the classic console setup.
const (
	DefaultBaud        = 115200
	DefaultReadTimeout = 100 * time.Millisecond
)

// ErrClosed is returned for I/O on a port that has been closed.
var ErrClosed = errors.New("uart: port closed")

// Port is the transport the tap pipeline receives from and transmits to.
//
// Read waits at most the port's read timeout and returns (0, nil) when no
// byte arrived in time. The pipeline relies on that to tell a quiet link
// from a broken one: timeouts are free retries, errors get a short pause.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetFlowControl(on bool) error
	Close() error
}

// Config describes how to open a serial device. The link is always
// 8 data bits, no parity, one stop bit.
type Config struct {
	Device      string        // e.g. /dev/ttyUSB0 or COM3
	Baud        int           // defaults to 115200
	ReadTimeout time.Duration // bounded Read wait, defaults to 100ms
}

func (c Config) withDefaults() Config {
	if c.Baud <= 0 {
		c.Baud = DefaultBaud
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	return c
}
