package uart

import (
	"fmt"

	"go.bug.st/serial"
)

// SerialPort is a Port backed by a real serial device.
type SerialPort struct {
	cfg  Config
	port serial.Port
}

// Open opens the device named in cfg as an 8N1 link at cfg.Baud.
// On failure no resource is held.
func Open(cfg Config) (*SerialPort, error) {
	cfg = cfg.withDefaults()
	if cfg.Device == "" {
		return nil, fmt.Errorf("uart: device name required")
	}
	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("uart: open %s: %w", cfg.Device, err)
	}
	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("uart: set read timeout on %s: %w", cfg.Device, err)
	}
	return &SerialPort{cfg: cfg, port: port}, nil
}

// Device returns the device path the port was opened with.
func (p *SerialPort) Device() string { return p.cfg.Device }

// Baud returns the configured baud rate.
func (p *SerialPort) Baud() int { return p.cfg.Baud }

// Read receives up to len(b) bytes, waiting at most the configured read
// timeout. A timeout is reported as (0, nil), not as an error.
func (p *SerialPort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

// Write transmits b.
func (p *SerialPort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// SetFlowControl drives the RTS modem line. The serial library exposes
// manual line control rather than driver-level RTS/CTS handshaking, so
// enabling asserts RTS (ready to receive) and disabling releases it.
// Unsupported platforms or drivers surface their error here.
func (p *SerialPort) SetFlowControl(on bool) error {
	if err := p.port.SetRTS(on); err != nil {
		return fmt.Errorf("uart: set rts on %s: %w", p.cfg.Device, err)
	}
	return nil
}

// Close releases the device.
func (p *SerialPort) Close() error {
	return p.port.Close()
}

// List enumerates the serial devices known to the system.
func List() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("uart: list ports: %w", err)
	}
	return ports, nil
}

var _ Port = (*SerialPort)(nil)
