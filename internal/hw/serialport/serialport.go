// Package serialport carries URTSii frames to the interface, either over a
// local RS-232 port or a network serial bridge (ser2net and similar).
package serialport

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/debug"
)

// DefaultBaudRate matches the URTSii factory setting (9600 8N1).
const DefaultBaudRate = 9600

// ErrNotConnected is returned by Send when no port is open.
var ErrNotConnected = errors.New("serial port not connected")

// Port is the subset of a serial or network connection used for writing frames.
type Port interface {
	Write(p []byte) (int, error)
	Close() error
}

// Opener opens a fresh Port.
type Opener func() (Port, error)

// Config selects the endpoint.
type Config struct {
	// Device is a serial device path ("/dev/ttyUSB0", "COM3") or a network
	// endpoint "tcp://host:port".
	Device       string
	BaudRate     int
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

// Transport owns the single physical channel shared by every shade.
// Writes are serialized.
type Transport struct {
	mu       sync.Mutex
	endpoint string
	open     Opener
	port     Port
}

// New creates a transport for cfg. If mock is true, frames are only logged
// (for development without a URTSii attached). The port is not opened until
// the first Reconnect.
func New(cfg Config, mock bool) *Transport {
	if mock {
		debug.Info("Using MOCK serial transport (development mode)")
		return NewWithOpener("mock", func() (Port, error) { return &MockPort{}, nil })
	}
	if addr, ok := strings.CutPrefix(cfg.Device, "tcp://"); ok {
		return NewWithOpener(cfg.Device, tcpOpener(addr, cfg.DialTimeout, cfg.WriteTimeout))
	}
	return NewWithOpener(cfg.Device, serialOpener(cfg.Device, cfg.BaudRate))
}

// NewWithOpener creates a transport around an arbitrary opener.
func NewWithOpener(endpoint string, open Opener) *Transport {
	return &Transport{endpoint: endpoint, open: open}
}

// Endpoint returns the device path or URL this transport writes to.
func (t *Transport) Endpoint() string {
	return t.endpoint
}

// IsConnected reports whether a port is currently open.
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}

// Reconnect closes any open port and opens a new one.
func (t *Transport) Reconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeLocked()
	p, err := t.open()
	if err != nil {
		debug.Connection(false, t.endpoint)
		return fmt.Errorf("open %s: %w", t.endpoint, err)
	}
	t.port = p
	debug.Connection(true, t.endpoint)
	return nil
}

// Send writes one frame. On a write error the port is closed so the next
// attempt starts from a fresh connection.
func (t *Transport) Send(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return ErrNotConnected
	}
	debug.Frame(t.endpoint, frame)
	n, err := t.port.Write(frame)
	if err == nil && n != len(frame) {
		err = fmt.Errorf("short write: %d of %d bytes", n, len(frame))
	}
	if err != nil {
		if isDisconnectionError(err) {
			debug.Warn("serial device %s disconnected: %v", t.endpoint, err)
		}
		t.closeLocked()
		return fmt.Errorf("write %s: %w", t.endpoint, err)
	}
	return nil
}

// Close releases the port.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeLocked()
}

func (t *Transport) closeLocked() error {
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	return err
}

func serialOpener(device string, baud int) Opener {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	return func() (Port, error) {
		if device == "" {
			return nil, errors.New("serial device not specified")
		}
		return serial.Open(device, &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		})
	}
}

func tcpOpener(addr string, dialTimeout, writeTimeout time.Duration) Opener {
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	if writeTimeout <= 0 {
		writeTimeout = 2 * time.Second
	}
	return func() (Port, error) {
		conn, err := net.DialTimeout("tcp", addr, dialTimeout)
		if err != nil {
			return nil, err
		}
		return &netPort{conn: conn, timeout: writeTimeout}, nil
	}
}

type netPort struct {
	conn    net.Conn
	timeout time.Duration
}

func (p *netPort) Write(b []byte) (int, error) {
	if err := p.conn.SetWriteDeadline(time.Now().Add(p.timeout)); err != nil {
		return 0, err
	}
	return p.conn.Write(b)
}

func (p *netPort) Close() error {
	return p.conn.Close()
}

// MockPort logs frames instead of writing them.
type MockPort struct{}

func (m *MockPort) Write(b []byte) (int, error) {
	debug.Trace("mock serial write %q", b)
	return len(b), nil
}

func (m *MockPort) Close() error {
	debug.Trace("mock serial close")
	return nil
}

// isDisconnectionError reports whether err means the device went away, as
// opposed to a configuration problem.
func isDisconnectionError(err error) bool {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PortNotFound, serial.PortClosed, serial.InvalidSerialPort:
			return true
		default:
			return false
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "input/output error") ||
		strings.Contains(msg, "no such device") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset")
}
