package shade

import (
	"fmt"
	"sync"

	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/debug"
	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/logic/motion"
)

// SendAttempts is the delivery budget per frame: the first try plus two
// reconnect-and-retry rounds.
const SendAttempts = 3

// Transport is the serial channel to the URTSii.
type Transport interface {
	Send(frame []byte) error
	IsConnected() bool
	Reconnect() error
}

type connState int

const (
	connUnknown connState = iota
	connUp
	connDown
)

// link is shared by every shade of a controller.
type link struct {
	transport Transport
	reporter  Reporter
	clock     motion.Clock

	mu    sync.Mutex
	state connState
}

// deliver sends frame, reconnecting before every retry. Exhausting the
// attempts returns ErrTransport.
func (l *link) deliver(frame []byte) error {
	var lastErr error
	for attempt := 1; attempt <= SendAttempts; attempt++ {
		if attempt > 1 || !l.transport.IsConnected() {
			if err := l.transport.Reconnect(); err != nil {
				lastErr = err
				debug.Verbose("attempt %d/%d: reconnect failed: %v", attempt, SendAttempts, err)
				continue
			}
		}
		if err := l.transport.Send(frame); err != nil {
			lastErr = err
			debug.Verbose("attempt %d/%d: send failed: %v", attempt, SendAttempts, err)
			continue
		}
		l.setConnected(true)
		return nil
	}
	l.setConnected(false)
	return fmt.Errorf("%w after %d attempts: %v", ErrTransport, SendAttempts, lastErr)
}

// connect opens the transport if needed and reports the result.
func (l *link) connect() error {
	if l.transport.IsConnected() {
		l.setConnected(true)
		return nil
	}
	if err := l.transport.Reconnect(); err != nil {
		l.setConnected(false)
		return err
	}
	l.setConnected(true)
	return nil
}

func (l *link) connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == connUp
}

// setConnected reports connection changes only.
func (l *link) setConnected(up bool) {
	next := connDown
	if up {
		next = connUp
	}
	l.mu.Lock()
	changed := l.state != next
	l.state = next
	l.mu.Unlock()
	if changed {
		if !up {
			debug.Warn("URTSii connection down")
		}
		l.reporter.ReportConnection(up)
	}
}
