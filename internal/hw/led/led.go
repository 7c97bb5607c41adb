// Package led lights an indicator while the URTSii link is up.
package led

import (
	"sync"

	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/debug"
	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/hw/gpio"
	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/logic/urts"
)

// StatusLED follows the connection state reported by the shade controller.
type StatusLED struct {
	driver gpio.Driver
	pin    int

	mu  sync.Mutex
	lit bool
}

// New configures pin as an output, initially off.
func New(driver gpio.Driver, pin int) (*StatusLED, error) {
	if err := driver.SetupOutput(pin); err != nil {
		return nil, err
	}
	return &StatusLED{driver: driver, pin: pin}, nil
}

func (l *StatusLED) ReportConnection(connected bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.driver.Write(l.pin, gpio.Level(connected)); err != nil {
		debug.Errorf(err, "status LED on pin %d", l.pin)
		return
	}
	l.lit = connected
}

func (l *StatusLED) ReportPosition(urts.Address, float64)   {}
func (l *StatusLED) ReportTravelTime(urts.Address, float64) {}

// Lit reports whether the LED is on.
func (l *StatusLED) Lit() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lit
}

// Off turns the LED off, for shutdown.
func (l *StatusLED) Off() {
	l.ReportConnection(false)
}
