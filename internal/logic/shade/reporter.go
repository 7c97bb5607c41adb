package shade

import "github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/logic/urts"

// Reporter receives one-way status pushes. Implementations must not block:
// they are called with a shade's lock held.
type Reporter interface {
	ReportPosition(addr urts.Address, percent float64)
	ReportTravelTime(addr urts.Address, seconds float64)
	ReportConnection(connected bool)
}

// Reporters fans a status push out to several sinks.
type Reporters []Reporter

func (rs Reporters) ReportPosition(addr urts.Address, percent float64) {
	for _, r := range rs {
		r.ReportPosition(addr, percent)
	}
}

func (rs Reporters) ReportTravelTime(addr urts.Address, seconds float64) {
	for _, r := range rs {
		r.ReportTravelTime(addr, seconds)
	}
}

func (rs Reporters) ReportConnection(connected bool) {
	for _, r := range rs {
		r.ReportConnection(connected)
	}
}

type nopReporter struct{}

func (nopReporter) ReportPosition(urts.Address, float64)   {}
func (nopReporter) ReportTravelTime(urts.Address, float64) {}
func (nopReporter) ReportConnection(bool)                  {}
