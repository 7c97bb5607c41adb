// Package position infers shade position from elapsed motor run time.
// Nothing here does I/O.
package position

import (
	"math"
	"time"

	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/logic/urts"
)

// Position is percent open, 0 (closed) to 100 (open), or Unknown.
type Position float64

// Unknown marks a shade that has never been driven to a reference point.
const Unknown Position = -1

const (
	Closed Position = 0
	Open   Position = 100
)

// Known reports whether p is a real percentage.
func (p Position) Known() bool {
	return p >= Closed
}

// Clamp bounds a known position to [0,100]. Unknown is returned unchanged.
func (p Position) Clamp() Position {
	if !p.Known() {
		return p
	}
	return Position(math.Max(float64(Closed), math.Min(float64(Open), float64(p))))
}

// TimeToTravel returns how long the motor must run to go from current to
// target. An unknown shade always needs a full run: it is driven closed first.
func TimeToTravel(current, target Position, travel time.Duration) time.Duration {
	if !current.Known() {
		return travel
	}
	frac := math.Abs(float64(target.Clamp()-current)) / float64(Open)
	return time.Duration(frac * float64(travel))
}

// Estimate returns the position reached at now after running last since lastAt,
// starting from prior.
func Estimate(last urts.Motion, lastAt time.Time, travel time.Duration, prior Position, now time.Time) Position {
	if last != urts.Up && last != urts.Down {
		return prior
	}
	elapsed := now.Sub(lastAt)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed >= travel {
		if last == urts.Up {
			return Open
		}
		return Closed
	}
	if elapsed == 0 || !prior.Known() {
		return prior
	}
	delta := Position(elapsed.Seconds() / travel.Seconds() * float64(Open))
	if last == urts.Down {
		delta = -delta
	}
	return (prior + delta).Clamp()
}

// Direction returns the motion needed to go from current to target.
// Unknown shades are always sent Down first.
func Direction(current, target Position) urts.Motion {
	switch {
	case !current.Known():
		return urts.Down
	case target > current:
		return urts.Up
	case target < current:
		return urts.Down
	default:
		return urts.None
	}
}
