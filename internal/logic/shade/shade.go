// Package shade sequences motor runs for Somfy shades that have no position
// feedback. Each Shade infers where it is from how long the motor has been
// running and in which direction, and finishes every run with a timer.
package shade

import (
	"fmt"
	"sync"
	"time"

	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/debug"
	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/logic/motion"
	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/logic/position"
	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/logic/urts"
)

const (
	// DefaultTravelTime is used when no travel time is configured for a shade.
	DefaultTravelTime = 8.0
	// MaxTravelTime bounds SetTravelTime, in seconds.
	MaxTravelTime = 60.0
	// NudgeStep is how far NudgeUp and NudgeDown move, in percent.
	NudgeStep = 5
)

// Status is a snapshot of one shade.
type Status struct {
	Address    string  `json:"address"`
	Name       string  `json:"name,omitempty"`
	Known      bool    `json:"known"`
	Position   float64 `json:"position"` // -1 when unknown
	TravelTime float64 `json:"travel_time"`
	Moving     bool    `json:"moving"`
	Motion     string  `json:"motion"`
	Target     float64 `json:"target,omitempty"`
}

// Shade is one motorized covering on one URTSii channel.
type Shade struct {
	addr urts.Address
	name string
	link *link

	mu sync.Mutex
	// position is the estimate committed at lastCommandTime.
	position        position.Position
	travel          time.Duration
	lastCommand     urts.Motion
	lastCommandTime time.Time
	// runTravel is the travel time in effect when the current run started.
	runTravel time.Duration
	target    position.Position
	timer     *motion.Timer
}

func newShade(addr urts.Address, name string, travel time.Duration, seed position.Position, l *link) *Shade {
	s := &Shade{
		addr:            addr,
		name:            name,
		link:            l,
		position:        seed,
		travel:          travel,
		lastCommandTime: l.clock.Now(),
		target:          position.Unknown,
	}
	s.timer = motion.NewTimer(l.clock, &s.mu)
	return s
}

// Address returns the shade's channel address.
func (s *Shade) Address() urts.Address { return s.addr }

// Name returns the display name.
func (s *Shade) Name() string { return s.name }

// MoveTo drives the shade to percent open (0-100).
func (s *Shade) MoveTo(percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%w: percent %d not in 0-100", ErrOutOfRange, percent)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	debug.Live("%s: move to %d%%", s.addr, percent)
	return s.moveTo(position.Position(percent))
}

// Open drives the shade fully open.
func (s *Shade) Open() error { return s.MoveTo(100) }

// Close drives the shade fully closed.
func (s *Shade) Close() error { return s.MoveTo(0) }

// NudgeUp opens the shade a further NudgeStep percent.
func (s *Shade) NudgeUp() error { return s.nudge(NudgeStep) }

// NudgeDown closes the shade a further NudgeStep percent.
func (s *Shade) NudgeDown() error { return s.nudge(-NudgeStep) }

func (s *Shade) nudge(delta position.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.estimate(s.link.clock.Now())
	if !current.Known() {
		debug.Warn("%s: nudge rejected, position not known", s.addr)
		return fmt.Errorf("%s: %w: issue an absolute move first", s.addr, ErrPositionUnknown)
	}
	return s.moveTo((current + delta).Clamp())
}

// Stop halts the shade where it is and records the position reached. If the
// Stop frame cannot be delivered the motor keeps going, so any run in
// progress and its timer are left as they are.
func (s *Shade) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	debug.Live("%s: stop", s.addr)
	if err := s.send(urts.Stop); err != nil {
		return err
	}
	s.finalize()
	return nil
}

// SetTravelTime sets the full-travel duration in seconds. A run already in
// progress keeps the duration it was started with.
func (s *Shade) SetTravelTime(seconds float64) error {
	if err := validateTravelTime(seconds); err != nil {
		debug.Warn("%s: travel time rejected: %v", s.addr, err)
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.travel = secondsToDuration(seconds)
	debug.Info("%s: travel time set to %gs", s.addr, seconds)
	s.link.reporter.ReportTravelTime(s.addr, seconds)
	return nil
}

// TravelTime returns the configured full-travel duration.
func (s *Shade) TravelTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.travel
}

// Query refreshes the estimate, pushes it to the host and returns it.
// It does not change the shade's state.
func (s *Shade) Query() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status(s.link.clock.Now())
	if st.Known {
		s.link.reporter.ReportPosition(s.addr, st.Position)
	}
	s.link.reporter.ReportTravelTime(s.addr, st.TravelTime)
	return st
}

// Status returns a snapshot without reporting it.
func (s *Shade) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status(s.link.clock.Now())
}

// shutdown cancels any pending timer.
func (s *Shade) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timer.Cancel()
}

// moveTo must be called with mu held.
func (s *Shade) moveTo(target position.Position) error {
	wasMoving := s.finalize()
	current := s.position

	switch {
	case target <= position.Closed:
		return s.run(urts.Down, position.TimeToTravel(current, position.Closed, s.travel), position.Closed, s.finishRun)
	case target >= position.Open:
		return s.run(urts.Up, position.TimeToTravel(current, position.Open, s.travel), position.Open, s.finishRun)
	case !current.Known():
		// Close fully to get a reference point, then go to target from there.
		return s.run(urts.Down, s.travel, target, func() {
			s.settle(position.Closed)
			if err := s.moveTo(target); err != nil {
				debug.Errorf(err, "%s: follow-up move to %.0f%% failed", s.addr, float64(target))
			}
		})
	}

	dir := position.Direction(current, target)
	if dir == urts.None {
		if wasMoving {
			return s.send(urts.Stop)
		}
		return nil
	}
	return s.run(dir, position.TimeToTravel(current, target, s.travel), target, s.stopAtTarget)
}

// run sends m and arms the timer to call after once d has elapsed. If the
// command cannot be delivered nothing is armed and the position stands.
func (s *Shade) run(m urts.Motion, d time.Duration, target position.Position, after func()) error {
	if err := s.send(m); err != nil {
		return err
	}
	s.lastCommand = m
	s.lastCommandTime = s.link.clock.Now()
	s.runTravel = s.travel
	s.target = target
	debug.Move(s.addr.String(), m.String(), d)
	s.timer.Arm(d, after)
	return nil
}

// finishRun runs when the motor has reached an end stop by itself.
func (s *Shade) finishRun() {
	s.settle(endStop(s.lastCommand))
}

// stopAtTarget runs when a partial run should have reached its target. If
// the Stop is lost the motor carries on, so the run is extended to the end
// stop in its direction instead.
func (s *Shade) stopAtTarget() {
	if err := s.send(urts.Stop); err != nil {
		debug.Errorf(err, "%s: stop at target failed, following run to end stop", s.addr)
		end := endStop(s.lastCommand)
		s.target = end
		s.timer.Arm(position.TimeToTravel(s.estimate(s.link.clock.Now()), end, s.runTravel), s.finishRun)
		return
	}
	s.settle(s.target)
}

// settle ends a run the timer saw through. The shade is where the run was
// planned to take it, however late the timer fired. Must be called with mu
// held.
func (s *Shade) settle(landing position.Position) {
	s.commit(landing, s.link.clock.Now())
}

// finalize commits the estimate up to now and ends any run. It reports
// whether a run was in progress. Must be called with mu held.
func (s *Shade) finalize() bool {
	now := s.link.clock.Now()
	wasMoving := s.lastCommand == urts.Up || s.lastCommand == urts.Down
	s.commit(s.estimate(now), now)
	return wasMoving
}

func (s *Shade) commit(p position.Position, at time.Time) {
	s.timer.Cancel()
	s.position = p
	s.lastCommand = urts.None
	s.lastCommandTime = at
	s.target = position.Unknown
	if s.position.Known() {
		debug.Position(s.addr.String(), float64(s.position))
		s.link.reporter.ReportPosition(s.addr, float64(s.position))
	}
}

func endStop(m urts.Motion) position.Position {
	if m == urts.Up {
		return position.Open
	}
	return position.Closed
}

func (s *Shade) estimate(now time.Time) position.Position {
	return position.Estimate(s.lastCommand, s.lastCommandTime, s.runTravel, s.position, now)
}

func (s *Shade) send(m urts.Motion) error {
	frame, err := s.addr.Frame(m)
	if err != nil {
		debug.Errorf(err, "%s: encode %v", s.addr, m)
		return err
	}
	if err := s.link.deliver(frame); err != nil {
		debug.Errorf(err, "%s: send %v", s.addr, m)
		return fmt.Errorf("%s %v: %w", s.addr, m, err)
	}
	return nil
}

func (s *Shade) status(now time.Time) Status {
	p := s.estimate(now)
	st := Status{
		Address:    s.addr.String(),
		Name:       s.name,
		Known:      p.Known(),
		Position:   float64(p),
		TravelTime: s.travel.Seconds(),
		Moving:     s.timer.Pending(),
		Motion:     urts.None.String(),
	}
	if st.Moving {
		st.Motion = s.lastCommand.String()
		if s.target.Known() {
			st.Target = float64(s.target)
		}
	}
	return st
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
