package shade

import (
	"fmt"
	"sort"
	"sync"

	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/debug"
	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/logic/motion"
	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/logic/position"
	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/logic/urts"
)

// Options tune a Controller. Zero values select defaults.
type Options struct {
	Clock    motion.Clock
	Reporter Reporter
	// DefaultTravelTime in seconds for shades added without one.
	DefaultTravelTime float64
}

// ShadeConfig describes one shade to add.
type ShadeConfig struct {
	Address    string
	Name       string
	TravelTime float64  // seconds; 0 selects the controller default
	Position   *float64 // seed position; nil means unknown
}

// Controller owns every shade behind one URTSii and the transport they share.
// It is the top-level entry point for hosts.
type Controller struct {
	link          *link
	defaultTravel float64

	mu     sync.RWMutex
	shades map[string]*Shade
}

// NewController builds a controller writing to t.
func NewController(t Transport, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = motion.SystemClock{}
	}
	if opts.Reporter == nil {
		opts.Reporter = nopReporter{}
	}
	if opts.DefaultTravelTime == 0 {
		opts.DefaultTravelTime = DefaultTravelTime
	}
	return &Controller{
		link:          &link{transport: t, reporter: opts.Reporter, clock: opts.Clock},
		defaultTravel: opts.DefaultTravelTime,
		shades:        make(map[string]*Shade),
	}
}

// Connect opens the transport and reports the connection state.
func (c *Controller) Connect() error {
	return c.link.connect()
}

// Connected reports the last known connection state.
func (c *Controller) Connected() bool {
	return c.link.connected()
}

// Add creates a shade. The travel time and seed position are validated.
func (c *Controller) Add(cfg ShadeConfig) (*Shade, error) {
	addr, err := urts.ParseAddress(cfg.Address)
	if err != nil {
		return nil, err
	}
	travel := cfg.TravelTime
	if travel == 0 {
		travel = c.defaultTravel
	}
	if err := validateTravelTime(travel); err != nil {
		return nil, fmt.Errorf("shade %s: %w", addr, err)
	}
	seed := position.Unknown
	if cfg.Position != nil {
		if *cfg.Position < 0 || *cfg.Position > 100 {
			return nil, fmt.Errorf("shade %s: %w: seed position %g", addr, ErrOutOfRange, *cfg.Position)
		}
		seed = position.Position(*cfg.Position)
	}
	name := cfg.Name
	if name == "" {
		name = "Shade " + addr.String()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	key := addr.String()
	if _, ok := c.shades[key]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateShade, key)
	}
	s := newShade(addr, name, secondsToDuration(travel), seed, c.link)
	c.shades[key] = s
	debug.Verbose("added %s (%s) travel=%gs", key, name, travel)
	return s, nil
}

// Discover adds every configured shade that does not exist yet. Invalid
// entries are skipped and returned as errors.
func (c *Controller) Discover(cfgs []ShadeConfig) []error {
	var errs []error
	for _, cfg := range cfgs {
		if addr, err := urts.ParseAddress(cfg.Address); err == nil {
			if _, err := c.Shade(addr.String()); err == nil {
				continue
			}
		}
		s, err := c.Add(cfg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s.Query()
	}
	return errs
}

// Remove cancels a shade's timer and forgets it.
func (c *Controller) Remove(address string) error {
	key, err := normalize(address)
	if err != nil {
		return err
	}
	c.mu.Lock()
	s, ok := c.shades[key]
	delete(c.shades, key)
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownShade, key)
	}
	s.shutdown()
	return nil
}

// Shade looks up a shade by address.
func (c *Controller) Shade(address string) (*Shade, error) {
	key, err := normalize(address)
	if err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.shades[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownShade, key)
	}
	return s, nil
}

// Shades returns all shades ordered by address.
func (c *Controller) Shades() []*Shade {
	c.mu.RLock()
	out := make([]*Shade, 0, len(c.shades))
	for _, s := range c.shades {
		out = append(out, s)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].addr.String() < out[j].addr.String() })
	return out
}

// QueryAll queries every shade and re-reports the connection state.
func (c *Controller) QueryAll() []Status {
	shades := c.Shades()
	out := make([]Status, 0, len(shades))
	for _, s := range shades {
		out = append(out, s.Query())
	}
	c.link.reporter.ReportConnection(c.link.connected())
	return out
}

// Dispatch runs cmd against the shade at address and returns its status afterwards.
func (c *Controller) Dispatch(address string, cmd Command) (Status, error) {
	s, err := c.Shade(address)
	if err != nil {
		return Status{}, err
	}
	switch cmd.Kind {
	case MoveTo:
		err = s.MoveTo(cmd.Percent)
	case Open:
		err = s.Open()
	case Close:
		err = s.Close()
	case Stop:
		err = s.Stop()
	case NudgeUp:
		err = s.NudgeUp()
	case NudgeDown:
		err = s.NudgeDown()
	case Query:
		return s.Query(), nil
	case SetTravelTime:
		err = s.SetTravelTime(cmd.Seconds)
	default:
		return Status{}, fmt.Errorf("%w: %v", ErrUnknownCommand, cmd.Kind)
	}
	return s.Status(), err
}

// Close cancels every pending timer. Shades keep their last estimate.
func (c *Controller) Close() {
	for _, s := range c.Shades() {
		s.shutdown()
	}
}

func normalize(address string) (string, error) {
	addr, err := urts.ParseAddress(address)
	if err != nil {
		return "", err
	}
	return addr.String(), nil
}
