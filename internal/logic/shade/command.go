package shade

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind enumerates the commands a host can issue to a shade.
type Kind int

const (
	MoveTo Kind = iota + 1
	Open
	Close
	Stop
	NudgeUp
	NudgeDown
	Query
	SetTravelTime
)

func (k Kind) String() string {
	switch k {
	case MoveTo:
		return "move"
	case Open:
		return "open"
	case Close:
		return "close"
	case Stop:
		return "stop"
	case NudgeUp:
		return "up5"
	case NudgeDown:
		return "down5"
	case Query:
		return "query"
	case SetTravelTime:
		return "travel"
	default:
		return "unknown"
	}
}

// Command is one host request. Percent is used by MoveTo, Seconds by
// SetTravelTime.
type Command struct {
	Kind    Kind
	Percent int
	Seconds float64
}

// ParseCommand validates a textual verb and optional argument, as received
// from MQTT payloads, the HTTP API or the console.
func ParseCommand(verb, arg string) (Command, error) {
	verb = strings.ToLower(strings.TrimSpace(verb))
	arg = strings.TrimSpace(arg)
	switch verb {
	case "move", "move_to", "don", "on":
		if arg == "" {
			if verb == "don" || verb == "on" {
				return Command{Kind: Open}, nil
			}
			return Command{}, fmt.Errorf("%w: %s needs a percent", ErrOutOfRange, verb)
		}
		pct, err := ParsePercent(arg)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: MoveTo, Percent: pct}, nil
	case "open", "up":
		return Command{Kind: Open}, nil
	case "close", "down", "dof", "off":
		return Command{Kind: Close}, nil
	case "stop":
		return Command{Kind: Stop}, nil
	case "up5", "brt", "nudge_up":
		return Command{Kind: NudgeUp}, nil
	case "down5", "dim", "nudge_down":
		return Command{Kind: NudgeDown}, nil
	case "query":
		return Command{Kind: Query}, nil
	case "travel", "travel_time", "set_travel_time":
		sec, err := ParseTravelTime(arg)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: SetTravelTime, Seconds: sec}, nil
	}
	// A bare number is a move.
	if verb != "" && arg == "" {
		if pct, err := ParsePercent(verb); err == nil {
			return Command{Kind: MoveTo, Percent: pct}, nil
		}
	}
	return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, verb)
}

// ParsePercent accepts an integer in [0,100].
func ParsePercent(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: percent %q is not an integer", ErrOutOfRange, s)
	}
	if n < 0 || n > 100 {
		return 0, fmt.Errorf("%w: percent %d not in 0-100", ErrOutOfRange, n)
	}
	return n, nil
}

// ParseTravelTime accepts a finite number of seconds in (0, MaxTravelTime].
func ParseTravelTime(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: travel time %q is not a number", ErrOutOfRange, s)
	}
	if err := validateTravelTime(v); err != nil {
		return 0, err
	}
	return v, nil
}

func validateTravelTime(seconds float64) error {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 || seconds > MaxTravelTime {
		return fmt.Errorf("%w: travel time %g must be greater than 0 (exclusive) and at most %g seconds", ErrOutOfRange, seconds, MaxTravelTime)
	}
	return nil
}
