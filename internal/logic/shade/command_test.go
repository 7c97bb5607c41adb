package shade

import (
	"errors"
	"strings"
	"testing"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		verb, arg string
		want      Command
	}{
		{"move", "50", Command{Kind: MoveTo, Percent: 50}},
		{"MOVE_TO", " 0 ", Command{Kind: MoveTo, Percent: 0}},
		{"DON", "", Command{Kind: Open}},
		{"don", "35", Command{Kind: MoveTo, Percent: 35}},
		{"open", "", Command{Kind: Open}},
		{"DOF", "", Command{Kind: Close}},
		{"close", "", Command{Kind: Close}},
		{"stop", "", Command{Kind: Stop}},
		{"BRT", "", Command{Kind: NudgeUp}},
		{"up5", "", Command{Kind: NudgeUp}},
		{"DIM", "", Command{Kind: NudgeDown}},
		{"query", "", Command{Kind: Query}},
		{"set_travel_time", "12.5", Command{Kind: SetTravelTime, Seconds: 12.5}},
		{"75", "", Command{Kind: MoveTo, Percent: 75}},
	}
	for _, tc := range cases {
		t.Run(tc.verb+"_"+tc.arg, func(t *testing.T) {
			got, err := ParseCommand(tc.verb, tc.arg)
			if err != nil {
				t.Fatalf("ParseCommand(%q, %q): %v", tc.verb, tc.arg, err)
			}
			if got != tc.want {
				t.Errorf("ParseCommand(%q, %q) = %+v, want %+v", tc.verb, tc.arg, got, tc.want)
			}
		})
	}
}

func TestParseCommand_Rejected(t *testing.T) {
	cases := []struct {
		verb, arg string
		want      error
	}{
		{"move", "", ErrOutOfRange},
		{"move", "101", ErrOutOfRange},
		{"move", "-5", ErrOutOfRange},
		{"move", "half", ErrOutOfRange},
		{"move", "50.5", ErrOutOfRange},
		{"travel", "75", ErrOutOfRange},
		{"travel", "0", ErrOutOfRange},
		{"travel", "NaN", ErrOutOfRange},
		{"travel", "Inf", ErrOutOfRange},
		{"travel", "8s", ErrOutOfRange},
		{"travel", "", ErrOutOfRange},
		{"tilt", "", ErrUnknownCommand},
		{"", "", ErrUnknownCommand},
		{"150", "", ErrUnknownCommand},
	}
	for _, tc := range cases {
		t.Run(tc.verb+"_"+tc.arg, func(t *testing.T) {
			_, err := ParseCommand(tc.verb, tc.arg)
			if !errors.Is(err, tc.want) {
				t.Errorf("ParseCommand(%q, %q) error = %v, want %v", tc.verb, tc.arg, err, tc.want)
			}
		})
	}
}

func TestParseCommand_ZeroTravelTimeMessage(t *testing.T) {
	_, err := ParseCommand("travel", "0")
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("error = %v, want %v", err, ErrOutOfRange)
	}
	if !strings.Contains(err.Error(), "greater than 0 (exclusive)") {
		t.Errorf("error %q does not say the lower bound is exclusive", err)
	}
}

func TestKindString(t *testing.T) {
	for k := MoveTo; k <= SetTravelTime; k++ {
		if k.String() == "unknown" {
			t.Errorf("Kind(%d) has no name", k)
		}
	}
	if Kind(0).String() != "unknown" {
		t.Errorf("Kind(0).String() = %q", Kind(0).String())
	}
}
