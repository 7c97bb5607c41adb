package position

import (
	"testing"
	"time"

	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/logic/urts"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestTimeToTravel(t *testing.T) {
	cases := []struct {
		name            string
		current, target Position
		travel          time.Duration
		want            time.Duration
	}{
		{"unknown_full_run", Unknown, 50, 10 * time.Second, 10 * time.Second},
		{"half_up", 30, 80, 8 * time.Second, 4 * time.Second},
		{"half_down", 80, 30, 8 * time.Second, 4 * time.Second},
		{"to_closed", 25, 0, 8 * time.Second, 2 * time.Second},
		{"target_clamped", 50, 150, 10 * time.Second, 5 * time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TimeToTravel(tc.current, tc.target, tc.travel); got != tc.want {
				t.Errorf("TimeToTravel(%v, %v, %v) = %v, want %v", tc.current, tc.target, tc.travel, got, tc.want)
			}
		})
	}
}

func TestTimeToTravel_SamePositionIsZero(t *testing.T) {
	for _, travel := range []time.Duration{time.Second, 8 * time.Second, 60 * time.Second} {
		for p := Position(0); p <= 100; p += 5 {
			if got := TimeToTravel(p, p, travel); got != 0 {
				t.Errorf("TimeToTravel(%v, %v, %v) = %v, want 0", p, p, travel, got)
			}
		}
	}
}

func TestEstimate_FullTravelIsExact(t *testing.T) {
	for _, travel := range []time.Duration{500 * time.Millisecond, 8 * time.Second, 37 * time.Second} {
		for _, prior := range []Position{Unknown, 0, 12.5, 50, 99, 100} {
			now := t0.Add(travel)
			if got := Estimate(urts.Down, t0, travel, prior, now); got != Closed {
				t.Errorf("Down travel=%v prior=%v: got %v, want 0", travel, prior, got)
			}
			if got := Estimate(urts.Up, t0, travel, prior, now); got != Open {
				t.Errorf("Up travel=%v prior=%v: got %v, want 100", travel, prior, got)
			}
		}
	}
}

func TestEstimate_Proportional(t *testing.T) {
	cases := []struct {
		name    string
		last    urts.Motion
		prior   Position
		elapsed time.Duration
		want    Position
	}{
		{"up_quarter", urts.Up, 40, 2 * time.Second, 65},
		{"down_half", urts.Down, 80, 4 * time.Second, 30},
		{"up_clamped", urts.Up, 90, 4 * time.Second, 100},
		{"down_clamped", urts.Down, 10, 4 * time.Second, 0},
		{"up_from_zero", urts.Up, 0, 2 * time.Second, 25},
		{"no_elapsed", urts.Up, 40, 0, 40},
		{"unknown_partial", urts.Down, Unknown, 4 * time.Second, Unknown},
		{"no_command", urts.None, 40, 6 * time.Second, 40},
		{"stop_is_no_motion", urts.Stop, 40, 20 * time.Second, 40},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Estimate(tc.last, t0, 8*time.Second, tc.prior, t0.Add(tc.elapsed))
			if got != tc.want {
				t.Errorf("Estimate = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEstimate_ClockSkewTreatedAsZero(t *testing.T) {
	got := Estimate(urts.Up, t0, 8*time.Second, 40, t0.Add(-time.Minute))
	if got != 40 {
		t.Errorf("Estimate with now before lastAt = %v, want 40", got)
	}
}

func TestEstimate_Monotonic(t *testing.T) {
	travel := 8 * time.Second
	prevUp, prevDown := Position(-1), Position(101)
	for ms := 0; ms <= 10000; ms += 137 {
		now := t0.Add(time.Duration(ms) * time.Millisecond)
		up := Estimate(urts.Up, t0, travel, 20, now)
		down := Estimate(urts.Down, t0, travel, 70, now)
		if up < prevUp {
			t.Fatalf("up estimate decreased at %dms: %v < %v", ms, up, prevUp)
		}
		if down > prevDown {
			t.Fatalf("down estimate increased at %dms: %v > %v", ms, down, prevDown)
		}
		prevUp, prevDown = up, down
	}
}

func TestDirection(t *testing.T) {
	cases := []struct {
		current, target Position
		want            urts.Motion
	}{
		{Unknown, 80, urts.Down},
		{30, 80, urts.Up},
		{80, 30, urts.Down},
		{50, 50, urts.None},
	}
	for _, tc := range cases {
		if got := Direction(tc.current, tc.target); got != tc.want {
			t.Errorf("Direction(%v, %v) = %v, want %v", tc.current, tc.target, got, tc.want)
		}
	}
}
