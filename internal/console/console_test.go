package console

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/hw/serialport"
	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/logic/motion/motiontest"
	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/logic/shade"
)

func newController(t *testing.T) (*shade.Controller, *motiontest.FakeClock) {
	t.Helper()
	clock := motiontest.NewFakeClock(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))
	ctrl := shade.NewController(serialport.New(serialport.Config{}, true), shade.Options{Clock: clock})
	t.Cleanup(ctrl.Close)

	closed := 0.0
	require.Empty(t, ctrl.Discover([]shade.ShadeConfig{
		{Address: "01_01_01", Name: "Bedroom", Position: &closed},
		{Address: "01_01_02"},
	}))
	require.NoError(t, ctrl.Connect())
	return ctrl, clock
}

func run(ctrl Controller, line string) (string, bool) {
	var out bytes.Buffer
	quit := Execute(ctrl, &out, line)
	return out.String(), quit
}

func TestExecute_List(t *testing.T) {
	ctrl, _ := newController(t)
	out, quit := run(ctrl, "list")
	assert.False(t, quit)
	assert.Contains(t, out, "URTSii online, 2 shade(s)")
	assert.Contains(t, out, "Bedroom")
	assert.Contains(t, out, "0.0%")
	assert.Contains(t, out, "unknown")
}

func TestExecute_MoveAndStop(t *testing.T) {
	ctrl, clock := newController(t)

	out, _ := run(ctrl, "move 01_01_01 40")
	assert.Contains(t, out, "up to 40%")

	clock.Advance(1600 * time.Millisecond)
	out, _ = run(ctrl, "STOP 1_1_1")
	assert.Contains(t, out, "20.0%")
	assert.Contains(t, out, "idle")

	out, _ = run(ctrl, "travel 01_01_01 12")
	assert.Contains(t, out, "12s")
}

func TestExecute_Errors(t *testing.T) {
	ctrl, _ := newController(t)
	cases := []struct {
		line, want string
	}{
		{"move 01_01_01", "Error:"},
		{"move 01_01_01 101", "out of range"},
		{"up5 01_01_02", "unknown"},
		{"open 01_01_09", "Error:"},
		{"open", "Usage: open <addr>"},
		{"dance", "Unknown command: dance"},
		{"travel 01_01_01 99", "out of range"},
	}
	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			out, quit := run(ctrl, tc.line)
			assert.False(t, quit)
			assert.Contains(t, out, tc.want)
		})
	}
}

func TestExecute_HelpAndExit(t *testing.T) {
	ctrl, _ := newController(t)

	out, quit := run(ctrl, "help")
	assert.False(t, quit)
	assert.Contains(t, out, "travel <addr> <sec>")

	out, quit = run(ctrl, "   ")
	assert.False(t, quit)
	assert.Empty(t, out)

	for _, line := range []string{"exit", "quit", "q"} {
		_, quit = run(ctrl, line)
		assert.True(t, quit, line)
	}
}
