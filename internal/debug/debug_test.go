package debug

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func capture(t *testing.T, lvl int) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	Init(lvl)
	t.Cleanup(func() { Init(LevelOff) })
	return &buf
}

func TestLevelGating(t *testing.T) {
	cases := []struct {
		name  string
		level int
		emit  func()
		want  bool
	}{
		{"info_at_info", LevelInfo, func() { Info("hello %d", 1) }, true},
		{"live_at_info", LevelInfo, func() { Live("moving") }, false},
		{"live_at_live", LevelLive, func() { Live("moving") }, true},
		{"verbose_at_live", LevelLive, func() { Verbose("detail") }, false},
		{"trace_at_trace", LevelTrace, func() { Frame("mock", []byte("0101U\r")) }, true},
		{"error_at_off", LevelOff, func() { Error(errors.New("boom")) }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := capture(t, tc.level)
			tc.emit()
			if got := buf.Len() > 0; got != tc.want {
				t.Errorf("output written = %v, want %v (output %q)", got, tc.want, buf.String())
			}
		})
	}
}

func TestIsEnabled(t *testing.T) {
	capture(t, LevelVerbose)
	if !IsEnabled(LevelLive) {
		t.Error("IsEnabled(LevelLive) = false at verbose level")
	}
	if IsEnabled(LevelTrace) {
		t.Error("IsEnabled(LevelTrace) = true at verbose level")
	}
	if Level() != LevelVerbose {
		t.Errorf("Level() = %d, want %d", Level(), LevelVerbose)
	}
}

func TestPositionFields(t *testing.T) {
	buf := capture(t, LevelLive)
	Position("01_01_03", 42.5)
	out := buf.String()
	if !strings.Contains(out, "01_01_03") || !strings.Contains(out, "42.5") {
		t.Errorf("position log missing fields: %q", out)
	}
}
