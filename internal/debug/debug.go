package debug

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Debug levels
const (
	LevelOff     = 0 // No output
	LevelInfo    = 1 // Important info (startup, connection state, failures)
	LevelLive    = 2 // Live info (commands sent, positions reached)
	LevelVerbose = 3 // Verbose (run durations, estimator details)
	LevelTrace   = 4 // Trace (raw frames, very low level)
)

var (
	mu     sync.RWMutex
	level  int
	out    io.Writer = os.Stdout
	logger *zerolog.Logger
)

// Init initializes the debug system with a level (0-4).
// 0 = no output
// 1 = important info (startup, connection state, command failures)
// 2 = live info (commands sent, positions reached)
// 3 = verbose (run durations, estimator details)
// 4 = trace (raw serial frames)
func Init(debugLevel int) {
	mu.Lock()
	defer mu.Unlock()
	level = debugLevel
	rebuild()
}

// SetOutput redirects log output (e.g. to an io.MultiWriter including the SSE broadcaster).
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	rebuild()
}

// rebuild must be called with mu held.
func rebuild() {
	if level <= LevelOff {
		logger = nil
		return
	}
	// Gating happens on our own 0-4 level, not on zerolog's.
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	cw := zerolog.ConsoleWriter{Out: out, TimeFormat: time.StampMicro, NoColor: out != os.Stdout}
	l := zerolog.New(cw).Level(zerolog.TraceLevel).With().Timestamp().Str("app", "somfyd").Logger()
	logger = &l
}

// Level returns the current debug level.
func Level() int {
	mu.RLock()
	defer mu.RUnlock()
	return level
}

// IsEnabled returns true if debug level is >= the requested level.
func IsEnabled(minLevel int) bool {
	return Level() >= minLevel
}

// event returns a zerolog event when minLevel is enabled, nil otherwise.
// zerolog treats a nil *Event as a no-op, so callers can chain freely.
func event(minLevel int, zl zerolog.Level) *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	if level < minLevel || logger == nil {
		return nil
	}
	return logger.WithLevel(zl)
}

// --- Level 1 functions (Info): important info ---

// Info prints a level 1 message (important info).
func Info(format string, args ...interface{}) {
	event(LevelInfo, zerolog.InfoLevel).Msgf(format, args...)
}

// Warn prints a level 1 warning.
func Warn(format string, args ...interface{}) {
	event(LevelInfo, zerolog.WarnLevel).Msgf(format, args...)
}

// Summary prints an important summary (level 1).
func Summary(title string) {
	event(LevelInfo, zerolog.InfoLevel).Msg("══ " + title + " ══")
}

// Connection prints a transport connection change (level 1).
func Connection(connected bool, endpoint string) {
	event(LevelInfo, zerolog.InfoLevel).Bool("connected", connected).Str("endpoint", endpoint).Msg("connection state")
}

// --- Level 2 functions (Live): real-time info ---

// Live prints a level 2 message (live info).
func Live(format string, args ...interface{}) {
	event(LevelLive, zerolog.InfoLevel).Msgf(format, args...)
}

// Move prints a shade movement (level 2).
func Move(address string, motion string, d time.Duration) {
	event(LevelLive, zerolog.InfoLevel).Str("shade", address).Str("motion", motion).Dur("run", d).Msg("shade moving")
}

// Position prints a finalized shade position (level 2).
func Position(address string, percent float64) {
	event(LevelLive, zerolog.InfoLevel).Str("shade", address).Float64("position", percent).Msg("shade position")
}

// --- Level 3 functions (Verbose): everything ---

// Verbose prints a level 3 message (verbose).
func Verbose(format string, args ...interface{}) {
	event(LevelVerbose, zerolog.DebugLevel).Msgf(format, args...)
}

// PrintStruct prints a struct in formatted form (level 3).
func PrintStruct(name string, v interface{}) {
	event(LevelVerbose, zerolog.DebugLevel).Msgf("%s: %+v", name, v)
}

// Section prints a section separator (level 3).
func Section(name string) {
	event(LevelVerbose, zerolog.DebugLevel).Msg("━━ " + name + " ━━")
}

// Step prints a numbered step (level 3).
func Step(num int, description string) {
	event(LevelVerbose, zerolog.DebugLevel).Msgf("Step %d: %s", num, description)
}

// Value prints a named value in formatted form (level 1).
func Value(name string, value interface{}) {
	event(LevelInfo, zerolog.InfoLevel).Msgf("  %s = %v", name, value)
}

// --- Level 4 functions (Trace): very low level ---

// Trace prints a level 4 message (trace).
func Trace(format string, args ...interface{}) {
	event(LevelTrace, zerolog.TraceLevel).Msgf(format, args...)
}

// Frame prints a raw frame written to the transport (level 4).
func Frame(endpoint string, frame []byte) {
	event(LevelTrace, zerolog.TraceLevel).Str("endpoint", endpoint).Str("frame", fmt.Sprintf("%q", frame)).Msg("frame")
}

// GPIO prints a GPIO operation (level 4).
func GPIO(operation string, pin int, value interface{}) {
	event(LevelTrace, zerolog.TraceLevel).Str("op", operation).Int("pin", pin).Interface("value", value).Msg("gpio")
}

// --- General functions ---

// Error prints a debug error (level 1+).
func Error(err error) {
	event(LevelInfo, zerolog.ErrorLevel).Err(err).Msg("error")
}

// Errorf prints an error with context (level 1+).
func Errorf(err error, format string, args ...interface{}) {
	event(LevelInfo, zerolog.ErrorLevel).Err(err).Msgf(format, args...)
}
