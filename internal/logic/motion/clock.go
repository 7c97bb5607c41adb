package motion

import "time"

// Stopper cancels a scheduled callback. Stop reports whether it prevented the call.
type Stopper interface {
	Stop() bool
}

// Clock is the time source for motion timing. Tests substitute
// motiontest.FakeClock so runs can be driven without sleeping.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Stopper
}

// SystemClock uses the wall clock and time.AfterFunc.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}
