package regi2c

import "time"

// Clock is a monotonic millisecond tick source. Tick values may wrap.
type Clock interface {
	Millis() uint32
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() uint32

func (f ClockFunc) Millis() uint32 {
	return f()
}

// SystemClock counts milliseconds since its creation using the runtime's
// monotonic clock.
type SystemClock struct {
	start time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

func (c *SystemClock) Millis() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}
