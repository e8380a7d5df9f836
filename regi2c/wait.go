package regi2c

import (
	"errors"

	"github.com/mklimuk/pmbus"
)

type waitState int

const (
	waitPolling waitState = iota
	waitDone
	waitNacked
	waitExpired
)

func (s waitState) String() string {
	switch s {
	case waitPolling:
		return "polling"
	case waitDone:
		return "done"
	case waitNacked:
		return "nacked"
	case waitExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// waiter polls ISR until a target flag is set. It ends in one of three
// terminal states: done, nacked or expired. Flags are left for the engine to
// clear.
type waiter struct {
	periph    Peripheral
	clock     Clock
	flag      Flag
	nackAware bool
	timeout   uint32
	start     uint32
	state     waitState
}

func newWaiter(p Peripheral, c Clock, flag Flag, nackAware bool, timeoutMS uint32) *waiter {
	return &waiter{
		periph:    p,
		clock:     c,
		flag:      flag,
		nackAware: nackAware,
		timeout:   timeoutMS,
		start:     c.Millis(),
	}
}

// step performs one poll and returns the resulting state. Terminal states are
// sticky.
func (w *waiter) step() waitState {
	if w.state != waitPolling {
		return w.state
	}
	status := w.periph.Status()
	switch {
	case w.nackAware && status&FlagNACK != 0:
		w.state = waitNacked
	case status&w.flag != 0:
		w.state = waitDone
	case w.clock.Millis()-w.start > w.timeout:
		w.state = waitExpired
	}
	return w.state
}

func (w *waiter) run() error {
	for {
		switch w.step() {
		case waitDone:
			return nil
		case waitNacked:
			return pmbus.ErrNack
		case waitExpired:
			return pmbus.ErrTimeout
		}
	}
}

func (e *Engine) waitTxEmpty() error {
	return e.wait(FlagTXE)
}

func (e *Engine) waitRxReady() error {
	return e.wait(FlagRXNE)
}

func (e *Engine) waitTransferComplete() error {
	return e.wait(FlagTC)
}

func (e *Engine) wait(flag Flag) error {
	err := newWaiter(e.periph, e.clock, flag, true, e.timeoutMS).run()
	if errors.Is(err, pmbus.ErrNack) {
		e.clearNack()
	}
	return err
}

// clearNack lets the automatic STOP that follows a NACK complete, then clears
// NACKF and STOPF together so neither leaks into the next transaction.
func (e *Engine) clearNack() {
	_ = newWaiter(e.periph, e.clock, FlagSTOP, false, e.timeoutMS).run()
	e.periph.ClearFlags(FlagNACK | FlagSTOP)
}

// waitStop waits for STOPF and clears it. A NACK on the last byte only shows
// up here, next to STOPF.
func (e *Engine) waitStop() error {
	err := newWaiter(e.periph, e.clock, FlagSTOP, false, e.timeoutMS).run()
	if err != nil {
		return err
	}
	if e.periph.Status()&FlagNACK != 0 {
		e.periph.ClearFlags(FlagNACK | FlagSTOP)
		return pmbus.ErrNack
	}
	e.periph.ClearFlags(FlagSTOP)
	return nil
}
