// Package button implements the debounce integrator and long-press/
// auto-repeat state machine described for the button engine, plus the
// process-wide Button Manager that runs every registered engine's
// polling and timer logic on one shared worker goroutine.
//
// The algorithm is ported directly from the original carpi daemon's
// GpioButton::_integrate/_update/_onDelay (gpio_button.cpp): a leaky
// integrator turns a noisy digital input into a clean level, and a small
// state machine turns clean level transitions into PRESS/RELEASE/
// LONG_PRESS/LONG_RELEASE events with accelerating auto-repeat.
package button

import (
	"log"
	"time"

	"github.com/larsks/carpid/internal/pin"
)

// Tuning constants, named after the original's config.h macros of the
// same purpose.
const (
	// DebounceTime is the integrator's overall settling window.
	DebounceTime = 50 * time.Millisecond
	// DebounceReadDelay is how often the manager samples each pin.
	// IntegratorMax = DebounceTime / DebounceReadDelay.
	DebounceReadDelay = 1 * time.Millisecond
	// ButtonDelay is the initial long-press/auto-repeat timer interval.
	ButtonDelay = 500 * time.Millisecond
	// ButtonMinDelay floors the auto-repeat acceleration.
	ButtonMinDelay = 50 * time.Millisecond
	// RebounceAccel shrinks the auto-repeat interval on every repeat,
	// per d' = max(d * RebounceAccel, ButtonMinDelay).
	RebounceAccel = 0.75
)

// IntegratorMax is the integrator's clamp ceiling, N in spec terms.
var IntegratorMax = int(DebounceTime / DebounceReadDelay)

// Engine is one button's debounce+state-machine instance. Its fields are
// owned by the Manager worker goroutine once Register has been called;
// callers only ever touch it through Events() and the package-level
// Register/Unregister functions.
type Engine struct {
	name       string
	pin        pin.Pin
	rebounce   bool
	defaultHigh bool

	integrator int
	status     bool // current debounced level, true = high
	long       bool

	delayTimer *time.Timer
	interval   time.Duration

	events chan Event
}

// NewEngine builds an engine reading p. rebounce enables auto-repeat
// (PRESS resent while held); defaultHigh matches the original's
// constructor parameter of the same name: the resting (unpressed) level
// is high when true, low when false.
func NewEngine(name string, p pin.Pin, rebounce, defaultHigh bool) (*Engine, error) {
	if p == nil {
		return nil, ErrPinRequired
	}
	e := &Engine{
		name:        name,
		pin:         p,
		rebounce:    rebounce,
		defaultHigh: defaultHigh,
		status:      defaultHigh,
		events:      make(chan Event, 8),
	}
	if defaultHigh {
		e.integrator = IntegratorMax
	}
	return e, nil
}

// Events returns the channel PRESS/RELEASE/LONG_PRESS/LONG_RELEASE
// transitions are posted to. Like the Notifier, a full channel drops and
// logs rather than blocking the manager's worker goroutine -- see
// (*Engine).emit.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// integrate is GpioButton::_integrate: a leaky counter clamped to
// [0, IntegratorMax]. Below the floor it reports low, above the ceiling
// high, and in between it holds the last reported level.
func (e *Engine) integrate(level bool) bool {
	if level {
		e.integrator++
	} else {
		e.integrator--
	}

	switch {
	case e.integrator <= 0:
		e.integrator = 0
		return false
	case e.integrator >= IntegratorMax:
		e.integrator = IntegratorMax
		return true
	default:
		return e.status
	}
}

// computeNextDelay is GpioButton's free function of the same name:
// d' = max(d * RebounceAccel, ButtonMinDelay).
func computeNextDelay(d time.Duration) time.Duration {
	next := time.Duration(float64(d) * RebounceAccel)
	if next < ButtonMinDelay {
		next = ButtonMinDelay
	}
	return next
}

// tick is GpioButton::_update, called once per DebounceReadDelay by the
// Manager for every registered engine. scheduleDelay/cancelDelay let the
// Manager own the actual timer so every engine's repeat timer fans into
// the same worker goroutine instead of each engine running its own.
func (e *Engine) tick(scheduleDelay func(*Engine, time.Duration), cancelDelay func(*Engine)) {
	level, err := e.pin.Read()
	if err != nil {
		return // transient read error: hold last debounced state
	}

	output := e.integrate(level)
	if output == e.status {
		return
	}
	e.status = output

	active := (output && !e.defaultHigh) || (!output && e.defaultHigh)
	if active {
		e.emit(Press)
		e.interval = ButtonDelay
		scheduleDelay(e, ButtonDelay)
	} else {
		if e.long {
			e.emit(LongRelease)
		} else {
			e.emit(Release)
		}
		cancelDelay(e)
	}
	e.long = false
}

// onDelay is GpioButton::_onDelay: the repeat/long-press timer fired
// while the button is still active.
func (e *Engine) onDelay(scheduleDelay func(*Engine, time.Duration), cancelDelay func(*Engine)) {
	if e.rebounce {
		e.emit(Press)
		next := computeNextDelay(e.interval)
		e.interval = next
		scheduleDelay(e, next)
	} else {
		e.emit(LongPress)
		cancelDelay(e)
	}
	e.long = true
}

func (e *Engine) emit(t EventType) {
	select {
	case e.events <- Event{Button: e.name, Type: t, Time: time.Now()}:
	default:
		// consumer not draining: drop rather than block the shared
		// worker goroutine every other button also depends on.
		log.Printf("button %s: dropped %s event, consumer not draining", e.name, t)
	}
}
