// Package led implements the status LED controller: on, off, and two
// blink speeds, each driven by a dedicated worker goroutine when
// blinking. ON/OFF/BLINK_SLOWLY/BLINK_QUICKLY at 300ms/50ms.
package led

import (
	"sync"
	"time"

	"github.com/larsks/carpid/internal/notifier"
	"github.com/larsks/carpid/internal/pin"
)

// Mode is the LED's current display mode.
type Mode int

const (
	Off Mode = iota
	On
	BlinkSlowly
	BlinkQuickly
)

// Toggle periods, named after Led::SLOW_TIME/QUICK_TIME in the original
// (microseconds there, time.Duration here).
const (
	SlowPeriod = 300 * time.Millisecond
	QuickPeriod = 50 * time.Millisecond
)

// stopTimeout bounds how long Stop waits for the blink worker to exit,
// matching the original's 3-second pthread_join budget on shutdown.
const stopTimeout = 3 * time.Second

// Controller drives one pin.Pin as a status LED.
type Controller struct {
	p pin.Pin

	mu      sync.Mutex
	mode    Mode
	running bool

	modeChange *notifier.Notifier
	stopCh     chan struct{}
	doneCh     chan struct{}
}

// New creates a Controller over p, initially off.
func New(p pin.Pin) (*Controller, error) {
	if p == nil {
		return nil, ErrPinRequired
	}
	return &Controller{
		p:          p,
		mode:       Off,
		modeChange: notifier.New("led-mode"),
	}, nil
}

// On stops any running blink worker and lights the LED solidly.
func (c *Controller) On() error {
	return c.setSolid(On, true)
}

// Off stops any running blink worker and turns the LED off.
func (c *Controller) Off() error {
	return c.setSolid(Off, false)
}

func (c *Controller) setSolid(mode Mode, level bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.stopWorkerLocked(); err != nil {
		return err
	}
	c.mode = mode
	return c.p.Write(level)
}

// BlinkSlowly switches to the 300ms blink mode, starting a worker if one
// isn't already running, or reprogramming the running one otherwise --
// a running worker preserves time remaining in the current half-cycle
// when that is longer than the new period, and otherwise toggles the pin
// at once.
func (c *Controller) BlinkSlowly() error {
	return c.setBlink(BlinkSlowly)
}

// BlinkQuickly switches to the 50ms blink mode, same semantics as
// BlinkSlowly.
func (c *Controller) BlinkQuickly() error {
	return c.setBlink(BlinkQuickly)
}

func (c *Controller) setBlink(mode Mode) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		c.mode = mode
		c.modeChange.Send(byte(mode))
		return nil
	}

	c.mode = mode
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	c.running = true
	go c.blinkLoop(mode, c.stopCh, c.doneCh)
	return nil
}

// Stop halts any running blink worker, waiting up to 3 seconds, and
// leaves the LED in its current on/off level.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopWorkerLocked()
}

func (c *Controller) stopWorkerLocked() error {
	if !c.running {
		return nil
	}
	close(c.stopCh)
	select {
	case <-c.doneCh:
	case <-time.After(stopTimeout):
		return ErrStopTimeout
	}
	c.running = false
	return nil
}

// Mode reports the controller's current mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func periodFor(mode Mode) time.Duration {
	if mode == BlinkQuickly {
		return QuickPeriod
	}
	return SlowPeriod
}

func (c *Controller) blinkLoop(initial Mode, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	period := periodFor(initial)
	state := false
	lastFire := time.Now()
	timer := time.NewTimer(period)
	defer timer.Stop()

	for {
		select {
		case <-stopCh:
			return
		case code := <-c.modeChange.C():
			newPeriod := periodFor(Mode(code))
			if newPeriod == period {
				continue
			}
			remaining := period - time.Since(lastFire)
			if remaining <= newPeriod {
				remaining = 0
			}
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(remaining)
			period = newPeriod
		case <-timer.C:
			state = !state
			c.p.Write(state)
			lastFire = time.Now()
			timer.Reset(period)
		}
	}
}
