package button

import (
	"testing"
	"time"

	"github.com/larsks/carpid/internal/pin"
)

// fakePin is a pin.Pin stub driven directly by the test.
type fakePin struct {
	level bool
}

func (p *fakePin) SetMode(pin.Mode) error { return nil }
func (p *fakePin) SetPull(pin.Pull) error { return nil }
func (p *fakePin) Write(bool) error       { return pin.ErrUnsupported }
func (p *fakePin) Read() (bool, error)    { return p.level, nil }
func (p *fakePin) Close() error           { return nil }

func noopSchedule(*Engine, time.Duration) {}
func noopCancel(*Engine)                  {}

func TestIntegratorClampsAtBounds(t *testing.T) {
	p := &fakePin{}
	e, err := NewEngine("test", p, false, false)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < IntegratorMax+5; i++ {
		if out := e.integrate(false); out {
			t.Fatalf("integrate(false) returned true at i=%d", i)
		}
	}
	if e.integrator != 0 {
		t.Fatalf("integrator = %d, want 0", e.integrator)
	}

	for i := 0; i < IntegratorMax+5; i++ {
		e.integrate(true)
	}
	if e.integrator != IntegratorMax {
		t.Fatalf("integrator = %d, want %d", e.integrator, IntegratorMax)
	}
}

func TestPressReleaseSequence(t *testing.T) {
	p := &fakePin{level: false}
	e, err := NewEngine("test", p, false, false)
	if err != nil {
		t.Fatal(err)
	}

	p.level = true
	for i := 0; i < IntegratorMax; i++ {
		e.tick(noopSchedule, noopCancel)
	}
	select {
	case ev := <-e.Events():
		if ev.Type != Press {
			t.Fatalf("got %s, want PRESS", ev.Type)
		}
	default:
		t.Fatal("expected PRESS event")
	}

	p.level = false
	for i := 0; i < IntegratorMax; i++ {
		e.tick(noopSchedule, noopCancel)
	}
	select {
	case ev := <-e.Events():
		if ev.Type != Release {
			t.Fatalf("got %s, want RELEASE", ev.Type)
		}
	default:
		t.Fatal("expected RELEASE event")
	}
}

func TestComputeNextDelayFloorsAtMinimum(t *testing.T) {
	d := ButtonDelay
	for i := 0; i < 100; i++ {
		d = computeNextDelay(d)
	}
	if d != ButtonMinDelay {
		t.Fatalf("computeNextDelay converged to %s, want %s", d, ButtonMinDelay)
	}
}

func TestOnDelayRebounceSendsRepeatedPress(t *testing.T) {
	p := &fakePin{level: true}
	e, err := NewEngine("test", p, true, false)
	if err != nil {
		t.Fatal(err)
	}
	e.status = true
	e.long = false
	e.interval = ButtonDelay

	e.onDelay(noopSchedule, noopCancel)
	if !e.long {
		t.Fatal("expected long=true after onDelay")
	}
	select {
	case ev := <-e.Events():
		if ev.Type != Press {
			t.Fatalf("got %s, want PRESS", ev.Type)
		}
	default:
		t.Fatal("expected repeated PRESS event")
	}
	if e.interval >= ButtonDelay {
		t.Fatalf("interval did not shrink: %s", e.interval)
	}
}

func TestOnDelayRebounceDecaysIntervalOncePerRound(t *testing.T) {
	p := &fakePin{level: true}
	e, err := NewEngine("test", p, true, false)
	if err != nil {
		t.Fatal(err)
	}
	e.status = true
	e.interval = ButtonDelay

	want := ButtonDelay
	for round := 0; round < 4; round++ {
		want = computeNextDelay(want)
		e.onDelay(noopSchedule, noopCancel)
		<-e.Events() // drain the repeated PRESS

		if e.interval != want {
			t.Fatalf("round %d: interval = %s, want %s (decayed once per round, not twice)", round, e.interval, want)
		}
	}
}

func TestOnDelayNonRebounceSendsLongPressOnce(t *testing.T) {
	p := &fakePin{level: true}
	e, err := NewEngine("test", p, false, false)
	if err != nil {
		t.Fatal(err)
	}
	e.status = true

	e.onDelay(noopSchedule, noopCancel)
	select {
	case ev := <-e.Events():
		if ev.Type != LongPress {
			t.Fatalf("got %s, want LONG_PRESS", ev.Type)
		}
	default:
		t.Fatal("expected LONG_PRESS event")
	}
}
