package led

import (
	"sync"
	"testing"
	"time"

	"github.com/larsks/carpid/internal/pin"
)

type fakePin struct {
	mu     sync.Mutex
	writes []bool
}

func (p *fakePin) SetMode(pin.Mode) error { return nil }
func (p *fakePin) SetPull(pin.Pull) error { return nil }
func (p *fakePin) Read() (bool, error)    { return false, pin.ErrUnsupported }
func (p *fakePin) Close() error           { return nil }
func (p *fakePin) Write(level bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes = append(p.writes, level)
	return nil
}
func (p *fakePin) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.writes)
}

func TestOnOffWriteDirectly(t *testing.T) {
	p := &fakePin{}
	c, err := New(p)
	if err != nil {
		t.Fatal(err)
	}

	if err := c.On(); err != nil {
		t.Fatal(err)
	}
	if c.Mode() != On {
		t.Fatalf("mode = %v, want On", c.Mode())
	}
	if p.count() != 1 || !p.writes[0] {
		t.Fatalf("writes = %v, want [true]", p.writes)
	}

	if err := c.Off(); err != nil {
		t.Fatal(err)
	}
	if c.Mode() != Off {
		t.Fatalf("mode = %v, want Off", c.Mode())
	}
}

func TestBlinkQuicklyTogglesPin(t *testing.T) {
	p := &fakePin{}
	c, err := New(p)
	if err != nil {
		t.Fatal(err)
	}

	if err := c.BlinkQuickly(); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	deadline := time.After(2 * time.Second)
	for p.count() < 2 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for blink toggles")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSwitchingBlinkModeReprogramsRunningWorker(t *testing.T) {
	p := &fakePin{}
	c, err := New(p)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	if err := c.BlinkSlowly(); err != nil {
		t.Fatal(err)
	}
	if err := c.BlinkQuickly(); err != nil {
		t.Fatal(err)
	}
	if c.Mode() != BlinkQuickly {
		t.Fatalf("mode = %v, want BlinkQuickly", c.Mode())
	}

	deadline := time.After(2 * time.Second)
	for p.count() < 2 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for blink toggles after mode switch")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestStopIsIdempotent(t *testing.T) {
	p := &fakePin{}
	c, _ := New(p)
	if err := c.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := c.BlinkSlowly(); err != nil {
		t.Fatal(err)
	}
	if err := c.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := c.Stop(); err != nil {
		t.Fatal(err)
	}
}
