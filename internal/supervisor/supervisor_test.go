package supervisor

import (
	"testing"

	"github.com/larsks/carpid/internal/devicewatcher"
	"github.com/larsks/carpid/internal/led"
	"github.com/larsks/carpid/internal/pin"
)

type fakeLedPin struct{}

func (fakeLedPin) SetMode(pin.Mode) error { return nil }
func (fakeLedPin) SetPull(pin.Pull) error { return nil }
func (fakeLedPin) Write(bool) error       { return nil }
func (fakeLedPin) Read() (bool, error)    { return false, pin.ErrUnsupported }
func (fakeLedPin) Close() error           { return nil }

func newTestSupervisor(t *testing.T) *Supervisor {
	t.Helper()
	ctrl, err := led.New(fakeLedPin{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ctrl.Stop() })
	return &Supervisor{ledCtrl: ctrl}
}

func TestHandleDeviceStateMapsToLedMode(t *testing.T) {
	cases := []struct {
		name  string
		state devicewatcher.State
		want  led.Mode
	}{
		{"disk absent blinks fast", devicewatcher.State{DiskPresent: false, CopyAvailable: false}, led.BlinkQuickly},
		{"disk present, copy available blinks slow", devicewatcher.State{DiskPresent: true, CopyAvailable: true}, led.BlinkSlowly},
		{"disk present, copy unavailable goes solid on", devicewatcher.State{DiskPresent: true, CopyAvailable: false}, led.On},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := newTestSupervisor(t)
			s.handleDeviceState(c.state)
			if got := s.ledCtrl.Mode(); got != c.want {
				t.Fatalf("led mode = %v, want %v", got, c.want)
			}
			if got := s.diskPresent.Load(); got != c.state.DiskPresent {
				t.Fatalf("diskPresent = %v, want %v", got, c.state.DiskPresent)
			}
		})
	}
}
