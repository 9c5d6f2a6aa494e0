// Package periphpin implements an output-only pin.Pin over periph.io.
// It backs the LED controller.
package periphpin

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/larsks/carpid/internal/pin"
)

var hostInitOnce bool

// Pin drives a single periph.io gpio.PinIO as an output, translating
// logical on/off into electrical levels according to activeHigh.
type Pin struct {
	line       gpio.PinIO
	activeHigh bool
}

// Open resolves name (e.g. "GPIO17") to a periph.io pin and configures it
// for output, using host.Init + gpioreg.ByName.
func Open(name string, activeHigh bool) (*Pin, error) {
	if !hostInitOnce {
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("periphpin: host init: %w", err)
		}
		hostInitOnce = true
	}

	line := gpioreg.ByName(name)
	if line == nil {
		return nil, fmt.Errorf("periphpin: no such pin %q", name)
	}

	p := &Pin{line: line, activeHigh: activeHigh}
	if err := p.SetMode(pin.Output); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pin) SetMode(mode pin.Mode) error {
	if mode != pin.Output {
		return pin.ErrUnsupported
	}
	return p.line.Out(p.offLevel())
}

func (p *Pin) SetPull(pin.Pull) error {
	// Output pins don't have a meaningful bias; periph.io exposes pull
	// configuration only through PinIn, which this backend never uses.
	return nil
}

func (p *Pin) Write(high bool) error {
	level := p.offLevel()
	if high {
		level = p.onLevel()
	}
	return p.line.Out(level)
}

func (p *Pin) Read() (bool, error) {
	return false, pin.ErrUnsupported
}

func (p *Pin) Close() error {
	return nil
}

func (p *Pin) onLevel() gpio.Level {
	return gpio.Level(p.activeHigh)
}

func (p *Pin) offLevel() gpio.Level {
	return gpio.Level(!p.activeHigh)
}
