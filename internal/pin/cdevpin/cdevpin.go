// Package cdevpin implements an input pin.Pin over go-gpiocdev, reading
// button lines through the kernel's character device ABI rather than
// mapped registers. It backs the button engine's raw line reads.
package cdevpin

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/warthog618/go-gpiocdev"

	"github.com/larsks/carpid/internal/pin"
)

// Pin is a single input line opened against a gpiocdev chip.
type Pin struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
	name string
	pull pin.Pull
}

// Open requests pinSpec (accepts "GPIO16" or a bare offset "16") as an
// input line on chipName, with the given pull configuration.
func Open(chipName, pinSpec string, pull pin.Pull) (*Pin, error) {
	offset, err := parseOffset(pinSpec)
	if err != nil {
		return nil, err
	}

	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("cdevpin: open chip %s: %w", chipName, err)
	}

	p := &Pin{chip: chip, name: pinSpec, pull: pull}
	line, err := chip.RequestLine(offset, pullOptions(pull)...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("cdevpin: request line %s: %w", pinSpec, err)
	}
	p.line = line
	return p, nil
}

func pullOptions(pull pin.Pull) []gpiocdev.LineReqOption {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput}
	switch pull {
	case pin.PullUp:
		opts = append(opts, gpiocdev.WithPullUp)
	case pin.PullDown:
		opts = append(opts, gpiocdev.WithPullDown)
	default:
		opts = append(opts, gpiocdev.WithBiasDisabled)
	}
	return opts
}

func parseOffset(spec string) (int, error) {
	s := strings.TrimPrefix(strings.ToUpper(spec), "GPIO")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("cdevpin: invalid pin spec %q: %w", spec, err)
	}
	return n, nil
}

func (p *Pin) SetMode(mode pin.Mode) error {
	if mode != pin.Input {
		return pin.ErrUnsupported
	}
	return nil
}

func (p *Pin) SetPull(pull pin.Pull) error {
	if pull == p.pull {
		return nil
	}
	if err := p.line.Reconfigure(pullOptions(pull)[1]); err != nil {
		return fmt.Errorf("cdevpin: reconfigure pull on %s: %w", p.name, err)
	}
	p.pull = pull
	return nil
}

func (p *Pin) Write(bool) error {
	return pin.ErrUnsupported
}

func (p *Pin) Read() (bool, error) {
	v, err := p.line.Value()
	if err != nil {
		return false, fmt.Errorf("cdevpin: read %s: %w", p.name, err)
	}
	return v != 0, nil
}

func (p *Pin) Close() error {
	if p.line != nil {
		p.line.Close()
	}
	if p.chip != nil {
		return p.chip.Close()
	}
	return nil
}
