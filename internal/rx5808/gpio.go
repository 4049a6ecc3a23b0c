package rx5808

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// GPIOBus implements Bus over three host GPIO pins. Pin names are
// resolved through the periph registry, so both "GPIO22" style names and
// chip-relative aliases work.
type GPIOBus struct {
	data  gpio.PinIO
	sel   gpio.PinIO
	clock gpio.PinIO
}

// NewGPIOBus initializes the host GPIO drivers, claims the three pins
// and drives them low.
func NewGPIOBus(dataPin, selectPin, clockPin string) (*GPIOBus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initializing host drivers: %w", err)
	}

	b := GPIOBus{}
	for _, claim := range []struct {
		name string
		pin  *gpio.PinIO
	}{
		{dataPin, &b.data},
		{selectPin, &b.sel},
		{clockPin, &b.clock},
	} {
		p := gpioreg.ByName(claim.name)
		if p == nil {
			return nil, fmt.Errorf("no GPIO pin named %q", claim.name)
		}
		if err := p.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("claiming pin %q: %w", claim.name, err)
		}
		*claim.pin = p
	}

	return &b, nil
}

func (b *GPIOBus) SetData(level bool) error {
	return b.data.Out(gpio.Level(level))
}

func (b *GPIOBus) SetClock(level bool) error {
	return b.clock.Out(gpio.Level(level))
}

func (b *GPIOBus) SetSelect(level bool) error {
	return b.sel.Out(gpio.Level(level))
}

func (b *GPIOBus) ReadData() (bool, error) {
	return b.data.Read() == gpio.High, nil
}

func (b *GPIOBus) SetDataDirection(dir Direction) error {
	if dir == Input {
		if err := b.data.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
			return fmt.Errorf("switching data line to input: %w", err)
		}
		return nil
	}

	if err := b.data.Out(gpio.Low); err != nil {
		return fmt.Errorf("switching data line to output: %w", err)
	}
	return nil
}
