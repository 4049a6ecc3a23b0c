package rx5808

import (
	"fmt"
	"time"
)

const (
	// settleDelay is the minimum wait after a line-level change before
	// the next transition. The RTC6715 synthesizer samples on the clock
	// edge and misreads bits below this; it is a hard timing contract.
	settleDelay = time.Microsecond

	// regFrequency is the synthesizer A register holding the tuning word.
	regFrequency = 0x01
	// regSynthControl enables the frequency synthesizer.
	regSynthControl = 0x08
	// synthEnableWord is the control value written before every tune.
	synthEnableWord = 0x03F40

	addressBits = 4
	valueBits   = 20
)

func settle() {
	time.Sleep(settleDelay)
}

// sendBit clocks a single bit out on the data line: clock low, data to
// level, clock high, clock low, each transition followed by a settle.
func (c *Controller) sendBit(level bool) error {
	if err := c.bus.SetClock(false); err != nil {
		return err
	}
	settle()
	if err := c.bus.SetData(level); err != nil {
		return err
	}
	settle()
	if err := c.bus.SetClock(true); err != nil {
		return err
	}
	settle()
	if err := c.bus.SetClock(false); err != nil {
		return err
	}
	settle()
	return nil
}

// readBit clocks a single bit in, sampling the data line while the clock
// is high.
func (c *Controller) readBit() (bool, error) {
	if err := c.bus.SetClock(false); err != nil {
		return false, err
	}
	settle()
	if err := c.bus.SetClock(true); err != nil {
		return false, err
	}
	settle()
	level, err := c.bus.ReadData()
	if err != nil {
		return false, err
	}
	if err := c.bus.SetClock(false); err != nil {
		return false, err
	}
	settle()
	return level, nil
}

// selectChip toggles chip-select high then low, framing a register
// transfer.
func (c *Controller) selectChip() error {
	if err := c.deselect(); err != nil {
		return err
	}
	settle()
	return c.reselect()
}

func (c *Controller) deselect() error {
	settle()
	if err := c.bus.SetSelect(true); err != nil {
		return err
	}
	settle()
	return nil
}

func (c *Controller) reselect() error {
	settle()
	if err := c.bus.SetSelect(false); err != nil {
		return err
	}
	settle()
	return nil
}

// sendAddress shifts the 4-bit register address out, least-significant
// bit first.
func (c *Controller) sendAddress(addr uint8) error {
	for i := 0; i < addressBits; i++ {
		if err := c.sendBit(addr&(1<<i) != 0); err != nil {
			return err
		}
	}
	return nil
}

// writeRegister writes a 20-bit value to a register: address LSB-first,
// a write flag bit of 1, then the value LSB-first. The chip latches the
// word on the trailing select toggle.
func (c *Controller) writeRegister(addr uint8, value uint32) error {
	if err := c.selectChip(); err != nil {
		return fmt.Errorf("selecting chip: %w", err)
	}
	if err := c.sendAddress(addr); err != nil {
		return fmt.Errorf("sending address %#x: %w", addr, err)
	}
	if err := c.sendBit(true); err != nil {
		return fmt.Errorf("sending write flag: %w", err)
	}
	for i := 0; i < valueBits; i++ {
		if err := c.sendBit(value&0x1 != 0); err != nil {
			return fmt.Errorf("sending value bit %d: %w", i, err)
		}
		value >>= 1
	}
	if err := c.selectChip(); err != nil {
		return fmt.Errorf("latching register %#x: %w", addr, err)
	}
	return nil
}

// readRegister reads a 20-bit register value: address LSB-first, a write
// flag bit of 0, then 20 bits clocked in with the data line released.
// The bus is left idle with all three lines low.
func (c *Controller) readRegister(addr uint8) (uint32, error) {
	if err := c.selectChip(); err != nil {
		return 0, fmt.Errorf("selecting chip: %w", err)
	}
	if err := c.sendAddress(addr); err != nil {
		return 0, fmt.Errorf("sending address %#x: %w", addr, err)
	}
	if err := c.sendBit(false); err != nil {
		return 0, fmt.Errorf("sending read flag: %w", err)
	}
	if err := c.bus.SetDataDirection(Input); err != nil {
		return 0, fmt.Errorf("releasing data line: %w", err)
	}

	var value uint32
	for i := 0; i < valueBits; i++ {
		level, err := c.readBit()
		if err != nil {
			return 0, fmt.Errorf("reading value bit %d: %w", i, err)
		}
		if level {
			value |= 1 << i
		}
	}

	if err := c.deselect(); err != nil {
		return 0, fmt.Errorf("deselecting chip: %w", err)
	}
	if err := c.bus.SetDataDirection(Output); err != nil {
		return 0, fmt.Errorf("reclaiming data line: %w", err)
	}
	if err := c.idleBus(); err != nil {
		return 0, fmt.Errorf("idling bus: %w", err)
	}
	return value, nil
}

// idleBus drives all three lines low, the defined resting state of the
// interface.
func (c *Controller) idleBus() error {
	if err := c.bus.SetSelect(false); err != nil {
		return err
	}
	if err := c.bus.SetClock(false); err != nil {
		return err
	}
	return c.bus.SetData(false)
}
