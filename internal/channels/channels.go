package channels

import "fmt"

// Channel is a single entry in the fixed RX5808 frequency table. Channels
// are immutable once the table is built.
type Channel struct {
	Index         int    // 0-based position in the table
	Label         string // display name, "FPV {index+1}" by default
	Band          string // band the channel belongs to
	FrequencyMHz  int    // carrier frequency in MHz
	RegisterValue uint32 // 20-bit tuning word for the frequency register
}

// Table holds an ordered, immutable set of channels with index lookups
// by frequency and by register value.
type Table struct {
	channels []Channel
	byFreq   map[int]int
	byValue  map[uint32]int
}

// New builds a Table from the given channels. It fails if two channels
// share a frequency or a register value, or if a register value does not
// fit in 20 bits.
func New(channels []Channel) (*Table, error) {
	t := Table{
		channels: make([]Channel, len(channels)),
		byFreq:   make(map[int]int, len(channels)),
		byValue:  make(map[uint32]int, len(channels)),
	}

	for i, ch := range channels {
		ch.Index = i
		if ch.Label == "" {
			ch.Label = Label(i)
		}
		if ch.RegisterValue > 0xFFFFF {
			return nil, fmt.Errorf("channel %d: register value %#x exceeds 20 bits", i, ch.RegisterValue)
		}
		if j, ok := t.byFreq[ch.FrequencyMHz]; ok {
			return nil, fmt.Errorf("channels %d and %d share frequency %dMHz", j, i, ch.FrequencyMHz)
		}
		if j, ok := t.byValue[ch.RegisterValue]; ok {
			return nil, fmt.Errorf("channels %d and %d share register value %#x", j, i, ch.RegisterValue)
		}

		t.channels[i] = ch
		t.byFreq[ch.FrequencyMHz] = i
		t.byValue[ch.RegisterValue] = i
	}

	return &t, nil
}

// All returns a copy of the channels in table order.
func (t *Table) All() []Channel {
	channels := make([]Channel, len(t.channels))
	copy(channels, t.channels)
	return channels
}

// Len returns the number of channels in the table.
func (t *Table) Len() int {
	return len(t.channels)
}

// ByIndex returns the channel at the given position.
func (t *Table) ByIndex(index int) (Channel, bool) {
	if index < 0 || index >= len(t.channels) {
		return Channel{}, false
	}
	return t.channels[index], true
}

// ByFrequency returns the channel with an exact frequency match.
func (t *Table) ByFrequency(frequencyMHz int) (Channel, bool) {
	i, ok := t.byFreq[frequencyMHz]
	if !ok {
		return Channel{}, false
	}
	return t.channels[i], true
}

// ByRegisterValue returns the channel whose tuning word matches value.
func (t *Table) ByRegisterValue(value uint32) (Channel, bool) {
	i, ok := t.byValue[value]
	if !ok {
		return Channel{}, false
	}
	return t.channels[i], true
}

// Label returns the default display name for a channel position.
func Label(index int) string {
	return fmt.Sprintf("FPV %d", index+1)
}
