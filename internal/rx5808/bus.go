// Package rx5808 drives an RX5808 5.8GHz receiver module over its
// three-wire serial interface: a bidirectional data line, a chip-select
// line and a clock line.
package rx5808

// Direction is the transfer direction of the bidirectional data line.
type Direction int

const (
	// Output drives the data line from this side.
	Output Direction = iota
	// Input releases the data line so the receiver can drive it.
	Input
)

// Bus abstracts the three control lines of the receiver module. The real
// implementation is GPIOBus; tests substitute a recording mock.
//
// A level of true is logic high. SetData must only be called while the
// data line direction is Output, ReadData while it is Input.
type Bus interface {
	SetData(level bool) error
	SetClock(level bool) error
	SetSelect(level bool) error
	ReadData() (bool, error)
	SetDataDirection(dir Direction) error
}
