package cpu

// Ports is the I/O bus seen by IN and OUT. The full 16-bit port address is
// passed: (A<<8)|n for the immediate forms, BC for the (C) forms.
type Ports interface {
	In(port uint16) uint8
	Out(port uint16, v uint8)
}

// openBus reads 0xFF from every port and drops writes.
type openBus struct{}

func (openBus) In(uint16) uint8 { return 0xFF }
func (openBus) Out(uint16, uint8) {}
