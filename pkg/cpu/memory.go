package cpu

// MemorySize is the Z80 address space.
const MemorySize = 0x10000

// Memory is the flat 64 KiB address space. Addresses wrap at 16 bits.
type Memory struct {
	data [MemorySize]byte
}

// Read returns the byte at addr.
func (m *Memory) Read(addr uint16) uint8 {
	return m.data[addr]
}

// Write stores v at addr.
func (m *Memory) Write(addr uint16, v uint8) {
	m.data[addr] = v
}

// Read16 returns the little-endian word at addr.
func (m *Memory) Read16(addr uint16) uint16 {
	return uint16(m.data[addr]) | uint16(m.data[addr+1])<<8
}

// Write16 stores v little-endian at addr.
func (m *Memory) Write16(addr uint16, v uint16) {
	m.data[addr] = uint8(v)
	m.data[addr+1] = uint8(v >> 8)
}

// Load copies code into memory starting at origin, wrapping at 0xFFFF.
func (m *Memory) Load(origin uint16, code []byte) {
	for i, b := range code {
		m.data[origin+uint16(i)] = b
	}
}

// Bytes returns a copy of the whole address space.
func (m *Memory) Bytes() []byte {
	out := make([]byte, MemorySize)
	copy(out, m.data[:])
	return out
}
