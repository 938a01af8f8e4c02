package cpu

import "github.com/oisee/z80-interp/pkg/inst"

// Z80 flag bit positions in the F register.
const (
	FlagC uint8 = 0x01 // Carry
	FlagN uint8 = 0x02 // Subtract
	FlagP uint8 = 0x04 // Parity/Overflow
	FlagV       = FlagP
	Flag3 uint8 = 0x08 // Undocumented bit 3
	FlagH uint8 = 0x10 // Half-carry
	Flag5 uint8 = 0x20 // Undocumented bit 5
	FlagZ uint8 = 0x40 // Zero
	FlagS uint8 = 0x80 // Sign
)

// Precomputed flag tables, after remogatto/z80.
var (
	// Sz53Table holds S, Z, 5 and 3 for each result byte.
	Sz53Table [256]uint8
	// Sz53pTable is Sz53Table with the parity flag included.
	Sz53pTable [256]uint8
	// ParityTable holds P for even-parity bytes.
	ParityTable [256]uint8

	// Half-carry and overflow lookups indexed by bit 3 (or 7) of
	// {result, arg2, arg1}. 16-bit ops index with bits 11 and 15.
	HalfcarryAddTable = [8]uint8{0, FlagH, FlagH, FlagH, 0, 0, 0, FlagH}
	HalfcarrySubTable = [8]uint8{0, 0, FlagH, 0, FlagH, 0, FlagH, FlagH}
	OverflowAddTable  = [8]uint8{0, 0, 0, FlagV, FlagV, 0, 0, 0}
	OverflowSubTable  = [8]uint8{0, FlagV, 0, 0, 0, 0, FlagV, 0}
)

func init() {
	for i := 0; i < 256; i++ {
		v := uint8(i)
		Sz53Table[i] = v & (Flag3 | Flag5 | FlagS)

		parity := uint8(0)
		for j := v; j != 0; j >>= 1 {
			parity ^= j & 1
		}
		if parity == 0 {
			ParityTable[i] = FlagP
		}
		Sz53pTable[i] = Sz53Table[i] | ParityTable[i]
	}
	Sz53Table[0] |= FlagZ
	Sz53pTable[0] |= FlagZ
}

// Test evaluates a branch condition against the flag byte f.
func Test(c inst.Condition, f uint8) bool {
	switch c {
	case inst.CondAlways:
		return true
	case inst.CondNZ:
		return f&FlagZ == 0
	case inst.CondZ:
		return f&FlagZ != 0
	case inst.CondNC:
		return f&FlagC == 0
	case inst.CondC:
		return f&FlagC != 0
	case inst.CondPO:
		return f&FlagP == 0
	case inst.CondPE:
		return f&FlagP != 0
	case inst.CondP:
		return f&FlagS == 0
	case inst.CondM:
		return f&FlagS != 0
	}
	return false
}

// bsel returns a if cond is true, else b.
func bsel(cond bool, a, b uint8) uint8 {
	if cond {
		return a
	}
	return b
}
