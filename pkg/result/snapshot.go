package result

import (
	"fmt"
	"strings"

	"github.com/oisee/z80-interp/pkg/inst"
)

// Snapshot is a read-only copy of a session's architectural state. Slots is
// indexed by inst.Slot.
type Snapshot struct {
	Slots  [inst.NumSlots]uint16 `json:"slots"`
	IFF1   bool                  `json:"iff1"`
	IFF2   bool                  `json:"iff2"`
	IM     uint8                 `json:"im"`
	Halted bool                  `json:"halted"`
	Steps  int                   `json:"steps"`
}

// Get16 reads a register pair.
func (s Snapshot) Get16(r inst.Reg16) uint16 {
	return s.Slots[r.Slot()]
}

// Get8 reads an 8-bit register.
func (s Snapshot) Get8(r inst.Reg8) uint8 {
	slot, half := r.Loc()
	if half == inst.High {
		return uint8(s.Slots[slot] >> 8)
	}
	return uint8(s.Slots[slot])
}

// Value reads a register named by inst.ParseRegister.
func (s Snapshot) Value(r inst.Register) uint16 {
	if r.Wide {
		return s.Get16(r.R16)
	}
	return uint16(s.Get8(r.R8))
}

// Registers returns every 8-bit and 16-bit register by name.
func (s Snapshot) Registers() map[string]uint16 {
	out := make(map[string]uint16, int(inst.NumReg8)+int(inst.NumReg16))
	for r := inst.Reg8(0); r < inst.NumReg8; r++ {
		out[r.String()] = uint16(s.Get8(r))
	}
	for r := inst.Reg16(0); r < inst.NumReg16; r++ {
		out[r.String()] = s.Get16(r)
	}
	return out
}

// Diff lists the register pairs other than PC that differ between s and o,
// ignoring the F bits cleared in fmask.
func (s Snapshot) Diff(o Snapshot, fmask uint8) []string {
	var out []string
	for r := inst.Reg16(0); r < inst.NumReg16; r++ {
		if r == inst.PC {
			continue
		}
		a, b := s.Get16(r), o.Get16(r)
		if r == inst.AF || r == inst.AF2 {
			m := 0xFF00 | uint16(fmask)
			a, b = a&m, b&m
		}
		if a != b {
			out = append(out, fmt.Sprintf("%s=%04X/%04X", r, a, b))
		}
	}
	return out
}

func (s Snapshot) String() string {
	var b strings.Builder
	for r := inst.AF; r <= inst.IY; r++ {
		if r > inst.AF {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%04X", r, s.Get16(r))
	}
	fmt.Fprintf(&b, " IR=%04X", s.Slots[inst.SlotIR])
	if s.Halted {
		b.WriteString(" HALT")
	}
	return b.String()
}

// Step is one executed instruction and the state after it.
type Step struct {
	PC    uint16   `json:"pc"`
	Bytes []byte   `json:"bytes"`
	Asm   string   `json:"asm"`
	After Snapshot `json:"after"`
}

func (s Step) String() string {
	hex := make([]string, len(s.Bytes))
	for i, b := range s.Bytes {
		hex[i] = fmt.Sprintf("%02X", b)
	}
	return fmt.Sprintf("%04X  %-12s %-16s %s", s.PC, strings.Join(hex, " "), s.Asm, s.After)
}
