package cpu

import (
	"fmt"

	"github.com/oisee/z80-interp/pkg/inst"
)

// RegisterFile is the Z80 register set stored as one 16-bit cell per
// physical slot. 8-bit registers are projections onto the high or low byte
// of a slot, so B/C always agree with BC, A/F with AF, and so on.
//
// The zero value is a register file with every register cleared.
type RegisterFile struct {
	slots [inst.NumSlots]uint16
}

// NewRegisterFile returns a register file with every slot zeroed.
func NewRegisterFile() *RegisterFile {
	return &RegisterFile{}
}

// Get8 reads an 8-bit register through its slot projection.
func (rf *RegisterFile) Get8(r inst.Reg8) uint8 {
	slot, half := r.Loc()
	if half == inst.High {
		return uint8(rf.slots[slot] >> 8)
	}
	return uint8(rf.slots[slot])
}

// Set8 writes an 8-bit register, leaving the other half of the slot intact.
func (rf *RegisterFile) Set8(r inst.Reg8, v uint8) {
	slot, half := r.Loc()
	if half == inst.High {
		rf.slots[slot] = rf.slots[slot]&0x00FF | uint16(v)<<8
		return
	}
	rf.slots[slot] = rf.slots[slot]&0xFF00 | uint16(v)
}

// Get16 reads a register pair.
func (rf *RegisterFile) Get16(r inst.Reg16) uint16 {
	return rf.slots[r.Slot()]
}

// Set16 writes a register pair.
func (rf *RegisterFile) Set16(r inst.Reg16, v uint16) {
	rf.slots[r.Slot()] = v
}

// Slot reads a physical slot.
func (rf *RegisterFile) Slot(s inst.Slot) uint16 {
	if s >= inst.NumSlots {
		panic(fmt.Sprintf("cpu: register file corruption: slot %d", uint8(s)))
	}
	return rf.slots[s]
}

// SetSlot writes a physical slot.
func (rf *RegisterFile) SetSlot(s inst.Slot, v uint16) {
	if s >= inst.NumSlots {
		panic(fmt.Sprintf("cpu: register file corruption: slot %d", uint8(s)))
	}
	rf.slots[s] = v
}

// Swap exchanges two slots (EX AF,AF', EXX, EX DE,HL).
func (rf *RegisterFile) Swap(a, b inst.Slot) {
	rf.slots[a], rf.slots[b] = rf.slots[b], rf.slots[a]
}

// Flag reports whether a named bit of F is set.
func (rf *RegisterFile) Flag(f inst.Flag) bool {
	return rf.Get8(inst.F)&f.Mask() != 0
}

// SetFlag sets or clears a named bit of F.
func (rf *RegisterFile) SetFlag(f inst.Flag, on bool) {
	v := rf.Get8(inst.F) &^ f.Mask()
	if on {
		v |= f.Mask()
	}
	rf.Set8(inst.F, v)
}

// Value reads a register named by inst.ParseRegister.
func (rf *RegisterFile) Value(r inst.Register) uint16 {
	if r.Wide {
		return rf.Get16(r.R16)
	}
	return uint16(rf.Get8(r.R8))
}

// Slots returns a copy of every slot, indexed by inst.Slot.
func (rf *RegisterFile) Slots() [inst.NumSlots]uint16 {
	return rf.slots
}

// Equal returns true if two register files hold identical values.
func (rf *RegisterFile) Equal(o *RegisterFile) bool {
	return rf.slots == o.slots
}

// incR advances the 7-bit refresh counter, preserving bit 7.
func (rf *RegisterFile) incR() {
	r := rf.Get8(inst.R)
	rf.Set8(inst.R, r&0x80|(r+1)&0x7F)
}

func (rf *RegisterFile) String() string {
	return fmt.Sprintf("AF=%04X BC=%04X DE=%04X HL=%04X IX=%04X IY=%04X SP=%04X PC=%04X IR=%04X",
		rf.slots[inst.SlotAF], rf.slots[inst.SlotBC], rf.slots[inst.SlotDE], rf.slots[inst.SlotHL],
		rf.slots[inst.SlotIX], rf.slots[inst.SlotIY], rf.slots[inst.SlotSP], rf.slots[inst.SlotPC],
		rf.slots[inst.SlotIR])
}
