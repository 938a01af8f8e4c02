package inst

import (
	"fmt"
	"strings"
)

// Slot identifies one physical 16-bit storage cell of the register file.
// Every named register, 8-bit or 16-bit, is a view onto exactly one slot.
type Slot uint8

const (
	SlotAF Slot = iota
	SlotBC
	SlotDE
	SlotHL
	SlotIX
	SlotIY
	SlotSP
	SlotPC
	SlotIR // I in the high byte, R in the low byte
	SlotAF2
	SlotBC2
	SlotDE2
	SlotHL2

	NumSlots // sentinel
)

var slotNames = [NumSlots]string{
	"AF", "BC", "DE", "HL", "IX", "IY", "SP", "PC", "IR", "AF'", "BC'", "DE'", "HL'",
}

func (s Slot) String() string {
	if s >= NumSlots {
		return fmt.Sprintf("Slot(%d)", uint8(s))
	}
	return slotNames[s]
}

// Reg8 names an 8-bit register. Each value projects onto the high or low
// half of a Slot; there is no independent 8-bit storage.
type Reg8 uint8

const (
	A Reg8 = iota
	F
	B
	C
	D
	E
	H
	L
	I
	R
	IXH
	IXL
	IYH
	IYL

	NumReg8 // sentinel
)

// Half selects a byte of a 16-bit slot.
type Half uint8

const (
	Low Half = iota
	High
)

// reg8Loc is the static (slot, half) projection of every 8-bit name.
var reg8Loc = [NumReg8]struct {
	slot Slot
	half Half
	name string
}{
	A:   {SlotAF, High, "A"},
	F:   {SlotAF, Low, "F"},
	B:   {SlotBC, High, "B"},
	C:   {SlotBC, Low, "C"},
	D:   {SlotDE, High, "D"},
	E:   {SlotDE, Low, "E"},
	H:   {SlotHL, High, "H"},
	L:   {SlotHL, Low, "L"},
	I:   {SlotIR, High, "I"},
	R:   {SlotIR, Low, "R"},
	IXH: {SlotIX, High, "IXH"},
	IXL: {SlotIX, Low, "IXL"},
	IYH: {SlotIY, High, "IYH"},
	IYL: {SlotIY, Low, "IYL"},
}

// Valid reports whether r is one of the closed set of 8-bit names.
func (r Reg8) Valid() bool { return r < NumReg8 }

// Loc returns the slot and half r projects onto.
// It panics for a name outside the closed set.
func (r Reg8) Loc() (Slot, Half) {
	if !r.Valid() {
		panic(fmt.Sprintf("inst: register file corruption: unknown 8-bit register %d", uint8(r)))
	}
	l := reg8Loc[r]
	return l.slot, l.half
}

func (r Reg8) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Reg8(%d)", uint8(r))
	}
	return reg8Loc[r].name
}

// Reg16 names a 16-bit register pair.
type Reg16 uint8

const (
	AF Reg16 = iota
	BC
	DE
	HL
	SP
	PC
	IX
	IY
	AF2 // AF'
	BC2
	DE2
	HL2

	NumReg16 // sentinel
)

var reg16Slot = [NumReg16]Slot{
	AF: SlotAF, BC: SlotBC, DE: SlotDE, HL: SlotHL, SP: SlotSP, PC: SlotPC,
	IX: SlotIX, IY: SlotIY, AF2: SlotAF2, BC2: SlotBC2, DE2: SlotDE2, HL2: SlotHL2,
}

// Valid reports whether r is one of the closed set of 16-bit names.
func (r Reg16) Valid() bool { return r < NumReg16 }

// Slot returns the storage cell backing r.
// It panics for a name outside the closed set.
func (r Reg16) Slot() Slot {
	if !r.Valid() {
		panic(fmt.Sprintf("inst: register file corruption: unknown 16-bit register %d", uint8(r)))
	}
	return reg16Slot[r]
}

func (r Reg16) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Reg16(%d)", uint8(r))
	}
	return reg16Slot[r].String()
}

// Halves returns the 8-bit names of r's high and low bytes.
// ok is false for pairs without named halves (SP, PC and the shadow set).
func (r Reg16) Halves() (hi, lo Reg8, ok bool) {
	switch r {
	case AF:
		return A, F, true
	case BC:
		return B, C, true
	case DE:
		return D, E, true
	case HL:
		return H, L, true
	case IX:
		return IXH, IXL, true
	case IY:
		return IYH, IYL, true
	}
	return 0, 0, false
}

// Register is either a Reg8 or a Reg16, as returned by ParseRegister.
type Register struct {
	Wide bool
	R8   Reg8
	R16  Reg16
}

func (r Register) String() string {
	if r.Wide {
		return r.R16.String()
	}
	return r.R8.String()
}

// ParseRegister resolves a case-insensitive register name such as "a",
// "BC" or "af'".
func ParseRegister(name string) (Register, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	for r := Reg8(0); r < NumReg8; r++ {
		if reg8Loc[r].name == n {
			return Register{R8: r}, nil
		}
	}
	for r := Reg16(0); r < NumReg16; r++ {
		if r.String() == n {
			return Register{Wide: true, R16: r}, nil
		}
	}
	return Register{}, fmt.Errorf("unknown register %q", name)
}
