package cpu

import "github.com/oisee/z80-interp/pkg/inst"

// ALU helpers, after remogatto/z80. Each takes operands and the incoming
// flag byte and returns the result and the new flag byte; none touch the
// register file.

func add8(a, value, carry uint8) (uint8, uint8) {
	sum := uint16(a) + uint16(value) + uint16(carry)
	lookup := ((a & 0x88) >> 3) | ((value & 0x88) >> 2) | uint8((sum&0x88)>>1)
	r := uint8(sum)
	return r, bsel(sum&0x100 != 0, FlagC, 0) |
		HalfcarryAddTable[lookup&0x07] |
		OverflowAddTable[lookup>>4] |
		Sz53Table[r]
}

func sub8(a, value, carry uint8) (uint8, uint8) {
	diff := uint16(a) - uint16(value) - uint16(carry)
	lookup := ((a & 0x88) >> 3) | ((value & 0x88) >> 2) | uint8((diff&0x88)>>1)
	r := uint8(diff)
	return r, bsel(diff&0x100 != 0, FlagC, 0) | FlagN |
		HalfcarrySubTable[lookup&0x07] |
		OverflowSubTable[lookup>>4] |
		Sz53Table[r]
}

// cp8 is SUB without storing the result; bits 3 and 5 come from the operand.
func cp8(a, value uint8) uint8 {
	diff := uint16(a) - uint16(value)
	lookup := ((a & 0x88) >> 3) | ((value & 0x88) >> 2) | uint8((diff&0x88)>>1)
	return bsel(diff&0x100 != 0, FlagC, bsel(diff != 0, 0, FlagZ)) |
		FlagN |
		HalfcarrySubTable[lookup&0x07] |
		OverflowSubTable[lookup>>4] |
		(value & (Flag3 | Flag5)) |
		uint8(diff&uint16(FlagS))
}

// alu8 applies one of the eight accumulator operations.
func alu8(op inst.OpCode, a, value, f uint8) (uint8, uint8) {
	switch op {
	case inst.ADD:
		return add8(a, value, 0)
	case inst.ADC:
		return add8(a, value, f&FlagC)
	case inst.SUB:
		return sub8(a, value, 0)
	case inst.SBC:
		return sub8(a, value, f&FlagC)
	case inst.AND:
		r := a & value
		return r, FlagH | Sz53pTable[r]
	case inst.XOR:
		r := a ^ value
		return r, Sz53pTable[r]
	case inst.OR:
		r := a | value
		return r, Sz53pTable[r]
	case inst.CP:
		return a, cp8(a, value)
	}
	panic("cpu: not an ALU operation: " + op.String())
}

func inc8(v, f uint8) (uint8, uint8) {
	v++
	return v, (f & FlagC) |
		bsel(v == 0x80, FlagV, 0) |
		bsel(v&0x0F != 0, 0, FlagH) |
		Sz53Table[v]
}

func dec8(v, f uint8) (uint8, uint8) {
	nf := (f & FlagC) | bsel(v&0x0F != 0, 0, FlagH) | FlagN
	v--
	return v, nf | bsel(v == 0x7F, FlagV, 0) | Sz53Table[v]
}

func daa(a, f uint8) (uint8, uint8) {
	var add uint8
	carry := f & FlagC
	if f&FlagH != 0 || a&0x0F > 9 {
		add = 6
	}
	if carry != 0 || a > 0x99 {
		add |= 0x60
	}
	if a > 0x99 {
		carry = FlagC
	}
	var r, nf uint8
	if f&FlagN != 0 {
		r, nf = sub8(a, add, 0)
	} else {
		r, nf = add8(a, add, 0)
	}
	return r, nf&^(FlagC|FlagP) | carry | ParityTable[r]
}

// accumulator rotates and flag operations (x=0, z=7 column).
func accOp(op inst.OpCode, a, f uint8) (uint8, uint8) {
	keep := f & (FlagP | FlagZ | FlagS)
	switch op {
	case inst.RLCA:
		a = a<<1 | a>>7
		return a, keep | a&(FlagC|Flag3|Flag5)
	case inst.RRCA:
		c := a & FlagC
		a = a>>1 | a<<7
		return a, keep | c | a&(Flag3|Flag5)
	case inst.RLA:
		c := a >> 7
		a = a<<1 | f&FlagC
		return a, keep | c | a&(Flag3|Flag5)
	case inst.RRA:
		c := a & FlagC
		a = a>>1 | f<<7
		return a, keep | c | a&(Flag3|Flag5)
	case inst.DAA:
		return daa(a, f)
	case inst.CPL:
		a ^= 0xFF
		return a, f&(FlagC|FlagP|FlagZ|FlagS) | a&(Flag3|Flag5) | FlagN | FlagH
	case inst.SCF:
		return a, keep | a&(Flag3|Flag5) | FlagC
	case inst.CCF:
		nf := keep | a&(Flag3|Flag5)
		if f&FlagC != 0 {
			return a, nf | FlagH
		}
		return a, nf | FlagC
	}
	panic("cpu: not an accumulator operation: " + op.String())
}

// rot applies a CB-prefix rotate or shift with full S/Z/P flags.
func rot(op inst.OpCode, v, f uint8) (uint8, uint8) {
	var c uint8
	switch op {
	case inst.RLC:
		c = v >> 7
		v = v<<1 | v>>7
	case inst.RRC:
		c = v & FlagC
		v = v>>1 | v<<7
	case inst.RL:
		c = v >> 7
		v = v<<1 | f&FlagC
	case inst.RR:
		c = v & FlagC
		v = v>>1 | f<<7
	case inst.SLA:
		c = v >> 7
		v <<= 1
	case inst.SRA:
		c = v & FlagC
		v = v&0x80 | v>>1
	case inst.SRL:
		c = v & FlagC
		v >>= 1
	default:
		panic("cpu: not a rotate/shift: " + op.String())
	}
	return v, c | Sz53pTable[v]
}

// bit implements BIT n: Z and P/V mirror the tested bit, S only for bit 7.
// xy supplies the undocumented 3/5 bits.
func bit(n, v, xy, f uint8) uint8 {
	nf := (f & FlagC) | FlagH | (xy & (Flag3 | Flag5))
	if v&(1<<n) == 0 {
		nf |= FlagP | FlagZ
	}
	if n == 7 && v&0x80 != 0 {
		nf |= FlagS
	}
	return nf
}

// add16 implements ADD HL,rr: H from bit 11, C from bit 15; S, Z, P/V kept.
func add16(hl, value uint16, f uint8) (uint16, uint8) {
	result := uint32(hl) + uint32(value)
	hc := (hl & 0x0FFF) + (value & 0x0FFF)
	return uint16(result), (f & (FlagS | FlagZ | FlagP)) |
		bsel(hc&0x1000 != 0, FlagH, 0) |
		bsel(result&0x10000 != 0, FlagC, 0) |
		(uint8(result>>8) & (Flag3 | Flag5))
}

func adc16(hl, value uint16, f uint8) (uint16, uint8) {
	result := uint32(hl) + uint32(value) + uint32(f&FlagC)
	lookup := uint8(((uint32(hl) & 0x8800) >> 11) | ((uint32(value) & 0x8800) >> 10) | ((result & 0x8800) >> 9))
	r := uint16(result)
	hi := uint8(r >> 8)
	return r, bsel(result&0x10000 != 0, FlagC, 0) |
		OverflowAddTable[lookup>>4] |
		(hi & (Flag3 | Flag5 | FlagS)) |
		HalfcarryAddTable[lookup&0x07] |
		bsel(r != 0, 0, FlagZ)
}

func sbc16(hl, value uint16, f uint8) (uint16, uint8) {
	result := uint32(hl) - uint32(value) - uint32(f&FlagC)
	lookup := uint8(((uint32(hl) & 0x8800) >> 11) | ((uint32(value) & 0x8800) >> 10) | ((result & 0x8800) >> 9))
	r := uint16(result)
	hi := uint8(r >> 8)
	return r, bsel(result&0x10000 != 0, FlagC, 0) |
		FlagN |
		OverflowSubTable[lookup>>4] |
		(hi & (Flag3 | Flag5 | FlagS)) |
		HalfcarrySubTable[lookup&0x07] |
		bsel(r != 0, 0, FlagZ)
}
