package decode

import "github.com/oisee/z80-interp/pkg/inst"

// Prefix bytes.
const (
	PrefixCB uint8 = 0xCB
	PrefixDD uint8 = 0xDD
	PrefixED uint8 = 0xED
	PrefixFD uint8 = 0xFD
)

// IsPrefix reports whether b selects another decode table.
func IsPrefix(b uint8) bool {
	return b == PrefixCB || b == PrefixDD || b == PrefixED || b == PrefixFD
}

func unknown(b uint8) inst.Instruction {
	return inst.Instruction{Op: inst.Unknown, Opcode: b}
}

// Decode decodes an unprefixed opcode (or, with an IX/IY context, the byte
// following DD/FD). Prefix bytes decode to Unknown; callers that see one
// switch tables instead (see Shape).
//
// In an index context only instructions that actually use the index
// register are documented; everything else decodes to Unknown.
func Decode(f Fields, ctx Context) inst.Instruction {
	var in inst.Instruction
	switch f.X {
	case 0:
		in = decodeX0(f, ctx)
	case 1:
		in = decodeX1(f, ctx)
	case 2:
		in = inst.Instruction{Op: aluTable[f.Y], Dst: aluDst(aluTable[f.Y]), Src: ctx.r(f.Z)}
	case 3:
		in = decodeX3(f, ctx)
	}
	in.Opcode = f.Byte()

	if ctx.indexed() {
		if in.Op == inst.Unknown || !in.Touches(ctx.index()) {
			in = unknown(f.Byte())
		}
		in.Prefix = indexPrefix(ctx)
	}
	return in
}

func indexPrefix(ctx Context) inst.Prefix {
	if ctx.index() == inst.IY {
		return inst.PrefixFD
	}
	return inst.PrefixDD
}

func decodeX0(f Fields, ctx Context) inst.Instruction {
	switch f.Z {
	case 0:
		switch f.Y {
		case 0:
			return inst.Instruction{Op: inst.NOP}
		case 1:
			return inst.Instruction{Op: inst.EX, Dst: inst.Pair(inst.AF), Src: inst.Pair(inst.AF2)}
		case 2:
			return inst.Instruction{Op: inst.DJNZ, Dst: inst.Rel()}
		case 3:
			return inst.Instruction{Op: inst.JR, Dst: inst.Rel()}
		default:
			return inst.Instruction{Op: inst.JR, Cond: ccTable[f.Y-4], Dst: inst.Rel()}
		}

	case 1:
		if f.Q == 0 {
			return inst.Instruction{Op: inst.LD, Dst: inst.Pair(ctx.rp(f.P)), Src: inst.Imm16()}
		}
		return inst.Instruction{Op: inst.ADD, Dst: inst.Pair(ctx.index()), Src: inst.Pair(ctx.rp(f.P))}

	case 2:
		// (q, p) selects one of eight indirect loads.
		switch f.P {
		case 0:
			if f.Q == 0 {
				return inst.Instruction{Op: inst.LD, Dst: inst.Ind(inst.BC), Src: inst.Reg(inst.A)}
			}
			return inst.Instruction{Op: inst.LD, Dst: inst.Reg(inst.A), Src: inst.Ind(inst.BC)}
		case 1:
			if f.Q == 0 {
				return inst.Instruction{Op: inst.LD, Dst: inst.Ind(inst.DE), Src: inst.Reg(inst.A)}
			}
			return inst.Instruction{Op: inst.LD, Dst: inst.Reg(inst.A), Src: inst.Ind(inst.DE)}
		case 2:
			if f.Q == 0 {
				return inst.Instruction{Op: inst.LD, Dst: inst.Addr(), Src: inst.Pair(ctx.index())}
			}
			return inst.Instruction{Op: inst.LD, Dst: inst.Pair(ctx.index()), Src: inst.Addr()}
		default:
			if f.Q == 0 {
				return inst.Instruction{Op: inst.LD, Dst: inst.Addr(), Src: inst.Reg(inst.A)}
			}
			return inst.Instruction{Op: inst.LD, Dst: inst.Reg(inst.A), Src: inst.Addr()}
		}

	case 3:
		if f.Q == 0 {
			return inst.Instruction{Op: inst.INC, Dst: inst.Pair(ctx.rp(f.P))}
		}
		return inst.Instruction{Op: inst.DEC, Dst: inst.Pair(ctx.rp(f.P))}

	case 4:
		return inst.Instruction{Op: inst.INC, Dst: ctx.r(f.Y)}
	case 5:
		return inst.Instruction{Op: inst.DEC, Dst: ctx.r(f.Y)}
	case 6:
		return inst.Instruction{Op: inst.LD, Dst: ctx.r(f.Y), Src: inst.Imm8()}
	}
	return inst.Instruction{Op: accTable[f.Y]}
}

func decodeX1(f Fields, ctx Context) inst.Instruction {
	// LD (HL),(HL) does not exist; its slot is HALT.
	if f.Y == 6 && f.Z == 6 {
		return inst.Instruction{Op: inst.HALT}
	}
	// With an index prefix H and L stay H and L beside (IX+d).
	return inst.Instruction{Op: inst.LD, Dst: ctx.r(f.Y), Src: ctx.r(f.Z)}
}

func decodeX3(f Fields, ctx Context) inst.Instruction {
	switch f.Z {
	case 0:
		return inst.Instruction{Op: inst.RET, Cond: ccTable[f.Y]}

	case 1:
		if f.Q == 0 {
			return inst.Instruction{Op: inst.POP, Dst: inst.Pair(ctx.rp2(f.P))}
		}
		switch f.P {
		case 0:
			return inst.Instruction{Op: inst.RET}
		case 1:
			return inst.Instruction{Op: inst.EXX}
		case 2:
			return inst.Instruction{Op: inst.JP, Dst: inst.Ind(ctx.index())}
		default:
			return inst.Instruction{Op: inst.LD, Dst: inst.Pair(inst.SP), Src: inst.Pair(ctx.index())}
		}

	case 2:
		return inst.Instruction{Op: inst.JP, Cond: ccTable[f.Y], Dst: inst.Imm16()}

	case 3:
		switch f.Y {
		case 0:
			return inst.Instruction{Op: inst.JP, Dst: inst.Imm16()}
		case 1:
			return unknown(PrefixCB)
		case 2:
			return inst.Instruction{Op: inst.OUT, Dst: inst.PortImm(), Src: inst.Reg(inst.A)}
		case 3:
			return inst.Instruction{Op: inst.IN, Dst: inst.Reg(inst.A), Src: inst.PortImm()}
		case 4:
			return inst.Instruction{Op: inst.EX, Dst: inst.Ind(inst.SP), Src: inst.Pair(ctx.index())}
		case 5:
			// EX DE,HL is never indexed.
			return inst.Instruction{Op: inst.EX, Dst: inst.Pair(inst.DE), Src: inst.Pair(inst.HL)}
		case 6:
			return inst.Instruction{Op: inst.DI}
		default:
			return inst.Instruction{Op: inst.EI}
		}

	case 4:
		return inst.Instruction{Op: inst.CALL, Cond: ccTable[f.Y], Dst: inst.Imm16()}

	case 5:
		if f.Q == 0 {
			return inst.Instruction{Op: inst.PUSH, Dst: inst.Pair(ctx.rp2(f.P))}
		}
		if f.P == 0 {
			return inst.Instruction{Op: inst.CALL, Dst: inst.Imm16()}
		}
		// DD, ED, FD
		return unknown(f.Byte())

	case 6:
		op := aluTable[f.Y]
		return inst.Instruction{Op: op, Dst: aluDst(op), Src: inst.Imm8()}
	}
	return inst.Instruction{Op: inst.RST, Dst: inst.Fixed(uint16(f.Y) * 8)}
}

// DecodeCB decodes the byte following CB. In an index context (DD CB d op)
// only the (IX+d) forms are documented.
func DecodeCB(f Fields, ctx Context) inst.Instruction {
	in := inst.Instruction{Dst: ctx.r(f.Z), Opcode: f.Byte(), Prefix: inst.PrefixCB}
	switch f.X {
	case 0:
		in.Op = rotTable[f.Y]
	case 1:
		in.Op, in.N = inst.BIT, f.Y
	case 2:
		in.Op, in.N = inst.RES, f.Y
	case 3:
		in.Op, in.N = inst.SET, f.Y
	}

	if ctx.indexed() {
		in.Prefix = inst.PrefixDDCB
		if ctx.index() == inst.IY {
			in.Prefix = inst.PrefixFDCB
		}
		if f.Z != 6 {
			// The displacement byte is still part of the encoding.
			in.Op, in.N, in.Dst = inst.Unknown, 0, inst.Indexed(ctx.index())
		}
	}
	if in.Op == inst.Unknown && !ctx.indexed() {
		in.Dst = inst.Operand{}
	}
	return in
}

// blockTable is bli[a][b] for ED x=2, indexed [y-4][z].
var blockTable = [4][4]inst.OpCode{
	{inst.LDI, inst.CPI, inst.INI, inst.OUTI},
	{inst.LDD, inst.CPD, inst.IND, inst.OUTD},
	{inst.LDIR, inst.CPIR, inst.INIR, inst.OTIR},
	{inst.LDDR, inst.CPDR, inst.INDR, inst.OTDR},
}

// DecodeED decodes the byte following ED. Only the documented entries of
// the table are recognized; mirrors and holes decode to Unknown.
func DecodeED(f Fields) inst.Instruction {
	in := decodeED(f)
	in.Opcode = f.Byte()
	in.Prefix = inst.PrefixED
	return in
}

func decodeED(f Fields) inst.Instruction {
	switch f.X {
	case 1:
		return decodeEDX1(f)
	case 2:
		if f.Z <= 3 && f.Y >= 4 {
			return inst.Instruction{Op: blockTable[f.Y-4][f.Z]}
		}
	}
	return inst.Instruction{Op: inst.Unknown}
}

func decodeEDX1(f Fields) inst.Instruction {
	switch f.Z {
	case 0:
		if f.Y != 6 {
			return inst.Instruction{Op: inst.IN, Dst: inst.Reg(regTable[f.Y]), Src: inst.PortC()}
		}
	case 1:
		if f.Y != 6 {
			return inst.Instruction{Op: inst.OUT, Dst: inst.PortC(), Src: inst.Reg(regTable[f.Y])}
		}
	case 2:
		op := inst.SBC
		if f.Q == 1 {
			op = inst.ADC
		}
		return inst.Instruction{Op: op, Dst: inst.Pair(inst.HL), Src: inst.Pair(rpTable[f.P])}
	case 3:
		// ED 63 and ED 6B duplicate 22h and 2Ah.
		if f.P == 2 {
			break
		}
		if f.Q == 0 {
			return inst.Instruction{Op: inst.LD, Dst: inst.Addr(), Src: inst.Pair(rpTable[f.P])}
		}
		return inst.Instruction{Op: inst.LD, Dst: inst.Pair(rpTable[f.P]), Src: inst.Addr()}
	case 4:
		if f.Y == 0 {
			return inst.Instruction{Op: inst.NEG}
		}
	case 5:
		switch f.Y {
		case 0:
			return inst.Instruction{Op: inst.RETN}
		case 1:
			return inst.Instruction{Op: inst.RETI}
		}
	case 6:
		switch f.Y {
		case 0, 2, 3:
			return inst.Instruction{Op: inst.IM, N: imTable[f.Y]}
		}
	case 7:
		switch f.Y {
		case 0:
			return inst.Instruction{Op: inst.LD, Dst: inst.Reg(inst.I), Src: inst.Reg(inst.A)}
		case 1:
			return inst.Instruction{Op: inst.LD, Dst: inst.Reg(inst.R), Src: inst.Reg(inst.A)}
		case 2:
			return inst.Instruction{Op: inst.LD, Dst: inst.Reg(inst.A), Src: inst.Reg(inst.I)}
		case 3:
			return inst.Instruction{Op: inst.LD, Dst: inst.Reg(inst.A), Src: inst.Reg(inst.R)}
		case 4:
			return inst.Instruction{Op: inst.RRD}
		case 5:
			return inst.Instruction{Op: inst.RLD}
		}
	}
	return inst.Instruction{Op: inst.Unknown}
}
