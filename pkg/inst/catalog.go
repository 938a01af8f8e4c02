package inst

import "strconv"

// Disassemble returns assembly text for an instruction. Unresolved operands
// print as their placeholders (n, nn, (nn), (IX+d), e).
func Disassemble(instr Instruction) string {
	if instr.Op == Unknown {
		return "???"
	}
	buf := make([]byte, 0, 24)
	buf = append(buf, instr.Op.Mnemonic()...)

	var args []string
	switch instr.Op {
	case BIT, SET, RES, IM:
		args = append(args, strconv.Itoa(int(instr.N)))
	}
	if instr.Cond != CondAlways {
		args = append(args, instr.Cond.String())
	}
	if instr.Dst.Kind != KindNone {
		args = append(args, formatOperand(instr.Dst))
	}
	if instr.Src.Kind != KindNone {
		args = append(args, formatOperand(instr.Src))
	}

	for i, a := range args {
		if i == 0 {
			buf = append(buf, ' ')
		} else {
			buf = append(buf, ", "...)
		}
		buf = append(buf, a...)
	}
	return string(buf)
}

func (in Instruction) String() string { return Disassemble(in) }

func formatOperand(o Operand) string {
	switch o.Kind {
	case KindReg8:
		return o.R8.String()
	case KindReg16:
		return o.R16.String()
	case KindImm8:
		if !o.Resolved {
			return "n"
		}
		return string(appendHex8(nil, uint8(o.Value)))
	case KindImm16:
		if !o.Resolved {
			return "nn"
		}
		return string(appendHex16(nil, o.Value))
	case KindIndirectImm:
		if !o.Resolved {
			return "(nn)"
		}
		return "(" + string(appendHex16(nil, o.Value)) + ")"
	case KindIndirectReg:
		return "(" + o.R16.String() + ")"
	case KindIndexed:
		if !o.Resolved {
			return "(" + o.R16.String() + "+d)"
		}
		d := int(o.Disp())
		if d < 0 {
			return "(" + o.R16.String() + "-" + strconv.Itoa(-d) + ")"
		}
		return "(" + o.R16.String() + "+" + strconv.Itoa(d) + ")"
	case KindRelative:
		if !o.Resolved {
			return "e"
		}
		// Relative to the start of a two-byte JR/DJNZ.
		off := int(o.Disp()) + 2
		if off < 0 {
			return "$" + strconv.Itoa(off)
		}
		return "$+" + strconv.Itoa(off)
	case KindPortImm:
		if !o.Resolved {
			return "(n)"
		}
		return "(" + string(appendHex8(nil, uint8(o.Value))) + ")"
	case KindPortC:
		return "(C)"
	case KindFixed:
		return string(appendHex8(nil, uint8(o.Value)))
	}
	return ""
}

func appendHex8(buf []byte, v uint8) []byte {
	const hex = "0123456789ABCDEF"
	if v >= 0xA0 {
		buf = append(buf, '0')
	}
	buf = append(buf, hex[v>>4], hex[v&0x0F], 'h')
	return buf
}

func appendHex16(buf []byte, v uint16) []byte {
	const hex = "0123456789ABCDEF"
	if v>>12 >= 0xA {
		buf = append(buf, '0')
	}
	buf = append(buf, hex[v>>12], hex[(v>>8)&0x0F], hex[(v>>4)&0x0F], hex[v&0x0F], 'h')
	return buf
}

// SeqByteSize returns total byte size for a sequence of instructions.
func SeqByteSize(seq []Instruction) int {
	n := 0
	for i := range seq {
		n += seq[i].Length()
	}
	return n
}
