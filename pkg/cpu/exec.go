package cpu

import (
	"fmt"

	"github.com/oisee/z80-interp/pkg/decode"
	"github.com/oisee/z80-interp/pkg/inst"
)

// fetch consumes the encoding of in from the program image and returns it
// with its operands resolved. PC ends up past the instruction and R has
// advanced once per prefix and opcode byte (not for the DD CB d op opcode,
// which is read as data).
func (s *Session) fetch(in inst.Instruction) (inst.Instruction, error) {
	pc := s.PC()
	if n := in.Length(); len(s.rawBytes(pc, n)) < n {
		return in, fmt.Errorf("%w: %v at %04X runs past the image", ErrProgramBounds, in, pc)
	}

	for range in.Prefix.Bytes() {
		if _, err := s.fetchOpcode(); err != nil {
			return in, err
		}
	}
	if in.Prefix.Indexed() {
		in, err := decode.Resolve(in, s.fetchByte)
		if err != nil {
			return in, err
		}
		_, err = s.fetchByte()
		return in, err
	}
	if _, err := s.fetchOpcode(); err != nil {
		return in, err
	}
	return decode.Resolve(in, s.fetchByte)
}

// execute fetches in and applies its effect.
func (s *Session) execute(in inst.Instruction) (inst.Instruction, error) {
	pc := s.PC()
	in, err := s.fetch(in)
	if err != nil {
		return in, err
	}

	rf := &s.regs
	f := rf.Get8(inst.F)

	switch in.Op {
	case inst.NOP:

	case inst.HALT:
		s.halted = true

	// === Loads ===
	case inst.LD:
		s.load(in)
	case inst.PUSH:
		s.push(s.read16(in.Dst))
	case inst.POP:
		s.write16(in.Dst, s.pop())

	// === Exchanges ===
	case inst.EX:
		switch {
		case in.Dst.Kind == inst.KindIndirectReg:
			// EX (SP),HL
			sp := rf.Get16(inst.SP)
			v := s.mem.Read16(sp)
			s.mem.Write16(sp, rf.Get16(in.Src.R16))
			rf.Set16(in.Src.R16, v)
		default:
			rf.Swap(in.Dst.R16.Slot(), in.Src.R16.Slot())
		}
	case inst.EXX:
		rf.Swap(inst.SlotBC, inst.SlotBC2)
		rf.Swap(inst.SlotDE, inst.SlotDE2)
		rf.Swap(inst.SlotHL, inst.SlotHL2)

	// === 8-bit and 16-bit arithmetic ===
	case inst.ADD, inst.ADC, inst.SBC:
		if in.Dst.Kind == inst.KindReg16 {
			hl := rf.Get16(in.Dst.R16)
			v := rf.Get16(in.Src.R16)
			var r uint16
			var nf uint8
			switch in.Op {
			case inst.ADD:
				r, nf = add16(hl, v, f)
			case inst.ADC:
				r, nf = adc16(hl, v, f)
			default:
				r, nf = sbc16(hl, v, f)
			}
			rf.Set16(in.Dst.R16, r)
			rf.Set8(inst.F, nf)
			break
		}
		s.alu(in.Op, s.read8(in.Src))
	case inst.SUB, inst.AND, inst.XOR, inst.OR, inst.CP:
		s.alu(in.Op, s.read8(in.Src))

	case inst.INC, inst.DEC:
		if in.Dst.Kind == inst.KindReg16 {
			v := rf.Get16(in.Dst.R16)
			if in.Op == inst.INC {
				v++
			} else {
				v--
			}
			rf.Set16(in.Dst.R16, v)
			break
		}
		var r, nf uint8
		if in.Op == inst.INC {
			r, nf = inc8(s.read8(in.Dst), f)
		} else {
			r, nf = dec8(s.read8(in.Dst), f)
		}
		s.write8(in.Dst, r)
		rf.Set8(inst.F, nf)

	case inst.NEG:
		r, nf := sub8(0, rf.Get8(inst.A), 0)
		rf.Set8(inst.A, r)
		rf.Set8(inst.F, nf)

	case inst.RLCA, inst.RRCA, inst.RLA, inst.RRA, inst.DAA, inst.CPL, inst.SCF, inst.CCF:
		r, nf := accOp(in.Op, rf.Get8(inst.A), f)
		rf.Set8(inst.A, r)
		rf.Set8(inst.F, nf)

	// === CB prefix ===
	case inst.RLC, inst.RRC, inst.RL, inst.RR, inst.SLA, inst.SRA, inst.SRL:
		r, nf := rot(in.Op, s.read8(in.Dst), f)
		s.write8(in.Dst, r)
		rf.Set8(inst.F, nf)
	case inst.BIT:
		v := s.read8(in.Dst)
		xy := v
		if in.Dst.Memory() {
			xy = uint8(s.addr(in.Dst) >> 8)
		}
		rf.Set8(inst.F, bit(in.N, v, xy, f))
	case inst.SET:
		s.write8(in.Dst, s.read8(in.Dst)|1<<in.N)
	case inst.RES:
		s.write8(in.Dst, s.read8(in.Dst)&^(1<<in.N))

	case inst.RLD, inst.RRD:
		hl := rf.Get16(inst.HL)
		v := s.mem.Read(hl)
		a := rf.Get8(inst.A)
		if in.Op == inst.RLD {
			s.mem.Write(hl, v<<4|a&0x0F)
			a = a&0xF0 | v>>4
		} else {
			s.mem.Write(hl, a<<4|v>>4)
			a = a&0xF0 | v&0x0F
		}
		rf.Set8(inst.A, a)
		rf.Set8(inst.F, f&FlagC|Sz53pTable[a])

	// === Control flow ===
	case inst.JP:
		if in.Dst.Kind == inst.KindIndirectReg {
			// JP (HL) jumps to HL, not to the word it points at.
			rf.Set16(inst.PC, rf.Get16(in.Dst.R16))
		} else if Test(in.Cond, f) {
			rf.Set16(inst.PC, in.Dst.Value)
		}
	case inst.JR:
		if Test(in.Cond, f) {
			s.jumpRelative(in.Dst)
		}
	case inst.DJNZ:
		b := rf.Get8(inst.B) - 1
		rf.Set8(inst.B, b)
		if b != 0 {
			s.jumpRelative(in.Dst)
		}
	case inst.CALL:
		if Test(in.Cond, f) {
			s.push(rf.Get16(inst.PC))
			rf.Set16(inst.PC, in.Dst.Value)
		}
	case inst.RST:
		s.push(rf.Get16(inst.PC))
		rf.Set16(inst.PC, in.Dst.Value)
	case inst.RET:
		if Test(in.Cond, f) {
			rf.Set16(inst.PC, s.pop())
		}
	case inst.RETI:
		rf.Set16(inst.PC, s.pop())
	case inst.RETN:
		rf.Set16(inst.PC, s.pop())
		s.iff1 = s.iff2

	// === Interrupt state ===
	case inst.DI:
		s.iff1, s.iff2 = false, false
	case inst.EI:
		s.iff1, s.iff2 = true, true
	case inst.IM:
		s.im = in.N

	// === I/O ===
	case inst.IN:
		if in.Src.Kind == inst.KindPortC {
			v := s.ports.In(rf.Get16(inst.BC))
			s.write8(in.Dst, v)
			rf.Set8(inst.F, f&FlagC|Sz53pTable[v])
			break
		}
		s.write8(in.Dst, s.ports.In(s.port(in.Src)))
	case inst.OUT:
		s.ports.Out(s.port(in.Dst), s.read8(in.Src))

	// === Block transfer, search and I/O ===
	case inst.LDI, inst.LDD, inst.LDIR, inst.LDDR:
		s.blockLoad(in.Op)
	case inst.CPI, inst.CPD, inst.CPIR, inst.CPDR:
		s.blockCompare(in.Op)
	case inst.INI, inst.IND, inst.INIR, inst.INDR:
		s.blockIn(in.Op)
	case inst.OUTI, inst.OUTD, inst.OTIR, inst.OTDR:
		s.blockOut(in.Op)

	default:
		return in, &UnimplementedError{PC: pc, Instr: in}
	}
	return in, nil
}

func (s *Session) load(in inst.Instruction) {
	rf := &s.regs
	switch {
	case in.Dst.Kind == inst.KindReg16 || in.Src.Kind == inst.KindReg16:
		s.write16(in.Dst, s.read16(in.Src))
	case in.Src.Kind == inst.KindReg8 && (in.Src.R8 == inst.I || in.Src.R8 == inst.R):
		// LD A,I and LD A,R report IFF2 in P/V.
		v := rf.Get8(in.Src.R8)
		rf.Set8(inst.A, v)
		rf.Set8(inst.F, rf.Get8(inst.F)&FlagC|Sz53Table[v]|bsel(s.iff2, FlagP, 0))
	default:
		s.write8(in.Dst, s.read8(in.Src))
	}
}

func (s *Session) alu(op inst.OpCode, v uint8) {
	r, nf := alu8(op, s.regs.Get8(inst.A), v, s.regs.Get8(inst.F))
	s.regs.Set8(inst.A, r)
	s.regs.Set8(inst.F, nf)
}

// jumpRelative adds the signed displacement to PC, which already points
// past the instruction.
func (s *Session) jumpRelative(o inst.Operand) {
	s.regs.Set16(inst.PC, s.PC()+uint16(int16(o.Disp())))
}

func (s *Session) push(v uint16) {
	sp := s.regs.Get16(inst.SP) - 2
	s.regs.Set16(inst.SP, sp)
	s.mem.Write16(sp, v)
}

func (s *Session) pop() uint16 {
	sp := s.regs.Get16(inst.SP)
	s.regs.Set16(inst.SP, sp+2)
	return s.mem.Read16(sp)
}

// port returns the 16-bit port address of an IN/OUT operand.
func (s *Session) port(o inst.Operand) uint16 {
	if o.Kind == inst.KindPortC {
		return s.regs.Get16(inst.BC)
	}
	return uint16(s.regs.Get8(inst.A))<<8 | o.Value&0xFF
}

// addr returns the effective address of a memory operand.
func (s *Session) addr(o inst.Operand) uint16 {
	switch o.Kind {
	case inst.KindIndirectImm:
		return o.Value
	case inst.KindIndirectReg:
		return s.regs.Get16(o.R16)
	case inst.KindIndexed:
		return s.regs.Get16(o.R16) + uint16(int16(o.Disp()))
	}
	panic(fmt.Sprintf("cpu: operand kind %d is not a memory operand", o.Kind))
}

func (s *Session) read8(o inst.Operand) uint8 {
	switch o.Kind {
	case inst.KindReg8:
		return s.regs.Get8(o.R8)
	case inst.KindImm8:
		return uint8(o.Value)
	case inst.KindIndirectImm, inst.KindIndirectReg, inst.KindIndexed:
		return s.mem.Read(s.addr(o))
	}
	panic(fmt.Sprintf("cpu: operand kind %d is not an 8-bit source", o.Kind))
}

func (s *Session) write8(o inst.Operand, v uint8) {
	switch o.Kind {
	case inst.KindReg8:
		s.regs.Set8(o.R8, v)
	case inst.KindIndirectImm, inst.KindIndirectReg, inst.KindIndexed:
		s.mem.Write(s.addr(o), v)
	default:
		panic(fmt.Sprintf("cpu: operand kind %d is not an 8-bit destination", o.Kind))
	}
}

func (s *Session) read16(o inst.Operand) uint16 {
	switch o.Kind {
	case inst.KindReg16:
		return s.regs.Get16(o.R16)
	case inst.KindImm16, inst.KindFixed:
		return o.Value
	case inst.KindIndirectImm:
		return s.mem.Read16(o.Value)
	}
	panic(fmt.Sprintf("cpu: operand kind %d is not a 16-bit source", o.Kind))
}

func (s *Session) write16(o inst.Operand, v uint16) {
	switch o.Kind {
	case inst.KindReg16:
		s.regs.Set16(o.R16, v)
	case inst.KindIndirectImm:
		s.mem.Write16(o.Value, v)
	default:
		panic(fmt.Sprintf("cpu: operand kind %d is not a 16-bit destination", o.Kind))
	}
}

// blockStep returns +1 for the incrementing block forms and -1 for the
// decrementing ones.
func blockStep(op inst.OpCode) uint16 {
	switch op {
	case inst.LDD, inst.LDDR, inst.CPD, inst.CPDR, inst.IND, inst.INDR, inst.OUTD, inst.OTDR:
		return 0xFFFF
	}
	return 1
}

func repeats(op inst.OpCode) bool {
	switch op {
	case inst.LDIR, inst.LDDR, inst.CPIR, inst.CPDR, inst.INIR, inst.INDR, inst.OTIR, inst.OTDR:
		return true
	}
	return false
}

// repeat rewinds PC onto the ED prefix so the instruction runs again.
func (s *Session) repeat() {
	s.regs.Set16(inst.PC, s.PC()-2)
}

func (s *Session) blockLoad(op inst.OpCode) {
	rf := &s.regs
	d := blockStep(op)
	hl, de := rf.Get16(inst.HL), rf.Get16(inst.DE)
	v := s.mem.Read(hl)
	s.mem.Write(de, v)
	rf.Set16(inst.HL, hl+d)
	rf.Set16(inst.DE, de+d)
	bc := rf.Get16(inst.BC) - 1
	rf.Set16(inst.BC, bc)

	n := v + rf.Get8(inst.A)
	rf.Set8(inst.F, rf.Get8(inst.F)&(FlagC|FlagZ|FlagS)|
		bsel(bc != 0, FlagV, 0)|
		n&Flag3|(n&0x02)<<4)
	if repeats(op) && bc != 0 {
		s.repeat()
	}
}

func (s *Session) blockCompare(op inst.OpCode) {
	rf := &s.regs
	hl := rf.Get16(inst.HL)
	a := rf.Get8(inst.A)
	v := s.mem.Read(hl)
	r := a - v
	lookup := (a&0x08)>>3 | (v&0x08)>>2 | (r&0x08)>>1
	rf.Set16(inst.HL, hl+blockStep(op))
	bc := rf.Get16(inst.BC) - 1
	rf.Set16(inst.BC, bc)

	nf := rf.Get8(inst.F)&FlagC | FlagN |
		bsel(bc != 0, FlagV, 0) |
		HalfcarrySubTable[lookup] |
		bsel(r == 0, FlagZ, 0) |
		r&FlagS
	n := r
	if nf&FlagH != 0 {
		n--
	}
	nf |= n&Flag3 | (n&0x02)<<4
	rf.Set8(inst.F, nf)
	if repeats(op) && bc != 0 && r != 0 {
		s.repeat()
	}
}

// blockIOFlags computes the flags shared by INI/IND/OUTI/OUTD and their
// repeating forms: k is the transferred byte plus the adjusted C or L.
func blockIOFlags(v, b uint8, k int) uint8 {
	return Sz53Table[b] |
		bsel(v&0x80 != 0, FlagN, 0) |
		bsel(k > 0xFF, FlagH|FlagC, 0) |
		ParityTable[uint8(k)&0x07^b]
}

func (s *Session) blockIn(op inst.OpCode) {
	rf := &s.regs
	d := blockStep(op)
	v := s.ports.In(rf.Get16(inst.BC))
	hl := rf.Get16(inst.HL)
	s.mem.Write(hl, v)
	rf.Set16(inst.HL, hl+d)
	b := rf.Get8(inst.B) - 1
	rf.Set8(inst.B, b)

	k := int(v) + int(rf.Get8(inst.C)+uint8(d))
	rf.Set8(inst.F, blockIOFlags(v, b, k))
	if repeats(op) && b != 0 {
		s.repeat()
	}
}

func (s *Session) blockOut(op inst.OpCode) {
	rf := &s.regs
	hl := rf.Get16(inst.HL)
	v := s.mem.Read(hl)
	b := rf.Get8(inst.B) - 1
	rf.Set8(inst.B, b)
	s.ports.Out(rf.Get16(inst.BC), v)
	rf.Set16(inst.HL, hl+blockStep(op))

	k := int(v) + int(rf.Get8(inst.L))
	rf.Set8(inst.F, blockIOFlags(v, b, k))
	if repeats(op) && b != 0 {
		s.repeat()
	}
}
