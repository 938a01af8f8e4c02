package decode

import "github.com/oisee/z80-interp/pkg/inst"

// Context carries the decode-time register context: which 16-bit register
// plays the role of HL. The zero value selects HL itself; the DD and FD
// prefixes select IX and IY.
type Context struct {
	Index inst.Reg16
}

// Plain is the unprefixed decode context.
var Plain = Context{Index: inst.HL}

func (c Context) index() inst.Reg16 {
	if c.Index == inst.IX || c.Index == inst.IY {
		return c.Index
	}
	return inst.HL
}

func (c Context) indexed() bool { return c.index() != inst.HL }

// regTable is r[] indexed by y or z. Index 6 is (HL), not a register.
var regTable = [8]inst.Reg8{inst.B, inst.C, inst.D, inst.E, inst.H, inst.L, 0, inst.A}

// rpTable is rp[] indexed by p.
var rpTable = [4]inst.Reg16{inst.BC, inst.DE, inst.HL, inst.SP}

// rp2Table is rp2[] indexed by p, used by PUSH and POP.
var rp2Table = [4]inst.Reg16{inst.BC, inst.DE, inst.HL, inst.AF}

// ccTable is cc[] indexed by y; JR uses the first four entries indexed by y-4.
var ccTable = [8]inst.Condition{
	inst.CondNZ, inst.CondZ, inst.CondNC, inst.CondC,
	inst.CondPO, inst.CondPE, inst.CondP, inst.CondM,
}

var aluTable = [8]inst.OpCode{inst.ADD, inst.ADC, inst.SUB, inst.SBC, inst.AND, inst.XOR, inst.OR, inst.CP}

// rotTable is rot[] indexed by y; SLL (y=6) is undocumented.
var rotTable = [8]inst.OpCode{inst.RLC, inst.RRC, inst.RL, inst.RR, inst.SLA, inst.SRA, inst.Unknown, inst.SRL}

var accTable = [8]inst.OpCode{inst.RLCA, inst.RRCA, inst.RLA, inst.RRA, inst.DAA, inst.CPL, inst.SCF, inst.CCF}

var imTable = [8]uint8{0, 0, 1, 2, 0, 0, 1, 2}

// r resolves r[i] to an operand. Index 6 is memory via HL, or via IX+d/IY+d
// in an index context.
func (c Context) r(i uint8) inst.Operand {
	if i == 6 {
		if c.indexed() {
			return inst.Indexed(c.index())
		}
		return inst.Ind(inst.HL)
	}
	return inst.Reg(regTable[i])
}

// rp resolves rp[p], substituting the index register for HL.
func (c Context) rp(p uint8) inst.Reg16 {
	if rpTable[p] == inst.HL {
		return c.index()
	}
	return rpTable[p]
}

func (c Context) rp2(p uint8) inst.Reg16 {
	if rp2Table[p] == inst.HL {
		return c.index()
	}
	return rp2Table[p]
}

// aluDst is the explicit accumulator operand of ADD/ADC/SBC. The other ALU
// operations are written without it (SUB n, AND n ...).
func aluDst(op inst.OpCode) inst.Operand {
	switch op {
	case inst.ADD, inst.ADC, inst.SBC:
		return inst.Reg(inst.A)
	}
	return inst.Operand{}
}
