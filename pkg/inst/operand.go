package inst

// OperandKind tags the shape of an Operand.
type OperandKind uint8

const (
	KindNone        OperandKind = iota
	KindReg8                    // r
	KindReg16                   // rr
	KindImm8                    // n
	KindImm16                   // nn
	KindIndirectImm             // (nn)
	KindIndirectReg             // (rr)
	KindIndexed                 // (IX+d), (IY+d)
	KindRelative                // e, relative to the next instruction
	KindPortImm                 // (n) port
	KindPortC                   // (C) port
	KindFixed                   // constant known at decode time (RST target)
)

// Operand is a tagged union over every operand shape. Value carries the
// immediate, absolute address, port, or displacement (low byte, signed) once
// Resolved is set; KindFixed values are resolved at decode time.
type Operand struct {
	Kind     OperandKind
	R8       Reg8
	R16      Reg16
	Value    uint16
	Resolved bool
}

// Operand constructors.
func Reg(r Reg8) Operand { return Operand{Kind: KindReg8, R8: r} }
func Pair(r Reg16) Operand { return Operand{Kind: KindReg16, R16: r} }
func Imm8() Operand { return Operand{Kind: KindImm8} }
func Imm16() Operand { return Operand{Kind: KindImm16} }
func Addr() Operand { return Operand{Kind: KindIndirectImm} }
func Ind(r Reg16) Operand { return Operand{Kind: KindIndirectReg, R16: r} }
func Indexed(r Reg16) Operand { return Operand{Kind: KindIndexed, R16: r} }
func Rel() Operand { return Operand{Kind: KindRelative} }
func PortImm() Operand { return Operand{Kind: KindPortImm} }
func PortC() Operand { return Operand{Kind: KindPortC} }
func Fixed(v uint16) Operand { return Operand{Kind: KindFixed, Value: v, Resolved: true} }

// Bytes returns how many instruction bytes the operand occupies.
func (o Operand) Bytes() int {
	switch o.Kind {
	case KindImm8, KindIndexed, KindRelative, KindPortImm:
		return 1
	case KindImm16, KindIndirectImm:
		return 2
	}
	return 0
}

// Ready reports whether the operand needs no more bytes.
func (o Operand) Ready() bool {
	return o.Bytes() == 0 || o.Resolved
}

// Disp returns the signed displacement of Indexed and Relative operands.
func (o Operand) Disp() int8 { return int8(uint8(o.Value)) }

// Memory reports whether the operand addresses memory.
func (o Operand) Memory() bool {
	switch o.Kind {
	case KindIndirectImm, KindIndirectReg, KindIndexed:
		return true
	}
	return false
}

// With returns a copy of o with its value resolved.
func (o Operand) With(v uint16) Operand {
	o.Value = v
	o.Resolved = true
	return o
}

func (o Operand) uses(r Reg16) bool {
	switch o.Kind {
	case KindReg16, KindIndirectReg, KindIndexed:
		return o.R16 == r
	case KindReg8:
		hi, lo, ok := r.Halves()
		return ok && (o.R8 == hi || o.R8 == lo)
	}
	return false
}
