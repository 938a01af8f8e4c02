package inst

import (
	"testing"
)

// TestMnemonicsComplete verifies every OpCode has a mnemonic.
func TestMnemonicsComplete(t *testing.T) {
	for op := OpCode(1); op < OpCodeCount; op++ {
		if m := op.Mnemonic(); m == "" || m == "???" {
			t.Errorf("OpCode %d has no mnemonic", op)
		}
	}
	if OpCodeCount.Mnemonic() != "???" {
		t.Error("out-of-range OpCode should print ???")
	}
}

func TestDisassemble(t *testing.T) {
	tests := []struct {
		instr Instruction
		want  string
	}{
		{Instruction{Op: NOP}, "NOP"},
		{Instruction{Op: Unknown, Prefix: PrefixED}, "???"},
		{Instruction{Op: LD, Dst: Reg(A), Src: Imm8().With(7)}, "LD A, 07h"},
		{Instruction{Op: LD, Dst: Reg(A), Src: Imm8().With(0xFF)}, "LD A, 0FFh"},
		{Instruction{Op: LD, Dst: Reg(A), Src: Imm8()}, "LD A, n"},
		{Instruction{Op: LD, Dst: Pair(HL), Src: Imm16().With(0x1234)}, "LD HL, 1234h"},
		{Instruction{Op: LD, Dst: Pair(SP), Src: Imm16().With(0xF000)}, "LD SP, 0F000h"},
		{Instruction{Op: LD, Dst: Addr().With(0x9000), Src: Reg(A)}, "LD (9000h), A"},
		{Instruction{Op: LD, Dst: Reg(B), Src: Ind(HL)}, "LD B, (HL)"},
		{Instruction{Op: LD, Dst: Reg(A), Src: Indexed(IX).With(5), Prefix: PrefixDD}, "LD A, (IX+5)"},
		{Instruction{Op: LD, Dst: Indexed(IY).With(0xFE), Src: Reg(C), Prefix: PrefixFD}, "LD (IY-2), C"},
		{Instruction{Op: LD, Dst: Reg(A), Src: Indexed(IX), Prefix: PrefixDD}, "LD A, (IX+d)"},
		{Instruction{Op: JR, Cond: CondNZ, Dst: Rel().With(0xFE)}, "JR NZ, $+0"},
		{Instruction{Op: DJNZ, Dst: Rel().With(0xFB)}, "DJNZ $-3"},
		{Instruction{Op: JR, Dst: Rel().With(3)}, "JR $+5"},
		{Instruction{Op: RET, Cond: CondM}, "RET M"},
		{Instruction{Op: RST, Dst: Fixed(0x38)}, "RST 38h"},
		{Instruction{Op: BIT, N: 3, Dst: Reg(D), Prefix: PrefixCB}, "BIT 3, D"},
		{Instruction{Op: SET, N: 7, Dst: Indexed(IX).With(1), Prefix: PrefixDDCB}, "SET 7, (IX+1)"},
		{Instruction{Op: IM, N: 1, Prefix: PrefixED}, "IM 1"},
		{Instruction{Op: IN, Dst: Reg(A), Src: PortImm().With(0xFE)}, "IN A, (0FEh)"},
		{Instruction{Op: OUT, Dst: PortC(), Src: Reg(E), Prefix: PrefixED}, "OUT (C), E"},
		{Instruction{Op: EX, Dst: Pair(AF), Src: Pair(AF2)}, "EX AF, AF'"},
		{Instruction{Op: JP, Dst: Ind(IX), Prefix: PrefixDD}, "JP (IX)"},
	}
	for _, tc := range tests {
		if got := tc.instr.String(); got != tc.want {
			t.Errorf("Disassemble(%+v) = %q, want %q", tc.instr, got, tc.want)
		}
	}
}

func TestLength(t *testing.T) {
	tests := []struct {
		instr Instruction
		want  int
	}{
		{Instruction{Op: NOP}, 1},
		{Instruction{Op: LD, Dst: Reg(A), Src: Imm8()}, 2},
		{Instruction{Op: LD, Dst: Pair(HL), Src: Imm16()}, 3},
		{Instruction{Op: RLC, Dst: Reg(B), Prefix: PrefixCB}, 2},
		{Instruction{Op: LD, Dst: Pair(BC), Src: Addr(), Prefix: PrefixED}, 4},
		{Instruction{Op: LD, Dst: Indexed(IX), Src: Imm8(), Prefix: PrefixDD}, 4},
		{Instruction{Op: RES, Dst: Indexed(IY), Prefix: PrefixFDCB}, 4},
		{Instruction{Op: JR, Dst: Rel()}, 2},
		{Instruction{Op: OUT, Dst: PortImm(), Src: Reg(A)}, 2},
		{Instruction{Op: Unknown, Prefix: PrefixDD}, 2},
	}
	for _, tc := range tests {
		if got := tc.instr.Length(); got != tc.want {
			t.Errorf("%s: Length() = %d, want %d", tc.instr, got, tc.want)
		}
	}
}

func TestResolved(t *testing.T) {
	in := Instruction{Op: LD, Dst: Indexed(IX), Src: Imm8(), Prefix: PrefixDD}
	if in.Resolved() {
		t.Error("fresh indexed load should be unresolved")
	}
	in.Dst = in.Dst.With(1)
	if in.Resolved() {
		t.Error("immediate still pending")
	}
	in.Src = in.Src.With(2)
	if !in.Resolved() {
		t.Error("both operands fetched, should be resolved")
	}
	if !(Instruction{Op: NOP}).Resolved() {
		t.Error("NOP has nothing to resolve")
	}
}

func TestTouches(t *testing.T) {
	ldAH := Instruction{Op: LD, Dst: Reg(A), Src: Reg(H)}
	if !ldAH.Touches(HL) {
		t.Error("LD A,H touches HL through H")
	}
	if ldAH.Touches(IX) {
		t.Error("LD A,H does not touch IX")
	}
	ldIdx := Instruction{Op: LD, Dst: Reg(H), Src: Indexed(IX)}
	if !ldIdx.Touches(IX) {
		t.Error("LD H,(IX+d) touches IX")
	}
	if !(Instruction{Op: LD, Dst: Reg(IXL), Src: Imm8()}).Touches(IX) {
		t.Error("LD IXL,n touches IX")
	}
}

func TestParseRegister(t *testing.T) {
	tests := []struct {
		name string
		want Register
	}{
		{"a", Register{R8: A}},
		{"F", Register{R8: F}},
		{" ixh ", Register{R8: IXH}},
		{"R", Register{R8: R}},
		{"hl", Register{Wide: true, R16: HL}},
		{"SP", Register{Wide: true, R16: SP}},
		{"af'", Register{Wide: true, R16: AF2}},
		{"BC'", Register{Wide: true, R16: BC2}},
	}
	for _, tc := range tests {
		got, err := ParseRegister(tc.name)
		if err != nil {
			t.Errorf("ParseRegister(%q): %v", tc.name, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseRegister(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
	for _, bad := range []string{"", "Q", "HLX", "A'"} {
		if _, err := ParseRegister(bad); err == nil {
			t.Errorf("ParseRegister(%q) should fail", bad)
		}
	}
}

// TestRegisterAliasing verifies every 8-bit register projects onto the slot
// of the pair that contains it.
func TestRegisterAliasing(t *testing.T) {
	for r := Reg16(0); r < NumReg16; r++ {
		hi, lo, ok := r.Halves()
		if !ok {
			continue
		}
		hs, hh := hi.Loc()
		ls, lh := lo.Loc()
		if hs != r.Slot() || ls != r.Slot() {
			t.Errorf("%s: halves %s/%s live in slots %s/%s, want %s", r, hi, lo, hs, ls, r.Slot())
		}
		if hh != High || lh != Low {
			t.Errorf("%s: %s should be high and %s low", r, hi, lo)
		}
	}
	if s, _ := I.Loc(); s != SlotIR {
		t.Errorf("I lives in %s, want IR", s)
	}
	if _, _, ok := SP.Halves(); ok {
		t.Error("SP has no named halves")
	}
}

func TestSeqByteSize(t *testing.T) {
	seq := []Instruction{
		{Op: LD, Dst: Reg(A), Src: Imm8()},
		{Op: LD, Dst: Reg(B), Src: Reg(A)},
		{Op: LD, Dst: Pair(IX), Src: Imm16(), Prefix: PrefixDD},
	}
	if got := SeqByteSize(seq); got != 7 {
		t.Errorf("SeqByteSize = %d, want 7", got)
	}
}
