package inst

// OpCode identifies the operation of a decoded instruction (not the raw byte
// encoding). Operand shapes, conditions and bit indices live beside it in
// Instruction, so one OpCode covers every addressing form of a mnemonic.
type OpCode uint8

const (
	Unknown OpCode = iota // unrecognized or undocumented encoding

	NOP
	HALT
	LD
	PUSH
	POP
	EX
	EXX

	// Block transfer, search and I/O (ED prefix)
	LDI
	LDIR
	LDD
	LDDR
	CPI
	CPIR
	CPD
	CPDR
	INI
	INIR
	IND
	INDR
	OUTI
	OTIR
	OUTD
	OTDR

	// 8-bit and 16-bit arithmetic/logic
	ADD
	ADC
	SUB
	SBC
	AND
	XOR
	OR
	CP
	INC
	DEC

	// Accumulator and flag operations
	DAA
	CPL
	NEG
	CCF
	SCF
	RLCA
	RRCA
	RLA
	RRA

	// Interrupt state (recorded only)
	DI
	EI
	IM

	// CB prefix rotates/shifts and bit operations
	RLC
	RRC
	RL
	RR
	SLA
	SRA
	SRL
	RLD
	RRD
	BIT
	SET
	RES

	// Control flow
	JP
	JR
	DJNZ
	CALL
	RET
	RETI
	RETN
	RST

	// Port I/O
	IN
	OUT

	OpCodeCount // sentinel
)

// Mnemonic returns the assembly mnemonic of op.
func (op OpCode) Mnemonic() string {
	if op >= OpCodeCount {
		return "???"
	}
	return mnemonics[op]
}

func (op OpCode) String() string { return op.Mnemonic() }

var mnemonics = [OpCodeCount]string{
	Unknown: "???",
	NOP:     "NOP", HALT: "HALT", LD: "LD", PUSH: "PUSH", POP: "POP", EX: "EX", EXX: "EXX",
	LDI: "LDI", LDIR: "LDIR", LDD: "LDD", LDDR: "LDDR",
	CPI: "CPI", CPIR: "CPIR", CPD: "CPD", CPDR: "CPDR",
	INI: "INI", INIR: "INIR", IND: "IND", INDR: "INDR",
	OUTI: "OUTI", OTIR: "OTIR", OUTD: "OUTD", OTDR: "OTDR",
	ADD: "ADD", ADC: "ADC", SUB: "SUB", SBC: "SBC", AND: "AND", XOR: "XOR", OR: "OR", CP: "CP",
	INC: "INC", DEC: "DEC",
	DAA: "DAA", CPL: "CPL", NEG: "NEG", CCF: "CCF", SCF: "SCF",
	RLCA: "RLCA", RRCA: "RRCA", RLA: "RLA", RRA: "RRA",
	DI: "DI", EI: "EI", IM: "IM",
	RLC: "RLC", RRC: "RRC", RL: "RL", RR: "RR", SLA: "SLA", SRA: "SRA", SRL: "SRL",
	RLD: "RLD", RRD: "RRD", BIT: "BIT", SET: "SET", RES: "RES",
	JP: "JP", JR: "JR", DJNZ: "DJNZ", CALL: "CALL", RET: "RET", RETI: "RETI", RETN: "RETN", RST: "RST",
	IN: "IN", OUT: "OUT",
}

// Condition is a flag test for conditional jumps, calls and returns.
// The zero value means the instruction is unconditional.
type Condition uint8

const (
	CondAlways Condition = iota
	CondNZ
	CondZ
	CondNC
	CondC
	CondPO
	CondPE
	CondP
	CondM
)

var condNames = [...]string{"", "NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}

func (c Condition) String() string {
	if int(c) >= len(condNames) {
		return "?"
	}
	return condNames[c]
}

// Flag names a bit of the F register.
type Flag uint8

const (
	FlagCarry          Flag = 0 // C
	FlagAddSubtract    Flag = 1 // N
	FlagParityOverflow Flag = 2 // P/V
	FlagX              Flag = 3 // undocumented copy of result bit 3
	FlagHalfCarry      Flag = 4 // H
	FlagY              Flag = 5 // undocumented copy of result bit 5
	FlagZero           Flag = 6 // Z
	FlagSign           Flag = 7 // S
)

// Mask returns the bit of F that holds the flag.
func (f Flag) Mask() uint8 { return 1 << f }

// Prefix records which prefix bytes precede the opcode byte.
type Prefix uint8

const (
	PrefixNone Prefix = iota
	PrefixCB
	PrefixED
	PrefixDD
	PrefixFD
	PrefixDDCB // DD CB d op
	PrefixFDCB // FD CB d op
)

var prefixBytes = [...][]byte{
	PrefixNone: nil,
	PrefixCB:   {0xCB},
	PrefixED:   {0xED},
	PrefixDD:   {0xDD},
	PrefixFD:   {0xFD},
	PrefixDDCB: {0xDD, 0xCB},
	PrefixFDCB: {0xFD, 0xCB},
}

// Bytes returns the prefix bytes in encoding order.
func (p Prefix) Bytes() []byte {
	if int(p) >= len(prefixBytes) {
		return nil
	}
	return prefixBytes[p]
}

// Indexed reports whether the displacement byte precedes the opcode byte.
func (p Prefix) Indexed() bool { return p == PrefixDDCB || p == PrefixFDCB }

// Instruction is one decoded Z80 instruction. It is comparable and cheap to
// copy; operands needing extra bytes stay unresolved until execution.
type Instruction struct {
	Op     OpCode
	Cond   Condition
	N      uint8 // bit index for BIT/SET/RES, mode for IM
	Dst    Operand
	Src    Operand
	Prefix Prefix
	Opcode uint8 // the final opcode byte
}

// IsUnknown reports whether decoding found no documented instruction.
func (in Instruction) IsUnknown() bool { return in.Op == Unknown }

// OperandBytes returns the number of bytes following the opcode (or, for
// DD CB/FD CB forms, the displacement byte preceding it).
func (in Instruction) OperandBytes() int {
	return in.Dst.Bytes() + in.Src.Bytes()
}

// Length returns the total encoded length in bytes.
func (in Instruction) Length() int {
	return len(in.Prefix.Bytes()) + 1 + in.OperandBytes()
}

// Resolved reports whether every operand value has been fetched.
func (in Instruction) Resolved() bool {
	return in.Dst.Ready() && in.Src.Ready()
}

// Touches reports whether any operand names the given 16-bit register,
// either directly, as an indirect address or as an index base.
func (in Instruction) Touches(r Reg16) bool {
	return in.Dst.uses(r) || in.Src.uses(r)
}
