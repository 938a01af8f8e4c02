// Package decode turns Z80 opcode bytes into inst.Instruction values.
//
// Every opcode byte is split into the classic x/y/z/p/q fields:
//
//	 7 6 5 4 3 2 1 0
//	[ x ][  y  ][  z  ]
//	     [ p ][q]
//
// and those fields index small register, condition and operation tables.
// Decoding is pure and total: bytes with no documented meaning produce an
// instruction whose Op is inst.Unknown.
package decode

// Fields is the bit-field decomposition of one opcode byte.
type Fields struct {
	X uint8 // bits 7-6
	Y uint8 // bits 5-3
	Z uint8 // bits 2-0
	P uint8 // bits 5-4
	Q uint8 // bit 3
}

// Decompose splits b into its x/y/z/p/q fields. Y == P<<1|Q always holds.
func Decompose(b uint8) Fields {
	return Fields{
		X: (b >> 6) & 0x03,
		Y: (b >> 3) & 0x07,
		Z: b & 0x07,
		P: (b >> 4) & 0x03,
		Q: (b >> 3) & 0x01,
	}
}

// Byte reassembles the opcode byte.
func (f Fields) Byte() uint8 {
	return f.X<<6 | f.Y<<3 | f.Z
}
