package decode_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/oisee/z80-interp/pkg/decode"
	"github.com/oisee/z80-interp/pkg/inst"
)

// shapeOf decodes the first instruction of code without resolving operands.
func shapeOf(code ...byte) inst.Instruction {
	in, err := decode.Shape(func(off int) (uint8, error) {
		if off >= len(code) {
			return 0, decode.ErrTruncated
		}
		return code[off], nil
	})
	Expect(err).NotTo(HaveOccurred())
	return in
}

// listing decodes code linearly and returns the assembly text of each line.
func listing(code ...byte) []string {
	lines, err := decode.Disassemble(code, 0)
	Expect(err).NotTo(HaveOccurred())
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Instr.String()
	}
	return out
}

var _ = Describe("Decoder", func() {
	Describe("unprefixed opcodes", func() {
		It("should decode register-to-register loads", func() {
			Expect(listing(0x78, 0x41, 0x4A, 0x53)).To(Equal([]string{
				"LD A, B", "LD B, C", "LD C, D", "LD D, E",
			}))
		})

		It("should decode 8-bit increments and decrements", func() {
			Expect(listing(0x3C, 0x04, 0x3D, 0x05)).To(Equal([]string{
				"INC A", "INC B", "DEC A", "DEC B",
			}))
		})

		It("should decode LD A,n with an unresolved immediate", func() {
			in := decode.Decode(decode.Decompose(0x3E), decode.Plain)

			Expect(in.Op).To(Equal(inst.LD))
			Expect(in.Dst).To(Equal(inst.Reg(inst.A)))
			Expect(in.Src.Kind).To(Equal(inst.KindImm8))
			Expect(in.Resolved()).To(BeFalse())
			Expect(in.Length()).To(Equal(2))
			Expect(in.String()).To(Equal("LD A, n"))
		})

		It("should map LD (HL),(HL) to HALT", func() {
			Expect(decode.Decode(decode.Decompose(0x76), decode.Plain).Op).To(Equal(inst.HALT))
		})

		It("should decode every x=0 and x=1 byte", func() {
			for b := 0x00; b < 0x80; b++ {
				in := decode.Decode(decode.Decompose(uint8(b)), decode.Plain)
				Expect(in.IsUnknown()).To(BeFalse(), "opcode %02X", b)
				Expect(in.Opcode).To(Equal(uint8(b)))
			}
		})

		It("should leave only the prefix bytes unknown", func() {
			var unknown []uint8
			for b := 0; b < 256; b++ {
				if decode.Decode(decode.Decompose(uint8(b)), decode.Plain).IsUnknown() {
					unknown = append(unknown, uint8(b))
				}
			}
			Expect(unknown).To(ConsistOf(uint8(0xCB), uint8(0xDD), uint8(0xED), uint8(0xFD)))
			for _, b := range unknown {
				Expect(decode.IsPrefix(b)).To(BeTrue())
			}
		})

		It("should decode control flow with conditions", func() {
			Expect(listing(0x20, 0xFE)).To(Equal([]string{"JR NZ, $+0"}))
			Expect(listing(0xC2, 0x00, 0x80)).To(Equal([]string{"JP NZ, 8000h"}))
			Expect(listing(0xFC, 0x34, 0x12)).To(Equal([]string{"CALL M, 1234h"}))
			Expect(listing(0xE8)).To(Equal([]string{"RET PE"}))
			Expect(listing(0xFF)).To(Equal([]string{"RST 38h"}))
			Expect(listing(0xE9)).To(Equal([]string{"JP (HL)"}))
		})

		It("should decode the ALU column with and without the accumulator", func() {
			Expect(listing(0x80, 0x8E, 0x96, 0x9F, 0xA0, 0xAF, 0xB1, 0xBE)).To(Equal([]string{
				"ADD A, B", "ADC A, (HL)", "SUB (HL)", "SBC A, A",
				"AND B", "XOR A", "OR C", "CP (HL)",
			}))
			Expect(listing(0xC6, 0x01, 0xFE, 0xFF)).To(Equal([]string{"ADD A, 01h", "CP 0FFh"}))
		})

		It("should decode port I/O", func() {
			Expect(listing(0xD3, 0xFE, 0xDB, 0x1F)).To(Equal([]string{"OUT (0FEh), A", "IN A, (1Fh)"}))
		})
	})

	Describe("CB prefix", func() {
		It("should decode rotates and bit operations", func() {
			Expect(listing(0xCB, 0x00, 0xCB, 0x3E, 0xCB, 0x47, 0xCB, 0xBE, 0xCB, 0xFF)).To(Equal([]string{
				"RLC B", "SRL (HL)", "BIT 0, A", "RES 7, (HL)", "SET 7, A",
			}))
		})

		It("should treat SLL as unknown", func() {
			for z := uint8(0); z < 8; z++ {
				in := decode.DecodeCB(decode.Decompose(0x30|z), decode.Plain)
				Expect(in.IsUnknown()).To(BeTrue())
				Expect(in.Length()).To(Equal(2))
			}
		})

		It("should know every other CB opcode", func() {
			known := 0
			for b := 0; b < 256; b++ {
				if !decode.DecodeCB(decode.Decompose(uint8(b)), decode.Plain).IsUnknown() {
					known++
				}
			}
			Expect(known).To(Equal(248))
		})
	})

	Describe("ED prefix", func() {
		It("should recognize exactly the documented entries", func() {
			known := 0
			for b := 0; b < 256; b++ {
				in := decode.DecodeED(decode.Decompose(uint8(b)))
				Expect(in.Prefix).To(Equal(inst.PrefixED))
				if !in.IsUnknown() {
					known++
				}
			}
			Expect(known).To(Equal(56))
		})

		It("should leave the ED copies of LD (nn),HL and LD HL,(nn) unknown", func() {
			for _, op := range []uint8{0x63, 0x6B} {
				in := decode.DecodeED(decode.Decompose(op))
				Expect(in.IsUnknown()).To(BeTrue(), "ED %02X", op)
				Expect(in.Opcode).To(Equal(op))
			}
		})

		It("should decode the 16-bit and special forms", func() {
			Expect(listing(
				0xED, 0x4B, 0x00, 0x90,
				0xED, 0x73, 0x00, 0xA0,
				0xED, 0x42,
				0xED, 0x7A,
				0xED, 0x44,
				0xED, 0x56,
				0xED, 0x57,
				0xED, 0x4D,
				0xED, 0x6F,
			)).To(Equal([]string{
				"LD BC, (9000h)", "LD (0A000h), SP", "SBC HL, BC", "ADC HL, SP",
				"NEG", "IM 1", "LD A, I", "RETI", "RLD",
			}))
		})

		It("should decode the block instructions", func() {
			Expect(listing(0xED, 0xA0, 0xED, 0xB0, 0xED, 0xA9, 0xED, 0xBB)).To(Equal([]string{
				"LDI", "LDIR", "CPD", "OTDR",
			}))
		})

		It("should decode IN r,(C) and OUT (C),r but not the (HL) slot", func() {
			Expect(listing(0xED, 0x78, 0xED, 0x41)).To(Equal([]string{"IN A, (C)", "OUT (C), B"}))
			Expect(decode.DecodeED(decode.Decompose(0x70)).IsUnknown()).To(BeTrue())
			Expect(decode.DecodeED(decode.Decompose(0x71)).IsUnknown()).To(BeTrue())
		})

		It("should treat mirrors and holes as unknown", func() {
			for _, b := range []uint8{0x00, 0x4C, 0x54, 0x55, 0x77, 0x7F, 0xA4, 0xFF} {
				Expect(decode.DecodeED(decode.Decompose(b)).IsUnknown()).To(BeTrue(), "ED %02X", b)
			}
		})
	})

	Describe("index prefixes", func() {
		It("should substitute IX and IY for HL", func() {
			Expect(listing(0xDD, 0x21, 0x00, 0x90, 0xFD, 0xE5, 0xDD, 0x09, 0xFD, 0xE9)).To(Equal([]string{
				"LD IX, 9000h", "PUSH IY", "ADD IX, BC", "JP (IY)",
			}))
		})

		It("should decode (IX+d) with signed displacements", func() {
			Expect(listing(0xDD, 0x7E, 0x05, 0xFD, 0x77, 0xFE, 0xDD, 0x36, 0x80, 0x11)).To(Equal([]string{
				"LD A, (IX+5)", "LD (IY-2), A", "LD (IX-128), 11h",
			}))
		})

		It("should keep H and L beside an indexed operand", func() {
			Expect(listing(0xDD, 0x66, 0x01, 0xDD, 0x75, 0x02)).To(Equal([]string{
				"LD H, (IX+1)", "LD (IX+2), L",
			}))
		})

		It("should reject forms that do not use the index register", func() {
			in := shapeOf(0xDD, 0x7C)
			Expect(in.IsUnknown()).To(BeTrue())
			Expect(in.Prefix).To(Equal(inst.PrefixDD))
			Expect(in.Length()).To(Equal(2))

			Expect(shapeOf(0xFD, 0x00).IsUnknown()).To(BeTrue())
			Expect(shapeOf(0xDD, 0xEB).IsUnknown()).To(BeTrue())
		})

		It("should decode a lone prefix as a one-byte unknown", func() {
			in := shapeOf(0xDD, 0xFD, 0x21, 0x00, 0x00)
			Expect(in.IsUnknown()).To(BeTrue())
			Expect(in.Length()).To(Equal(1))
		})

		It("should read the DD CB opcode after the displacement", func() {
			in := shapeOf(0xDD, 0xCB, 0x05, 0xC6)
			Expect(in.Op).To(Equal(inst.SET))
			Expect(in.N).To(Equal(uint8(0)))
			Expect(in.Prefix).To(Equal(inst.PrefixDDCB))
			Expect(in.Length()).To(Equal(4))

			Expect(listing(0xFD, 0xCB, 0xFF, 0x7E)).To(Equal([]string{"BIT 7, (IY-1)"}))
		})

		It("should treat DD CB register forms as four-byte unknowns", func() {
			in := shapeOf(0xDD, 0xCB, 0x00, 0x00)
			Expect(in.IsUnknown()).To(BeTrue())
			Expect(in.Length()).To(Equal(4))
		})
	})

	Describe("Resolve", func() {
		It("should fetch 16-bit operands little-endian", func() {
			in := decode.Decode(decode.Decompose(0x21), decode.Plain)
			bytes := []byte{0x34, 0x12}
			in, err := decode.Resolve(in, func() (uint8, error) {
				b := bytes[0]
				bytes = bytes[1:]
				return b, nil
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(in.Src.Value).To(Equal(uint16(0x1234)))
			Expect(in.Resolved()).To(BeTrue())
		})

		It("should fetch the destination operand first", func() {
			in := shapeOf(0xDD, 0x36, 0x00, 0x00)
			bytes := []byte{0x03, 0x42}
			in, err := decode.Resolve(in, func() (uint8, error) {
				b := bytes[0]
				bytes = bytes[1:]
				return b, nil
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(in.String()).To(Equal("LD (IX+3), 42h"))
		})

		It("should report truncation", func() {
			in := decode.Decode(decode.Decompose(0x01), decode.Plain)
			_, err := decode.Resolve(in, func() (uint8, error) { return 0, decode.ErrTruncated })
			Expect(err).To(MatchError(decode.ErrTruncated))
		})
	})

	Describe("Disassemble", func() {
		It("should lay out addresses and bytes", func() {
			lines, err := decode.Disassemble([]byte{0x3E, 0x07, 0xDD, 0xCB, 0x02, 0x46}, 0x8000)
			Expect(err).NotTo(HaveOccurred())
			Expect(lines).To(HaveLen(2))
			Expect(lines[0].Addr).To(Equal(uint16(0x8000)))
			Expect(lines[1].Addr).To(Equal(uint16(0x8002)))
			Expect(lines[1].Bytes).To(Equal([]byte{0xDD, 0xCB, 0x02, 0x46}))
			Expect(lines[0].String()).To(Equal("8000  3E 07        LD A, 07h"))
			Expect(lines[1].String()).To(HaveSuffix("BIT 0, (IX+2)"))
		})

		It("should stop at a truncated trailing instruction", func() {
			lines, err := decode.Disassemble([]byte{0x00, 0x21, 0x00}, 0)
			Expect(err).To(MatchError(decode.ErrTruncated))
			Expect(lines).To(HaveLen(1))
		})

		It("should report the encoded length from Next", func() {
			code := []byte{0x00, 0xED, 0xB0, 0xFD, 0x21, 0x00, 0x40}
			var lengths []int
			for off := 0; off < len(code); {
				_, n, err := decode.Next(code, off)
				Expect(err).NotTo(HaveOccurred())
				lengths = append(lengths, n)
				off += n
			}
			Expect(lengths).To(Equal([]int{1, 2, 4}))
		})
	})
})
