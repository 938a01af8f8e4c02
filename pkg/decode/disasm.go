package decode

import (
	"fmt"
	"strings"

	"github.com/oisee/z80-interp/pkg/inst"
)

// Line is one entry of a linear disassembly.
type Line struct {
	Addr  uint16
	Bytes []byte
	Instr inst.Instruction
}

func (l Line) String() string {
	var hex strings.Builder
	for i, b := range l.Bytes {
		if i > 0 {
			hex.WriteByte(' ')
		}
		fmt.Fprintf(&hex, "%02X", b)
	}
	return fmt.Sprintf("%04X  %-12s %s", l.Addr, hex.String(), inst.Disassemble(l.Instr))
}

// Next decodes and resolves the instruction starting at code[off]. It
// returns the instruction and its encoded length.
func Next(code []byte, off int) (inst.Instruction, int, error) {
	peek := func(o int) (uint8, error) {
		if off+o >= len(code) {
			return 0, fmt.Errorf("offset %d past end of %d bytes", off+o, len(code))
		}
		return code[off+o], nil
	}
	in, err := Shape(peek)
	if err != nil {
		return in, 0, err
	}

	// Operand bytes follow the prefix and opcode, except for DD CB d op
	// where the displacement sits between them.
	pos := off + len(in.Prefix.Bytes())
	if !in.Prefix.Indexed() {
		pos++
	}
	next := func() (uint8, error) {
		if pos >= len(code) {
			return 0, fmt.Errorf("offset %d past end of %d bytes", pos, len(code))
		}
		b := code[pos]
		pos++
		return b, nil
	}
	in, err = Resolve(in, next)
	if err != nil {
		return in, 0, err
	}
	return in, in.Length(), nil
}

// Disassemble decodes code linearly, without following control flow.
// Decoding stops with an error at a truncated trailing instruction; the
// lines decoded so far are returned with it.
func Disassemble(code []byte, origin uint16) ([]Line, error) {
	var lines []Line
	for off := 0; off < len(code); {
		in, n, err := Next(code, off)
		if err != nil {
			return lines, fmt.Errorf("%04X: %w", origin+uint16(off), err)
		}
		lines = append(lines, Line{
			Addr:  origin + uint16(off),
			Bytes: code[off : off+n],
			Instr: in,
		})
		off += n
	}
	return lines, nil
}
