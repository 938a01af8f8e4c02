package oracle

import (
	"math/rand/v2"

	"github.com/oisee/z80-interp/pkg/decode"
	"github.com/oisee/z80-interp/pkg/inst"
)

// form is one documented encoding: the bytes before the operands, the
// opcode byte, and the decoded shape.
type form struct {
	lead []byte
	in   inst.Instruction
}

// Generator builds random straight-line programs for cross-checking.
// Programs never branch, never halt and never touch the I/O bus or the
// I and R registers, so both machines run them to the end of the image.
// PUSH AF is left out so undocumented flag bits stay inside F.
type Generator struct {
	rng    *rand.Rand
	forms  []form
	maxLen int // maximum instructions per program
}

// NewGenerator creates a Generator with the cached list of encodings.
func NewGenerator(rng *rand.Rand, maxLen int) *Generator {
	if maxLen <= 0 {
		maxLen = 8
	}
	return &Generator{rng: rng, forms: straightLineForms(), maxLen: maxLen}
}

// Forms returns how many encodings the generator draws from.
func (g *Generator) Forms() int { return len(g.forms) }

// Program returns the bytes of 1..maxLen random instructions.
func (g *Generator) Program() []byte {
	n := 1 + g.rng.IntN(g.maxLen)
	var out []byte
	for range n {
		out = g.appendInstruction(out)
	}
	return out
}

// Mutate replaces, deletes or inserts one instruction of a program built
// from whole instructions. The input slice is not modified.
func (g *Generator) Mutate(program []byte) []byte {
	lines, err := decode.Disassemble(program, 0)
	if err != nil || len(lines) == 0 {
		return g.Program()
	}
	pos := g.rng.IntN(len(lines))
	var out []byte
	r := g.rng.IntN(100)
	for i, l := range lines {
		if i == pos {
			switch {
			case r < 60:
				out = g.appendInstruction(out)
				continue
			case r < 80 && len(lines) > 1:
				continue
			case len(lines) < g.maxLen:
				out = g.appendInstruction(out)
			}
		}
		out = append(out, l.Bytes...)
	}
	return out
}

func (g *Generator) appendInstruction(out []byte) []byte {
	fm := g.forms[g.rng.IntN(len(g.forms))]
	operands := make([]byte, fm.in.OperandBytes())
	for i := range operands {
		operands[i] = uint8(g.rng.IntN(256))
	}
	out = append(out, fm.lead...)
	if fm.in.Prefix.Indexed() {
		// DD CB d op
		out = append(out, operands...)
		return append(out, fm.in.Opcode)
	}
	out = append(out, fm.in.Opcode)
	return append(out, operands...)
}

// straightLineForms enumerates every documented encoding that is safe to
// run without control flow or I/O.
func straightLineForms() []form {
	var forms []form
	add := func(code []byte) {
		in, err := decode.Shape(func(off int) (uint8, error) {
			if off < len(code) {
				return code[off], nil
			}
			return 0, nil
		})
		if err != nil || !straightLine(in) {
			return
		}
		forms = append(forms, form{lead: in.Prefix.Bytes(), in: in})
	}
	for b := range 256 {
		op := uint8(b)
		if !decode.IsPrefix(op) {
			add([]byte{op})
		}
		add([]byte{decode.PrefixCB, op})
		add([]byte{decode.PrefixED, op})
		add([]byte{decode.PrefixDD, op})
		add([]byte{decode.PrefixFD, op})
		add([]byte{decode.PrefixDD, decode.PrefixCB, 0, op})
		add([]byte{decode.PrefixFD, decode.PrefixCB, 0, op})
	}
	return forms
}

func straightLine(in inst.Instruction) bool {
	switch in.Op {
	case inst.Unknown, inst.HALT,
		inst.JP, inst.JR, inst.DJNZ, inst.CALL, inst.RET, inst.RETI, inst.RETN, inst.RST,
		inst.IN, inst.OUT, inst.INI, inst.INIR, inst.IND, inst.INDR,
		inst.OUTI, inst.OTIR, inst.OUTD, inst.OTDR,
		inst.LDIR, inst.LDDR, inst.CPIR, inst.CPDR,
		inst.DI, inst.EI, inst.IM:
		return false
	}
	// F bits 3 and 5 would reach memory or another register unmasked.
	if in.Op == inst.PUSH && in.Dst.Kind == inst.KindReg16 && in.Dst.R16 == inst.AF {
		return false
	}
	for _, o := range []inst.Operand{in.Dst, in.Src} {
		if o.Kind == inst.KindReg8 && (o.R8 == inst.I || o.R8 == inst.R) {
			return false
		}
	}
	return true
}
