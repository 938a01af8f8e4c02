package decode

import (
	"errors"
	"fmt"

	"github.com/oisee/z80-interp/pkg/inst"
)

// ErrTruncated is returned when an instruction runs past the available bytes.
var ErrTruncated = errors.New("decode: truncated instruction")

// PeekFunc returns the byte at the given offset from the instruction start
// without consuming it.
type PeekFunc func(off int) (uint8, error)

// Shape decodes the instruction at offset 0 of peek: it follows the prefix
// chain to the right table and returns the instruction with its operands
// still unresolved. No bytes are consumed.
//
// A DD or FD followed by another prefix (other than CB) is a lone prefix;
// it decodes to a one-byte Unknown so the next prefix starts afresh.
func Shape(peek PeekFunc) (inst.Instruction, error) {
	b0, err := peek(0)
	if err != nil {
		return inst.Instruction{}, err
	}

	switch b0 {
	case PrefixCB:
		b1, err := peekMore(peek, 1)
		if err != nil {
			return inst.Instruction{}, err
		}
		return DecodeCB(Decompose(b1), Plain), nil

	case PrefixED:
		b1, err := peekMore(peek, 1)
		if err != nil {
			return inst.Instruction{}, err
		}
		return DecodeED(Decompose(b1)), nil

	case PrefixDD, PrefixFD:
		ctx := Context{Index: inst.IX}
		if b0 == PrefixFD {
			ctx.Index = inst.IY
		}
		b1, err := peekMore(peek, 1)
		if err != nil {
			return inst.Instruction{}, err
		}
		switch b1 {
		case PrefixCB:
			// DD CB d op: the opcode follows the displacement.
			op, err := peekMore(peek, 3)
			if err != nil {
				return inst.Instruction{}, err
			}
			return DecodeCB(Decompose(op), ctx), nil
		case PrefixDD, PrefixED, PrefixFD:
			return unknown(b0), nil
		}
		return Decode(Decompose(b1), ctx), nil
	}

	return Decode(Decompose(b0), Plain), nil
}

func peekMore(peek PeekFunc, off int) (uint8, error) {
	b, err := peek(off)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrTruncated, err)
	}
	return b, nil
}

// Resolve fills in the operand values of in from the bytes that follow the
// opcode, in encoding order (destination operand first, 16-bit values
// little-endian).
func Resolve(in inst.Instruction, next func() (uint8, error)) (inst.Instruction, error) {
	var err error
	if in.Dst, err = resolveOperand(in.Dst, next); err != nil {
		return in, err
	}
	if in.Src, err = resolveOperand(in.Src, next); err != nil {
		return in, err
	}
	return in, nil
}

func resolveOperand(o inst.Operand, next func() (uint8, error)) (inst.Operand, error) {
	switch o.Bytes() {
	case 1:
		b, err := next()
		if err != nil {
			return o, fmt.Errorf("%w: %w", ErrTruncated, err)
		}
		return o.With(uint16(b)), nil
	case 2:
		lo, err := next()
		if err != nil {
			return o, fmt.Errorf("%w: %w", ErrTruncated, err)
		}
		hi, err := next()
		if err != nil {
			return o, fmt.Errorf("%w: %w", ErrTruncated, err)
		}
		return o.With(uint16(hi)<<8 | uint16(lo)), nil
	}
	return o, nil
}
