package cpu

import (
	"errors"

	"github.com/oisee/z80-interp/pkg/inst"
	"github.com/oisee/z80-interp/pkg/translate"
)

var f = translate.From

var (
	// ErrProgramBounds is returned when PC leaves the program image. Run
	// treats it as a normal end of program.
	ErrProgramBounds = errors.New(f("program bounds exceeded"))
	// ErrUnknownOpcode matches *UnknownOpcodeError.
	ErrUnknownOpcode = errors.New(f("unknown opcode"))
	// ErrUnimplemented matches *UnimplementedError.
	ErrUnimplemented = errors.New(f("unimplemented instruction"))
	// ErrHalted is returned by Step after HALT.
	ErrHalted = errors.New(f("cpu halted"))
	// ErrMaxSteps is returned when the step budget is exhausted.
	ErrMaxSteps = errors.New(f("step limit reached"))
	// ErrImageTooLarge is returned by NewSession for images past 0xFFFF.
	ErrImageTooLarge = errors.New(f("program image exceeds the address space"))
)

// UnknownOpcodeError reports an encoding with no documented instruction.
type UnknownOpcodeError struct {
	PC    uint16
	Bytes []byte
}

func (err *UnknownOpcodeError) Error() string {
	return f("unknown opcode % X at %04X", err.Bytes, err.PC)
}

func (err *UnknownOpcodeError) Is(target error) bool {
	return target == ErrUnknownOpcode
}

// UnimplementedError reports a decoded instruction the executor does not
// model.
type UnimplementedError struct {
	PC    uint16
	Instr inst.Instruction
}

func (err *UnimplementedError) Error() string {
	return f("unimplemented instruction %v at %04X", err.Instr.String(), err.PC)
}

func (err *UnimplementedError) Is(target error) bool {
	return target == ErrUnimplemented
}
