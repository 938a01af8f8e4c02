// Package cpu executes decoded Z80 instructions against a register file,
// a 64 KiB memory and an I/O bus.
package cpu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/oisee/z80-interp/pkg/decode"
	"github.com/oisee/z80-interp/pkg/inst"
	"github.com/oisee/z80-interp/pkg/result"
)

// Session is one run of a program image. It owns the register file, the
// memory and the program counter; nothing else may mutate them. Observers
// get copies through Snapshot.
type Session struct {
	regs    RegisterFile
	mem     Memory
	program []byte
	origin  uint16

	ports       Ports
	log         *slog.Logger
	tracer      func(result.Step)
	maxSteps    int
	skipUnknown bool

	halted     bool
	iff1, iff2 bool
	im         uint8
	steps      int
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger for per-step tracing (Debug) and skipped
// opcodes (Warn). The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithPorts attaches an I/O bus. The default reads 0xFF and drops writes.
func WithPorts(p Ports) Option {
	return func(s *Session) { s.ports = p }
}

// WithOrigin loads the program at origin and starts execution there.
func WithOrigin(origin uint16) Option {
	return func(s *Session) { s.origin = origin }
}

// WithMaxSteps bounds Run; zero means unbounded.
func WithMaxSteps(n int) Option {
	return func(s *Session) { s.maxSteps = n }
}

// WithSkipUnknown makes Step skip unknown encodings instead of failing.
func WithSkipUnknown(skip bool) Option {
	return func(s *Session) { s.skipUnknown = skip }
}

// WithTracer receives every executed step.
func WithTracer(fn func(result.Step)) Option {
	return func(s *Session) { s.tracer = fn }
}

// NewSession creates a session for program with every register zeroed and
// PC at the origin.
func NewSession(program []byte, opts ...Option) (*Session, error) {
	s := &Session{
		ports: openBus{},
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if int(s.origin)+len(program) > MemorySize {
		return nil, fmt.Errorf("%w: %d bytes at %04X", ErrImageTooLarge, len(program), s.origin)
	}
	s.program = append([]byte(nil), program...)
	s.mem.Load(s.origin, s.program)
	s.regs.Set16(inst.PC, s.origin)
	return s, nil
}

// Registers exposes the register file for inspection.
func (s *Session) Registers() *RegisterFile { return &s.regs }

// Memory exposes the address space for inspection.
func (s *Session) Memory() *Memory { return &s.mem }

// PC returns the program counter.
func (s *Session) PC() uint16 { return s.regs.Get16(inst.PC) }

// Halted reports whether HALT has executed.
func (s *Session) Halted() bool { return s.halted }

// Steps returns the number of instructions executed.
func (s *Session) Steps() int { return s.steps }

// RegisterValue reads an 8-bit or 16-bit register.
func (s *Session) RegisterValue(r inst.Register) uint16 {
	return s.regs.Value(r)
}

// Register reads a register by name ("A", "hl", "AF'").
func (s *Session) Register(name string) (uint16, error) {
	r, err := inst.ParseRegister(name)
	if err != nil {
		return 0, err
	}
	return s.regs.Value(r), nil
}

// Snapshot returns a copy of the architectural state.
func (s *Session) Snapshot() result.Snapshot {
	return result.Snapshot{
		Slots:  s.regs.Slots(),
		IFF1:   s.iff1,
		IFF2:   s.iff2,
		IM:     s.im,
		Halted: s.halted,
		Steps:  s.steps,
	}
}

// Restore loads registers and interrupt state from a snapshot. Memory is
// left as it is.
func (s *Session) Restore(snap result.Snapshot) {
	for i, v := range snap.Slots {
		s.regs.SetSlot(inst.Slot(i), v)
	}
	s.iff1, s.iff2, s.im = snap.IFF1, snap.IFF2, snap.IM
	s.halted = snap.Halted
	s.steps = snap.Steps
}

// inBounds reports whether addr lies inside the program image.
func (s *Session) inBounds(addr uint16) bool {
	off := int(addr) - int(s.origin)
	return off >= 0 && off < len(s.program)
}

// peekByte returns the byte off bytes past PC without advancing.
func (s *Session) peekByte(off int) (uint8, error) {
	addr := s.PC() + uint16(off)
	if !s.inBounds(addr) {
		return 0, fmt.Errorf("%w: %04X", ErrProgramBounds, addr)
	}
	return s.program[int(addr)-int(s.origin)], nil
}

// fetchByte returns the byte at PC and advances PC.
func (s *Session) fetchByte() (uint8, error) {
	b, err := s.peekByte(0)
	if err != nil {
		return 0, err
	}
	s.regs.Set16(inst.PC, s.PC()+1)
	return b, nil
}

// fetchOpcode is fetchByte for an M1 cycle: it also advances R.
func (s *Session) fetchOpcode() (uint8, error) {
	b, err := s.fetchByte()
	if err == nil {
		s.regs.incR()
	}
	return b, err
}

// Decode decodes the instruction at PC without consuming any bytes.
func (s *Session) Decode() (inst.Instruction, error) {
	return decode.Shape(s.peekByte)
}

// Step fetches, decodes and executes one instruction and returns it with
// its operands resolved.
func (s *Session) Step(ctx context.Context) (inst.Instruction, error) {
	if err := ctx.Err(); err != nil {
		return inst.Instruction{}, err
	}
	if s.halted {
		return inst.Instruction{}, ErrHalted
	}
	if s.maxSteps > 0 && s.steps >= s.maxSteps {
		return inst.Instruction{}, fmt.Errorf("%w: %d", ErrMaxSteps, s.maxSteps)
	}

	pc := s.PC()
	in, err := s.Decode()
	if err != nil {
		return in, err
	}

	if in.IsUnknown() {
		raw := s.rawBytes(pc, in.Length())
		if !s.skipUnknown {
			return in, &UnknownOpcodeError{PC: pc, Bytes: raw}
		}
		s.log.Warn("skipping unknown opcode",
			slog.String("pc", fmt.Sprintf("%04X", pc)),
			slog.String("bytes", fmt.Sprintf("% X", raw)))
		in, err = s.fetch(in)
		if err != nil {
			return in, err
		}
		s.steps++
		s.trace(pc, in)
		return in, nil
	}

	in, err = s.execute(in)
	if err != nil {
		return in, err
	}
	s.steps++
	s.trace(pc, in)
	return in, nil
}

// Run steps until HALT, the end of the program image, the step limit, an
// error, or cancellation of ctx. Reaching the end of the image or HALT is
// a normal finish and returns nil.
func (s *Session) Run(ctx context.Context) error {
	for !s.halted {
		if _, err := s.Step(ctx); err != nil {
			if errors.Is(err, ErrProgramBounds) {
				s.log.Debug("end of program", slog.String("pc", fmt.Sprintf("%04X", s.PC())))
				return nil
			}
			return err
		}
	}
	return nil
}

func (s *Session) rawBytes(pc uint16, n int) []byte {
	out := make([]byte, 0, n)
	for i := 0; i < n; i++ {
		addr := pc + uint16(i)
		if !s.inBounds(addr) {
			break
		}
		out = append(out, s.program[int(addr)-int(s.origin)])
	}
	return out
}

func (s *Session) trace(pc uint16, in inst.Instruction) {
	if s.tracer == nil && !s.log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	raw := s.rawBytes(pc, in.Length())
	s.log.Debug("step",
		slog.String("pc", fmt.Sprintf("%04X", pc)),
		slog.String("bytes", fmt.Sprintf("% X", raw)),
		slog.String("asm", in.String()))
	if s.tracer != nil {
		s.tracer(result.Step{
			PC:    pc,
			Bytes: raw,
			Asm:   in.String(),
			After: s.Snapshot(),
		})
	}
}
