// Package oracle cross-checks the interpreter against an independent Z80
// emulator (github.com/koron-go/z80).
//
// Both machines start from zeroed registers with the program loaded at the
// same origin and run until HALT or the end of the image. Registers are
// compared with the undocumented F bits 3 and 5 masked out; R, I and PC
// are not compared. Memory is compared byte for byte, except that stack
// bytes written from F by PUSH AF get the same mask.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/oisee/z80-interp/pkg/cpu"
	"github.com/oisee/z80-interp/pkg/inst"
	"github.com/oisee/z80-interp/pkg/result"
	"github.com/oisee/z80-interp/pkg/translate"
)

var f = translate.From

// ErrSelfModifying is reported for programs that write into their own
// image: the interpreter fetches from the immutable image, the reference
// from memory, so the runs are not comparable.
var ErrSelfModifying = errors.New(f("program writes into its own image"))

// FlagMask keeps every F bit except the undocumented 3 and 5.
const FlagMask = ^(cpu.Flag3 | cpu.Flag5)

const opPushAF = 0xF5

// RandomOrigin keeps generated programs clear of the low memory that
// zeroed HL, BC and DE point at.
const RandomOrigin = 0x8000

// Config holds cross-check configuration.
type Config struct {
	Origin   uint16
	MaxSteps int           // interpreter step limit (defaults to 100000)
	Timeout  time.Duration // per-program wall clock limit (defaults to 5s)
	Ports    func() cpu.Ports
	Logger   *slog.Logger
}

func (cfg *Config) defaults() {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 100000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Ports == nil {
		cfg.Ports = func() cpu.Ports { return ConstPorts(0xFF) }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// ConstPorts reads the same value from every port and drops writes.
type ConstPorts uint8

func (p ConstPorts) In(uint16) uint8   { return uint8(p) }
func (ConstPorts) Out(uint16, uint8) {}

// Report is the outcome of one cross-check.
type Report struct {
	Ours, Theirs result.Snapshot
	Registers    []string // differing register pairs, "HL=1234/1235"
	Memory       []uint16 // differing addresses, at most maxMemoryDiffs
}

const maxMemoryDiffs = 16

// Match reports whether both machines agree.
func (r Report) Match() bool {
	return len(r.Registers) == 0 && len(r.Memory) == 0
}

func (r Report) String() string {
	if r.Match() {
		return "match"
	}
	return fmt.Sprintf("registers %v memory %04X", r.Registers, r.Memory)
}

// Compare runs program on both machines and compares the final states.
func Compare(ctx context.Context, program []byte, cfg Config) (Report, error) {
	cfg.defaults()
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	// stack addresses that received F
	flagBytes := make(map[uint16]bool)
	sess, err := cpu.NewSession(program,
		cpu.WithTracer(func(st result.Step) {
			if len(st.Bytes) == 1 && st.Bytes[0] == opPushAF {
				flagBytes[st.After.Get16(inst.SP)] = true
			}
		}),
		cpu.WithOrigin(cfg.Origin),
		cpu.WithMaxSteps(cfg.MaxSteps),
		cpu.WithPorts(cfg.Ports()),
		cpu.WithLogger(cfg.Logger))
	if err != nil {
		return Report{}, err
	}
	if err := sess.Run(ctx); err != nil {
		return Report{}, fmt.Errorf("interpreter: %w", err)
	}

	ours := sess.Memory().Bytes()
	for i, b := range program {
		if ours[cfg.Origin+uint16(i)] != b {
			return Report{}, fmt.Errorf("%w at %04X", ErrSelfModifying, cfg.Origin+uint16(i))
		}
	}

	theirs, mem, err := reference(ctx, program, cfg.Origin, cfg.Ports())
	if err != nil {
		return Report{}, err
	}

	rep := Report{
		Ours:      sess.Snapshot(),
		Theirs:    theirs,
		Registers: sess.Snapshot().Diff(theirs, FlagMask),
	}
	for addr := range cpu.MemorySize {
		diff := ours[addr] ^ mem[addr]
		if flagBytes[uint16(addr)] {
			diff &= FlagMask
		}
		if diff != 0 {
			rep.Memory = append(rep.Memory, uint16(addr))
			if len(rep.Memory) == maxMemoryDiffs {
				break
			}
		}
	}
	if !rep.Match() {
		cfg.Logger.Warn("cross-check mismatch", slog.String("diff", rep.String()))
	}
	return rep, nil
}
