package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/koron-go/z80"

	"github.com/oisee/z80-interp/pkg/cpu"
	"github.com/oisee/z80-interp/pkg/inst"
	"github.com/oisee/z80-interp/pkg/result"
)

// memory is the reference emulator's flat address space.
type memory [cpu.MemorySize]uint8

func (m *memory) Get(addr uint16) uint8    { return m[addr] }
func (m *memory) Set(addr uint16, v uint8) { m[addr] = v }

// bus adapts a cpu.Ports to the reference emulator's 8-bit port interface.
type bus struct {
	ports cpu.Ports
}

func (b bus) In(port uint8) uint8     { return b.ports.In(uint16(port)) }
func (b bus) Out(port uint8, v uint8) { b.ports.Out(uint16(port), v) }

// reference runs program on the koron-go emulator until HALT or until PC
// reaches the end of the image.
func reference(ctx context.Context, program []byte, origin uint16, ports cpu.Ports) (result.Snapshot, *memory, error) {
	mem := &memory{}
	for i, b := range program {
		mem[origin+uint16(i)] = b
	}

	ref := z80.CPU{
		States: z80.States{SPR: z80.SPR{PC: origin}},
		Memory: mem,
		IO:     bus{ports: ports},
	}
	ref.BreakPoints = map[uint16]struct{}{}
	ref.BreakPoints[origin+uint16(len(program))] = struct{}{}

	err := ref.Run(ctx)
	if err != nil && !errors.Is(err, z80.ErrBreakPoint) {
		return result.Snapshot{}, mem, fmt.Errorf("reference emulator: %w", err)
	}
	return referenceSnapshot(&ref), mem, nil
}

func pair(r z80.Register) uint16 {
	return uint16(r.Hi)<<8 | uint16(r.Lo)
}

func referenceSnapshot(ref *z80.CPU) result.Snapshot {
	var snap result.Snapshot
	snap.Slots[inst.SlotAF] = pair(ref.AF)
	snap.Slots[inst.SlotBC] = pair(ref.BC)
	snap.Slots[inst.SlotDE] = pair(ref.DE)
	snap.Slots[inst.SlotHL] = pair(ref.HL)
	snap.Slots[inst.SlotAF2] = pair(ref.Alternate.AF)
	snap.Slots[inst.SlotBC2] = pair(ref.Alternate.BC)
	snap.Slots[inst.SlotDE2] = pair(ref.Alternate.DE)
	snap.Slots[inst.SlotHL2] = pair(ref.Alternate.HL)
	snap.Slots[inst.SlotIX] = ref.IX
	snap.Slots[inst.SlotIY] = ref.IY
	snap.Slots[inst.SlotSP] = ref.SP
	snap.Slots[inst.SlotPC] = ref.PC
	snap.Slots[inst.SlotIR] = pair(ref.IR)
	snap.IFF1, snap.IFF2 = ref.IFF1, ref.IFF2
	snap.IM = uint8(ref.IM)
	snap.Halted = ref.HALT
	return snap
}
