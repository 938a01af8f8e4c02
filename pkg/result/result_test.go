package result

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oisee/z80-interp/pkg/inst"
)

func sampleSnapshot() Snapshot {
	var s Snapshot
	s.Slots[inst.SlotAF] = 0x0744
	s.Slots[inst.SlotBC] = 0x1234
	s.Slots[inst.SlotHL] = 0xABCD
	s.Slots[inst.SlotPC] = 0x0003
	s.IFF1, s.IFF2, s.IM = true, true, 1
	s.Steps = 2
	return s
}

func TestSnapshotAccessors(t *testing.T) {
	s := sampleSnapshot()
	assert.Equal(t, uint8(0x07), s.Get8(inst.A))
	assert.Equal(t, uint8(0x44), s.Get8(inst.F))
	assert.Equal(t, uint8(0x12), s.Get8(inst.B))
	assert.Equal(t, uint16(0xABCD), s.Get16(inst.HL))

	r, err := inst.ParseRegister("L")
	require.NoError(t, err)
	assert.Equal(t, uint16(0xCD), s.Value(r))

	regs := s.Registers()
	assert.Equal(t, uint16(0x1234), regs["BC"])
	assert.Equal(t, uint16(0x34), regs["C"])
	assert.Equal(t, uint16(0), regs["AF'"])
	assert.Len(t, regs, int(inst.NumReg8)+int(inst.NumReg16))

	assert.Contains(t, s.String(), "BC=1234")
	assert.NotContains(t, s.String(), "HALT")
}

func TestSnapshotDiff(t *testing.T) {
	a := sampleSnapshot()
	b := a
	assert.Empty(t, a.Diff(b, 0xFF))

	b.Slots[inst.SlotPC] = 0x9999
	assert.Empty(t, a.Diff(b, 0xFF), "PC is ignored")

	b.Slots[inst.SlotAF] = 0x076C // differs only in bits 3 and 5
	assert.Empty(t, a.Diff(b, ^uint8(0x28)))
	assert.Equal(t, []string{"AF=0744/076C"}, a.Diff(b, 0xFF))

	b.Slots[inst.SlotDE] = 1
	assert.Len(t, a.Diff(b, ^uint8(0x28)), 1)
}

func TestTableConcurrentAdd(t *testing.T) {
	tbl := NewTable()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o := Outcome{Name: fmt.Sprintf("rom%02d", i)}
			if i%5 == 0 {
				o.Err = "unknown opcode"
			}
			tbl.Add(o)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, tbl.Len())
	assert.Equal(t, 4, tbl.Failed())

	out := tbl.Outcomes()
	require.Len(t, out, 20)
	for i, o := range out {
		assert.Equal(t, fmt.Sprintf("rom%02d", i), o.Name)
		assert.Equal(t, i%5 != 0, o.OK())
	}
}

func TestReportJSON(t *testing.T) {
	tbl := NewTable()
	tbl.Add(Outcome{Name: "b.bin", Final: sampleSnapshot(), Trace: []Step{{PC: 0, Bytes: []byte{0x3E, 0x07}, Asm: "LD A, 07h"}}})
	tbl.Add(Outcome{Name: "a.bin", Err: "cpu halted"})

	var buf bytes.Buffer
	require.NoError(t, NewReport(tbl).WriteJSON(&buf))
	assert.Contains(t, buf.String(), `"failed": 1`)

	rep, err := ReadReport(&buf)
	require.NoError(t, err)
	require.Len(t, rep.Outcomes, 2)
	assert.Equal(t, "a.bin", rep.Outcomes[0].Name)
	assert.Equal(t, sampleSnapshot(), rep.Outcomes[1].Final)
	assert.Equal(t, "LD A, 07h", rep.Outcomes[1].Trace[0].Asm)

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, SaveReport(path, rep))

	_, err = ReadReport(bytes.NewBufferString("{"))
	assert.Error(t, err)
}

func TestCheckpoint(t *testing.T) {
	mem := make([]byte, 0x10000)
	mem[0x8000] = 0x3E
	mem[0xFFFF] = 0x76
	ckpt := &Checkpoint{
		Program:  "rom.bin",
		Image:    []byte{0x3E, 0x07},
		Origin:   0x8000,
		Snapshot: sampleSnapshot(),
		Memory:   mem,
	}

	path := filepath.Join(t.TempDir(), "session.ckpt")
	require.NoError(t, SaveCheckpoint(path, ckpt))

	got, err := LoadCheckpoint(path)
	require.NoError(t, err)
	assert.Equal(t, ckpt, got)

	_, err = LoadCheckpoint(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestStepString(t *testing.T) {
	st := Step{PC: 0x10, Bytes: []byte{0xED, 0xB0}, Asm: "LDIR", After: sampleSnapshot()}
	s := st.String()
	assert.Contains(t, s, "0010  ED B0")
	assert.Contains(t, s, "LDIR")
	assert.Contains(t, s, "HL=ABCD")
}
