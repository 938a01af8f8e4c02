package expect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oisee/z80-interp/pkg/inst"
	"github.com/oisee/z80-interp/pkg/result"
)

func snapshot() result.Snapshot {
	var s result.Snapshot
	s.Slots[inst.SlotAF] = 0x0700
	s.Slots[inst.SlotBC] = 0x0700
	s.Slots[inst.SlotAF2] = 0x1234
	s.Halted = true
	s.Steps = 3
	return s
}

func TestGlobals(t *testing.T) {
	g := Globals(snapshot())
	assert.Equal(t, "7", g["A"].String())
	assert.Equal(t, "1792", g["BC"].String())
	assert.Equal(t, "4660", g["AF_"].String())
	assert.Equal(t, "True", g["halted"].String())
	assert.Equal(t, "3", g["steps"].String())
	assert.NotContains(t, g, "AF'")
}

func TestCheckPasses(t *testing.T) {
	src := `
expect(A == 7, "A holds the constant")
expect(B == A)
expect(BC == B << 8 | C)
expect(halted)
ok = steps == 3 and AF_ == 0x1234
`
	assert.NoError(t, Check("pass.star", src, snapshot()))
}

func TestCheckFailures(t *testing.T) {
	src := `
expect(A == 8, "A should be 8")
expect(C == 1)
ok = False
`
	err := Check("fail.star", src, snapshot())
	require.ErrorIs(t, err, ErrExpectation)

	var failed *FailedError
	require.ErrorAs(t, err, &failed)
	require.Len(t, failed.Failures, 3)
	assert.Contains(t, failed.Failures[0], "fail.star:2")
	assert.Contains(t, failed.Failures[0], "A should be 8")
	assert.Contains(t, failed.Failures[1], "condition is false")
	assert.Contains(t, failed.Failures[2], "ok is False")
}

func TestCheckSyntaxError(t *testing.T) {
	err := Check("bad.star", "expect(A ==", snapshot())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrExpectation)
	assert.Contains(t, err.Error(), "bad.star")

	err = Check("undef.star", "expect(Q == 1)", snapshot())
	assert.Error(t, err)
}

func TestCheckFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rom.star")
	require.NoError(t, os.WriteFile(path, []byte("expect(A == 7)\n"), 0o644))
	assert.NoError(t, CheckFile(path, snapshot()))

	assert.Error(t, CheckFile(filepath.Join(t.TempDir(), "missing.star"), snapshot()))
}
