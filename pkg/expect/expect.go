// Package expect checks a finished run against Starlark predicates.
//
// A predicate file sees every register as a global integer (A, F, BC, IX,
// AF_ for AF' and so on), plus halted and steps. It states its checks with
// the expect builtin:
//
//	expect(A == 7, "A holds the loaded constant")
//	expect(BC == B << 8 | C)
//
// A global named ok, if defined, must be truthy as well.
package expect

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/oisee/z80-interp/pkg/result"
	"github.com/oisee/z80-interp/pkg/translate"
)

var f = translate.From

// ErrExpectation matches *FailedError.
var ErrExpectation = errors.New(f("expectation failed"))

// FailedError lists the predicates that did not hold.
type FailedError struct {
	Failures []string
}

func (err *FailedError) Error() string {
	return f("%d expectation(s) failed: %v", len(err.Failures), strings.Join(err.Failures, "; "))
}

func (err *FailedError) Is(target error) bool {
	return target == ErrExpectation
}

// Globals returns the predeclared names a predicate sees for snap.
func Globals(snap result.Snapshot) starlark.StringDict {
	g := starlark.StringDict{}
	for name, v := range snap.Registers() {
		g[identifier(name)] = starlark.MakeInt(int(v))
	}
	g["halted"] = starlark.Bool(snap.Halted)
	g["steps"] = starlark.MakeInt(snap.Steps)
	return g
}

// identifier turns a register name into a Starlark identifier: AF' is AF_.
func identifier(name string) string {
	return strings.ReplaceAll(name, "'", "_")
}

// Check runs the predicate source src against snap. filename is used in
// positions of failure messages.
func Check(filename, src string, snap result.Snapshot) error {
	var failures []string

	predeclared := Globals(snap)
	predeclared["expect"] = starlark.NewBuiltin("expect",
		func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var cond starlark.Value
			var msg string
			if err := starlark.UnpackArgs(b.Name(), args, kwargs, "cond", &cond, "msg?", &msg); err != nil {
				return nil, err
			}
			if !cond.Truth() {
				pos := thread.CallFrame(1).Pos
				if msg == "" {
					msg = f("condition is false")
				}
				failures = append(failures, fmt.Sprintf("%s: %s", pos, msg))
			}
			return starlark.None, nil
		})

	thread := &starlark.Thread{Name: filename}
	opts := syntax.FileOptions{}
	globals, err := starlark.ExecFileOptions(&opts, thread, filename, src, predeclared)
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	if ok, found := globals["ok"]; found && !bool(ok.Truth()) {
		failures = append(failures, f("%s: ok is %v", filename, ok))
	}
	if len(failures) > 0 {
		return &FailedError{Failures: failures}
	}
	return nil
}

// CheckFile is Check on the contents of path.
func CheckFile(path string, snap result.Snapshot) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return Check(path, string(src), snap)
}
