package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oisee/z80-interp/pkg/batch"
	"github.com/oisee/z80-interp/pkg/cpu"
	"github.com/oisee/z80-interp/pkg/decode"
	"github.com/oisee/z80-interp/pkg/expect"
	"github.com/oisee/z80-interp/pkg/oracle"
	"github.com/oisee/z80-interp/pkg/result"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "z80run",
		Short:        "Z80 interpreter: run, disassemble and cross-check program images",
		SilenceUsage: true,
	}

	var verbose bool
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging (one line per step)")
	logger := func() *slog.Logger {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}

	// run command
	var origin string
	var hexCode string
	var maxSteps int
	var trace bool
	var skipUnknown bool
	var numWorkers int
	var expectFile string
	var jsonOut string
	var snapshotOut string
	var resume string

	runCmd := &cobra.Command{
		Use:   "run [rom...]",
		Short: "Run program images until HALT or the end of the image",
		RunE: func(cmd *cobra.Command, args []string) error {
			org, err := parseOrigin(origin)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			if snapshotOut != "" || resume != "" {
				single := singleRun{
					path:        firstArg(args),
					origin:      org,
					maxSteps:    maxSteps,
					skipUnknown: skipUnknown,
					trace:       trace,
					expectFile:  expectFile,
					snapshotOut: snapshotOut,
					resume:      resume,
					log:         logger(),
				}
				if hexCode != "" {
					jobs, err := loadJobs(nil, hexCode)
					if err != nil {
						return err
					}
					single.path, single.code = jobs[0].Name, jobs[0].Program
				}
				return runSingle(ctx, single)
			}

			jobs, err := loadJobs(args, hexCode)
			if err != nil {
				return err
			}
			cfg := batch.Config{
				Workers:     numWorkers,
				Origin:      org,
				MaxSteps:    maxSteps,
				SkipUnknown: skipUnknown,
				Trace:       trace,
				Logger:      logger(),
			}
			if expectFile != "" {
				src, err := os.ReadFile(expectFile)
				if err != nil {
					return err
				}
				cfg.Check = func(name string, snap result.Snapshot) error {
					return expect.Check(expectFile, string(src), snap)
				}
			}

			pool := batch.NewPool(cfg)
			table, err := pool.Run(ctx, jobs)
			if err != nil {
				return err
			}
			for _, o := range table.Outcomes() {
				printOutcome(o)
			}

			if jsonOut != "" {
				if err := result.SaveReport(jsonOut, result.NewReport(table)); err != nil {
					return err
				}
				fmt.Printf("Written to %s\n", jsonOut)
			}
			if _, failed := pool.Stats(); failed > 0 {
				return fmt.Errorf("%d of %d programs failed", failed, table.Len())
			}
			return nil
		},
	}
	runCmd.Flags().StringVar(&origin, "origin", "0", "Load and start address (decimal, 0x8000 or 8000h)")
	runCmd.Flags().StringVar(&hexCode, "hex", "", "Run inline code given as hex bytes instead of files")
	runCmd.Flags().IntVar(&maxSteps, "max-steps", 1_000_000, "Step limit per program (0 = none)")
	runCmd.Flags().BoolVar(&trace, "trace", false, "Print every executed instruction")
	runCmd.Flags().BoolVar(&skipUnknown, "skip-unknown", false, "Skip unknown opcodes instead of stopping")
	runCmd.Flags().IntVar(&numWorkers, "workers", 0, "Number of workers (0 = NumCPU)")
	runCmd.Flags().StringVar(&expectFile, "expect", "", "Starlark file with expectations on the final registers")
	runCmd.Flags().StringVar(&jsonOut, "json", "", "Write outcomes to a JSON file")
	runCmd.Flags().StringVar(&snapshotOut, "snapshot", "", "Save the final state of a single run (gob)")
	runCmd.Flags().StringVar(&resume, "resume", "", "Resume a single run from a saved state")

	// disasm command
	disasmCmd := &cobra.Command{
		Use:   "disasm [rom]",
		Short: "Linear disassembly without execution",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			org, err := parseOrigin(origin)
			if err != nil {
				return err
			}
			jobs, err := loadJobs(args, hexCode)
			if err != nil {
				return err
			}
			lines, err := decode.Disassemble(jobs[0].Program, org)
			for _, l := range lines {
				fmt.Println(l)
			}
			return err
		},
	}
	disasmCmd.Flags().StringVar(&origin, "origin", "0", "Address of the first byte")
	disasmCmd.Flags().StringVar(&hexCode, "hex", "", "Disassemble inline hex bytes instead of a file")

	// verify command
	var numRandom int
	var seed uint64
	var maxLen int
	var verifySteps int

	verifyCmd := &cobra.Command{
		Use:   "verify [rom...]",
		Short: "Cross-check programs against the reference emulator",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := oracle.Config{MaxSteps: verifySteps, Logger: logger()}
			var jobs []batch.Job
			if numRandom > 0 {
				cfg.Origin = oracle.RandomOrigin
				gen := oracle.NewGenerator(rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)), maxLen)
				for i := range numRandom {
					jobs = append(jobs, batch.Job{Name: fmt.Sprintf("random-%d", i), Program: gen.Program()})
				}
			} else {
				org, err := parseOrigin(origin)
				if err != nil {
					return err
				}
				cfg.Origin = org
				if jobs, err = loadJobs(args, hexCode); err != nil {
					return err
				}
			}

			var mismatches, skipped int
			for _, job := range jobs {
				rep, err := oracle.Compare(cmd.Context(), job.Program, cfg)
				switch {
				case errors.Is(err, oracle.ErrSelfModifying):
					skipped++
					continue
				case err != nil:
					return fmt.Errorf("%s: %w", job.Name, err)
				}
				if !rep.Match() {
					mismatches++
					fmt.Printf("MISMATCH %s: %s\n", job.Name, rep)
					if verbose {
						lines, _ := decode.Disassemble(job.Program, cfg.Origin)
						for _, l := range lines {
							fmt.Printf("    %s\n", l)
						}
					}
				}
			}
			fmt.Printf("Checked %d programs: %d mismatches, %d skipped (self-modifying)\n",
				len(jobs), mismatches, skipped)
			if mismatches > 0 {
				return fmt.Errorf("%d mismatches", mismatches)
			}
			return nil
		},
	}
	verifyCmd.Flags().StringVar(&origin, "origin", "0", "Load and start address")
	verifyCmd.Flags().StringVar(&hexCode, "hex", "", "Verify inline hex bytes instead of files")
	verifyCmd.Flags().IntVar(&numRandom, "random", 0, "Generate N random straight-line programs")
	verifyCmd.Flags().Uint64Var(&seed, "seed", 1, "Random seed")
	verifyCmd.Flags().IntVar(&maxLen, "max-len", 8, "Maximum instructions per random program")
	verifyCmd.Flags().IntVar(&verifySteps, "max-steps", 100000, "Step limit per program")

	// opcodes command
	var table string

	opcodesCmd := &cobra.Command{
		Use:   "opcodes",
		Short: "Print a decode table and count its unknown slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			lead, ok := tablePrefixes[strings.ToLower(table)]
			if !ok {
				return fmt.Errorf("unknown table: %s", table)
			}
			unknown := 0
			for b := range 256 {
				code := append(append([]byte(nil), lead...), uint8(b))
				if len(lead) == 2 {
					// DD CB d op
					code = append(append([]byte(nil), lead...), 0, uint8(b))
				}
				in, _, err := decode.Next(padOperands(code), 0)
				if err != nil {
					return err
				}
				if in.IsUnknown() {
					unknown++
				}
				fmt.Printf("%02X  %s\n", b, in)
			}
			fmt.Printf("%d of 256 slots unknown\n", unknown)
			return nil
		},
	}
	opcodesCmd.Flags().StringVar(&table, "table", "base", "Table: base, cb, ed, dd, fd, ddcb, fdcb")

	rootCmd.AddCommand(runCmd, disasmCmd, verifyCmd, opcodesCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var tablePrefixes = map[string][]byte{
	"base": nil,
	"cb":   {decode.PrefixCB},
	"ed":   {decode.PrefixED},
	"dd":   {decode.PrefixDD},
	"fd":   {decode.PrefixFD},
	"ddcb": {decode.PrefixDD, decode.PrefixCB},
	"fdcb": {decode.PrefixFD, decode.PrefixCB},
}

// padOperands appends zero operand bytes so every opcode decodes in full.
func padOperands(code []byte) []byte {
	return append(code, 0, 0, 0)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// loadJobs reads program images from files, or from an inline hex string.
func loadJobs(paths []string, hexCode string) ([]batch.Job, error) {
	if hexCode != "" {
		code, err := parseHexBytes(hexCode)
		if err != nil {
			return nil, fmt.Errorf("bad --hex: %w", err)
		}
		return []batch.Job{{Name: "inline", Program: code}}, nil
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no program given")
	}
	jobs := make([]batch.Job, 0, len(paths))
	for _, p := range paths {
		code, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, batch.Job{Name: p, Program: code})
	}
	return jobs, nil
}

func printOutcome(o result.Outcome) {
	for _, st := range o.Trace {
		fmt.Println(st)
	}
	if o.OK() {
		fmt.Printf("%s: %s (%d steps)\n", o.Name, o.Final, o.Final.Steps)
		return
	}
	fmt.Printf("%s: FAILED: %s\n  %s\n", o.Name, o.Err, o.Final)
}

type singleRun struct {
	path        string
	code        []byte // inline program; path is then only a label
	origin      uint16
	maxSteps    int
	skipUnknown bool
	trace       bool
	expectFile  string
	snapshotOut string
	resume      string
	log         *slog.Logger
}

// runSingle runs one program in the foreground so its full state can be
// saved or restored.
func runSingle(ctx context.Context, r singleRun) error {
	var ckpt *result.Checkpoint
	if r.resume != "" {
		var err error
		if ckpt, err = result.LoadCheckpoint(r.resume); err != nil {
			return fmt.Errorf("loading %s: %w", r.resume, err)
		}
		if r.path == "" && r.code == nil {
			r.path, r.code = ckpt.Program, ckpt.Image
		}
		r.origin = ckpt.Origin
	}
	code := r.code
	if code == nil {
		if r.path == "" {
			return fmt.Errorf("no program given")
		}
		var err error
		if code, err = os.ReadFile(r.path); err != nil {
			return err
		}
	}

	opts := []cpu.Option{
		cpu.WithLogger(r.log),
		cpu.WithOrigin(r.origin),
		cpu.WithMaxSteps(r.maxSteps),
		cpu.WithSkipUnknown(r.skipUnknown),
	}
	if r.trace {
		opts = append(opts, cpu.WithTracer(func(st result.Step) { fmt.Println(st) }))
	}
	sess, err := cpu.NewSession(code, opts...)
	if err != nil {
		return err
	}
	if ckpt != nil {
		sess.Memory().Load(0, ckpt.Memory)
		sess.Restore(ckpt.Snapshot)
		r.log.Info("resumed", slog.String("from", r.resume), slog.String("pc", fmt.Sprintf("%04X", sess.PC())))
	}

	runErr := sess.Run(ctx)
	snap := sess.Snapshot()
	fmt.Printf("%s: %s (%d steps)\n", r.path, snap, snap.Steps)

	if r.snapshotOut != "" {
		err := result.SaveCheckpoint(r.snapshotOut, &result.Checkpoint{
			Program:  r.path,
			Image:    code,
			Origin:   r.origin,
			Snapshot: snap,
			Memory:   sess.Memory().Bytes(),
		})
		if err != nil {
			return err
		}
		fmt.Printf("State saved to %s\n", r.snapshotOut)
	}
	if runErr != nil && !errors.Is(runErr, cpu.ErrMaxSteps) {
		return runErr
	}
	if r.expectFile != "" {
		return expect.CheckFile(r.expectFile, snap)
	}
	return runErr
}

// parseHexBytes parses "3E 07 47" or "3e0747".
func parseHexBytes(s string) ([]byte, error) {
	return hex.DecodeString(strings.Join(strings.Fields(s), ""))
}

// parseImmediate accepts decimal, 0x8000 and 8000h.
func parseImmediate(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty")
	}

	base := 10
	switch {
	case strings.HasPrefix(s, "0X") || strings.HasPrefix(s, "0x"):
		s, base = s[2:], 16
	case strings.HasSuffix(strings.ToUpper(s), "H"):
		s, base = s[:len(s)-1], 16
	}
	v, err := strconv.ParseInt(s, base, 64)
	return int(v), err
}

// parseOrigin parses an address in 0..FFFFh.
func parseOrigin(s string) (uint16, error) {
	v, err := parseImmediate(s)
	if err != nil {
		return 0, fmt.Errorf("bad --origin %q: %w", s, err)
	}
	if v < 0 || v > 0xFFFF {
		return 0, fmt.Errorf("bad --origin %q: outside 0..0FFFFh", s)
	}
	return uint16(v), nil
}
