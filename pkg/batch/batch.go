// Package batch runs many program images concurrently, one session each.
package batch

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/oisee/z80-interp/pkg/cpu"
	"github.com/oisee/z80-interp/pkg/result"
)

// Job is one program image to run.
type Job struct {
	Name    string
	Program []byte
}

// Config holds batch configuration.
type Config struct {
	Workers     int    // parallel sessions (defaults to NumCPU)
	Origin      uint16 // load and start address
	MaxSteps    int    // per-session step limit, 0 for none
	SkipUnknown bool   // skip unknown opcodes instead of failing
	Trace       bool   // record every step in the outcome
	Ports       func() cpu.Ports
	Logger      *slog.Logger

	// Check, if set, is applied to the final state of every successful run;
	// its error is recorded in the outcome.
	Check func(name string, snap result.Snapshot) error
}

// Pool runs jobs and collects their outcomes.
type Pool struct {
	cfg     Config
	Results *result.Table
	ran     atomic.Int64
	failed  atomic.Int64
}

// NewPool creates a pool for cfg.
func NewPool(cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pool{cfg: cfg, Results: result.NewTable()}
}

// Stats returns how many jobs ran and how many failed.
func (p *Pool) Stats() (ran, failed int64) {
	return p.ran.Load(), p.failed.Load()
}

// Run executes every job. A failing program is recorded in its outcome and
// does not stop the others; only cancellation of ctx ends the batch early.
func (p *Pool) Run(ctx context.Context, jobs []Job) (*result.Table, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for _, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p.Results.Add(p.runOne(ctx, job))
			return nil
		})
	}
	err := g.Wait()
	return p.Results, err
}

func (p *Pool) runOne(ctx context.Context, job Job) result.Outcome {
	p.ran.Add(1)
	out := result.Outcome{Name: job.Name}
	log := p.cfg.Logger.With(slog.String("program", job.Name))

	opts := []cpu.Option{
		cpu.WithLogger(log),
		cpu.WithOrigin(p.cfg.Origin),
		cpu.WithMaxSteps(p.cfg.MaxSteps),
		cpu.WithSkipUnknown(p.cfg.SkipUnknown),
	}
	if p.cfg.Ports != nil {
		opts = append(opts, cpu.WithPorts(p.cfg.Ports()))
	}
	if p.cfg.Trace {
		opts = append(opts, cpu.WithTracer(func(st result.Step) {
			out.Trace = append(out.Trace, st)
		}))
	}

	sess, err := cpu.NewSession(job.Program, opts...)
	if err != nil {
		p.failed.Add(1)
		out.Err = err.Error()
		return out
	}
	err = sess.Run(ctx)
	out.Final = sess.Snapshot()
	if err == nil && p.cfg.Check != nil {
		err = p.cfg.Check(job.Name, out.Final)
	}
	if err != nil {
		p.failed.Add(1)
		out.Err = err.Error()
		log.Warn("run failed", slog.Any("err", err))
		return out
	}
	log.Info("run finished",
		slog.Int("steps", out.Final.Steps),
		slog.Bool("halted", out.Final.Halted))
	return out
}
