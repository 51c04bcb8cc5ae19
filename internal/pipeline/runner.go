package pipeline

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"jarsmith/internal/logging"
)

// Options configures a Pipeline.
type Options struct {
	// Workers bounds per-class parallelism inside a stage. 0 uses GOMAXPROCS.
	Workers int
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Pipeline is an ordered set of stages.
type Pipeline struct {
	stages []Stage
	waves  []int
	opts   Options
}

// New orders the stages by their dependencies. Unknown dependencies, duplicate names and
// cycles are rejected.
func New(stages []Stage, opts Options) (*Pipeline, error) {
	sorted, waves, err := orderStages(stages)
	if err != nil {
		return nil, err
	}

	opts.Logger = logging.OrNop(opts.Logger)

	return &Pipeline{stages: sorted, waves: waves, opts: opts}, nil
}

// Stages returns the stages in execution order.
func (p *Pipeline) Stages() []Stage {
	return slices.Clone(p.stages)
}

// Stage returns the stage with the given name.
func (p *Pipeline) Stage(name string) (Stage, bool) {
	for _, s := range p.stages {
		if s.Name() == name {
			return s, true
		}
	}

	return nil, false
}

// Report describes what a run did.
type Report struct {
	RunID  string
	Stages []StageReport
}

// StageReport is the outcome of one stage. Scheduled is fixed by planning; Ran is set only once
// the stage completed.
type StageReport struct {
	Stage     string
	Scheduled bool
	Ran       bool
	Reason    string
	Duration  time.Duration
}

// Ran returns the names of the stages that ran, in order.
func (r *Report) Ran() []string {
	var out []string

	for _, s := range r.Stages {
		if s.Ran {
			out = append(out, s.Stage)
		}
	}

	return out
}

// Stage returns the report of a stage.
func (r *Report) Stage(name string) (StageReport, bool) {
	for _, s := range r.Stages {
		if s.Stage == name {
			return s, true
		}
	}

	return StageReport{}, false
}

// Run executes every dirty stage. With refresh set, every stage is dirty.
//
// The report is returned even on failure and covers the stages planned so far.
func (p *Pipeline) Run(ctx context.Context, refresh bool) (*Report, error) {
	rs := newRunState(uuid.NewString(), refresh, p.opts.Workers, p.opts.Logger)
	log := p.opts.Logger.With(zap.String("run", rs.ID))
	rs.Logger = log

	report := &Report{RunID: rs.ID, Stages: make([]StageReport, len(p.stages))}

	p.plan(rs, report)

	for i, s := range p.stages {
		if !report.Stages[i].Scheduled {
			log.Debug("stage up to date", zap.String("stage", s.Name()))
			continue
		}

		log.Info("stage scheduled", zap.String("stage", s.Name()), zap.String("reason", report.Stages[i].Reason))

		for _, a := range s.Outputs() {
			if err := a.Remove(); err != nil {
				return report, &StageError{Stage: s.Name(), Artifact: a.Name, Err: ioError("remove stale output", err)}
			}
		}
	}

	last := 0
	if len(p.waves) > 0 {
		last = p.waves[len(p.waves)-1]
	}

	for wave := 0; wave <= last; wave++ {
		if err := p.runWave(ctx, rs, report, wave); err != nil {
			return report, err
		}
	}

	log.Info("pipeline finished", zap.Strings("ran", report.Ran()))

	return report, nil
}

// plan fixes the dirty flags of every stage before anything runs.
func (p *Pipeline) plan(rs *RunState, report *Report) {
	forcedBy := ""

	for i, s := range p.stages {
		var dirty bool
		var reason string

		if forcedBy != "" {
			dirty, reason = true, "after dirty stage "+forcedBy
		} else {
			dirty, reason = s.IsDirty(rs)
			if dirty {
				forcedBy = s.Name()
			}
		}

		rs.dirty[s.Name()] = dirty
		for _, a := range s.Outputs() {
			a.Dirty = dirty
		}

		report.Stages[i] = StageReport{Stage: s.Name(), Scheduled: dirty, Reason: reason}
	}
}

func (p *Pipeline) runWave(ctx context.Context, rs *RunState, report *Report, wave int) error {
	g, gctx := errgroup.WithContext(ctx)

	for i, s := range p.stages {
		if p.waves[i] != wave || !report.Stages[i].Scheduled {
			continue
		}

		g.Go(func() error {
			start := time.Now()

			if err := s.Run(gctx, rs); err != nil {
				return &StageError{Stage: s.Name(), Artifact: outputName(s), Err: err}
			}

			report.Stages[i].Ran = true
			report.Stages[i].Duration = time.Since(start)
			rs.Logger.Info("stage finished",
				zap.String("stage", s.Name()),
				zap.Duration("took", report.Stages[i].Duration))

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("pipeline run %s: %w", rs.ID, err)
	}

	return nil
}

func outputName(s Stage) string {
	if outs := s.Outputs(); len(outs) > 0 {
		return outs[0].Name
	}

	return ""
}
