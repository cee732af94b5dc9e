package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rw-r-r-0644/vjudge-sync/judge"
	"github.com/rw-r-r-0644/vjudge-sync/ledger"
	"github.com/rw-r-r-0644/vjudge-sync/logging"
	"github.com/rw-r-r-0644/vjudge-sync/store"
)

var (
	ErrNoPasses    = errors.New("syncer: no judges configured")
	ErrNoSubmitter = errors.New("syncer: no submitter configured")
)

// Pass binds a judge to its data directory.
type Pass struct {
	Name      string
	Judge     judge.Judge
	Workspace *store.Workspace
}

// Options configures an Orchestrator.
type Options struct {
	// SkipFetch submits over the stored problem sets without refreshing them.
	SkipFetch bool
}

// Orchestrator runs passes one after another. A failing pass never stops
// the ones after it.
type Orchestrator struct {
	passes    []Pass
	submitter Submitter
	opts      Options
	log       zerolog.Logger
}

func New(passes []Pass, s Submitter, opts Options, log zerolog.Logger) (*Orchestrator, error) {
	if len(passes) == 0 {
		return nil, ErrNoPasses
	}
	if s == nil {
		return nil, ErrNoSubmitter
	}
	for _, p := range passes {
		if p.Judge == nil || p.Workspace == nil {
			return nil, fmt.Errorf("syncer: pass %q is incomplete", p.Name)
		}
	}
	return &Orchestrator{
		passes:    passes,
		submitter: s,
		opts:      opts,
		log:       log,
	}, nil
}

// Run executes every pass and returns one report per pass.
func (o *Orchestrator) Run(ctx context.Context) []Report {
	log := o.log.With().Str(logging.KeyRunID, uuid.NewString()).Logger()
	driver := NewDriver(o.submitter, log)
	log.Info().Int("judges", len(o.passes)).Msg("sync started")

	reports := make([]Report, 0, len(o.passes))
	for _, p := range o.passes {
		if ctx.Err() != nil {
			reports = append(reports, Report{Judge: p.Name, Err: ctx.Err()})
			continue
		}
		rep := o.runPass(ctx, driver, p, log.With().Str(logging.KeyJudge, p.Name).Logger())
		if rep.Err != nil {
			log.Error().Err(rep.Err).Str(logging.KeyJudge, p.Name).Msg("judge pass failed")
		}
		reports = append(reports, rep)
	}

	log.Info().Msg("sync finished")
	return reports
}

func (o *Orchestrator) runPass(ctx context.Context, driver *Driver, p Pass, log zerolog.Logger) (rep Report) {
	rep.Judge = p.Name
	defer func() {
		if r := recover(); r != nil {
			rep.Err = fmt.Errorf("panic: %v", r)
		}
	}()

	if err := p.Workspace.Ensure(); err != nil {
		rep.Err = err
		return rep
	}

	var problems []string
	var err error
	if o.opts.SkipFetch {
		problems, err = store.LoadProblems(p.Workspace)
	} else {
		log.Info().Msg("refreshing problem set")
		problems, err = p.Judge.Refresh(ctx, p.Workspace)
	}
	if err != nil {
		rep.Err = fmt.Errorf("refresh: %w", err)
		return rep
	}
	log.Info().Int("problems", len(problems)).Msg("problem set ready")

	l, err := ledger.Open(p.Workspace)
	if err != nil {
		rep.Err = err
		return rep
	}

	rep, err = driver.Run(ctx, p.Name, p.Judge, problems, l)
	rep.Err = err
	return rep
}
