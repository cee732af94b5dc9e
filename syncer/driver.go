// Package syncer runs the per-judge synchronization passes: refresh the
// problem set, work out which problems still need a virtual submission, and
// submit them one at a time while checkpointing every terminal outcome.
package syncer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rw-r-r-0644/vjudge-sync/judge"
	"github.com/rw-r-r-0644/vjudge-sync/ledger"
	"github.com/rw-r-r-0644/vjudge-sync/logging"
	"github.com/rw-r-r-0644/vjudge-sync/vjudge"
)

// Submitter posts one virtual submission. *vjudge.Client implements it.
type Submitter interface {
	Submit(ctx context.Context, sub vjudge.Submission) (ledger.Record, error)
}

// Report counts what one pass did.
type Report struct {
	Judge        string
	Problems     int
	Pending      int
	Resolved     int
	NoSubmission int
	Rejected     int
	Failed       int
	Err          error
}

// Attempted is the number of submissions made.
func (r Report) Attempted() int {
	return r.Resolved + r.NoSubmission + r.Rejected + r.Failed
}

// Driver submits pending problems and records terminal outcomes.
type Driver struct {
	submitter Submitter
	log       zerolog.Logger
}

func NewDriver(s Submitter, log zerolog.Logger) *Driver {
	return &Driver{submitter: s, log: log.With().Str("component", "driver").Logger()}
}

// Run submits every problem of problems that has no ledger entry. Each
// terminal outcome is committed to l before the next attempt starts. Only a
// failed ledger write or a cancelled context ends the pass early.
func (d *Driver) Run(ctx context.Context, name string, j judge.Judge, problems []string, l *ledger.Ledger) (Report, error) {
	pending := Pending(problems, l)
	rep := Report{Judge: name, Problems: len(problems), Pending: len(pending)}
	log := d.log.With().Str(logging.KeyJudge, name).Logger()
	log.Info().Int("problems", len(problems)).Int("pending", len(pending)).Msg("submitting")

	for _, problem := range pending {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		target := j.Target(problem)
		plog := log.With().Str(logging.KeyOJ, target.OJ).Str(logging.KeyProblem, problem).Logger()

		rec, err := d.submitter.Submit(ctx, vjudge.Submission{
			OJ:       target.OJ,
			ProbNum:  problem,
			Language: target.Language,
		})
		outcome := Classify(rec, err)

		switch outcome {
		case Resolved, NoSubmission:
			if cerr := l.Commit(problem, rec); cerr != nil {
				rep.Failed++
				return rep, fmt.Errorf("commit %s: %w", problem, cerr)
			}
			if outcome == Resolved {
				rep.Resolved++
			} else {
				rep.NoSubmission++
			}
			plog.Info().Stringer("outcome", outcome).Msg("problem recorded")
		case Rejected:
			rep.Rejected++
			plog.Warn().Str("error", rec.Message()).Msg("vjudge rejected submission")
		case AuthFailure:
			rep.Failed++
			plog.Error().Err(err).Msg("vjudge rejected the session; check that VJUDGE_COOKIE is complete and not expired")
		default:
			rep.Failed++
			plog.Error().Err(err).Stringer("outcome", outcome).Msg("submission failed")
		}
	}

	log.Info().
		Int("resolved", rep.Resolved).
		Int("no_submission", rep.NoSubmission).
		Int("rejected", rep.Rejected).
		Int("failed", rep.Failed).
		Msg("submission pass finished")
	return rep, nil
}
