package syncer

import (
	"fmt"

	"github.com/rw-r-r-0644/vjudge-sync/ledger"
	"github.com/rw-r-r-0644/vjudge-sync/store"
)

// Pending returns the problems with no ledger entry, in problem-set order.
//
// Any entry excludes a problem, terminal or not. The driver only ever
// commits terminal outcomes, so non-terminal entries come from older ledgers
// and are retried only after `prune` removes them.
func Pending(problems []string, l *ledger.Ledger) []string {
	seen := make(map[string]struct{}, len(problems))
	out := make([]string, 0, len(problems))
	for _, p := range problems {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		if l.Has(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Status summarises the files of one judge directory.
type Status struct {
	Problems    int
	Ledgered    int
	Terminal    int
	NonTerminal int
	Pending     int
}

// Inspect reads the problem set and ledger of ws without modifying them.
func Inspect(ws *store.Workspace) (Status, error) {
	problems, err := store.LoadProblems(ws)
	if err != nil {
		return Status{}, fmt.Errorf("inspect %s: %w", ws.Dir, err)
	}
	l, err := ledger.Open(ws)
	if err != nil {
		return Status{}, fmt.Errorf("inspect %s: %w", ws.Dir, err)
	}

	st := Status{
		Problems: len(problems),
		Ledgered: l.Len(),
		Pending:  len(Pending(problems, l)),
	}
	for _, id := range l.Keys() {
		if rec, _ := l.Get(id); rec.Terminal() {
			st.Terminal++
		} else {
			st.NonTerminal++
		}
	}
	return st, nil
}
