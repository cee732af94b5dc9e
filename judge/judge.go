// Package judge fetches solved-problem ids from online judges and describes
// how each judge's problems are addressed on vjudge.
package judge

import (
	"context"

	"github.com/rw-r-r-0644/vjudge-sync/store"
)

// Judge is one source of solved problems.
type Judge interface {
	// Refresh discovers problems, merges them into the problem set of ws and
	// returns the resulting set. On error the stored set is left as it was.
	Refresh(ctx context.Context, ws *store.Workspace) ([]string, error)

	// Target returns the vjudge fields used to submit problem.
	Target(problem string) Target
}

// Target is where a problem is mirrored on vjudge.
type Target struct {
	OJ       string
	Language string
}
