package judge

import (
	"context"
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/rw-r-r-0644/vjudge-sync/store"
)

func init() {
	Register(Def{
		ID:   "luogu",
		Name: "Luogu",
		Build: func(map[string]string) (Judge, error) {
			return luoguJudge{}, nil
		},
	})
}

// luoguRatingLabels are difficulty labels that scraped Luogu problem lists
// contain alongside real problem ids.
var luoguRatingLabels = []string{
	"暂无评定",
	"入门",
	"普及−",
	"普及/提高−",
	"普及+/提高",
	"提高+/省选−",
	"省选/NOI−",
	"NOI/NOI+/CTSC",
}

var luoguDenylist = func() map[string]struct{} {
	m := make(map[string]struct{}, len(luoguRatingLabels))
	for _, l := range luoguRatingLabels {
		m[norm.NFC.String(l)] = struct{}{}
	}
	return m
}()

// luoguJudge has no fetcher of its own: problems.txt is filled by an external
// tool and only cleaned here.
type luoguJudge struct{}

func (luoguJudge) Target(string) Target {
	return Target{OJ: "洛谷", Language: "27"}
}

func (luoguJudge) Refresh(_ context.Context, ws *store.Workspace) ([]string, error) {
	problems, err := store.LoadProblems(ws)
	if err != nil {
		return nil, fmt.Errorf("luogu: %w", err)
	}
	problems = FilterLuogu(problems)
	if err := store.SaveProblems(ws, problems); err != nil {
		return nil, fmt.Errorf("luogu: %w", err)
	}
	return problems, nil
}

// FilterLuogu removes rating labels from ids, keeping the order of the rest.
func FilterLuogu(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := luoguDenylist[norm.NFC.String(id)]; ok {
			continue
		}
		out = append(out, id)
	}
	return out
}
