package judge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/rw-r-r-0644/vjudge-sync/store"
)

func init() {
	Register(Def{
		ID:   "codeforces",
		Name: "Codeforces",
		Settings: []SettingDef{
			{ID: "handle", Name: "Handle", Required: true},
			{ID: "base_url", Name: "API URL"},
		},
		Build: func(s map[string]string) (Judge, error) {
			return newCodeforces(s["base_url"], s["handle"])
		},
	})
}

const codeforcesBaseURL = "https://codeforces.com"

// gymIDLength is the longest problem id of a regular round; longer ids
// belong to Gym contests.
const gymIDLength = 6

type codeforcesClient struct {
	baseURL string
	handle  string
	client  *http.Client
}

type codeforcesStatusResponse struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
	Result  []struct {
		Problem struct {
			ContestID int    `json:"contestId"`
			Index     string `json:"index"`
		} `json:"problem"`
	} `json:"result"`
}

func newCodeforces(baseURL, handle string) (*codeforcesClient, error) {
	if baseURL == "" {
		baseURL = codeforcesBaseURL
	}
	return &codeforcesClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		handle:  handle,
		client:  newHTTPClient(),
	}, nil
}

func (c *codeforcesClient) Target(problem string) Target {
	if len(problem) > gymIDLength {
		return Target{OJ: "Gym", Language: "91"}
	}
	return Target{OJ: "CodeForces", Language: "91"}
}

// Refresh downloads the full submission history; the API has no paging.
func (c *codeforcesClient) Refresh(ctx context.Context, ws *store.Workspace) ([]string, error) {
	reqURL := c.baseURL + "/api/user.status?" + url.Values{"handle": {c.handle}}.Encode()

	var parsed codeforcesStatusResponse
	body, err := getJSON(ctx, c.client, reqURL, &parsed)
	if err != nil {
		return nil, fmt.Errorf("codeforces: user.status: %w", err)
	}
	if parsed.Status != "OK" {
		return nil, fmt.Errorf("codeforces: user.status: %s %s", parsed.Status, strings.TrimSpace(parsed.Comment))
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("codeforces: %w", err)
	}
	if err := store.SaveJSON(ws.Fs, ws.SubmissionsPath(), raw); err != nil {
		return nil, fmt.Errorf("codeforces: %w", err)
	}

	ids := make([]string, 0, len(parsed.Result))
	for _, sub := range parsed.Result {
		if id := codeforcesProblemID(sub.Problem.ContestID, sub.Problem.Index); id != "" {
			ids = append(ids, id)
		}
	}
	problems, err := store.MergeProblems(ws, ids)
	if err != nil {
		return nil, fmt.Errorf("codeforces: %w", err)
	}
	return problems, nil
}

// codeforcesProblemID joins contest and index, e.g. 1234 and "E" -> "1234E".
// Problems outside a contest have no vjudge id.
func codeforcesProblemID(contestID int, index string) string {
	if contestID <= 0 || index == "" {
		return ""
	}
	return strconv.Itoa(contestID) + index
}
