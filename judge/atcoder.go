package judge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/rw-r-r-0644/vjudge-sync/store"
)

func init() {
	Register(Def{
		ID:   "atcoder",
		Name: "AtCoder",
		Settings: []SettingDef{
			{ID: "user", Name: "User ID", Required: true},
			{ID: "base_url", Name: "AtCoder Problems URL"},
			{ID: "interval", Name: "Request interval"},
		},
		Build: func(s map[string]string) (Judge, error) {
			return newAtCoder(s["base_url"], s["user"], s["interval"])
		},
	})
}

const atcoderBaseURL = "https://kenkoooo.com/atcoder"

type atcoderClient struct {
	baseURL string
	user    string
	client  *http.Client
	limiter *rate.Limiter
}

// atcoderSubmission is one entry of the AtCoder Problems submission API.
type atcoderSubmission struct {
	ID            int64   `json:"id"`
	EpochSecond   int64   `json:"epoch_second"`
	ProblemID     string  `json:"problem_id"`
	ContestID     string  `json:"contest_id"`
	UserID        string  `json:"user_id"`
	Language      string  `json:"language"`
	Point         float64 `json:"point"`
	Length        int     `json:"length"`
	Result        string  `json:"result"`
	ExecutionTime *int    `json:"execution_time"`
}

func newAtCoder(baseURL, user, interval string) (*atcoderClient, error) {
	if baseURL == "" {
		baseURL = atcoderBaseURL
	}
	// AtCoder Problems asks clients to keep at least one second between calls.
	limiter, err := intervalLimiter(interval, time.Second)
	if err != nil {
		return nil, err
	}
	return &atcoderClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		user:    user,
		client:  newHTTPClient(),
		limiter: limiter,
	}, nil
}

func (c *atcoderClient) Target(string) Target {
	return Target{OJ: "AtCoder", Language: "5001"}
}

// Refresh extends the cached submission log page by page, starting one second
// past the newest cached submission, until the API returns an empty page.
func (c *atcoderClient) Refresh(ctx context.Context, ws *store.Workspace) ([]string, error) {
	var submissions []atcoderSubmission
	if _, err := store.LoadJSON(ws.Fs, ws.SubmissionsPath(), &submissions); err != nil {
		return nil, fmt.Errorf("atcoder: %w", err)
	}

	from := atcoderWatermark(submissions)
	for {
		page, err := c.fetchPage(ctx, from)
		if err != nil {
			return nil, fmt.Errorf("atcoder: %w", err)
		}
		if len(page) == 0 {
			break
		}
		submissions = append(submissions, page...)
		if err := store.SaveJSON(ws.Fs, ws.SubmissionsPath(), submissions); err != nil {
			return nil, fmt.Errorf("atcoder: %w", err)
		}

		next := atcoderWatermark(submissions)
		if next <= from {
			// the API ignored from_second; stop rather than loop forever
			break
		}
		from = next
	}

	ids := make([]string, 0, len(submissions))
	for _, s := range submissions {
		ids = append(ids, s.ProblemID)
	}
	problems, err := store.MergeProblems(ws, ids)
	if err != nil {
		return nil, fmt.Errorf("atcoder: %w", err)
	}
	return problems, nil
}

func (c *atcoderClient) fetchPage(ctx context.Context, fromSecond int64) ([]atcoderSubmission, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("user", c.user)
	params.Set("from_second", strconv.FormatInt(fromSecond, 10))
	reqURL := c.baseURL + "/atcoder-api/v3/user/submissions?" + params.Encode()

	var page []atcoderSubmission
	if _, err := getJSON(ctx, c.client, reqURL, &page); err != nil {
		return nil, fmt.Errorf("fetch submissions from %d: %w", fromSecond, err)
	}
	return page, nil
}

// atcoderWatermark is the next from_second to request: one past the newest
// epoch_second seen, or 0 for an empty log.
func atcoderWatermark(submissions []atcoderSubmission) int64 {
	if len(submissions) == 0 {
		return 0
	}
	var latest int64
	for _, s := range submissions {
		if s.EpochSecond > latest {
			latest = s.EpochSecond
		}
	}
	return latest + 1
}
