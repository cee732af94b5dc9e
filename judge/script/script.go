// Package script registers a judge whose solved problems are collected by an
// external command. The command receives a JSON request on stdin and prints
// a JSON response on stdout:
//
//	-> {"action": "problems", "known": ["P1001", ...]}
//	<- {"problems": ["P1001", "P1002", ...]}
package script

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/rw-r-r-0644/vjudge-sync/judge"
	"github.com/rw-r-r-0644/vjudge-sync/store"
)

func init() {
	judge.Register(judge.Def{
		ID:   "script",
		Name: "Custom Script",
		Settings: []judge.SettingDef{
			{ID: "command", Name: "Command", Required: true},
			{ID: "oj", Name: "vjudge OJ name", Required: true},
			{ID: "language", Name: "vjudge language ID", Required: true},
			{ID: "timeout", Name: "Command timeout"},
		},
		Build: func(s map[string]string) (judge.Judge, error) {
			return newScript(s["command"], s["oj"], s["language"], s["timeout"])
		},
	})
}

type scriptJudge struct {
	command []string
	target  judge.Target
	timeout time.Duration
}

func newScript(command, oj, language, timeout string) (*scriptJudge, error) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil, fmt.Errorf("command is required")
	}
	j := &scriptJudge{
		command: parts,
		target:  judge.Target{OJ: oj, Language: language},
		timeout: 2 * time.Minute,
	}
	if timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", timeout, err)
		}
		j.timeout = d
	}
	return j, nil
}

func (j *scriptJudge) Target(string) judge.Target { return j.target }

func (j *scriptJudge) Refresh(ctx context.Context, ws *store.Workspace) ([]string, error) {
	known, err := store.LoadProblems(ws)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}

	output, err := j.run(ctx, problemsRequest{Action: "problems", Known: known})
	if err != nil {
		return nil, err
	}

	var resp problemsResponse
	if err := json.Unmarshal(output, &resp); err != nil {
		return nil, fmt.Errorf("parse script output: %w", err)
	}

	problems := store.Merge(known, resp.Problems)
	if err := store.SaveProblems(ws, problems); err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	return problems, nil
}

func (j *scriptJudge) run(ctx context.Context, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode script request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, j.command[0], j.command[1:]...)
	cmd.Stdin = bytes.NewReader(data)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			stderr := strings.TrimSpace(string(exitErr.Stderr))
			if stderr != "" {
				return nil, fmt.Errorf("script error: %s", stderr)
			}
		}
		return nil, fmt.Errorf("script error: %w", err)
	}
	return output, nil
}

type problemsRequest struct {
	Action string   `json:"action"`
	Known  []string `json:"known"`
}

type problemsResponse struct {
	Problems []string `json:"problems"`
}
