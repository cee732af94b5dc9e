package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rw-r-r-0644/vjudge-sync/ledger"
	"github.com/rw-r-r-0644/vjudge-sync/store"
	"github.com/rw-r-r-0644/vjudge-sync/syncer"
)

func runApp(t *testing.T, fs afero.Fs, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true

	var out bytes.Buffer
	app := newApp(fs)
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(context.Background(), append([]string{"vjudge-sync"}, args...))
	return out.String(), err
}

type submitLog struct {
	mu       sync.Mutex
	problems []string
}

func (s *submitLog) add(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.problems = append(s.problems, p)
}

func (s *submitLog) list() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.problems...)
}

func TestSyncCommand(t *testing.T) {
	isolateEnv(t)

	var submitted submitLog
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		probNum := r.PostForm.Get("probNum")
		submitted.add(probNum)
		if probNum == "P1002" {
			_, _ = w.Write([]byte(`{"error":"No recent submissions found"}`))
			return
		}
		_, _ = fmt.Fprintf(w, `{"success":true,"runId":%d}`, len(submitted.list()))
	}))
	defer srv.Close()

	fs := afero.NewMemMapFs()
	ws := store.NewWorkspace(fs, "/data", "luogu")
	require.NoError(t, ws.Ensure())
	require.NoError(t, store.SaveProblems(ws, []string{"P1001", "入门", "P1002", "P1003"}))
	l, err := ledger.Open(ws)
	require.NoError(t, err)
	require.NoError(t, l.Commit("P1003", ledger.Record{"success": true}))

	path := writeConfig(t, fmt.Sprintf(`
data_dir: /data
judges: [luogu]
vjudge:
  base_url: %s
  cookie: "JSESSIONID=abc"
  rate: 0
`, srv.URL))

	out, err := runApp(t, fs, "--config", path, "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "luogu")
	assert.Equal(t, []string{"P1001", "P1002"}, submitted.list())

	problems, err := store.LoadProblems(ws)
	require.NoError(t, err)
	assert.Equal(t, []string{"P1001", "P1002", "P1003"}, problems)

	l, err = ledger.Open(ws)
	require.NoError(t, err)
	assert.Equal(t, []string{"P1001", "P1002", "P1003"}, l.Keys())

	// Nothing is left to submit on the second run.
	_, err = runApp(t, fs, "--config", path)
	require.NoError(t, err)
	assert.Len(t, submitted.list(), 2)
}

func TestSyncCommandRequiresCookie(t *testing.T) {
	isolateEnv(t)
	path := writeConfig(t, "judges: [luogu]\n")

	_, err := runApp(t, afero.NewMemMapFs(), "--config", path, "sync")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VJUDGE_COOKIE")
}

func TestSyncCommandUnknownJudgeFilter(t *testing.T) {
	isolateEnv(t)
	t.Setenv("VJUDGE_COOKIE", "a=b")
	path := writeConfig(t, "judges: [luogu]\n")

	_, err := runApp(t, afero.NewMemMapFs(), "--config", path, "sync", "--judge", "atcoder")
	assert.Error(t, err)
}

func TestStatusCommand(t *testing.T) {
	isolateEnv(t)
	fs := afero.NewMemMapFs()
	ws := store.NewWorkspace(fs, "/data", "luogu")
	require.NoError(t, ws.Ensure())
	require.NoError(t, store.SaveProblems(ws, []string{"P1", "P2", "P3"}))
	require.NoError(t, store.SaveJSON(fs, ws.LedgerPath(), map[string]any{
		"P1": map[string]any{"success": true},
		"P2": map[string]any{"error": "Login required"},
	}))
	path := writeConfig(t, "data_dir: /data\njudges: [luogu]\n")

	out, err := runApp(t, fs, "--config", path, "status")
	require.NoError(t, err)
	assert.Regexp(t, `luogu\s+luogu\s+3\s+2\s+1\s+1\s+1`, out)
}

func TestPruneCommand(t *testing.T) {
	isolateEnv(t)
	fs := afero.NewMemMapFs()
	ws := store.NewWorkspace(fs, "/data", "luogu")
	require.NoError(t, ws.Ensure())
	require.NoError(t, store.SaveJSON(fs, ws.LedgerPath(), map[string]any{
		"P1": map[string]any{"success": true},
		"P2": map[string]any{"error": "Login required"},
	}))
	path := writeConfig(t, "data_dir: /data\njudges: [luogu]\n")

	out, err := runApp(t, fs, "--config", path, "prune", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "would remove 1 of 2")

	out, err = runApp(t, fs, "--config", path, "prune", "--no-backup")
	require.NoError(t, err)
	assert.Contains(t, out, "kept 1, removed 1 of 2")
	assert.NotContains(t, out, "backup:")

	l, err := ledger.Open(ws)
	require.NoError(t, err)
	assert.Equal(t, []string{"P1"}, l.Keys())

	matches, err := afero.Glob(fs, filepath.Join(ws.Dir, store.LedgerFile+".bak-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestJudgesCommand(t *testing.T) {
	isolateEnv(t)
	out, err := runApp(t, afero.NewMemMapFs(), "judges")
	require.NoError(t, err)
	assert.Contains(t, out, "atcoder")
	assert.Contains(t, out, "user*")
	assert.Contains(t, out, "codeforces")
	assert.Contains(t, out, "luogu")
	assert.Contains(t, out, "script")
}

var ansiCode = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func TestReportTableAlignsWithColour(t *testing.T) {
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = true })

	var out bytes.Buffer
	require.NoError(t, printReports(&out, []syncer.Report{
		{Judge: "atcoder", Problems: 120, Pending: 3, Resolved: 3},
		{Judge: "codeforces", Problems: 7, Pending: 2, Resolved: 1, Failed: 1},
		{Judge: "luogu", Err: errors.New("refresh: boom")},
	}))
	assert.Contains(t, out.String(), "\x1b[")

	lines := strings.Split(strings.TrimRight(ansiCode.ReplaceAllString(out.String(), ""), "\n"), "\n")
	require.Len(t, lines, 4)
	col := strings.Index(lines[0], "Result")
	require.Positive(t, col)
	for _, line := range lines[1:] {
		require.Greater(t, len(line), col)
		assert.Equal(t, byte(' '), line[col-1], line)
		assert.NotEqual(t, byte(' '), line[col], line)
	}
}
