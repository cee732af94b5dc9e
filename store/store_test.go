package store

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkspace(t *testing.T) *Workspace {
	t.Helper()
	ws := NewWorkspace(afero.NewMemMapFs(), "/data", "atcoder")
	require.NoError(t, ws.Ensure())
	return ws
}

func TestWorkspacePaths(t *testing.T) {
	ws := NewWorkspace(afero.NewMemMapFs(), "/data", "codeforces")
	assert.Equal(t, "/data/codeforces/problems.txt", ws.ProblemsPath())
	assert.Equal(t, "/data/codeforces/success_problems.json", ws.LedgerPath())
	assert.Equal(t, "/data/codeforces/submissions.json", ws.SubmissionsPath())
}

func TestLoadProblemsMissingIsEmpty(t *testing.T) {
	ws := newWorkspace(t)
	ids, err := LoadProblems(ws)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.NotNil(t, ids)
}

func TestLoadProblemsSkipsBlankAndDuplicates(t *testing.T) {
	ws := newWorkspace(t)
	require.NoError(t, afero.WriteFile(ws.Fs, ws.ProblemsPath(), []byte("abc001_a\n\nabc001_b\nabc001_a\r\n"), FilePerm))

	ids, err := LoadProblems(ws)
	require.NoError(t, err)
	assert.Equal(t, []string{"abc001_a", "abc001_b"}, ids)
}

func TestMerge(t *testing.T) {
	got := Merge([]string{"b", "a"}, []string{"c", "a", "", "d", "c"})
	assert.Equal(t, []string{"b", "a", "c", "d"}, got)
	assert.Empty(t, Merge(nil, nil))
}

func TestMergeProblemsIsMonotonic(t *testing.T) {
	ws := newWorkspace(t)
	require.NoError(t, SaveProblems(ws, []string{"1A", "2B"}))

	merged, err := MergeProblems(ws, []string{"3C", "1A"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1A", "2B", "3C"}, merged)

	merged, err = MergeProblems(ws, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"1A", "2B", "3C"}, merged)

	data, err := afero.ReadFile(ws.Fs, ws.ProblemsPath())
	require.NoError(t, err)
	assert.Equal(t, "1A\n2B\n3C\n", string(data))
}

func TestSnapshotRoundTrip(t *testing.T) {
	ws := newWorkspace(t)

	var missing []int
	ok, err := LoadJSON(ws.Fs, ws.SubmissionsPath(), &missing)
	require.NoError(t, err)
	assert.False(t, ok)

	in := map[string]any{"b": 1, "a": "洛谷 <x>"}
	require.NoError(t, SaveJSON(ws.Fs, ws.SubmissionsPath(), in))

	data, err := afero.ReadFile(ws.Fs, ws.SubmissionsPath())
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"a\": \"洛谷 <x>\",\n    \"b\": 1\n}\n", string(data))

	exists, err := afero.Exists(ws.Fs, ws.SubmissionsPath()+".tmp")
	require.NoError(t, err)
	assert.False(t, exists)

	var out map[string]any
	ok, err = LoadJSON(ws.Fs, ws.SubmissionsPath(), &out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "洛谷 <x>", out["a"])
}

func TestLoadJSONCorrupt(t *testing.T) {
	ws := newWorkspace(t)
	require.NoError(t, afero.WriteFile(ws.Fs, ws.SubmissionsPath(), []byte("{not json"), FilePerm))
	var out map[string]any
	_, err := LoadJSON(ws.Fs, ws.SubmissionsPath(), &out)
	assert.Error(t, err)
}
