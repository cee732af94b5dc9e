package ledger

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rw-r-r-0644/vjudge-sync/store"
)

const path = "/data/luogu/success_problems.json"

func TestRecordTerminal(t *testing.T) {
	cases := []struct {
		name string
		rec  Record
		want bool
	}{
		{"success", Record{"success": true}, true},
		{"no recent submissions", Record{"success": false, "error": NoRecentSubmissions}, true},
		{"server busy", Record{"success": false, "error": "Server busy"}, false},
		{"empty", Record{}, false},
		{"success as string", Record{"success": "true"}, false},
		{"error differs in case", Record{"error": "no recent submissions found"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.rec.Terminal())
		})
	}
}

func TestLoadMissing(t *testing.T) {
	l, err := Load(afero.NewMemMapFs(), path)
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())
	assert.False(t, l.Has("P1001"))
}

func TestCommitWritesThrough(t *testing.T) {
	fs := afero.NewMemMapFs()
	l, err := Load(fs, path)
	require.NoError(t, err)

	require.NoError(t, l.Commit("P3366", Record{"success": false, "error": NoRecentSubmissions}))
	require.NoError(t, l.Commit("P1001", Record{"success": true, "runId": float64(42)}))

	reloaded, err := Load(fs, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"P1001", "P3366"}, reloaded.Keys())

	rec, ok := reloaded.Get("P1001")
	require.True(t, ok)
	assert.True(t, rec.Success())
	assert.Equal(t, float64(42), rec["runId"])

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, `{
    "P1001": {
        "runId": 42,
        "success": true
    },
    "P3366": {
        "error": "No recent submissions found",
        "success": false
    }
}
`, string(data))
}

func TestCommitRollsBackOnWriteFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	l, err := Load(afero.NewReadOnlyFs(fs), path)
	require.NoError(t, err)

	err = l.Commit("P1001", Record{"success": true})
	require.Error(t, err)
	assert.False(t, l.Has("P1001"))
}

func TestPrune(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, store.SaveJSON(fs, path, map[string]any{
		"P1001": map[string]any{"success": true},
		"P1002": map[string]any{"success": false, "error": NoRecentSubmissions},
		"P1003": map[string]any{"success": false, "error": "Server busy"},
		"P1004": "garbage",
	}))
	before, err := afero.ReadFile(fs, path)
	require.NoError(t, err)

	now := func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	stats, err := Prune(fs, path, PruneOptions{Backup: true, Now: now})
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Kept)
	assert.Equal(t, 2, stats.Removed)
	assert.Equal(t, path+".bak-20260102-030405", stats.BackupPath)

	backup, err := afero.ReadFile(fs, stats.BackupPath)
	require.NoError(t, err)
	assert.Equal(t, before, backup)

	l, err := Load(fs, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"P1001", "P1002"}, l.Keys())
}

func TestPruneDryRunLeavesFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, store.SaveJSON(fs, path, map[string]any{
		"P1003": map[string]any{"success": false, "error": "Server busy"},
	}))
	before, err := afero.ReadFile(fs, path)
	require.NoError(t, err)

	stats, err := Prune(fs, path, PruneOptions{DryRun: true, Backup: true})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Removed)
	assert.Empty(t, stats.BackupPath)

	after, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestPruneMissing(t *testing.T) {
	stats, err := Prune(afero.NewMemMapFs(), path, PruneOptions{})
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
}
