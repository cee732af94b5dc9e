package ledger

import (
	"fmt"
	"time"

	"github.com/spf13/afero"

	"github.com/rw-r-r-0644/vjudge-sync/store"
)

// PruneOptions controls Prune.
type PruneOptions struct {
	// DryRun computes the statistics without touching any file.
	DryRun bool
	// Backup copies the ledger to <path>.bak-<timestamp> before rewriting it.
	Backup bool
	// Now is used for the backup timestamp. Defaults to time.Now.
	Now func() time.Time
}

// PruneStats summarises one Prune call.
type PruneStats struct {
	Path       string
	Total      int
	Kept       int
	Removed    int
	BackupPath string
}

// Prune drops every non-terminal entry from the ledger at path so that those
// problems are attempted again by the next sync. Entries that are not JSON
// objects are dropped as well. A missing ledger yields zero stats.
func Prune(fs afero.Fs, path string, opts PruneOptions) (PruneStats, error) {
	stats := PruneStats{Path: path}

	var raw map[string]any
	ok, err := store.LoadJSON(fs, path, &raw)
	if err != nil {
		return stats, fmt.Errorf("prune: %w", err)
	}
	if !ok {
		return stats, nil
	}

	kept := make(map[string]Record, len(raw))
	for id, v := range raw {
		obj, isObj := v.(map[string]any)
		if !isObj {
			continue
		}
		if rec := Record(obj); rec.Terminal() {
			kept[id] = rec
		}
	}
	stats.Total = len(raw)
	stats.Kept = len(kept)
	stats.Removed = stats.Total - stats.Kept

	if opts.DryRun {
		return stats, nil
	}

	if opts.Backup {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		stats.BackupPath = path + ".bak-" + now().Format("20060102-150405")
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return stats, fmt.Errorf("prune: read for backup: %w", err)
		}
		if err := afero.WriteFile(fs, stats.BackupPath, data, store.FilePerm); err != nil {
			return stats, fmt.Errorf("prune: write backup: %w", err)
		}
	}

	if err := store.SaveJSON(fs, path, kept); err != nil {
		return stats, fmt.Errorf("prune: %w", err)
	}
	return stats, nil
}
