// Package store persists the per-judge files of a sync data directory:
// the problem set, the raw submission cache, and the atomic-write helpers the
// ledger relies on.
package store

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// File names inside a judge directory.
const (
	ProblemsFile    = "problems.txt"
	LedgerFile      = "success_problems.json"
	SubmissionsFile = "submissions.json"
)

const (
	DirPerm  = 0o755
	FilePerm = 0o644
)

// Workspace is the resolved location of one judge's files.
type Workspace struct {
	Fs  afero.Fs
	Dir string
}

// NewWorkspace returns the workspace for judge name under root.
func NewWorkspace(fs afero.Fs, root, name string) *Workspace {
	return &Workspace{Fs: fs, Dir: filepath.Join(root, name)}
}

func (w *Workspace) ProblemsPath() string    { return filepath.Join(w.Dir, ProblemsFile) }
func (w *Workspace) LedgerPath() string      { return filepath.Join(w.Dir, LedgerFile) }
func (w *Workspace) SubmissionsPath() string { return filepath.Join(w.Dir, SubmissionsFile) }

// Ensure creates the workspace directory if it does not exist.
func (w *Workspace) Ensure() error {
	if err := w.Fs.MkdirAll(w.Dir, DirPerm); err != nil {
		return fmt.Errorf("create %s: %w", w.Dir, err)
	}
	return nil
}

// WriteFileAtomic writes data to a sibling temp file and renames it over
// path, so readers never observe a partially written file.
func WriteFileAtomic(fs afero.Fs, path string, data []byte) error {
	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, FilePerm); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := fs.Rename(tmp, path); err != nil {
		_ = fs.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
