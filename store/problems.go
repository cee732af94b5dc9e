package store

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
)

// LoadProblems reads the problem set of ws. A missing file is an empty set.
func LoadProblems(ws *Workspace) ([]string, error) {
	data, err := afero.ReadFile(ws.Fs, ws.ProblemsPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read problem set: %w", err)
	}

	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan problem set: %w", err)
	}
	return Merge(nil, lines), nil
}

// SaveProblems writes ids as a newline-delimited snapshot.
func SaveProblems(ws *Workspace, ids []string) error {
	var b strings.Builder
	for _, id := range ids {
		b.WriteString(id)
		b.WriteByte('\n')
	}
	return WriteFileAtomic(ws.Fs, ws.ProblemsPath(), []byte(b.String()))
}

// Merge returns the union of existing and discovered. Existing ids keep their
// order; new ids are appended in the order they were discovered. Blank and
// duplicate ids are dropped.
func Merge(existing, discovered []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(discovered))
	out := make([]string, 0, len(existing)+len(discovered))
	for _, list := range [][]string{existing, discovered} {
		for _, id := range list {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// MergeProblems folds discovered into the stored problem set and persists the
// result.
func MergeProblems(ws *Workspace, discovered []string) ([]string, error) {
	existing, err := LoadProblems(ws)
	if err != nil {
		return nil, err
	}
	merged := Merge(existing, discovered)
	if err := SaveProblems(ws, merged); err != nil {
		return nil, err
	}
	return merged, nil
}
