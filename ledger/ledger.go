package ledger

import (
	"fmt"
	"sort"

	"github.com/spf13/afero"

	"github.com/rw-r-r-0644/vjudge-sync/store"
)

// Ledger maps problem ids to their last recorded outcome. Every Commit is
// flushed to disk before it returns.
type Ledger struct {
	fs      afero.Fs
	path    string
	records map[string]Record
}

// Load reads the ledger at path. A missing file yields an empty ledger.
func Load(fs afero.Fs, path string) (*Ledger, error) {
	l := &Ledger{fs: fs, path: path, records: make(map[string]Record)}
	if _, err := store.LoadJSON(fs, path, &l.records); err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if l.records == nil {
		l.records = make(map[string]Record)
	}
	return l, nil
}

// Open loads the ledger of a judge workspace.
func Open(ws *store.Workspace) (*Ledger, error) {
	return Load(ws.Fs, ws.LedgerPath())
}

// Has reports whether id has any recorded outcome.
func (l *Ledger) Has(id string) bool {
	_, ok := l.records[id]
	return ok
}

func (l *Ledger) Get(id string) (Record, bool) {
	r, ok := l.records[id]
	return r, ok
}

func (l *Ledger) Len() int { return len(l.records) }

// Keys returns the recorded problem ids in sorted order.
func (l *Ledger) Keys() []string {
	keys := make([]string, 0, len(l.records))
	for k := range l.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Commit upserts the record for id and persists the whole ledger. On write
// failure the in-memory ledger is rolled back so it keeps matching disk.
func (l *Ledger) Commit(id string, rec Record) error {
	prev, existed := l.records[id]
	l.records[id] = rec
	if err := l.flush(); err != nil {
		if existed {
			l.records[id] = prev
		} else {
			delete(l.records, id)
		}
		return err
	}
	return nil
}

func (l *Ledger) flush() error {
	if err := store.SaveJSON(l.fs, l.path, l.records); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}
