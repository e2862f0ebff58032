// Package memory keeps exports in process, for tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	ports "bommel/internal/sheets"
)

var _ ports.TreeExporter = (*Exporter)(nil)

type Exporter struct {
	mu      sync.Mutex
	exports [][]ports.Row
	err     error
}

func New() *Exporter {
	return &Exporter{}
}

// FailWith makes subsequent exports return err; nil restores success.
func (e *Exporter) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// Export stores a copy of rows and returns a synthetic range reference.
func (e *Exporter) Export(_ context.Context, rows []ports.Row) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return "", e.err
	}
	e.exports = append(e.exports, append([]ports.Row(nil), rows...))
	return fmt.Sprintf("mem:%d!A1:J%d", len(e.exports), len(rows)+1), nil
}

// Count returns how many exports succeeded.
func (e *Exporter) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.exports)
}

// Last returns the rows of the latest export.
func (e *Exporter) Last() ([]ports.Row, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.exports) == 0 {
		return nil, false
	}
	return e.exports[len(e.exports)-1], true
}
