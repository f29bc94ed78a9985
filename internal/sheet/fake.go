package sheet

import (
	"context"
	"sync"
)

// Fake is an in-memory Client used by tests and local development.
// Cells hold raw formula text; ReadGrid returns that text verbatim, which
// downstream value parsing handles the same way as rendered numbers.
type Fake struct {
	mu    sync.Mutex
	rows  [][]string
	notes map[string]string

	// FailReads, when set, makes grid/notes reads return this error.
	FailReads error
}

// Ensure interface conformance.
var _ Client = (*Fake)(nil)

// NewFake creates a fake document seeded with the given grid.
func NewFake(rows [][]string) *Fake {
	copied := make([][]string, len(rows))
	for i, r := range rows {
		copied[i] = append([]string(nil), r...)
	}
	return &Fake{rows: copied, notes: make(map[string]string)}
}

// ReadGrid implements the Client interface.
func (f *Fake) ReadGrid(ctx context.Context) ([][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailReads != nil {
		return nil, f.FailReads
	}
	out := make([][]string, len(f.rows))
	for i, r := range f.rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

// ReadNotes implements the Client interface.
func (f *Fake) ReadNotes(ctx context.Context) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailReads != nil {
		return nil, f.FailReads
	}
	out := make(map[string]string, len(f.notes))
	for k, v := range f.notes {
		out[k] = v
	}
	return out, nil
}

// ReadCellFormula implements the Client interface.
func (f *Fake) ReadCellFormula(ctx context.Context, row, col int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row-1 < len(f.rows) && col-1 < len(f.rows[row-1]) {
		return f.rows[row-1][col-1], nil
	}
	return "", nil
}

// WriteCell implements the Client interface.
func (f *Fake) WriteCell(ctx context.Context, row, col int, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grow(row, col)
	f.rows[row-1][col-1] = value
	return nil
}

// WriteNote implements the Client interface.
func (f *Fake) WriteNote(ctx context.Context, row, col int, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	addr := A1(row, col)
	if note == "" {
		delete(f.notes, addr)
		return nil
	}
	f.notes[addr] = note
	return nil
}

// Note returns the stored note for a cell, for test assertions.
func (f *Fake) Note(row, col int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notes[A1(row, col)]
}

// Cell returns the stored cell text, for test assertions.
func (f *Fake) Cell(row, col int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row-1 < len(f.rows) && col-1 < len(f.rows[row-1]) {
		return f.rows[row-1][col-1]
	}
	return ""
}

func (f *Fake) grow(row, col int) {
	for len(f.rows) < row {
		f.rows = append(f.rows, nil)
	}
	for len(f.rows[row-1]) < col {
		f.rows[row-1] = append(f.rows[row-1], "")
	}
}
