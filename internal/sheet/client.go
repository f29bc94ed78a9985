// Package sheet wraps the remote spreadsheet that serves as the ledger's
// record of truth. All coordinates are numeric 1-based (row, col) pairs;
// A1 notation exists only at this boundary.
package sheet

import (
	"context"
	"errors"
)

// ErrRemoteUnavailable indicates the remote document could not be reached
// after the retry policy was exhausted.
var ErrRemoteUnavailable = errors.New("sheet: remote unavailable")

// Client is the remote tabular document client.
// ReadGrid returns the rendered cell values; ReadCellFormula returns the raw
// formula text of a single cell as entered.
type Client interface {
	// ReadGrid fetches the full cell grid, rows of rendered values.
	ReadGrid(ctx context.Context) ([][]string, error)

	// ReadNotes fetches all per-cell notes keyed by A1 address.
	ReadNotes(ctx context.Context) (map[string]string, error)

	// ReadCellFormula returns the raw formula (or value) text of one cell.
	ReadCellFormula(ctx context.Context, row, col int) (string, error)

	// WriteCell writes a formula or value into one cell.
	WriteCell(ctx context.Context, row, col int, value string) error

	// WriteNote replaces the note on one cell. An empty note clears it.
	WriteNote(ctx context.Context, row, col int, note string) error
}
