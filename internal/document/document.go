// Package document caches the full remote worksheet as one snapshot so a
// burst of reads costs a single round trip to the Sheets API.
package document

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Artemka2031/finance-control-sub000/internal/cache"
	"github.com/Artemka2031/finance-control-sub000/internal/sheet"
)

const (
	rawKey = "sheet:raw_data"
	rawTTL = time.Hour
)

// Snapshot is one consistent read of the worksheet: the rendered grid plus
// the cell notes keyed by A1 address.
type Snapshot struct {
	Rows  [][]string        `json:"rows"`
	Notes map[string]string `json:"notes"`
}

// Cell returns the rendered value at 1-based coordinates, empty when the
// grid is ragged short of the address.
func (s *Snapshot) Cell(row, col int) string {
	if row < 1 || row > len(s.Rows) {
		return ""
	}
	r := s.Rows[row-1]
	if col < 1 || col > len(r) {
		return ""
	}
	return r[col-1]
}

// Note returns the note at 1-based coordinates, empty when absent.
func (s *Snapshot) Note(row, col int) string {
	return s.Notes[sheet.A1(row, col)]
}

// Cache serves worksheet snapshots through the shared cache store, fetching
// from the remote document only on a miss.
type Cache struct {
	client sheet.Client
	store  cache.Store
	log    zerolog.Logger
}

func NewCache(client sheet.Client, store cache.Store, log zerolog.Logger) *Cache {
	return &Cache{client: client, store: store, log: log.With().Str("component", "document").Logger()}
}

// Snapshot returns the cached worksheet, fetching and caching it on a miss.
// A corrupt cache entry is treated as a miss.
func (c *Cache) Snapshot(ctx context.Context) (*Snapshot, error) {
	if raw, err := c.store.Get(ctx, rawKey); err == nil {
		var snap Snapshot
		if err := json.Unmarshal([]byte(raw), &snap); err == nil {
			return &snap, nil
		}
		c.log.Warn().Msg("discarding unreadable cached snapshot")
	}
	return c.Refresh(ctx)
}

// Refresh fetches the worksheet from the remote document unconditionally and
// replaces the cached snapshot.
func (c *Cache) Refresh(ctx context.Context) (*Snapshot, error) {
	rows, err := c.client.ReadGrid(ctx)
	if err != nil {
		return nil, fmt.Errorf("read grid: %w", err)
	}
	notes, err := c.client.ReadNotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("read notes: %w", err)
	}
	snap := &Snapshot{Rows: rows, Notes: notes}

	encoded, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := c.store.Set(ctx, rawKey, string(encoded), rawTTL); err != nil {
		c.log.Warn().Err(err).Msg("snapshot not cached")
	}
	c.log.Debug().Int("rows", len(rows)).Int("notes", len(notes)).Msg("worksheet snapshot refreshed")
	return snap, nil
}

// Invalidate drops the cached snapshot so the next read refetches.
func (c *Cache) Invalidate(ctx context.Context) error {
	return c.store.Delete(ctx, rawKey)
}
