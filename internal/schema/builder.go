package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Artemka2031/finance-control-sub000/internal/cache"
	"github.com/Artemka2031/finance-control-sub000/internal/document"
)

const (
	metaKey = "sheet:meta"
	metaTTL = 24 * time.Hour
)

// Builder serves Schema snapshots through the cache store, rebuilding from a
// fresh document snapshot on a miss. Rebuilds are always wholesale.
type Builder struct {
	doc   *document.Cache
	store cache.Store
	log   zerolog.Logger
}

func NewBuilder(doc *document.Cache, store cache.Store, log zerolog.Logger) *Builder {
	return &Builder{doc: doc, store: store, log: log.With().Str("component", "schema").Logger()}
}

// Schema returns the cached schema, scanning the document on a miss. An
// unreadable document is fatal; no partial schema is published or cached.
func (b *Builder) Schema(ctx context.Context) (*Schema, error) {
	if raw, err := b.store.Get(ctx, metaKey); err == nil {
		var s Schema
		if err := json.Unmarshal([]byte(raw), &s); err == nil {
			return &s, nil
		}
		b.log.Warn().Msg("discarding unreadable cached schema")
	}

	snap, err := b.doc.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaUnavailable, err)
	}
	s := Scan(snap.Rows, b.log)

	encoded, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	if err := b.store.Set(ctx, metaKey, string(encoded), metaTTL); err != nil {
		b.log.Warn().Err(err).Msg("schema not cached")
	}
	b.log.Info().
		Int("sections", len(s.Expenses.Sections)).
		Int("income_categories", len(s.Income.Cats)).
		Int("creditors", len(s.Creditors)).
		Int("dates", len(s.DateCols)).
		Msg("schema rebuilt")
	return s, nil
}

// Invalidate drops the cached schema so the next call rebuilds it.
func (b *Builder) Invalidate(ctx context.Context) error {
	return b.store.Delete(ctx, metaKey)
}
