package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Artemka2031/finance-control-sub000/internal/analytics"
	"github.com/Artemka2031/finance-control-sub000/internal/cache"
	"github.com/Artemka2031/finance-control-sub000/internal/document"
	"github.com/Artemka2031/finance-control-sub000/internal/schema"
)

// Invalidator keeps the read caches coherent with mutations: each completed
// mutation immediately drops the entries covering the touched day and month,
// and a debounced full refresh runs once a burst of mutations settles.
type Invalidator struct {
	store    cache.Store
	doc      *document.Cache
	builder  *schema.Builder
	engine   *analytics.Engine
	debounce time.Duration
	log      zerolog.Logger

	mu    sync.Mutex
	timer *time.Timer
}

func NewInvalidator(store cache.Store, doc *document.Cache, builder *schema.Builder, engine *analytics.Engine, debounce time.Duration, log zerolog.Logger) *Invalidator {
	return &Invalidator{
		store:    store,
		doc:      doc,
		builder:  builder,
		engine:   engine,
		debounce: debounce,
		log:      log.With().Str("component", "invalidator").Logger(),
	}
}

// AfterMutation drops the cached aggregates the mutation made stale and
// re-arms the debounced refresh. The date is the DD.MM.YYYY day the mutation
// touched, empty when unknown.
func (inv *Invalidator) AfterMutation(ctx context.Context, date string) {
	if len(date) == 10 {
		ym := date[6:] + "-" + date[3:5]
		inv.drop(ctx, "daydetail:"+date+":")
		inv.drop(ctx, "month:"+ym+":")
	}
	inv.drop(ctx, "periodsummary:")
	inv.drop(ctx, "months:overview:")
	if err := inv.doc.Invalidate(ctx); err != nil {
		inv.log.Warn().Err(err).Msg("raw snapshot not invalidated")
	}

	inv.mu.Lock()
	if inv.timer == nil {
		inv.timer = time.AfterFunc(inv.debounce, inv.refreshAfterBurst)
	} else {
		inv.timer.Reset(inv.debounce)
	}
	inv.mu.Unlock()
}

func (inv *Invalidator) drop(ctx context.Context, prefix string) {
	if err := inv.store.DeleteByPrefix(ctx, prefix); err != nil {
		inv.log.Warn().Err(err).Str("prefix", prefix).Msg("cache entries not dropped")
	}
}

func (inv *Invalidator) refreshAfterBurst() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	inv.log.Info().Msg("mutation burst settled, refreshing caches")
	if err := inv.Refresh(ctx); err != nil {
		inv.log.Error().Err(err).Msg("debounced cache refresh failed")
	}
}

// Refresh rebuilds everything: refetches the document, rebuilds the schema,
// drops all aggregate entries and pre-warms the hot ones.
func (inv *Invalidator) Refresh(ctx context.Context) error {
	if err := inv.builder.Invalidate(ctx); err != nil {
		return err
	}
	if _, err := inv.doc.Refresh(ctx); err != nil {
		return err
	}
	if _, err := inv.builder.Schema(ctx); err != nil {
		return err
	}
	for _, prefix := range []string{"daydetail:", "month:", "periodsummary:", "months:overview:"} {
		inv.drop(ctx, prefix)
	}
	inv.engine.WarmCache(ctx)
	return nil
}

// Stop cancels any pending debounced refresh.
func (inv *Invalidator) Stop() {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.timer != nil {
		inv.timer.Stop()
	}
}
