package schema

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Artemka2031/finance-control-sub000/internal/cache"
	"github.com/Artemka2031/finance-control-sub000/internal/document"
	"github.com/Artemka2031/finance-control-sub000/internal/logger"
	"github.com/Artemka2031/finance-control-sub000/internal/sheet"
)

func newBuilder(t *testing.T) (*Builder, *sheet.Fake, cache.Store) {
	t.Helper()
	fake := sheet.NewFake(ledgerGrid())
	store := cache.NewMemory()
	log := logger.New()
	doc := document.NewCache(fake, store, log)
	return NewBuilder(doc, store, log), fake, store
}

func TestBuilderCachesSchema(t *testing.T) {
	ctx := context.Background()
	b, fake, _ := newBuilder(t)

	s, err := b.Schema(ctx)
	require.NoError(t, err)
	require.Len(t, s.Expenses.Sections, 2)

	fake.FailReads = errors.New("remote down")
	again, err := b.Schema(ctx)
	require.NoError(t, err)
	require.Len(t, again.Expenses.Sections, 2)
	require.Equal(t, s.DateCols, again.DateCols)
}

func TestBuilderInvalidate(t *testing.T) {
	ctx := context.Background()
	b, fake, store := newBuilder(t)

	_, err := b.Schema(ctx)
	require.NoError(t, err)

	require.NoError(t, b.Invalidate(ctx))
	require.NoError(t, store.Delete(ctx, "sheet:raw_data"))
	fake.FailReads = errors.New("remote down")

	_, err = b.Schema(ctx)
	require.ErrorIs(t, err, ErrSchemaUnavailable)
}
