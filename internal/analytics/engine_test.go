package analytics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Artemka2031/finance-control-sub000/internal/cache"
	"github.com/Artemka2031/finance-control-sub000/internal/document"
	"github.com/Artemka2031/finance-control-sub000/internal/logger"
	"github.com/Artemka2031/finance-control-sub000/internal/schema"
	"github.com/Artemka2031/finance-control-sub000/internal/sheet"
)

var errDown = errors.New("remote down")

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type grid [][]string

func (g *grid) set(row, col int, value string) {
	for len(*g) < row {
		*g = append(*g, nil)
	}
	for len((*g)[row-1]) < col {
		(*g)[row-1] = append((*g)[row-1], "")
	}
	(*g)[row-1][col-1] = value
}

// ledgerGrid models June 2025 fully dated (boundary column 37) with values
// on 01.06.2025 (column 7) and month subtotals at the boundary.
func ledgerGrid() grid {
	var g grid

	g.set(5, 2, "I")
	g.set(6, 2, "1")
	g.set(6, 3, "Salary")
	g.set(7, 2, "1.1")
	g.set(7, 3, "Bonus")
	g.set(8, 2, "Total income:")

	g.set(9, 2, "P1")
	g.set(9, 3, "Food")
	g.set(10, 2, "1")
	g.set(10, 3, "Groceries")
	g.set(11, 2, "1.1")
	g.set(11, 3, "Market")
	g.set(12, 2, "1.2")
	g.set(13, 2, "Total P1:")
	g.set(14, 2, "P2")
	g.set(14, 3, "Transport")
	g.set(15, 2, "1")
	g.set(15, 3, "Fuel")
	g.set(16, 2, "Total P2:")
	g.set(17, 2, "Total all sections:")

	g.set(19, 2, "C")
	g.set(20, 3, "Alice")
	g.set(26, 2, "Total savings:")

	for day := 1; day <= 30; day++ {
		g.set(5, 6+day, fmt.Sprintf("%02d.06.2025", day))
	}

	// 01.06.2025 at column 7.
	g.set(6, 7, "=1000")
	g.set(7, 7, "500")
	g.set(11, 7, "=300+49.9")
	g.set(12, 7, "150")
	g.set(15, 7, "75")
	g.set(17, 7, "574.9")
	g.set(24, 7, "250")

	// Month boundary at column 37.
	g.set(2, 37, "10000")
	g.set(3, 37, "2500")
	g.set(6, 37, "4000")
	g.set(7, 37, "500")
	g.set(8, 37, "4500")
	g.set(10, 37, "1150")
	g.set(11, 37, "1000")
	g.set(12, 37, "150")
	g.set(13, 37, "1200")
	g.set(15, 37, "800")
	g.set(16, 37, "800")
	g.set(17, 37, "2000")
	g.set(24, 37, "250")
	return g
}

func newEngine(t *testing.T, g grid) (*Engine, *sheet.Fake) {
	t.Helper()
	fake := sheet.NewFake(g)
	store := cache.NewMemory()
	log := logger.New()
	doc := document.NewCache(fake, store, log)
	builder := schema.NewBuilder(doc, store, log)
	return NewEngine(builder, doc, store, log), fake
}

func TestDayBreakdown(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t, ledgerGrid())

	day, err := e.DayBreakdown(ctx, "01.06.2025", Options{Level: LevelSubcategory})
	require.NoError(t, err)

	require.Equal(t, "01.06.2025", day.Date)
	require.Equal(t, "2025-06", day.Month)
	require.True(t, day.Income.Total.Equal(dec("1500")), "income total %s", day.Income.Total)
	require.True(t, day.Expense.Total.Equal(dec("574.9")))
	require.True(t, day.Creditors.Total.Equal(dec("250")))
	require.True(t, day.Creditors.Items["Alice"].Balance.Equal(dec("250")))

	food := day.Expense.Tree["P1"]
	require.NotNil(t, food)
	require.True(t, food.Amount.Equal(dec("499.9")), "section amount %s", food.Amount)
	groceries := food.Cats["1"]
	require.True(t, groceries.Amount.Equal(dec("499.9")))
	require.True(t, groceries.Subs["1.1"].Amount.Equal(dec("349.9")))

	// The unnamed placeholder contributes to sums but is never rendered.
	_, rendered := groceries.Subs["1.2"]
	require.False(t, rendered)

	require.True(t, day.Expense.Tree["P2"].Cats["1"].Amount.Equal(dec("75")))

	require.NotNil(t, day.Income.MonthProgress)
	require.True(t, day.Income.MonthProgress.Equal(dec("4500")))
}

func TestDayBreakdownScenario(t *testing.T) {
	ctx := context.Background()
	var g grid
	g.set(10, 2, "P1")
	g.set(10, 3, "Food")
	g.set(11, 2, "1")
	g.set(11, 3, "Groceries")
	g.set(12, 2, "1.1")
	g.set(12, 3, "Market")
	g.set(13, 2, "Total P1:")
	g.set(10, 20, "01.06.2025")
	g.set(12, 20, "=300")
	e, _ := newEngine(t, g)

	day, err := e.DayBreakdown(ctx, "01.06.2025", Options{Level: LevelSubcategory})
	require.NoError(t, err)

	sec := day.Expense.Tree["P1"]
	require.True(t, sec.Amount.Equal(dec("300")))
	require.True(t, sec.Cats["1"].Amount.Equal(dec("300")))
	require.True(t, sec.Cats["1"].Subs["1.1"].Amount.Equal(dec("300")))
}

func TestDayBreakdownDateNotFound(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t, ledgerGrid())

	_, err := e.DayBreakdown(ctx, "01.01.1999", Options{})
	require.ErrorIs(t, err, schema.ErrDateNotFound)
}

func TestZeroSuppression(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t, ledgerGrid())

	full, err := e.DayBreakdown(ctx, "01.06.2025", Options{Level: LevelSubcategory})
	require.NoError(t, err)
	suppressed, err := e.DayBreakdown(ctx, "01.06.2025", Options{Level: LevelSubcategory, ZeroSuppress: true})
	require.NoError(t, err)

	var walk func(t *testing.T, tree map[string]*SecNode)
	walk = func(t *testing.T, tree map[string]*SecNode) {
		for code, sec := range tree {
			require.False(t, sec.Amount.IsZero(), "zero section %s rendered", code)
			for catCode, cat := range sec.Cats {
				require.False(t, cat.Amount.IsZero(), "zero category %s rendered", catCode)
				for subCode, sub := range cat.Subs {
					require.False(t, sub.Amount.IsZero(), "zero subcategory %s rendered", subCode)
				}
			}
		}
	}
	walk(t, suppressed.Expense.Tree)

	// Non-zero nodes agree between the two calls.
	for code, sec := range suppressed.Expense.Tree {
		require.True(t, sec.Amount.Equal(full.Expense.Tree[code].Amount))
	}

	// A day with no entries suppresses every node.
	empty, err := e.DayBreakdown(ctx, "02.06.2025", Options{Level: LevelSubcategory, ZeroSuppress: true})
	require.NoError(t, err)
	require.Empty(t, empty.Expense.Tree)
	require.Empty(t, empty.Creditors.Items)
}

func TestLevelDepth(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t, ledgerGrid())

	bySection, err := e.DayBreakdown(ctx, "01.06.2025", Options{Level: LevelSection})
	require.NoError(t, err)
	byCategory, err := e.DayBreakdown(ctx, "01.06.2025", Options{Level: LevelCategory})
	require.NoError(t, err)

	sec := bySection.Expense.Tree["P1"]
	require.Nil(t, sec.Cats)
	// Shallow levels still compute the full sum.
	require.True(t, sec.Amount.Equal(dec("499.9")))

	cat := byCategory.Expense.Tree["P1"].Cats["1"]
	require.Nil(t, cat.Subs)
	require.True(t, cat.Amount.Equal(dec("499.9")))
}

func TestMonthTotals(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t, ledgerGrid())

	mt, err := e.MonthTotals(ctx, "2025-06", Options{Level: LevelSubcategory, IncludeBalances: true})
	require.NoError(t, err)

	require.True(t, mt.Income.Total.Equal(dec("4500")))
	require.True(t, mt.Expense.Total.Equal(dec("2000")))
	require.True(t, mt.Expense.Tree["P1"].Amount.Equal(dec("1200")))
	require.True(t, mt.Expense.Tree["P1"].Cats["1"].Amount.Equal(dec("1150")))
	require.True(t, mt.Expense.Tree["P2"].Amount.Equal(dec("800")))
	require.NotNil(t, mt.Balance)
	require.True(t, mt.Balance.Equal(dec("10000")))
	require.True(t, mt.FreeCash.Equal(dec("2500")))

	_, err = e.MonthTotals(ctx, "2024-01", Options{})
	require.ErrorIs(t, err, schema.ErrDateNotFound)
}

func TestPeriodSingleDayMatchesDay(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t, ledgerGrid())

	day, err := e.DayBreakdown(ctx, "01.06.2025", Options{Level: LevelSubcategory})
	require.NoError(t, err)
	period, err := e.PeriodExpenseSummary(ctx, "01.06.2025", "01.06.2025", Options{Level: LevelSubcategory})
	require.NoError(t, err)

	require.True(t, period.Totals.Income.Total.Equal(day.Income.Total))
	require.True(t, period.Totals.Expense.Total.Equal(day.Expense.Total))
	require.True(t, period.Totals.Creditors.Total.Equal(day.Creditors.Total))
	require.True(t, period.Totals.Expense.Tree["P1"].Amount.Equal(day.Expense.Tree["P1"].Amount))
	require.Len(t, period.DailySummary, 1)
}

func TestPeriodAccumulates(t *testing.T) {
	ctx := context.Background()
	g := ledgerGrid()
	g.set(11, 8, "=100") // second day entry at 02.06.2025
	g.set(17, 8, "100")
	e, _ := newEngine(t, g)

	period, err := e.PeriodExpenseSummary(ctx, "01.06.2025", "03.06.2025", Options{Level: LevelSubcategory, ZeroSuppress: true})
	require.NoError(t, err)

	require.Len(t, period.DailySummary, 3)
	require.Len(t, period.Breakdown, 2, "all-zero day dropped from breakdown")
	require.True(t, period.Totals.Expense.Tree["P1"].Cats["1"].Subs["1.1"].Amount.Equal(dec("449.9")))

	_, err = e.PeriodExpenseSummary(ctx, "03.06.2025", "01.06.2025", Options{})
	require.Error(t, err)
}

func TestMonthsOverview(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t, ledgerGrid())

	overview, err := e.MonthsOverview(ctx, Options{Level: LevelCategory})
	require.NoError(t, err)
	require.Len(t, overview, 1)
	require.True(t, overview["2025-06"].Expense.Total.Equal(dec("2000")))
}

func TestDayCached(t *testing.T) {
	ctx := context.Background()
	e, fake := newEngine(t, ledgerGrid())

	first, err := e.DayBreakdown(ctx, "01.06.2025", Options{Level: LevelSubcategory})
	require.NoError(t, err)

	// A later remote edit is invisible until the cache entry expires or is
	// invalidated.
	require.NoError(t, fake.WriteCell(ctx, 11, 7, "=999"))
	second, err := e.DayBreakdown(ctx, "01.06.2025", Options{Level: LevelSubcategory})
	require.NoError(t, err)
	require.True(t, second.Expense.Tree["P1"].Amount.Equal(first.Expense.Tree["P1"].Amount))
}

func TestWarmCache(t *testing.T) {
	ctx := context.Background()
	e, fake := newEngine(t, ledgerGrid())

	e.WarmCache(ctx)

	// Warmed entries survive a remote outage.
	fake.FailReads = errDown
	day, err := e.DayBreakdown(ctx, "01.06.2025", Options{Level: LevelCategory})
	require.NoError(t, err)
	require.True(t, day.Expense.Total.Equal(dec("574.9")))
	mt, err := e.MonthTotals(ctx, "2025-06", Options{Level: LevelCategory})
	require.NoError(t, err)
	require.True(t, mt.Expense.Total.Equal(dec("2000")))
}
