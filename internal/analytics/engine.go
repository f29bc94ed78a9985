package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Artemka2031/finance-control-sub000/internal/cache"
	"github.com/Artemka2031/finance-control-sub000/internal/document"
	"github.com/Artemka2031/finance-control-sub000/internal/ledgercell"
	"github.com/Artemka2031/finance-control-sub000/internal/schema"
)

const dateLayout = "02.01.2006"

// Day and period results change with same-day writes; month and overview
// results are effectively immutable once a month closes.
const (
	dayTTL   = 5 * time.Minute
	monthTTL = time.Hour
)

// Engine computes rollups from a schema and a document snapshot, caching
// every public operation under a key composed of all its parameters.
type Engine struct {
	builder *schema.Builder
	doc     *document.Cache
	store   cache.Store
	log     zerolog.Logger
}

func NewEngine(builder *schema.Builder, doc *document.Cache, store cache.Store, log zerolog.Logger) *Engine {
	return &Engine{builder: builder, doc: doc, store: store, log: log.With().Str("component", "analytics").Logger()}
}

func cached[T any](ctx context.Context, e *Engine, key string, ttl time.Duration, produce func() (T, error)) (T, error) {
	var zero T
	if raw, err := e.store.Get(ctx, key); err == nil {
		var out T
		if err := json.Unmarshal([]byte(raw), &out); err == nil {
			return out, nil
		}
		e.log.Warn().Str("key", key).Msg("discarding unreadable cache entry")
	}
	out, err := produce()
	if err != nil {
		return zero, err
	}
	if encoded, err := json.Marshal(out); err == nil {
		if err := e.store.Set(ctx, key, string(encoded), ttl); err != nil {
			e.log.Warn().Err(err).Str("key", key).Msg("result not cached")
		}
	}
	return out, nil
}

func (e *Engine) load(ctx context.Context) (*schema.Schema, *document.Snapshot, error) {
	s, err := e.builder.Schema(ctx)
	if err != nil {
		return nil, nil, err
	}
	snap, err := e.doc.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	return s, snap, nil
}

func value(snap *document.Snapshot, row, col int) decimal.Decimal {
	return ledgercell.Value(snap.Cell(row, col))
}

// DayBreakdown resolves a DD.MM.YYYY date to its column and rolls the whole
// ledger up for that day.
func (e *Engine) DayBreakdown(ctx context.Context, date string, opts Options) (*DayBreakdown, error) {
	key := fmt.Sprintf("daydetail:%s:%s:%t:%t", date, opts.Level, opts.ZeroSuppress, opts.IncludeMonthSummary)
	return cached(ctx, e, key, dayTTL, func() (*DayBreakdown, error) {
		s, snap, err := e.load(ctx)
		if err != nil {
			return nil, err
		}
		col, err := s.DateColumn(date)
		if err != nil {
			return nil, err
		}
		return e.buildDay(s, snap, date, col, opts), nil
	})
}

func (e *Engine) buildDay(s *schema.Schema, snap *document.Snapshot, date string, col int, opts Options) *DayBreakdown {
	ym := date[6:] + "-" + date[3:5]

	incTotal, incItems := incomeLines(s, snap, col, opts)
	tree := rollDay(s, snap, col, opts)
	expTotal := value(snap, s.Expenses.TotalRow, col)
	credTotal, credItems := creditorLines(s, snap, col, opts.ZeroSuppress)

	out := &DayBreakdown{
		Date:      date,
		Month:     ym,
		Income:    IncomeSummary{Total: incTotal, Items: incItems},
		Expense:   ExpenseSummary{Total: expTotal, Tree: tree},
		Creditors: CreditorSummary{Total: credTotal, Items: credItems},
	}

	if mc, err := s.MonthColumn(ym); err == nil {
		incProg := value(snap, s.Income.TotalRow, mc.BalanceCol)
		expProg := value(snap, s.Expenses.TotalRow, mc.BalanceCol)
		out.Income.MonthProgress = &incProg
		out.Expense.MonthProgress = &expProg
		if opts.IncludeMonthSummary {
			out.MonthSummary = &MonthSummary{
				Balance:         value(snap, 2, mc.BalanceCol),
				FreeCash:        value(snap, 3, mc.FreeCashCol),
				IncomeProgress:  incProg,
				ExpenseProgress: expProg,
			}
		}
	}
	return out
}

// MonthTotals rolls the ledger up at a month's boundary column, reading the
// subtotal rows the document maintains for the month instead of re-summing
// day cells.
func (e *Engine) MonthTotals(ctx context.Context, ym string, opts Options) (*MonthTotals, error) {
	key := fmt.Sprintf("month:%s:%s:%t:%t", ym, opts.Level, opts.ZeroSuppress, opts.IncludeBalances)
	return cached(ctx, e, key, monthTTL, func() (*MonthTotals, error) {
		s, snap, err := e.load(ctx)
		if err != nil {
			return nil, err
		}
		mc, err := s.MonthColumn(ym)
		if err != nil {
			return nil, err
		}
		col := mc.BalanceCol

		incTotal := value(snap, s.Income.TotalRow, col)
		_, incItems := incomeLines(s, snap, col, opts)
		credTotal, credItems := creditorLines(s, snap, col, opts.ZeroSuppress)

		out := &MonthTotals{
			Month:     ym,
			Income:    IncomeSummary{Total: incTotal, Items: incItems},
			Expense:   ExpenseSummary{Total: value(snap, s.Expenses.TotalRow, col), Tree: rollMonth(s, snap, col, opts)},
			Creditors: CreditorSummary{Total: credTotal, Items: credItems},
		}
		if opts.IncludeBalances {
			balance := value(snap, 2, col)
			freeCash := value(snap, 3, col)
			out.Balance = &balance
			out.FreeCash = &freeCash
		}
		return out, nil
	})
}

// PeriodExpenseSummary walks every calendar day in the inclusive range that
// has a known column and accumulates a running total tree across days.
func (e *Engine) PeriodExpenseSummary(ctx context.Context, startDate, endDate string, opts Options) (*PeriodSummary, error) {
	key := fmt.Sprintf("periodsummary:%s:%s:%s:%t", startDate, endDate, opts.Level, opts.ZeroSuppress)
	return cached(ctx, e, key, dayTTL, func() (*PeriodSummary, error) {
		start, err := parseDate(startDate)
		if err != nil {
			return nil, err
		}
		end, err := parseDate(endDate)
		if err != nil {
			return nil, err
		}
		if start.After(end) {
			return nil, fmt.Errorf("start date %s after end date %s", startDate, endDate)
		}

		s, err := e.builder.Schema(ctx)
		if err != nil {
			return nil, err
		}

		out := &PeriodSummary{
			Period:       startDate + " to " + endDate,
			DailySummary: map[string]DaySummary{},
			Breakdown:    map[string]*DayBreakdown{},
		}
		out.Totals.Income.Items = map[string]*IncomeItem{}
		out.Totals.Expense.Tree = map[string]*SecNode{}
		out.Totals.Creditors.Items = map[string]*CreditorItem{}

		dayOpts := opts
		dayOpts.IncludeMonthSummary = false
		for d := start; !d.After(end); d = d.AddDays(1) {
			date := fmt.Sprintf("%02d.%02d.%04d", d.Day, d.Month, d.Year)
			if _, ok := s.DateCols[date]; !ok {
				continue
			}
			day, err := e.DayBreakdown(ctx, date, dayOpts)
			if err != nil {
				return nil, err
			}
			out.DailySummary[date] = DaySummary{
				Income:    day.Income.Total,
				Expense:   day.Expense.Total,
				Creditors: day.Creditors.Total,
			}
			if opts.ZeroSuppress && day.Income.Total.IsZero() && day.Expense.Total.IsZero() && day.Creditors.Total.IsZero() {
				continue
			}
			out.Breakdown[date] = day
			accumulate(&out.Totals, day)
		}

		if opts.ZeroSuppress {
			for code, item := range out.Totals.Income.Items {
				if item.Amount.IsZero() {
					delete(out.Totals.Income.Items, code)
				}
			}
		}
		return out, nil
	})
}

// MonthsOverview returns MonthTotals for every known month.
func (e *Engine) MonthsOverview(ctx context.Context, opts Options) (map[string]*MonthTotals, error) {
	key := fmt.Sprintf("months:overview:%s:%t:%t", opts.Level, opts.ZeroSuppress, opts.IncludeBalances)
	return cached(ctx, e, key, monthTTL, func() (map[string]*MonthTotals, error) {
		s, err := e.builder.Schema(ctx)
		if err != nil {
			return nil, err
		}
		out := map[string]*MonthTotals{}
		for _, ym := range s.Months() {
			mt, err := e.MonthTotals(ctx, ym, opts)
			if err != nil {
				return nil, err
			}
			out[ym] = mt
		}
		return out, nil
	})
}

// WarmCache pre-computes the first known day breakdown and the two earliest
// month totals so the first interactive queries hit a warm cache.
func (e *Engine) WarmCache(ctx context.Context) {
	s, err := e.builder.Schema(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("cache warmup skipped")
		return
	}
	if dates := s.Dates(); len(dates) > 0 {
		if _, err := e.DayBreakdown(ctx, dates[0], Options{Level: LevelCategory}); err != nil {
			e.log.Warn().Err(err).Str("date", dates[0]).Msg("day warmup failed")
		}
	}
	months := s.Months()
	if len(months) > 2 {
		months = months[:2]
	}
	for _, ym := range months {
		if _, err := e.MonthTotals(ctx, ym, Options{Level: LevelCategory}); err != nil {
			e.log.Warn().Err(err).Str("month", ym).Msg("month warmup failed")
		}
	}
	e.log.Info().Msg("cache warmed")
}

func parseDate(s string) (civil.Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return civil.DateOf(t), nil
}
