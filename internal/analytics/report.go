// Package analytics walks the ledger schema over a document snapshot,
// rolling cell values up into day, month, period and overview summaries.
package analytics

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Level controls how deep the expense tree is materialized in a response.
// Shallower levels still compute full depth internally; only the rendering
// is truncated.
type Level string

const (
	LevelSection     Level = "section"
	LevelCategory    Level = "category"
	LevelSubcategory Level = "subcategory"
)

// ParseLevel validates a level string, defaulting to subcategory when empty.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case "":
		return LevelSubcategory, nil
	case LevelSection, LevelCategory, LevelSubcategory:
		return Level(s), nil
	default:
		return "", fmt.Errorf("unknown level %q", s)
	}
}

// Options selects the shape of an analytics response.
type Options struct {
	Level               Level `json:"level"`
	ZeroSuppress        bool  `json:"zero_suppress"`
	IncludeMonthSummary bool  `json:"include_month_summary"`
	IncludeBalances     bool  `json:"include_balances"`
}

// SubNode is a leaf of a rolled-up expense tree.
type SubNode struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// CatNode aggregates its subcategories.
type CatNode struct {
	Name   string              `json:"name"`
	Amount decimal.Decimal     `json:"amount"`
	Subs   map[string]*SubNode `json:"subs,omitempty"`
}

// SecNode aggregates its categories.
type SecNode struct {
	Name   string              `json:"name"`
	Amount decimal.Decimal     `json:"amount"`
	Cats   map[string]*CatNode `json:"cats,omitempty"`
}

// IncomeItem is one income category or subcategory line.
type IncomeItem struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// CreditorItem is one creditor's net owed balance.
type CreditorItem struct {
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// IncomeSummary is the income side of a breakdown.
type IncomeSummary struct {
	Total         decimal.Decimal  `json:"total"`
	Items         []IncomeItem     `json:"items"`
	MonthProgress *decimal.Decimal `json:"month_progress,omitempty"`
}

// ExpenseSummary is the expense side of a breakdown.
type ExpenseSummary struct {
	Total         decimal.Decimal     `json:"total"`
	Tree          map[string]*SecNode `json:"tree"`
	MonthProgress *decimal.Decimal    `json:"month_progress,omitempty"`
}

// CreditorSummary lists creditors with non-suppressed balances.
type CreditorSummary struct {
	Total decimal.Decimal          `json:"total"`
	Items map[string]*CreditorItem `json:"items"`
}

// MonthSummary is the month-to-date block optionally attached to a day
// breakdown, read from the month boundary column.
type MonthSummary struct {
	Balance         decimal.Decimal `json:"balance"`
	FreeCash        decimal.Decimal `json:"free_cash"`
	IncomeProgress  decimal.Decimal `json:"income_progress"`
	ExpenseProgress decimal.Decimal `json:"expense_progress"`
}

// DayBreakdown is the full picture of one ledger day.
type DayBreakdown struct {
	Date         string          `json:"date"`
	Month        string          `json:"month"`
	Income       IncomeSummary   `json:"income"`
	Expense      ExpenseSummary  `json:"expense"`
	Creditors    CreditorSummary `json:"creditors"`
	MonthSummary *MonthSummary   `json:"month_summary,omitempty"`
}

// MonthTotals is the rollup at a month's boundary column.
type MonthTotals struct {
	Month     string           `json:"month"`
	Income    IncomeSummary    `json:"income"`
	Expense   ExpenseSummary   `json:"expense"`
	Creditors CreditorSummary  `json:"creditors"`
	Balance   *decimal.Decimal `json:"balance,omitempty"`
	FreeCash  *decimal.Decimal `json:"free_cash,omitempty"`
}

// DaySummary is the per-day total line of a period summary.
type DaySummary struct {
	Income    decimal.Decimal `json:"income"`
	Expense   decimal.Decimal `json:"expense"`
	Creditors decimal.Decimal `json:"creditors"`
}

// PeriodTotals accumulates elementwise sums across a period's days.
type PeriodTotals struct {
	Income struct {
		Total decimal.Decimal        `json:"total"`
		Items map[string]*IncomeItem `json:"items"`
	} `json:"income"`
	Expense struct {
		Total decimal.Decimal     `json:"total"`
		Tree  map[string]*SecNode `json:"tree"`
	} `json:"expense"`
	Creditors struct {
		Total decimal.Decimal          `json:"total"`
		Items map[string]*CreditorItem `json:"items"`
	} `json:"creditors"`
}

// PeriodSummary covers an inclusive date range.
type PeriodSummary struct {
	Period       string                   `json:"period"`
	DailySummary map[string]DaySummary    `json:"daily_summary"`
	Breakdown    map[string]*DayBreakdown `json:"breakdown"`
	Totals       PeriodTotals             `json:"totals"`
}
