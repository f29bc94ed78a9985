// Package schema turns the raw worksheet grid into a typed model of the
// ledger layout: the income and expense trees, creditor blocks, date columns
// and month boundary columns. A Schema is an immutable snapshot; refreshing
// builds a new value instead of patching the old one.
package schema

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrDateNotFound indicates a calendar date with no known column.
	ErrDateNotFound = errors.New("schema: date not found")
	// ErrEntityNotFound indicates an unknown section, category, subcategory
	// or creditor code.
	ErrEntityNotFound = errors.New("schema: entity not found")
	// ErrSchemaUnavailable indicates the document could not be read at all;
	// no partial schema is ever published.
	ErrSchemaUnavailable = errors.New("schema: document unreadable")
)

// Cell is a 1-based (row, column) pair. Spreadsheet-style addresses exist
// only at the remote client boundary.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Subcategory is a leaf of the income or expense tree.
type Subcategory struct {
	Name string `json:"name"`
	Row  int    `json:"row"`
}

// Category groups subcategories under a numeric code.
type Category struct {
	Name string                  `json:"name"`
	Row  int                     `json:"row"`
	Subs map[string]*Subcategory `json:"subs"`
}

// Section is a top-level expense block with its own subtotal row.
type Section struct {
	Name     string               `json:"name"`
	Row      int                  `json:"row"`
	TotalRow int                  `json:"total_row"`
	Cats     map[string]*Category `json:"cats"`
}

// IncomeTree is the income categories rooted at the income sentinel.
type IncomeTree struct {
	Cats     map[string]*Category `json:"cats"`
	TotalRow int                  `json:"total_row"`
}

// ExpenseTree is the set of expense sections plus the grand-total row.
type ExpenseTree struct {
	Sections map[string]*Section `json:"sections"`
	TotalRow int                 `json:"total_row"`
}

// Creditor anchors a five-row block: the name row plus four derived balance
// rows at fixed offsets.
type Creditor struct {
	BaseRow int `json:"base_row"`
}

// Derived balance rows of a creditor block.
func (c Creditor) BorrowRow() int { return c.BaseRow + 1 }
func (c Creditor) RepayRow() int  { return c.BaseRow + 2 }
func (c Creditor) SaveRow() int   { return c.BaseRow + 3 }
func (c Creditor) NetRow() int    { return c.BaseRow + 4 }

// MonthColumns is a month's boundary: the column one past the month's last
// date, holding the month totals.
type MonthColumns struct {
	BalanceCol  int `json:"balance_col"`
	FreeCashCol int `json:"free_cash_col"`
}

// Balances are the fixed well-known cells with the current balances.
type Balances struct {
	FreeCash Cell `json:"free_cash"`
	Total    Cell `json:"total"`
}

// Schema is one immutable snapshot of the worksheet layout.
type Schema struct {
	Income    IncomeTree              `json:"income"`
	Expenses  ExpenseTree             `json:"expenses"`
	Creditors map[string]Creditor     `json:"creditors"`
	DateCols  map[string]int          `json:"date_cols"`
	MonthCols map[string]MonthColumns `json:"month_cols"`
	Balances  Balances                `json:"balances"`
}

// DateColumn resolves a DD.MM.YYYY date to its column.
func (s *Schema) DateColumn(date string) (int, error) {
	col, ok := s.DateCols[date]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrDateNotFound, date)
	}
	return col, nil
}

// MonthColumn resolves a YYYY-MM month to its boundary columns.
func (s *Schema) MonthColumn(ym string) (MonthColumns, error) {
	mc, ok := s.MonthCols[ym]
	if !ok {
		return MonthColumns{}, fmt.Errorf("%w: month %s", ErrDateNotFound, ym)
	}
	return mc, nil
}

// Months returns the known months in ascending order.
func (s *Schema) Months() []string {
	months := make([]string, 0, len(s.MonthCols))
	for ym := range s.MonthCols {
		months = append(months, ym)
	}
	sort.Strings(months)
	return months
}

// Dates returns the known dates in column order.
func (s *Schema) Dates() []string {
	dates := make([]string, 0, len(s.DateCols))
	for d := range s.DateCols {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return s.DateCols[dates[i]] < s.DateCols[dates[j]] })
	return dates
}

// ExpenseRow resolves an expense target to its row. Category and subcategory
// are optional: empty codes address the section subtotal or category row.
func (s *Schema) ExpenseRow(section, category, subcategory string) (int, error) {
	sec, ok := s.Expenses.Sections[section]
	if !ok {
		return 0, fmt.Errorf("%w: section %s", ErrEntityNotFound, section)
	}
	if category == "" {
		return sec.TotalRow, nil
	}
	cat, ok := sec.Cats[category]
	if !ok {
		return 0, fmt.Errorf("%w: category %s in section %s", ErrEntityNotFound, category, section)
	}
	if subcategory == "" {
		return cat.Row, nil
	}
	sub, ok := cat.Subs[subcategory]
	if !ok {
		return 0, fmt.Errorf("%w: subcategory %s in category %s", ErrEntityNotFound, subcategory, category)
	}
	return sub.Row, nil
}

// IncomeRow resolves an income category (and optional subcategory) to its row.
func (s *Schema) IncomeRow(category, subcategory string) (int, error) {
	cat, ok := s.Income.Cats[category]
	if !ok {
		return 0, fmt.Errorf("%w: income category %s", ErrEntityNotFound, category)
	}
	if subcategory == "" {
		return cat.Row, nil
	}
	sub, ok := cat.Subs[subcategory]
	if !ok {
		return 0, fmt.Errorf("%w: income subcategory %s in %s", ErrEntityNotFound, subcategory, category)
	}
	return sub.Row, nil
}

// CreditorBlock resolves a creditor by display name.
func (s *Schema) CreditorBlock(name string) (Creditor, error) {
	c, ok := s.Creditors[name]
	if !ok {
		return Creditor{}, fmt.Errorf("%w: creditor %s", ErrEntityNotFound, name)
	}
	return c, nil
}
