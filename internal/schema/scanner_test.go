package schema

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Artemka2031/finance-control-sub000/internal/logger"
)

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

// ledgerGrid builds a worksheet with a complete June 2025 (boundary column
// present) and a five-day July (boundary omitted).
func ledgerGrid() grid {
	var g grid
	g.set(3, 4, "1500")
	g.set(3, 5, "20000")

	g.set(5, 2, "I")
	g.set(6, 2, "1")
	g.set(6, 3, "Salary")
	g.set(7, 2, "1.1")
	g.set(7, 3, "Bonus")
	g.set(8, 2, "2")
	g.set(8, 3, "Other")
	g.set(9, 2, "Total income:")

	g.set(10, 2, "P1")
	g.set(10, 3, "Food")
	g.set(11, 2, "1")
	g.set(11, 3, "Groceries")
	g.set(12, 2, "1.1")
	g.set(12, 3, "Market")
	g.set(13, 2, "1.2")
	g.set(14, 2, "Total P1:")
	g.set(15, 2, "P2")
	g.set(15, 3, "Transport")
	g.set(16, 2, "1")
	g.set(16, 3, "Fuel")
	g.set(17, 2, "Total P2:")
	g.set(18, 2, "Total all sections:")

	g.set(20, 2, "C")
	g.set(21, 3, "Alice")
	g.set(26, 3, "Bob")
	g.set(31, 2, "Total savings:")

	for day := 1; day <= 30; day++ {
		g.set(5, 6+day, fmt.Sprintf("%02d.06.2025", day))
	}
	for day := 1; day <= 5; day++ {
		g.set(5, 37+day, fmt.Sprintf("%02d.07.2025", day))
	}
	return g
}

func TestScanExpenseSections(t *testing.T) {
	s := Scan(ledgerGrid(), logger.New())

	require.Len(t, s.Expenses.Sections, 2)

	p1 := s.Expenses.Sections["P1"]
	require.Equal(t, "Food", p1.Name)
	require.Equal(t, 10, p1.Row)
	require.Equal(t, 14, p1.TotalRow)
	require.Equal(t, 12, p1.Cats["1"].Subs["1.1"].Row)
	require.Equal(t, 18, s.Expenses.TotalRow)

	for _, sec := range s.Expenses.Sections {
		for catCode, cat := range sec.Cats {
			for subCode := range cat.Subs {
				require.True(t, strings.HasPrefix(subCode, catCode+"."),
					"subcategory %s not prefixed by %s.", subCode, catCode)
			}
		}
	}
}

func TestScanIncomeTree(t *testing.T) {
	s := Scan(ledgerGrid(), logger.New())

	require.Len(t, s.Income.Cats, 2)
	require.Equal(t, "Salary", s.Income.Cats["1"].Name)
	require.Equal(t, 7, s.Income.Cats["1"].Subs["1.1"].Row)
	require.Equal(t, 9, s.Income.TotalRow)
}

func TestScanDateAndMonthColumns(t *testing.T) {
	s := Scan(ledgerGrid(), logger.New())

	require.Equal(t, 7, s.DateCols["01.06.2025"])
	require.Equal(t, 36, s.DateCols["30.06.2025"])

	// Complete June gets a boundary column one past its last date.
	mc, err := s.MonthColumn("2025-06")
	require.NoError(t, err)
	require.Equal(t, 37, mc.BalanceCol)

	// Incomplete July is absent.
	_, err = s.MonthColumn("2025-07")
	require.ErrorIs(t, err, ErrDateNotFound)
	require.Equal(t, []string{"2025-06"}, s.Months())
}

func TestScanCreditors(t *testing.T) {
	s := Scan(ledgerGrid(), logger.New())

	require.Len(t, s.Creditors, 2)
	alice := s.Creditors["Alice"]
	require.Equal(t, 21, alice.BaseRow)
	require.Equal(t, 22, alice.BorrowRow())
	require.Equal(t, 23, alice.RepayRow())
	require.Equal(t, 24, alice.SaveRow())
	require.Equal(t, 25, alice.NetRow())
	require.Equal(t, 26, s.Creditors["Bob"].BaseRow)
}

func TestScanKeepsEmptyNamePlaceholders(t *testing.T) {
	s := Scan(ledgerGrid(), logger.New())

	sub, ok := s.Expenses.Sections["P1"].Cats["1"].Subs["1.2"]
	require.True(t, ok)
	require.Equal(t, "", sub.Name)
}

func TestScanMissingSentinels(t *testing.T) {
	var g grid
	g.set(1, 2, "nothing to see")

	s := Scan(g, logger.New())
	require.Empty(t, s.Income.Cats)
	require.Empty(t, s.Expenses.Sections)
	require.Empty(t, s.Creditors)
	require.Empty(t, s.DateCols)
}

func TestScanDateRowFallsBackToFirstSection(t *testing.T) {
	var g grid
	g.set(4, 2, "P1")
	g.set(4, 3, "Food")
	g.set(4, 7, "01.06.2025")
	g.set(5, 2, "Total P1:")

	s := Scan(g, logger.New())
	require.Equal(t, 7, s.DateCols["01.06.2025"])
}

func TestLookups(t *testing.T) {
	s := Scan(ledgerGrid(), logger.New())

	row, err := s.ExpenseRow("P1", "1", "1.1")
	require.NoError(t, err)
	require.Equal(t, 12, row)

	row, err = s.ExpenseRow("P1", "1", "")
	require.NoError(t, err)
	require.Equal(t, 11, row)

	row, err = s.ExpenseRow("P1", "", "")
	require.NoError(t, err)
	require.Equal(t, 14, row)

	_, err = s.ExpenseRow("P9", "", "")
	require.ErrorIs(t, err, ErrEntityNotFound)
	_, err = s.ExpenseRow("P1", "7", "")
	require.ErrorIs(t, err, ErrEntityNotFound)

	row, err = s.IncomeRow("1", "1.1")
	require.NoError(t, err)
	require.Equal(t, 7, row)
	_, err = s.IncomeRow("9", "")
	require.ErrorIs(t, err, ErrEntityNotFound)

	_, err = s.CreditorBlock("Mallory")
	require.ErrorIs(t, err, ErrEntityNotFound)

	_, err = s.DateColumn("31.12.1999")
	require.ErrorIs(t, err, ErrDateNotFound)

	col, err := s.DateColumn("01.06.2025")
	require.NoError(t, err)
	require.Equal(t, 7, col)
}
