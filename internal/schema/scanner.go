package schema

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Layout conventions of the ledger worksheet. Markers live in one designated
// column, display names in the next one; everything else is discovered by
// scanning text top to bottom.
const (
	markerCol = 2
	nameCol   = 3

	incomeRootMarker   = "I"
	creditorRootMarker = "C"
	totalPrefix        = "Total"
	grandTotalMarker   = "Total all sections:"
	creditorEndMarker  = "Total savings:"

	// Date headers never appear left of this column.
	firstDateCol = 7

	creditorBlockRows = 5
)

var (
	sectionPattern = regexp.MustCompile(`^P\d+$`)
	datePattern    = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)
)

// Derived-row labels inside a creditor block, skipped when a misaligned
// layout lands the block stride on one of them.
var creditorLabels = map[string]struct{}{
	"BORROWED:": {},
	"REPAID:":   {},
	"SAVED:":    {},
	"NET OWED:": {},
}

type scanner struct {
	markers []string
	names   []string
	log     zerolog.Logger
}

// Scan builds a Schema from a raw grid. Missing sentinel rows degrade to
// empty subtrees with a logged diagnostic; Scan itself never fails since an
// unreadable document is rejected before it produces a grid.
func Scan(rows [][]string, log zerolog.Logger) *Schema {
	sc := &scanner{
		markers: column(rows, markerCol),
		names:   column(rows, nameCol),
		log:     log.With().Str("component", "schema").Logger(),
	}
	s := &Schema{
		Income:    IncomeTree{Cats: map[string]*Category{}},
		Expenses:  ExpenseTree{Sections: map[string]*Section{}},
		Creditors: map[string]Creditor{},
		DateCols:  map[string]int{},
		MonthCols: map[string]MonthColumns{},
		Balances: Balances{
			FreeCash: Cell{Row: 3, Col: 4},
			Total:    Cell{Row: 3, Col: 5},
		},
	}
	sc.scanDates(rows, s)
	sc.scanIncome(s)
	sc.scanExpenses(s)
	sc.scanCreditors(s)
	return s
}

func column(rows [][]string, col int) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		if col <= len(r) {
			out[i] = strings.TrimSpace(r[col-1])
		}
	}
	return out
}

// markerRow returns the 1-based row of an exact marker, or -1.
func (sc *scanner) markerRow(marker string) int {
	for i, m := range sc.markers {
		if m == marker {
			return i + 1
		}
	}
	return -1
}

func (sc *scanner) dateHeaderRow() int {
	if row := sc.markerRow(incomeRootMarker); row != -1 {
		return row
	}
	for i, m := range sc.markers {
		if sectionPattern.MatchString(m) {
			return i + 1
		}
	}
	return -1
}

func (sc *scanner) scanDates(rows [][]string, s *Schema) {
	headerRow := sc.dateHeaderRow()
	if headerRow == -1 || headerRow > len(rows) {
		sc.log.Warn().Msg("date header row not found")
		return
	}
	header := rows[headerRow-1]

	type monthRun struct {
		lastDay int
		lastCol int
	}
	runs := map[string]*monthRun{}
	var order []string

	for col := firstDateCol; col <= len(header); col++ {
		cell := strings.TrimSpace(header[col-1])
		if !datePattern.MatchString(cell) {
			continue
		}
		day, err := strconv.Atoi(cell[:2])
		if err != nil {
			continue
		}
		ym := cell[6:] + "-" + cell[3:5]
		s.DateCols[cell] = col
		run, ok := runs[ym]
		if !ok {
			run = &monthRun{}
			runs[ym] = run
			order = append(order, ym)
		}
		if day > run.lastDay {
			run.lastDay = day
		}
		run.lastCol = col
	}

	for _, ym := range order {
		run := runs[ym]
		expected := daysInMonth(ym)
		if run.lastDay != expected {
			sc.log.Warn().
				Str("month", ym).
				Int("last_day", run.lastDay).
				Int("expected", expected).
				Msg("incomplete month, boundary column omitted")
			continue
		}
		s.MonthCols[ym] = MonthColumns{BalanceCol: run.lastCol + 1, FreeCashCol: run.lastCol + 1}
	}

	if len(s.DateCols) == 0 {
		sc.log.Warn().Int("row", headerRow).Msg("no dates found in header row")
	}
}

func daysInMonth(ym string) int {
	t, err := time.Parse("2006-01", ym)
	if err != nil {
		return 0
	}
	return t.AddDate(0, 1, -1).Day()
}

func (sc *scanner) scanIncome(s *Schema) {
	root := sc.markerRow(incomeRootMarker)
	if root == -1 {
		sc.log.Warn().Msg("income root missing, income tree left empty")
		s.Income.TotalRow = -1
		return
	}
	catCode := ""
	for i := root; i < len(sc.markers); i++ {
		code := sc.markers[i]
		if strings.HasPrefix(code, totalPrefix) {
			s.Income.TotalRow = i + 1
			return
		}
		switch {
		case code != "" && !strings.Contains(code, "."):
			s.Income.Cats[code] = &Category{Name: sc.names[i], Row: i + 1, Subs: map[string]*Subcategory{}}
			catCode = code
		case catCode != "" && strings.HasPrefix(code, catCode+"."):
			s.Income.Cats[catCode].Subs[code] = &Subcategory{Name: sc.names[i], Row: i + 1}
		}
	}
	s.Income.TotalRow = root
}

func (sc *scanner) scanExpenses(s *Schema) {
	i := 0
	for i < len(sc.markers) {
		secCode := sc.markers[i]
		if !sectionPattern.MatchString(secCode) {
			i++
			continue
		}
		section := &Section{Name: sc.names[i], Row: i + 1, Cats: map[string]*Category{}}
		catCode := ""
		j := i + 1
		for j < len(sc.markers) {
			code := sc.markers[j]
			if sectionPattern.MatchString(code) {
				break
			}
			if strings.HasPrefix(code, grandTotalMarker) {
				s.Expenses.TotalRow = j + 1
				break
			}
			if strings.HasPrefix(code, totalPrefix) {
				section.TotalRow = j + 1
				break
			}
			switch {
			case code != "" && !strings.Contains(code, "."):
				section.Cats[code] = &Category{Name: sc.names[j], Row: j + 1, Subs: map[string]*Subcategory{}}
				catCode = code
			case catCode != "" && strings.HasPrefix(code, catCode+"."):
				section.Cats[catCode].Subs[code] = &Subcategory{Name: sc.names[j], Row: j + 1}
			}
			j++
		}
		s.Expenses.Sections[secCode] = section
		i = j
	}

	if len(s.Expenses.Sections) == 0 {
		sc.log.Warn().Msg("no expense sections found")
		return
	}
	if s.Expenses.TotalRow != 0 {
		return
	}
	lastRow := 0
	for _, sec := range sortedSections(s.Expenses.Sections) {
		row := sec.TotalRow
		if row == 0 {
			row = sec.Row
		}
		if row > lastRow {
			lastRow = row
		}
	}
	for k := lastRow; k < min(lastRow+3, len(sc.markers)); k++ {
		if strings.HasPrefix(sc.markers[k], grandTotalMarker) {
			s.Expenses.TotalRow = k + 1
			return
		}
	}
	s.Expenses.TotalRow = lastRow + 2
	sc.log.Warn().Int("row", s.Expenses.TotalRow).Msg("grand total row not found, using fallback")
}

func sortedSections(sections map[string]*Section) []*Section {
	out := make([]*Section, 0, len(sections))
	for _, sec := range sections {
		out = append(out, sec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Row < out[j].Row })
	return out
}

func (sc *scanner) scanCreditors(s *Schema) {
	root := sc.markerRow(creditorRootMarker)
	if root == -1 {
		sc.log.Debug().Msg("creditor root missing, creditor block left empty")
		return
	}
	end := sc.markerRow(creditorEndMarker)
	if end == -1 || end <= root {
		end = len(sc.markers) + 1
	}
	for i := root; i < end-1; i += creditorBlockRows {
		name := sc.names[i]
		if name == "" {
			continue
		}
		if _, excluded := creditorLabels[strings.ToUpper(name)]; excluded {
			continue
		}
		s.Creditors[name] = Creditor{BaseRow: i + 1}
	}
}
