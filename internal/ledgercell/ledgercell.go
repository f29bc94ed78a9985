// Package ledgercell isolates the stringly-typed running-sum formula and
// audit-note format of a ledger cell. A cell touched by this engine holds
// either a bare value or a formula of additive terms, `=v1+v2+...+vn`, one
// term per historical mutation, and its note is a newline-separated audit
// log with one amount-tagged line per addition, in the same order as the
// formula's terms. No other package manipulates formula strings directly.
package ledgercell

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrTermNotFound indicates a removal target absent from the formula:
// already removed, or the amount does not match any additive term.
var ErrTermNotFound = errors.New("ledgercell: term not found")

// ParseTerms returns the additive terms of a formula. Terms that fail to
// parse as numbers are skipped, never aborting the caller's rollup.
func ParseTerms(formula string) []decimal.Decimal {
	var terms []decimal.Decimal
	for _, part := range splitTerms(formula) {
		if d, ok := parseNumber(part); ok {
			terms = append(terms, d)
		}
	}
	return terms
}

// TermCount returns the number of parseable additive terms.
func TermCount(formula string) int {
	return len(ParseTerms(formula))
}

// Sum evaluates a formula by summing its parseable additive terms.
func Sum(formula string) decimal.Decimal {
	total := decimal.Zero
	for _, t := range ParseTerms(formula) {
		total = total.Add(t)
	}
	return total
}

// Value interprets a rendered cell: empty and placeholder cells are zero,
// formulas are summed term-wise, anything else is parsed as a single number
// tolerating thousand spaces, currency signs and comma decimal separators.
func Value(raw string) decimal.Decimal {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "-" {
		return decimal.Zero
	}
	if strings.HasPrefix(trimmed, "=") {
		return Sum(trimmed)
	}
	if d, ok := parseNumber(trimmed); ok {
		return d
	}
	return decimal.Zero
}

// Format renders an amount the way it is written into a formula term.
func Format(amount decimal.Decimal) string {
	return amount.String()
}

// AppendTerm appends `+amount` to an accumulation formula, or starts a new
// `=amount` formula when the cell is empty.
func AppendTerm(formula string, amount decimal.Decimal) string {
	current := strings.TrimSpace(formula)
	if current == "" {
		return "=" + Format(amount)
	}
	return current + "+" + Format(amount)
}

// SetValue renders an absolute value formula, used for balance rows that
// track a running total instead of a list of independent terms.
func SetValue(amount decimal.Decimal) string {
	return "=" + Format(amount)
}

// RemoveTerm removes exactly one additive term equal to amount, matching on
// parsed values rather than raw text so `300`, `300.00` and `300,00` all
// refer to the same entry. Unparseable terms are preserved untouched.
// Returns ErrTermNotFound when no term matches.
func RemoveTerm(formula string, amount decimal.Decimal) (string, error) {
	parts := splitTerms(formula)
	for i, part := range parts {
		d, ok := parseNumber(part)
		if !ok || !d.Equal(amount) {
			continue
		}
		remaining := append(append([]string{}, parts[:i]...), parts[i+1:]...)
		if len(remaining) == 0 {
			return "", nil
		}
		return "=" + strings.Join(remaining, "+"), nil
	}
	return "", ErrTermNotFound
}

// AppendNoteLine appends one audit line to a cell note.
func AppendNoteLine(note, line string) string {
	if strings.TrimSpace(note) == "" {
		return line
	}
	return note + "\n" + line
}

// RemoveNoteLine drops the last audit line tagged with the given amount.
// Notes are append-ordered, so removal is LIFO per cell; when no line
// carries the amount the last line is dropped, keeping the line count
// paired with the formula's term count.
func RemoveNoteLine(note string, amount decimal.Decimal) string {
	if strings.TrimSpace(note) == "" {
		return ""
	}
	lines := strings.Split(note, "\n")
	target := len(lines) - 1
	for i := len(lines) - 1; i >= 0; i-- {
		if d, ok := leadingAmount(lines[i]); ok && d.Equal(amount) {
			target = i
			break
		}
	}
	lines = append(lines[:target], lines[target+1:]...)
	return strings.Join(lines, "\n")
}

// NoteLineCount returns the number of audit lines in a note.
func NoteLineCount(note string) int {
	if strings.TrimSpace(note) == "" {
		return 0
	}
	return len(strings.Split(note, "\n"))
}

func splitTerms(formula string) []string {
	trimmed := strings.TrimSpace(formula)
	trimmed = strings.TrimPrefix(trimmed, "=")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "+")
}

func leadingAmount(line string) (decimal.Decimal, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return decimal.Zero, false
	}
	return parseNumber(fields[0])
}

func parseNumber(raw string) (decimal.Decimal, bool) {
	cleaned := strings.NewReplacer(" ", "", " ", "", ",", ".", "₽", "").Replace(raw)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
