package sheet

import "fmt"

// A1 converts a 1-based (row, col) pair to spreadsheet A1 notation.
func A1(row, col int) string {
	letters := ""
	for col > 0 {
		col--
		letters = string(rune('A'+col%26)) + letters
		col /= 26
	}
	return fmt.Sprintf("%s%d", letters, row)
}
