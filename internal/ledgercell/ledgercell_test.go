package ledgercell

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestParseTerms(t *testing.T) {
	tests := []struct {
		name    string
		formula string
		want    []string
	}{
		{"empty", "", nil},
		{"single", "=300", []string{"300"}},
		{"multiple", "=300+49.9+12", []string{"300", "49.9", "12"}},
		{"comma decimal", "=300,50+7", []string{"300.5", "7"}},
		{"skips garbage", "=300+abc+50", []string{"300", "50"}},
		{"no equals sign", "100+200", []string{"100", "200"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTerms(tt.formula)
			require.Len(t, got, len(tt.want))
			for i, w := range tt.want {
				require.True(t, got[i].Equal(dec(w)), "term %d: got %s want %s", i, got[i], w)
			}
		})
	}
}

func TestValue(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"", "0"},
		{"-", "0"},
		{"1000", "1000"},
		{"1 000,50", "1000.5"},
		{"250₽", "250"},
		{"=300+200", "500"},
		{"n/a", "0"},
	}
	for _, tt := range tests {
		require.True(t, Value(tt.raw).Equal(dec(tt.want)), "Value(%q)", tt.raw)
	}
}

func TestAppendTerm(t *testing.T) {
	require.Equal(t, "=300", AppendTerm("", dec("300")))
	require.Equal(t, "=300+49.9", AppendTerm("=300", dec("49.9")))
	require.Equal(t, "=300+49.9+12", AppendTerm("=300+49.9", dec("12")))
}

func TestRemoveTerm(t *testing.T) {
	t.Run("first matching occurrence only", func(t *testing.T) {
		got, err := RemoveTerm("=300+50+300", dec("300"))
		require.NoError(t, err)
		require.Equal(t, "=50+300", got)
	})

	t.Run("matches on value not text", func(t *testing.T) {
		got, err := RemoveTerm("=300,50+7", dec("300.5"))
		require.NoError(t, err)
		require.Equal(t, "=7", got)
	})

	t.Run("last term removed clears the cell", func(t *testing.T) {
		got, err := RemoveTerm("=300", dec("300"))
		require.NoError(t, err)
		require.Equal(t, "", got)
	})

	t.Run("missing term", func(t *testing.T) {
		_, err := RemoveTerm("=300+50", dec("99"))
		require.ErrorIs(t, err, ErrTermNotFound)
	})

	t.Run("preserves unparseable terms", func(t *testing.T) {
		got, err := RemoveTerm("=300+SUM(A1:A2)+50", dec("50"))
		require.NoError(t, err)
		require.Equal(t, "=300+SUM(A1:A2)", got)
	})
}

func TestNoteRoundTrip(t *testing.T) {
	formula := AppendTerm("", dec("300"))
	note := AppendNoteLine("", "300.00 milk")
	formula = AppendTerm(formula, dec("49.9"))
	note = AppendNoteLine(note, "49.90 bread")

	require.Equal(t, "=300+49.9", formula)
	require.Equal(t, 2, NoteLineCount(note))

	var err error
	formula, err = RemoveTerm(formula, dec("49.9"))
	require.NoError(t, err)
	note = RemoveNoteLine(note, dec("49.9"))

	require.Equal(t, "=300", formula)
	require.Equal(t, "300.00 milk", note)

	formula, err = RemoveTerm(formula, dec("300"))
	require.NoError(t, err)
	note = RemoveNoteLine(note, dec("300"))
	require.Equal(t, "", formula)
	require.Equal(t, 0, NoteLineCount(note))
}

func TestRemoveNoteLine(t *testing.T) {
	t.Run("removes last line with matching amount", func(t *testing.T) {
		note := "300.00 milk\n50.00 coffee\n300.00 cheese"
		require.Equal(t, "300.00 milk\n50.00 coffee", RemoveNoteLine(note, dec("300")))
	})

	t.Run("falls back to last line", func(t *testing.T) {
		note := "300.00 milk\n50.00 coffee"
		require.Equal(t, "300.00 milk", RemoveNoteLine(note, dec("99")))
	})

	t.Run("empty note stays empty", func(t *testing.T) {
		require.Equal(t, "", RemoveNoteLine("", dec("1")))
	})
}

func TestSetValue(t *testing.T) {
	require.Equal(t, "=1500", SetValue(dec("1500")))
	require.Equal(t, "=1000.5", SetValue(dec("1000.50")))
}
