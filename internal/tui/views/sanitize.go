package views

import (
	"strings"
	"time"
	"unicode"
)

// joinerRunes are codepoints that combine with their neighbour into one
// glyph. tcell renders such sequences with the wrong width, so they are
// stripped: skin tone modifiers, the zero width joiner and variation selectors.
var joinerRunes = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x200d, Hi: 0x200d, Stride: 1},
		{Lo: 0xfe00, Hi: 0xfe0f, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x1f3fb, Hi: 0x1f3ff, Stride: 1},
		{Lo: 0xe0100, Hi: 0xe01ef, Stride: 1},
	},
}

// sanitize prepares user supplied text for a tview cell or text view.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.Is(joinerRunes, r) {
			return -1
		}
		return r
	}, s)
}

// formatTime renders t relative to now: a clock for today, a date otherwise.
func formatTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.Local()
	if y, d := now.Year(), now.YearDay(); t.Year() == y && t.YearDay() == d {
		return t.Format("15:04")
	}
	return t.Format("01/02 15:04")
}
