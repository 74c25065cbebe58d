package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rivo/tview"
)

// MenuHint describes a keyboard shortcut for display in the menu bar.
type MenuHint struct {
	Key         string
	Description string
	Numeric     bool // 0-9 jumps, drawn in a different color
}

// Menu lays key hints out in columns of a fixed height, k9s style.
type Menu struct {
	*tview.TextView
	theme *Theme
	rows  int
}

// NewMenu creates a menu whose columns hold at most rows hints each.
func NewMenu(theme *Theme, rows int) *Menu {
	if rows < 1 {
		rows = 1
	}
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)

	return &Menu{
		TextView: tv,
		theme:    theme,
		rows:     rows,
	}
}

// Update renders hints column by column, top to bottom.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()
	_, _ = fmt.Fprint(m, m.layout(hints))
}

func (m *Menu) layout(hints []MenuHint) string {
	cols := (len(hints) + m.rows - 1) / m.rows
	widths := make([]int, cols)
	for i, h := range hints {
		if w := utf8.RuneCountInString(h.Key) + utf8.RuneCountInString(h.Description) + 3; w > widths[i/m.rows] {
			widths[i/m.rows] = w
		}
	}

	keyColor := Hex(m.theme.MenuKeyColor)
	numColor := Hex(m.theme.NumericKeyColor)
	lines := make([]string, min(m.rows, len(hints)))
	for i, h := range hints {
		kc := keyColor
		if h.Numeric {
			kc = numColor
		}
		col := i / m.rows
		pad := widths[col] - utf8.RuneCountInString(h.Key) - utf8.RuneCountInString(h.Description) - 3
		cell := fmt.Sprintf("[%s::b]<%s>[-:-:-] %s", kc, tview.Escape(h.Key), h.Description)
		if col < cols-1 {
			cell += strings.Repeat(" ", pad+2)
		}
		lines[i%m.rows] += cell
	}
	return strings.Join(lines, "\n")
}
