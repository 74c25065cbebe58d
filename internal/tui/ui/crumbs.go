package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

const maxCrumbWidth = 24

// Crumb is one step of the navigation trail. Badge is a counter shown next
// to the label (unread messages on the chat list); zero hides it.
type Crumb struct {
	Label string
	Badge int32
}

// Crumbs is a breadcrumb bar showing the current navigation path.
type Crumbs struct {
	*tview.TextView
	theme *Theme
}

// NewCrumbs creates a new breadcrumb bar.
func NewCrumbs(theme *Theme) *Crumbs {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &Crumbs{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the trail; the last crumb is the active page.
func (c *Crumbs) Update(trail []Crumb) {
	c.Clear()
	if len(trail) == 0 {
		return
	}

	parts := make([]string, 0, len(trail))
	for i, cr := range trail {
		fg, bg, attr := c.theme.CrumbInactiveFg, c.theme.CrumbInactiveBg, ""
		if i == len(trail)-1 {
			fg, bg, attr = c.theme.CrumbActiveFg, c.theme.CrumbActiveBg, "b"
		}
		text := tview.Escape(truncateLabel(cr.Label, maxCrumbWidth))
		if cr.Badge > 0 {
			text += fmt.Sprintf(" (%d)", cr.Badge)
		}
		parts = append(parts, fmt.Sprintf("[%s:%s:%s] %s [-:-:-]", Hex(fg), Hex(bg), attr, text))
	}
	_, _ = fmt.Fprint(c, strings.Join(parts, " > "))
}

func truncateLabel(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
