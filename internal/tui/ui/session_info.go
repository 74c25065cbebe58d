package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// SessionData holds session information for display.
type SessionData struct {
	Session   string
	Backend   string
	State     string
	Reachable bool
	ChatCount int32
	Unread    int32
	Uptime    time.Duration
}

// SessionInfo displays session metadata in the header.
type SessionInfo struct {
	*tview.TextView
	theme *Theme
}

// NewSessionInfo creates a new session info panel.
func NewSessionInfo(theme *Theme) *SessionInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &SessionInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the session info.
func (si *SessionInfo) Update(data *SessionData) {
	si.Clear()
	if data == nil {
		return
	}

	fgColor := Hex(si.theme.FgColor)
	counterColor := Hex(si.theme.CounterColor)

	backend := data.Backend
	if backend == "" {
		backend = "-"
	}
	reach := "no"
	if data.Reachable {
		reach = "yes"
	}

	text := fmt.Sprintf(
		"[%s::b]Session:[-:-:-] [%s]%s[-]\n"+
			"[%s::b]Backend:[-:-:-] [%s]%s[-]\n"+
			"[%s::b]Push:[-:-:-]    [%s]%s[-]\n"+
			"[%s::b]Online:[-:-:-]  [%s]%s[-]\n"+
			"[%s::b]Chats:[-:-:-]   [%s]%d (%d unread)[-]\n"+
			"[%s::b]Uptime:[-:-:-]  [%s]%s[-]",
		fgColor, counterColor, tview.Escape(data.Session),
		fgColor, counterColor, tview.Escape(backend),
		fgColor, Hex(si.theme.StateColor(data.State)), data.State,
		fgColor, counterColor, reach,
		fgColor, counterColor, data.ChatCount, data.Unread,
		fgColor, counterColor, formatDuration(data.Uptime),
	)

	_, _ = fmt.Fprint(si, text)
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
