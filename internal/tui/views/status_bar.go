package views

import (
	"fmt"
	"time"

	"github.com/rivo/tview"

	"github.com/matheus3301/inbox/internal/inboxv1"
	"github.com/matheus3301/inbox/internal/tui/ui"
)

// StatusBar displays the connection state, backend reachability and the
// current flash message.
type StatusBar struct {
	*tview.TextView
	theme   *ui.Theme
	session string
	conn    *inboxv1.GetConnectionResponse
	flash   *ui.FlashMessage
}

// NewStatusBar creates a new status bar.
func NewStatusBar(theme *ui.Theme) *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv, theme: theme}
}

// SetSession updates the session name display.
func (sb *StatusBar) SetSession(name string) {
	sb.session = name
	sb.render()
}

// SetConnection updates the connection display.
func (sb *StatusBar) SetConnection(conn *inboxv1.GetConnectionResponse) {
	sb.conn = conn
	sb.render()
}

// SetFlash sets a temporary message. nil clears it.
func (sb *StatusBar) SetFlash(msg *ui.FlashMessage) {
	sb.flash = msg
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()

	state, reach := "…", ""
	if sb.conn != nil {
		state = fmt.Sprintf("[%s]%s[-]", ui.Hex(sb.theme.StateColor(sb.conn.State)), sb.conn.State)
		if sb.conn.Reachable {
			reach = fmt.Sprintf("[%s]backend ok[-]", ui.Hex(sb.theme.StateLiveColor))
		} else {
			reach = fmt.Sprintf("[%s]backend unreachable[-]", ui.Hex(sb.theme.StateDownColor))
		}
	}

	clock := time.Now().Format("15:04")
	line := fmt.Sprintf(" [::b]%s[-:-:-] | %s", tview.Escape(sb.session), state)
	if reach != "" {
		line += " | " + reach
	}
	line += " | " + clock

	if sb.flash != nil {
		line += fmt.Sprintf(" | [%s]%s[-]", ui.Hex(sb.theme.FlashColor(sb.flash.Level)), tview.Escape(sb.flash.Text))
	}

	_, _ = fmt.Fprint(sb, line)
}
