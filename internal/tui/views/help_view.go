package views

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/matheus3301/inbox/internal/tui/ui"
)

// HelpView displays key binding reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	hv.render()
	return hv
}

// Name implements Component.
func (hv *HelpView) Name() string { return "Help" }

// Start implements Component.
func (hv *HelpView) Start() {}

// Stop implements Component.
func (hv *HelpView) Stop() {}

func (hv *HelpView) render() {
	kc := ui.Hex(hv.theme.MenuKeyColor)
	key := func(k string) string { return fmt.Sprintf("[%s]%s[-:-:-]", kc, tview.Escape(k)) }

	help := fmt.Sprintf(`
  [::b]Global Keys[-:-:-]

  %-24s Command mode       %-24s Cancel / Go back
  %-24s Filter mode        %-24s Help
  %-24s Quit / Back        %-24s Quit immediately

  [::b]Conversation List[-:-:-]

  %-24s Open conversation  %-24s Show all (clear filter)
  %-24s Jump to Nth chat   %-24s New chat by number
  %-24s Refresh now        %-24s Search messages

  [::b]Message Thread[-:-:-]

  %-24s Focus composer     %-24s Show conversation details
  %-24s Exit composer      %-24s Send message (in composer)
  %-24s Retry last failed message

  [::b]Commands (: mode)[-:-:-]

  %s    Search chats and messages
  %s       Open chat by name
  %s     Start a chat with a phone number
  %s              Retry last failed message
  %s            Poll the backend now
  %s / %s       Show this help
  %s / %s       Quit application
`,
		key(":"), key("Esc"),
		key("/"), key("?"),
		key("q"), key("Ctrl-C"),
		key("Enter"), key("0"),
		key("1-9"), key("n"),
		key("R"), key("s"),
		key("i"), key("d"),
		key("Esc"), key("Enter"),
		key("r"),
		key(":search <query>"),
		key(":chat <name>"),
		key(":new <number>"),
		key(":retry"),
		key(":refresh"),
		key(":help"), key(":h"),
		key(":quit"), key(":q"),
	)

	_, _ = fmt.Fprint(hv, help)
}
