package views

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/matheus3301/inbox/internal/inboxv1"
	"github.com/matheus3301/inbox/internal/tui/ui"
)

// ConversationInfo displays detailed information about a conversation.
type ConversationInfo struct {
	*tview.TextView
	theme *ui.Theme
}

// NewConversationInfo creates a new conversation info view.
func NewConversationInfo(theme *ui.Theme) *ConversationInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Conversation Details ")
	tv.SetTitleColor(theme.TitleColor)

	return &ConversationInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements Component.
func (ci *ConversationInfo) Name() string { return "Details" }

// Start implements Component.
func (ci *ConversationInfo) Start() {}

// Stop implements Component.
func (ci *ConversationInfo) Stop() {}

// Update renders conversation details and per-status message counts.
func (ci *ConversationInfo) Update(chat *inboxv1.Chat) {
	ci.Clear()
	if chat == nil {
		return
	}

	fg := ui.Hex(ci.theme.FgColor)
	ct := ui.Hex(ci.theme.CounterColor)

	lastActive := formatTimestamp(chat.LastActivityUnixMs)
	if lastActive == "" {
		lastActive = "-"
	}

	counts := map[string]int{}
	for _, m := range chat.Messages {
		counts[m.Direction+"/"+m.Status]++
	}

	text := fmt.Sprintf(
		"\n [%s::b]Name:[-:-:-]        [%s]%s[-]\n"+
			" [%s::b]Chat ID:[-:-:-]     [%s]%s[-]\n"+
			" [%s::b]Unread:[-:-:-]      [%s]%d[-]\n"+
			" [%s::b]Last Active:[-:-:-] [%s]%s[-]\n"+
			" [%s::b]Messages:[-:-:-]    [%s]%d[-]\n"+
			" [%s::b]Pending:[-:-:-]     [%s]%d[-]\n"+
			" [%s::b]Failed:[-:-:-]      [%s]%d[-]",
		fg, ct, tview.Escape(sanitizeForTerminal(displayName(chat))),
		fg, ct, tview.Escape(chat.ID),
		fg, ct, chat.UnreadCount,
		fg, ct, lastActive,
		fg, ct, len(chat.Messages),
		fg, ct, counts["outbound/pending"],
		fg, ct, counts["outbound/failed"],
	)

	_, _ = fmt.Fprint(ci, text)
	ci.SetTitle(fmt.Sprintf(" %s Details ", tview.Escape(sanitizeForTerminal(displayName(chat)))))
}
