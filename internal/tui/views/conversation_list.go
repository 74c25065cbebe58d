package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/inbox/internal/inboxv1"
	"github.com/matheus3301/inbox/internal/tui/ui"
)

// ConversationList is the main chat list view.
type ConversationList struct {
	*tview.Table
	theme  *ui.Theme
	chats  []*inboxv1.Chat
	filter string
}

// NewConversationList creates a new conversation list table.
func NewConversationList(theme *ui.Theme) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" Conversations ")
	table.SetTitleColor(theme.TitleColor)

	return &ConversationList{
		Table: table,
		theme: theme,
	}
}

// Name implements Component.
func (cl *ConversationList) Name() string { return "Conversations" }

// Start implements Component.
func (cl *ConversationList) Start() {}

// Stop implements Component.
func (cl *ConversationList) Stop() {}

// Update refreshes the chat list with new data, keeping the cursor on the
// same chat when it is still listed.
func (cl *ConversationList) Update(chats []*inboxv1.Chat) {
	selected := cl.SelectedChat()
	cl.chats = chats
	cl.render()
	if selected == "" {
		return
	}
	for i, c := range cl.visible() {
		if c.ID == selected {
			cl.Select(i+1, 0)
			return
		}
	}
}

// SetFilter sets the active filter text and re-renders.
func (cl *ConversationList) SetFilter(filter string) {
	cl.filter = filter
	cl.render()
}

// ClearFilter clears the active filter.
func (cl *ConversationList) ClearFilter() {
	cl.filter = ""
	cl.render()
}

// Filter returns the active filter text.
func (cl *ConversationList) Filter() string { return cl.filter }

// visible returns the chats that pass the filter, in display order.
func (cl *ConversationList) visible() []*inboxv1.Chat {
	if cl.filter == "" {
		return cl.chats
	}
	q := strings.ToLower(cl.filter)
	var out []*inboxv1.Chat
	for _, c := range cl.chats {
		if strings.Contains(strings.ToLower(displayName(c)), q) ||
			(c.LastMessage != nil && strings.Contains(strings.ToLower(c.LastMessage.Text), q)) {
			out = append(out, c)
		}
	}
	return out
}

func (cl *ConversationList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" NAME", 1},
		{" LAST MESSAGE", 2},
		{" TIME", 0},
		{" NEW", 0},
	}
	for col, h := range headers {
		cell := tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp)
		cl.SetCell(0, col, cell)
	}

	rows := cl.visible()
	for i, chat := range rows {
		row := i + 1
		preview := ""
		if m := chat.LastMessage; m != nil {
			preview = m.Text
			if m.Direction == "outbound" {
				preview = statusIcon(m.Status) + " " + preview
			}
		}
		unread := ""
		if chat.UnreadCount > 0 {
			unread = fmt.Sprintf("%d", chat.UnreadCount)
		}
		nameColor := cl.theme.FgColor
		if chat.UnreadCount > 0 {
			nameColor = cl.theme.CounterColor
		}

		cl.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(displayName(chat)))).SetExpansion(1).SetTextColor(nameColor))
		cl.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(preview))).SetExpansion(2).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 2, tview.NewTableCell(formatTimestamp(chat.LastActivityUnixMs)).SetTextColor(cl.theme.FgColor).SetAlign(tview.AlignRight))
		cl.SetCell(row, 3, tview.NewTableCell(unread).SetTextColor(cl.theme.CounterColor).SetAlign(tview.AlignRight))
	}

	if cl.filter != "" {
		cl.SetTitle(fmt.Sprintf(" Conversations (%d/%d) filter: %s ", len(rows), len(cl.chats), cl.filter))
	} else {
		cl.SetTitle(fmt.Sprintf(" Conversations (%d) ", len(cl.chats)))
	}
}

// SelectedChat returns the id of the currently selected chat.
func (cl *ConversationList) SelectedChat() string {
	row, _ := cl.GetSelection()
	return cl.ChatByIndex(row)
}

// ChatByIndex returns the id of the Nth visible conversation (1-based).
func (cl *ConversationList) ChatByIndex(n int) string {
	rows := cl.visible()
	if n < 1 || n > len(rows) {
		return ""
	}
	return rows[n-1].ID
}

func displayName(c *inboxv1.Chat) string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

func statusIcon(status string) string {
	switch status {
	case "pending":
		return "…"
	case "sent":
		return "✓"
	case "delivered":
		return "✓✓"
	case "failed":
		return "!"
	}
	return ""
}

func formatTimestamp(ms int64) string {
	if ms == 0 {
		return ""
	}
	t := time.UnixMilli(ms)
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}
