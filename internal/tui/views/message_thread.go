package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/inbox/internal/inboxv1"
	"github.com/matheus3301/inbox/internal/tui/ui"
)

// MessageThread displays messages and a composer for a single chat.
type MessageThread struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	composer *tview.InputField
	chatName string
	chatID   string
	onSend   func(text string)
}

// NewMessageThread creates a new message thread view.
func NewMessageThread(theme *ui.Theme) *MessageThread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitle(" Messages ")
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Compose (i to focus) ")
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(composer, 3, 0, false)

	mt := &MessageThread{
		Flex:     flex,
		theme:    theme,
		messages: messages,
		composer: composer,
	}

	composer.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && mt.onSend != nil {
			text := composer.GetText()
			if text != "" {
				mt.onSend(text)
				composer.SetText("")
			}
		}
	})

	return mt
}

// Name implements Component.
func (mt *MessageThread) Name() string {
	if mt.chatName != "" {
		return mt.chatName
	}
	return "Messages"
}

// Start implements Component.
func (mt *MessageThread) Start() {}

// Stop drops the draft and the rendered timeline so the next chat starts
// clean.
func (mt *MessageThread) Stop() {
	mt.composer.SetText("")
	mt.messages.Clear()
}

// SetChat updates the chat shown in the title.
func (mt *MessageThread) SetChat(id, name string) {
	mt.chatID = id
	mt.chatName = name
	mt.messages.SetTitle(fmt.Sprintf(" %s ", tview.Escape(sanitizeForTerminal(name))))
}

// ChatID returns the current chat id.
func (mt *MessageThread) ChatID() string {
	return mt.chatID
}

// SetOnSend sets the callback when a message is sent.
func (mt *MessageThread) SetOnSend(fn func(text string)) {
	mt.onSend = fn
}

// Update renders the timeline, oldest first.
func (mt *MessageThread) Update(chat *inboxv1.Chat) {
	mt.messages.Clear()
	if chat == nil {
		return
	}
	for _, m := range chat.Messages {
		_, _ = fmt.Fprint(mt.messages, mt.line(chat, m))
	}
	mt.messages.ScrollToEnd()
}

func (mt *MessageThread) line(chat *inboxv1.Chat, m *inboxv1.Message) string {
	sender := displayName(chat)
	trailer := ""
	if m.Direction == "outbound" {
		sender = "You"
		if m.Status == "failed" {
			reason := m.Error
			if reason == "" {
				reason = "not sent"
			}
			trailer = fmt.Sprintf(" [%s]! %s (r to retry)[-]", ui.Hex(mt.theme.StatusColor(m.Status)), tview.Escape(reason))
		} else {
			trailer = fmt.Sprintf(" [%s]%s[-]", ui.Hex(mt.theme.StatusColor(m.Status)), statusIcon(m.Status))
		}
	}
	return fmt.Sprintf("[::b]%s[-:-:-] [::d]%s[-:-:-]%s\n%s\n\n",
		tview.Escape(sanitizeForTerminal(sender)), formatTimestamp(m.TimestampUnixMs), trailer,
		tview.Escape(sanitizeForTerminal(m.Text)))
}

// Messages returns the messages text view (for focus management).
func (mt *MessageThread) Messages() *tview.TextView {
	return mt.messages
}

// Composer returns the composer input field (for focus management).
func (mt *MessageThread) Composer() *tview.InputField {
	return mt.composer
}
