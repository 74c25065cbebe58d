package views

import (
	"testing"

	"github.com/matheus3301/inbox/internal/inboxv1"
	"github.com/matheus3301/inbox/internal/tui/ui"
)

func TestSanitizeForTerminal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello"},
		{"newlines", "line one\nline two\r", "line one line two "},
		{"zwj", "a\u200db", "ab"},
		{"skin tone", "\U0001F44D\U0001F3FD", "\U0001F44D"},
		{"variation selector", "\u2764\ufe0f", "\u2764"},
		{"control", "bell\x07", "bell"},
		{"tab kept", "a\tb", "a\tb"},
		{"invalid utf8", "a\xffb", "a?b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeForTerminal(tt.in); got != tt.want {
				t.Errorf("sanitizeForTerminal(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestConversationListFilter(t *testing.T) {
	cl := NewConversationList(ui.DefaultTheme())
	cl.Update([]*inboxv1.Chat{
		{ID: "5511999990001", Name: "Ana", LastMessage: &inboxv1.Message{Text: "lunch?"}},
		{ID: "5511999990002", Name: "Bruno", LastMessage: &inboxv1.Message{Text: "see you"}},
		{ID: "5511999990003"},
	})

	if got := cl.ChatByIndex(2); got != "5511999990002" {
		t.Errorf("ChatByIndex(2) = %q", got)
	}
	if got := cl.ChatByIndex(4); got != "" {
		t.Errorf("ChatByIndex(4) = %q, want empty", got)
	}

	cl.SetFilter("LUNCH")
	if got := cl.ChatByIndex(1); got != "5511999990001" {
		t.Errorf("filtered ChatByIndex(1) = %q", got)
	}
	if got := cl.ChatByIndex(2); got != "" {
		t.Errorf("filter should leave one row, got %q at 2", got)
	}

	cl.SetFilter("0003")
	if got := cl.ChatByIndex(1); got != "5511999990003" {
		t.Errorf("unnamed chats match on id, got %q", got)
	}

	cl.ClearFilter()
	if cl.Filter() != "" || cl.ChatByIndex(3) != "5511999990003" {
		t.Error("ClearFilter should restore every row")
	}
}

func TestStatusIcon(t *testing.T) {
	for status, want := range map[string]string{"pending": "…", "sent": "✓", "delivered": "✓✓", "failed": "!", "": ""} {
		if got := statusIcon(status); got != want {
			t.Errorf("statusIcon(%q) = %q, want %q", status, got, want)
		}
	}
}
