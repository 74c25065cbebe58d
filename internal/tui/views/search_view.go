package views

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/inbox/internal/inboxv1"
	"github.com/matheus3301/inbox/internal/tui/ui"
)

// SearchView lists chats whose name or messages match a query.
type SearchView struct {
	*tview.Flex
	theme   *ui.Theme
	input   *tview.InputField
	results *tview.Table
	onQuery func(query string)
	query   string
	data    []*inboxv1.Chat
}

// NewSearchView creates a new search view.
func NewSearchView(theme *ui.Theme) *SearchView {
	input := tview.NewInputField().
		SetLabel(" Search: ").
		SetFieldWidth(0)
	input.SetBorderColor(theme.BorderColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)

	results := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	results.SetBorder(true)
	results.SetBorderColor(theme.BorderColor)
	results.SetBackgroundColor(theme.BgColor)
	results.SetTitle(" Results ")
	results.SetTitleColor(theme.TitleColor)
	results.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(input, 1, 0, true).
		AddItem(results, 0, 1, false)

	sv := &SearchView{
		Flex:    flex,
		theme:   theme,
		input:   input,
		results: results,
	}
	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && sv.onQuery != nil {
			sv.onQuery(sv.input.GetText())
		}
	})
	return sv
}

// Name implements Component.
func (sv *SearchView) Name() string { return "Search" }

// Start implements Component.
func (sv *SearchView) Start() {}

// Stop implements Component.
func (sv *SearchView) Stop() {}

// SetOnQuery sets the callback when a search query is submitted.
func (sv *SearchView) SetOnQuery(fn func(query string)) {
	sv.onQuery = fn
}

// SetQuery fills the input without submitting it.
func (sv *SearchView) SetQuery(q string) {
	sv.input.SetText(q)
}

// Update shows the chats matching query. The snippet is the newest message
// containing the query, or the last message when only the name matched.
func (sv *SearchView) Update(query string, chats []*inboxv1.Chat) {
	sv.query = query
	sv.data = chats
	sv.results.Clear()

	headers := []string{" CHAT", " SNIPPET", " TIME"}
	for col, h := range headers {
		sv.results.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(sv.theme.TableHeaderFg).
			SetBackgroundColor(sv.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold))
	}

	for i, c := range chats {
		row := i + 1
		snippet, ts := "", c.LastActivityUnixMs
		if c.LastMessage != nil {
			snippet = c.LastMessage.Text
		}
		if m := matchingMessage(c, query); m != nil {
			snippet, ts = m.Text, m.TimestampUnixMs
		}
		sv.results.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(displayName(c)))).SetMaxWidth(25).SetTextColor(sv.theme.FgColor))
		sv.results.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(snippet))).SetExpansion(1).SetTextColor(sv.theme.FgColor))
		sv.results.SetCell(row, 2, tview.NewTableCell(" "+formatTimestamp(ts)).SetMaxWidth(12).SetTextColor(sv.theme.FgColor))
	}
	sv.results.SetTitle(" Results ")
	if query != "" {
		sv.results.SetTitle(" Results for " + tview.Escape(query) + " ")
	}
}

func matchingMessage(c *inboxv1.Chat, query string) *inboxv1.Message {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if strings.Contains(strings.ToLower(c.Messages[i].Text), q) {
			return c.Messages[i]
		}
	}
	return nil
}

// SelectedChat returns the id of the selected result.
func (sv *SearchView) SelectedChat() string {
	row, _ := sv.results.GetSelection()
	idx := row - 1
	if idx >= 0 && idx < len(sv.data) {
		return sv.data[idx].ID
	}
	return ""
}

// Input returns the search input field.
func (sv *SearchView) Input() *tview.InputField {
	return sv.input
}

// Results returns the results table.
func (sv *SearchView) Results() *tview.Table {
	return sv.results
}
