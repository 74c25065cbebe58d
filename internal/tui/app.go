package tui

import (
	"context"
	"strconv"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/matheus3301/inbox/internal/inboxv1"
	"github.com/matheus3301/inbox/internal/tui/keys"
	"github.com/matheus3301/inbox/internal/tui/model"
	"github.com/matheus3301/inbox/internal/tui/ui"
	"github.com/matheus3301/inbox/internal/tui/views"
)

const (
	pageChats   = "chats"
	pageChat    = "chat"
	pageDetails = "details"
	pageSearch  = "search"
	pageHelp    = "help"
)

// App is the main TUI application shell.
type App struct {
	app       *tview.Application
	theme     *ui.Theme
	pages     *ui.Pages
	root      *tview.Flex
	vm        *model.ViewModel
	registry  *keys.Registry
	logger    *zap.Logger
	session   string
	info      *ui.SessionInfo
	menu      *ui.Menu
	logo      *ui.Logo
	crumbs    *ui.Crumbs
	prompt    *ui.Prompt
	statusBar *views.StatusBar
	chatList  *views.ConversationList
	thread    *views.MessageThread
	details   *views.ConversationInfo
	searchV   *views.SearchView
	help      *views.HelpView
	promptOn  bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(inbox inboxv1.InboxServiceClient, sessionName string, logger *zap.Logger) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:       tview.NewApplication(),
		theme:     theme,
		pages:     ui.NewPages(),
		vm:        model.NewViewModel(inbox),
		registry:  keys.NewRegistry(),
		logger:    logger,
		session:   sessionName,
		info:      ui.NewSessionInfo(theme),
		menu:      ui.NewMenu(theme, 6),
		logo:      ui.NewLogo(theme),
		crumbs:    ui.NewCrumbs(theme),
		prompt:    ui.NewPrompt(theme),
		statusBar: views.NewStatusBar(theme),
		chatList:  views.NewConversationList(theme),
		thread:    views.NewMessageThread(theme),
		details:   views.NewConversationInfo(theme),
		searchV:   views.NewSearchView(theme),
		help:      views.NewHelpView(theme),
		ctx:       ctx,
		cancel:    cancel,
	}

	a.statusBar.SetSession(sessionName)
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal("quit", &keys.Action{
		Rune: 'q', Key: tcell.KeyRune,
		Description: "Quit/Back", Visible: true,
		Handler: a.back,
	})
	a.registry.AddGlobal("help", &keys.Action{
		Rune: '?', Key: tcell.KeyRune,
		Description: "Help", Visible: true,
		Handler: func() { a.push(pageHelp, a.help) },
	})
	a.registry.AddGlobal("command", &keys.Action{
		Rune: ':', Key: tcell.KeyRune,
		Description: "Command", Visible: true,
		Handler: func() { a.showPrompt(ui.PromptCommand) },
	})

	a.registry.AddView(pageChats, "filter", &keys.Action{
		Rune: '/', Key: tcell.KeyRune,
		Description: "Filter", Visible: true,
		Handler: func() { a.showPrompt(ui.PromptFilter) },
	})
	a.registry.AddView(pageChats, "search", &keys.Action{
		Rune: 's', Key: tcell.KeyRune,
		Description: "Search", Visible: true,
		Handler: a.showSearch,
	})
	a.registry.AddView(pageChats, "new", &keys.Action{
		Rune: 'n', Key: tcell.KeyRune,
		Description: "New chat", Visible: true,
		Handler: func() { a.showPrompt(ui.PromptNewChat) },
	})
	a.registry.AddView(pageChats, "refresh", &keys.Action{
		Rune: 'R', Key: tcell.KeyRune,
		Description: "Refresh", Visible: true,
		Handler: a.refresh,
	})
	for i := 0; i <= 9; i++ {
		n := i
		a.registry.AddView(pageChats, "jump"+strconv.Itoa(n), &keys.Action{
			Rune: rune('0' + n), Key: tcell.KeyRune,
			Handler: func() {
				if n == 0 {
					a.chatList.ClearFilter()
					return
				}
				if id := a.chatList.ChatByIndex(n); id != "" {
					a.openChat(id)
				}
			},
		})
	}

	a.registry.AddView(pageChat, "compose", &keys.Action{
		Rune: 'i', Key: tcell.KeyRune,
		Description: "Compose", Visible: true,
		Handler: func() { a.app.SetFocus(a.thread.Composer()) },
	})
	a.registry.AddView(pageChat, "retry", &keys.Action{
		Rune: 'r', Key: tcell.KeyRune,
		Description: "Retry failed", Visible: true,
		Handler: a.retry,
	})
	a.registry.AddView(pageChat, "details", &keys.Action{
		Rune: 'd', Key: tcell.KeyRune,
		Description: "Details", Visible: true,
		Handler: func() {
			a.details.Update(a.vm.GetTimeline())
			a.push(pageDetails, a.details)
		},
	})
}

func (a *App) setupCallbacks() {
	a.chatList.SetSelectedFunc(func(row, col int) {
		if id := a.chatList.SelectedChat(); id != "" {
			a.openChat(id)
		}
	})

	a.thread.SetOnSend(func(text string) {
		go func() {
			if _, err := a.vm.SendText(a.ctx, text); err != nil {
				a.vm.Flash.Err(err)
			}
			a.redraw()
		}()
	})

	a.searchV.SetOnQuery(func(query string) {
		go func() {
			results, err := a.vm.Search(a.ctx, query)
			if err != nil {
				a.vm.Flash.Err(err)
				a.redraw()
				return
			}
			a.app.QueueUpdateDraw(func() {
				a.searchV.Update(query, results)
				a.app.SetFocus(a.searchV.Results())
			})
		}()
	})
	a.searchV.Results().SetSelectedFunc(func(row, col int) {
		if id := a.searchV.SelectedChat(); id != "" {
			a.openChat(id)
		}
	})

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptFilter:
			a.chatList.SetFilter(text)
		case ui.PromptCommand:
			a.runCommand(ParseCommand(text))
		case ui.PromptNewChat:
			a.startChat(text)
		}
	})
	a.prompt.SetOnCancel(a.hidePrompt)

	a.pages.SetOnChange(func(stack []string) {
		a.crumbs.Update(a.trail())
		a.menu.Update(a.registry.Hints(a.pages.Current()))
	})
}

func (a *App) setupLayout() {
	a.pages.Add(pageChats, a.chatList)
	a.pages.Add(pageChat, a.thread)
	a.pages.Add(pageDetails, a.details)
	a.pages.Add(pageSearch, a.searchV)
	a.pages.Add(pageHelp, a.help)

	header := tview.NewFlex().
		AddItem(a.info, 0, 2, false).
		AddItem(a.menu, 0, 2, false).
		AddItem(a.logo, 18, 0, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 7, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.statusBar, 1, 0, false)

	a.pages.Reset(pageChats)
	a.app.SetRoot(a.root, true)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		current := a.pages.Current()

		if event.Key() == tcell.KeyEscape && !a.promptOn {
			if a.app.GetFocus() == a.thread.Composer() {
				a.app.SetFocus(a.thread.Messages())
				return nil
			}
			if a.pages.Depth() > 1 {
				a.back()
				return nil
			}
		}

		// Let text input widgets handle all keys normally.
		if _, ok := a.app.GetFocus().(*tview.InputField); ok {
			return event
		}

		if a.registry.HandleEvent(current, event) {
			return nil
		}
		return event
	})
}

func (a *App) push(name string, focus tview.Primitive) {
	a.pages.Push(name)
	a.app.SetFocus(focus)
}

// trail labels the page stack for the breadcrumb bar; the chat list crumb
// carries the unread total.
func (a *App) trail() []ui.Crumb {
	labels := a.pages.Labels()
	trail := make([]ui.Crumb, len(labels))
	for i, l := range labels {
		trail[i] = ui.Crumb{Label: l}
	}
	if len(trail) > 0 {
		for _, c := range a.vm.GetChats() {
			trail[0].Badge += c.UnreadCount
		}
	}
	return trail
}

// back pops the current page; on the chat list it quits.
func (a *App) back() {
	if a.pages.Depth() <= 1 {
		a.Stop()
		return
	}
	if a.pages.Pop() == pageChat {
		go func() { _ = a.vm.CloseChat(a.ctx) }()
	}
	switch a.pages.Current() {
	case pageChats:
		a.app.SetFocus(a.chatList)
	case pageChat:
		a.app.SetFocus(a.thread.Messages())
	case pageSearch:
		a.app.SetFocus(a.searchV.Results())
	}
}

func (a *App) showPrompt(mode ui.PromptMode) {
	if a.promptOn {
		return
	}
	a.promptOn = true
	a.prompt.Activate(mode)
	a.root.AddItem(a.prompt, 3, 0, false)
	a.root.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	if !a.promptOn {
		return
	}
	a.promptOn = false
	a.root.RemoveItem(a.prompt)
	switch a.pages.Current() {
	case pageChat:
		a.app.SetFocus(a.thread.Messages())
	case pageSearch:
		a.app.SetFocus(a.searchV.Input())
	default:
		a.app.SetFocus(a.chatList)
	}
}

func (a *App) runCommand(cmd Command) {
	cmd, err := cmd.Resolve()
	if err != nil {
		a.vm.Flash.Warn(err.Error())
		return
	}
	switch cmd.Name {
	case "search":
		a.showSearch()
		a.searchV.SetQuery(cmd.Args)
		go func() {
			results, err := a.vm.Search(a.ctx, cmd.Args)
			if err != nil {
				a.vm.Flash.Err(err)
				a.redraw()
				return
			}
			a.app.QueueUpdateDraw(func() { a.searchV.Update(cmd.Args, results) })
		}()
	case "chat":
		a.chatList.SetFilter(cmd.Args)
		if id := a.chatList.ChatByIndex(1); id != "" {
			a.openChat(id)
		} else {
			a.vm.Flash.Warn("no chat matches " + cmd.Args)
		}
	case "new":
		a.startChat(cmd.Args)
	case "retry":
		if a.pages.Current() != pageChat {
			a.vm.Flash.Warn("open a chat to retry its failed message")
			return
		}
		a.retry()
	case "refresh":
		a.refresh()
	case "help":
		a.push(pageHelp, a.help)
	case "quit":
		a.Stop()
	}
}

func (a *App) openChat(id string) {
	go func() {
		if err := a.vm.OpenChat(a.ctx, id); err != nil {
			a.vm.Flash.Err(err)
			a.redraw()
			return
		}
		a.app.QueueUpdateDraw(func() { a.showThread(a.vm.GetTimeline()) })
	}()
}

func (a *App) startChat(number string) {
	go func() {
		chat, err := a.vm.StartChat(a.ctx, number)
		if err != nil {
			a.vm.Flash.Err(err)
			a.redraw()
			return
		}
		a.app.QueueUpdateDraw(func() { a.showThread(chat) })
	}()
}

func (a *App) showThread(chat *inboxv1.Chat) {
	if chat == nil {
		return
	}
	if a.pages.Current() != pageChat {
		// Details and search may sit above an older thread; drop back to the list first.
		a.pages.PopTo(pageChats)
	}
	name := chat.Name
	if name == "" {
		name = chat.ID
	}
	a.thread.SetChat(chat.ID, name)
	a.thread.Update(chat)
	a.push(pageChat, a.thread.Messages())
	a.crumbs.Update(a.trail())
}

func (a *App) showSearch() {
	a.push(pageSearch, a.searchV.Input())
}

func (a *App) retry() {
	go func() {
		if _, err := a.vm.RetryLastFailed(a.ctx); err != nil {
			a.vm.Flash.Warn(err.Error())
		} else {
			a.vm.Flash.Info("Retrying message")
		}
		a.redraw()
	}()
}

func (a *App) refresh() {
	go func() {
		if err := a.vm.Refresh(a.ctx); err != nil {
			a.vm.Flash.Err(err)
		} else {
			a.vm.Flash.Info("Refreshing")
		}
		a.redraw()
	}()
}

// redraw copies view model state into the widgets.
func (a *App) redraw() {
	a.app.QueueUpdateDraw(a.render)
}

func (a *App) render() {
	a.chatList.Update(a.vm.GetChats())
	if a.pages.Current() == pageChat {
		a.thread.Update(a.vm.GetTimeline())
	}
	if a.pages.Current() == pageDetails {
		a.details.Update(a.vm.GetTimeline())
	}
	conn := a.vm.GetConnection()
	a.statusBar.SetConnection(conn)
	a.statusBar.SetFlash(a.vm.Flash.GetMessage())
	if conn != nil {
		var unread int32
		for _, c := range a.vm.GetChats() {
			unread += c.UnreadCount
		}
		a.info.Update(&ui.SessionData{
			Session:   conn.Session,
			Backend:   conn.BackendURL,
			State:     conn.State,
			Reachable: conn.Reachable,
			ChatCount: conn.ChatCount,
			Unread:    unread,
			Uptime:    time.Duration(conn.UptimeMs) * time.Millisecond,
		})
	}
	a.crumbs.Update(a.trail())
	a.menu.Update(a.registry.Hints(a.pages.Current()))
}

// Run starts the TUI application. The daemon polls on its own cadence only
// while the TUI reports itself visible.
func (a *App) Run() error {
	go func() {
		if err := a.vm.SetVisible(a.ctx, true); err != nil {
			a.logger.Warn("set visible failed", zap.Error(err))
		}
		_ = a.vm.LoadConnection(a.ctx)
		if err := a.vm.LoadChats(a.ctx); err != nil {
			a.vm.Flash.Err(err)
		}
		a.redraw()

		go a.watch()
		go a.tick()
	}()

	err := a.app.Run()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if verr := a.vm.SetVisible(ctx, false); verr != nil {
		a.logger.Warn("set hidden failed", zap.Error(verr))
	}
	a.cancel()
	return err
}

// watch follows the daemon event stream, reconnecting after failures.
func (a *App) watch() {
	for {
		err := a.vm.Watch(a.ctx, func(*inboxv1.ChangeEvent) { a.redraw() })
		if a.ctx.Err() != nil {
			return
		}
		a.logger.Warn("event stream ended", zap.Error(err))
		a.vm.Flash.Warn("Lost daemon event stream, reconnecting")
		a.redraw()
		select {
		case <-a.ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
		if a.vm.LoadConnection(a.ctx) == nil {
			a.vm.Flash.Clear()
		}
		_ = a.vm.LoadChats(a.ctx)
		_ = a.vm.LoadTimeline(a.ctx)
	}
}

// tick refreshes the clock, uptime and expiring flash messages.
func (a *App) tick() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = a.vm.LoadConnection(a.ctx)
			a.redraw()
		case <-a.vm.Flash.Watch():
			a.redraw()
		case <-a.ctx.Done():
			return
		}
	}
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.app.Stop()
}
