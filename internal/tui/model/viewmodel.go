package model

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync"

	"github.com/matheus3301/inbox/internal/bus"
	"github.com/matheus3301/inbox/internal/inboxv1"
	"github.com/matheus3301/inbox/internal/tui/ui"
)

// ViewModel caches daemon state for the views. It never changes chat state
// itself: every mutation is a daemon command followed by a reload.
type ViewModel struct {
	mu sync.RWMutex

	inbox        inboxv1.InboxServiceClient
	Connection   *inboxv1.GetConnectionResponse
	Chats        []*inboxv1.Chat
	Timeline     *inboxv1.Chat
	ActiveChatID string
	Flash        *ui.FlashModel

	refreshCh chan struct{}
}

// NewViewModel creates a new view model connected to the daemon client.
func NewViewModel(inbox inboxv1.InboxServiceClient) *ViewModel {
	return &ViewModel{
		inbox:     inbox,
		Flash:     ui.NewFlashModel(),
		refreshCh: make(chan struct{}, 1),
	}
}

// RefreshCh returns the channel that signals UI refresh.
func (vm *ViewModel) RefreshCh() <-chan struct{} {
	return vm.refreshCh
}

func (vm *ViewModel) signalRefresh() {
	select {
	case vm.refreshCh <- struct{}{}:
	default:
	}
}

// LoadConnection fetches the daemon's connection summary.
func (vm *ViewModel) LoadConnection(ctx context.Context) error {
	resp, err := vm.inbox.GetConnection(ctx, &inboxv1.GetConnectionRequest{})
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.Connection = resp
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// LoadChats fetches the chat list, most recent first.
func (vm *ViewModel) LoadChats(ctx context.Context) error {
	resp, err := vm.inbox.ListChats(ctx, &inboxv1.ListChatsRequest{})
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.Chats = resp.Chats
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// LoadTimeline fetches the messages of the active chat.
func (vm *ViewModel) LoadTimeline(ctx context.Context) error {
	vm.mu.RLock()
	chatID := vm.ActiveChatID
	vm.mu.RUnlock()
	if chatID == "" {
		return nil
	}
	resp, err := vm.inbox.GetTimeline(ctx, &inboxv1.GetTimelineRequest{ChatID: chatID})
	if err != nil {
		return err
	}
	vm.mu.Lock()
	if vm.ActiveChatID == chatID {
		vm.Timeline = resp.Chat
	}
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// OpenChat makes chatID the daemon's open chat and loads its timeline.
func (vm *ViewModel) OpenChat(ctx context.Context, chatID string) error {
	if _, err := vm.inbox.SelectChat(ctx, &inboxv1.SelectChatRequest{ChatID: chatID}); err != nil {
		return err
	}
	vm.mu.Lock()
	vm.ActiveChatID = chatID
	vm.Timeline = nil
	vm.mu.Unlock()
	return vm.LoadTimeline(ctx)
}

// CloseChat clears the open chat on both sides.
func (vm *ViewModel) CloseChat(ctx context.Context) error {
	vm.mu.Lock()
	vm.ActiveChatID = ""
	vm.Timeline = nil
	vm.mu.Unlock()
	_, err := vm.inbox.SelectChat(ctx, &inboxv1.SelectChatRequest{})
	return err
}

// StartChat opens a conversation with a phone number and makes it active.
func (vm *ViewModel) StartChat(ctx context.Context, number string) (*inboxv1.Chat, error) {
	resp, err := vm.inbox.StartChat(ctx, &inboxv1.StartChatRequest{Number: number})
	if err != nil {
		return nil, err
	}
	// The daemon opened it already.
	vm.mu.Lock()
	vm.ActiveChatID = resp.Chat.ID
	vm.Timeline = resp.Chat
	vm.mu.Unlock()
	vm.signalRefresh()
	return resp.Chat, nil
}

// SendText sends text to the active chat. The daemon shows the message as
// pending right away; the returned message carries its temp id.
func (vm *ViewModel) SendText(ctx context.Context, text string) (*inboxv1.Message, error) {
	vm.mu.RLock()
	chatID := vm.ActiveChatID
	vm.mu.RUnlock()
	if chatID == "" {
		return nil, errors.New("no chat open")
	}
	resp, err := vm.inbox.SendMessage(ctx, &inboxv1.SendMessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		return nil, err
	}
	_ = vm.LoadTimeline(ctx)
	return resp.Message, nil
}

// RetryLastFailed resubmits the newest failed message of the active chat.
func (vm *ViewModel) RetryLastFailed(ctx context.Context) (*inboxv1.Message, error) {
	failed := vm.LastFailed()
	if failed == nil {
		return nil, errors.New("no failed message in this chat")
	}
	resp, err := vm.inbox.RetrySend(ctx, &inboxv1.RetrySendRequest{TempID: failed.TempID})
	if err != nil {
		return nil, err
	}
	_ = vm.LoadTimeline(ctx)
	return resp.Message, nil
}

// LastFailed returns the newest failed outbound message of the timeline.
func (vm *ViewModel) LastFailed() *inboxv1.Message {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.Timeline == nil {
		return nil
	}
	for i := len(vm.Timeline.Messages) - 1; i >= 0; i-- {
		m := vm.Timeline.Messages[i]
		if m.Status == "failed" && m.TempID != "" {
			return m
		}
	}
	return nil
}

// Search asks the daemon for chats matching query.
func (vm *ViewModel) Search(ctx context.Context, query string) ([]*inboxv1.Chat, error) {
	resp, err := vm.inbox.Search(ctx, &inboxv1.SearchRequest{Query: query})
	if err != nil {
		return nil, err
	}
	return resp.Chats, nil
}

// SetVisible tells the daemon whether the inbox is on screen.
func (vm *ViewModel) SetVisible(ctx context.Context, visible bool) error {
	_, err := vm.inbox.SetVisible(ctx, &inboxv1.SetVisibleRequest{Visible: visible})
	return err
}

// Refresh asks the daemon for an immediate poll.
func (vm *ViewModel) Refresh(ctx context.Context) error {
	_, err := vm.inbox.Refresh(ctx, &inboxv1.RefreshRequest{})
	return err
}

// Watch streams daemon events, reloading whatever they invalidate, and calls
// onChange after each one. It returns when ctx ends or the stream breaks.
func (vm *ViewModel) Watch(ctx context.Context, onChange func(evt *inboxv1.ChangeEvent)) error {
	stream, err := vm.inbox.WatchChanges(ctx, &inboxv1.WatchChangesRequest{})
	if err != nil {
		return err
	}
	for {
		evt, err := stream.Recv()
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
		vm.Apply(ctx, evt)
		if onChange != nil {
			onChange(evt)
		}
	}
}

// Apply reloads the state invalidated by evt.
func (vm *ViewModel) Apply(ctx context.Context, evt *inboxv1.ChangeEvent) {
	switch evt.Kind {
	case bus.KindStoreChanged:
		_ = vm.LoadChats(ctx)
		if vm.touchesActive(evt.ChatIDs) {
			_ = vm.LoadTimeline(ctx)
		}
	case bus.KindViewReveal:
		if vm.touchesActive(evt.ChatIDs) {
			_ = vm.LoadTimeline(ctx)
		}
	case bus.KindConnState, bus.KindReachability:
		_ = vm.LoadConnection(ctx)
	case bus.KindPollFailed:
		vm.Flash.Warn("Refresh failed: " + evt.Reason)
	case bus.KindSendFailed:
		vm.Flash.Warn("Send failed: " + evt.Reason + " (r to retry)")
		if vm.touchesActive(evt.ChatIDs) {
			_ = vm.LoadTimeline(ctx)
		}
	case bus.KindLateAck:
		vm.Flash.Info("A timed out message was delivered after all")
	}
}

func (vm *ViewModel) touchesActive(chatIDs []string) bool {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.ActiveChatID != "" && slices.Contains(chatIDs, vm.ActiveChatID)
}

// GetChats returns a snapshot of the current chat list.
func (vm *ViewModel) GetChats() []*inboxv1.Chat {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.Chats
}

// GetTimeline returns the open chat with its messages, or nil.
func (vm *ViewModel) GetTimeline() *inboxv1.Chat {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.Timeline
}

// GetConnection returns a snapshot of the connection summary.
func (vm *ViewModel) GetConnection() *inboxv1.GetConnectionResponse {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.Connection
}

// ActiveChat returns the id of the open chat.
func (vm *ViewModel) ActiveChat() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.ActiveChatID
}
