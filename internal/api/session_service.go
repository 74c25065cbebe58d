// Package api implements inbox.v1.InboxService on top of the sync engine.
package api

import (
	"context"
	"time"

	"github.com/matheus3301/inbox/internal/bus"
	"github.com/matheus3301/inbox/internal/errs"
	"github.com/matheus3301/inbox/internal/inboxv1"
	"github.com/matheus3301/inbox/internal/ledger"
	"github.com/matheus3301/inbox/internal/status"
	"github.com/matheus3301/inbox/internal/store"
)

// Engine is the part of the sync engine the API drives.
type Engine interface {
	Chats() []store.Chat
	Timeline(chatID string) (store.Chat, error)
	Search(query string) []store.Chat
	SelectChat(ctx context.Context, chatID string) error
	StartChat(ctx context.Context, number string) (store.Chat, error)
	SendMessage(ctx context.Context, chatID, text string) (store.Message, error)
	Retry(ctx context.Context, tempID string) (store.Message, error)
	Refresh(ctx context.Context) error
	SetVisible(ctx context.Context, visible bool) error
	Visible() bool
	OpenChat() string
}

// Reachability reports the last backend probe result.
type Reachability interface {
	Reachable() bool
}

// SendLedger lists recorded send failures.
type SendLedger interface {
	ListFailed(ctx context.Context, limit int) ([]ledger.Send, error)
}

// Options carries the values GetConnection reports verbatim.
type Options struct {
	SessionName string
	BackendURL  string
}

// InboxService implements the InboxService gRPC service.
type InboxService struct {
	inboxv1.UnimplementedInboxServiceServer

	opts      Options
	startedAt time.Time
	engine    Engine
	machine   *status.Machine
	reach     Reachability
	sends     SendLedger
	bus       *bus.Bus
}

// NewInboxService creates the service. reach and sends may be nil.
func NewInboxService(opts Options, engine Engine, machine *status.Machine, reach Reachability, sends SendLedger, b *bus.Bus) *InboxService {
	return &InboxService{
		opts:      opts,
		startedAt: time.Now(),
		engine:    engine,
		machine:   machine,
		reach:     reach,
		sends:     sends,
		bus:       b,
	}
}

func (s *InboxService) GetConnection(_ context.Context, _ *inboxv1.GetConnectionRequest) (*inboxv1.GetConnectionResponse, error) {
	resp := &inboxv1.GetConnectionResponse{
		Session:    s.opts.SessionName,
		BackendURL: s.opts.BackendURL,
		UptimeMs:   time.Since(s.startedAt).Milliseconds(),
	}
	if s.machine != nil {
		resp.State = string(s.machine.Current())
		resp.StateSinceUnixMs = s.machine.Since().UnixMilli()
	}
	if s.reach != nil {
		resp.Reachable = s.reach.Reachable()
	}
	if s.engine != nil {
		resp.Visible = s.engine.Visible()
		resp.OpenChatID = s.engine.OpenChat()
		resp.ChatCount = int32(len(s.engine.Chats()))
	}
	if s.bus != nil {
		resp.DroppedEvents = s.bus.Dropped()
	}
	return resp, nil
}

func (s *InboxService) SetVisible(ctx context.Context, req *inboxv1.SetVisibleRequest) (*inboxv1.SetVisibleResponse, error) {
	if err := s.engine.SetVisible(ctx, req.Visible); err != nil {
		return nil, errs.GRPCStatus(err)
	}
	return &inboxv1.SetVisibleResponse{}, nil
}
