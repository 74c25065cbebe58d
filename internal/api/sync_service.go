package api

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/matheus3301/inbox/internal/bus"
	"github.com/matheus3301/inbox/internal/errs"
	"github.com/matheus3301/inbox/internal/inboxv1"
	"github.com/matheus3301/inbox/internal/outbox"
	"github.com/matheus3301/inbox/internal/status"
	"github.com/matheus3301/inbox/internal/supervisor"
	inboxsync "github.com/matheus3301/inbox/internal/sync"
)

// defaultNamespaces are streamed when a watcher names none. Raw push events
// stay internal; their effect shows up as store.changed.
var defaultNamespaces = []string{"store.", "view.", "conn.", "sync.", "outbox."}

func (s *InboxService) Refresh(ctx context.Context, _ *inboxv1.RefreshRequest) (*inboxv1.RefreshResponse, error) {
	if err := s.engine.Refresh(ctx); err != nil {
		return nil, errs.GRPCStatus(err)
	}
	return &inboxv1.RefreshResponse{}, nil
}

func (s *InboxService) WatchChanges(req *inboxv1.WatchChangesRequest, stream inboxv1.InboxService_WatchChangesServer) error {
	namespaces := req.Namespaces
	if len(namespaces) == 0 {
		namespaces = defaultNamespaces
	}
	ch, unsub := s.bus.Subscribe("", 256)
	defer unsub()

	for {
		select {
		case evt := <-ch:
			if !matches(evt.Kind, namespaces) {
				continue
			}
			if err := stream.Send(s.envelope(evt)); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}

func matches(kind string, namespaces []string) bool {
	for _, ns := range namespaces {
		if strings.HasPrefix(kind, ns) {
			return true
		}
	}
	return false
}

// envelope flattens a bus event into the wire type.
func (s *InboxService) envelope(evt bus.Event) *inboxv1.ChangeEvent {
	out := &inboxv1.ChangeEvent{
		EventID:          uuid.New().String(),
		Session:          s.opts.SessionName,
		Kind:             evt.Kind,
		OccurredAtUnixMs: evt.Timestamp.UnixMilli(),
	}
	switch p := evt.Payload.(type) {
	case inboxsync.Change:
		out.ChatIDs = p.ChatIDs
	case inboxsync.Reveal:
		out.ChatIDs = []string{p.ChatID}
	case inboxsync.PollFailure:
		out.Reason = p.Reason
	case status.StatusChange:
		out.State = string(p.To)
	case supervisor.Reachability:
		reachable := p.Reachable
		out.Reachable = &reachable
	case outbox.SendFailure:
		out.ChatIDs = []string{p.ChatID}
		out.TempID = p.TempID
		out.Reason = p.Reason
	case outbox.LateAck:
		out.ChatIDs = []string{p.ChatID}
		out.TempID = p.TempID
	}
	return out
}
