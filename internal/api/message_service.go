package api

import (
	"context"

	"github.com/matheus3301/inbox/internal/errs"
	"github.com/matheus3301/inbox/internal/inboxv1"
	"github.com/matheus3301/inbox/internal/store"
)

func (s *InboxService) SendMessage(ctx context.Context, req *inboxv1.SendMessageRequest) (*inboxv1.SendMessageResponse, error) {
	msg, err := s.engine.SendMessage(ctx, req.ChatID, req.Text)
	if err != nil {
		return nil, errs.GRPCStatus(err)
	}
	return &inboxv1.SendMessageResponse{Message: messageToProto(msg)}, nil
}

func (s *InboxService) RetrySend(ctx context.Context, req *inboxv1.RetrySendRequest) (*inboxv1.RetrySendResponse, error) {
	if req.TempID == "" {
		return nil, errs.GRPCStatus(errs.InvalidArg("temp_id is required"))
	}
	msg, err := s.engine.Retry(ctx, req.TempID)
	if err != nil {
		return nil, errs.GRPCStatus(err)
	}
	return &inboxv1.RetrySendResponse{Message: messageToProto(msg)}, nil
}

func (s *InboxService) ListFailedSends(ctx context.Context, req *inboxv1.ListFailedSendsRequest) (*inboxv1.ListFailedSendsResponse, error) {
	if s.sends == nil {
		return nil, errs.GRPCStatus(errs.FailedPrecondition("send ledger not configured"))
	}
	rows, err := s.sends.ListFailed(ctx, int(req.Limit))
	if err != nil {
		return nil, errs.GRPCStatus(errs.Wrap(errs.CodeInternal, "list failed sends", err))
	}
	out := make([]*inboxv1.FailedSend, 0, len(rows))
	for _, r := range rows {
		out = append(out, &inboxv1.FailedSend{
			TempID:          r.TempID,
			ChatID:          r.ChatID,
			Text:            r.Body,
			Status:          string(r.Status),
			ServerID:        r.ServerID,
			Error:           r.Error,
			RetryOf:         r.RetryOf,
			CreatedAtUnixMs: r.CreatedAt.UnixMilli(),
			UpdatedAtUnixMs: r.UpdatedAt.UnixMilli(),
		})
	}
	return &inboxv1.ListFailedSendsResponse{Sends: out}, nil
}

func messageToProto(m store.Message) *inboxv1.Message {
	return &inboxv1.Message{
		ID:              m.ID,
		TempID:          m.TempID,
		ChatID:          m.ChatID,
		Direction:       string(m.Direction),
		Text:            m.Text,
		Status:          string(m.Status),
		TimestampUnixMs: m.Timestamp,
		Error:           m.Error,
		RetryOf:         m.RetryOf,
	}
}
