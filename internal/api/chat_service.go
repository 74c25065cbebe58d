package api

import (
	"context"

	"github.com/matheus3301/inbox/internal/errs"
	"github.com/matheus3301/inbox/internal/inboxv1"
	"github.com/matheus3301/inbox/internal/store"
)

func (s *InboxService) ListChats(_ context.Context, _ *inboxv1.ListChatsRequest) (*inboxv1.ListChatsResponse, error) {
	return &inboxv1.ListChatsResponse{Chats: chatsToProto(s.engine.Chats())}, nil
}

func (s *InboxService) GetTimeline(_ context.Context, req *inboxv1.GetTimelineRequest) (*inboxv1.GetTimelineResponse, error) {
	if req.ChatID == "" {
		return nil, errs.GRPCStatus(errs.InvalidArg("chat_id is required"))
	}
	c, err := s.engine.Timeline(req.ChatID)
	if err != nil {
		return nil, errs.GRPCStatus(err)
	}
	return &inboxv1.GetTimelineResponse{Chat: chatToProto(c, true)}, nil
}

func (s *InboxService) Search(_ context.Context, req *inboxv1.SearchRequest) (*inboxv1.SearchResponse, error) {
	return &inboxv1.SearchResponse{Chats: chatsToProto(s.engine.Search(req.Query))}, nil
}

func (s *InboxService) SelectChat(ctx context.Context, req *inboxv1.SelectChatRequest) (*inboxv1.SelectChatResponse, error) {
	if err := s.engine.SelectChat(ctx, req.ChatID); err != nil {
		return nil, errs.GRPCStatus(err)
	}
	return &inboxv1.SelectChatResponse{}, nil
}

func (s *InboxService) StartChat(ctx context.Context, req *inboxv1.StartChatRequest) (*inboxv1.StartChatResponse, error) {
	c, err := s.engine.StartChat(ctx, req.Number)
	if err != nil {
		return nil, errs.GRPCStatus(err)
	}
	return &inboxv1.StartChatResponse{Chat: chatToProto(c, true)}, nil
}

func chatsToProto(chats []store.Chat) []*inboxv1.Chat {
	out := make([]*inboxv1.Chat, 0, len(chats))
	for _, c := range chats {
		out = append(out, chatToProto(c, false))
	}
	return out
}

func chatToProto(c store.Chat, withMessages bool) *inboxv1.Chat {
	pb := &inboxv1.Chat{
		ID:                 c.ID,
		Name:               c.Name,
		LastActivityUnixMs: c.LastActivityAt,
		UnreadCount:        int32(c.UnreadCount),
	}
	if last, ok := c.LastMessage(); ok {
		pb.LastMessage = messageToProto(last)
	}
	if withMessages {
		pb.Messages = make([]*inboxv1.Message, 0, len(c.Messages))
		for _, m := range c.Messages {
			pb.Messages = append(pb.Messages, messageToProto(m))
		}
	}
	return pb
}
