// Package inboxv1 is the wire contract between inboxd and its clients: the
// request and response types of inbox.v1.InboxService, its service
// descriptor, and the JSON codec they travel with.
package inboxv1

// Message is one timeline entry.
type Message struct {
	ID              string `json:"id,omitempty"`
	TempID          string `json:"temp_id,omitempty"`
	ChatID          string `json:"chat_id"`
	Direction       string `json:"direction"`
	Text            string `json:"text"`
	Status          string `json:"status"`
	TimestampUnixMs int64  `json:"timestamp_unix_ms"`
	Error           string `json:"error,omitempty"`
	RetryOf         string `json:"retry_of,omitempty"`
}

// Chat is a conversation. Messages is only filled by GetTimeline and StartChat.
type Chat struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	LastActivityUnixMs int64      `json:"last_activity_unix_ms"`
	UnreadCount        int32      `json:"unread_count"`
	LastMessage        *Message   `json:"last_message,omitempty"`
	Messages           []*Message `json:"messages,omitempty"`
}

// FailedSend is a ledger row for a send that failed or was acknowledged late.
type FailedSend struct {
	TempID          string `json:"temp_id"`
	ChatID          string `json:"chat_id"`
	Text            string `json:"text"`
	Status          string `json:"status"`
	ServerID        string `json:"server_id,omitempty"`
	Error           string `json:"error,omitempty"`
	RetryOf         string `json:"retry_of,omitempty"`
	CreatedAtUnixMs int64  `json:"created_at_unix_ms"`
	UpdatedAtUnixMs int64  `json:"updated_at_unix_ms"`
}

type ListChatsRequest struct{}

type ListChatsResponse struct {
	Chats []*Chat `json:"chats"`
}

type GetTimelineRequest struct {
	ChatID string `json:"chat_id"`
}

type GetTimelineResponse struct {
	Chat *Chat `json:"chat"`
}

type SearchRequest struct {
	Query string `json:"query"`
}

type SearchResponse struct {
	Chats []*Chat `json:"chats"`
}

type SelectChatRequest struct {
	ChatID string `json:"chat_id"`
}

type SelectChatResponse struct{}

type StartChatRequest struct {
	Number string `json:"number"`
}

type StartChatResponse struct {
	Chat *Chat `json:"chat"`
}

type SendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type SendMessageResponse struct {
	Message *Message `json:"message"`
}

type RetrySendRequest struct {
	TempID string `json:"temp_id"`
}

type RetrySendResponse struct {
	Message *Message `json:"message"`
}

type RefreshRequest struct{}

type RefreshResponse struct{}

type SetVisibleRequest struct {
	Visible bool `json:"visible"`
}

type SetVisibleResponse struct{}

type GetConnectionRequest struct{}

// GetConnectionResponse describes the daemon and its link to the backend.
type GetConnectionResponse struct {
	Session          string `json:"session"`
	State            string `json:"state"`
	StateSinceUnixMs int64  `json:"state_since_unix_ms"`
	Reachable        bool   `json:"reachable"`
	Visible          bool   `json:"visible"`
	OpenChatID       string `json:"open_chat_id,omitempty"`
	BackendURL       string `json:"backend_url"`
	ChatCount        int32  `json:"chat_count"`
	UptimeMs         int64  `json:"uptime_ms"`
	DroppedEvents    uint64 `json:"dropped_events"`
}

type ListFailedSendsRequest struct {
	Limit int32 `json:"limit"`
}

type ListFailedSendsResponse struct {
	Sends []*FailedSend `json:"sends"`
}

// WatchChangesRequest selects event namespaces ("store.", "conn.", ...).
// An empty list means every namespace.
type WatchChangesRequest struct {
	Namespaces []string `json:"namespaces,omitempty"`
}

// ChangeEvent is one daemon event streamed by WatchChanges.
type ChangeEvent struct {
	EventID          string   `json:"event_id"`
	Session          string   `json:"session"`
	Kind             string   `json:"kind"`
	OccurredAtUnixMs int64    `json:"occurred_at_unix_ms"`
	ChatIDs          []string `json:"chat_ids,omitempty"`
	State            string   `json:"state,omitempty"`
	Reachable        *bool    `json:"reachable,omitempty"`
	TempID           string   `json:"temp_id,omitempty"`
	Reason           string   `json:"reason,omitempty"`
}
