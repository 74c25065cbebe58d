package store

// Direction tells whether a message was written by us or by the other party.
type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// Status is the delivery status of an outbound message. Inbound messages are
// always StatusDelivered.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// rank orders the success path. Failed sits outside it.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	}
	return -1
}

// Message is one bubble in a chat timeline.
type Message struct {
	ID        string    `json:"id,omitempty"`
	TempID    string    `json:"tempId,omitempty"`
	ChatID    string    `json:"chatId"`
	Direction Direction `json:"direction"`
	Text      string    `json:"text"`
	Status    Status    `json:"status"`
	Timestamp int64     `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
	RetryOf   string    `json:"retryOf,omitempty"`
}

// Key is the most stable identifier known for m.
func (m Message) Key() string {
	if m.ID != "" {
		return m.ID
	}
	return m.TempID
}

// Chat is a read-only copy of one conversation.
type Chat struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Messages       []Message `json:"messages,omitempty"`
	LastActivityAt int64     `json:"lastActivityAt"`
	UnreadCount    int       `json:"unreadCount"`
}

// LastMessage returns the newest message, if any.
func (c Chat) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// Record is a message as reported by the backend, through a poll snapshot
// or a push event. ID is empty when the source does not carry one.
type Record struct {
	ID        string
	TempID    string
	Direction Direction
	Text      string
	Timestamp int64
	Status    Status
	// Estimated marks a Timestamp taken from the local clock because the
	// backend sent none. Such records never take part in fingerprint matching.
	Estimated bool
}

// Snapshot is one chat from a poll.
type Snapshot struct {
	ChatID   string
	Name     string
	Unread   int
	Messages []Record
	// MessagesOnly marks a timeline fetch, which carries no unread count.
	MessagesOnly bool
}

// Outcome is the result of a send attempt.
type Outcome struct {
	Status   Status
	ServerID string
	Reason   string
}
