package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/matheus3301/inbox/internal/errs"
	"github.com/matheus3301/inbox/internal/store"
)

// flexString accepts a JSON string or number.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*s = ""
		return nil
	case b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*s = flexString(n.String())
	return nil
}

// flexTime is a unix-millisecond timestamp that accepts epoch numbers (ms or
// s), numeric strings and RFC 3339 strings. Zero means absent.
type flexTime int64

func (t *flexTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" || string(b) == `""` {
		*t = 0
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*t = flexTime(epochMillis(n))
			return nil
		}
		ts, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return fmt.Errorf("timestamp %q: %w", v, err)
		}
		*t = flexTime(ts.UnixMilli())
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("timestamp %s: %w", b, err)
	}
	*t = flexTime(epochMillis(int64(f)))
	return nil
}

// epochMillis treats values too small to be milliseconds since 1973 as seconds.
func epochMillis(n int64) int64 {
	if n > 0 && n < 100_000_000_000 {
		return n * 1000
	}
	return n
}

type chatDTO struct {
	ID          flexString   `json:"id"`
	Number      flexString   `json:"number"`
	Name        string       `json:"name"`
	Messages    []messageDTO `json:"messages"`
	Unread      int          `json:"unread"`
	LastMessage flexTime     `json:"lastMessage"`
}

func (c chatDTO) chatID() string {
	if c.ID != "" {
		return string(c.ID)
	}
	return string(c.Number)
}

type messageDTO struct {
	ID        flexString `json:"id"`
	TempID    string     `json:"tempId"`
	Text      string     `json:"text"`
	Message   string     `json:"message"`
	Type      string     `json:"type"`
	Direction string     `json:"direction"`
	FromMe    *bool      `json:"fromMe"`
	Status    string     `json:"status"`
	Timestamp flexTime   `json:"timestamp"`
}

func (m messageDTO) direction() (store.Direction, error) {
	for _, v := range []string{m.Type, m.Direction} {
		switch strings.ToLower(v) {
		case "sent", "outbound", "outgoing":
			return store.Outbound, nil
		case "received", "inbound", "incoming":
			return store.Inbound, nil
		}
	}
	if m.FromMe != nil {
		if *m.FromMe {
			return store.Outbound, nil
		}
		return store.Inbound, nil
	}
	return "", fmt.Errorf("unknown message direction type=%q direction=%q", m.Type, m.Direction)
}

func (m messageDTO) body() string {
	if m.Text != "" {
		return m.Text
	}
	return m.Message
}

// record converts m. A missing timestamp is an error unless fallback is set.
func (m messageDTO) record(fallback int64) (store.Record, error) {
	dir, err := m.direction()
	if err != nil {
		return store.Record{}, err
	}
	ts := int64(m.Timestamp)
	if ts == 0 {
		if fallback == 0 {
			return store.Record{}, fmt.Errorf("message %q has no timestamp", m.ID)
		}
		ts = fallback
	}
	return store.Record{
		ID:        string(m.ID),
		TempID:    m.TempID,
		Direction: dir,
		Text:      m.body(),
		Timestamp: ts,
		Status:    parseStatus(m.Status),
	}, nil
}

func parseStatus(s string) store.Status {
	switch strings.ToLower(s) {
	case "delivered", "read", "played":
		return store.StatusDelivered
	case "sent", "server_ack":
		return store.StatusSent
	}
	return ""
}

func (c chatDTO) snapshot() (store.Snapshot, error) {
	id := c.chatID()
	if id == "" {
		return store.Snapshot{}, fmt.Errorf("chat %q has no id", c.Name)
	}
	snap := store.Snapshot{ChatID: id, Name: c.Name, Unread: c.Unread}
	for i, m := range c.Messages {
		r, err := m.record(0)
		if err != nil {
			return store.Snapshot{}, fmt.Errorf("chat %s message %d: %w", id, i, err)
		}
		snap.Messages = append(snap.Messages, r)
	}
	return snap, nil
}

// ParseChats decodes a GET /chats body. A chat that fails validation is
// reported in rejected and left out; an undecodable body is a protocol error.
func ParseChats(data []byte) (snaps []store.Snapshot, rejected []error, err error) {
	var dtos []chatDTO
	if err := json.Unmarshal(data, &dtos); err != nil {
		return nil, nil, errs.Protocol("decode chat list", err)
	}
	for _, dto := range dtos {
		snap, err := dto.snapshot()
		if err != nil {
			rejected = append(rejected, errs.Protocol("invalid chat snapshot", err))
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, rejected, nil
}

// ParseMessages decodes a GET /chats/{id}/messages body into a snapshot of
// that chat. Any invalid message discards the whole snapshot.
func ParseMessages(chatID string, data []byte) (store.Snapshot, error) {
	var dtos []messageDTO
	if err := json.Unmarshal(data, &dtos); err != nil {
		return store.Snapshot{}, errs.Protocol("decode messages of "+chatID, err)
	}
	snap := store.Snapshot{ChatID: chatID, MessagesOnly: true}
	for i, m := range dtos {
		r, err := m.record(0)
		if err != nil {
			return store.Snapshot{}, errs.Protocol(fmt.Sprintf("message %d of %s", i, chatID), err)
		}
		snap.Messages = append(snap.Messages, r)
	}
	return snap, nil
}
