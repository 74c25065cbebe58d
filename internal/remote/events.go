package remote

import (
	"encoding/json"
	"fmt"

	"github.com/matheus3301/inbox/internal/errs"
	"github.com/matheus3301/inbox/internal/store"
)

// EventKind names a push channel event.
type EventKind string

const (
	EventNewMessage  EventKind = "new_message"
	EventMessageSent EventKind = "message_sent"
)

// Event is a decoded push frame. HasRecord is false for a message_sent that
// only names the recipient; the receiver then reloads that chat.
type Event struct {
	Kind      EventKind
	ChatID    string
	Record    store.Record
	HasRecord bool
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type newMessageData struct {
	ID        flexString `json:"id"`
	From      flexString `json:"from"`
	Message   string     `json:"message"`
	Text      string     `json:"text"`
	Timestamp flexTime   `json:"timestamp"`
}

type messageSentData struct {
	ID        flexString `json:"id"`
	TempID    string     `json:"tempId"`
	To        flexString `json:"to"`
	Message   string     `json:"message"`
	Text      string     `json:"text"`
	Status    string     `json:"status"`
	Timestamp flexTime   `json:"timestamp"`
}

// DecodeEvent parses one push frame. now (unix ms) stands in for a missing
// new_message timestamp. Unknown event names decode to a zero Event and no error.
func DecodeEvent(frame []byte, now int64) (Event, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Event{}, errs.Protocol("decode push envelope", err)
	}

	switch EventKind(env.Event) {
	case EventNewMessage:
		var d newMessageData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return Event{}, errs.Protocol("decode new_message", err)
		}
		if d.From == "" {
			return Event{}, errs.Protocol("new_message without sender", nil)
		}
		ts, estimated := int64(d.Timestamp), false
		if ts == 0 {
			ts, estimated = now, true
		}
		text := d.Message
		if text == "" {
			text = d.Text
		}
		return Event{
			Kind:   EventNewMessage,
			ChatID: string(d.From),
			Record: store.Record{
				ID:        string(d.ID),
				Direction: store.Inbound,
				Text:      text,
				Timestamp: ts,
				Estimated: estimated,
			},
			HasRecord: true,
		}, nil

	case EventMessageSent:
		var d messageSentData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return Event{}, errs.Protocol("decode message_sent", err)
		}
		if d.To == "" {
			return Event{}, errs.Protocol("message_sent without recipient", nil)
		}
		ev := Event{Kind: EventMessageSent, ChatID: string(d.To)}
		text := d.Message
		if text == "" {
			text = d.Text
		}
		if text == "" || d.Timestamp == 0 {
			return ev, nil
		}
		ev.Record = store.Record{
			ID:        string(d.ID),
			TempID:    d.TempID,
			Direction: store.Outbound,
			Text:      text,
			Timestamp: int64(d.Timestamp),
			Status:    parseStatus(d.Status),
		}
		ev.HasRecord = true
		return ev, nil
	}
	return Event{}, nil
}

func (e Event) String() string {
	return fmt.Sprintf("%s(%s)", e.Kind, e.ChatID)
}
