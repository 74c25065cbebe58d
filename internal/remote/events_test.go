package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheus3301/inbox/internal/errs"
	"github.com/matheus3301/inbox/internal/store"
)

const now = int64(1700000009999)

func TestDecodeNewMessage(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"event":"new_message","data":{"id":"in-1","from":"5511999990001","message":"hi","timestamp":1700000000}}`), now)
	require.NoError(t, err)
	assert.Equal(t, EventNewMessage, ev.Kind)
	assert.Equal(t, "5511999990001", ev.ChatID)
	assert.True(t, ev.HasRecord)
	assert.Equal(t, store.Record{ID: "in-1", Direction: store.Inbound, Text: "hi", Timestamp: 1700000000000}, ev.Record)
}

func TestDecodeNewMessageWithoutTimestampUsesNow(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"event":"new_message","data":{"from":5511999990001,"text":"hi"}}`), now)
	require.NoError(t, err)
	assert.Equal(t, now, ev.Record.Timestamp)
	assert.True(t, ev.Record.Estimated)
	assert.Equal(t, "hi", ev.Record.Text)
}

func TestDecodeMessageSent(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"event":"message_sent","data":{"id":"srv-1","tempId":"temp_x","to":"5511999990001","message":"yo","status":"sent","timestamp":1700000000500}}`), now)
	require.NoError(t, err)
	assert.Equal(t, EventMessageSent, ev.Kind)
	assert.True(t, ev.HasRecord)
	assert.Equal(t, store.Record{ID: "srv-1", TempID: "temp_x", Direction: store.Outbound, Text: "yo", Timestamp: 1700000000500, Status: store.StatusSent}, ev.Record)
}

func TestDecodeMessageSentWithoutBody(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"event":"message_sent","data":{"to":"5511999990001"}}`), now)
	require.NoError(t, err)
	assert.Equal(t, EventMessageSent, ev.Kind)
	assert.Equal(t, "5511999990001", ev.ChatID)
	assert.False(t, ev.HasRecord)
}

func TestDecodeEventErrors(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"not json", `hello`},
		{"new_message without from", `{"event":"new_message","data":{"message":"hi"}}`},
		{"message_sent without to", `{"event":"message_sent","data":{"message":"hi","timestamp":1}}`},
		{"bad data", `{"event":"new_message","data":"oops"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEvent([]byte(tt.frame), now)
			assert.Equal(t, errs.CodeProtocol, errs.CodeOf(err))
		})
	}
}

func TestDecodeUnknownEvent(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"event":"typing","data":{}}`), now)
	require.NoError(t, err)
	assert.Equal(t, Event{}, ev)
}
