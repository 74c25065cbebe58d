package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matheus3301/inbox/internal/errs"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL + "/", APIPrefix: "/api", Timeout: 5 * time.Second}, zap.NewNop())
}

func TestHealth(t *testing.T) {
	up := true
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if !up {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	c := newTestClient(t, mux)

	assert.NoError(t, c.Health(context.Background()))
	up = false
	err := c.Health(context.Background())
	assert.Equal(t, errs.CodeTransient, errs.CodeOf(err))
}

func TestHealthUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewClient(Options{BaseURL: srv.URL, Timeout: time.Second}, zap.NewNop())
	assert.Equal(t, errs.CodeTransient, errs.CodeOf(c.Health(context.Background())))
}

func TestListChats(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/chats", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"A","name":"Alice","messages":[{"id":"m1","text":"hi","type":"received","timestamp":1700000000000}]},{"name":"broken"}]`))
	})
	c := newTestClient(t, mux)

	snaps, err := c.ListChats(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "A", snaps[0].ChatID)
	assert.Len(t, snaps[0].Messages, 1)
}

func TestListMessagesEscapesChatID(t *testing.T) {
	var gotPath string
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`[]`))
	})
	c := newTestClient(t, mux)

	snap, err := c.ListMessages(context.Background(), "a/b")
	require.NoError(t, err)
	assert.Equal(t, "a/b", snap.ChatID)
	assert.Equal(t, "/api/chats/a%2Fb/messages", gotPath)
}

func TestSend(t *testing.T) {
	var got SendRequest
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/send", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true,"data":{"messages":[{"id":"srv-1"}]}}`))
	})
	c := newTestClient(t, mux)

	res, err := c.Send(context.Background(), SendRequest{To: "A", Message: "hello", TempID: "temp_1"})
	require.NoError(t, err)
	assert.Equal(t, "srv-1", res.ServerID)
	assert.Equal(t, SendRequest{To: "A", Message: "hello", TempID: "temp_1"}, got)
}

func TestSendRejected(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"success false", http.StatusOK, `{"success":false,"error":{"message":"number not registered"}}`, "number not registered"},
		{"http error with body", http.StatusBadRequest, `{"success":false,"error":{"message":"bad number"}}`, "bad number"},
		{"http error without body", http.StatusInternalServerError, ``, "HTTP 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			_, err := c.Send(context.Background(), SendRequest{To: "A", Message: "x"})
			require.Error(t, err)
			assert.Equal(t, errs.CodeTransient, errs.CodeOf(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSendGarbageResponse(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	_, err := c.Send(context.Background(), SendRequest{To: "A", Message: "x"})
	assert.Equal(t, errs.CodeProtocol, errs.CodeOf(err))
}
