package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/matheus3301/inbox/internal/api"
	"github.com/matheus3301/inbox/internal/bus"
	"github.com/matheus3301/inbox/internal/config"
	"github.com/matheus3301/inbox/internal/inboxv1"
	"github.com/matheus3301/inbox/internal/session"
	"github.com/matheus3301/inbox/internal/status"
	"github.com/matheus3301/inbox/internal/store"
	intsync "github.com/matheus3301/inbox/internal/sync"
)

const chatID = "5511999990001"

// fakeBackend serves the REST API and pushes a single inbound message once
// a push client connects.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("GET /api/chats", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprintf(w, `[{"id":%q,"name":"Alice","unread":0,"messages":[{"id":"m1","type":"received","text":"hello","timestamp":1700000000000}]}]`, chatID)
	})
	mux.HandleFunc("GET /api/chats/{id}/messages", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"m1","type":"received","text":"hello","timestamp":1700000000000}]`))
	})
	mux.HandleFunc("POST /api/send", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"messages":[{"id":"srv-1"}]}}`))
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = c.CloseNow() }()
		frame, _ := json.Marshal(map[string]any{
			"event": "new_message",
			"data":  map[string]any{"id": "w1", "from": chatID, "message": "pushed", "timestamp": time.Now().UnixMilli()},
		})
		if err := c.Write(r.Context(), websocket.MessageText, frame); err != nil {
			return
		}
		for {
			if _, _, err := c.Read(r.Context()); err != nil {
				return
			}
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL, dsn string) *config.Config {
	cfg := config.Default()
	cfg.LogLevel = "debug"
	cfg.Backend.BaseURL = baseURL
	cfg.Backend.RequestTimeout.Duration = 2 * time.Second
	cfg.Sync.PollInterval.Duration = time.Hour
	cfg.Sync.SendTimeout.Duration = 2 * time.Second
	cfg.Sync.DeliveryFallback.Duration = 50 * time.Millisecond
	cfg.Sync.ProbeInterval.Duration = 100 * time.Millisecond
	cfg.Push.MaxAttempts = 2
	cfg.Push.Backoff.Duration = 20 * time.Millisecond
	cfg.Push.Heartbeat.Duration = time.Second
	cfg.Ledger.DSN = dsn
	return cfg
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestDaemonEndToEnd(t *testing.T) {
	// Use a short path to avoid macOS 104-char Unix socket limit.
	tmpDir, err := os.MkdirTemp("/tmp", "inbox-e2e-*")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	t.Setenv(session.HomeEnv, tmpDir)

	backend := fakeBackend(t)
	cfg := testConfig(backend.URL, "file:daemon-e2e?mode=memory&cache=shared")

	app := fx.New(
		Module(Params{SessionName: "test", Config: cfg}),
		fx.NopLogger,
	)
	startCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		t.Fatalf("app.Start() error = %v", err)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		if err := app.Stop(stopCtx); err != nil {
			t.Errorf("app.Stop() error = %v", err)
		}
	}()

	socketPath := session.SocketPath("test")
	if _, err := os.Stat(socketPath); err != nil {
		t.Fatalf("socket not created at %s: %v", socketPath, err)
	}

	conn, err := grpc.NewClient("unix://"+socketPath, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()
	client := inboxv1.NewInboxServiceClient(conn)
	ctx := context.Background()

	// Startup poll populates the chat list.
	waitFor(t, "startup poll", func() bool {
		resp, err := client.ListChats(ctx, &inboxv1.ListChatsRequest{})
		return err == nil && len(resp.Chats) == 1
	})

	// The push channel goes live and delivers the pushed message.
	waitFor(t, "live push channel", func() bool {
		resp, err := client.GetConnection(ctx, &inboxv1.GetConnectionRequest{})
		return err == nil && resp.State == string(status.Live) && resp.Reachable
	})
	waitFor(t, "pushed message", func() bool {
		resp, err := client.GetTimeline(ctx, &inboxv1.GetTimelineRequest{ChatID: chatID})
		return err == nil && len(resp.Chat.Messages) == 2
	})

	// An optimistic send settles to delivered.
	send, err := client.SendMessage(ctx, &inboxv1.SendMessageRequest{ChatID: chatID, Text: "on my way"})
	if err != nil {
		t.Fatalf("SendMessage error = %v", err)
	}
	if send.Message.Status != string(store.StatusPending) {
		t.Errorf("status = %q, want pending", send.Message.Status)
	}
	waitFor(t, "delivered send", func() bool {
		resp, err := client.GetTimeline(ctx, &inboxv1.GetTimelineRequest{ChatID: chatID})
		if err != nil {
			return false
		}
		for _, m := range resp.Chat.Messages {
			if m.TempID == send.Message.TempID {
				return m.Status == string(store.StatusDelivered) && m.ID == "srv-1"
			}
		}
		return false
	})

	// Health reports the backend as reachable.
	hc := healthpb.NewHealthClient(conn)
	waitFor(t, "health SERVING", func() bool {
		resp, err := hc.Check(ctx, &healthpb.HealthCheckRequest{Service: inboxv1.ServiceName})
		return err == nil && resp.Status == healthpb.HealthCheckResponse_SERVING
	})
}

func TestSecondDaemonRefusesLockedSession(t *testing.T) {
	tmpDir, err := os.MkdirTemp("/tmp", "inbox-lock-*")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	t.Setenv(session.HomeEnv, tmpDir)

	cfg := testConfig("http://127.0.0.1:1", "file:daemon-lock?mode=memory&cache=shared")

	first := fx.New(Module(Params{SessionName: "dup", Config: cfg}), fx.NopLogger)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first.Start() error = %v", err)
	}
	defer func() { _ = first.Stop(context.Background()) }()

	second := fx.New(
		Module(Params{SessionName: "dup", Config: cfg, SocketPath: filepath.Join(tmpDir, "second.sock")}),
		fx.NopLogger,
	)
	if err := second.Err(); err == nil {
		_ = second.Stop(context.Background())
		t.Fatal("expected second daemon to fail on the session lock")
	}
}

// TestFxModuleWiring verifies NewServer takes Params and honours the socket
// override.
func TestFxModuleWiring(t *testing.T) {
	// Use /tmp for short socket paths (macOS 104-char limit).
	tmpDir, err := os.MkdirTemp("/tmp", "inbox-fx-*")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	socketPath := filepath.Join(tmpDir, "d.sock")
	b := bus.New()
	st := store.New(zap.NewNop())
	engine := intsync.NewEngine(intsync.Options{}, st, nil, nil, nil, b, zap.NewNop())
	svc := api.NewInboxService(api.Options{SessionName: "fxtest"}, engine, status.NewMachine(b), nil, nil, b)

	p := Params{SessionName: "fxtest", SocketPath: socketPath}
	srv, err := NewServer(p, zap.NewNop(), svc, health.NewServer())
	if err != nil {
		t.Fatalf("NewServer() with Params failed: %v", err)
	}
	if srv.SocketPath() != socketPath {
		t.Errorf("SocketPath() = %q, want %q", srv.SocketPath(), socketPath)
	}

	info, statErr := os.Stat(socketPath)
	if statErr != nil {
		t.Fatalf("socket not created at %s: %v", socketPath, statErr)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("socket mode = %o, want 600", perm)
	}

	srv.Stop(context.Background())
	if _, err := os.Stat(socketPath); !os.IsNotExist(err) {
		t.Errorf("socket still present after Stop: %v", err)
	}
}

// TestStopClosesOpenWatchStreams checks that a connected watcher does not
// hold shutdown past the stop deadline.
func TestStopClosesOpenWatchStreams(t *testing.T) {
	tmpDir, err := os.MkdirTemp("/tmp", "inbox-stop-*")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	socketPath := filepath.Join(tmpDir, "d.sock")
	b := bus.New()
	st := store.New(zap.NewNop())
	engine := intsync.NewEngine(intsync.Options{}, st, nil, nil, nil, b, zap.NewNop())
	svc := api.NewInboxService(api.Options{SessionName: "stoptest"}, engine, status.NewMachine(b), nil, nil, b)

	srv, err := NewServer(Params{SessionName: "stoptest", SocketPath: socketPath}, zap.NewNop(), svc, health.NewServer())
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	go func() { _ = srv.Start() }()

	conn, err := grpc.NewClient("unix://"+socketPath, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient() error = %v", err)
	}
	defer func() { _ = conn.Close() }()

	stream, err := inboxv1.NewInboxServiceClient(conn).WatchChanges(context.Background(), &inboxv1.WatchChangesRequest{})
	if err != nil {
		t.Fatalf("WatchChanges() error = %v", err)
	}
	// The first event proves the stream handler is running.
	received := make(chan error, 1)
	go func() {
		_, err := stream.Recv()
		received <- err
	}()
	deadline := time.After(3 * time.Second)
	for open := false; !open; {
		b.Emit(bus.KindStoreChanged, intsync.Change{ChatIDs: []string{chatID}})
		select {
		case err := <-received:
			if err != nil {
				t.Fatalf("Recv() error = %v", err)
			}
			open = true
		case <-time.After(20 * time.Millisecond):
		case <-deadline:
			t.Fatal("watch stream never delivered an event")
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	srv.Stop(stopCtx)
	if took := time.Since(start); took > 2*time.Second {
		t.Errorf("Stop() took %v with an open watch stream", took)
	}
	if _, err := os.Stat(socketPath); !os.IsNotExist(err) {
		t.Errorf("socket still present after Stop: %v", err)
	}
}
