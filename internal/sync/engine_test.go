package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matheus3301/inbox/internal/bus"
	"github.com/matheus3301/inbox/internal/errs"
	"github.com/matheus3301/inbox/internal/outbox"
	"github.com/matheus3301/inbox/internal/remote"
	"github.com/matheus3301/inbox/internal/status"
	"github.com/matheus3301/inbox/internal/store"
)

const t0 = int64(1_700_000_000_000)

// fakeRemote serves chats and messages from maps. listHook, when set, runs
// before ListChats returns and may block.
type fakeRemote struct {
	mu       stdsync.Mutex
	chats    []store.Snapshot
	messages map[string]store.Snapshot
	err      error
	listHook func(call int)

	listCalls atomic.Int32
	msgCalls  atomic.Int32
}

func (r *fakeRemote) set(chats ...store.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats = chats
}

func (r *fakeRemote) ListChats(context.Context) ([]store.Snapshot, error) {
	n := int(r.listCalls.Add(1))
	r.mu.Lock()
	hook, chats, err := r.listHook, r.chats, r.err
	r.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return chats, err
}

func (r *fakeRemote) ListMessages(_ context.Context, chatID string) (store.Snapshot, error) {
	r.msgCalls.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	if snap, ok := r.messages[chatID]; ok {
		snap.MessagesOnly = true
		return snap, nil
	}
	return store.Snapshot{ChatID: chatID, MessagesOnly: true}, nil
}

type fakeOutbox struct {
	mu       stdsync.Mutex
	jobs     []outbox.Job
	rejected []outbox.Job
	err      error
}

func (o *fakeOutbox) Enqueue(job outbox.Job) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.jobs = append(o.jobs, job)
	return nil
}

func (o *fakeOutbox) Reject(_ context.Context, job outbox.Job, _ string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected = append(o.rejected, job)
}

type countingResyncer struct{ n atomic.Int32 }

func (c *countingResyncer) Resynced() { c.n.Add(1) }

type harness struct {
	engine *Engine
	store  *store.Store
	remote *fakeRemote
	outbox *fakeOutbox
	resync *countingResyncer
	bus    *bus.Bus
}

func newHarness(t *testing.T, opts Options, chats ...store.Snapshot) *harness {
	t.Helper()
	h := &harness{
		store:  store.New(zap.NewNop()),
		remote: &fakeRemote{chats: chats, messages: map[string]store.Snapshot{}},
		outbox: &fakeOutbox{},
		resync: &countingResyncer{},
		bus:    bus.New(),
	}
	h.engine = NewEngine(opts, h.store, h.remote, h.outbox, h.resync, h.bus, zap.NewNop())
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	h.engine.Start(context.Background())
	t.Cleanup(h.engine.Stop)
}

func (h *harness) waitPolled(t *testing.T, n int32) {
	t.Helper()
	require.Eventually(t, func() bool { return h.resync.n.Load() >= n }, 2*time.Second, 5*time.Millisecond)
}

func inboundRec(id, text string, ts int64) store.Record {
	return store.Record{ID: id, Direction: store.Inbound, Text: text, Timestamp: ts}
}

func TestStartupPollFillsStore(t *testing.T) {
	h := newHarness(t, Options{}, store.Snapshot{ChatID: "5511999990001", Name: "Alice", Unread: 1, Messages: []store.Record{inboundRec("m1", "hi", t0)}})
	changes, unsub := h.bus.Subscribe("store.", 8)
	defer unsub()
	h.start(t)

	h.waitPolled(t, 1)
	chats := h.engine.Chats()
	require.Len(t, chats, 1)
	assert.Equal(t, "Alice", chats[0].Name)
	assert.Equal(t, 1, chats[0].UnreadCount)

	select {
	case evt := <-changes:
		assert.Equal(t, Change{ChatIDs: []string{"5511999990001"}}, evt.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("no store.changed event")
	}
}

func TestPollFailureKeepsState(t *testing.T) {
	h := newHarness(t, Options{}, store.Snapshot{ChatID: "A", Messages: []store.Record{inboundRec("m1", "hi", t0)}})
	failures, unsub := h.bus.Subscribe("sync.poll_failed", 8)
	defer unsub()
	h.start(t)
	h.waitPolled(t, 1)

	h.remote.mu.Lock()
	h.remote.err = errs.Transient("GET /api/chats", errors.New("refused"))
	h.remote.mu.Unlock()
	require.NoError(t, h.engine.Refresh(context.Background()))

	select {
	case evt := <-failures:
		assert.Contains(t, evt.Payload.(PollFailure).Reason, "refused")
	case <-time.After(2 * time.Second):
		t.Fatal("no poll_failed event")
	}
	assert.Len(t, h.engine.Chats(), 1)
	assert.Equal(t, int32(1), h.resync.n.Load())
}

func TestStalePollIsDropped(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, Options{}, store.Snapshot{ChatID: "old"})
	h.remote.listHook = func(call int) {
		if call == 1 {
			<-release
		}
	}
	h.start(t)

	// The startup poll is stuck; a refresh supersedes it.
	require.Eventually(t, func() bool { return h.remote.listCalls.Load() == 1 }, time.Second, time.Millisecond)
	h.remote.set(store.Snapshot{ChatID: "new"})
	require.NoError(t, h.engine.Refresh(context.Background()))
	h.waitPolled(t, 1)

	h.remote.set(store.Snapshot{ChatID: "old"})
	close(release)
	time.Sleep(50 * time.Millisecond)

	chats := h.engine.Chats()
	require.Len(t, chats, 1)
	assert.Equal(t, "new", chats[0].ID)
	assert.Equal(t, int32(1), h.resync.n.Load())
}

func TestSendMessageLifecycle(t *testing.T) {
	h := newHarness(t, Options{DeliveryFallback: 20 * time.Millisecond})
	h.start(t)
	h.waitPolled(t, 1)

	msg, err := h.engine.SendMessage(context.Background(), "A", "hello")
	require.NoError(t, err)
	assert.Equal(t, store.StatusPending, msg.Status)
	require.Len(t, h.outbox.jobs, 1)
	assert.Equal(t, outbox.Job{TempID: msg.TempID, ChatID: "A", Text: "hello"}, h.outbox.jobs[0])

	h.engine.ReportSend(msg.TempID, store.Outcome{Status: store.StatusSent, ServerID: "srv-1"})
	require.Eventually(t, func() bool {
		m, _ := h.store.Lookup(msg.TempID)
		return m.Status == store.StatusDelivered
	}, 2*time.Second, 5*time.Millisecond)

	m, _ := h.store.Lookup(msg.TempID)
	assert.Equal(t, "srv-1", m.ID)
}

func TestSendMessageValidation(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(t)

	_, err := h.engine.SendMessage(context.Background(), "A", "   ")
	assert.True(t, errs.Is(err, errs.CodeInvalidArgument))
	_, err = h.engine.SendMessage(context.Background(), "", "hi")
	assert.True(t, errs.Is(err, errs.CodeInvalidArgument))
}

func TestSendMessageQueueFullFailsImmediately(t *testing.T) {
	h := newHarness(t, Options{})
	h.outbox.err = errs.Transient("outbox queue full", nil)
	h.start(t)

	msg, err := h.engine.SendMessage(context.Background(), "A", "hello")
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, msg.Status)
	assert.Contains(t, msg.Error, "outbox queue full")
	assert.Len(t, h.outbox.rejected, 1)
}

func TestRetryOnlyFailed(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(t)

	msg, err := h.engine.SendMessage(context.Background(), "A", "hello")
	require.NoError(t, err)

	_, err = h.engine.Retry(context.Background(), msg.TempID)
	assert.True(t, errs.Is(err, errs.CodeFailedPrecondition))
	_, err = h.engine.Retry(context.Background(), "temp_missing")
	assert.True(t, errs.Is(err, errs.CodeNotFound))

	h.engine.ReportSend(msg.TempID, store.Outcome{Status: store.StatusFailed, Reason: "send timed out"})
	require.Eventually(t, func() bool {
		m, _ := h.store.Lookup(msg.TempID)
		return m.Status == store.StatusFailed
	}, 2*time.Second, 5*time.Millisecond)

	retry, err := h.engine.Retry(context.Background(), msg.TempID)
	require.NoError(t, err)
	assert.Equal(t, msg.TempID, retry.RetryOf)
	assert.Equal(t, store.StatusPending, retry.Status)
	assert.NotEqual(t, msg.TempID, retry.TempID)

	c, err := h.engine.Timeline("A")
	require.NoError(t, err)
	require.Len(t, c.Messages, 2)
	assert.Equal(t, store.StatusFailed, c.Messages[0].Status)
	assert.Equal(t, "hello", c.Messages[1].Text)
}

func TestPushForOpenChatReveals(t *testing.T) {
	h := newHarness(t, Options{}, store.Snapshot{ChatID: "5511999990001"})
	reveals, unsub := h.bus.Subscribe("view.", 8)
	defer unsub()
	h.start(t)
	h.waitPolled(t, 1)
	require.NoError(t, h.engine.SelectChat(context.Background(), "5511999990001"))

	h.bus.Emit(bus.KindPushNewMsg, remote.Event{
		Kind: remote.EventNewMessage, ChatID: "5511999990001", HasRecord: true,
		Record: inboundRec("in-1", "are you there?", t0),
	})

	select {
	case evt := <-reveals:
		assert.Equal(t, Reveal{ChatID: "5511999990001"}, evt.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("no view.reveal event")
	}
	c, err := h.engine.Timeline("5511999990001")
	require.NoError(t, err)
	assert.Len(t, c.Messages, 1)
	assert.Equal(t, 0, c.UnreadCount)
}

func TestPushForClosedChatCountsUnread(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(t)
	h.waitPolled(t, 1)

	h.bus.Emit(bus.KindPushNewMsg, remote.Event{
		Kind: remote.EventNewMessage, ChatID: "B", HasRecord: true,
		Record: inboundRec("in-1", "hey", t0),
	})
	require.Eventually(t, func() bool {
		c, err := h.engine.Timeline("B")
		return err == nil && c.UnreadCount == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestMessageSentWithoutBodyReloadsChat(t *testing.T) {
	h := newHarness(t, Options{})
	h.remote.messages["B"] = store.Snapshot{ChatID: "B", Messages: []store.Record{
		{ID: "srv-9", Direction: store.Outbound, Text: "sent elsewhere", Timestamp: t0, Status: store.StatusSent},
	}}
	h.start(t)
	h.waitPolled(t, 1)

	h.bus.Emit(bus.KindPushMsgSent, remote.Event{Kind: remote.EventMessageSent, ChatID: "B"})
	require.Eventually(t, func() bool {
		c, err := h.engine.Timeline("B")
		return err == nil && len(c.Messages) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStartChat(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(t)

	_, err := h.engine.StartChat(context.Background(), "12ab")
	assert.True(t, errs.Is(err, errs.CodeInvalidArgument))

	c, err := h.engine.StartChat(context.Background(), " 5511999990001 ")
	require.NoError(t, err)
	assert.Equal(t, "5511999990001", c.ID)
	assert.Equal(t, "+5511999990001", c.Name)
	assert.Equal(t, "5511999990001", h.engine.OpenChat())
}

func TestSelectChat(t *testing.T) {
	h := newHarness(t, Options{}, store.Snapshot{ChatID: "A", Unread: 3})
	h.start(t)
	h.waitPolled(t, 1)

	err := h.engine.SelectChat(context.Background(), "missing")
	assert.True(t, errs.Is(err, errs.CodeNotFound))

	require.NoError(t, h.engine.SelectChat(context.Background(), "A"))
	c, err := h.engine.Timeline("A")
	require.NoError(t, err)
	assert.Equal(t, 0, c.UnreadCount)
	require.Eventually(t, func() bool { return h.remote.msgCalls.Load() >= 1 }, time.Second, 5*time.Millisecond)
}

func TestPollsOnlyWhileVisible(t *testing.T) {
	h := newHarness(t, Options{PollInterval: 10 * time.Millisecond})
	h.start(t)
	h.waitPolled(t, 1)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), h.remote.listCalls.Load())

	require.NoError(t, h.engine.SetVisible(context.Background(), true))
	assert.True(t, h.engine.Visible())
	h.waitPolled(t, 3)

	require.NoError(t, h.engine.SetVisible(context.Background(), false))
	time.Sleep(30 * time.Millisecond)
	n := h.remote.listCalls.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, n, h.remote.listCalls.Load())
}

func TestLiveConnectionTriggersPoll(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(t)
	h.waitPolled(t, 1)
	require.NoError(t, h.engine.SetVisible(context.Background(), true))
	h.waitPolled(t, 2)

	h.bus.Emit(bus.KindConnState, status.StatusChange{From: status.Connecting, To: status.Live})
	h.waitPolled(t, 3)
}

func TestLiveConnectionWhileHiddenDoesNotPoll(t *testing.T) {
	h := newHarness(t, Options{})
	h.start(t)
	h.waitPolled(t, 1)

	h.bus.Emit(bus.KindConnState, status.StatusChange{From: status.Connecting, To: status.Live})
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), h.remote.listCalls.Load())
	assert.Equal(t, int32(1), h.resync.n.Load())
}

func TestSearch(t *testing.T) {
	h := newHarness(t, Options{},
		store.Snapshot{ChatID: "A", Name: "Alice", Messages: []store.Record{inboundRec("m1", "lunch?", t0)}},
		store.Snapshot{ChatID: "B", Name: "Bob"},
	)
	h.start(t)
	h.waitPolled(t, 1)

	assert.Len(t, h.engine.Search(""), 2)
	got := h.engine.Search("LUNCH")
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].ID)
}

func TestCommandsAfterStop(t *testing.T) {
	h := newHarness(t, Options{})
	h.engine.Start(context.Background())
	h.engine.Stop()

	err := h.engine.Refresh(context.Background())
	assert.True(t, errs.Is(err, errs.CodeFailedPrecondition))
}
