package sync

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/inbox/internal/bus"
	"github.com/matheus3301/inbox/internal/errs"
	"github.com/matheus3301/inbox/internal/outbox"
	"github.com/matheus3301/inbox/internal/remote"
	"github.com/matheus3301/inbox/internal/status"
	"github.com/matheus3301/inbox/internal/store"
)

// Remote fetches chat state from the backend.
type Remote interface {
	ListChats(ctx context.Context) ([]store.Snapshot, error)
	ListMessages(ctx context.Context, chatID string) (store.Snapshot, error)
}

// Dispatcher hands optimistic messages to the network.
type Dispatcher interface {
	Enqueue(job outbox.Job) error
	Reject(ctx context.Context, job outbox.Job, reason string)
}

// Resyncer is told about every successful poll.
type Resyncer interface {
	Resynced()
}

// Options tunes the engine.
type Options struct {
	PollInterval     time.Duration
	DeliveryFallback time.Duration
}

// Change is the payload of bus.KindStoreChanged.
type Change struct {
	ChatIDs []string
}

// Reveal is the payload of bus.KindViewReveal: new content arrived in the
// open chat.
type Reveal struct {
	ChatID string
}

// PollSummary is the payload of bus.KindPollCompleted.
type PollSummary struct {
	Chats   int
	Changed int
}

// PollFailure is the payload of bus.KindPollFailed.
type PollFailure struct {
	Reason string
}

// Engine merges polls, push events and optimistic sends into the store. All
// store mutations happen on its single goroutine.
type Engine struct {
	opts   Options
	store  *store.Store
	remote Remote
	outbox Dispatcher
	resync Resyncer
	bus    *bus.Bus
	logger *zap.Logger

	intake  chan intake
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	visible atomic.Bool

	// Owned by the engine goroutine.
	pollGen    uint64
	pollCancel context.CancelFunc
}

// NewEngine creates a new sync engine. resync may be nil.
func NewEngine(opts Options, st *store.Store, r Remote, d Dispatcher, resync Resyncer, b *bus.Bus, logger *zap.Logger) *Engine {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 30 * time.Second
	}
	if opts.DeliveryFallback <= 0 {
		opts.DeliveryFallback = 5 * time.Second
	}
	return &Engine{
		opts:   opts,
		store:  st,
		remote: r,
		outbox: d,
		resync: resync,
		bus:    b,
		logger: logger,
		intake: make(chan intake, 64),
		ctx:    context.Background(),
		done:   make(chan struct{}),
	}
}

// Start launches the engine goroutine and the first poll.
func (e *Engine) Start(ctx context.Context) {
	e.ctx, e.cancel = context.WithCancel(ctx)
	pushes, unsubPush := e.bus.Subscribe("push.", 256)
	conns, unsubConn := e.bus.Subscribe(bus.KindConnState, 16)

	go func() {
		defer close(e.done)
		defer unsubPush()
		defer unsubConn()
		e.run(pushes, conns)
	}()
}

// Stop stops the engine and waits for its goroutine to exit.
func (e *Engine) Stop() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
}

func (e *Engine) run(pushes, conns <-chan bus.Event) {
	ticker := time.NewTicker(e.opts.PollInterval)
	defer ticker.Stop()

	e.startPoll("startup")
	for {
		select {
		case <-e.ctx.Done():
			if e.pollCancel != nil {
				e.pollCancel()
			}
			return
		case in := <-e.intake:
			e.apply(in)
		case evt := <-pushes:
			if ev, ok := evt.Payload.(remote.Event); ok {
				e.apply(pushIntake{ev: ev})
			}
		case evt := <-conns:
			change, ok := evt.Payload.(status.StatusChange)
			if ok && change.To == status.Live && e.visible.Load() {
				e.startPoll("push channel live")
			}
		case <-ticker.C:
			if e.visible.Load() {
				e.startPoll("interval")
			}
		}
	}
}

func (e *Engine) apply(in intake) {
	changed := in.apply(e)
	if len(changed) > 0 {
		e.bus.Emit(bus.KindStoreChanged, Change{ChatIDs: changed})
	}
}

// post delivers a result from a network goroutine to the engine.
func (e *Engine) post(in intake) {
	select {
	case e.intake <- in:
	case <-e.ctx.Done():
	}
}

// startPoll cancels the poll in flight, if any, and starts a new generation.
func (e *Engine) startPoll(reason string) {
	if e.pollCancel != nil {
		e.pollCancel()
	}
	e.pollGen++
	gen := e.pollGen
	ctx, cancel := context.WithCancel(e.ctx)
	e.pollCancel = cancel
	open := e.store.OpenChat()
	e.logger.Debug("poll started", zap.String("reason", reason), zap.Uint64("gen", gen))

	go func() {
		snaps, err := e.remote.ListChats(ctx)
		if err == nil && open != "" {
			snap, mErr := e.remote.ListMessages(ctx, open)
			if mErr != nil {
				e.logger.Warn("failed to refresh open chat", zap.String("chat", open), zap.Error(mErr))
			} else {
				snaps = append(snaps, snap)
			}
		}
		e.post(pollResult{gen: gen, snaps: snaps, err: err})
	}()
}

func (e *Engine) loadMessages(chatID string) {
	ctx := e.ctx
	go func() {
		snap, err := e.remote.ListMessages(ctx, chatID)
		e.post(chatMessagesResult{chatID: chatID, snap: snap, err: err})
	}()
}

func (e *Engine) scheduleDelivered(tempID string) {
	time.AfterFunc(e.opts.DeliveryFallback, func() {
		e.post(deliveredFallback{tempID: tempID})
	})
}

// ReportSend feeds an outbox outcome back into the engine.
func (e *Engine) ReportSend(tempID string, out store.Outcome) {
	e.post(sendResult{tempID: tempID, out: out})
}

func (e *Engine) submit(ctx context.Context, in intake) error {
	select {
	case e.intake <- in:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return errs.FailedPrecondition("sync engine stopped")
	}
}

// call runs fn on the engine goroutine and waits for its result.
func call[T any](ctx context.Context, e *Engine, name string, fn func(e *Engine) ([]string, T, error)) (T, error) {
	var zero T
	reply := make(chan commandReply, 1)
	cmd := command{
		name: name,
		run: func(e *Engine) ([]string, any, error) {
			return fn(e)
		},
		reply: reply,
	}
	if err := e.submit(ctx, cmd); err != nil {
		return zero, err
	}
	select {
	case r := <-reply:
		if r.err != nil {
			return zero, r.err
		}
		return r.result.(T), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-e.done:
		return zero, errs.FailedPrecondition("sync engine stopped")
	}
}

// SelectChat opens a chat: its unread count is cleared and its timeline reloaded.
func (e *Engine) SelectChat(ctx context.Context, chatID string) error {
	_, err := call(ctx, e, "select_chat", func(e *Engine) ([]string, struct{}, error) {
		changed, err := e.store.SetOpenChat(chatID)
		if err != nil {
			return nil, struct{}{}, err
		}
		if chatID != "" {
			e.loadMessages(chatID)
		}
		if !changed || chatID == "" {
			return nil, struct{}{}, nil
		}
		return []string{chatID}, struct{}{}, nil
	})
	return err
}

// StartChat creates (or reopens) a conversation with number and opens it.
func (e *Engine) StartChat(ctx context.Context, number string) (store.Chat, error) {
	number = strings.TrimSpace(number)
	if err := store.ValidateNumber(number); err != nil {
		return store.Chat{}, err
	}
	return call(ctx, e, "start_chat", func(e *Engine) ([]string, store.Chat, error) {
		_, created := e.store.EnsureChat(number, "")
		if _, err := e.store.SetOpenChat(number); err != nil {
			return nil, store.Chat{}, err
		}
		e.loadMessages(number)
		c, _ := e.store.Chat(number)
		if created {
			e.logger.Info("chat started", zap.String("chat", number))
		}
		return []string{number}, c, nil
	})
}

// SendMessage shows text in chatID immediately as pending and queues it.
func (e *Engine) SendMessage(ctx context.Context, chatID, text string) (store.Message, error) {
	if strings.TrimSpace(text) == "" {
		return store.Message{}, errs.InvalidArg("message text is empty")
	}
	if chatID == "" {
		return store.Message{}, errs.InvalidArg("chat id is required")
	}
	return call(ctx, e, "send_message", func(e *Engine) ([]string, store.Message, error) {
		return e.send(chatID, text, "")
	})
}

// Retry resubmits a failed message as a new pending one. The failed message
// stays in the timeline.
func (e *Engine) Retry(ctx context.Context, tempID string) (store.Message, error) {
	return call(ctx, e, "retry", func(e *Engine) ([]string, store.Message, error) {
		msg, ok := e.store.Lookup(tempID)
		if !ok {
			return nil, store.Message{}, errs.NotFound("send " + tempID)
		}
		if msg.Status != store.StatusFailed {
			return nil, store.Message{}, errs.FailedPrecondition("only failed messages can be retried, " + tempID + " is " + string(msg.Status))
		}
		return e.send(msg.ChatID, msg.Text, tempID)
	})
}

func (e *Engine) send(chatID, text, retryOf string) ([]string, store.Message, error) {
	msg, err := e.store.BeginOptimisticSend(chatID, text, retryOf)
	if err != nil {
		return nil, store.Message{}, err
	}
	job := outbox.Job{TempID: msg.TempID, ChatID: chatID, Text: text, RetryOf: retryOf}
	if err := e.outbox.Enqueue(job); err != nil {
		e.logger.Warn("send not queued", zap.String("temp_id", msg.TempID), zap.Error(err))
		e.outbox.Reject(e.ctx, job, err.Error())
		e.store.ResolveSend(msg.TempID, store.Outcome{Status: store.StatusFailed, Reason: err.Error()})
		msg, _ = e.store.Lookup(msg.TempID)
	}
	return []string{chatID}, msg, nil
}

// Refresh starts a poll now.
func (e *Engine) Refresh(ctx context.Context) error {
	_, err := call(ctx, e, "refresh", func(e *Engine) ([]string, struct{}, error) {
		e.startPoll("refresh")
		return nil, struct{}{}, nil
	})
	return err
}

// SetVisible tells the engine whether a view is showing. Interval polls and
// polls on reconnect only run while visible; becoming visible polls at once.
// The startup poll runs regardless so the store is filled before any view attaches.
func (e *Engine) SetVisible(ctx context.Context, visible bool) error {
	_, err := call(ctx, e, "set_visible", func(e *Engine) ([]string, struct{}, error) {
		was := e.visible.Swap(visible)
		if visible && !was {
			e.startPoll("visible")
		}
		return nil, struct{}{}, nil
	})
	return err
}

// Visible reports whether a view is showing.
func (e *Engine) Visible() bool {
	return e.visible.Load()
}

// Chats returns every chat, most recent activity first.
func (e *Engine) Chats() []store.Chat {
	return e.store.Chats()
}

// Search filters the chat list by name or message text.
func (e *Engine) Search(query string) []store.Chat {
	return store.Search(e.store.Chats(), query)
}

// Timeline returns one chat with its messages.
func (e *Engine) Timeline(chatID string) (store.Chat, error) {
	c, ok := e.store.Chat(chatID)
	if !ok {
		return store.Chat{}, errs.NotFound("chat " + chatID)
	}
	return c, nil
}

// OpenChat returns the id of the open chat, or "".
func (e *Engine) OpenChat() string {
	return e.store.OpenChat()
}
