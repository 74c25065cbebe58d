package sync

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/matheus3301/inbox/internal/bus"
	"github.com/matheus3301/inbox/internal/remote"
	"github.com/matheus3301/inbox/internal/store"
)

// intake is a value processed on the engine goroutine. apply returns the ids
// of the chats it changed.
type intake interface {
	apply(e *Engine) []string
}

// pollResult is the answer of one full-list poll.
type pollResult struct {
	gen   uint64
	snaps []store.Snapshot
	err   error
}

func (r pollResult) apply(e *Engine) []string {
	if r.gen != e.pollGen {
		e.logger.Debug("stale poll result dropped", zap.Uint64("gen", r.gen), zap.Uint64("current", e.pollGen))
		return nil
	}
	if e.pollCancel != nil {
		e.pollCancel()
		e.pollCancel = nil
	}
	if r.err != nil {
		if errors.Is(r.err, context.Canceled) {
			return nil
		}
		e.logger.Warn("poll failed", zap.Error(r.err))
		e.bus.Emit(bus.KindPollFailed, PollFailure{Reason: r.err.Error()})
		return nil
	}

	var changed []string
	for _, snap := range r.snaps {
		ok, err := e.store.UpsertChatSnapshot(snap)
		if err != nil {
			e.logger.Warn("chat snapshot discarded", zap.String("chat", snap.ChatID), zap.Error(err))
			continue
		}
		if ok {
			changed = append(changed, snap.ChatID)
		}
	}
	e.logger.Debug("poll applied", zap.Int("chats", len(r.snaps)), zap.Int("changed", len(changed)))
	e.bus.Emit(bus.KindPollCompleted, PollSummary{Chats: len(r.snaps), Changed: len(changed)})
	if e.resync != nil {
		e.resync.Resynced()
	}
	return changed
}

// chatMessagesResult is one chat's timeline, loaded when the chat is opened
// or when a push announced activity without content.
type chatMessagesResult struct {
	chatID string
	snap   store.Snapshot
	err    error
}

func (r chatMessagesResult) apply(e *Engine) []string {
	if r.err != nil {
		if !errors.Is(r.err, context.Canceled) {
			e.logger.Warn("failed to load messages", zap.String("chat", r.chatID), zap.Error(r.err))
		}
		return nil
	}
	ok, err := e.store.UpsertChatSnapshot(r.snap)
	if err != nil {
		e.logger.Warn("message snapshot discarded", zap.String("chat", r.chatID), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	return []string{r.chatID}
}

// pushIntake is one event from the push channel.
type pushIntake struct {
	ev remote.Event
}

func (p pushIntake) apply(e *Engine) []string {
	if !p.ev.HasRecord {
		e.loadMessages(p.ev.ChatID)
		return nil
	}
	changed, err := e.store.ApplyPushEvent(p.ev.ChatID, p.ev.Record)
	if err != nil {
		e.logger.Warn("push event discarded", zap.Stringer("event", p.ev), zap.Error(err))
		return nil
	}
	if !changed {
		return nil
	}
	if p.ev.ChatID == e.store.OpenChat() {
		e.bus.Emit(bus.KindViewReveal, Reveal{ChatID: p.ev.ChatID})
	}
	return []string{p.ev.ChatID}
}

// sendResult is the outcome of an outbox job.
type sendResult struct {
	tempID string
	out    store.Outcome
}

func (r sendResult) apply(e *Engine) []string {
	chatID, changed := e.store.ResolveSend(r.tempID, r.out)
	if chatID == "" {
		return nil
	}
	if msg, ok := e.store.Lookup(r.tempID); ok && msg.Status == store.StatusSent {
		e.scheduleDelivered(r.tempID)
	}
	if !changed {
		return nil
	}
	return []string{chatID}
}

// deliveredFallback promotes a sent message the backend never reported as
// delivered.
type deliveredFallback struct {
	tempID string
}

func (d deliveredFallback) apply(e *Engine) []string {
	msg, ok := e.store.Lookup(d.tempID)
	if !ok || msg.Status != store.StatusSent {
		return nil
	}
	chatID, changed := e.store.ResolveSend(d.tempID, store.Outcome{Status: store.StatusDelivered})
	if !changed {
		return nil
	}
	return []string{chatID}
}

// command runs a user action on the engine goroutine.
type command struct {
	name  string
	run   func(e *Engine) ([]string, any, error)
	reply chan commandReply
}

type commandReply struct {
	result any
	err    error
}

func (c command) apply(e *Engine) []string {
	changed, result, err := c.run(e)
	if err != nil {
		e.logger.Debug("command failed", zap.String("command", c.name), zap.Error(err))
	}
	if c.reply != nil {
		c.reply <- commandReply{result: result, err: err}
	}
	return changed
}
