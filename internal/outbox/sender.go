package outbox

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/inbox/internal/bus"
	"github.com/matheus3301/inbox/internal/errs"
	"github.com/matheus3301/inbox/internal/ledger"
	"github.com/matheus3301/inbox/internal/remote"
	"github.com/matheus3301/inbox/internal/store"
)

// TextSender posts a message to the backend.
type TextSender interface {
	Send(ctx context.Context, req remote.SendRequest) (remote.SendResult, error)
}

// Job is one optimistic message waiting to be sent.
type Job struct {
	TempID  string
	ChatID  string
	Text    string
	RetryOf string
}

// ReportFunc receives the outcome of a job. It is called at most twice per
// job: once with the first outcome and, after a timeout, once more if the
// backend still acknowledges the send.
type ReportFunc func(tempID string, out store.Outcome)

// Options sizes the worker pool.
type Options struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// SendFailure is the payload of bus.KindSendFailed.
type SendFailure struct {
	TempID string
	ChatID string
	Reason string
}

// LateAck is the payload of bus.KindLateAck.
type LateAck struct {
	TempID   string
	ChatID   string
	ServerID string
}

// ErrTimedOut is the failure reason for sends the backend did not answer in time.
var ErrTimedOut = errors.New("send timed out")

// Sender drains the job queue with a fixed pool of workers.
type Sender struct {
	opts   Options
	client TextSender
	db     *ledger.DB
	bus    *bus.Bus
	logger *zap.Logger

	jobs   chan Job
	report ReportFunc
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSender creates a new outbox sender. db may be nil, in which case
// attempts are not recorded.
func NewSender(opts Options, client TextSender, db *ledger.DB, b *bus.Bus, logger *zap.Logger) *Sender {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &Sender{
		opts:   opts,
		client: client,
		db:     db,
		bus:    b,
		logger: logger,
		jobs:   make(chan Job, opts.QueueSize),
	}
}

// Start launches the workers. Outcomes go to report.
func (s *Sender) Start(ctx context.Context, report ReportFunc) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.report = report
	for i := 0; i < s.opts.Workers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.worker(ctx)
		}()
	}
}

// Stop stops the workers and waits for in-flight sends to return.
func (s *Sender) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Enqueue queues a job without blocking. A full queue is a transient error.
func (s *Sender) Enqueue(job Job) error {
	select {
	case s.jobs <- job:
		return nil
	default:
		return errs.Transient("outbox queue full", nil)
	}
}

func (s *Sender) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.jobs:
			s.process(ctx, job)
		}
	}
}

func (s *Sender) process(ctx context.Context, job Job) {
	log := s.logger.With(zap.String("temp_id", job.TempID), zap.String("chat_id", job.ChatID))
	if s.db != nil {
		if err := s.db.Record(ctx, ledger.Send{TempID: job.TempID, ChatID: job.ChatID, Body: job.Text, RetryOf: job.RetryOf}); err != nil {
			log.Error("failed to record send", zap.Error(err))
		}
	}

	// The first of the timer and the HTTP call to finish decides the outcome.
	var decided atomic.Bool
	timer := time.AfterFunc(s.opts.Timeout, func() {
		if !decided.CompareAndSwap(false, true) {
			return
		}
		log.Warn("send timed out", zap.Duration("timeout", s.opts.Timeout))
		s.fail(ctx, job, ErrTimedOut.Error())
	})

	res, err := s.client.Send(ctx, remote.SendRequest{To: job.ChatID, Message: job.Text, TempID: job.TempID})
	timer.Stop()

	if decided.CompareAndSwap(false, true) {
		if err != nil {
			log.Error("failed to send message", zap.Error(err))
			s.fail(ctx, job, err.Error())
			return
		}
		if s.db != nil {
			if _, err := s.db.MarkSent(ctx, job.TempID, res.ServerID); err != nil {
				log.Error("failed to mark sent", zap.Error(err))
			}
		}
		log.Info("message sent", zap.String("server_id", res.ServerID))
		s.emit(job.TempID, store.Outcome{Status: store.StatusSent, ServerID: res.ServerID})
		return
	}

	// Timed out already.
	if err != nil {
		log.Debug("send failed after timeout", zap.Error(err))
		return
	}
	if s.db != nil {
		if _, err := s.db.MarkLateAck(ctx, job.TempID, res.ServerID); err != nil {
			log.Error("failed to mark late ack", zap.Error(err))
		}
	}
	log.Warn("late acknowledgement for timed out send", zap.String("server_id", res.ServerID))
	s.bus.Emit(bus.KindLateAck, LateAck{TempID: job.TempID, ChatID: job.ChatID, ServerID: res.ServerID})
	s.emit(job.TempID, store.Outcome{Status: store.StatusSent, ServerID: res.ServerID})
}

// Reject records a job that never reached the queue as failed. The caller
// resolves the message itself; report is not called.
func (s *Sender) Reject(ctx context.Context, job Job, reason string) {
	if s.db != nil {
		if err := s.db.Record(ctx, ledger.Send{TempID: job.TempID, ChatID: job.ChatID, Body: job.Text, RetryOf: job.RetryOf}); err != nil {
			s.logger.Error("failed to record send", zap.String("temp_id", job.TempID), zap.Error(err))
		} else if _, err := s.db.MarkFailed(ctx, job.TempID, reason); err != nil {
			s.logger.Error("failed to mark failed", zap.String("temp_id", job.TempID), zap.Error(err))
		}
	}
	s.bus.Emit(bus.KindSendFailed, SendFailure{TempID: job.TempID, ChatID: job.ChatID, Reason: reason})
}

func (s *Sender) fail(ctx context.Context, job Job, reason string) {
	if s.db != nil {
		if _, err := s.db.MarkFailed(ctx, job.TempID, reason); err != nil {
			s.logger.Error("failed to mark failed", zap.String("temp_id", job.TempID), zap.Error(err))
		}
	}
	s.bus.Emit(bus.KindSendFailed, SendFailure{TempID: job.TempID, ChatID: job.ChatID, Reason: reason})
	s.emit(job.TempID, store.Outcome{Status: store.StatusFailed, Reason: reason})
}

func (s *Sender) emit(tempID string, out store.Outcome) {
	if s.report != nil {
		s.report(tempID, out)
	}
}
