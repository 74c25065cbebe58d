// Package supervisor owns the connection to the backend: REST reachability
// probes and the push channel lifecycle. It never touches chat data; push
// events leave through the bus.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/matheus3301/inbox/internal/bus"
	"github.com/matheus3301/inbox/internal/errs"
	"github.com/matheus3301/inbox/internal/remote"
	"github.com/matheus3301/inbox/internal/status"
)

// Prober answers whether the backend is reachable.
type Prober interface {
	Health(ctx context.Context) error
}

// Dialer opens the push channel.
type Dialer interface {
	Dial(ctx context.Context) (remote.PushConn, error)
}

// Options tunes reconnection and probing.
type Options struct {
	MaxAttempts   int
	Backoff       time.Duration
	Heartbeat     time.Duration
	ProbeInterval time.Duration
	ProbeTimeout  time.Duration
}

// Reachability is the payload of bus.KindReachability.
type Reachability struct {
	Reachable bool
}

// Supervisor runs the push channel and the reachability probe.
type Supervisor struct {
	opts    Options
	prober  Prober
	dialer  Dialer
	machine *status.Machine
	bus     *bus.Bus
	logger  *zap.Logger

	resync chan struct{}

	mu        sync.RWMutex
	reachable *bool
	health    *health.Server
	services  []string
}

// New creates a Supervisor. State changes go through machine.
func New(opts Options, prober Prober, dialer Dialer, machine *status.Machine, b *bus.Bus, logger *zap.Logger) *Supervisor {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 10
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 5 * time.Second
	}
	return &Supervisor{
		opts:    opts,
		prober:  prober,
		dialer:  dialer,
		machine: machine,
		bus:     b,
		logger:  logger,
		resync:  make(chan struct{}, 1),
	}
}

// ReportHealth makes every reachability result update h for the given
// services ("" is the server as a whole).
func (s *Supervisor) ReportHealth(h *health.Server, services ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.health = h
	s.services = append([]string{""}, services...)
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if s.reachable != nil && *s.reachable {
		st = healthpb.HealthCheckResponse_SERVING
	}
	for _, svc := range s.services {
		h.SetServingStatus(svc, st)
	}
}

// State returns the push channel state.
func (s *Supervisor) State() status.State {
	return s.machine.Current()
}

// Reachable returns the last probe result (false before the first probe).
func (s *Supervisor) Reachable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reachable != nil && *s.reachable
}

// CheckReachability probes the backend once. A failure only changes state.
func (s *Supervisor) CheckReachability(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ProbeTimeout)
	defer cancel()

	err := s.prober.Health(ctx)
	ok := err == nil

	s.mu.Lock()
	changed := s.reachable == nil || *s.reachable != ok
	s.reachable = &ok
	if changed && s.health != nil {
		st := healthpb.HealthCheckResponse_NOT_SERVING
		if ok {
			st = healthpb.HealthCheckResponse_SERVING
		}
		for _, svc := range s.services {
			s.health.SetServingStatus(svc, st)
		}
	}
	s.mu.Unlock()

	if changed {
		if ok {
			s.logger.Info("backend reachable")
		} else {
			s.logger.Warn("backend unreachable", zap.Error(err))
		}
		s.bus.Emit(bus.KindReachability, Reachability{Reachable: ok})
	}
	return ok
}

// Resynced tells the supervisor a poll succeeded. When the push channel has
// given up, this starts a new round of connection attempts.
func (s *Supervisor) Resynced() {
	select {
	case s.resync <- struct{}{}:
	default:
	}
}

// Run probes reachability and keeps the push channel open until ctx ends.
func (s *Supervisor) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.probeLoop(ctx)
	}()
	defer wg.Wait()

	for {
		// Drop resync signals that arrived while connected.
		select {
		case <-s.resync:
		default:
		}
		err := s.OpenPushChannel(ctx)
		if ctx.Err() != nil {
			s.transition(status.Disconnected)
			return
		}
		s.logger.Warn("push channel idle until next resync", zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-s.resync:
			s.logger.Info("resync received, reconnecting push channel")
		}
	}
}

func (s *Supervisor) probeLoop(ctx context.Context) {
	if s.opts.ProbeInterval <= 0 {
		return
	}
	s.CheckReachability(ctx)
	ticker := time.NewTicker(s.opts.ProbeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckReachability(ctx)
		}
	}
}

// OpenPushChannel runs one round of connection attempts. A connection that
// drops after going live starts the attempt count over. It returns when ctx
// ends or after MaxAttempts consecutive failures, leaving the state
// Disconnected.
func (s *Supervisor) OpenPushChannel(ctx context.Context) error {
	var lastErr error
	attempts := 0
	for attempts < s.opts.MaxAttempts {
		s.transition(status.Connecting)
		conn, err := s.dialer.Dial(ctx)
		if ctx.Err() != nil {
			if conn != nil {
				_ = conn.Close()
			}
			return ctx.Err()
		}
		if err != nil {
			attempts++
			lastErr = err
			s.logger.Warn("push dial failed",
				zap.Int("attempt", attempts),
				zap.Int("max_attempts", s.opts.MaxAttempts),
				zap.Error(err),
			)
			s.transition(status.Degraded)
			if attempts < s.opts.MaxAttempts && !s.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}

		attempts = 0
		s.transition(status.Live)
		s.logger.Info("push channel live")
		err = s.serve(ctx, conn)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
		s.logger.Warn("push channel dropped", zap.Error(err))
		s.transition(status.Degraded)
		if !s.sleep(ctx) {
			return ctx.Err()
		}
	}
	s.transition(status.Disconnected)
	return errs.Lifecycle(fmt.Sprintf("push channel gave up after %d attempts", attempts), lastErr)
}

// serve reads events and sends heartbeats until either fails.
func (s *Supervisor) serve(ctx context.Context, conn remote.PushConn) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer func() { _ = conn.Close() }()

	errc := make(chan error, 2)
	go func() {
		for {
			ev, err := conn.Next(ctx)
			if err != nil {
				errc <- err
				return
			}
			s.publish(ev)
		}
	}()
	if s.opts.Heartbeat > 0 {
		go func() {
			ticker := time.NewTicker(s.opts.Heartbeat)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					pctx, pcancel := context.WithTimeout(ctx, s.opts.Heartbeat)
					err := conn.Ping(pctx)
					pcancel()
					if err != nil {
						errc <- err
						return
					}
				}
			}
		}()
	}
	return <-errc
}

func (s *Supervisor) publish(ev remote.Event) {
	switch ev.Kind {
	case remote.EventNewMessage:
		s.bus.Emit(bus.KindPushNewMsg, ev)
	case remote.EventMessageSent:
		s.bus.Emit(bus.KindPushMsgSent, ev)
	default:
		return
	}
	s.logger.Debug("push event", zap.Stringer("event", ev))
}

func (s *Supervisor) sleep(ctx context.Context) bool {
	t := time.NewTimer(s.opts.Backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *Supervisor) transition(to status.State) {
	if err := s.machine.Transition(to); err != nil {
		s.logger.Error("connection state", zap.Error(err))
	}
}
