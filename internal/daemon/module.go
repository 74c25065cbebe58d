package daemon

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"google.golang.org/grpc/health"

	"github.com/matheus3301/inbox/internal/api"
	"github.com/matheus3301/inbox/internal/bus"
	"github.com/matheus3301/inbox/internal/config"
	"github.com/matheus3301/inbox/internal/inboxv1"
	"github.com/matheus3301/inbox/internal/ledger"
	"github.com/matheus3301/inbox/internal/lock"
	"github.com/matheus3301/inbox/internal/logging"
	"github.com/matheus3301/inbox/internal/outbox"
	"github.com/matheus3301/inbox/internal/remote"
	"github.com/matheus3301/inbox/internal/session"
	"github.com/matheus3301/inbox/internal/status"
	"github.com/matheus3301/inbox/internal/store"
	"github.com/matheus3301/inbox/internal/supervisor"
	intsync "github.com/matheus3301/inbox/internal/sync"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	SocketPath  string         // optional override for testing; empty = use default
	Config      *config.Config // optional override; nil = load ~/.inbox/config.toml
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideLedger,
			provideStore,
			provideRemoteClient,
			provideDialer,
			provideHealth,
			provideSupervisor,
			provideSender,
			provideEngine,
			provideInboxService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	if p.Config != nil {
		return p.Config, nil
	}
	return config.LoadOrDefault(session.ConfigPath())
}

func provideLogger(p Params, cfg *config.Config) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName, cfg.LogLevel)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

func provideLedger(cfg *config.Config, logger *zap.Logger) (*ledger.DB, error) {
	db, err := ledger.Open(cfg.Ledger.DSN)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("send ledger initialized", zap.String("dsn", cfg.Ledger.DSN))
	return db, nil
}

func provideStore(cfg *config.Config, logger *zap.Logger) *store.Store {
	return store.New(logger, store.WithEchoTolerance(cfg.Sync.EchoTolerance.Duration))
}

func provideRemoteClient(cfg *config.Config, logger *zap.Logger) *remote.Client {
	return remote.NewClient(remote.Options{
		BaseURL:    cfg.Backend.BaseURL,
		APIPrefix:  cfg.Backend.APIPrefix,
		HealthPath: cfg.Backend.HealthPath,
		Timeout:    cfg.Backend.RequestTimeout.Duration,
	}, logger)
}

func provideDialer(cfg *config.Config, logger *zap.Logger) *remote.Dialer {
	return remote.NewDialer(cfg.Backend.BaseURL, cfg.Backend.PushPath, logger)
}

func provideHealth() *health.Server {
	return health.NewServer()
}

func provideSupervisor(cfg *config.Config, client *remote.Client, dialer *remote.Dialer, m *status.Machine, h *health.Server, b *bus.Bus, logger *zap.Logger) *supervisor.Supervisor {
	sup := supervisor.New(supervisor.Options{
		MaxAttempts:   cfg.Push.MaxAttempts,
		Backoff:       cfg.Push.Backoff.Duration,
		Heartbeat:     cfg.Push.Heartbeat.Duration,
		ProbeInterval: cfg.Sync.ProbeInterval.Duration,
		ProbeTimeout:  cfg.Backend.RequestTimeout.Duration,
	}, client, dialer, m, b, logger)
	sup.ReportHealth(h, inboxv1.ServiceName)
	return sup
}

func provideSender(cfg *config.Config, client *remote.Client, db *ledger.DB, b *bus.Bus, logger *zap.Logger) *outbox.Sender {
	return outbox.NewSender(outbox.Options{
		Workers:   cfg.Outbox.Workers,
		QueueSize: cfg.Outbox.QueueSize,
		Timeout:   cfg.Sync.SendTimeout.Duration,
	}, client, db, b, logger)
}

func provideEngine(cfg *config.Config, st *store.Store, client *remote.Client, sender *outbox.Sender, sup *supervisor.Supervisor, b *bus.Bus, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(intsync.Options{
		PollInterval:     cfg.Sync.PollInterval.Duration,
		DeliveryFallback: cfg.Sync.DeliveryFallback.Duration,
	}, st, client, sender, sup, b, logger)
}

func provideInboxService(p Params, cfg *config.Config, engine *intsync.Engine, m *status.Machine, sup *supervisor.Supervisor, db *ledger.DB, b *bus.Bus) *api.InboxService {
	return api.NewInboxService(api.Options{
		SessionName: p.SessionName,
		BackendURL:  cfg.Backend.BaseURL,
	}, engine, m, sup, db, b)
}

// The lock is resolved before the server so a second daemon fails before it
// touches the live socket.
func registerLifecycle(lc fx.Lifecycle, lk *lock.Lock, srv *Server, db *ledger.DB, engine *intsync.Engine, sender *outbox.Sender, sup *supervisor.Supervisor, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	supDone := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Engine first so its push subscription exists before the channel opens.
			engine.Start(ctx)
			sender.Start(ctx, engine.ReportSend)

			go func() {
				defer close(supDone)
				sup.Run(ctx)
			}()

			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-supDone:
			case <-stopCtx.Done():
			}
			sender.Stop()
			engine.Stop()
			srv.Stop(stopCtx)

			err := multierr.Combine(db.Close(), lk.Release())
			if err != nil {
				logger.Warn("error during shutdown", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return err
		},
	})
}
