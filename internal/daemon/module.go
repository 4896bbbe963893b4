package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/matheus3301/rolechat/internal/bus"
	"github.com/matheus3301/rolechat/internal/chat"
	"github.com/matheus3301/rolechat/internal/config"
	"github.com/matheus3301/rolechat/internal/delivery"
	"github.com/matheus3301/rolechat/internal/directory"
	"github.com/matheus3301/rolechat/internal/httpapi"
	"github.com/matheus3301/rolechat/internal/lock"
	"github.com/matheus3301/rolechat/internal/logging"
	"github.com/matheus3301/rolechat/internal/message"
	"github.com/matheus3301/rolechat/internal/metrics"
	"github.com/matheus3301/rolechat/internal/rpc"
	"github.com/matheus3301/rolechat/internal/status"
	"github.com/matheus3301/rolechat/internal/store"
	"github.com/matheus3301/rolechat/internal/translate"
	"github.com/matheus3301/rolechat/internal/workspace"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Params holds the resolved workspace configuration passed to the fx module.
type Params struct {
	Workspace  string
	Config     *config.Config
	SocketPath string // optional override for testing; empty = use default
	LogLevel   zapcore.Level
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	if p.Config == nil {
		p.Config = config.Default()
	}
	return fx.Module("daemon",
		fx.Supply(p, p.Config),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			providePersister,
			provideLog,
			provideDirectory,
			provideSimulator,
			provideFlusher,
			provideRegistry,
			provideMetrics,
			provideTranslator,
			provideChatService,
			provideHTTPServer,
			provideRPCHandler,
			provideRPCServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(workspace.LogPath(p.Workspace), p.Workspace, p.LogLevel)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := workspace.EnsureDir(p.Workspace); err != nil {
		return nil, err
	}
	logger.Info("acquiring workspace lock", zap.String("workspace", p.Workspace))
	l, err := lock.Acquire(workspace.Dir(p.Workspace))
	if err != nil {
		return nil, err
	}
	logger.Info("workspace lock acquired")
	return l, nil
}

// providePersister takes the lock to run only once the workspace is owned.
func providePersister(lc fx.Lifecycle, p Params, cfg *config.Config, _ *lock.Lock, logger *zap.Logger) (store.Persister, error) {
	switch cfg.Storage.Backend {
	case config.BackendJSON:
		dir := workspace.JSONDir(p.Workspace)
		logger.Info("store initialized", zap.String("backend", config.BackendJSON), zap.String("path", dir))
		return store.NewJSONFile(dir), nil
	case config.BackendSQLite, "":
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	dbPath := workspace.DBPath(p.Workspace)
	db, err := store.Open(dbPath)
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
	logger.Info("store initialized", zap.String("backend", config.BackendSQLite), zap.String("path", dbPath))

	lc.Append(fx.Hook{OnStop: func(context.Context) error { return db.Close() }})
	return db, nil
}

func provideLog(b *bus.Bus) *message.Log {
	return message.NewLog(b)
}

func provideDirectory(b *bus.Bus) *directory.Directory {
	return directory.New(b)
}

func provideSimulator(log *message.Log, cfg *config.Config, logger *zap.Logger) *delivery.Simulator {
	sim := delivery.NewSimulator(log, cfg.Delivery.ReadDelay, logger)
	log.SetScheduler(sim)
	return sim
}

func provideFlusher(p store.Persister, log *message.Log, dir *directory.Directory, cfg *config.Config, logger *zap.Logger) *store.Flusher {
	return store.NewFlusher(p, log, dir, cfg.Storage.FlushInterval, logger)
}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func provideMetrics(reg *prometheus.Registry, log *message.Log, sim *delivery.Simulator) *metrics.Metrics {
	return metrics.New(reg,
		func() float64 { return float64(log.Len()) },
		func() float64 { return float64(sim.Pending()) },
	)
}

func provideTranslator(cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) *translate.Fallback {
	f := translate.NewFallback(translate.NewPhrasebook(), cfg.Translate.Timeout, logger)
	f.OnFallback = m.TranslationFallback
	return f
}

func provideChatService(log *message.Log, dir *directory.Directory, tr *translate.Fallback, m *metrics.Metrics, cfg *config.Config, logger *zap.Logger) *chat.Service {
	return chat.NewService(log, dir, tr, m, chat.Options{
		MaxTextLen:        cfg.Chat.MaxTextLen,
		AllowSelfMessages: cfg.Chat.AllowSelfMessages,
		SendRate:          cfg.Chat.SendRate,
		SendBurst:         cfg.Chat.SendBurst,
	}, logger)
}

func provideHTTPServer(cfg *config.Config, svc *chat.Service, machine *status.Machine, reg *prometheus.Registry, _ *lock.Lock, logger *zap.Logger) (*httpapi.Server, error) {
	h := httpapi.NewHandler(svc, machine, reg, logger)
	return httpapi.NewServer(cfg.HTTP.Addr, h, logger)
}

func provideRPCHandler(p Params, svc *chat.Service, log *message.Log, dir *directory.Directory, machine *status.Machine, b *bus.Bus, sim *delivery.Simulator) *rpc.Handler {
	return rpc.NewHandler(p.Workspace, svc, log, dir, machine, b, sim.Pending)
}

func provideRPCServer(p Params, h *rpc.Handler, _ *lock.Lock, logger *zap.Logger) (*rpc.Server, error) {
	socketPath := p.SocketPath
	if socketPath == "" {
		socketPath = workspace.SocketPath(p.Workspace)
	}
	return rpc.NewServer(socketPath, h, logger)
}

type lifecycleDeps struct {
	fx.In

	Lock      *lock.Lock
	Machine   *status.Machine
	Bus       *bus.Bus
	Flusher   *store.Flusher
	Simulator *delivery.Simulator
	Metrics   *metrics.Metrics
	HTTP      *httpapi.Server
	RPC       *rpc.Server
	Handler   *rpc.Handler
	Logger    *zap.Logger
}

func registerLifecycle(lc fx.Lifecycle, d lifecycleDeps) {
	bg, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_ = d.Machine.Transition(status.Loading)
			seeded, err := d.Flusher.Restore(ctx, time.Now())
			if err != nil {
				_ = d.Machine.Transition(status.Error)
				cancel()
				return fmt.Errorf("restore snapshot: %w", err)
			}
			if seeded {
				d.Logger.Info("no saved data, seeded demo users and messages")
			}

			d.Metrics.Run(bg, d.Bus)
			d.Flusher.Start(bg)

			// Start servers in background.
			go func() {
				if err := d.RPC.Start(); err != nil {
					d.Logger.Error("gRPC server error", zap.Error(err))
				}
			}()
			go func() {
				if err := d.HTTP.Start(); err != nil {
					d.Logger.Error("HTTP server error", zap.Error(err))
					_ = d.Machine.Transition(status.Error)
				}
			}()

			return d.Machine.Transition(status.Ready)
		},
		OnStop: func(ctx context.Context) error {
			_ = d.Machine.Transition(status.Stopping)
			d.Handler.Close()
			d.RPC.Stop(ctx)
			if err := d.HTTP.Stop(ctx); err != nil {
				d.Logger.Warn("error stopping HTTP server", zap.Error(err))
			}
			d.Simulator.Stop()
			if err := d.Flusher.Stop(ctx); err != nil {
				d.Logger.Error("final flush failed", zap.Error(err))
			}
			cancel()
			_ = d.Machine.Transition(status.Stopped)
			if err := d.Lock.Release(); err != nil {
				d.Logger.Warn("error releasing lock", zap.Error(err))
			}
			d.Logger.Info("daemon stopped")
			return nil
		},
	})
}
