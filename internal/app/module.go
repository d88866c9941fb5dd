// Package app composes the client engine with fx.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/matheus3301/freechat/internal/backend"
	"github.com/matheus3301/freechat/internal/bus"
	"github.com/matheus3301/freechat/internal/client"
	"github.com/matheus3301/freechat/internal/compose"
	"github.com/matheus3301/freechat/internal/config"
	"github.com/matheus3301/freechat/internal/credential"
	"github.com/matheus3301/freechat/internal/directory"
	"github.com/matheus3301/freechat/internal/live"
	"github.com/matheus3301/freechat/internal/lock"
	"github.com/matheus3301/freechat/internal/logging"
	"github.com/matheus3301/freechat/internal/loop"
	"github.com/matheus3301/freechat/internal/metrics"
	"github.com/matheus3301/freechat/internal/profile"
	"github.com/matheus3301/freechat/internal/readstate"
	"github.com/matheus3301/freechat/internal/search"
	intsync "github.com/matheus3301/freechat/internal/sync"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile profile.Profile
	Config  *config.Config
	// Console mirrors the log to stderr.
	Console bool
	// Exclusive takes the profile lock so only one interactive client runs.
	Exclusive bool
}

// Module returns the fx module of the client, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("freechat",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideLock,
			provideBus,
			provideMetrics,
			OpenCredentials,
			provideLoop,
			provideBackend,
			provideDialer,
			provideDirectory,
			provideSyncEngine,
			provideSearch,
			provideCompose,
			provideTracker,
			provideSession,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	if err := p.Profile.Ensure(); err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Path:    p.Profile.LogPath(),
		Profile: p.Profile.Name,
		Level:   p.Config.Log.Level,
		Console: p.Console,
	})
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if !p.Exclusive {
		return nil, nil
	}
	logger.Info("acquiring profile lock", zap.Stringer("profile", p.Profile))
	l, err := lock.Acquire(p.Profile.Dir, p.Profile.Name)
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideBus(m *metrics.Metrics) *bus.Bus {
	b := bus.New()
	b.OnDrop(func(kind string) {
		m.BusDropped.WithLabelValues(bus.Namespace(kind)).Inc()
	})
	return b
}

func provideMetrics() *metrics.Metrics {
	return metrics.New()
}

// OpenCredentials opens the profile's token file. The returned Provider is
// that file unless FREECHAT_TOKEN supplied a token, which then wins for this
// process only.
func OpenCredentials(p Params) (credential.Provider, *credential.FileStore, error) {
	fs, err := credential.OpenFile(p.Profile.CredentialPath())
	if err != nil {
		return nil, nil, err
	}
	if p.Config.Server.Token != "" {
		return credential.NewMemory(p.Config.Server.Token), fs, nil
	}
	return fs, fs, nil
}

func provideLoop(logger *zap.Logger) *loop.Loop {
	return loop.New(logger.Named("loop"))
}

func provideBackend(p Params, creds credential.Provider, logger *zap.Logger) *backend.Client {
	return backend.New(backend.Options{
		BaseURL: p.Config.Server.BaseURL,
		Timeout: p.Config.Server.RequestTimeout.Duration,
	}, creds, logger.Named("backend"))
}

func provideDialer(p Params, creds credential.Provider, logger *zap.Logger) *live.Dialer {
	return live.NewDialer(p.Config.WebSocketURL(), p.Config.Live.ReadLimit, creds, logger.Named("live"))
}

func provideDirectory(l *loop.Loop, api *backend.Client, b *bus.Bus, logger *zap.Logger) *directory.Store {
	return directory.New(l, api, b, logger.Named("directory"))
}

func provideSyncEngine(p Params, l *loop.Loop, api *backend.Client, d *live.Dialer, b *bus.Bus, m *metrics.Metrics, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(l, api, d, b, m, logger.Named("sync"), intsync.Options{
		ReconnectInitial: p.Config.Live.ReconnectInitial.Duration,
		ReconnectMax:     p.Config.Live.ReconnectMax.Duration,
	})
}

func provideSearch(p Params, l *loop.Loop, api *backend.Client, dir *directory.Store, b *bus.Bus, m *metrics.Metrics, logger *zap.Logger) *search.Engine {
	return search.New(l, api, api, dir, b, m, logger.Named("search"), search.Options{
		Debounce:  p.Config.Search.Debounce.Duration,
		MinLength: p.Config.Search.MinLength,
	})
}

func provideCompose(p Params, l *loop.Loop, api *backend.Client, engine *intsync.Engine, b *bus.Bus, m *metrics.Metrics, logger *zap.Logger) *compose.Pipeline {
	return compose.New(l, api, api, engine, b, m, logger.Named("compose"), p.Config.Compose.Placeholder)
}

func provideTracker() *readstate.Tracker {
	return readstate.NewTracker(0)
}

func provideSession(l *loop.Loop, api *backend.Client, creds credential.Provider, dir *directory.Store, srch *search.Engine, engine *intsync.Engine, comp *compose.Pipeline, tracker *readstate.Tracker, b *bus.Bus, logger *zap.Logger) *client.Session {
	return client.New(l, api, creds, client.Components{
		Directory: dir,
		Search:    srch,
		Sync:      engine,
		Compose:   comp,
		Tracker:   tracker,
	}, b, logger.Named("session"))
}

func registerLifecycle(lc fx.Lifecycle, p Params, l *loop.Loop, sess *client.Session, lk *lock.Lock, m *metrics.Metrics, b *bus.Bus, logger *zap.Logger) {
	var srv *http.Server
	shutdown := func(ctx context.Context) {
		sess.Stop()
		l.Stop()
		b.Close()
		if srv != nil {
			_ = srv.Shutdown(ctx)
		}
		if err := lk.Release(); err != nil {
			logger.Warn("error releasing profile lock", zap.Error(err))
		}
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			l.Start(context.Background())

			if addr := p.Config.Metrics.Addr; addr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", m.Handler())
				srv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("metrics server error", zap.Error(err))
					}
				}()
				logger.Info("metrics listener started", zap.String("addr", addr))
			}

			if err := sess.Start(ctx); err != nil {
				logger.Error("session start failed", zap.Error(err))
				shutdown(ctx)
				return err
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdown(ctx)
			logger.Info("client stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
