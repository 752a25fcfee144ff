package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/figaro/internal/auth"
	"github.com/vovakirdan/figaro/internal/config"
	"github.com/vovakirdan/figaro/internal/core"
	"github.com/vovakirdan/figaro/internal/feed"
	"github.com/vovakirdan/figaro/internal/metrics"
	"github.com/vovakirdan/figaro/internal/status"
	"github.com/vovakirdan/figaro/internal/store"
	"github.com/vovakirdan/figaro/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/figaro/internal/transport/http"
	"github.com/vovakirdan/figaro/internal/view"
)

const jwtIssuer = "figaro"

// App wires the feed subscriber, the hub and the HTTP layer.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	subscriber      *feed.Subscriber
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	renderer, err := view.New(
		view.WithMaxTextChars(cfg.MaxTextChars),
		view.WithRowSize(cfg.RowSize),
		view.WithMaxMessages(cfg.MaxMessages),
		view.WithChannelPattern(cfg.ChannelPattern),
		view.WithSortByActivity(cfg.SortByActivity),
	)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("init renderer: %w", err)
	}

	collector := metrics.New()
	hub := core.NewHub(collector, logger)

	subscriber := feed.NewSubscriber(feed.Options{
		URL:            cfg.FeedURL,
		RedialInterval: cfg.RedialInterval,
		MaxFrameBytes:  cfg.MaxFrameBytes,
		Snapshots:      st,
		Metrics:        collector,
	}, renderer, hub, logger)

	submitter := status.NewClient(status.Options{
		URL:      cfg.StatusURL,
		Timeout:  cfg.StatusTimeout,
		JWT:      statusJWT(cfg),
		Statuses: st,
		Metrics:  collector,
	}, logger)

	server := transporthttp.NewServer(transporthttp.Deps{
		Hub:      hub,
		Renderer: renderer,
		Status:   submitter,
		Statuses: st,
		Metrics:  collector.Handler(),
	}, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		subscriber:      subscriber,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the hub, the feed subscriber and the HTTP server, and blocks
// until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.hub.Run(ctx)

	feedDone := make(chan struct{})
	go func() {
		defer close(feedDone)
		if err := a.subscriber.Run(ctx); err != nil {
			a.log.Error().Err(err).Msg("feed subscriber stopped")
		}
	}()

	err := serve(ctx, a.server, a.shutdownTimeout, a.log)
	cancel()
	<-feedDone
	a.cleanup()
	return err
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	closeStore(a.store, a.log)
}

func statusJWT(cfg *config.Config) *auth.JWTConfig {
	return &auth.JWTConfig{
		Secret:   []byte(cfg.StatusSecret),
		Issuer:   jwtIssuer,
		Audience: cfg.StatusAudience,
		TTL:      time.Minute,
	}
}

// serve runs srv until it fails or ctx is done, then shuts it down.
func serve(ctx context.Context, srv *stdhttp.Server, timeout time.Duration, logger *zerolog.Logger) error {
	serverErr := make(chan error, 1)

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		logger.Info().Msg("shutting down http server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-serverErr
	}
}

func closeStore(st store.Store, logger *zerolog.Logger) {
	if st == nil {
		return
	}
	if err := st.Close(); err != nil {
		logger.Warn().Err(err).Msg("failed to close store")
		return
	}
	logger.Info().Msg("store closed")
}
