package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/figaro/internal/config"
	"github.com/vovakirdan/figaro/internal/devserver"
	"github.com/vovakirdan/figaro/internal/store"
	"github.com/vovakirdan/figaro/internal/store/sqlite"
)

// DevServer runs the fake upstream used during development.
type DevServer struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	store           store.Store
	log             *zerolog.Logger
}

// NewDevServer constructs the development feed server.
func NewDevServer(cfg *config.Config, logger *zerolog.Logger) (*DevServer, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	gen := devserver.NewGenerator(devserver.GeneratorOptions{
		OkChannels:  cfg.Dev.OkChannels,
		BadChannels: cfg.Dev.BadChannels,
		Messages:    cfg.Dev.Messages,
		MaxText:     cfg.Dev.MaxText,
	}, st)

	server := devserver.NewServer(gen, st, devserver.Options{
		Addr:              cfg.Dev.Addr,
		Delay:             cfg.Dev.Delay,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		JWT:               statusJWT(cfg),
	}, logger)

	logger.Info().
		Int("ok_channels", cfg.Dev.OkChannels).
		Int("bad_channels", cfg.Dev.BadChannels).
		Dur("delay", cfg.Dev.Delay).
		Msg("dev feed configured")

	return &DevServer{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		log:             logger,
	}, nil
}

// Run serves until ctx is cancelled.
func (d *DevServer) Run(ctx context.Context) error {
	err := serve(ctx, d.server, d.shutdownTimeout, d.log)
	closeStore(d.store, d.log)
	return err
}
