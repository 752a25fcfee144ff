package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/figaro/internal/config"
	"github.com/vovakirdan/figaro/internal/core"
	"github.com/vovakirdan/figaro/internal/store"
	"github.com/vovakirdan/figaro/internal/view"
)

const (
	pathWS     = "/ws"
	pathStatus = "/api/status"
)

// Deps are the collaborators the HTTP layer serves.
type Deps struct {
	Hub      *core.Hub
	Renderer *view.Renderer
	Status   StatusSubmitter
	// Statuses backs the recorded status lookups; optional.
	Statuses store.StatusStore
	// Metrics is mounted on /metrics when set.
	Metrics  stdhttp.Handler
}

// NewServer builds the live view HTTP server. The WebSocket route sits on a
// plain mux in front of the gin router since Accept must hijack the raw
// connection.
func NewServer(deps Deps, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	limiter := newRateLimiter(cfg.StatusRateLimit)
	stop := make(chan struct{})
	limiter.startReset(stop)

	pages := NewPageHandlers(deps.Hub, deps.Renderer, cfg.Title, logger)
	statuses := NewStatusHandlers(deps.Status, deps.Statuses, limiter, logger)

	router.GET("/", pages.Index)
	router.GET("/frame", pages.Frame)
	router.POST(pathStatus, RequireJSON(), statuses.Submit)
	router.GET(pathStatus, statuses.List)
	router.GET(pathStatus+"/:channelId", statuses.Get)
	router.GET("/health", healthHandler)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	mux := stdhttp.NewServeMux()
	mux.Handle(pathWS, NewWSHandler(deps.Hub, logger))
	mux.Handle("/", router)

	srv := &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	srv.RegisterOnShutdown(func() { close(stop) })
	return srv
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
