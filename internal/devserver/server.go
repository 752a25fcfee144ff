package devserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/figaro/internal/auth"
	"github.com/vovakirdan/figaro/internal/proto"
	"github.com/vovakirdan/figaro/internal/store"
	transporthttp "github.com/vovakirdan/figaro/internal/transport/http"
)

const (
	PathFeed   = "/feed"
	PathStatus = "/backend/change_status/"
)

// Options configures the development server.
type Options struct {
	Addr              string
	Delay             time.Duration
	ReadHeaderTimeout time.Duration
	JWT               *auth.JWTConfig
}

type handlers struct {
	gen      *Generator
	statuses store.StatusStore
	delay    time.Duration
	log      *zerolog.Logger
}

// NewServer builds the fake upstream: a frame feed and a status endpoint.
func NewServer(gen *Generator, statuses store.StatusStore, opts Options, logger *zerolog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	delay := opts.Delay
	if delay <= 0 {
		delay = 3 * time.Second
	}
	h := &handlers{gen: gen, statuses: statuses, delay: delay, log: logger}

	router := gin.New()
	router.Use(gin.Recovery(), transporthttp.LoggerMiddleware(logger))

	router.POST(PathStatus, transporthttp.RequireJSON(), transporthttp.AuthMiddleware(opts.JWT, logger), h.changeStatus)
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	// The feed is served outside gin: Accept must hijack the raw connection.
	mux := http.NewServeMux()
	mux.HandleFunc(PathFeed, h.feed)
	mux.Handle("/", router)

	return &http.Server{
		Addr:              opts.Addr,
		Handler:           mux,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
	}
}

// feed writes a freshly generated pair every delay until the peer leaves.
func (h *handlers) feed(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("feed accept error")
		return
	}
	defer conn.CloseNow()
	h.log.Info().Str("remote", r.RemoteAddr).Msg("feed subscriber connected")

	// The subscriber never sends; CloseRead handles control frames and
	// cancels ctx once the peer goes away.
	ctx := conn.CloseRead(r.Context())

	ticker := time.NewTicker(h.delay)
	defer ticker.Stop()

	for {
		if err := h.writeFrame(ctx, conn); err != nil {
			if !errors.Is(err, context.Canceled) {
				h.log.Warn().Err(err).Msg("feed write failed")
			}
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *handlers) writeFrame(ctx context.Context, conn *websocket.Conn) error {
	pair, err := h.gen.Generate(ctx)
	if err != nil {
		return err
	}
	data, err := proto.EncodeFrame(pair)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// changeStatus records an ok/bad decision for a channel.
// POST /backend/change_status/
func (h *handlers) changeStatus(c *gin.Context) {
	var req transporthttp.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, transporthttp.ErrorResponse{Error: "invalid request body"})
		return
	}

	// A token scoped to a channel may only change that channel.
	if scoped := c.GetString(transporthttp.ContextKeyChannelID); scoped != "" && scoped != req.ChannelID {
		c.JSON(http.StatusForbidden, transporthttp.ErrorResponse{Error: "token not valid for this channel"})
		return
	}

	ctx := c.Request.Context()
	prev, err := h.statuses.GetStatus(ctx, req.ChannelID)
	switch {
	case err == nil && prev.Ok == *req.Ok:
		h.log.Debug().Str("channel_id", req.ChannelID).Msg("status unchanged")
	case err != nil && !errors.Is(err, store.ErrNotFound):
		h.log.Warn().Err(err).Str("channel_id", req.ChannelID).Msg("failed to load status")
	}

	err = h.statuses.SaveStatus(ctx, store.ChannelStatus{
		ChannelID: req.ChannelID,
		Ok:        *req.Ok,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		h.log.Error().Err(err).Str("channel_id", req.ChannelID).Msg("failed to save status")
		c.JSON(http.StatusInternalServerError, transporthttp.ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("channel_id", req.ChannelID).Bool("ok", *req.Ok).Msg("status changed")
	c.Status(http.StatusNoContent)
}
