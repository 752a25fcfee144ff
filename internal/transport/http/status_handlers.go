package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/figaro/internal/model"
	"github.com/vovakirdan/figaro/internal/status"
	"github.com/vovakirdan/figaro/internal/store"
)

// StatusSubmitter forwards a status change upstream.
type StatusSubmitter interface {
	Submit(ctx context.Context, change model.StatusChange) error
}

// StatusHandlers turns button clicks into status submissions.
type StatusHandlers struct {
	submitter StatusSubmitter
	statuses  store.StatusStore
	limiter   *rateLimiter
	log       *zerolog.Logger
}

// NewStatusHandlers creates a new status handlers instance. statuses may be
// nil, in which case the lookups answer 503.
func NewStatusHandlers(submitter StatusSubmitter, statuses store.StatusStore, limiter *rateLimiter, logger *zerolog.Logger) *StatusHandlers {
	return &StatusHandlers{
		submitter: submitter,
		statuses:  statuses,
		limiter:   limiter,
		log:       logger,
	}
}

// StatusRequest represents the status change request body.
type StatusRequest struct {
	Ok        *bool  `json:"ok" binding:"required"`
	ChannelID string `json:"channelId" binding:"required"`
}

// Submit handles a status button click.
// POST /api/status
func (h *StatusHandlers) Submit(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid status request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if !h.limiter.allow() {
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "too many status changes"})
		return
	}

	if h.submitter == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "status changes are disabled"})
		return
	}

	change := model.StatusChange{Ok: *req.Ok, ChannelID: req.ChannelID}
	if err := h.submitter.Submit(c.Request.Context(), change); err != nil {
		switch {
		case errors.Is(err, model.ErrMissingChannelID):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		case errors.Is(err, status.ErrDisabled):
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "status changes are disabled"})
		default:
			h.log.Error().Err(err).Str("channel_id", change.ChannelID).Msg("failed to submit status")
			c.JSON(http.StatusBadGateway, ErrorResponse{Error: "status endpoint unavailable"})
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// StatusResponse is a status change recorded after the endpoint accepted it.
type StatusResponse struct {
	ChannelID string    `json:"channelId"`
	Ok        bool      `json:"ok"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func statusResponse(s *store.ChannelStatus) StatusResponse {
	return StatusResponse{ChannelID: s.ChannelID, Ok: s.Ok, UpdatedAt: s.UpdatedAt}
}

// List returns every recorded status change.
// GET /api/status
func (h *StatusHandlers) List(c *gin.Context) {
	if h.statuses == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "status history is disabled"})
		return
	}

	recorded, err := h.statuses.ListStatuses(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list statuses")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	resp := make([]StatusResponse, 0, len(recorded))
	for _, s := range recorded {
		resp = append(resp, statusResponse(s))
	}
	c.JSON(http.StatusOK, resp)
}

// Get returns the recorded status of one channel.
// GET /api/status/:channelId
func (h *StatusHandlers) Get(c *gin.Context) {
	if h.statuses == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "status history is disabled"})
		return
	}

	recorded, err := h.statuses.GetStatus(c.Request.Context(), c.Param("channelId"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no status recorded for channel"})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("failed to get status")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, statusResponse(recorded))
}
