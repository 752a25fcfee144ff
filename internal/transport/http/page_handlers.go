package http

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/figaro/internal/core"
	"github.com/vovakirdan/figaro/internal/view"
)

const contentTypeHTML = "text/html; charset=utf-8"

// PageHandlers serves the bootstrap page and the current frame.
type PageHandlers struct {
	hub      *core.Hub
	renderer *view.Renderer
	title    string
	log      *zerolog.Logger
}

// NewPageHandlers creates a new page handlers instance.
func NewPageHandlers(hub *core.Hub, renderer *view.Renderer, title string, logger *zerolog.Logger) *PageHandlers {
	return &PageHandlers{
		hub:      hub,
		renderer: renderer,
		title:    title,
		log:      logger,
	}
}

// Index renders the page with the latest frame inlined.
// GET /
func (h *PageHandlers) Index(c *gin.Context) {
	var frame template.HTML
	if latest := h.hub.Latest(); latest != nil {
		// Frames come out of the html/template renderer already escaped.
		frame = template.HTML(latest.HTML)
	}

	page, err := h.renderer.Page(view.PageData{
		Title:      h.title,
		Frame:      frame,
		WSPath:     pathWS,
		StatusPath: pathStatus,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("failed to render page")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.Data(http.StatusOK, contentTypeHTML, page)
}

// Frame returns the latest frame fragment, or 204 before the first one.
// GET /frame
func (h *PageHandlers) Frame(c *gin.Context) {
	latest := h.hub.Latest()
	if latest == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.Data(http.StatusOK, contentTypeHTML, []byte(latest.HTML))
}
