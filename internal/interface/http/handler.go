package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/eventradar/internal/domain/events"
	"github.com/yanqian/eventradar/internal/domain/search"
)

// streamWriteWindow bounds a single NDJSON write. The deadline is pushed
// forward before every line so long streams outlive the server WriteTimeout.
const streamWriteWindow = time.Minute

// Handler wires the HTTP transport to the search service.
type Handler struct {
	searchSvc search.Service
	logger    *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(searchSvc search.Service, logger *slog.Logger) *Handler {
	return &Handler{
		searchSvc: searchSvc,
		logger:    logger.With("component", "http.handler"),
	}
}

// Search handles the synchronous search endpoint.
func (h *Handler) Search(c *gin.Context) {
	var req search.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.searchSvc.Search(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SearchProgressive streams one NDJSON line per category followed by a
// complete or error line. Validation failures are reported as a regular
// JSON error before the stream starts.
func (h *Handler) SearchProgressive(c *gin.Context) {
	var req search.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "stream_unsupported", "streaming not supported", nil))
		return
	}

	rc := http.NewResponseController(c.Writer)
	started := false
	emit := func(msg search.StreamMessage) error {
		payload, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		if err := rc.SetWriteDeadline(time.Now().Add(streamWriteWindow)); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
		if !started {
			started = true
			headers := c.Writer.Header()
			headers.Set("Content-Type", "application/x-ndjson")
			headers.Set("Cache-Control", "no-cache, no-transform")
			headers.Set("Connection", "keep-alive")
			headers.Set("X-Accel-Buffering", "no")
			c.Status(http.StatusOK)
		}
		if _, err := c.Writer.Write(append(payload, '\n')); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	err := h.searchSvc.Stream(c.Request.Context(), req, emit)
	if err == nil {
		return
	}
	if !started {
		abortWithError(c, domainError(err))
		return
	}
	h.logger.Warn("progressive search ended early", "city", req.City, "date", req.Date, "error", err)
}

// StartJob accepts a search to run in the background.
func (h *Handler) StartJob(c *gin.Context) {
	var req search.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	job, err := h.searchSvc.StartJob(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}

	c.Header("Location", "/api/v1/events/search/jobs/"+job.ID)
	c.JSON(http.StatusAccepted, job)
}

// GetJob reports the state of a background search.
func (h *Handler) GetJob(c *gin.Context) {
	job, err := h.searchSvc.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}
	c.JSON(http.StatusOK, job)
}

// LookupEvent resolves a shared event link from the day bucket.
func (h *Handler) LookupEvent(c *gin.Context) {
	ev, err := h.searchSvc.LookupEvent(c.Request.Context(), search.LookupRequest{
		City: c.Param("city"),
		Date: c.Param("date"),
		Slug: c.Param("slug"),
	})
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}
	c.JSON(http.StatusOK, ev)
}

// Categories lists the main categories in display order.
func (h *Handler) Categories(c *gin.Context) {
	type category struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	}
	out := make([]category, 0, len(events.MainCategories))
	for _, cat := range events.MainCategories {
		out = append(out, category{Name: string(cat), Slug: cat.Slug()})
	}
	c.JSON(http.StatusOK, gin.H{"categories": out})
}

// Health is the liveness probe.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
