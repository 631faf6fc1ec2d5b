package webhook

import (
	"io"
	"net/http"

	"vetvoice-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handler is the gin adapter for the dispatcher.
//
// Latency note: synchronous message types hold the live call session open
// until this handler responds, so nothing on that path may block on the
// outbound throttle or other unbounded work.
type Handler struct {
	Dispatcher *Dispatcher

	// MaxBodyBytes bounds the webhook body read; 0 uses the default.
	MaxBodyBytes int64
}

const defaultMaxBodyBytes = 4 << 20

// HandleEvent serves POST /webhooks/voice.
func (h Handler) HandleEvent(c *gin.Context) {
	log := logger.FromGin(c)

	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, limit))
	if err != nil {
		log.Warn("webhook body read failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	payload := ParsePayload(raw)
	if payload == nil {
		log.Warn("webhook payload rejected", "bytes", len(raw))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	resp, err := h.Dispatcher.Dispatch(c.Request.Context(), payload)
	if err != nil {
		// Only synchronous handlers surface errors; the session gets a
		// generic failure rather than internals.
		log.Error("webhook dispatch failed", "type", payload.Message.Type, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "handler failed"})
		return
	}

	c.JSON(http.StatusOK, resp)
}
