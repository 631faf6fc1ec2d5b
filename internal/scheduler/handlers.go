package scheduler

import (
	"errors"
	"net/http"
	"time"

	"vetvoice-platform/internal/audit"
	"vetvoice-platform/internal/auth"
	"vetvoice-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers exposes the authenticated scheduling API.
type Handlers struct {
	svc    *Service
	audits *audit.Service
}

func NewHandlers(svc *Service, audits *audit.Service) *Handlers {
	return &Handlers{svc: svc, audits: audits}
}

// recordScheduled is a non-critical side effect; failures are logged only.
func (h *Handlers) recordScheduled(c *gin.Context, kind JobKind, targetID, jobID string) {
	if h.audits == nil {
		return
	}
	ctx := c.Request.Context()
	clinicID, _ := auth.ClinicID(ctx)
	userID, _ := auth.UserID(ctx)
	role, _ := auth.Role(ctx)

	typ := audit.EventTypeCallScheduled
	if kind == KindEmail {
		typ = audit.EventTypeEmailScheduled
	}
	if err := h.audits.LogScheduled(ctx, typ, clinicID, userID, role, c.ClientIP(), targetID, jobID); err != nil {
		logger.FromGin(c).Warn("audit append failed", "type", typ, "err", err)
	}
}

func (h *Handlers) recordImmediate(c *gin.Context, targetID string) {
	if h.audits == nil {
		return
	}
	ctx := c.Request.Context()
	clinicID, _ := auth.ClinicID(ctx)
	userID, _ := auth.UserID(ctx)
	role, _ := auth.Role(ctx)
	if err := h.audits.LogImmediateExecution(ctx, clinicID, userID, role, c.ClientIP(), targetID); err != nil {
		logger.FromGin(c).Warn("audit append failed", "type", audit.EventTypeImmediateExecution, "err", err)
	}
}

type scheduleRequest struct {
	ScheduledFor time.Time `json:"scheduledFor" binding:"required"`
}

type scheduleData struct {
	JobID        string    `json:"jobId"`
	ScheduledFor time.Time `json:"scheduledFor"`
	DurableJobID string    `json:"durableJobId,omitempty"`
}

// HandleScheduleCall serves POST /v1/calls/:id/schedule.
func (h *Handlers) HandleScheduleCall(c *gin.Context) {
	h.handleSchedule(c, KindCall, "Failed to schedule call execution")
}

// HandleScheduleEmail serves POST /v1/emails/:id/schedule.
func (h *Handlers) HandleScheduleEmail(c *gin.Context) {
	h.handleSchedule(c, KindEmail, "Failed to schedule email execution")
}

func (h *Handlers) handleSchedule(c *gin.Context, kind JobKind, failureMessage string) {
	targetID := c.Param("id")

	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "scheduledFor is required and must be RFC 3339",
		})
		return
	}

	job, err := h.svc.Schedule(c.Request.Context(), kind, targetID, req.ScheduledFor)
	switch {
	case errors.Is(err, ErrPastScheduledTime):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Scheduled time must be in the future",
		})
		return
	case errors.Is(err, ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	case err != nil:
		logger.FromGin(c).Error("scheduling failed", "kind", kind, "target_id", targetID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   failureMessage,
		})
		return
	}

	h.recordScheduled(c, kind, targetID, job.ID)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": scheduleData{
			JobID:        job.ID,
			ScheduledFor: job.ScheduledFor,
			DurableJobID: job.DurableJobID,
		},
	})
}

// HandleExecuteCallNow serves POST /v1/calls/:id/execute.
func (h *Handlers) HandleExecuteCallNow(c *gin.Context) {
	h.handleExecuteNow(c, KindCall)
}

// HandleExecuteEmailNow serves POST /v1/emails/:id/execute.
func (h *Handlers) HandleExecuteEmailNow(c *gin.Context) {
	h.handleExecuteNow(c, KindEmail)
}

func (h *Handlers) handleExecuteNow(c *gin.Context, kind JobKind) {
	targetID := c.Param("id")

	res, err := h.svc.ExecuteImmediately(c.Request.Context(), kind, targetID)
	if err != nil {
		if errors.Is(err, ErrInvalidArgument) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		logger.FromGin(c).Error("immediate execution failed", "kind", kind, "target_id", targetID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to execute " + string(kind),
		})
		return
	}
	h.recordImmediate(c, targetID)
	c.JSON(http.StatusOK, res)
}
