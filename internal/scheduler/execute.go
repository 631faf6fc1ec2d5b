package scheduler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"vetvoice-platform/internal/calls"
	"vetvoice-platform/internal/voice"
	"vetvoice-platform/pkg/logger"
	"vetvoice-platform/pkg/metrics"
	"vetvoice-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// HeaderImmediateSecret authenticates the immediate-execution bypass.
	HeaderImmediateSecret = "X-Immediate-Execution-Secret"

	// HeaderQueueSignature carries the durable queue's delivery signature.
	HeaderQueueSignature = "Upstash-Signature"

	executionLockTTL = time.Minute
)

// CallPlacer places the outbound call; implemented by voice.Client.
type CallPlacer interface {
	PlaceCall(ctx context.Context, req voice.CallRequest) (voice.CallResponse, error)
}

// EmailSender hands a pending email to the delivery provider. The provider
// integration itself lives outside this service.
type EmailSender interface {
	Send(ctx context.Context, emailID string) error
}

// CallStore is the slice of the calls repo the executor needs.
type CallStore interface {
	GetByID(ctx context.Context, callID string) (calls.CallRecord, error)
	Update(ctx context.Context, callID string, fields map[string]any) error
	GetEmail(ctx context.Context, emailID string) (calls.EmailRecord, error)
	UpdateEmailStatus(ctx context.Context, emailID string, status calls.EmailStatus) error
}

// Executor serves the execution endpoints the durable queue (and the
// immediate bypass) deliver to.
//
// Idempotency lives here, not in the scheduler: the queue is
// at-least-once and the bypass can race a delivery, so each run takes a
// short redis lock and then checks persisted status before acting.
// Cancellation works the same way — a canceled row simply fails the status
// check when the delivery fires.
type Executor struct {
	repo       Repo
	store      CallStore
	placer     CallPlacer
	emails     EmailSender
	secret     string
	signingKey string
	clock      func() time.Time
	mx         *metrics.Metrics

	acquireLock func(ctx context.Context, key, token string) (bool, error)
	releaseLock func(ctx context.Context, key, token string) error
}

func NewExecutor(repo Repo, store CallStore, placer CallPlacer, emails EmailSender, rdb *redis.Client, immediateSecret, signingKey string, mx *metrics.Metrics) *Executor {
	return &Executor{
		repo:       repo,
		store:      store,
		placer:     placer,
		emails:     emails,
		secret:     immediateSecret,
		signingKey: signingKey,
		clock:      time.Now,
		mx:         mx,
		acquireLock: func(ctx context.Context, key, token string) (bool, error) {
			return utils.AcquireExecutionLock(ctx, rdb, key, token, executionLockTTL)
		},
		releaseLock: func(ctx context.Context, key, token string) error {
			return utils.ReleaseExecutionLock(ctx, rdb, key, token)
		},
	}
}

type executeRequest struct {
	TargetID string `json:"targetId"`
}

type executeResponse struct {
	Success          bool   `json:"success"`
	AlreadyProcessed bool   `json:"alreadyProcessed,omitempty"`
	Message          string `json:"message,omitempty"`
}

// HandleExecuteCall serves POST /webhooks/execute/call.
func (e *Executor) HandleExecuteCall(c *gin.Context) {
	e.handleExecute(c, KindCall, e.executeCall)
}

// HandleExecuteEmail serves POST /webhooks/execute/email.
func (e *Executor) HandleExecuteEmail(c *gin.Context) {
	e.handleExecute(c, KindEmail, e.executeEmail)
}

func (e *Executor) handleExecute(c *gin.Context, kind JobKind, run func(ctx context.Context, targetID string) error) {
	log := logger.FromGin(c)

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	// Authentication first, before any business logic.
	if !e.authorize(c, body) {
		return
	}

	var req executeRequest
	if err := json.Unmarshal(body, &req); err != nil || req.TargetID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "targetId is required"})
		return
	}
	ctx := c.Request.Context()

	// Short single-holder lock: a racing duplicate delivery reports
	// alreadyProcessed instead of double-dialing.
	lockKey := fmt.Sprintf("exec:%s:%s", kind, req.TargetID)
	lockToken := uuid.NewString()
	acquired, err := e.acquireLock(ctx, lockKey, lockToken)
	if err != nil {
		log.Error("execution lock failed", "key", lockKey, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lock unavailable"})
		return
	}
	if !acquired {
		e.mx.JobExecuted(string(kind), "duplicate")
		c.JSON(http.StatusOK, executeResponse{Success: true, AlreadyProcessed: true})
		return
	}
	defer func() {
		if err := e.releaseLock(context.WithoutCancel(ctx), lockKey, lockToken); err != nil {
			log.Warn("execution lock release failed", "key", lockKey, "err", err)
		}
	}()

	job, err := e.repo.GetByTarget(ctx, kind, req.TargetID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		log.Error("scheduled job lookup failed", "target_id", req.TargetID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if err == nil {
		if job.Status != StatusQueued {
			e.mx.JobExecuted(string(kind), "already_processed")
			c.JSON(http.StatusOK, executeResponse{Success: true, AlreadyProcessed: true})
			return
		}
		if serr := e.repo.SetStatus(ctx, job.ID, StatusExecuting); serr != nil {
			log.Warn("job status transition failed", "job_id", job.ID, "err", serr)
		}
	}

	if err := run(ctx, req.TargetID); err != nil {
		if errors.Is(err, errAlreadyProcessed) {
			// The target row advanced past queued before this delivery;
			// finish the job so it cannot sweep back as a zombie.
			e.finishJob(ctx, job, StatusCompleted)
			e.mx.JobExecuted(string(kind), "already_processed")
			c.JSON(http.StatusOK, executeResponse{Success: true, AlreadyProcessed: true})
			return
		}
		log.Error("execution failed", "kind", kind, "target_id", req.TargetID, "err", err)
		e.mx.JobExecuted(string(kind), "error")
		e.finishJob(ctx, job, StatusFailed)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to execute %s", kind)})
		return
	}

	e.finishJob(ctx, job, StatusCompleted)
	e.mx.JobExecuted(string(kind), "ok")
	c.JSON(http.StatusOK, executeResponse{Success: true, Message: fmt.Sprintf("%s executed", kind)})
}

// finishJob is sync-status bookkeeping, best-effort by design.
func (e *Executor) finishJob(ctx context.Context, job ScheduledJob, status JobStatus) {
	if job.ID == "" {
		return
	}
	if err := e.repo.SetStatus(ctx, job.ID, status); err != nil {
		logger.From(ctx).Warn("job bookkeeping failed", "job_id", job.ID, "status", status, "err", err)
	}
}

// authorize admits either the immediate bypass (shared secret header) or a
// durable queue delivery (signature header). Secret checks run before any
// body interpretation.
func (e *Executor) authorize(c *gin.Context, body []byte) bool {
	if provided := c.GetHeader(HeaderImmediateSecret); provided != "" {
		if subtle.ConstantTimeCompare([]byte(provided), []byte(e.secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid execution secret"})
			return false
		}
		return true
	}

	sig := c.GetHeader(HeaderQueueSignature)
	if sig == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
		return false
	}
	if e.signingKey != "" && !verifySignature(e.signingKey, body, sig) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return false
	}
	return true
}

func computeSignature(key string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func verifySignature(key string, body []byte, signature string) bool {
	return hmac.Equal([]byte(computeSignature(key, body)), []byte(signature))
}

// errAlreadyProcessed reports that the target row already left its
// executable state; the handler answers alreadyProcessed, not failure.
var errAlreadyProcessed = errors.New("target already processed")

func (e *Executor) executeCall(ctx context.Context, callID string) error {
	rec, err := e.store.GetByID(ctx, callID)
	if err != nil {
		return fmt.Errorf("load call %s: %w", callID, err)
	}
	// The row itself is the second idempotency guard: a call that already
	// left queued must not be dialed again.
	if rec.Status != calls.CallStatusQueued {
		return errAlreadyProcessed
	}

	resp, err := e.placer.PlaceCall(ctx, voice.CallRequest{
		AssistantID:    rec.AssistantID,
		CustomerNumber: rec.CustomerNumber,
		Metadata:       map[string]string{"callId": rec.ID},
	})
	if err != nil {
		uerr := e.store.Update(ctx, rec.ID, map[string]any{
			"status":     string(calls.CallStatusFailed),
			"updated_at": e.clock().UTC(),
		})
		if uerr != nil {
			logger.From(ctx).Error("call failure bookkeeping failed", "call_id", rec.ID, "err", uerr)
		}
		return fmt.Errorf("place call: %w", err)
	}

	return e.store.Update(ctx, rec.ID, map[string]any{
		"provider_call_id": resp.ID,
		"status":           string(calls.CallStatusRinging),
		"updated_at":       e.clock().UTC(),
	})
}

func (e *Executor) executeEmail(ctx context.Context, emailID string) error {
	rec, err := e.store.GetEmail(ctx, emailID)
	if err != nil {
		return fmt.Errorf("load email %s: %w", emailID, err)
	}
	if rec.Status != calls.EmailStatusQueued && rec.Status != calls.EmailStatusPending {
		return errAlreadyProcessed
	}
	if e.emails == nil {
		return errors.New("email sender is not configured")
	}

	if err := e.emails.Send(ctx, rec.ID); err != nil {
		if uerr := e.store.UpdateEmailStatus(ctx, rec.ID, calls.EmailStatusFailed); uerr != nil {
			logger.From(ctx).Error("email failure bookkeeping failed", "email_id", rec.ID, "err", uerr)
		}
		return fmt.Errorf("send email: %w", err)
	}
	return e.store.UpdateEmailStatus(ctx, rec.ID, calls.EmailStatusSent)
}
