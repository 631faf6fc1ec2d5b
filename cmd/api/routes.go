package main

import (
	"context"
	"fmt"
	"time"

	"vetvoice-platform/internal/httpapi"
	"vetvoice-platform/internal/rbac"
	"vetvoice-platform/internal/reporting"
	"vetvoice-platform/internal/routing"
	"vetvoice-platform/internal/scheduler"
	"vetvoice-platform/internal/webhook"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type apiDeps struct {
	authMW    gin.HandlerFunc
	webhooks  webhook.Handler
	executor  *scheduler.Executor
	schedules *scheduler.Handlers
	reports   *reporting.Service
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d apiDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Provider webhooks (public). The voice webhook carries provider-signed
	// payloads; the execution endpoints authenticate inside the handler
	// (queue signature or immediate-execution secret).
	r.POST("/webhooks/voice", clientIPIntoContext, d.webhooks.HandleEvent)
	r.POST("/webhooks/execute/call", d.executor.HandleExecuteCall)
	r.POST("/webhooks/execute/email", d.executor.HandleExecuteEmail)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(d.authMW)

	staff := httpapi.RequireClinicAndAnyRole(
		rbac.RoleClinicAdmin, rbac.RoleVeterinarian, rbac.RoleTechnician, rbac.RoleReceptionist)

	// SCHEDULING routes
	jobs := v1.Group("/")
	jobs.Use(staff...)
	{
		jobs.POST("/calls/:id/schedule", d.schedules.HandleScheduleCall)
		jobs.POST("/calls/:id/execute", d.schedules.HandleExecuteCallNow)
		jobs.POST("/emails/:id/schedule", d.schedules.HandleScheduleEmail)
		jobs.POST("/emails/:id/execute", d.schedules.HandleExecuteEmailNow)
	}

	// REPORTING routes
	reports := v1.Group("/")
	reports.Use(staff...)
	{
		h := httpapi.Handlers{Reports: d.reports}
		reports.GET("/reports/calls", h.GetCallsSummary)
		reports.GET("/cases/:case_id/status", h.GetCaseStatus)
	}
}

// clientIPIntoContext attaches the resolved client IP to the request
// context so override audit entries downstream can record it.
func clientIPIntoContext(c *gin.Context) {
	ctx := routing.WithClientIP(c.Request.Context(), c.ClientIP())
	c.Request = c.Request.WithContext(ctx)
}

// assistantResolver adapts the routing engine to the webhook dispatcher's
// assistant-request hook. A decline surfaces as an error; the provider then
// plays its no-assistant fallback.
func assistantResolver(engine *routing.RoutingEngine) webhook.AssistantResolver {
	return func(ctx context.Context, req webhook.AssistantRequest) (string, error) {
		call := routing.InboundCall{
			DialedNumber: req.DialedNumber,
			CallerNumber: req.CallerNumber,
		}
		if req.Call != nil {
			call.ProviderCallID = req.Call.ID
		}
		d, err := engine.ResolveInbound(ctx, call)
		if err != nil {
			return "", err
		}
		if d.Action != routing.ActionAssign {
			return "", fmt.Errorf("no assistant for %s: %s", req.DialedNumber, d.Reason)
		}
		return d.AssistantID, nil
	}
}

// followUpAdapter lets the mid-call tool set book jobs through the scheduler.
type followUpAdapter struct {
	svc *scheduler.Service
}

func (a followUpAdapter) ScheduleCall(ctx context.Context, callID string, at time.Time) (string, error) {
	job, err := a.svc.Schedule(ctx, scheduler.KindCall, callID, at)
	if err != nil {
		return "", err
	}
	return job.ID, nil
}
