package httpapi

import (
	"errors"
	"net/http"
	"time"

	"vetvoice-platform/internal/auth"
	"vetvoice-platform/internal/calls"
	"vetvoice-platform/internal/rbac"
	"vetvoice-platform/internal/reporting"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Reports *reporting.Service
}

// --- Reporting ---

// GetCallsSummary serves GET /v1/reports/calls?from=...&to=...
// The range is RFC 3339; clinic scope comes from the verified token.
func (h Handlers) GetCallsSummary(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	clinicID, err := auth.ClinicID(c.Request.Context())
	if err != nil || clinicID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "clinic_id required"})
		return
	}

	from, err1 := time.Parse(time.RFC3339, c.Query("from"))
	to, err2 := time.Parse(time.RFC3339, c.Query("to"))
	if err1 != nil || err2 != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from and to must be RFC 3339"})
		return
	}

	out, err := h.Reports.CallsSummary(c.Request.Context(), reporting.CallsSummaryRequest{
		ClinicID: clinicID,
		Range:    reporting.TimeRange{From: from, To: to},
	})
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidRequest) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid range"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "summary failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

// GetCaseStatus serves GET /v1/cases/:case_id/status — the dashboard's
// single overall status for a case's call+email pair.
func (h Handlers) GetCaseStatus(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	clinicID, err := auth.ClinicID(c.Request.Context())
	if err != nil || clinicID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "clinic_id required"})
		return
	}
	caseID := c.Param("case_id")
	if caseID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "case_id required"})
		return
	}

	out, err := h.Reports.CaseStatus(c.Request.Context(), clinicID, caseID)
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidRequest) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if errors.Is(err, calls.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "case not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "status lookup failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

// Convenience middleware bundles.

func RequireClinicAndAnyRole(roles ...string) []gin.HandlerFunc {
	return []gin.HandlerFunc{rbac.RequireClinic(), rbac.RequireAnyRole(roles...)}
}
