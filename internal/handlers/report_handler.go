package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "ledgerbook/internal/errors"
	"ledgerbook/internal/pagination"
	"ledgerbook/internal/services"
)

// ReportHandler handles live financials and published reports.
type ReportHandler struct {
	reportService services.ReportServicer
	auditService  services.AuditServicer
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService services.ReportServicer, auditService services.AuditServicer) *ReportHandler {
	return &ReportHandler{reportService: reportService, auditService: auditService}
}

// Financials handles the live totals view
// @Summary     Live financial totals
// @Description Income, expenses, balance and per-task income computed now. task_id narrows income only.
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       from_date query string false "Start date (RFC3339 or YYYY-MM-DD)"
// @Param       to_date   query string false "End date (RFC3339 or YYYY-MM-DD, inclusive)"
// @Param       task_id   query string false "Limit income to one task"
// @Success     200 {object} services.Totals "Totals"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Router      /reports/financials [get]
func (h *ReportHandler) Financials(c *gin.Context) {
	actor, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var filter services.TotalsFilter
	if filter.FromDate, filter.ToDate, err = parseDateRange(c); err != nil {
		respondWithError(c, err)
		return
	}
	if filter.TaskID, err = optionalUUIDQuery(c, "task_id"); err != nil {
		respondWithError(c, err)
		return
	}

	totals, err := h.reportService.Financials(c.Request.Context(), actor, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, totals)
}

// Publish handles publishing a report snapshot
// @Summary     Publish a report
// @Description Freeze the current totals into an immutable public report
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Success     201 {object} models.PublishedReport "Published report"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/publish [post]
func (h *ReportHandler) Publish(c *gin.Context) {
	h.publish(c)
}

// PipelinePublish handles scheduled publication
// @Summary     Publish a report (pipeline)
// @Description Scheduled publication authenticated by API key
// @Tags        pipeline
// @Produce     json
// @Security    ApiKeyAuth
// @Success     201 {object} models.PublishedReport "Published report"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Pipeline not configured"
// @Router      /pipeline/reports/publish [post]
func (h *ReportHandler) PipelinePublish(c *gin.Context) {
	h.publish(c)
}

func (h *ReportHandler) publish(c *gin.Context) {
	actor, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.reportService.Publish(c.Request.Context(), actor)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor, "PUBLISH_REPORT", "published_report", report.ID, c.ClientIP(),
		map[string]any{
			"total_income":   report.TotalIncome.StringFixed(2),
			"total_expenses": report.TotalExpenses.StringFixed(2),
			"balance":        report.Balance.StringFixed(2),
		})

	c.JSON(http.StatusCreated, gin.H{"report": report})
}

// GetPublished handles the public report view
// @Summary     Latest published report
// @Description Public, unauthenticated view of the most recently published snapshot
// @Tags        public
// @Produce     json
// @Success     200 {object} models.PublishedReport "Latest report"
// @Failure     404 {object} ErrorResponse "Nothing published yet"
// @Router      /reports/published [get]
func (h *ReportHandler) GetPublished(c *gin.Context) {
	report, err := h.reportService.GetLatestPublished(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}

// History handles listing published reports
// @Summary     Published report history
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.PublishedReport] "Paginated reports"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Router      /reports/history [get]
func (h *ReportHandler) History(c *gin.Context) {
	actor, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.reportService.ListPublished(c.Request.Context(), actor, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
