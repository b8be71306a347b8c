package handler

import (
	"strconv"
	"time"

	aiusageapp "github.com/propman/backend/internal/application/aiusage"
	"github.com/propman/backend/internal/domain/aiusage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AIUsageHandler handles the usage ledger and guarded invocation endpoints
type AIUsageHandler struct {
	BaseHandler
	ledgerService *aiusageapp.LedgerService
	exportService *aiusageapp.ExportService
}

// NewAIUsageHandler creates a new AIUsageHandler
func NewAIUsageHandler(ledgerService *aiusageapp.LedgerService, exportService *aiusageapp.ExportService) *AIUsageHandler {
	return &AIUsageHandler{
		ledgerService: ledgerService,
		exportService: exportService,
	}
}

// =============================================================================
// Usage Request DTOs
// =============================================================================

// RecordUsageRequest represents a request to append a ledger entry
//
//	@Description	Request body for recording one AI invocation attempt
type RecordUsageRequest struct {
	Feature      string `json:"feature" binding:"required" example:"chat"`
	CallerID     string `json:"caller_id" binding:"omitempty,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Model        string `json:"model" binding:"required" example:"gpt-4o-mini"`
	InputTokens  int64  `json:"input_tokens" binding:"gte=0" example:"1200"`
	OutputTokens int64  `json:"output_tokens" binding:"gte=0" example:"340"`
	Success      *bool  `json:"success" binding:"required" example:"true"`
}

// InvokeRequest represents a guarded AI invocation
//
//	@Description	Request body for one gated AI call
type InvokeRequest struct {
	Feature   string `json:"feature" binding:"required" example:"analysis"`
	CallerID  string `json:"caller_id" binding:"omitempty,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Model     string `json:"model" binding:"required" example:"gpt-4o"`
	Prompt    string `json:"prompt" binding:"required" example:"Summarize this lease"`
	MaxTokens int64  `json:"max_tokens" binding:"gte=0" example:"2048"`
}

// ExportUsageRequest represents a ledger export request
//
//	@Description	Request body for exporting ledger entries as CSV
type ExportUsageRequest struct {
	From    time.Time `json:"from" binding:"required" example:"2026-08-01T00:00:00Z"`
	To      time.Time `json:"to" binding:"required" example:"2026-09-01T00:00:00Z"`
	Feature string    `json:"feature" binding:"omitempty" example:"ocr"`
}

// Record godoc
//
//	@ID				recordAIUsage
//	@Summary		Record an AI invocation
//	@Description	Append one invocation attempt to the usage ledger; cost is computed from the price table at write time
//	@Tags			ai-usage
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string				false	"Tenant ID (optional for dev)"
//	@Param			request		body		RecordUsageRequest	true	"Usage record request"
//	@Success		201			{object}	APIResponse[aiusageapp.UsageEventDTO]
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		500			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/usage [post]
func (h *AIUsageHandler) Record(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req RecordUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	callerID, err := resolveCallerID(c, req.CallerID)
	if err != nil {
		h.BadRequest(c, "Caller ID is required")
		return
	}

	feature, err := aiusage.ParseFeature(req.Feature)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	event, err := h.ledgerService.RecordUsage(c.Request.Context(), aiusageapp.RecordUsageInput{
		TenantID:     tenantID,
		Feature:      feature,
		CallerID:     callerID,
		Model:        req.Model,
		InputTokens:  req.InputTokens,
		OutputTokens: req.OutputTokens,
		Success:      *req.Success,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, event)
}

// Invoke godoc
//
//	@ID				invokeAI
//	@Summary		Run a governed AI call
//	@Description	Run one AI call through the rate limit and budget gates, invoke the provider and append the attempt to the ledger
//	@Tags			ai-usage
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string			false	"Tenant ID (optional for dev)"
//	@Param			request		body		InvokeRequest	true	"Invocation request"
//	@Success		200			{object}	APIResponse[aiusageapp.InvokeResultDTO]
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		422			{object}	dto.ErrorResponse
//	@Failure		429			{object}	dto.ErrorResponse
//	@Failure		503			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/invoke [post]
func (h *AIUsageHandler) Invoke(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req InvokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	callerID, err := resolveCallerID(c, req.CallerID)
	if err != nil {
		h.BadRequest(c, "Caller ID is required")
		return
	}

	feature, err := aiusage.ParseFeature(req.Feature)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.ledgerService.Invoke(c.Request.Context(), aiusageapp.InvokeInput{
		TenantID:  tenantID,
		CallerID:  callerID,
		Feature:   feature,
		Model:     req.Model,
		Prompt:    req.Prompt,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		if h.writeGateError(c, err) {
			return
		}
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// List godoc
//
//	@ID				listAIUsage
//	@Summary		List ledger entries
//	@Description	Retrieve usage events for the tenant matching the filter
//	@Tags			ai-usage
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Param			start_time	query		string	false	"Window start (RFC3339)"
//	@Param			end_time	query		string	false	"Window end (RFC3339)"
//	@Param			feature		query		string	false	"Feature filter"
//	@Param			caller_id	query		string	false	"Caller filter"	format(uuid)
//	@Param			success		query		bool	false	"Outcome filter"
//	@Param			page		query		int		false	"Page number"	default(1)
//	@Param			page_size	query		int		false	"Page size"		default(100)
//	@Success		200			{object}	APIResponse[[]aiusageapp.UsageEventDTO]
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		500			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/usage [get]
func (h *AIUsageHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	filter, ok := h.parseUsageFilter(c)
	if !ok {
		return
	}

	events, err := h.ledgerService.GetUsageEvents(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, events)
}

// parseUsageFilter builds a ledger filter from query parameters. Writes the
// error response itself and returns ok=false on invalid input.
func (h *AIUsageHandler) parseUsageFilter(c *gin.Context) (aiusage.UsageEventFilter, bool) {
	filter := aiusage.DefaultUsageEventFilter()

	if raw := c.Query("start_time"); raw != "" {
		start, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.BadRequest(c, "Invalid start_time format, expected RFC3339")
			return filter, false
		}
		filter.StartTime = &start
	}
	if raw := c.Query("end_time"); raw != "" {
		end, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.BadRequest(c, "Invalid end_time format, expected RFC3339")
			return filter, false
		}
		filter.EndTime = &end
	}
	if raw := c.Query("feature"); raw != "" {
		feature, err := aiusage.ParseFeature(raw)
		if err != nil {
			h.BadRequest(c, err.Error())
			return filter, false
		}
		filter = filter.WithFeature(feature)
	}
	if raw := c.Query("caller_id"); raw != "" {
		callerID, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid caller_id format")
			return filter, false
		}
		filter = filter.WithCaller(callerID)
	}
	if raw := c.Query("success"); raw != "" {
		success, err := strconv.ParseBool(raw)
		if err != nil {
			h.BadRequest(c, "Invalid success value, expected true or false")
			return filter, false
		}
		filter.Success = &success
	}
	if raw := c.Query("page"); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil && page > 0 {
			filter.Page = page
		}
	}
	if raw := c.Query("page_size"); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil && size > 0 {
			filter.PageSize = size
		}
	}

	return filter, true
}

// Summary godoc
//
//	@ID				getAIUsageSummary
//	@Summary		Get month-to-date spend summary
//	@Description	Summarize each feature's current calendar-month spend, call count and failure count
//	@Tags			ai-usage
//	@Produce		json
//	@Param			X-Tenant-ID	header		string	false	"Tenant ID (optional for dev)"
//	@Success		200			{object}	APIResponse[[]aiusageapp.FeatureSpendDTO]
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		500			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/usage/summary [get]
func (h *AIUsageHandler) Summary(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	summary, err := h.ledgerService.GetMonthlySpend(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, summary)
}

// Export godoc
//
//	@ID				exportAIUsage
//	@Summary		Export ledger entries
//	@Description	Extract ledger entries for a time window into a CSV object and return a presigned download link
//	@Tags			ai-usage
//	@Accept			json
//	@Produce		json
//	@Param			X-Tenant-ID	header		string				false	"Tenant ID (optional for dev)"
//	@Param			request		body		ExportUsageRequest	true	"Export request"
//	@Success		200			{object}	APIResponse[aiusageapp.ExportResultDTO]
//	@Failure		400			{object}	dto.ErrorResponse
//	@Failure		401			{object}	dto.ErrorResponse
//	@Failure		500			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/ai/usage/export [post]
func (h *AIUsageHandler) Export(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req ExportUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	input := aiusageapp.ExportUsageInput{
		TenantID: tenantID,
		From:     req.From,
		To:       req.To,
	}
	if req.Feature != "" {
		feature, err := aiusage.ParseFeature(req.Feature)
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}
		input.Feature = &feature
	}

	result, err := h.exportService.ExportUsage(c.Request.Context(), input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
