package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/promotion-approval/internal/application/service"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	health   HealthChecker
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, health HealthChecker, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		health:   health,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// CreatePromotionRequest is the body of POST /api/promotion-requests
type CreatePromotionRequest struct {
	EmployeeID         string  `json:"employeeId"`
	TargetLevel        string  `json:"targetLevel"`
	TargetPosition     string  `json:"targetPosition"`
	RaisePercentage    float64 `json:"raisePercentage"`
	PerformanceSummary string  `json:"performanceSummary"`
	SkillSummary       string  `json:"skillSummary"`
	CompetencySummary  string  `json:"competencySummary"`
	WorkSummary        string  `json:"workSummary"`
}

// ApproveRequest is the optional body of POST /:id/approve
type ApproveRequest struct {
	Comment string `json:"comment"`
}

// RejectRequest is the body of POST /:id/reject
type RejectRequest struct {
	Reason string `json:"reason"`
}

// UpdateChainRequest is the body of PUT /api/approval-chain
type UpdateChainRequest struct {
	Roles []string `json:"roles"`
}

// ChainResponse represents the approval chain in API responses
type ChainResponse struct {
	Roles []string `json:"roles"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	if h.health != nil {
		if err := h.health(c.Request.Context()); err != nil {
			h.logger.Error("Health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, Response{
				Success: false,
				Message: "database unavailable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// CreatePromotion handles POST /api/promotion-requests
func (h *Handlers) CreatePromotion(c *gin.Context) {
	var req CreatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	view, err := h.services.Promotions.Create(c.Request.Context(), mustActor(c), service.CreateInput{
		EmployeeID:         req.EmployeeID,
		TargetLevel:        req.TargetLevel,
		TargetPosition:     req.TargetPosition,
		RaisePercentage:    req.RaisePercentage,
		PerformanceSummary: req.PerformanceSummary,
		SkillSummary:       req.SkillSummary,
		CompetencySummary:  req.CompetencySummary,
		WorkSummary:        req.WorkSummary,
	})
	if err != nil {
		h.fail(c, "create promotion request", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: view})
}

// ListMyPromotions handles GET /api/promotion-requests/my
func (h *Handlers) ListMyPromotions(c *gin.Context) {
	views, err := h.services.Promotions.ListMine(c.Request.Context(), mustActor(c))
	if err != nil {
		h.fail(c, "list my promotion requests", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: views})
}

// ListPendingPromotions handles GET /api/promotion-requests/pending
func (h *Handlers) ListPendingPromotions(c *gin.Context) {
	views, err := h.services.Promotions.ListPending(c.Request.Context(), mustActor(c))
	if err != nil {
		h.fail(c, "list pending promotion requests", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: views})
}

// ApprovalHistory handles GET /api/promotion-requests/history
func (h *Handlers) ApprovalHistory(c *gin.Context) {
	page, err := queryInt(c, "page")
	if err != nil {
		h.badRequest(c, "page must be an integer", err)
		return
	}
	pageSize, err := queryInt(c, "pageSize")
	if err != nil {
		h.badRequest(c, "pageSize must be an integer", err)
		return
	}

	result, err := h.services.History.ForActor(c.Request.Context(), mustActor(c), page, pageSize)
	if err != nil {
		h.fail(c, "query approval history", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// ExportPromotions handles GET /api/promotion-requests/export
func (h *Handlers) ExportPromotions(c *gin.Context) {
	out, err := h.services.Exports.Export(c.Request.Context(), mustActor(c), c.Query("format"))
	if err != nil {
		h.fail(c, "export promotion requests", err)
		return
	}

	if out.Format == service.FormatJSON {
		c.JSON(http.StatusOK, Response{
			Success: true,
			Data:    gin.H{"records": out.Records},
		})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, out.Filename))
	c.Data(http.StatusOK, out.ContentType, out.Body)
}

// GetPromotion handles GET /api/promotion-requests/:id
func (h *Handlers) GetPromotion(c *gin.Context) {
	view, err := h.services.Promotions.Get(c.Request.Context(), mustActor(c), c.Param("id"))
	if err != nil {
		h.fail(c, "get promotion request", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: view})
}

// ApprovePromotion handles POST /api/promotion-requests/:id/approve
func (h *Handlers) ApprovePromotion(c *gin.Context) {
	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.badRequest(c, "invalid request body", err)
		return
	}

	view, err := h.services.Promotions.Approve(c.Request.Context(), mustActor(c), c.Param("id"), req.Comment)
	if err != nil {
		h.fail(c, "approve promotion request", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: view})
}

// RejectPromotion handles POST /api/promotion-requests/:id/reject
func (h *Handlers) RejectPromotion(c *gin.Context) {
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.badRequest(c, "invalid request body", err)
		return
	}

	view, err := h.services.Promotions.Reject(c.Request.Context(), mustActor(c), c.Param("id"), req.Reason)
	if err != nil {
		h.fail(c, "reject promotion request", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: view})
}

// GetApprovalChain handles GET /api/approval-chain
func (h *Handlers) GetApprovalChain(c *gin.Context) {
	chain, err := h.services.Chains.GetChain(c.Request.Context())
	if err != nil {
		h.fail(c, "get approval chain", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: ChainResponse{Roles: chain.Strings()}})
}

// UpdateApprovalChain handles PUT /api/approval-chain
func (h *Handlers) UpdateApprovalChain(c *gin.Context) {
	var req UpdateChainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	chain, err := h.services.Chains.UpdateChain(c.Request.Context(), mustActor(c), req.Roles)
	if err != nil {
		h.fail(c, "update approval chain", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: ChainResponse{Roles: chain.Strings()}})
}

func (h *Handlers) badRequest(c *gin.Context, message string, err error) {
	h.logger.Error("Bad request", "path", c.FullPath(), "message", message, "error", err)
	c.JSON(http.StatusBadRequest, Response{Success: false, Message: message})
}

// fail maps service errors onto status codes. Unexpected errors are logged and hidden.
func (h *Handlers) fail(c *gin.Context, op string, err error) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Failed to "+op, "error", err)
	}
	c.JSON(status, Response{Success: false, Message: message})
}

func statusFor(err error) (int, string) {
	var (
		validation    *service.ValidationError
		authorization *service.AuthorizationError
		conflict      *service.StateConflictError
		notFound      *service.NotFoundError
	)

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Error()
	case errors.As(err, &conflict):
		return http.StatusBadRequest, conflict.Error()
	case errors.As(err, &authorization):
		return http.StatusForbidden, authorization.Error()
	case errors.As(err, &notFound):
		return http.StatusNotFound, notFound.Error()
	case errors.Is(err, service.ErrChainNotConfigured):
		return http.StatusInternalServerError, service.ErrChainNotConfigured.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// mustActor is only used behind the auth middleware
func mustActor(c *gin.Context) service.Actor {
	actor, _ := actorFrom(c)
	return actor
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
