package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"paydesk_backend/internal/auth"
	"paydesk_backend/internal/dto"
	"paydesk_backend/internal/middleware"
	"paydesk_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type PaymentService interface {
	StartPayment(ctx context.Context, structureID, structureName string, req *dto.StartPaymentRequest) (*dto.PaymentSessionResponse, error)
	GetPayment(ctx context.Context, structureID, reference string) (*dto.PaymentSessionResponse, error)
	CancelPayment(ctx context.Context, structureID, reference string) (*dto.PaymentSessionResponse, error)
}

type PaymentHandler struct {
	*BaseHandler
	paymentService PaymentService
}

func NewPaymentHandler(base *BaseHandler, paymentService PaymentService) *PaymentHandler {
	return &PaymentHandler{
		BaseHandler:    base,
		paymentService: paymentService,
	}
}

// RegisterRoutes expects r to already run AuthMiddleware.
func (h *PaymentHandler) RegisterRoutes(r *gin.RouterGroup) {
	payments := r.Group("/payments")
	{
		payments.POST("", middleware.RequirePermission(auth.PermPaymentsWrite), h.StartPayment)
		payments.GET("/:reference", middleware.RequirePermission(auth.PermPaymentsRead), h.GetPayment)
		payments.DELETE("/:reference", middleware.RequirePermission(auth.PermPaymentsWrite), h.CancelPayment)
	}
}

// StartPayment answers 201 for a new gateway payment and 200 when an active
// session for the same reference is reused.
func (h *PaymentHandler) StartPayment(c *gin.Context) {
	structureID, structureName, ok := h.GetStructure(c)
	if !ok {
		return
	}

	var req dto.StartPaymentRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}
	req.Reference = strings.TrimSpace(req.Reference)

	resp, err := h.paymentService.StartPayment(c.Request.Context(), structureID, structureName, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	status := http.StatusOK
	if resp.Created {
		status = http.StatusCreated
	}
	c.JSON(status, resp)
}

func (h *PaymentHandler) GetPayment(c *gin.Context) {
	structureID, _, ok := h.GetStructure(c)
	if !ok {
		return
	}
	reference, ok := h.reference(c)
	if !ok {
		return
	}

	resp, err := h.paymentService.GetPayment(c.Request.Context(), structureID, reference)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) CancelPayment(c *gin.Context) {
	structureID, _, ok := h.GetStructure(c)
	if !ok {
		return
	}
	reference, ok := h.reference(c)
	if !ok {
		return
	}

	resp, err := h.paymentService.CancelPayment(c.Request.Context(), structureID, reference)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Snapshot feeds the websocket handler with the current status of a reference.
func (h *PaymentHandler) Snapshot(c *gin.Context, structureID, reference string) (*dto.PaymentStatusEvent, bool) {
	resp, err := h.paymentService.GetPayment(c.Request.Context(), structureID, reference)
	if err != nil {
		return nil, false
	}
	return &dto.PaymentStatusEvent{
		Reference:   resp.Reference,
		GatewayUUID: resp.GatewayUUID,
		Status:      resp.Status,
		Terminal:    !resp.Active,
		At:          time.Now(),
		Error:       resp.Error,
	}, true
}

func (h *PaymentHandler) reference(c *gin.Context) (string, bool) {
	reference := strings.TrimSpace(c.Param("reference"))
	if reference == "" {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Missing required path parameter: reference"))
		return "", false
	}
	return reference, true
}
