package handlers

import (
	"context"
	"net/http"
	"time"

	"paydesk_backend/internal/auth"
	"paydesk_backend/internal/dto"
	"paydesk_backend/internal/middleware"
	"paydesk_backend/internal/models"
	"paydesk_backend/internal/services/withdrawal"
	"paydesk_backend/internal/validator"

	"github.com/gin-gonic/gin"
)

type OTPIssuer interface {
	Issue(ctx context.Context, structureID, phone string, method models.PaymentMethod, amount int64) (time.Time, error)
}

type WithdrawalCoordinator interface {
	Limits() withdrawal.Limits
	Withdraw(ctx context.Context, req withdrawal.Request) (*models.WithdrawalTransaction, error)
	History(ctx context.Context, structureID string, limit, offset int) ([]models.WithdrawalRecord, int64, error)
}

type WithdrawalHandler struct {
	*BaseHandler
	otp         OTPIssuer
	coordinator WithdrawalCoordinator
}

func NewWithdrawalHandler(base *BaseHandler, otp OTPIssuer, coordinator WithdrawalCoordinator) *WithdrawalHandler {
	return &WithdrawalHandler{
		BaseHandler: base,
		otp:         otp,
		coordinator: coordinator,
	}
}

func (h *WithdrawalHandler) RegisterRoutes(r *gin.RouterGroup) {
	withdrawals := r.Group("/withdrawals")
	{
		withdrawals.GET("", middleware.RequirePermission(auth.PermWithdrawalsRead), h.History)
		withdrawals.GET("/limits", middleware.RequirePermission(auth.PermWithdrawalsRead), h.GetLimits)
		withdrawals.POST("/otp", middleware.RequirePermission(auth.PermWithdrawalsWrite), h.IssueOTP)
		withdrawals.POST("", middleware.RequirePermission(auth.PermWithdrawalsWrite), h.Withdraw)
	}
}

// IssueOTP checks the limits before any SMS goes out.
func (h *WithdrawalHandler) IssueOTP(c *gin.Context) {
	structureID, _, ok := h.GetStructure(c)
	if !ok {
		return
	}

	var req dto.IssueOTPRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	method, _ := models.ParsePaymentMethod(req.Method)
	phone := validator.NormalizeMSISDN(req.Phone)
	if err := h.coordinator.Limits().Validate(method, phone, req.Amount); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	expiresAt, err := h.otp.Issue(c.Request.Context(), structureID, phone, method, req.Amount)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.IssueOTPResponse{
		Method:    string(method),
		ExpiresAt: expiresAt,
	})
}

func (h *WithdrawalHandler) Withdraw(c *gin.Context) {
	structureID, structureName, ok := h.GetStructure(c)
	if !ok {
		return
	}

	var req dto.WithdrawalRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	method, _ := models.ParsePaymentMethod(req.Method)
	tx, err := h.coordinator.Withdraw(c.Request.Context(), withdrawal.Request{
		StructureID:   structureID,
		StructureName: structureName,
		Phone:         req.Phone,
		Method:        method,
		Amount:        req.Amount,
		Code:          req.Code,
	})
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.WithdrawalResponse{
		TransactionID:     tx.GatewayTransactionID,
		GatewayReference:  tx.GatewayReference,
		Method:            string(tx.Method),
		Phone:             tx.Phone,
		Amount:            tx.Amount,
		Motif:             tx.Motif,
		PersistenceStatus: string(tx.PersistenceStatus),
		LedgerRecordID:    tx.LedgerRecordID,
		CreatedAt:         tx.CreatedAt,
	})
}

func (h *WithdrawalHandler) History(c *gin.Context) {
	structureID, _, ok := h.GetStructure(c)
	if !ok {
		return
	}
	limit, offset := ParseLimitOffset(c)

	records, total, err := h.coordinator.History(c.Request.Context(), structureID, limit, offset)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	items := make([]dto.WithdrawalHistoryItem, 0, len(records))
	for _, r := range records {
		items = append(items, dto.WithdrawalHistoryItem{
			ID:            r.ID,
			TransactionID: r.TransactionID,
			Phone:         r.Phone,
			Amount:        r.Amount,
			Method:        string(r.Method),
			CreatedAt:     r.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, dto.WithdrawalHistoryResponse{Items: items, Total: int(total)})
}

func (h *WithdrawalHandler) GetLimits(c *gin.Context) {
	limits := h.coordinator.Limits()
	out := make(map[string]gin.H, len(limits))
	for method, l := range limits {
		out[string(method)] = gin.H{"min": l.Min, "max": l.Max}
	}
	c.JSON(http.StatusOK, out)
}
