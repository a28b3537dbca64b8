package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"paydesk_backend/internal/auth"
	"paydesk_backend/internal/dto"
	"paydesk_backend/internal/models"
	"paydesk_backend/internal/services/withdrawal"
	"paydesk_backend/internal/validator"
	"paydesk_backend/pkg/apperrors"
	"paydesk_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================
// Fakes
// ============================================

type fakePayments struct {
	startReq  *dto.StartPaymentRequest
	structure string
	resp      *dto.PaymentSessionResponse
	err       error
}

func (f *fakePayments) StartPayment(_ context.Context, structureID, _ string, req *dto.StartPaymentRequest) (*dto.PaymentSessionResponse, error) {
	f.startReq = req
	f.structure = structureID
	return f.resp, f.err
}

func (f *fakePayments) GetPayment(_ context.Context, structureID, reference string) (*dto.PaymentSessionResponse, error) {
	f.structure = structureID
	if f.resp == nil || f.resp.Reference != reference {
		return nil, apperrors.ErrPaymentNotFound
	}
	return f.resp, nil
}

func (f *fakePayments) CancelPayment(ctx context.Context, structureID, reference string) (*dto.PaymentSessionResponse, error) {
	return f.GetPayment(ctx, structureID, reference)
}

type fakeOTP struct {
	calls int
	phone string
	err   error
}

func (f *fakeOTP) Issue(_ context.Context, _ string, phone string, _ models.PaymentMethod, _ int64) (time.Time, error) {
	f.calls++
	f.phone = phone
	return time.Date(2026, 1, 1, 12, 2, 0, 0, time.UTC), f.err
}

type fakeCoordinator struct {
	limits  withdrawal.Limits
	req     withdrawal.Request
	tx      *models.WithdrawalTransaction
	err     error
	records []models.WithdrawalRecord
	limit   int
	offset  int
}

func (f *fakeCoordinator) Limits() withdrawal.Limits { return f.limits }

func (f *fakeCoordinator) Withdraw(_ context.Context, req withdrawal.Request) (*models.WithdrawalTransaction, error) {
	f.req = req
	return f.tx, f.err
}

func (f *fakeCoordinator) History(_ context.Context, _ string, limit, offset int) ([]models.WithdrawalRecord, int64, error) {
	f.limit, f.offset = limit, offset
	return f.records, int64(len(f.records)), nil
}

// ============================================
// Helpers
// ============================================

func newTestRouter(role string, payments PaymentService, otp OTPIssuer, coordinator WithdrawalCoordinator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	base := NewBaseHandler(validator.New())
	api := r.Group("/api/v1", func(c *gin.Context) {
		c.Set(contextkeys.StructureIDKey, "s1")
		c.Set(contextkeys.StructureNameKey, "Pharmacie Dakar")
		c.Set(contextkeys.RoleKey, role)
		c.Next()
	})
	if payments != nil {
		NewPaymentHandler(base, payments).RegisterRoutes(api)
	}
	if otp != nil || coordinator != nil {
		NewWithdrawalHandler(base, otp, coordinator).RegisterRoutes(api)
	}
	return r
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

// ============================================
// Payments
// ============================================

func TestStartPayment_CreatedAndReused(t *testing.T) {
	payments := &fakePayments{resp: &dto.PaymentSessionResponse{Reference: "FAC-123", GatewayUUID: "u-1", Created: true}}
	r := newTestRouter(auth.RoleCashier, payments, nil, nil)

	body := gin.H{"reference": " FAC-123 ", "method": "wave", "amount": 5000, "client_phone": "771234567"}
	w := doJSON(r, http.MethodPost, "/api/v1/payments", body)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "FAC-123", payments.startReq.Reference)
	assert.Equal(t, "s1", payments.structure)

	payments.resp.Created = false
	w = doJSON(r, http.MethodPost, "/api/v1/payments", body)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStartPayment_ValidationAndConflict(t *testing.T) {
	payments := &fakePayments{}
	r := newTestRouter(auth.RoleCashier, payments, nil, nil)

	w := doJSON(r, http.MethodPost, "/api/v1/payments", gin.H{"reference": "FAC-1", "method": "PAYPAL", "amount": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, w))
	assert.Nil(t, payments.startReq)

	payments.err = apperrors.ErrCreationInProgress
	w = doJSON(r, http.MethodPost, "/api/v1/payments", gin.H{"reference": "FAC-1", "method": "OM", "amount": 100, "client_phone": "771234567"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONCURRENCY_CONFLICT", errorCode(t, w))
}

func TestGetAndCancelPayment(t *testing.T) {
	payments := &fakePayments{resp: &dto.PaymentSessionResponse{Reference: "FAC-123", Status: "PROCESSING", Active: true}}
	r := newTestRouter(auth.RoleManager, payments, nil, nil)

	w := doJSON(r, http.MethodGet, "/api/v1/payments/FAC-123", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/payments/UNKNOWN", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodDelete, "/api/v1/payments/FAC-123", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPaymentSnapshot(t *testing.T) {
	payments := &fakePayments{resp: &dto.PaymentSessionResponse{Reference: "FAC-123", GatewayUUID: "u-1", Status: "COMPLETED"}}
	h := NewPaymentHandler(NewBaseHandler(validator.New()), payments)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/ws/payments", nil)

	event, ok := h.Snapshot(c, "s1", "FAC-123")
	require.True(t, ok)
	assert.True(t, event.Terminal)
	assert.Equal(t, "COMPLETED", event.Status)

	_, ok = h.Snapshot(c, "s1", "OTHER")
	assert.False(t, ok)
}

// ============================================
// Withdrawals
// ============================================

func testLimits() withdrawal.Limits {
	return withdrawal.Limits{
		models.MethodOrangeMoney: {Min: 100, Max: 1_000_000},
		models.MethodWave:        {Min: 100, Max: 1_500_000},
		models.MethodFree:        {Min: 100, Max: 1_000_000},
	}
}

func TestIssueOTP_ChecksLimitsFirst(t *testing.T) {
	otp := &fakeOTP{}
	coordinator := &fakeCoordinator{limits: testLimits()}
	r := newTestRouter(auth.RoleOwner, nil, otp, coordinator)

	w := doJSON(r, http.MethodPost, "/api/v1/withdrawals/otp", gin.H{"method": "OM", "phone": "771234567", "amount": 2_000_000})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, otp.calls)

	w = doJSON(r, http.MethodPost, "/api/v1/withdrawals/otp", gin.H{"method": "OM", "phone": "+221 77 123 45 67", "amount": 5000})
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, otp.calls)
	assert.Equal(t, "771234567", otp.phone)
}

func TestIssueOTP_DeliveryFailure(t *testing.T) {
	otp := &fakeOTP{err: apperrors.OTPDeliveryFailed(errors.New("sms down"))}
	r := newTestRouter(auth.RoleOwner, nil, otp, &fakeCoordinator{limits: testLimits()})

	w := doJSON(r, http.MethodPost, "/api/v1/withdrawals/otp", gin.H{"method": "WAVE", "phone": "771234567", "amount": 5000})
	assert.Equal(t, "OTP_DELIVERY_FAILED", errorCode(t, w))
}

func TestWithdraw_Success(t *testing.T) {
	coordinator := &fakeCoordinator{
		limits: testLimits(),
		tx: &models.WithdrawalTransaction{
			GatewayTransactionID: "TX-1",
			Method:               models.MethodWave,
			Phone:                "771234567",
			Amount:               5000,
			PersistenceStatus:    models.PersistenceSaved,
		},
	}
	r := newTestRouter(auth.RoleOwner, nil, &fakeOTP{}, coordinator)

	w := doJSON(r, http.MethodPost, "/api/v1/withdrawals", gin.H{"method": "wave", "phone": "771234567", "amount": 5000, "code": "12345"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.MethodWave, coordinator.req.Method)
	assert.Equal(t, "Pharmacie Dakar", coordinator.req.StructureName)

	var resp dto.WithdrawalResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "TX-1", resp.TransactionID)
}

func TestWithdraw_PersistenceErrorExposesTransaction(t *testing.T) {
	coordinator := &fakeCoordinator{
		limits: testLimits(),
		err:    apperrors.PersistenceError(errors.New("db down"), "TX-9", withdrawal.StageLedger),
	}
	r := newTestRouter(auth.RoleOwner, nil, &fakeOTP{}, coordinator)

	w := doJSON(r, http.MethodPost, "/api/v1/withdrawals", gin.H{"method": "OM", "phone": "771234567", "amount": 5000, "code": "12345"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"transaction_id":"TX-9"`)
	assert.Contains(t, w.Body.String(), `"reconciliation_required":true`)
}

func TestWithdraw_ForbiddenForCashier(t *testing.T) {
	r := newTestRouter(auth.RoleCashier, nil, &fakeOTP{}, &fakeCoordinator{limits: testLimits()})

	w := doJSON(r, http.MethodPost, "/api/v1/withdrawals", gin.H{"method": "OM", "phone": "771234567", "amount": 5000, "code": "12345"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestWithdrawalHistory_ClampsPaging(t *testing.T) {
	coordinator := &fakeCoordinator{
		limits:  testLimits(),
		records: []models.WithdrawalRecord{{ID: "r1", TransactionID: "TX-1", Amount: 5000, Method: models.MethodOrangeMoney}},
	}
	r := newTestRouter(auth.RoleManager, nil, &fakeOTP{}, coordinator)

	w := doJSON(r, http.MethodGet, "/api/v1/withdrawals?limit=500&offset=-3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 100, coordinator.limit)
	assert.Equal(t, 0, coordinator.offset)

	var resp dto.WithdrawalHistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, "TX-1", resp.Items[0].TransactionID)
}

// ============================================
// Health
// ============================================

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	failing := false
	NewHealthHandler(map[string]PingFunc{
		"database": func(context.Context) error {
			if failing {
				return errors.New("down")
			}
			return nil
		},
	}, func() int { return 2 }).RegisterRoutes(r)

	assert.Equal(t, http.StatusOK, doJSON(r, http.MethodGet, "/-/live", nil).Code)

	w := doJSON(r, http.MethodGet, "/-/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"active_pollers":2`)

	failing = true
	assert.Equal(t, http.StatusServiceUnavailable, doJSON(r, http.MethodGet, "/-/ready", nil).Code)
}
