package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"paydesk_backend/internal/handlers"
	"paydesk_backend/internal/validator"
	"paydesk_backend/ws"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRegisterRoutes_ProtectsAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	base := handlers.NewBaseHandler(validator.New())
	appHandlers := &handlers.AppHandlers{
		PaymentHandler:    handlers.NewPaymentHandler(base, nil),
		WithdrawalHandler: handlers.NewWithdrawalHandler(base, nil, nil),
		HealthHandler:     handlers.NewHealthHandler(nil, nil),
	}
	RegisterRoutes(r, appHandlers, ws.NewWebSocketHandler(ws.NewWebSocketManager(), nil, nil), "secret")

	for _, path := range []string{"/api/v1/payments/FAC-1", "/api/v1/withdrawals", "/ws/payments?reference=FAC-1"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/-/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
