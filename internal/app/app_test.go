package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"paydesk_backend/internal/config"
	"paydesk_backend/internal/email"
	"paydesk_backend/internal/handlers"
	"paydesk_backend/internal/models"
	"paydesk_backend/internal/services/otp"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = "secret"
	cfg.Gateway.AppName = "PAYDESK"
	cfg.Gateway.StatusPath = "/api/payments/%s/status"
	cfg.Gateway.PollInterval = 5
	cfg.Gateway.PollTimeout = 120
	cfg.Gateway.SessionTTL = 300
	cfg.OTP.Store = "memory"
	cfg.Withdrawal.Limits = map[string]config.AmountLimits{
		"om":     {Min: 100, Max: 1000},
		"WAVE":   {Min: 200, Max: 2000},
		"PAYPAL": {Min: 1, Max: 2},
	}
	return cfg
}

func TestWithdrawalLimits_ParsesMethods(t *testing.T) {
	limits := withdrawalLimits(testConfig())

	require.Len(t, limits, 2)
	assert.Equal(t, int64(1000), limits[models.MethodOrangeMoney].Max)
	assert.Equal(t, int64(200), limits[models.MethodWave].Min)
}

func TestReconciliationNotifier_FallsBackToLog(t *testing.T) {
	_, ok := reconciliationNotifier(testConfig()).(email.LogNotifier)
	assert.True(t, ok)
}

func TestSetupRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig()
	container := initializeServices(ctx, cfg, nil)
	defer container.PaymentService.Shutdown()

	_, isMemory := container.OTPStore.(*otp.MemoryStore)
	assert.True(t, isMemory)

	router := SetupRouter(cfg, container, map[string]handlers.PingFunc{
		"database": func(context.Context) error { return nil },
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/-/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/payments/FAC-1", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
