package apperrors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistenceError_ExposesTransactionID(t *testing.T) {
	cause := errors.New("procedure failed")
	appErr := PersistenceError(cause, "TX-9", "ledger")

	assert.Equal(t, CodePersistenceError, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.HTTPCode)
	assert.ErrorIs(t, appErr, cause)
	assert.Contains(t, appErr.Message, "TX-9")

	details, ok := appErr.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "TX-9", details["transaction_id"])
	assert.Equal(t, true, details["reconciliation_required"])
}

func TestHandleError_RendersAppError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	HandleError(c, OTPIncorrect(2))

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, string(CodeOTPIncorrect), body.Error.Code)
	assert.Contains(t, body.Error.Message, "2 attempt(s) remaining")
}

func TestHandleError_WrapsUnknownAsInternal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	HandleError(c, errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), string(CodeInternalError))
}
