package withdrawal

import (
	"testing"

	"paydesk_backend/internal/models"
	"paydesk_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimits_Validate(t *testing.T) {
	tests := []struct {
		name   string
		method models.PaymentMethod
		phone  string
		amount int64
		field  string
	}{
		{"within bounds", models.MethodOrangeMoney, "771234567", 5000, ""},
		{"minimum is inclusive", models.MethodWave, "771234567", 100, ""},
		{"maximum is inclusive", models.MethodWave, "771234567", 1_500_000, ""},
		{"below minimum", models.MethodFree, "761234567", 99, "amount"},
		{"above maximum", models.MethodOrangeMoney, "781234567", 1_000_001, "amount"},
		{"zero amount", models.MethodWave, "771234567", 0, "amount"},
		{"bad phone", models.MethodWave, "12345", 5000, "phone"},
		{"bad method", models.PaymentMethod("CASH"), "771234567", 5000, "method"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := testLimits.Validate(tt.method, tt.phone, tt.amount)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			appErr, ok := apperrors.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)
			assert.Contains(t, appErr.Details.(map[string]string), tt.field)
		})
	}
}
