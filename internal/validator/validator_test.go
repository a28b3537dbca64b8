package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type withdrawalInput struct {
	Method string `json:"method" validate:"required,is-payment-method"`
	Phone  string `json:"phone" validate:"required,is-msisdn"`
	Amount int64  `json:"amount" validate:"required,gt=0"`
}

func TestValidate_CustomRules(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(&withdrawalInput{Method: "WAVE", Phone: "+221 77 123 45 67", Amount: 500}))

	err := v.Validate(&withdrawalInput{Method: "PAYPAL", Phone: "661234567", Amount: 500})
	require.Error(t, err)

	vErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Equal(t, "Must be one of: OM, WAVE, FREE", vErr.Errors["method"])
	assert.Equal(t, "Must be a valid Senegalese mobile number", vErr.Errors["phone"])
}

func TestIsMSISDN(t *testing.T) {
	cases := map[string]bool{
		"771234567":     true,
		"221701234567":  true,
		"+221781234567": true,
		"76 123 45 67":  true,
		"741234567":     false,
		"77123456":      false,
		"33123456789":   false,
		"":              false,
	}
	for phone, want := range cases {
		assert.Equal(t, want, IsMSISDN(phone), phone)
	}
}
