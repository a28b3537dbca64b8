package gateway

import (
	"strings"

	"paydesk_backend/internal/models"
)

const dataURIPrefix = "data:image/png;base64,"

// FormatQRCode turns the gateway's QR payload into something an <img> can render.
// Data URIs and http(s) URLs pass through, bare base64 gets a PNG data-URI prefix.
func FormatQRCode(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "data:") || strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return raw
	}
	return dataURIPrefix + raw
}

// ExtractPaymentURL picks the deep link for the wallet app. Orange Money answers
// with "om" (or "maxit"), Wave and Free with "paymentUrl". Empty means QR only.
func ExtractPaymentURL(resp *CreateResponse, method models.PaymentMethod) string {
	if resp == nil {
		return ""
	}

	switch method {
	case models.MethodOrangeMoney:
		if resp.OM != "" {
			return resp.OM
		}
		return resp.Maxit
	case models.MethodWave, models.MethodFree:
		return resp.PaymentURL
	default:
		return ""
	}
}
