package models

import "time"

// PaymentSession is an in-flight gateway transaction for one business reference.
// It lives only in the session registry.
type PaymentSession struct {
	StructureID string        `json:"structure_id"`
	Reference   string        `json:"reference"`
	GatewayUUID string        `json:"gateway_uuid"`
	Method      PaymentMethod `json:"method"`
	Amount      int64         `json:"amount"`
	QRCode      string        `json:"qr_code,omitempty"`
	PaymentURL  string        `json:"payment_url,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	Active      bool          `json:"active"`
	EndedAt     *time.Time    `json:"ended_at,omitempty"`
	EndReason   EndReason     `json:"end_reason,omitempty"`
}

// IsActive is false once the session was ended or is older than ttl,
// whichever comes first.
func (s *PaymentSession) IsActive(now time.Time, ttl time.Duration) bool {
	return s.Active && now.Sub(s.CreatedAt) < ttl
}
