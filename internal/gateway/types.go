package gateway

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ============================================
// Create payment
// ============================================

type CreateRequest struct {
	AppName       string `json:"appName"`
	Method        string `json:"method"`
	Reference     string `json:"reference"`
	ClientPhone   string `json:"clientPhone"`
	Amount        int64  `json:"amount"`
	ServiceName   string `json:"serviceName"`
	ClientName    string `json:"clientName"`
	StructureName string `json:"structureName"`
}

type CreateResponse struct {
	UUID       string `json:"uuid"`
	Status     string `json:"status"`
	QRCode     string `json:"qrCode"`
	OM         string `json:"om,omitempty"`
	Maxit      string `json:"maxit,omitempty"`
	PaymentURL string `json:"paymentUrl,omitempty"`
}

// ============================================
// Query status
// ============================================

type StatusMetadata struct {
	OriginalStatus string `json:"originalStatus,omitempty"`
}

// StatusData keeps completedAt and externalReference undecoded: the gateway
// sends either strings or epoch numbers and only their presence matters.
type StatusData struct {
	Statut            string          `json:"statut,omitempty"`
	CompletedAt       json.RawMessage `json:"completedAt,omitempty"`
	ExternalReference json.RawMessage `json:"externalReference,omitempty"`
	Metadata          *StatusMetadata `json:"metadata,omitempty"`
}

// HasCompletedAt reports whether completedAt is set to a non-empty value.
func (d *StatusData) HasCompletedAt() bool {
	return d != nil && present(d.CompletedAt)
}

// HasExternalReference reports whether externalReference is set to a non-empty value.
func (d *StatusData) HasExternalReference() bool {
	return d != nil && present(d.ExternalReference)
}

// present is false for a missing field, null and blank strings.
func present(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return false
		}
		return strings.TrimSpace(s) != ""
	}
	return true
}

// RawStatus is the gateway's status answer, uninterpreted. Body keeps the
// exact bytes for the attempt journal.
type RawStatus struct {
	UUID   string          `json:"-"`
	Status string          `json:"status"`
	Data   *StatusData     `json:"data,omitempty"`
	Body   json.RawMessage `json:"-"`
}

// OriginalStatus returns metadata.originalStatus or "".
func (r *RawStatus) OriginalStatus() string {
	if r == nil || r.Data == nil || r.Data.Metadata == nil {
		return ""
	}
	return r.Data.Metadata.OriginalStatus
}

// ============================================
// Send cash
// ============================================

type SendCashRequest struct {
	ServiceName   string `json:"serviceName"`
	AppName       string `json:"appName"`
	Method        string `json:"method"`
	Phone         string `json:"phone"`
	Amount        int64  `json:"amount"`
	Motif         string `json:"motif"`
	StructureName string `json:"structureName"`
}

type SendCashDetail struct {
	Reference         string `json:"reference"`
	TransactionID     string `json:"transactionId"`
	Status            string `json:"status"`
	PersistenceStatus string `json:"persistenceStatus"`
}

type SendCashResponse struct {
	Detail *SendCashDetail `json:"detail,omitempty"`
}

// ============================================
// SMS
// ============================================

type SMSRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
	Sender  string `json:"sender"`
}
