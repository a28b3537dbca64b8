package payment

import (
	"encoding/json"
	"testing"

	"paydesk_backend/internal/gateway"
	"paydesk_backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name string
		raw  *gateway.RawStatus
		want models.PaymentStatus
	}{
		{
			name: "nil answer keeps polling",
			raw:  nil,
			want: models.PaymentStatusProcessing,
		},
		{
			name: "no data keeps polling",
			raw:  &gateway.RawStatus{Status: "success"},
			want: models.PaymentStatusProcessing,
		},
		{
			name: "original FAILED beats completion fields",
			raw: &gateway.RawStatus{Data: &gateway.StatusData{
				CompletedAt:       json.RawMessage(`"2024-01-01T00:00:00Z"`),
				ExternalReference: json.RawMessage(`"X"`),
				Metadata:          &gateway.StatusMetadata{OriginalStatus: "FAILED"},
			}},
			want: models.PaymentStatusFailed,
		},
		{
			name: "completedAt and externalReference complete",
			raw: &gateway.RawStatus{Data: &gateway.StatusData{
				CompletedAt:       json.RawMessage(`"2024-01-01T00:00:00Z"`),
				ExternalReference: json.RawMessage(`"X"`),
			}},
			want: models.PaymentStatusCompleted,
		},
		{
			name: "completedAt alone is not enough",
			raw: &gateway.RawStatus{Data: &gateway.StatusData{
				CompletedAt: json.RawMessage(`"2024-01-01T00:00:00Z"`),
			}},
			want: models.PaymentStatusProcessing,
		},
		{
			name: "completion fields beat a legacy FAILED",
			raw: &gateway.RawStatus{Data: &gateway.StatusData{
				Statut:            "FAILED",
				CompletedAt:       json.RawMessage(`"2024-01-01T00:00:00Z"`),
				ExternalReference: json.RawMessage(`"X"`),
			}},
			want: models.PaymentStatusCompleted,
		},
		{
			name: "epoch completedAt counts as present",
			raw: &gateway.RawStatus{Data: &gateway.StatusData{
				CompletedAt:       json.RawMessage(`1717000000000`),
				ExternalReference: json.RawMessage(`"X"`),
			}},
			want: models.PaymentStatusCompleted,
		},
		{
			name: "null and blank completion fields are absent",
			raw: &gateway.RawStatus{Data: &gateway.StatusData{
				CompletedAt:       json.RawMessage(`null`),
				ExternalReference: json.RawMessage(`"  "`),
			}},
			want: models.PaymentStatusProcessing,
		},
		{
			name: "original status must match FAILED exactly",
			raw: &gateway.RawStatus{Data: &gateway.StatusData{
				CompletedAt:       json.RawMessage(`"2024-01-01T00:00:00Z"`),
				ExternalReference: json.RawMessage(`"X"`),
				Metadata:          &gateway.StatusMetadata{OriginalStatus: "failed"},
			}},
			want: models.PaymentStatusCompleted,
		},
		{
			name: "legacy COMPLETED",
			raw:  &gateway.RawStatus{Data: &gateway.StatusData{Statut: "COMPLETED"}},
			want: models.PaymentStatusCompleted,
		},
		{
			name: "legacy failed in lower case",
			raw:  &gateway.RawStatus{Data: &gateway.StatusData{Statut: "failed"}},
			want: models.PaymentStatusFailed,
		},
		{
			name: "original status other than FAILED is ignored",
			raw: &gateway.RawStatus{Data: &gateway.StatusData{
				Statut:   "PENDING",
				Metadata: &gateway.StatusMetadata{OriginalStatus: "INITIATED"},
			}},
			want: models.PaymentStatusProcessing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.raw))
		})
	}
}
