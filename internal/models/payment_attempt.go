package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PaymentAttempt is the durable journal row for one gateway payment session.
type PaymentAttempt struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	StructureID string         `gorm:"size:64;index" json:"structure_id"`
	Reference   string         `gorm:"size:128;index" json:"reference"`
	GatewayUUID string         `gorm:"size:128;uniqueIndex" json:"gateway_uuid"`
	Method      PaymentMethod  `gorm:"type:varchar(8);not null" json:"method"`
	Amount      int64          `gorm:"not null" json:"amount"`
	ClientPhone string         `gorm:"size:20" json:"client_phone"`
	Status      PaymentStatus  `gorm:"type:varchar(16);not null;index" json:"status"`
	EndReason   EndReason      `gorm:"type:varchar(16)" json:"end_reason,omitempty"`
	LastRaw     datatypes.JSON `json:"last_raw,omitempty"`
	Polls       int            `gorm:"default:0" json:"polls"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (PaymentAttempt) TableName() string {
	return "payment_attempts"
}
