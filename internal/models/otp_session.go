package models

import "time"

// OTPSession is a pending withdrawal confirmation code for (structure, method).
// Only the bcrypt hash of the code is kept.
type OTPSession struct {
	StructureID string        `gorm:"size:64;primaryKey" json:"structure_id"`
	Method      PaymentMethod `gorm:"type:varchar(8);primaryKey" json:"method"`
	CodeHash    string        `gorm:"size:72;not null" json:"-"`
	Phone       string        `gorm:"size:20;not null" json:"phone"`
	Amount      int64         `gorm:"not null" json:"amount"`
	ExpiresAt   time.Time     `gorm:"not null;index" json:"expires_at"`
	Attempts    int           `gorm:"not null;default:0" json:"attempts"`
	CreatedAt   time.Time     `json:"created_at"`
}

func (OTPSession) TableName() string {
	return "otp_sessions"
}
