package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	BillingRequestPending   = "PENDING"
	BillingRequestCompleted = "COMPLETED"
	BillingRequestFailed    = "FAILED"
)

// BillingRequest records one billing-key registration attempt. A row is
// written before the gateway is called and updated once with the outcome,
// so an attempt that never returns still leaves an audit trail. Rows are
// never deleted.
type BillingRequest struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"customer_id"`
	OrderID     string     `gorm:"not null;size:64;uniqueIndex" json:"order_id"`
	Status      string     `gorm:"size:20;not null;default:'PENDING'" json:"status"`
	ResultCode  string     `gorm:"size:30" json:"result_code"`
	ResultMsg   string     `gorm:"type:text" json:"result_msg"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Customer    User       `gorm:"foreignKey:CustomerID" json:"-"`
}

// Complete marks a successful billing-key registration.
func (r *BillingRequest) Complete(resultCode, resultMsg string, at time.Time) {
	r.Status = BillingRequestCompleted
	r.ResultCode = resultCode
	r.ResultMsg = resultMsg
	r.CompletedAt = &at
}

// Fail marks a failed registration attempt.
func (r *BillingRequest) Fail(resultCode, resultMsg string) {
	r.Status = BillingRequestFailed
	r.ResultCode = resultCode
	r.ResultMsg = resultMsg
}
