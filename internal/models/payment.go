package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	PaymentPending = "PENDING"
	PaymentSuccess = "SUCCESS"
	PaymentFailed  = "FAILED"
)

const PaymentTypeRecurring = "RECURRING"

// Payment is one ledger row per charge attempt. The order id is
// cycle-stamped and unique, which makes re-running a billing cycle a
// no-op instead of a double charge.
type Payment struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SubscriptionID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"subscription_id"`
	CustomerID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"customer_id"`
	PaymentMethodID    uuid.UUID      `gorm:"type:uuid;not null" json:"payment_method_id"`
	OrderID            string         `gorm:"size:64;not null;uniqueIndex" json:"order_id"`
	OrderName          string         `gorm:"size:200" json:"order_name"`
	PGGoodsName        string         `gorm:"size:100" json:"-"`
	Amount             int64          `gorm:"not null" json:"amount"`
	VAT                int64          `json:"vat"`
	DiscountAmount     int64          `json:"discount_amount"`
	Status             string         `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	PaymentType        string         `gorm:"size:20;not null;default:'RECURRING'" json:"payment_type"`
	PGTID              string         `gorm:"size:64" json:"pg_tid"`
	PGAuthCode         string         `gorm:"size:30" json:"pg_auth_code"`
	PGResultCode       string         `gorm:"size:30" json:"pg_result_code"`
	PGResultMsg        string         `gorm:"type:text" json:"pg_result_msg"`
	RequestedAt        time.Time      `json:"requested_at"`
	PaidAt             *time.Time     `json:"paid_at"`
	FailedAt           *time.Time     `json:"failed_at"`
	FailureCode        string         `gorm:"size:30" json:"failure_code"`
	FailureReason      string         `gorm:"type:text" json:"failure_reason"`
	BillingPeriodStart time.Time      `json:"billing_period_start"`
	BillingPeriodEnd   time.Time      `json:"billing_period_end"`
	IsPromotional      bool           `gorm:"default:false" json:"is_promotional"`
	PromotionDetail    string         `gorm:"type:text" json:"promotion_detail"`
	MethodSnapshot     datatypes.JSON `json:"-"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// MarkSuccess records the gateway approval on the ledger row.
func (p *Payment) MarkSuccess(tid, authCode, resultCode, resultMsg string, paidAt time.Time) {
	p.Status = PaymentSuccess
	p.PGTID = tid
	p.PGAuthCode = authCode
	p.PGResultCode = resultCode
	p.PGResultMsg = resultMsg
	p.PaidAt = &paidAt
	p.FailedAt = nil
	p.FailureCode = ""
	p.FailureReason = ""
}

// MarkFailed records a failed charge attempt.
func (p *Payment) MarkFailed(failureCode, failureReason string, at time.Time) {
	p.Status = PaymentFailed
	p.FailureCode = failureCode
	p.FailureReason = failureReason
	p.FailedAt = &at
}
