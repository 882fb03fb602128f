package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	CardTypeCredit = "CREDIT"
	CardTypeDebit  = "DEBIT"
)

// PaymentMethod holds a reusable gateway charge token (billing key) plus
// masked card metadata. Soft-deleted on removal; for a given customer at
// most one non-deleted row is primary.
type PaymentMethod struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"customer_id"`
	BillingRequestID uuid.UUID      `gorm:"type:uuid;not null;index" json:"billing_request_id"`
	OrderID          string         `gorm:"size:64" json:"order_id"`
	BillingKey       string         `gorm:"size:64;uniqueIndex" json:"-"`
	IssuedAt         *time.Time     `json:"issued_at"`
	DisplayName      string         `gorm:"size:100" json:"display_name"`
	MaskedCardNo     string         `gorm:"size:32" json:"masked_card_no"`
	CardCompanyCode  string         `gorm:"size:10" json:"card_company_code"`
	CardCompanyName  string         `gorm:"size:50" json:"card_company_name"`
	CardType         string         `gorm:"size:10" json:"card_type"`
	IsActive         bool           `gorm:"default:true" json:"is_active"`
	IsPrimary        bool           `gorm:"default:false" json:"is_primary"`
	IsDeleted        bool           `gorm:"default:false" json:"is_deleted"`
	LastResultCode   string         `gorm:"size:30" json:"last_result_code"`
	LastResultMsg    string         `gorm:"type:text" json:"last_result_msg"`
	PGMetadata       datatypes.JSON `json:"-"`
	LastFailedAt     *time.Time     `json:"last_failed_at"`
	FailureCount     int            `gorm:"default:0" json:"failure_count"`
	DeletedAt        *time.Time     `json:"deleted_at"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	Customer         User           `gorm:"foreignKey:CustomerID" json:"-"`
	BillingRequest   BillingRequest `gorm:"foreignKey:BillingRequestID" json:"-"`
}

// Usable reports whether the method can be charged.
func (m *PaymentMethod) Usable() bool {
	return m != nil && !m.IsDeleted && m.IsActive && m.BillingKey != ""
}

// SoftDelete marks the method deleted after its gateway token was revoked.
func (m *PaymentMethod) SoftDelete(at time.Time) {
	m.IsDeleted = true
	m.IsPrimary = false
	m.DeletedAt = &at
}

// RecordGatewayResult keeps the last gateway response for diagnosis.
func (m *PaymentMethod) RecordGatewayResult(code, msg string) {
	m.LastResultCode = code
	m.LastResultMsg = msg
}
