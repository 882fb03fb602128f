package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	SubscriptionPending       = "PENDING"
	SubscriptionActive        = "ACTIVE"
	SubscriptionPaymentFailed = "PAYMENT_FAILED"
	SubscriptionExpired       = "EXPIRED"
	SubscriptionCancelled     = "CANCELLED"
)

const (
	SubscriptionTypeRegular   = "REGULAR"
	SubscriptionTypePromotion = "PROMOTION"
)

// Subscription is the billing aggregate: one active subscription per
// customer, advanced (or failed) on every billing cycle.
type Subscription struct {
	ID                  uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID          uuid.UUID        `gorm:"type:uuid;not null;index" json:"customer_id"`
	PlanID              uuid.UUID        `gorm:"type:uuid;not null" json:"plan_id"`
	PaymentMethodID     uuid.UUID        `gorm:"type:uuid;not null" json:"payment_method_id"`
	SubscribedPrice     int64            `gorm:"not null" json:"subscribed_price"`
	Status              string           `gorm:"size:20;not null;default:'ACTIVE';index" json:"status"`
	CurrentPeriodStart  time.Time        `json:"current_period_start"`
	CurrentPeriodEnd    time.Time        `json:"current_period_end"`
	NextBillingDate     time.Time        `gorm:"index" json:"next_billing_date"`
	LastBillingDate     *time.Time       `json:"last_billing_date"`
	PaymentFailedCount  int              `gorm:"default:0" json:"payment_failed_count"`
	LastPaymentFailedAt *time.Time       `json:"last_payment_failed_at"`
	SubscriptionType    string           `gorm:"size:20;not null;default:'REGULAR'" json:"subscription_type"`
	PromotionNote       *string          `json:"promotion_note"`
	CancelledAt         *time.Time       `json:"cancelled_at"`
	CancellationReason  string           `gorm:"type:text" json:"cancellation_reason"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
	Customer            User             `gorm:"foreignKey:CustomerID" json:"-"`
	Plan                SubscriptionPlan `gorm:"foreignKey:PlanID" json:"-"`
	PaymentMethod       PaymentMethod    `gorm:"foreignKey:PaymentMethodID" json:"-"`
}

// AdvanceBillingPeriod moves the period window forward after a successful
// charge: the new period starts the day after the previous end.
func (s *Subscription) AdvanceBillingPeriod(nextBillingDate, currentPeriodEnd time.Time) {
	s.CurrentPeriodStart = s.CurrentPeriodEnd.AddDate(0, 0, 1)
	s.CurrentPeriodEnd = currentPeriodEnd
	s.NextBillingDate = nextBillingDate
}

// RecordFailure bumps the consecutive-failure counter.
func (s *Subscription) RecordFailure(at time.Time) {
	s.PaymentFailedCount++
	s.LastPaymentFailedAt = &at
}

// ResetFailures clears the failure counter after a successful charge.
func (s *Subscription) ResetFailures(lastBillingDate time.Time) {
	s.PaymentFailedCount = 0
	s.LastPaymentFailedAt = nil
	s.LastBillingDate = &lastBillingDate
}

// TransitionTo applies a status change. CANCELLED is terminal.
func (s *Subscription) TransitionTo(status string) error {
	if s.Status == SubscriptionCancelled && status != SubscriptionCancelled {
		return fmt.Errorf("subscription %s is cancelled and cannot transition to %s", s.ID, status)
	}
	s.Status = status
	return nil
}

// Cancel terminates the subscription, recording reason and time.
func (s *Subscription) Cancel(reason string, at time.Time) {
	s.Status = SubscriptionCancelled
	s.CancellationReason = reason
	s.CancelledAt = &at
}
