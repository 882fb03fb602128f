package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/tradingacademy/backend/internal/models"
)

type BillingKeyCompleteRequest struct {
	OrderID   string `json:"order_id"`
	TxTID     string `json:"tx_tid"`
	AuthToken string `json:"auth_token"`
}

// CardRegistrationRequest carries raw card data for the direct flow. It
// is forwarded to the gateway encrypted and never persisted or logged.
type CardRegistrationRequest struct {
	CardNo   string `json:"card_no"`
	ExpYear  string `json:"exp_year"`
	ExpMonth string `json:"exp_month"`
	IDNo     string `json:"id_no"`
	CardPw   string `json:"card_pw"`
}

type PaymentMethodResponse struct {
	ID              uuid.UUID  `json:"id"`
	DisplayName     string     `json:"display_name"`
	MaskedCardNo    string     `json:"masked_card_no"`
	CardCompanyName string     `json:"card_company_name"`
	CardType        string     `json:"card_type"`
	IsPrimary       bool       `json:"is_primary"`
	IssuedAt        *time.Time `json:"issued_at"`
	CreatedAt       time.Time  `json:"created_at"`
}

func NewPaymentMethodResponse(m *models.PaymentMethod) PaymentMethodResponse {
	return PaymentMethodResponse{
		ID:              m.ID,
		DisplayName:     m.DisplayName,
		MaskedCardNo:    m.MaskedCardNo,
		CardCompanyName: m.CardCompanyName,
		CardType:        m.CardType,
		IsPrimary:       m.IsPrimary,
		IssuedAt:        m.IssuedAt,
		CreatedAt:       m.CreatedAt,
	}
}

type SubscriptionResponse struct {
	ID                 uuid.UUID  `json:"id"`
	PlanID             uuid.UUID  `json:"plan_id"`
	PlanName           string     `json:"plan_name,omitempty"`
	SubscribedPrice    int64      `json:"subscribed_price"`
	Status             string     `json:"status"`
	SubscriptionType   string     `json:"subscription_type"`
	CurrentPeriodStart time.Time  `json:"current_period_start"`
	CurrentPeriodEnd   time.Time  `json:"current_period_end"`
	NextBillingDate    time.Time  `json:"next_billing_date"`
	LastBillingDate    *time.Time `json:"last_billing_date"`
	PaymentFailedCount int        `json:"payment_failed_count"`
	CancelledAt        *time.Time `json:"cancelled_at"`
	CreatedAt          time.Time  `json:"created_at"`
}

func NewSubscriptionResponse(s *models.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		ID:                 s.ID,
		PlanID:             s.PlanID,
		PlanName:           s.Plan.Name,
		SubscribedPrice:    s.SubscribedPrice,
		Status:             s.Status,
		SubscriptionType:   s.SubscriptionType,
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
		NextBillingDate:    s.NextBillingDate,
		LastBillingDate:    s.LastBillingDate,
		PaymentFailedCount: s.PaymentFailedCount,
		CancelledAt:        s.CancelledAt,
		CreatedAt:          s.CreatedAt,
	}
}

type CancelSubscriptionRequest struct {
	Reason string `json:"reason"`
}

type CreatePlanRequest struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

type PlanResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func NewPlanResponse(p *models.SubscriptionPlan) PlanResponse {
	return PlanResponse{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price,
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
	}
}

type UpdateSubscriptionStatusRequest struct {
	Status string `json:"status"`
}

type BillingRunResponse struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}
