package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tradingacademy/backend/internal/apperrors"
	"github.com/tradingacademy/backend/internal/config"
	"github.com/tradingacademy/backend/internal/models"
	"gorm.io/gorm"
)

// PaymentExecutor runs one charge cycle for a subscription. It is the
// recurring payment service behind an interface, injected after
// construction because the two services reference each other.
type PaymentExecutor interface {
	ExecutePaymentForSubscription(ctx context.Context, sub *models.Subscription) error
}

// SubscriptionService owns the subscription lifecycle: creation with the
// first charge, status transitions, cancellation, and the billing-cycle
// bookkeeping the recurring service calls back into.
type SubscriptionService struct {
	db       *gorm.DB
	cfg      *config.Config
	plans    *PlanService
	methods  *PaymentMethodService
	executor PaymentExecutor
	now      func() time.Time
}

func NewSubscriptionService(db *gorm.DB, cfg *config.Config, plans *PlanService, methods *PaymentMethodService) *SubscriptionService {
	return &SubscriptionService{
		db:      db,
		cfg:     cfg,
		plans:   plans,
		methods: methods,
		now:     time.Now,
	}
}

// SetPaymentExecutor wires in the recurring payment service. Must be
// called before CreateWithFirstPayment is used.
func (s *SubscriptionService) SetPaymentExecutor(executor PaymentExecutor) {
	s.executor = executor
}

// CreateWithFirstPayment subscribes the customer to the active plan and
// charges the first cycle. The subscription commit and the first charge
// are separate transactions: a failed charge leaves the subscription in
// place, moved to PAYMENT_FAILED.
//
// Subscriptions created inside the promotion window get the promotional
// free period instead of the regular first month.
func (s *SubscriptionService) CreateWithFirstPayment(ctx context.Context, customerID, methodID uuid.UUID) (*models.Subscription, error) {
	plan, err := s.plans.Active()
	if err != nil {
		return nil, err
	}

	method, err := s.methods.Get(customerID, methodID)
	if err != nil {
		return nil, err
	}
	if !method.Usable() {
		return nil, apperrors.Invalid("payment_method_unusable", "payment method cannot be charged")
	}

	today := truncateToDay(s.now())
	months := 1
	subType := models.SubscriptionTypeRegular
	var promoNote *string
	if s.cfg.Promotion.Contains(today) {
		months = s.cfg.Promotion.FreeMonths
		subType = models.SubscriptionTypePromotion
		note := "promotion signup: free period applied"
		promoNote = &note
	}
	nextBilling := today.AddDate(0, months, 0)

	sub := models.Subscription{
		ID:                 uuid.New(),
		CustomerID:         customerID,
		PlanID:             plan.ID,
		PaymentMethodID:    method.ID,
		SubscribedPrice:    plan.Price,
		Status:             models.SubscriptionActive,
		CurrentPeriodStart: today,
		CurrentPeriodEnd:   nextBilling.AddDate(0, 0, -1),
		NextBillingDate:    nextBilling,
		SubscriptionType:   subType,
		PromotionNote:      promoNote,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Subscription{}).
			Where("customer_id = ? AND status IN ?", customerID, liveStatuses()).
			Count(&count).Error; err != nil {
			return apperrors.Internal("subscription_lookup_failed", "failed to check existing subscriptions", err)
		}
		if count > 0 {
			return apperrors.Conflict("subscription_exists", "customer already has a subscription in progress")
		}
		return tx.Create(&sub).Error
	})
	if err != nil {
		if apperrors.KindOf(err) != apperrors.KindInternal {
			return nil, err
		}
		return nil, apperrors.Internal("subscription_create_failed", "failed to create subscription", err)
	}

	slog.Info("subscription created", "subscription_id", sub.ID, "customer_id", customerID, "type", subType)

	// First charge runs outside the creation transaction. Failure does
	// not undo the subscription; it parks it in PAYMENT_FAILED.
	if err := s.executor.ExecutePaymentForSubscription(ctx, &sub); err != nil {
		if stErr := s.UpdateStatus(sub.ID, models.SubscriptionPaymentFailed); stErr != nil {
			slog.Error("failed to mark first-charge failure", "subscription_id", sub.ID, "error", stErr)
		}
		sub.Status = models.SubscriptionPaymentFailed
		return &sub, apperrors.StateTransition("first_charge_failed", "subscription created but first charge failed", err)
	}

	return &sub, nil
}

// GetActiveForCustomer returns the customer's live subscription.
func (s *SubscriptionService) GetActiveForCustomer(customerID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.Preload("Plan").
		Where("customer_id = ? AND status IN ?", customerID, liveStatuses()).
		First(&sub).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("subscription_not_found", "no active subscription")
		}
		return nil, apperrors.Internal("subscription_lookup_failed", "failed to load subscription", err)
	}
	return &sub, nil
}

// Get loads a subscription by id.
func (s *SubscriptionService) Get(subscriptionID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.db.First(&sub, "id = ?", subscriptionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("subscription_not_found", "subscription not found")
		}
		return nil, apperrors.Internal("subscription_lookup_failed", "failed to load subscription", err)
	}
	return &sub, nil
}

// Cancel terminates the customer's subscription. Cancellation is
// terminal; the subscription keeps serving until the period end but is
// never billed again.
func (s *SubscriptionService) Cancel(customerID, subscriptionID uuid.UUID, reason string) (*models.Subscription, error) {
	sub, err := s.Get(subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.CustomerID != customerID {
		return nil, apperrors.NotFound("subscription_not_found", "subscription not found")
	}
	if sub.Status == models.SubscriptionCancelled {
		return sub, nil
	}

	sub.Cancel(reason, s.now())
	if err := s.db.Save(sub).Error; err != nil {
		return nil, apperrors.Internal("subscription_cancel_failed", "failed to cancel subscription", err)
	}
	slog.Info("subscription cancelled", "subscription_id", sub.ID, "customer_id", customerID)
	return sub, nil
}

// UpdateStatus applies an explicit status transition (admin and internal
// use). CANCELLED cannot be left.
func (s *SubscriptionService) UpdateStatus(subscriptionID uuid.UUID, status string) error {
	sub, err := s.Get(subscriptionID)
	if err != nil {
		return err
	}
	if err := sub.TransitionTo(status); err != nil {
		return apperrors.StateTransition("invalid_transition", err.Error(), err)
	}
	if err := s.db.Save(sub).Error; err != nil {
		return apperrors.Internal("subscription_update_failed", "failed to update subscription", err)
	}
	return nil
}

// UpdateNextBillingDate advances the billing window after a successful
// recurring charge.
func (s *SubscriptionService) UpdateNextBillingDate(sub *models.Subscription, nextBillingDate, currentPeriodEnd time.Time) error {
	sub.AdvanceBillingPeriod(nextBillingDate, currentPeriodEnd)
	if err := s.db.Save(sub).Error; err != nil {
		return apperrors.Internal("subscription_update_failed", "failed to advance billing period", err)
	}
	return nil
}

// IncrementPaymentFailureCount records one more consecutive failure and
// parks the subscription in PAYMENT_FAILED once the limit is reached.
func (s *SubscriptionService) IncrementPaymentFailureCount(sub *models.Subscription) error {
	sub.RecordFailure(s.now())
	if sub.PaymentFailedCount >= s.cfg.MaxPaymentFailures {
		if err := sub.TransitionTo(models.SubscriptionPaymentFailed); err != nil {
			return apperrors.StateTransition("invalid_transition", err.Error(), err)
		}
		slog.Warn("subscription suspended after repeated failures",
			"subscription_id", sub.ID, "failures", sub.PaymentFailedCount)
	}
	if err := s.db.Save(sub).Error; err != nil {
		return apperrors.Internal("subscription_update_failed", "failed to record payment failure", err)
	}
	return nil
}

// ResetPaymentFailureCount clears the failure streak after a successful
// charge and restores ACTIVE status.
func (s *SubscriptionService) ResetPaymentFailureCount(sub *models.Subscription, paidAt time.Time) error {
	sub.ResetFailures(paidAt)
	if err := sub.TransitionTo(models.SubscriptionActive); err != nil {
		return apperrors.StateTransition("invalid_transition", err.Error(), err)
	}
	if err := s.db.Save(sub).Error; err != nil {
		return apperrors.Internal("subscription_update_failed", "failed to reset payment failures", err)
	}
	return nil
}

// liveStatuses are the states that count toward the one-subscription-
// per-customer rule.
func liveStatuses() []string {
	return []string{models.SubscriptionPending, models.SubscriptionActive, models.SubscriptionPaymentFailed}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
