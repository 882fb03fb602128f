package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/tradingacademy/backend/internal/apperrors"
	"github.com/tradingacademy/backend/internal/config"
	"github.com/tradingacademy/backend/internal/models"
	"github.com/tradingacademy/backend/internal/nicepay"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/google/uuid"
)

// RecurringPaymentService executes billing cycles: it finds due
// subscriptions, resolves a chargeable method, writes the ledger row,
// and calls the gateway. Ledger order ids are cycle-stamped, so running
// the same cycle twice settles on one charge.
type RecurringPaymentService struct {
	db      *gorm.DB
	cfg     *config.Config
	gateway BillingGateway
	subs    *SubscriptionService
	methods *PaymentMethodService
	now     func() time.Time
}

func NewRecurringPaymentService(db *gorm.DB, cfg *config.Config, gateway BillingGateway, subs *SubscriptionService, methods *PaymentMethodService) *RecurringPaymentService {
	return &RecurringPaymentService{
		db:      db,
		cfg:     cfg,
		gateway: gateway,
		subs:    subs,
		methods: methods,
		now:     time.Now,
	}
}

// ProcessDuePayments charges every ACTIVE subscription whose billing
// date has arrived. Failures are isolated per subscription: one bad
// charge never stops the run. A failed cycle leaves the billing date in
// place, so the next run retries it until the failure limit parks the
// subscription.
func (s *RecurringPaymentService) ProcessDuePayments(ctx context.Context) (processed, failed int, err error) {
	var due []models.Subscription
	if err := s.db.Where("status = ? AND next_billing_date <= ?", models.SubscriptionActive, s.now()).
		Find(&due).Error; err != nil {
		return 0, 0, apperrors.Internal("billing_run_failed", "failed to load due subscriptions", err)
	}

	for i := range due {
		sub := &due[i]
		if err := s.ExecutePaymentForSubscription(ctx, sub); err != nil {
			failed++
			slog.Error("billing cycle failed", "subscription_id", sub.ID, "error", err)
			continue
		}
		processed++
	}

	if len(due) > 0 {
		slog.Info("billing run finished", "due", len(due), "processed", processed, "failed", failed)
	}
	return processed, failed, nil
}

// ExecutePaymentForSubscription runs one charge cycle for a single
// subscription: the first charge right after signup, or a renewal.
func (s *RecurringPaymentService) ExecutePaymentForSubscription(ctx context.Context, sub *models.Subscription) error {
	method, err := s.resolveMethod(sub)
	if err != nil {
		return err
	}

	firstCharge := sub.LastBillingDate == nil
	periodStart := sub.NextBillingDate
	if firstCharge {
		periodStart = sub.CurrentPeriodStart
	}

	amount, promotional := s.cycleAmount(sub, periodStart)

	// Promotional cycles cover the free period, not a single month.
	months := 1
	if promotional {
		months = s.cfg.Promotion.FreeMonths
	}
	periodEnd := periodStart.AddDate(0, months, 0).AddDate(0, 0, -1)
	if firstCharge {
		periodEnd = sub.CurrentPeriodEnd
	}

	orderID := nicepay.RecurringOrderID(sub.ID, periodStart)

	payment, err := s.ensureLedgerRow(sub, method, orderID, amount, promotional, periodStart, periodEnd)
	if err != nil {
		return err
	}
	if payment == nil {
		// Cycle already settled on a previous run.
		return nil
	}

	if amount == 0 {
		return s.settleFree(sub, payment, firstCharge, periodEnd)
	}

	result, err := s.gateway.Charge(ctx, method.BillingKey, amount, s.cfg.NicePayGoodsName, orderID)
	if err != nil {
		return s.settleFailure(sub, method, payment, result, err)
	}
	return s.settleSuccess(sub, method, payment, result, firstCharge, periodEnd)
}

// resolveMethod returns a chargeable method for the subscription,
// falling back to the customer's primary method. With no usable method
// at all the subscription expires.
func (s *RecurringPaymentService) resolveMethod(sub *models.Subscription) (*models.PaymentMethod, error) {
	method, err := s.methods.Get(sub.CustomerID, sub.PaymentMethodID)
	if err == nil && method.Usable() {
		return method, nil
	}

	primary, perr := s.methods.GetPrimary(sub.CustomerID)
	if perr == nil && primary.Usable() {
		sub.PaymentMethodID = primary.ID
		if err := s.db.Model(sub).Update("payment_method_id", primary.ID).Error; err != nil {
			return nil, apperrors.Internal("subscription_update_failed", "failed to switch payment method", err)
		}
		slog.Info("switched to primary payment method", "subscription_id", sub.ID, "method_id", primary.ID)
		return primary, nil
	}

	if terr := sub.TransitionTo(models.SubscriptionExpired); terr == nil {
		if err := s.db.Save(sub).Error; err != nil {
			slog.Error("failed to expire subscription", "subscription_id", sub.ID, "error", err)
		}
	}
	return nil, apperrors.Invalid("no_usable_method", "no chargeable payment method on file")
}

// cycleAmount returns what this cycle costs. Charges executed inside
// the promotion window, and promotional subscriptions still within
// their free period, pay the promotion amount.
func (s *RecurringPaymentService) cycleAmount(sub *models.Subscription, periodStart time.Time) (int64, bool) {
	if s.cfg.Promotion.Contains(truncateToDay(s.now())) {
		return s.cfg.Promotion.Amount, true
	}
	if sub.SubscriptionType == models.SubscriptionTypePromotion &&
		periodStart.Before(s.cfg.Promotion.BenefitEndDate(sub.CreatedAt)) {
		return s.cfg.Promotion.Amount, true
	}
	return sub.SubscribedPrice, false
}

// ensureLedgerRow finds or creates the PENDING ledger row for this
// cycle. Returns nil when the cycle already has a successful row.
func (s *RecurringPaymentService) ensureLedgerRow(sub *models.Subscription, method *models.PaymentMethod, orderID string, amount int64, promotional bool, periodStart, periodEnd time.Time) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		ferr := tx.Where("order_id = ?", orderID).First(&payment).Error
		if ferr == nil {
			return nil
		}
		if !errors.Is(ferr, gorm.ErrRecordNotFound) {
			return ferr
		}

		snapshot, _ := json.Marshal(map[string]string{
			"method_id":    method.ID.String(),
			"card_company": method.CardCompanyName,
			"masked_no":    method.MaskedCardNo,
		})

		detail := ""
		var discount int64
		if promotional {
			detail = "promotion window free period"
			discount = sub.SubscribedPrice - amount
		}

		payment = models.Payment{
			ID:                 uuid.New(),
			SubscriptionID:     sub.ID,
			CustomerID:         sub.CustomerID,
			PaymentMethodID:    method.ID,
			OrderID:            orderID,
			OrderName:          s.cfg.NicePayGoodsName,
			PGGoodsName:        s.cfg.NicePayGoodsName,
			Amount:             amount,
			DiscountAmount:     discount,
			Status:             models.PaymentPending,
			PaymentType:        models.PaymentTypeRecurring,
			RequestedAt:        s.now(),
			BillingPeriodStart: periodStart,
			BillingPeriodEnd:   periodEnd,
			IsPromotional:      promotional,
			PromotionDetail:    detail,
			MethodSnapshot:     datatypes.JSON(snapshot),
		}
		return tx.Create(&payment).Error
	})
	if err != nil {
		return nil, apperrors.Internal("payment_create_failed", "failed to open payment ledger row", err)
	}

	if payment.Status == models.PaymentSuccess {
		return nil, nil
	}
	if payment.Status == models.PaymentFailed {
		// Retry reuses the row instead of opening a second one.
		payment.Status = models.PaymentPending
		payment.PaymentMethodID = method.ID
		payment.RequestedAt = s.now()
	}
	return &payment, nil
}

// settleFree settles a zero-amount promotional cycle without calling the
// gateway.
func (s *RecurringPaymentService) settleFree(sub *models.Subscription, payment *models.Payment, firstCharge bool, periodEnd time.Time) error {
	now := s.now()
	payment.MarkSuccess("PROMO-"+payment.OrderID, "", "0000", "promotional free period", now)
	if err := s.db.Save(payment).Error; err != nil {
		return apperrors.Internal("payment_update_failed", "failed to settle free cycle", err)
	}
	return s.advanceAfterSuccess(sub, firstCharge, periodEnd, now)
}

func (s *RecurringPaymentService) settleSuccess(sub *models.Subscription, method *models.PaymentMethod, payment *models.Payment, result *nicepay.ChargeResult, firstCharge bool, periodEnd time.Time) error {
	now := s.now()
	payment.MarkSuccess(result.TID, result.AuthCode, result.ResultCode, result.ResultMsg, now)
	if err := s.db.Save(payment).Error; err != nil {
		return apperrors.Internal("payment_update_failed", "failed to record payment success", err)
	}

	method.RecordGatewayResult(result.ResultCode, result.ResultMsg)
	method.FailureCount = 0
	method.LastFailedAt = nil
	if err := s.db.Save(method).Error; err != nil {
		slog.Error("failed to update payment method after charge", "method_id", method.ID, "error", err)
	}

	slog.Info("recurring charge succeeded",
		"subscription_id", sub.ID, "order_id", payment.OrderID, "amount", payment.Amount)
	return s.advanceAfterSuccess(sub, firstCharge, periodEnd, now)
}

// advanceAfterSuccess updates the subscription after a settled cycle.
// The first charge pays the period set at signup; renewals move the
// window forward.
func (s *RecurringPaymentService) advanceAfterSuccess(sub *models.Subscription, firstCharge bool, periodEnd time.Time, paidAt time.Time) error {
	if !firstCharge {
		next := periodEnd.AddDate(0, 0, 1)
		if err := s.subs.UpdateNextBillingDate(sub, next, periodEnd); err != nil {
			return err
		}
	}
	return s.subs.ResetPaymentFailureCount(sub, paidAt)
}

func (s *RecurringPaymentService) settleFailure(sub *models.Subscription, method *models.PaymentMethod, payment *models.Payment, result *nicepay.ChargeResult, cause error) error {
	now := s.now()
	code, msg := "NETWORK", "gateway unreachable"
	var apiErr *nicepay.APIError
	if errors.As(cause, &apiErr) {
		code, msg = apiErr.Code, apiErr.Message
	}
	if result != nil {
		payment.PGResultCode = result.ResultCode
		payment.PGResultMsg = result.ResultMsg
	}

	payment.MarkFailed(code, msg, now)
	if err := s.db.Save(payment).Error; err != nil {
		slog.Error("failed to record payment failure", "order_id", payment.OrderID, "error", err)
	}

	method.RecordGatewayResult(code, msg)
	method.FailureCount++
	method.LastFailedAt = &now
	if err := s.db.Save(method).Error; err != nil {
		slog.Error("failed to update payment method after failure", "method_id", method.ID, "error", err)
	}

	if err := s.subs.IncrementPaymentFailureCount(sub); err != nil {
		slog.Error("failed to record subscription failure", "subscription_id", sub.ID, "error", err)
	}

	return apperrors.Gateway("charge_failed", "recurring charge failed", cause)
}
