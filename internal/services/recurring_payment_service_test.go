package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradingacademy/backend/internal/models"
	"github.com/tradingacademy/backend/internal/nicepay"
)

// seedRenewal plants a subscription that already paid its first cycle
// and is due for renewal on 2026-02-15.
func seedRenewal(t *testing.T, env *testEnv, method *models.PaymentMethod, customerID, planID uuid.UUID) *models.Subscription {
	t.Helper()
	last := date(2026, 1, 15)
	sub := models.Subscription{
		ID:                 uuid.New(),
		CustomerID:         customerID,
		PlanID:             planID,
		PaymentMethodID:    method.ID,
		SubscribedPrice:    99000,
		Status:             models.SubscriptionActive,
		CurrentPeriodStart: date(2026, 1, 15),
		CurrentPeriodEnd:   date(2026, 2, 14),
		NextBillingDate:    date(2026, 2, 15),
		LastBillingDate:    &last,
		SubscriptionType:   models.SubscriptionTypeRegular,
		CreatedAt:          date(2026, 1, 15),
	}
	require.NoError(t, env.db.Create(&sub).Error)
	return &sub
}

func TestProcessDuePaymentsRenewal(t *testing.T) {
	env := newTestEnv(t, date(2026, 2, 15))
	customer := env.createCustomer(t, "renew@test.com")
	plan := env.createPlan(t, 99000)
	method := env.registerMethod(t, customer.ID)
	sub := seedRenewal(t, env, method, customer.ID, plan.ID)
	env.gw.chargeResult = approvedChargeResult("")

	processed, failed, err := env.recurring.ProcessDuePayments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Zero(t, failed)

	assert.Equal(t, 1, env.gw.chargeCalls)
	assert.Equal(t, int64(99000), env.gw.lastChargeAmount)
	assert.Equal(t, fmt.Sprintf("SUB-%s-202602", sub.ID), env.gw.lastChargeOrderID)

	reloaded := env.reloadSubscription(t, sub.ID)
	assert.Equal(t, models.SubscriptionActive, reloaded.Status)
	assert.WithinDuration(t, date(2026, 2, 15), reloaded.CurrentPeriodStart, 0)
	assert.WithinDuration(t, date(2026, 3, 14), reloaded.CurrentPeriodEnd, 0)
	assert.WithinDuration(t, date(2026, 3, 15), reloaded.NextBillingDate, 0)
	require.NotNil(t, reloaded.LastBillingDate)
	assert.Zero(t, reloaded.PaymentFailedCount)

	rows := env.payments(t, sub.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, models.PaymentSuccess, rows[0].Status)
}

func TestProcessDuePaymentsSkipsNotDue(t *testing.T) {
	env := newTestEnv(t, date(2026, 2, 14))
	customer := env.createCustomer(t, "notdue@test.com")
	plan := env.createPlan(t, 99000)
	method := env.registerMethod(t, customer.ID)
	seedRenewal(t, env, method, customer.ID, plan.ID)

	processed, failed, err := env.recurring.ProcessDuePayments(context.Background())
	require.NoError(t, err)
	assert.Zero(t, processed)
	assert.Zero(t, failed)
	assert.Zero(t, env.gw.chargeCalls)
}

func TestSameCycleRunsOnlyChargeOnce(t *testing.T) {
	env := newTestEnv(t, date(2026, 2, 15))
	customer := env.createCustomer(t, "twice@test.com")
	plan := env.createPlan(t, 99000)
	method := env.registerMethod(t, customer.ID)
	sub := seedRenewal(t, env, method, customer.ID, plan.ID)
	env.gw.chargeResult = approvedChargeResult("")

	// Two schedulers picking up the same cycle see the same state.
	first := env.reloadSubscription(t, sub.ID)
	stale := env.reloadSubscription(t, sub.ID)

	require.NoError(t, env.recurring.ExecutePaymentForSubscription(context.Background(), first))
	require.NoError(t, env.recurring.ExecutePaymentForSubscription(context.Background(), stale))

	assert.Equal(t, 1, env.gw.chargeCalls)

	rows := env.payments(t, sub.ID)
	require.Len(t, rows, 1)

	// The second invocation did not advance the window again.
	reloaded := env.reloadSubscription(t, sub.ID)
	assert.WithinDuration(t, date(2026, 3, 15), reloaded.NextBillingDate, 0)
}

func TestRenewalFailureThenRecovery(t *testing.T) {
	env := newTestEnv(t, date(2026, 2, 15))
	customer := env.createCustomer(t, "retry@test.com")
	plan := env.createPlan(t, 99000)
	method := env.registerMethod(t, customer.ID)
	sub := seedRenewal(t, env, method, customer.ID, plan.ID)

	env.gw.chargeErr = &nicepay.APIError{Code: "3021", Message: "insufficient funds"}
	processed, failed, err := env.recurring.ProcessDuePayments(context.Background())
	require.NoError(t, err)
	assert.Zero(t, processed)
	assert.Equal(t, 1, failed)

	reloaded := env.reloadSubscription(t, sub.ID)
	assert.Equal(t, models.SubscriptionActive, reloaded.Status)
	assert.Equal(t, 1, reloaded.PaymentFailedCount)
	// The billing date did not move, so the next run retries.
	assert.WithinDuration(t, date(2026, 2, 15), reloaded.NextBillingDate, 0)

	// Next day the charge goes through. The retry reuses the cycle's
	// ledger row instead of opening a second one.
	env.setNow(date(2026, 2, 16))
	env.gw.chargeErr = nil
	env.gw.chargeResult = approvedChargeResult("")

	processed, failed, err = env.recurring.ProcessDuePayments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Zero(t, failed)

	rows := env.payments(t, sub.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, models.PaymentSuccess, rows[0].Status)

	reloaded = env.reloadSubscription(t, sub.ID)
	assert.Zero(t, reloaded.PaymentFailedCount)
	assert.WithinDuration(t, date(2026, 3, 15), reloaded.NextBillingDate, 0)
}

func TestRepeatedFailuresParkSubscription(t *testing.T) {
	env := newTestEnv(t, date(2026, 2, 15))
	customer := env.createCustomer(t, "parked@test.com")
	plan := env.createPlan(t, 99000)
	method := env.registerMethod(t, customer.ID)
	sub := seedRenewal(t, env, method, customer.ID, plan.ID)
	env.gw.chargeErr = &nicepay.APIError{Code: "3021", Message: "insufficient funds"}

	for day := 15; day < 18; day++ {
		env.setNow(date(2026, 2, day))
		_, failed, err := env.recurring.ProcessDuePayments(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, failed)
	}

	reloaded := env.reloadSubscription(t, sub.ID)
	assert.Equal(t, models.SubscriptionPaymentFailed, reloaded.Status)
	assert.Equal(t, 3, reloaded.PaymentFailedCount)
	assert.Equal(t, 3, env.gw.chargeCalls)

	// A parked subscription is out of the billing run.
	env.setNow(date(2026, 2, 18))
	processed, failed, err := env.recurring.ProcessDuePayments(context.Background())
	require.NoError(t, err)
	assert.Zero(t, processed)
	assert.Zero(t, failed)
	assert.Equal(t, 3, env.gw.chargeCalls)
}

func TestFallbackToPrimaryMethod(t *testing.T) {
	env := newTestEnv(t, date(2026, 2, 15))
	customer := env.createCustomer(t, "fallback@test.com")
	plan := env.createPlan(t, 99000)

	retired := env.registerMethod(t, customer.ID)
	require.NoError(t, env.methods.Delete(context.Background(), customer.ID, retired.ID))
	replacement := env.registerMethod(t, customer.ID)

	sub := seedRenewal(t, env, retired, customer.ID, plan.ID)
	env.gw.chargeResult = approvedChargeResult("")

	processed, _, err := env.recurring.ProcessDuePayments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	assert.Equal(t, replacement.BillingKey, env.gw.lastChargeKey)
	assert.Equal(t, replacement.ID, env.reloadSubscription(t, sub.ID).PaymentMethodID)
}

func TestNoUsableMethodExpiresSubscription(t *testing.T) {
	env := newTestEnv(t, date(2026, 2, 15))
	customer := env.createCustomer(t, "expired@test.com")
	plan := env.createPlan(t, 99000)

	method := env.registerMethod(t, customer.ID)
	require.NoError(t, env.methods.Delete(context.Background(), customer.ID, method.ID))

	sub := seedRenewal(t, env, method, customer.ID, plan.ID)

	_, failed, err := env.recurring.ProcessDuePayments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, failed)
	assert.Zero(t, env.gw.chargeCalls)

	assert.Equal(t, models.SubscriptionExpired, env.reloadSubscription(t, sub.ID).Status)
}

func TestPromotionRenewalChargesFullPriceAfterBenefit(t *testing.T) {
	env := newTestEnv(t, date(2026, 2, 10))
	customer := env.createCustomer(t, "postpromo@test.com")
	plan := env.createPlan(t, 99000)
	method := env.registerMethod(t, customer.ID)

	// Signed up 2025-12-10 inside the window; two free months ran out.
	last := date(2025, 12, 10)
	note := "promotion signup: free period applied"
	sub := models.Subscription{
		ID:                 uuid.New(),
		CustomerID:         customer.ID,
		PlanID:             plan.ID,
		PaymentMethodID:    method.ID,
		SubscribedPrice:    99000,
		Status:             models.SubscriptionActive,
		CurrentPeriodStart: date(2025, 12, 10),
		CurrentPeriodEnd:   date(2026, 2, 9),
		NextBillingDate:    date(2026, 2, 10),
		LastBillingDate:    &last,
		SubscriptionType:   models.SubscriptionTypePromotion,
		PromotionNote:      &note,
		CreatedAt:          date(2025, 12, 10),
	}
	require.NoError(t, env.db.Create(&sub).Error)
	env.gw.chargeResult = approvedChargeResult("")

	processed, _, err := env.recurring.ProcessDuePayments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	assert.Equal(t, 1, env.gw.chargeCalls)
	assert.Equal(t, int64(99000), env.gw.lastChargeAmount)

	rows := env.payments(t, sub.ID)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].IsPromotional)
	assert.Equal(t, int64(99000), rows[0].Amount)
}

func TestRenewalInsidePromotionWindowIsFree(t *testing.T) {
	env := newTestEnv(t, date(2025, 12, 10))
	customer := env.createCustomer(t, "windowrenew@test.com")
	plan := env.createPlan(t, 99000)
	method := env.registerMethod(t, customer.ID)

	// Regular subscription from November whose renewal lands inside the
	// promotion window.
	last := date(2025, 11, 10)
	sub := models.Subscription{
		ID:                 uuid.New(),
		CustomerID:         customer.ID,
		PlanID:             plan.ID,
		PaymentMethodID:    method.ID,
		SubscribedPrice:    99000,
		Status:             models.SubscriptionActive,
		CurrentPeriodStart: date(2025, 11, 10),
		CurrentPeriodEnd:   date(2025, 12, 9),
		NextBillingDate:    date(2025, 12, 10),
		LastBillingDate:    &last,
		SubscriptionType:   models.SubscriptionTypeRegular,
		CreatedAt:          date(2025, 11, 10),
	}
	require.NoError(t, env.db.Create(&sub).Error)

	processed, failed, err := env.recurring.ProcessDuePayments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Zero(t, failed)
	assert.Zero(t, env.gw.chargeCalls)

	rows := env.payments(t, sub.ID)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].IsPromotional)
	assert.Zero(t, rows[0].Amount)
	assert.Equal(t, int64(99000), rows[0].DiscountAmount)

	// The free cycle covers the configured free months, not one.
	reloaded := env.reloadSubscription(t, sub.ID)
	assert.WithinDuration(t, date(2026, 2, 9), reloaded.CurrentPeriodEnd, 0)
	assert.WithinDuration(t, date(2026, 2, 10), reloaded.NextBillingDate, 0)
}

func TestRecurringOrderIDStampsCycle(t *testing.T) {
	id := uuid.New()
	a := nicepay.RecurringOrderID(id, date(2026, 2, 15))
	b := nicepay.RecurringOrderID(id, date(2026, 2, 28))
	c := nicepay.RecurringOrderID(id, date(2026, 3, 1))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
