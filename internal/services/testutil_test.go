package services

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tradingacademy/backend/internal/config"
	"github.com/tradingacademy/backend/internal/database"
	"github.com/tradingacademy/backend/internal/models"
	"github.com/tradingacademy/backend/internal/nicepay"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// stubGateway records calls and returns canned responses.
type stubGateway struct {
	registerResult *nicepay.BillingKeyResult
	registerErr    error
	deleteResult   *nicepay.Result
	deleteErr      error
	chargeResult   *nicepay.ChargeResult
	chargeErr      error

	registerCalls     int
	deleteCalls       int
	chargeCalls       int
	lastChargeAmount  int64
	lastChargeOrderID string
	lastChargeKey     string
}

func (g *stubGateway) RegisterBillingKey(ctx context.Context, txTID, authToken, orderID string) (*nicepay.BillingKeyResult, error) {
	g.registerCalls++
	return g.registerResult, g.registerErr
}

func (g *stubGateway) RegisterBillingKeyDirect(ctx context.Context, reg nicepay.DirectRegistration) (*nicepay.BillingKeyResult, error) {
	g.registerCalls++
	return g.registerResult, g.registerErr
}

func (g *stubGateway) DeleteBillingKey(ctx context.Context, orderID, billingKey string) (*nicepay.Result, error) {
	g.deleteCalls++
	return g.deleteResult, g.deleteErr
}

func (g *stubGateway) Charge(ctx context.Context, billingKey string, amount int64, goodsName, orderID string) (*nicepay.ChargeResult, error) {
	g.chargeCalls++
	g.lastChargeAmount = amount
	g.lastChargeOrderID = orderID
	g.lastChargeKey = billingKey
	return g.chargeResult, g.chargeErr
}

func issuedKeyResult(bid string) *nicepay.BillingKeyResult {
	return &nicepay.BillingKeyResult{
		ResultCode: "F100",
		ResultMsg:  "success",
		BID:        bid,
		AuthDate:   "20260115",
		CardCode:   "04",
		CardName:   "Samsung",
		CardNo:     "1234567890123456",
		CardCl:     "0",
	}
}

func approvedChargeResult(orderID string) *nicepay.ChargeResult {
	return &nicepay.ChargeResult{
		ResultCode: "3001",
		ResultMsg:  "approved",
		TID:        "testmid0116" + uuid.NewString()[:8],
		Moid:       orderID,
		AuthCode:   "00123456",
	}
}

func deletedKeyResult() *nicepay.Result {
	return &nicepay.Result{ResultCode: "F101", ResultMsg: "deleted"}
}

type testEnv struct {
	db        *gorm.DB
	cfg       *config.Config
	gw        *stubGateway
	requests  *BillingRequestService
	methods   *PaymentMethodService
	plans     *PlanService
	subs      *SubscriptionService
	recurring *RecurringPaymentService
	clock     *time.Time
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testConfig() *config.Config {
	return &config.Config{
		NicePayMID:         "testmid",
		NicePayMerchantKey: "0123456789abcdef0123456789abcdef",
		NicePayGoodsName:   "Trading Academy Subscription",
		MaxPaymentFailures: 3,
		JWTSecret:          "test-secret",
		JWTAccessExpiry:    15 * time.Minute,
		JWTRefreshExpiry:   168 * time.Hour,
		Promotion: config.Promotion{
			StartDate:  date(2025, 12, 5),
			EndDate:    date(2025, 12, 17),
			FreeMonths: 2,
			Amount:     0,
		},
	}
}

func newTestEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := testConfig()
	gw := &stubGateway{
		registerResult: issuedKeyResult("BIKY" + uuid.NewString()[:8]),
		deleteResult:   deletedKeyResult(),
	}

	env := &testEnv{db: db, cfg: cfg, gw: gw, clock: &now}
	nowFn := func() time.Time { return *env.clock }

	env.requests = NewBillingRequestService(db)
	env.requests.now = nowFn
	env.methods = NewPaymentMethodService(db, cfg, gw, env.requests)
	env.methods.now = nowFn
	env.plans = NewPlanService(db)
	env.subs = NewSubscriptionService(db, cfg, env.plans, env.methods)
	env.subs.now = nowFn
	env.recurring = NewRecurringPaymentService(db, cfg, gw, env.subs, env.methods)
	env.recurring.now = nowFn
	env.subs.SetPaymentExecutor(env.recurring)

	return env
}

func (e *testEnv) setNow(now time.Time) { *e.clock = now }

func (e *testEnv) createCustomer(t *testing.T, email string) *models.User {
	t.Helper()
	user := models.User{
		ID:       uuid.New(),
		Email:    email,
		Password: "hashed",
		Name:     "Test Customer",
		Role:     models.RoleCustomer,
	}
	require.NoError(t, e.db.Create(&user).Error)
	return &user
}

func (e *testEnv) createPlan(t *testing.T, price int64) *models.SubscriptionPlan {
	t.Helper()
	plan, err := e.plans.Create("Trading Academy Monthly", price)
	require.NoError(t, err)
	return plan
}

// registerMethod runs the direct flow against the stub gateway and
// returns the stored method.
func (e *testEnv) registerMethod(t *testing.T, customerID uuid.UUID) *models.PaymentMethod {
	t.Helper()
	method, err := e.methods.RegisterDirect(context.Background(), customerID, nicepay.DirectRegistration{
		CardNo:   "1234567890123456",
		ExpYear:  "28",
		ExpMonth: "06",
	})
	require.NoError(t, err)
	return method
}

func (e *testEnv) reloadSubscription(t *testing.T, id uuid.UUID) *models.Subscription {
	t.Helper()
	var sub models.Subscription
	require.NoError(t, e.db.First(&sub, "id = ?", id).Error)
	return &sub
}

func (e *testEnv) reloadMethod(t *testing.T, id uuid.UUID) *models.PaymentMethod {
	t.Helper()
	var method models.PaymentMethod
	require.NoError(t, e.db.First(&method, "id = ?", id).Error)
	return &method
}

func (e *testEnv) payments(t *testing.T, subscriptionID uuid.UUID) []models.Payment {
	t.Helper()
	var rows []models.Payment
	require.NoError(t, e.db.Where("subscription_id = ?", subscriptionID).Order("created_at").Find(&rows).Error)
	return rows
}
