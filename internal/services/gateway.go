package services

import (
	"context"

	"github.com/tradingacademy/backend/internal/nicepay"
)

// BillingGateway is the payment-gateway surface the billing services
// depend on. *nicepay.Client satisfies it; tests substitute a stub.
type BillingGateway interface {
	RegisterBillingKey(ctx context.Context, txTID, authToken, orderID string) (*nicepay.BillingKeyResult, error)
	RegisterBillingKeyDirect(ctx context.Context, reg nicepay.DirectRegistration) (*nicepay.BillingKeyResult, error)
	DeleteBillingKey(ctx context.Context, orderID, billingKey string) (*nicepay.Result, error)
	Charge(ctx context.Context, billingKey string, amount int64, goodsName, orderID string) (*nicepay.ChargeResult, error)
}
