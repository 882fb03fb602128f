package nicepay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMerchantKey = "0123456789abcdef0123456789abcdef"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "testmid", testMerchantKey, 5*time.Second)
	c.now = func() time.Time { return time.Date(2026, 2, 15, 9, 30, 45, 0, time.UTC) }
	return c
}

func TestRegisterBillingKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/webapi/billing/billkey_regist.jsp", r.URL.Path)

		var req billingKeyRegisterRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tx-tid", req.TID)
		assert.Equal(t, "testmid", req.MID)
		assert.Equal(t, "20260215093045", req.EdiDate)
		assert.Equal(t, SignData("tx-tid", "testmid", req.EdiDate, testMerchantKey), req.SignData)

		json.NewEncoder(w).Encode(BillingKeyResult{
			ResultCode: "F100", ResultMsg: "success",
			BID: "BIKYtest", CardCode: "04", CardName: "Samsung", CardCl: "0",
		})
	})

	res, err := c.RegisterBillingKey(context.Background(), "tx-tid", "auth-token", "BK-order")
	require.NoError(t, err)
	assert.Equal(t, "BIKYtest", res.BID)
	assert.True(t, res.CreditCard())
}

func TestRegisterBillingKeyRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(BillingKeyResult{ResultCode: "F112", ResultMsg: "invalid card"})
	})

	res, err := c.RegisterBillingKey(context.Background(), "tx-tid", "auth-token", "BK-order")
	require.Error(t, err)

	// The partial result stays available for audit.
	require.NotNil(t, res)
	assert.Equal(t, "F112", res.ResultCode)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, "F112", apiErr.Code)
}

func TestCharge(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/webapi/billing/billing_approve.jsp", r.URL.Path)

		var req chargeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "BIKYtest", req.BID)
		assert.Equal(t, "99000", req.Amt)
		assert.Equal(t, SignData("testmid", req.EdiDate, req.Moid, "99000", "BIKYtest", testMerchantKey), req.SignData)

		json.NewEncoder(w).Encode(ChargeResult{
			ResultCode: "3001", ResultMsg: "approved",
			TID: req.TID, Moid: req.Moid, Amt: req.Amt, AuthCode: "00123456",
		})
	})

	res, err := c.Charge(context.Background(), "BIKYtest", 99000, "Subscription", "SUB-x-202602")
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.Equal(t, "00123456", res.AuthCode)
}

func TestChargeDeclined(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ChargeResult{ResultCode: "3021", ResultMsg: "insufficient funds"})
	})

	res, err := c.Charge(context.Background(), "BIKYtest", 99000, "Subscription", "SUB-x-202602")
	require.Error(t, err)
	require.NotNil(t, res)
	assert.False(t, res.Success())
}

func TestDeleteBillingKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/webapi/billing/billkey_remove.jsp", r.URL.Path)

		var req billingKeyDeleteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, SignData("testmid", req.EdiDate, req.Moid, "BIKYtest", testMerchantKey), req.SignData)

		json.NewEncoder(w).Encode(Result{ResultCode: "F101", ResultMsg: "deleted"})
	})

	res, err := c.DeleteBillingKey(context.Background(), "BK-order", "BIKYtest")
	require.NoError(t, err)
	assert.True(t, res.Success())
}

func TestGatewayHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Charge(context.Background(), "BIKYtest", 99000, "Subscription", "SUB-x-202602")
	require.Error(t, err)
}
