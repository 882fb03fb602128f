package nicepay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// Client talks to the NicePay billing API. All calls are synchronous
// HTTP with a bounded timeout; a timeout is a failure, never an assumed
// success.
type Client struct {
	baseURL     string
	mid         string
	merchantKey string
	httpClient  *http.Client
	now         func() time.Time
}

func NewClient(baseURL, mid, merchantKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:     baseURL,
		mid:         mid,
		merchantKey: merchantKey,
		httpClient:  &http.Client{Timeout: timeout},
		now:         time.Now,
	}
}

// RegisterBillingKey exchanges the front-end auth result for a reusable
// billing key (authenticated flow).
func (c *Client) RegisterBillingKey(ctx context.Context, txTID, authToken, orderID string) (*BillingKeyResult, error) {
	ediDate := EdiDate(c.now())
	req := billingKeyRegisterRequest{
		TID:       txTID,
		MID:       c.mid,
		AuthToken: authToken,
		EdiDate:   ediDate,
		SignData:  SignData(txTID, c.mid, ediDate, c.merchantKey),
	}

	var res BillingKeyResult
	if err := c.post(ctx, "/webapi/billing/billkey_regist.jsp", req, &res); err != nil {
		return nil, err
	}
	if !res.Success() {
		return &res, &APIError{Code: res.ResultCode, Message: res.ResultMsg}
	}
	slog.Info("billing key issued", "order_id", orderID, "card", res.CardName)
	return &res, nil
}

// RegisterBillingKeyDirect issues a billing key from raw card data
// (card-data flow). Card data is encrypted in transit and never logged.
func (c *Client) RegisterBillingKeyDirect(ctx context.Context, reg DirectRegistration) (*BillingKeyResult, error) {
	encData, err := encryptCardData(reg.plaintext(), c.merchantKey)
	if err != nil {
		return nil, fmt.Errorf("encrypt card data: %w", err)
	}

	ediDate := EdiDate(c.now())
	req := billingKeyDirectRequest{
		MID:        c.mid,
		EdiDate:    ediDate,
		Moid:       reg.OrderID,
		EncData:    encData,
		SignData:   SignData(c.mid, ediDate, reg.OrderID, c.merchantKey),
		BuyerEmail: reg.BuyerEmail,
		BuyerTel:   reg.BuyerTel,
		BuyerName:  reg.BuyerName,
	}

	var res BillingKeyResult
	if err := c.post(ctx, "/webapi/billing/billkey_regist.jsp", req, &res); err != nil {
		return nil, err
	}
	if !res.Success() {
		return &res, &APIError{Code: res.ResultCode, Message: res.ResultMsg}
	}
	slog.Info("billing key issued (direct)", "order_id", reg.OrderID, "card", res.CardName)
	return &res, nil
}

// DeleteBillingKey revokes a billing key at the gateway.
func (c *Client) DeleteBillingKey(ctx context.Context, orderID, billingKey string) (*Result, error) {
	ediDate := EdiDate(c.now())
	req := billingKeyDeleteRequest{
		MID:      c.mid,
		BID:      billingKey,
		EdiDate:  ediDate,
		Moid:     orderID,
		SignData: SignData(c.mid, ediDate, orderID, billingKey, c.merchantKey),
	}

	var res Result
	if err := c.post(ctx, "/webapi/billing/billkey_remove.jsp", req, &res); err != nil {
		return nil, err
	}
	if !res.Success() {
		return &res, &APIError{Code: res.ResultCode, Message: res.ResultMsg}
	}
	return &res, nil
}

// Charge executes a recurring payment against a stored billing key.
func (c *Client) Charge(ctx context.Context, billingKey string, amount int64, goodsName, orderID string) (*ChargeResult, error) {
	ediDate := EdiDate(c.now())
	amt := strconv.FormatInt(amount, 10)
	req := chargeRequest{
		BID:          billingKey,
		MID:          c.mid,
		TID:          NewTID(c.mid, c.now()),
		EdiDate:      ediDate,
		Moid:         orderID,
		Amt:          amt,
		GoodsName:    goodsName,
		SignData:     SignData(c.mid, ediDate, orderID, amt, billingKey, c.merchantKey),
		CardInterest: "0",
		CardQuota:    "00",
	}

	var res ChargeResult
	if err := c.post(ctx, "/webapi/billing/billing_approve.jsp", req, &res); err != nil {
		return nil, err
	}
	if !res.Success() {
		return &res, &APIError{Code: res.ResultCode, Message: res.ResultMsg}
	}
	slog.Info("charge approved", "order_id", orderID, "amount", amount, "tid", res.TID)
	return &res, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway call failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read gateway response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}
