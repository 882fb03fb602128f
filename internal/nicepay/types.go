package nicepay

import "fmt"

// Result codes the gateway returns for successful calls.
const (
	resultBillingKeyIssued  = "F100"
	resultBillingKeyDeleted = "F101"
	resultChargeApproved    = "3001"
)

type billingKeyRegisterRequest struct {
	TID       string `json:"TID"`
	MID       string `json:"MID"`
	AuthToken string `json:"AuthToken"`
	EdiDate   string `json:"EdiDate"`
	SignData  string `json:"SignData"`
}

type billingKeyDirectRequest struct {
	MID        string `json:"MID"`
	EdiDate    string `json:"EdiDate"`
	Moid       string `json:"Moid"`
	EncData    string `json:"EncData"`
	SignData   string `json:"SignData"`
	BuyerEmail string `json:"BuyerEmail,omitempty"`
	BuyerTel   string `json:"BuyerTel,omitempty"`
	BuyerName  string `json:"BuyerName,omitempty"`
}

type billingKeyDeleteRequest struct {
	MID      string `json:"MID"`
	BID      string `json:"BID"`
	EdiDate  string `json:"EdiDate"`
	Moid     string `json:"Moid"`
	SignData string `json:"SignData"`
}

type chargeRequest struct {
	BID          string `json:"BID"`
	MID          string `json:"MID"`
	TID          string `json:"TID"`
	EdiDate      string `json:"EdiDate"`
	Moid         string `json:"Moid"`
	Amt          string `json:"Amt"`
	GoodsName    string `json:"GoodsName"`
	SignData     string `json:"SignData"`
	CardInterest string `json:"CardInterest"`
	CardQuota    string `json:"CardQuota"`
}

// DirectRegistration carries plaintext card data for the card-data
// registration flow. It is encrypted before transmission and never
// persisted or logged.
type DirectRegistration struct {
	CardNo     string
	ExpYear    string
	ExpMonth   string
	IDNo       string
	CardPw     string
	OrderID    string
	BuyerEmail string
	BuyerTel   string
	BuyerName  string
}

func (d DirectRegistration) plaintext() string {
	return fmt.Sprintf("CardNo=%s&ExpYear=%s&ExpMonth=%s&IDNo=%s&CardPw=%s",
		d.CardNo, d.ExpYear, d.ExpMonth, d.IDNo, d.CardPw)
}

// BillingKeyResult is the gateway's response to a billing-key
// registration, either flow.
type BillingKeyResult struct {
	ResultCode string `json:"ResultCode"`
	ResultMsg  string `json:"ResultMsg"`
	BID        string `json:"BID"`
	AuthDate   string `json:"AuthDate"`
	CardCode   string `json:"CardCode"`
	CardName   string `json:"CardName"`
	CardNo     string `json:"CardNo"`
	CardCl     string `json:"CardCl"`
}

func (r *BillingKeyResult) Success() bool { return r.ResultCode == resultBillingKeyIssued }

// CreditCard reports whether the registered card is credit (vs. debit).
func (r *BillingKeyResult) CreditCard() bool { return r.CardCl == "0" }

// Result is the gateway's response to a billing-key delete.
type Result struct {
	ResultCode string `json:"ResultCode"`
	ResultMsg  string `json:"ResultMsg"`
}

func (r *Result) Success() bool { return r.ResultCode == resultBillingKeyDeleted }

// ChargeResult is the gateway's response to a recurring charge.
type ChargeResult struct {
	ResultCode string `json:"ResultCode"`
	ResultMsg  string `json:"ResultMsg"`
	TID        string `json:"TID"`
	Moid       string `json:"Moid"`
	Amt        string `json:"Amt"`
	AuthCode   string `json:"AuthCode"`
	AuthDate   string `json:"AuthDate"`
}

func (r *ChargeResult) Success() bool { return r.ResultCode == resultChargeApproved }

// APIError is a gateway call that came back with a non-success result
// code. The partial result stays available so callers can record it.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("nicepay: %s %s", e.Code, e.Message)
}
