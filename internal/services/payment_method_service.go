package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tradingacademy/backend/internal/apperrors"
	"github.com/tradingacademy/backend/internal/config"
	"github.com/tradingacademy/backend/internal/models"
	"github.com/tradingacademy/backend/internal/nicepay"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BillingKeyInit is what the front end needs to start the authenticated
// registration flow with the gateway.
type BillingKeyInit struct {
	OrderID  string `json:"order_id"`
	MID      string `json:"mid"`
	EdiDate  string `json:"edi_date"`
	SignData string `json:"sign_data"`
}

// PaymentMethodService manages billing keys: registration (both flows),
// lookup, and revocation. Raw card data only ever passes through to the
// gateway; it is never persisted and never logged.
type PaymentMethodService struct {
	db              *gorm.DB
	cfg             *config.Config
	gateway         BillingGateway
	billingRequests *BillingRequestService
	now             func() time.Time
}

func NewPaymentMethodService(db *gorm.DB, cfg *config.Config, gateway BillingGateway, billingRequests *BillingRequestService) *PaymentMethodService {
	return &PaymentMethodService{
		db:              db,
		cfg:             cfg,
		gateway:         gateway,
		billingRequests: billingRequests,
		now:             time.Now,
	}
}

// InitBillingKeyRegistration opens a registration attempt: it writes the
// PENDING audit row and returns the signed parameters the front end
// passes to the gateway's card-entry window.
func (s *PaymentMethodService) InitBillingKeyRegistration(customerID uuid.UUID) (*BillingKeyInit, error) {
	orderID := nicepay.NewOrderID()
	if _, err := s.billingRequests.Begin(customerID, orderID); err != nil {
		return nil, err
	}

	ediDate := nicepay.EdiDate(s.now())
	return &BillingKeyInit{
		OrderID:  orderID,
		MID:      s.cfg.NicePayMID,
		EdiDate:  ediDate,
		SignData: nicepay.SignData(s.cfg.NicePayMID, ediDate, s.cfg.NicePayMerchantKey),
	}, nil
}

// CompleteBillingKeyRegistration finishes the authenticated flow: it
// exchanges the auth result for a billing key and stores the method.
// Re-submitting a completed order id returns the stored method without
// touching the gateway again.
func (s *PaymentMethodService) CompleteBillingKeyRegistration(ctx context.Context, customerID uuid.UUID, orderID, txTID, authToken string) (*models.PaymentMethod, error) {
	req, err := s.billingRequests.GetByOrderID(orderID)
	if err != nil {
		return nil, err
	}
	if req.CustomerID != customerID {
		return nil, apperrors.NotFound("billing_request_not_found", "billing request not found")
	}
	if req.Status == models.BillingRequestCompleted {
		var method models.PaymentMethod
		if err := s.db.Where("billing_request_id = ?", req.ID).First(&method).Error; err == nil {
			return &method, nil
		}
		return nil, apperrors.Conflict("billing_request_completed", "billing request already completed")
	}

	// Reject duplicates before spending a gateway round trip.
	if err := s.ensureNoUsableMethod(customerID); err != nil {
		return nil, err
	}

	result, err := s.gateway.RegisterBillingKey(ctx, txTID, authToken, orderID)
	if err != nil {
		code, msg := result2codes(result)
		return nil, s.failRegistration(req, code, msg, err)
	}

	return s.storeMethod(customerID, req, result)
}

// RegisterDirect runs the card-data flow end to end: audit row, gateway
// registration with encrypted card data, stored method.
func (s *PaymentMethodService) RegisterDirect(ctx context.Context, customerID uuid.UUID, reg nicepay.DirectRegistration) (*models.PaymentMethod, error) {
	if err := s.ensureNoUsableMethod(customerID); err != nil {
		return nil, err
	}

	reg.OrderID = nicepay.NewOrderID()
	req, err := s.billingRequests.Begin(customerID, reg.OrderID)
	if err != nil {
		return nil, err
	}

	result, err := s.gateway.RegisterBillingKeyDirect(ctx, reg)
	if err != nil {
		code, msg := result2codes(result)
		return nil, s.failRegistration(req, code, msg, err)
	}

	return s.storeMethod(customerID, req, result)
}

// Delete revokes the billing key at the gateway, then soft-deletes the
// method. A method whose key cannot be revoked stays in place.
func (s *PaymentMethodService) Delete(ctx context.Context, customerID, methodID uuid.UUID) error {
	method, err := s.Get(customerID, methodID)
	if err != nil {
		return err
	}
	if method.IsDeleted {
		return nil
	}

	if method.BillingKey != "" {
		result, err := s.gateway.DeleteBillingKey(ctx, method.OrderID, method.BillingKey)
		if err != nil {
			var apiErr *nicepay.APIError
			if errors.As(err, &apiErr) {
				method.RecordGatewayResult(apiErr.Code, apiErr.Message)
				s.db.Save(method)
				return apperrors.Gateway("billing_key_delete_failed", "gateway refused billing key deletion", err)
			}
			return apperrors.Gateway("gateway_unreachable", "gateway call failed", err)
		}
		method.RecordGatewayResult(result.ResultCode, result.ResultMsg)
	}

	method.SoftDelete(s.now())
	if err := s.db.Save(method).Error; err != nil {
		return apperrors.Internal("payment_method_delete_failed", "failed to delete payment method", err)
	}
	slog.Info("payment method deleted", "method_id", method.ID, "customer_id", customerID)
	return nil
}

// Get loads one of the customer's methods, deleted or not.
func (s *PaymentMethodService) Get(customerID, methodID uuid.UUID) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	err := s.db.Where("id = ? AND customer_id = ?", methodID, customerID).First(&method).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("payment_method_not_found", "payment method not found")
		}
		return nil, apperrors.Internal("payment_method_lookup_failed", "failed to load payment method", err)
	}
	return &method, nil
}

// GetPrimary returns the customer's primary usable method, or NotFound.
func (s *PaymentMethodService) GetPrimary(customerID uuid.UUID) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	err := s.db.Where("customer_id = ? AND is_primary = true AND is_deleted = false AND is_active = true", customerID).
		First(&method).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("primary_method_not_found", "no primary payment method")
		}
		return nil, apperrors.Internal("payment_method_lookup_failed", "failed to load payment method", err)
	}
	return &method, nil
}

// List returns the customer's non-deleted methods, newest first.
func (s *PaymentMethodService) List(customerID uuid.UUID) ([]models.PaymentMethod, error) {
	var methods []models.PaymentMethod
	err := s.db.Where("customer_id = ? AND is_deleted = false", customerID).
		Order("is_primary DESC, created_at DESC").Find(&methods).Error
	if err != nil {
		return nil, apperrors.Internal("payment_method_lookup_failed", "failed to list payment methods", err)
	}
	return methods, nil
}

func (s *PaymentMethodService) ensureNoUsableMethod(customerID uuid.UUID) error {
	var count int64
	err := s.db.Model(&models.PaymentMethod{}).
		Where("customer_id = ? AND is_deleted = false AND is_active = true", customerID).
		Count(&count).Error
	if err != nil {
		return apperrors.Internal("payment_method_lookup_failed", "failed to check existing methods", err)
	}
	if count > 0 {
		return apperrors.Conflict("payment_method_exists", "customer already has an active payment method")
	}
	return nil
}

// storeMethod commits the successful registration: the audit row flips to
// COMPLETED and the method row is created in the same transaction.
func (s *PaymentMethodService) storeMethod(customerID uuid.UUID, req *models.BillingRequest, result *nicepay.BillingKeyResult) (*models.PaymentMethod, error) {
	now := s.now()
	cardType := models.CardTypeDebit
	if result.CreditCard() {
		cardType = models.CardTypeCredit
	}
	masked := maskCardNumber(result.CardNo)

	meta, _ := json.Marshal(map[string]string{
		"auth_date": result.AuthDate,
		"card_code": result.CardCode,
		"card_cl":   result.CardCl,
	})

	method := models.PaymentMethod{
		ID:               uuid.New(),
		CustomerID:       customerID,
		BillingRequestID: req.ID,
		OrderID:          req.OrderID,
		BillingKey:       result.BID,
		IssuedAt:         &now,
		DisplayName:      strings.TrimSpace(result.CardName + " " + masked),
		MaskedCardNo:     masked,
		CardCompanyCode:  result.CardCode,
		CardCompanyName:  result.CardName,
		CardType:         cardType,
		IsActive:         true,
		IsPrimary:        true,
		LastResultCode:   result.ResultCode,
		LastResultMsg:    result.ResultMsg,
		PGMetadata:       datatypes.JSON(meta),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.billingRequests.Complete(tx, req, result.ResultCode, result.ResultMsg); err != nil {
			return err
		}
		return tx.Create(&method).Error
	})
	if err != nil {
		return nil, apperrors.Internal("payment_method_create_failed", "failed to store payment method", err)
	}

	slog.Info("billing key registered", "method_id", method.ID, "customer_id", customerID, "card", method.CardCompanyName)
	return &method, nil
}

func (s *PaymentMethodService) failRegistration(req *models.BillingRequest, code, msg string, cause error) error {
	if err := s.billingRequests.Fail(req, code, msg); err != nil {
		slog.Error("failed to record registration failure", "order_id", req.OrderID, "error", err)
	}
	return apperrors.Gateway("billing_key_register_failed", "billing key registration failed", cause)
}

// result2codes extracts result code and message from a possibly-nil
// gateway response for the audit row.
func result2codes(result *nicepay.BillingKeyResult) (string, string) {
	if result == nil {
		return "NETWORK", "gateway unreachable"
	}
	return result.ResultCode, result.ResultMsg
}

// maskCardNumber keeps the first 6 and last 4 digits.
func maskCardNumber(cardNo string) string {
	if len(cardNo) < 10 {
		return strings.Repeat("*", len(cardNo))
	}
	return cardNo[:6] + strings.Repeat("*", len(cardNo)-10) + cardNo[len(cardNo)-4:]
}
