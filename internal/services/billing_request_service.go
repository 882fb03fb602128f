package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tradingacademy/backend/internal/apperrors"
	"github.com/tradingacademy/backend/internal/models"
	"gorm.io/gorm"
)

// BillingRequestService owns the billing-key registration audit trail.
// Every write runs in its own transaction so an audit row survives even
// when the surrounding registration flow fails.
type BillingRequestService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewBillingRequestService(db *gorm.DB) *BillingRequestService {
	return &BillingRequestService{db: db, now: time.Now}
}

// Begin records a new PENDING registration attempt before any gateway
// call is made.
func (s *BillingRequestService) Begin(customerID uuid.UUID, orderID string) (*models.BillingRequest, error) {
	req := models.BillingRequest{
		ID:         uuid.New(),
		CustomerID: customerID,
		OrderID:    orderID,
		Status:     models.BillingRequestPending,
	}
	if err := s.db.Create(&req).Error; err != nil {
		return nil, apperrors.Internal("billing_request_create_failed", "failed to record billing request", err)
	}
	return &req, nil
}

// GetByOrderID loads the request for an order id.
func (s *BillingRequestService) GetByOrderID(orderID string) (*models.BillingRequest, error) {
	var req models.BillingRequest
	if err := s.db.Where("order_id = ?", orderID).First(&req).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("billing_request_not_found", "billing request not found")
		}
		return nil, apperrors.Internal("billing_request_lookup_failed", "failed to load billing request", err)
	}
	return &req, nil
}

// Complete marks the request COMPLETED. Completing an already-completed
// request is a no-op, so a retried callback cannot corrupt the trail.
func (s *BillingRequestService) Complete(tx *gorm.DB, req *models.BillingRequest, resultCode, resultMsg string) error {
	if req.Status == models.BillingRequestCompleted {
		return nil
	}
	req.Complete(resultCode, resultMsg, s.now())
	if err := tx.Save(req).Error; err != nil {
		return fmt.Errorf("failed to complete billing request: %w", err)
	}
	return nil
}

// Fail marks the request FAILED with the gateway's result. Runs in its
// own transaction: a failed registration still leaves its audit row.
func (s *BillingRequestService) Fail(req *models.BillingRequest, resultCode, resultMsg string) error {
	req.Fail(resultCode, resultMsg)
	if err := s.db.Save(req).Error; err != nil {
		return fmt.Errorf("failed to record billing request failure: %w", err)
	}
	return nil
}
