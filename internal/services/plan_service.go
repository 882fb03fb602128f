package services

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/tradingacademy/backend/internal/apperrors"
	"github.com/tradingacademy/backend/internal/models"
	"gorm.io/gorm"
)

// PlanService manages subscription plans. One plan is active at a time;
// creating a new one retires the previous active plan. Existing
// subscriptions keep the price they subscribed at.
type PlanService struct {
	db *gorm.DB
}

func NewPlanService(db *gorm.DB) *PlanService {
	return &PlanService{db: db}
}

// Create activates a new plan and deactivates the current one in the
// same transaction.
func (s *PlanService) Create(name string, price int64) (*models.SubscriptionPlan, error) {
	if name == "" {
		return nil, apperrors.Invalid("plan_name_required", "plan name is required")
	}
	if price < 0 {
		return nil, apperrors.Invalid("plan_price_invalid", "plan price cannot be negative")
	}

	plan := models.SubscriptionPlan{
		ID:       uuid.New(),
		Name:     name,
		Price:    price,
		IsActive: true,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.SubscriptionPlan{}).
			Where("is_active = true").
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Create(&plan).Error
	})
	if err != nil {
		return nil, apperrors.Internal("plan_create_failed", "failed to create plan", err)
	}

	slog.Info("plan created", "plan_id", plan.ID, "name", plan.Name, "price", plan.Price)
	return &plan, nil
}

// Active returns the currently active plan.
func (s *PlanService) Active() (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	if err := s.db.Where("is_active = true").First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("no_active_plan", "no active subscription plan")
		}
		return nil, apperrors.Internal("plan_lookup_failed", "failed to load active plan", err)
	}
	return &plan, nil
}

// Get loads a plan by id.
func (s *PlanService) Get(planID uuid.UUID) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	if err := s.db.First(&plan, "id = ?", planID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("plan_not_found", "plan not found")
		}
		return nil, apperrors.Internal("plan_lookup_failed", "failed to load plan", err)
	}
	return &plan, nil
}

// List returns all plans, newest first.
func (s *PlanService) List() ([]models.SubscriptionPlan, error) {
	var plans []models.SubscriptionPlan
	if err := s.db.Order("created_at DESC").Find(&plans).Error; err != nil {
		return nil, apperrors.Internal("plan_lookup_failed", "failed to list plans", err)
	}
	return plans, nil
}
