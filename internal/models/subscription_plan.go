package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionPlan is the monthly plan customers subscribe to. At most
// one plan is active for new signups at any time.
type SubscriptionPlan struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Price     int64     `gorm:"not null" json:"price"`
	IsActive  bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
