package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleCustomer = "customer"
	RoleTrainer  = "trainer"
	RoleAdmin    = "admin"
)

// User is the single user record for all actors; the role tag replaces
// the customer/trainer/admin entity hierarchy.
type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string         `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password  string         `gorm:"not null" json:"-"`
	Name      string         `gorm:"size:100" json:"name"`
	Phone     string         `gorm:"size:30" json:"phone"`
	Role      string         `gorm:"size:20;default:'customer';index" json:"role"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) IsCustomer() bool { return u.Role == RoleCustomer }
func (u *User) IsAdmin() bool    { return u.Role == RoleAdmin }
