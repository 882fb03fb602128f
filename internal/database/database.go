package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tradingacademy/backend/internal/config"
	"github.com/tradingacademy/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Connect(cfg *config.Config) error {
	var err error
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	slog.Info("database connected")
	return nil
}

// Migrate runs AutoMigrate for all models and creates the partial unique
// indexes that back the per-customer invariants.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.SubscriptionPlan{},
		&models.BillingRequest{},
		&models.PaymentMethod{},
		&models.Subscription{},
		&models.Payment{},
		&models.SystemLog{},
	); err != nil {
		return err
	}
	return createPartialIndexes(db)
}

// createPartialIndexes enforces at most one primary payment method and at
// most one active subscription per customer. Partial indexes are postgres
// syntax, so they are skipped on other dialectors (tests run on sqlite).
func createPartialIndexes(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	stmts := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_payment_methods_one_primary
			ON payment_methods (customer_id)
			WHERE is_primary = true AND is_deleted = false`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_subscriptions_one_active
			ON subscriptions (customer_id)
			WHERE status IN ('PENDING', 'ACTIVE', 'PAYMENT_FAILED')`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create partial index: %w", err)
		}
	}
	return nil
}

func Ping() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
