package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// NicePay gateway
	NicePayBaseURL     string
	NicePayMID         string
	NicePayMerchantKey string
	NicePayGoodsName   string
	GatewayTimeout     time.Duration

	// Billing
	Promotion          Promotion
	MaxPaymentFailures int
	BillingInterval    time.Duration

	// Admin
	AdminEmails  string
	AdminUserIDs string
	AdminToken   string

	// Server
	Port        string
	CORSOrigins string
}

// Promotion is the static promotion-window configuration. It is passed
// explicitly into the billing services so date boundaries stay testable.
type Promotion struct {
	StartDate  time.Time
	EndDate    time.Time
	FreeMonths int
	// Amount charged per cycle inside the window, in KRW. 0 = free.
	Amount int64
}

// Contains reports whether the given date falls inside the window,
// boundaries included.
func (p Promotion) Contains(date time.Time) bool {
	return !date.Before(p.StartDate) && !date.After(p.EndDate)
}

// BenefitEndDate is the date the free-period benefit runs out for a
// subscription created on the given date.
func (p Promotion) BenefitEndDate(created time.Time) time.Time {
	return created.AddDate(0, p.FreeMonths, 0)
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "tradingacademy"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m")),
		JWTRefreshExpiry: parseDuration(getEnv("JWT_REFRESH_EXPIRY", "168h")),

		NicePayBaseURL:     getEnv("NICEPAY_BASE_URL", "https://webapi.nicepay.co.kr"),
		NicePayMID:         getEnv("NICEPAY_MID", ""),
		NicePayMerchantKey: getEnv("NICEPAY_MERCHANT_KEY", ""),
		NicePayGoodsName:   getEnv("NICEPAY_GOODS_NAME", "Trading Academy Subscription"),
		GatewayTimeout:     parseDuration(getEnv("NICEPAY_TIMEOUT", "30s")),

		Promotion: Promotion{
			StartDate:  parseDate(getEnv("PROMOTION_START_DATE", "2025-12-05")),
			EndDate:    parseDate(getEnv("PROMOTION_END_DATE", "2025-12-17")),
			FreeMonths: parseInt(getEnv("PROMOTION_FREE_MONTHS", "2"), 2),
			Amount:     int64(parseInt(getEnv("PROMOTION_AMOUNT", "0"), 0)),
		},
		MaxPaymentFailures: parseInt(getEnv("MAX_PAYMENT_FAILURES", "3"), 3),
		BillingInterval:    parseDuration(getEnv("BILLING_INTERVAL", "24h")),

		AdminEmails:  getEnv("ADMIN_EMAILS", ""),
		AdminUserIDs: getEnv("ADMIN_USER_IDS", ""),
		AdminToken:   getEnv("ADMIN_TOKEN", ""),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func parseDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}
