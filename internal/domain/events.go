package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Raw event records consumed read-only by the analytics aggregator
// ============================================================

// DeletedUserPrefix marks soft-deleted users. Rows whose ID carries the
// prefix are excluded from every user-derived count.
const DeletedUserPrefix = "deleted_"

// User is the platform user row as seen by analytics.
type User struct {
	ID         string    `json:"id" db:"id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	IsVerified bool      `json:"is_verified" db:"is_verified"`
	IsApproved bool      `json:"is_approved" db:"is_approved"`
}

// IsDeleted reports whether the user was soft-deleted.
func (u *User) IsDeleted() bool {
	return strings.HasPrefix(u.ID, DeletedUserPrefix)
}

// BillingPeriod tags a payment as monthly or yearly recurring.
type BillingPeriod string

const (
	BillingMonthly BillingPeriod = "monthly"
	BillingYearly  BillingPeriod = "yearly"
)

// MonthlyBilling carries the fields present only on monthly payments.
type MonthlyBilling struct {
	BillingMonth string `json:"billing_month"` // YYYY-MM
}

// YearlyBilling carries the fields present only on yearly payments.
type YearlyBilling struct {
	StartMonth string `json:"yearly_start_month"` // YYYY-MM
	EndMonth   string `json:"yearly_end_month"`   // YYYY-MM
}

// Payment is a subscription payment record. Exactly one of Monthly or
// Yearly is set, matching Period.
type Payment struct {
	ID          string          `json:"id" db:"id"`
	UserID      string          `json:"user_id" db:"user_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	PaymentDate time.Time       `json:"payment_date" db:"payment_date"`
	Period      BillingPeriod   `json:"billing_period" db:"billing_period"`
	Monthly     *MonthlyBilling `json:"monthly,omitempty"`
	Yearly      *YearlyBilling  `json:"yearly,omitempty"`
}

// YearlyActiveAsOf reports whether a yearly payment still covers the given
// month (YYYY-MM). Lexicographic compare works for zero-padded months.
func (p *Payment) YearlyActiveAsOf(month string) bool {
	return p.Period == BillingYearly && p.Yearly != nil && p.Yearly.EndMonth >= month
}

// LoginEvent records one authenticated session start.
type LoginEvent struct {
	UserID    string    `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// MoodCheck is a daily 1-5 mood self-report.
type MoodCheck struct {
	UserID    string    `json:"user_id" db:"user_id"`
	MoodValue int       `json:"mood_value" db:"mood_value"`
	Date      time.Time `json:"date" db:"date"`
}

// NpsResponse is a raw 0-10 survey answer. The survey question is framed
// negatively, so scores are inverted before bucketing.
type NpsResponse struct {
	UserID    string    `json:"user_id" db:"user_id"`
	Score     int       `json:"score" db:"score"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// EbitdaSnapshot is the externally-computed weekly financial-health record.
type EbitdaSnapshot struct {
	WeekStart      string `json:"week_start"` // YYYY-MM-DD
	IsDefaultAlive bool   `json:"is_default_alive"`
}
