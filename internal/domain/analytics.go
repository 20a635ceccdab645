package domain

import "time"

// ============================================================
// Weekly performance review report types
// ============================================================

// DayCount is a per-day distinct-user count.
type DayCount struct {
	Date  string `json:"date"` // YYYY-MM-DD, local calendar
	Count int    `json:"count"`
}

// DayAmount is a per-day revenue sum, rounded to 2 decimals at output.
type DayAmount struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// WeekSnapshot aggregates one Saturday-to-Friday window.
type WeekSnapshot struct {
	WeekStart string `json:"week_start"` // YYYY-MM-DD
	WeekEnd   string `json:"week_end"`

	NewUsers     int         `json:"new_users"`
	Revenue      float64     `json:"revenue"`
	DailyActive  []DayCount  `json:"daily_active_users"`
	DailyRevenue []DayAmount `json:"daily_revenue"`

	// Point-in-time cumulative counts as of the end of the week,
	// not "users active this week".
	TotalUsers    int `json:"total_users"`
	VerifiedUsers int `json:"verified_users"`
	ApprovedUsers int `json:"approved_users"`

	Nps              int     `json:"nps"`
	NpsResponseCount int     `json:"nps_response_count"`
	MoodIndex        float64 `json:"mood_index"`
	MoodCheckCount   int     `json:"mood_check_count"`

	IsDefaultAlive *bool `json:"is_default_alive"`
}

// WeekChanges compares the current week against the previous one.
// The Nps and Mood fields are plain differences, not percentages.
type WeekChanges struct {
	NewUsersPct      float64 `json:"new_users_pct"`
	RevenuePct       float64 `json:"revenue_pct"`
	TotalUsersPct    float64 `json:"total_users_pct"`
	VerifiedUsersPct float64 `json:"verified_users_pct"`
	ApprovedUsersPct float64 `json:"approved_users_pct"`
	Nps              float64 `json:"nps"`
	Mood             float64 `json:"mood"`
}

// BusinessMetrics are the month-scoped and lifetime business figures.
type BusinessMetrics struct {
	Month            string  `json:"month"` // YYYY-MM
	MRR              float64 `json:"mrr"`
	ARR              float64 `json:"arr"`
	MAU              int     `json:"mau"`
	ChurnRatePct     float64 `json:"churn_rate_pct"`
	CLV              float64 `json:"clv"`
	RetentionRatePct float64 `json:"retention_rate_pct"`
}

// WeeklyReviewReport is the full two-week comparative snapshot.
type WeeklyReviewReport struct {
	GeneratedAt  time.Time       `json:"generated_at"`
	CurrentWeek  WeekSnapshot    `json:"current_week"`
	PreviousWeek WeekSnapshot    `json:"previous_week"`
	Changes      WeekChanges     `json:"changes"`
	Business     BusinessMetrics `json:"business"`
}

// PlatformMetrics is the operational snapshot returned by the metrics
// endpoint, derived from the Prometheus counters.
type PlatformMetrics struct {
	MatchPassesTotal    int64   `json:"match_passes_total"`
	PartnershipsCreated int64   `json:"partnerships_created"`
	ReportsGenerated    int64   `json:"reports_generated"`
	ErrorRate           float64 `json:"error_rate"`
	CacheHitRate        float64 `json:"cache_hit_rate"`
	Period              string  `json:"period"`
}
