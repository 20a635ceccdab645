package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/havenlabs/haven-core-go/internal/domain"
	"github.com/havenlabs/haven-core-go/internal/port"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// EventStore implements port.EventStore on PostgreSQL. Read-only.
type EventStore struct {
	db *sqlx.DB
}

func NewEventStore(db *sqlx.DB) *EventStore {
	return &EventStore{db: db}
}

var _ port.EventStore = (*EventStore)(nil)

func (s *EventStore) UsersCreatedInRange(ctx context.Context, start, end time.Time) ([]domain.User, error) {
	var users []domain.User
	query := `SELECT id, created_at, is_verified, is_approved FROM users WHERE created_at BETWEEN $1 AND $2`
	err := s.db.SelectContext(ctx, &users, query, start, end)
	return users, err
}

func (s *EventStore) UsersCreatedBefore(ctx context.Context, cutoff time.Time) ([]domain.User, error) {
	var users []domain.User
	query := `SELECT id, created_at, is_verified, is_approved FROM users WHERE created_at <= $1`
	err := s.db.SelectContext(ctx, &users, query, cutoff)
	return users, err
}

// paymentRow is the flat table shape; the optional billing columns are
// folded into the tagged union on the way out.
type paymentRow struct {
	ID               string          `db:"id"`
	UserID           string          `db:"user_id"`
	Amount           decimal.Decimal `db:"amount"`
	PaymentDate      time.Time       `db:"payment_date"`
	BillingPeriod    string          `db:"billing_period"`
	BillingMonth     sql.NullString  `db:"billing_month"`
	YearlyStartMonth sql.NullString  `db:"yearly_start_month"`
	YearlyEndMonth   sql.NullString  `db:"yearly_end_month"`
}

func (r paymentRow) toDomain() domain.Payment {
	p := domain.Payment{
		ID:          r.ID,
		UserID:      r.UserID,
		Amount:      r.Amount,
		PaymentDate: r.PaymentDate,
		Period:      domain.BillingPeriod(r.BillingPeriod),
	}
	switch p.Period {
	case domain.BillingMonthly:
		p.Monthly = &domain.MonthlyBilling{BillingMonth: r.BillingMonth.String}
	case domain.BillingYearly:
		p.Yearly = &domain.YearlyBilling{
			StartMonth: r.YearlyStartMonth.String,
			EndMonth:   r.YearlyEndMonth.String,
		}
	}
	return p
}

func (s *EventStore) selectPayments(ctx context.Context, query string, args ...any) ([]domain.Payment, error) {
	var rows []paymentRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	payments := make([]domain.Payment, 0, len(rows))
	for _, r := range rows {
		payments = append(payments, r.toDomain())
	}
	return payments, nil
}

func (s *EventStore) PaymentsInRange(ctx context.Context, start, end time.Time) ([]domain.Payment, error) {
	return s.selectPayments(ctx,
		`SELECT * FROM payments WHERE payment_date BETWEEN $1 AND $2`, start, end)
}

func (s *EventStore) AllPayments(ctx context.Context) ([]domain.Payment, error) {
	return s.selectPayments(ctx, `SELECT * FROM payments`)
}

func (s *EventStore) LoginEventsInRange(ctx context.Context, start, end time.Time) ([]domain.LoginEvent, error) {
	var events []domain.LoginEvent
	query := `SELECT user_id, created_at FROM login_events WHERE created_at BETWEEN $1 AND $2`
	err := s.db.SelectContext(ctx, &events, query, start, end)
	return events, err
}

func (s *EventStore) MoodChecksInRange(ctx context.Context, start, end time.Time) ([]domain.MoodCheck, error) {
	var checks []domain.MoodCheck
	query := `SELECT user_id, mood_value, date FROM mood_checks WHERE date BETWEEN $1 AND $2`
	err := s.db.SelectContext(ctx, &checks, query, start, end)
	return checks, err
}

func (s *EventStore) NpsResponsesInRange(ctx context.Context, start, end time.Time) ([]domain.NpsResponse, error) {
	var responses []domain.NpsResponse
	query := `SELECT user_id, score, created_at FROM nps_responses WHERE created_at BETWEEN $1 AND $2`
	err := s.db.SelectContext(ctx, &responses, query, start, end)
	return responses, err
}
