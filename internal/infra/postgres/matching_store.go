package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/havenlabs/haven-core-go/internal/domain"
	"github.com/havenlabs/haven-core-go/internal/port"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// MatchingStore implements port.MatchingStore on PostgreSQL.
type MatchingStore struct {
	db *sqlx.DB
}

func NewMatchingStore(db *sqlx.DB) *MatchingStore {
	return &MatchingStore{db: db}
}

var _ port.MatchingStore = (*MatchingStore)(nil)

func (s *MatchingStore) ListActiveUnpartneredProfiles(ctx context.Context) ([]domain.Profile, error) {
	var profiles []domain.Profile
	query := `
		SELECT id, user_id, is_active, gender, gender_preference, timezone, timezone_preference, created_at
		FROM profiles
		WHERE is_active = TRUE
		  AND user_id NOT IN (SELECT user_id FROM active_partners)
		ORDER BY created_at, id
	`
	err := s.db.SelectContext(ctx, &profiles, query)
	return profiles, err
}

func (s *MatchingStore) ListExclusionEdges(ctx context.Context) ([]domain.Exclusion, error) {
	var edges []domain.Exclusion
	query := `SELECT user_id, excluded_user_id, reason FROM exclusions`
	err := s.db.SelectContext(ctx, &edges, query)
	return edges, err
}

// PersistPartnerships writes the whole batch in one transaction. The
// active_partners primary key rejects any user already holding an active
// partnership, which rolls back the entire batch.
func (s *MatchingStore) PersistPartnerships(ctx context.Context, batch []domain.Partnership) ([]domain.Partnership, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	insertPartnership := `
		INSERT INTO partnerships (id, user1_id, user2_id, start_date, end_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	insertActive := `INSERT INTO active_partners (user_id, partnership_id) VALUES ($1, $2)`

	for _, p := range batch {
		if _, err := tx.ExecContext(ctx, insertPartnership,
			p.ID, p.User1ID, p.User2ID, p.StartDate, p.EndDate, p.Status, p.CreatedAt); err != nil {
			return nil, translateConstraint(err)
		}
		if p.Status != domain.PartnershipActive {
			continue
		}
		for _, userID := range []string{p.User1ID, p.User2ID} {
			if _, err := tx.ExecContext(ctx, insertActive, userID, p.ID); err != nil {
				return nil, translateConstraint(err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return batch, nil
}

func (s *MatchingStore) ListPartnerships(ctx context.Context, status domain.PartnershipStatus) ([]domain.Partnership, error) {
	var partnerships []domain.Partnership
	if status == "" {
		query := `SELECT * FROM partnerships ORDER BY created_at DESC`
		err := s.db.SelectContext(ctx, &partnerships, query)
		return partnerships, err
	}
	query := `SELECT * FROM partnerships WHERE status = $1 ORDER BY created_at DESC`
	err := s.db.SelectContext(ctx, &partnerships, query, status)
	return partnerships, err
}

func (s *MatchingStore) GetPartnership(ctx context.Context, id string) (*domain.Partnership, error) {
	var p domain.Partnership
	query := `SELECT * FROM partnerships WHERE id = $1`
	if err := s.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.ErrNotFound{Resource: "partnership", ID: id}
		}
		return nil, err
	}
	return &p, nil
}

func (s *MatchingStore) HasActivePartnership(ctx context.Context, userID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM active_partners WHERE user_id = $1)`
	err := s.db.GetContext(ctx, &exists, query, userID)
	return exists, err
}

// EndPartnership transitions a partnership to a terminal status and frees
// both users' active slots in the same transaction.
func (s *MatchingStore) EndPartnership(ctx context.Context, id string, status domain.PartnershipStatus, endedAt time.Time) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE partnerships SET status = $1, end_date = $2 WHERE id = $3 AND status = $4`,
		status, endedAt, id, domain.PartnershipActive)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return &domain.ErrNotFound{Resource: "active partnership", ID: id}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM active_partners WHERE partnership_id = $1`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// translateConstraint maps a unique-violation (pq code 23505) onto the
// domain constraint error so callers need no driver knowledge.
func translateConstraint(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return &domain.ErrConstraint{
			Constraint: "one_active_partnership",
			Detail:     fmt.Sprintf("duplicate key: %s", pqErr.Detail),
		}
	}
	return err
}
