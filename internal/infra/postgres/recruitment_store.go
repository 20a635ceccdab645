package postgres

import (
	"context"

	"github.com/havenlabs/haven-core-go/internal/domain"
	"github.com/havenlabs/haven-core-go/internal/port"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// RecruitmentStore implements port.RecruitmentStore on PostgreSQL.
type RecruitmentStore struct {
	db *sqlx.DB
}

func NewRecruitmentStore(db *sqlx.DB) *RecruitmentStore {
	return &RecruitmentStore{db: db}
}

var _ port.RecruitmentStore = (*RecruitmentStore)(nil)

func (s *RecruitmentStore) ListOccupations(ctx context.Context, filter port.OccupationFilter) ([]domain.Occupation, error) {
	var occupations []domain.Occupation
	query := `
		SELECT * FROM occupations
		WHERE ($1 = '' OR lower(sector) = lower($1))
		  AND ($2 = '' OR lower(skill_level) = lower($2))
		ORDER BY sector, occupation_title
	`
	err := s.db.SelectContext(ctx, &occupations, query, filter.Sector, filter.SkillLevel)
	return occupations, err
}

type candidateProfileRow struct {
	ID        string         `db:"id"`
	UserID    string         `db:"user_id"`
	Skills    pq.StringArray `db:"skills"`
	Sectors   pq.StringArray `db:"sectors"`
	JobTitles pq.StringArray `db:"job_titles"`
}

func (s *RecruitmentStore) ListCandidateProfiles(ctx context.Context) ([]domain.CandidateProfile, error) {
	var rows []candidateProfileRow
	query := `SELECT id, user_id, skills, sectors, job_titles FROM candidate_profiles`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	profiles := make([]domain.CandidateProfile, 0, len(rows))
	for _, r := range rows {
		profiles = append(profiles, domain.CandidateProfile{
			ID:        r.ID,
			UserID:    r.UserID,
			Skills:    r.Skills,
			Sectors:   r.Sectors,
			JobTitles: r.JobTitles,
		})
	}
	return profiles, nil
}

func (s *RecruitmentStore) ListJobTitleSkills(ctx context.Context, jobTitleIDs []string) ([]domain.JobTitleSkill, error) {
	var skills []domain.JobTitleSkill
	if len(jobTitleIDs) == 0 {
		query := `SELECT job_title_id, name FROM job_title_skills`
		err := s.db.SelectContext(ctx, &skills, query)
		return skills, err
	}
	query := `SELECT job_title_id, name FROM job_title_skills WHERE job_title_id = ANY($1)`
	err := s.db.SelectContext(ctx, &skills, query, pq.Array(jobTitleIDs))
	return skills, err
}
