package port

import (
	"context"

	"github.com/havenlabs/haven-core-go/internal/domain"
)

// OccupationFilter narrows an occupation listing. Zero values mean "all".
type OccupationFilter struct {
	Sector     string
	SkillLevel string
}

// RecruitmentStore reads the occupation catalog and candidate profiles.
type RecruitmentStore interface {
	ListOccupations(ctx context.Context, filter OccupationFilter) ([]domain.Occupation, error)
	ListCandidateProfiles(ctx context.Context) ([]domain.CandidateProfile, error)

	// ListJobTitleSkills returns the skill catalog rows for the given
	// job-title IDs; an empty slice of IDs returns all rows.
	ListJobTitleSkills(ctx context.Context, jobTitleIDs []string) ([]domain.JobTitleSkill, error)
}
