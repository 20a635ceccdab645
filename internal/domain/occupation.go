package domain

// ============================================================
// Workforce recruitment: occupations, candidate profiles, reports
// ============================================================

// Occupation is a target workforce role with a recruitment headcount goal.
type Occupation struct {
	ID                   string `json:"id" db:"id"`
	Sector               string `json:"sector" db:"sector"`
	JobTitleID           string `json:"job_title_id,omitempty" db:"job_title_id"`
	OccupationTitle      string `json:"occupation_title" db:"occupation_title"`
	HeadcountTarget      int    `json:"headcount_target" db:"headcount_target"`
	SkillLevel           string `json:"skill_level" db:"skill_level"`
	AnnualTrainingTarget int    `json:"annual_training_target" db:"annual_training_target"`
	CurrentRecruited     int    `json:"current_recruited" db:"current_recruited"`
}

// CandidateProfile carries the free-text attribute arrays matched against
// the occupation catalog.
type CandidateProfile struct {
	ID        string   `json:"id" db:"id"`
	UserID    string   `json:"user_id" db:"user_id"`
	Skills    []string `json:"skills"`
	Sectors   []string `json:"sectors"`
	JobTitles []string `json:"job_titles"` // job-title IDs, opaque tokens
}

// JobTitleSkill is one row of the skills catalog.
type JobTitleSkill struct {
	JobTitleID string `json:"job_title_id" db:"job_title_id"`
	Name       string `json:"name" db:"name"`
}

// SkillSet is a set of normalized (trimmed, lowercased) skill names.
type SkillSet map[string]struct{}

// Contains reports membership of an already-normalized skill name.
func (s SkillSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Match reasons, in priority order. A profile that matches nothing
// reports MatchReasonGeneral.
const (
	MatchReasonSector   = "sector"
	MatchReasonJobTitle = "job_title"
	MatchReasonSkill    = "skill"
	MatchReasonGeneral  = "general"
)

// OccupationMatch is the result of matching one profile against the catalog.
// Each occupation appears at most once even when several paths match it.
type OccupationMatch struct {
	MatchingOccupations []Occupation `json:"matching_occupations"`
	MatchReason         string       `json:"match_reason"`
}

// SectorProgress is recruitment progress for one sector.
type SectorProgress struct {
	Sector    string  `json:"sector"`
	Target    int     `json:"target"`
	Recruited int     `json:"recruited"`
	Percent   float64 `json:"percent"`
}

// SkillLevelProgress is recruitment progress for one skill level.
type SkillLevelProgress struct {
	SkillLevel string  `json:"skill_level"`
	Target     int     `json:"target"`
	Recruited  int     `json:"recruited"`
	Percent    float64 `json:"percent"`
}

// RecruitmentSummary is the top-level recruitment report.
type RecruitmentSummary struct {
	TotalTarget    int                  `json:"total_target"`
	TotalRecruited int                  `json:"total_recruited"`
	Percent        float64              `json:"percent"`
	BySector       []SectorProgress     `json:"by_sector"`
	BySkillLevel   []SkillLevelProgress `json:"by_skill_level"`
}

// SkillLevelDetail drills into one skill level.
type SkillLevelDetail struct {
	SkillLevelProgress
	Occupations []Occupation `json:"occupations"`
}

// SectorDetail drills into one sector.
type SectorDetail struct {
	SectorProgress
	Occupations []Occupation `json:"occupations"`
}

// TrainingGap is an occupation whose matched-profile count falls short of
// its annual training target.
type TrainingGap struct {
	OccupationID         string `json:"occupation_id"`
	OccupationTitle      string `json:"occupation_title"`
	AnnualTrainingTarget int    `json:"annual_training_target"`
	Matched              int    `json:"matched"`
	Gap                  int    `json:"gap"`
}
