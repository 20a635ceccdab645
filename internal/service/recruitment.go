package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/havenlabs/haven-core-go/internal/domain"
	"github.com/havenlabs/haven-core-go/internal/infra/observability"
	"github.com/havenlabs/haven-core-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var recruitTracer = otel.Tracer("recruitment")

const skillIndexCacheKey = "recruitment:job_title_skills"

// RecruitmentService cross-matches candidate profiles against the target
// occupation catalog and builds the recruitment progress reports.
type RecruitmentService struct {
	store    port.RecruitmentStore
	indexTTL time.Duration
	metrics  *observability.Metrics
	logger   *zap.Logger

	// cached job-title→skills index, rebuilt at most once per indexTTL.
	indexMu       sync.Mutex
	cachedIndex   map[string]domain.SkillSet
	cachedIndexAt time.Time
}

// NewRecruitmentService creates a RecruitmentService. indexTTL bounds how
// long the job-title→skills index is reused across report calls.
func NewRecruitmentService(store port.RecruitmentStore, indexTTL time.Duration, metrics *observability.Metrics, logger *zap.Logger) *RecruitmentService {
	return &RecruitmentService{
		store:    store,
		indexTTL: indexTTL,
		metrics:  metrics,
		logger:   logger,
	}
}

// normalizeAttr is the single normalization rule for free-text attributes:
// case and surrounding whitespace never cause a false negative.
func normalizeAttr(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// BuildJobTitleSkillsMap groups skill catalog rows by job title, normalizing
// each skill name into a set. O(n); built once per report run and reused for
// every profile.
func BuildJobTitleSkillsMap(rows []domain.JobTitleSkill) map[string]domain.SkillSet {
	index := make(map[string]domain.SkillSet)
	for _, row := range rows {
		if row.JobTitleID == "" {
			continue
		}
		name := normalizeAttr(row.Name)
		if name == "" {
			continue
		}
		set, ok := index[row.JobTitleID]
		if !ok {
			set = make(domain.SkillSet)
			index[row.JobTitleID] = set
		}
		set[name] = struct{}{}
	}
	return index
}

// MatchProfileToOccupations computes which occupations the profile
// satisfies. Three paths are evaluated independently and unioned:
//
//  1. sector: any profile sector equals the occupation sector (normalized),
//  2. job title: the occupation's job-title ID appears in the profile's
//     job-title references (exact membership, IDs are opaque),
//  3. skill: any profile skill is in the occupation job title's skill set.
//
// An occupation is included once even if several paths hit it. MatchReason
// is the highest-priority path that matched anything (sector > job title >
// skill), or "general" when nothing matched. Pure function of its inputs.
func MatchProfileToOccupations(profile domain.CandidateProfile, occupations []domain.Occupation, index map[string]domain.SkillSet) *domain.OccupationMatch {
	sectors := make(map[string]struct{}, len(profile.Sectors))
	for _, s := range profile.Sectors {
		if n := normalizeAttr(s); n != "" {
			sectors[n] = struct{}{}
		}
	}
	jobTitles := make(map[string]struct{}, len(profile.JobTitles))
	for _, id := range profile.JobTitles {
		if id != "" {
			jobTitles[id] = struct{}{}
		}
	}
	skills := make([]string, 0, len(profile.Skills))
	for _, s := range profile.Skills {
		if n := normalizeAttr(s); n != "" {
			skills = append(skills, n)
		}
	}

	var matched []domain.Occupation
	var viaSector, viaTitle, viaSkill bool
	for _, occ := range occupations {
		hit := false

		if _, ok := sectors[normalizeAttr(occ.Sector)]; ok {
			hit = true
			viaSector = true
		}

		if !hit && occ.JobTitleID != "" {
			if _, ok := jobTitles[occ.JobTitleID]; ok {
				hit = true
				viaTitle = true
			}
		}

		if !hit && occ.JobTitleID != "" {
			if set, ok := index[occ.JobTitleID]; ok {
				for _, skill := range skills {
					if set.Contains(skill) {
						hit = true
						viaSkill = true
						break
					}
				}
			}
		}

		if hit {
			matched = append(matched, occ)
		}
	}

	reason := domain.MatchReasonGeneral
	switch {
	case viaSector:
		reason = domain.MatchReasonSector
	case viaTitle:
		reason = domain.MatchReasonJobTitle
	case viaSkill:
		reason = domain.MatchReasonSkill
	}

	return &domain.OccupationMatch{MatchingOccupations: matched, MatchReason: reason}
}

// MatchProfile matches one profile against the full catalog, building the
// skill index on demand.
func (s *RecruitmentService) MatchProfile(ctx context.Context, profile domain.CandidateProfile) (*domain.OccupationMatch, error) {
	ctx, span := recruitTracer.Start(ctx, "RecruitmentService.MatchProfile")
	defer span.End()

	occupations, err := s.store.ListOccupations(ctx, port.OccupationFilter{})
	if err != nil {
		return nil, err
	}
	index, err := s.skillIndex(ctx)
	if err != nil {
		return nil, err
	}

	match := MatchProfileToOccupations(profile, occupations, index)
	span.SetAttributes(attribute.Int("recruitment.matches", len(match.MatchingOccupations)))
	return match, nil
}

// reportInputs is one snapshot of the catalog and profiles, fetched once
// per report call and shared by every sub-report.
type reportInputs struct {
	occupations []domain.Occupation
	profiles    []domain.CandidateProfile
	index       map[string]domain.SkillSet

	// matchedByProfile[i] holds the occupation IDs profile i satisfies.
	matchedByProfile []map[string]struct{}
}

func (s *RecruitmentService) loadReportInputs(ctx context.Context) (*reportInputs, error) {
	occupations, err := s.store.ListOccupations(ctx, port.OccupationFilter{})
	if err != nil {
		return nil, err
	}
	profiles, err := s.store.ListCandidateProfiles(ctx)
	if err != nil {
		return nil, err
	}
	index, err := s.skillIndex(ctx)
	if err != nil {
		return nil, err
	}

	in := &reportInputs{
		occupations:      occupations,
		profiles:         profiles,
		index:            index,
		matchedByProfile: make([]map[string]struct{}, len(profiles)),
	}
	for i, p := range profiles {
		match := MatchProfileToOccupations(p, occupations, index)
		ids := make(map[string]struct{}, len(match.MatchingOccupations))
		for _, occ := range match.MatchingOccupations {
			ids[occ.ID] = struct{}{}
		}
		in.matchedByProfile[i] = ids
	}
	return in, nil
}

func (s *RecruitmentService) skillIndex(ctx context.Context) (map[string]domain.SkillSet, error) {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	if s.cachedIndex != nil && time.Since(s.cachedIndexAt) < s.indexTTL {
		s.metrics.IncrCacheHit("skill_index")
		return s.cachedIndex, nil
	}
	s.metrics.IncrCacheMiss("skill_index")

	rows, err := s.store.ListJobTitleSkills(ctx, nil)
	if err != nil {
		return nil, err
	}
	s.cachedIndex = BuildJobTitleSkillsMap(rows)
	s.cachedIndexAt = time.Now()
	return s.cachedIndex, nil
}

// recruitedCount counts distinct profiles matching at least one of the
// given occupations.
func recruitedCount(in *reportInputs, occIDs map[string]struct{}) int {
	count := 0
	for _, matched := range in.matchedByProfile {
		for id := range occIDs {
			if _, ok := matched[id]; ok {
				count++
				break
			}
		}
	}
	return count
}

// progressPercent never divides by zero: a zero target reports 0%.
func progressPercent(recruited, target int) float64 {
	if target == 0 {
		return 0
	}
	return float64(recruited) / float64(target) * 100
}

// SummaryReport computes overall recruitment progress plus per-sector and
// per-skill-level breakdowns, all from one catalog snapshot.
func (s *RecruitmentService) SummaryReport(ctx context.Context) (*domain.RecruitmentSummary, error) {
	ctx, span := recruitTracer.Start(ctx, "RecruitmentService.SummaryReport")
	defer span.End()
	defer s.observeReport("recruitment_summary", time.Now())

	in, err := s.loadReportInputs(ctx)
	if err != nil {
		return nil, err
	}

	totalTarget := 0
	allIDs := make(map[string]struct{}, len(in.occupations))
	sectorOccs := make(map[string]map[string]struct{})
	sectorTargets := make(map[string]int)
	sectorNames := make(map[string]string) // normalized -> display
	levelOccs := make(map[string]map[string]struct{})
	levelTargets := make(map[string]int)

	for _, occ := range in.occupations {
		totalTarget += occ.HeadcountTarget
		allIDs[occ.ID] = struct{}{}

		sector := normalizeAttr(occ.Sector)
		if sectorOccs[sector] == nil {
			sectorOccs[sector] = make(map[string]struct{})
			sectorNames[sector] = strings.TrimSpace(occ.Sector)
		}
		sectorOccs[sector][occ.ID] = struct{}{}
		sectorTargets[sector] += occ.HeadcountTarget

		level := normalizeAttr(occ.SkillLevel)
		if levelOccs[level] == nil {
			levelOccs[level] = make(map[string]struct{})
		}
		levelOccs[level][occ.ID] = struct{}{}
		levelTargets[level] += occ.HeadcountTarget
	}

	summary := &domain.RecruitmentSummary{
		TotalTarget:    totalTarget,
		TotalRecruited: recruitedCount(in, allIDs),
	}
	summary.Percent = progressPercent(summary.TotalRecruited, summary.TotalTarget)

	for sector, ids := range sectorOccs {
		recruited := recruitedCount(in, ids)
		summary.BySector = append(summary.BySector, domain.SectorProgress{
			Sector:    sectorNames[sector],
			Target:    sectorTargets[sector],
			Recruited: recruited,
			Percent:   progressPercent(recruited, sectorTargets[sector]),
		})
	}
	sort.Slice(summary.BySector, func(i, j int) bool {
		return summary.BySector[i].Sector < summary.BySector[j].Sector
	})

	for level, ids := range levelOccs {
		recruited := recruitedCount(in, ids)
		summary.BySkillLevel = append(summary.BySkillLevel, domain.SkillLevelProgress{
			SkillLevel: level,
			Target:     levelTargets[level],
			Recruited:  recruited,
			Percent:    progressPercent(recruited, levelTargets[level]),
		})
	}
	sort.Slice(summary.BySkillLevel, func(i, j int) bool {
		return summary.BySkillLevel[i].SkillLevel < summary.BySkillLevel[j].SkillLevel
	})

	return summary, nil
}

// SkillLevelDetail reports progress for one skill level with its
// occupations. Recruited counts come from genuine per-path matching.
func (s *RecruitmentService) SkillLevelDetail(ctx context.Context, skillLevel string) (*domain.SkillLevelDetail, error) {
	ctx, span := recruitTracer.Start(ctx, "RecruitmentService.SkillLevelDetail")
	defer span.End()
	defer s.observeReport("skill_level_detail", time.Now())

	if strings.TrimSpace(skillLevel) == "" {
		return nil, &domain.ErrValidation{Field: "skill_level", Message: "required"}
	}

	in, err := s.loadReportInputs(ctx)
	if err != nil {
		return nil, err
	}

	want := normalizeAttr(skillLevel)
	var occupations []domain.Occupation
	ids := make(map[string]struct{})
	target := 0
	for _, occ := range in.occupations {
		if normalizeAttr(occ.SkillLevel) != want {
			continue
		}
		occupations = append(occupations, occ)
		ids[occ.ID] = struct{}{}
		target += occ.HeadcountTarget
	}

	recruited := recruitedCount(in, ids)
	return &domain.SkillLevelDetail{
		SkillLevelProgress: domain.SkillLevelProgress{
			SkillLevel: want,
			Target:     target,
			Recruited:  recruited,
			Percent:    progressPercent(recruited, target),
		},
		Occupations: occupations,
	}, nil
}

// SectorDetail reports progress for one sector with its occupations.
func (s *RecruitmentService) SectorDetail(ctx context.Context, sector string) (*domain.SectorDetail, error) {
	ctx, span := recruitTracer.Start(ctx, "RecruitmentService.SectorDetail")
	defer span.End()
	defer s.observeReport("sector_detail", time.Now())

	if strings.TrimSpace(sector) == "" {
		return nil, &domain.ErrValidation{Field: "sector", Message: "required"}
	}

	in, err := s.loadReportInputs(ctx)
	if err != nil {
		return nil, err
	}

	want := normalizeAttr(sector)
	var occupations []domain.Occupation
	ids := make(map[string]struct{})
	target := 0
	display := strings.TrimSpace(sector)
	for _, occ := range in.occupations {
		if normalizeAttr(occ.Sector) != want {
			continue
		}
		occupations = append(occupations, occ)
		ids[occ.ID] = struct{}{}
		target += occ.HeadcountTarget
		display = strings.TrimSpace(occ.Sector)
	}

	recruited := recruitedCount(in, ids)
	return &domain.SectorDetail{
		SectorProgress: domain.SectorProgress{
			Sector:    display,
			Target:    target,
			Recruited: recruited,
			Percent:   progressPercent(recruited, target),
		},
		Occupations: occupations,
	}, nil
}

// TrainingGapReport lists occupations whose matched-profile count falls
// short of the annual training target, largest gap first.
func (s *RecruitmentService) TrainingGapReport(ctx context.Context) ([]domain.TrainingGap, error) {
	ctx, span := recruitTracer.Start(ctx, "RecruitmentService.TrainingGapReport")
	defer span.End()
	defer s.observeReport("training_gap", time.Now())

	in, err := s.loadReportInputs(ctx)
	if err != nil {
		return nil, err
	}

	gaps := []domain.TrainingGap{}
	for _, occ := range in.occupations {
		matched := recruitedCount(in, map[string]struct{}{occ.ID: {}})
		gap := occ.AnnualTrainingTarget - matched
		if gap <= 0 {
			continue
		}
		gaps = append(gaps, domain.TrainingGap{
			OccupationID:         occ.ID,
			OccupationTitle:      occ.OccupationTitle,
			AnnualTrainingTarget: occ.AnnualTrainingTarget,
			Matched:              matched,
			Gap:                  gap,
		})
	}
	sort.Slice(gaps, func(i, j int) bool {
		if gaps[i].Gap != gaps[j].Gap {
			return gaps[i].Gap > gaps[j].Gap
		}
		return gaps[i].OccupationTitle < gaps[j].OccupationTitle
	})
	return gaps, nil
}

func (s *RecruitmentService) observeReport(name string, start time.Time) {
	s.metrics.RecordReportDuration(name, time.Since(start))
	s.metrics.IncrReportGenerated()
}
