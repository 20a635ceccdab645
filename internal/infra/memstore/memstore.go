// Package memstore is an in-memory implementation of the storage ports.
// It backs local development without a database and the handler tests.
// All methods are safe for concurrent use.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/havenlabs/haven-core-go/internal/domain"
	"github.com/havenlabs/haven-core-go/internal/port"
)

// Store holds every table in memory and implements port.MatchingStore,
// port.EventStore, and port.RecruitmentStore.
type Store struct {
	mu sync.RWMutex

	Profiles     []domain.Profile
	Exclusions   []domain.Exclusion
	Partnerships map[string]*domain.Partnership

	Users        []domain.User
	Payments     []domain.Payment
	Logins       []domain.LoginEvent
	Moods        []domain.MoodCheck
	Nps          []domain.NpsResponse

	Occupations       []domain.Occupation
	CandidateProfiles []domain.CandidateProfile
	JobTitleSkills    []domain.JobTitleSkill
}

func New() *Store {
	return &Store{Partnerships: make(map[string]*domain.Partnership)}
}

var (
	_ port.MatchingStore    = (*Store)(nil)
	_ port.EventStore       = (*Store)(nil)
	_ port.RecruitmentStore = (*Store)(nil)
)

// --- port.MatchingStore ---

func (s *Store) ListActiveUnpartneredProfiles(_ context.Context) ([]domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Profile
	for _, p := range s.Profiles {
		if p.IsActive && !s.hasActiveLocked(p.UserID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) ListExclusionEdges(_ context.Context) ([]domain.Exclusion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Exclusion(nil), s.Exclusions...), nil
}

func (s *Store) PersistPartnerships(_ context.Context, batch []domain.Partnership) ([]domain.Partnership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before touching state so a violation never
	// leaves a partial write behind.
	claimed := make(map[string]bool, 2*len(batch))
	for _, p := range batch {
		if p.Status != domain.PartnershipActive {
			continue
		}
		for _, userID := range []string{p.User1ID, p.User2ID} {
			if claimed[userID] || s.hasActiveLocked(userID) {
				return nil, &domain.ErrConstraint{
					Constraint: "one_active_partnership",
					Detail:     "user " + userID + " already has an active partnership",
				}
			}
			claimed[userID] = true
		}
	}

	for i := range batch {
		p := batch[i]
		s.Partnerships[p.ID] = &p
	}
	return batch, nil
}

func (s *Store) ListPartnerships(_ context.Context, status domain.PartnershipStatus) ([]domain.Partnership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Partnership
	for _, p := range s.Partnerships {
		if status == "" || p.Status == status {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetPartnership(_ context.Context, id string) (*domain.Partnership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.Partnerships[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "partnership", ID: id}
	}
	cp := *p
	return &cp, nil
}

func (s *Store) HasActivePartnership(_ context.Context, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasActiveLocked(userID), nil
}

func (s *Store) hasActiveLocked(userID string) bool {
	for _, p := range s.Partnerships {
		if p.Status == domain.PartnershipActive && p.HasUser(userID) {
			return true
		}
	}
	return false
}

func (s *Store) EndPartnership(_ context.Context, id string, status domain.PartnershipStatus, endedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.Partnerships[id]
	if !ok || p.Status != domain.PartnershipActive {
		return &domain.ErrNotFound{Resource: "active partnership", ID: id}
	}
	p.Status = status
	p.EndDate = &endedAt
	return nil
}

// --- port.EventStore ---

func within(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

func (s *Store) UsersCreatedInRange(_ context.Context, start, end time.Time) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.User
	for _, u := range s.Users {
		if within(u.CreatedAt, start, end) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *Store) UsersCreatedBefore(_ context.Context, cutoff time.Time) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.User
	for _, u := range s.Users {
		if !u.CreatedAt.After(cutoff) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *Store) PaymentsInRange(_ context.Context, start, end time.Time) ([]domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Payment
	for _, p := range s.Payments {
		if within(p.PaymentDate, start, end) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) AllPayments(_ context.Context) ([]domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Payment(nil), s.Payments...), nil
}

func (s *Store) LoginEventsInRange(_ context.Context, start, end time.Time) ([]domain.LoginEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.LoginEvent
	for _, l := range s.Logins {
		if within(l.CreatedAt, start, end) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *Store) MoodChecksInRange(_ context.Context, start, end time.Time) ([]domain.MoodCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.MoodCheck
	for _, c := range s.Moods {
		if within(c.Date, start, end) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) NpsResponsesInRange(_ context.Context, start, end time.Time) ([]domain.NpsResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.NpsResponse
	for _, r := range s.Nps {
		if within(r.CreatedAt, start, end) {
			out = append(out, r)
		}
	}
	return out, nil
}

// --- port.RecruitmentStore ---

func (s *Store) ListOccupations(_ context.Context, filter port.OccupationFilter) ([]domain.Occupation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Occupation
	for _, occ := range s.Occupations {
		if filter.Sector != "" && occ.Sector != filter.Sector {
			continue
		}
		if filter.SkillLevel != "" && occ.SkillLevel != filter.SkillLevel {
			continue
		}
		out = append(out, occ)
	}
	return out, nil
}

func (s *Store) ListCandidateProfiles(_ context.Context) ([]domain.CandidateProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.CandidateProfile(nil), s.CandidateProfiles...), nil
}

func (s *Store) ListJobTitleSkills(_ context.Context, jobTitleIDs []string) ([]domain.JobTitleSkill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(jobTitleIDs) == 0 {
		return append([]domain.JobTitleSkill(nil), s.JobTitleSkills...), nil
	}
	want := make(map[string]struct{}, len(jobTitleIDs))
	for _, id := range jobTitleIDs {
		want[id] = struct{}{}
	}
	var out []domain.JobTitleSkill
	for _, row := range s.JobTitleSkills {
		if _, ok := want[row.JobTitleID]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}
