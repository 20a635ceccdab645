package service

import (
	"context"
	"sort"
	"time"

	"github.com/havenlabs/haven-core-go/internal/domain"
	"github.com/havenlabs/haven-core-go/internal/infra/observability"
	"github.com/havenlabs/haven-core-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var matchTracer = otel.Tracer("matching")

// MatchingService runs the algorithmic partnership-matching pass and the
// manual partnership operations.
type MatchingService struct {
	store   port.MatchingStore
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewMatchingService creates a MatchingService.
func NewMatchingService(store port.MatchingStore, metrics *observability.Metrics, logger *zap.Logger) *MatchingService {
	return &MatchingService{
		store:   store,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// exclusionSet is a symmetric pair-blocking lookup. Storage keeps directed
// edges; if either direction exists the pair is blocked.
type exclusionSet map[string]map[string]bool

func buildExclusionSet(edges []domain.Exclusion) exclusionSet {
	set := make(exclusionSet, len(edges))
	add := func(a, b string) {
		if set[a] == nil {
			set[a] = make(map[string]bool)
		}
		set[a][b] = true
	}
	for _, e := range edges {
		add(e.UserID, e.ExcludedUserID)
		add(e.ExcludedUserID, e.UserID)
	}
	return set
}

func (s exclusionSet) blocked(a, b string) bool {
	return s[a][b]
}

// compatible applies the pairing constraints: mutual non-exclusion, gender
// preference, timezone preference. Preferences are honored when either side
// states them; a stated preference requires both fields equal and non-empty.
func compatible(a, b *domain.Profile, exclusions exclusionSet) bool {
	if a.UserID == b.UserID {
		return false
	}
	if exclusions.blocked(a.UserID, b.UserID) {
		return false
	}
	if a.GenderPreference == domain.GenderPrefSameGender || b.GenderPreference == domain.GenderPrefSameGender {
		if a.Gender == "" || a.Gender != b.Gender {
			return false
		}
	}
	if a.TimezonePreference == domain.TimezonePrefSame || b.TimezonePreference == domain.TimezonePrefSame {
		if a.Timezone == "" || a.Timezone != b.Timezone {
			return false
		}
	}
	return true
}

// RunMatchingPass pairs active, unpartnered profiles greedily: candidates
// are walked in creation order (ties broken by ID, so the pass is
// deterministic) and each unmatched candidate takes the first eligible
// partner after it. Candidates left without a partner stay unmatched; that
// is not an error. The batch is persisted atomically.
func (s *MatchingService) RunMatchingPass(ctx context.Context) (*domain.MatchRunResult, error) {
	ctx, span := matchTracer.Start(ctx, "MatchingService.RunMatchingPass")
	defer span.End()

	profiles, err := s.store.ListActiveUnpartneredProfiles(ctx)
	if err != nil {
		return nil, err
	}
	edges, err := s.store.ListExclusionEdges(ctx)
	if err != nil {
		return nil, err
	}

	// Defensive filter: the store already excludes inactive profiles but
	// the invariant is cheap to restate here.
	pool := make([]domain.Profile, 0, len(profiles))
	for _, p := range profiles {
		if p.IsActive {
			pool = append(pool, p)
		}
	}
	sort.Slice(pool, func(i, j int) bool {
		if !pool[i].CreatedAt.Equal(pool[j].CreatedAt) {
			return pool[i].CreatedAt.Before(pool[j].CreatedAt)
		}
		return pool[i].ID < pool[j].ID
	})

	exclusions := buildExclusionSet(edges)
	now := s.now()

	matched := make(map[string]bool, len(pool))
	var created []domain.Partnership
	for i := range pool {
		a := &pool[i]
		if matched[a.UserID] {
			continue
		}
		for j := i + 1; j < len(pool); j++ {
			b := &pool[j]
			if matched[b.UserID] || !compatible(a, b, exclusions) {
				continue
			}
			created = append(created, domain.Partnership{
				ID:        uuid.NewString(),
				User1ID:   a.UserID,
				User2ID:   b.UserID,
				StartDate: now,
				Status:    domain.PartnershipActive,
				CreatedAt: now,
			})
			matched[a.UserID] = true
			matched[b.UserID] = true
			break
		}
	}

	span.SetAttributes(
		attribute.Int("matching.candidates", len(pool)),
		attribute.Int("matching.pairs", len(created)),
	)

	persisted := []domain.Partnership{}
	if len(created) > 0 {
		persisted, err = s.store.PersistPartnerships(ctx, created)
		if err != nil {
			s.metrics.IncrMatchPass("error")
			s.logger.Error("matching pass: persist failed, batch rolled back",
				zap.Int("pairs", len(created)),
				zap.Error(err),
			)
			return nil, err
		}
	}

	s.metrics.IncrMatchPass("success")
	s.metrics.AddPartnershipsCreated(len(persisted))
	s.logger.Info("matching pass complete",
		zap.Int("candidates", len(pool)),
		zap.Int("matched_pairs", len(persisted)),
		zap.Int("unmatched", len(pool)-2*len(persisted)),
	)

	return &domain.MatchRunResult{
		Candidates:   len(pool),
		MatchedPairs: len(persisted),
		Unmatched:    len(pool) - 2*len(persisted),
		Partnerships: persisted,
		RanAt:        now,
	}, nil
}

// CreatePartnership pairs two users manually (admin action). The same
// invariants apply as for the algorithmic pass: no exclusion between the
// two, and neither may already hold an active partnership.
func (s *MatchingService) CreatePartnership(ctx context.Context, user1ID, user2ID string) (*domain.Partnership, error) {
	ctx, span := matchTracer.Start(ctx, "MatchingService.CreatePartnership")
	defer span.End()

	if user1ID == "" {
		return nil, &domain.ErrValidation{Field: "user1_id", Message: "required"}
	}
	if user2ID == "" {
		return nil, &domain.ErrValidation{Field: "user2_id", Message: "required"}
	}
	if user1ID == user2ID {
		return nil, &domain.ErrValidation{Field: "user2_id", Message: "must differ from user1_id"}
	}

	edges, err := s.store.ListExclusionEdges(ctx)
	if err != nil {
		return nil, err
	}
	if buildExclusionSet(edges).blocked(user1ID, user2ID) {
		return nil, &domain.ErrConstraint{
			Constraint: "exclusion",
			Detail:     "users have excluded each other",
		}
	}

	for _, userID := range []string{user1ID, user2ID} {
		active, err := s.store.HasActivePartnership(ctx, userID)
		if err != nil {
			return nil, err
		}
		if active {
			return nil, &domain.ErrConstraint{
				Constraint: "one_active_partnership",
				Detail:     "user " + userID + " already has an active partnership",
			}
		}
	}

	now := s.now()
	persisted, err := s.store.PersistPartnerships(ctx, []domain.Partnership{{
		ID:        uuid.NewString(),
		User1ID:   user1ID,
		User2ID:   user2ID,
		StartDate: now,
		Status:    domain.PartnershipActive,
		CreatedAt: now,
	}})
	if err != nil {
		return nil, err
	}
	s.metrics.AddPartnershipsCreated(1)
	return &persisted[0], nil
}

// EndPartnership transitions an active partnership to a terminal status.
func (s *MatchingService) EndPartnership(ctx context.Context, id string, status domain.PartnershipStatus) error {
	ctx, span := matchTracer.Start(ctx, "MatchingService.EndPartnership")
	defer span.End()

	if !status.IsTerminal() {
		return &domain.ErrValidation{Field: "status", Message: "must be completed, ended_early, or cancelled"}
	}

	p, err := s.store.GetPartnership(ctx, id)
	if err != nil {
		return err
	}
	if p.Status != domain.PartnershipActive {
		return &domain.ErrConflict{Message: "partnership is not active"}
	}

	return s.store.EndPartnership(ctx, id, status, s.now())
}

// ListPartnerships returns partnerships, optionally filtered by status.
func (s *MatchingService) ListPartnerships(ctx context.Context, status domain.PartnershipStatus) ([]domain.Partnership, error) {
	ctx, span := matchTracer.Start(ctx, "MatchingService.ListPartnerships")
	defer span.End()

	return s.store.ListPartnerships(ctx, status)
}
