package port

import (
	"context"
	"time"

	"github.com/havenlabs/haven-core-go/internal/domain"
)

// MatchingStore is the persistence collaborator of the matching engine.
type MatchingStore interface {
	// ListActiveUnpartneredProfiles returns active profiles whose user has
	// no active partnership.
	ListActiveUnpartneredProfiles(ctx context.Context) ([]domain.Profile, error)

	// ListExclusionEdges returns all directed exclusion edges.
	ListExclusionEdges(ctx context.Context) ([]domain.Exclusion, error)

	// PersistPartnerships writes a batch atomically: either every
	// partnership is committed or none is. A write that would give any
	// user a second active partnership fails the whole batch with
	// *domain.ErrConstraint.
	PersistPartnerships(ctx context.Context, partnerships []domain.Partnership) ([]domain.Partnership, error)

	ListPartnerships(ctx context.Context, status domain.PartnershipStatus) ([]domain.Partnership, error)
	GetPartnership(ctx context.Context, id string) (*domain.Partnership, error)
	HasActivePartnership(ctx context.Context, userID string) (bool, error)

	// EndPartnership transitions an active partnership to a terminal status.
	EndPartnership(ctx context.Context, id string, status domain.PartnershipStatus, endedAt time.Time) error
}
