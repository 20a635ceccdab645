package port

import (
	"context"
	"time"

	"github.com/havenlabs/haven-core-go/internal/domain"
)

// EventStore reads the raw time-stamped tables the weekly review is
// computed from. Range bounds are inclusive start, inclusive end.
type EventStore interface {
	UsersCreatedInRange(ctx context.Context, start, end time.Time) ([]domain.User, error)
	UsersCreatedBefore(ctx context.Context, cutoff time.Time) ([]domain.User, error)
	PaymentsInRange(ctx context.Context, start, end time.Time) ([]domain.Payment, error)
	AllPayments(ctx context.Context) ([]domain.Payment, error)
	LoginEventsInRange(ctx context.Context, start, end time.Time) ([]domain.LoginEvent, error)
	MoodChecksInRange(ctx context.Context, start, end time.Time) ([]domain.MoodCheck, error)
	NpsResponsesInRange(ctx context.Context, start, end time.Time) ([]domain.NpsResponse, error)
}

// EbitdaSource looks up the externally-computed weekly EBITDA snapshot.
// A missing snapshot is (nil, nil), not an error.
type EbitdaSource interface {
	GetEbitdaSnapshot(ctx context.Context, weekStart string) (*domain.EbitdaSnapshot, error)
}
