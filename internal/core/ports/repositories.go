package ports

import (
	"context"

	"streamledger/internal/core/domain"
)

// StreamRepository is the id-keyed arena for Stream aggregates.
type StreamRepository interface {
	Create(ctx context.Context, stream *domain.Stream) error
	GetByID(ctx context.Context, id domain.StreamID) (*domain.Stream, error)

	// Mutate runs fn on a private copy of the stream and commits the copy
	// only when fn returns nil. A non-nil error from fn leaves the stored
	// aggregate untouched, which is what makes entry points all-or-nothing.
	Mutate(ctx context.Context, id domain.StreamID, fn func(*domain.Stream) error) (*domain.Stream, error)

	// Delete removes the stream. Deleting an absent id is not an error;
	// the service uses Delete to unwind a Create whose follow-up effects
	// failed.
	Delete(ctx context.Context, id domain.StreamID) error
}

// SessionRepository is the arena for viewer sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.ViewerSession) error
	GetByID(ctx context.Context, id domain.SessionID) (*domain.ViewerSession, error)
	Mutate(ctx context.Context, id domain.SessionID, fn func(*domain.ViewerSession) error) (*domain.ViewerSession, error)

	// Delete removes the session. Deleting an absent id is not an error.
	Delete(ctx context.Context, id domain.SessionID) error
}

// RegistryRepository guards the singleton registry. Implementations must
// serialize mutations so total/active never diverge from the true counts.
// The Record* operations cannot fail for domain reasons; they are called
// only after the owning stream transition has committed, and an
// infrastructure failure makes the caller unwind that transition.
type RegistryRepository interface {
	Snapshot(ctx context.Context) (*domain.Registry, error)

	// RecordCreated increments total_streams and appends id to the lazily
	// created category bucket, atomically.
	RecordCreated(ctx context.Context, category string, id domain.StreamID) error
	RecordStarted(ctx context.Context) error
	RecordEnded(ctx context.Context) error

	CategoryStreams(ctx context.Context, category string) ([]domain.StreamID, error)
}

// EventLog is the append-only notification sink consumed by out-of-scope
// collaborators. Appends must preserve emission order.
type EventLog interface {
	Append(ctx context.Context, event *domain.Event) error
}

// Treasury abstracts the host ledger's native-currency transfer used by
// revenue distribution and join refunds.
type Treasury interface {
	Transfer(ctx context.Context, to domain.Address, amount uint64) error
}
