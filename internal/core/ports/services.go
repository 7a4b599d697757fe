package ports

import (
	"context"

	"streamledger/internal/core/domain"
)

// CreateStreamParams carries the descriptive and monetization fields for a
// new stream. Everything except QualityLevels is opaque to the core.
type CreateStreamParams struct {
	Title             string
	Description       string
	Category          string
	Rating            string
	Tags              []string
	ThumbnailRef      domain.BlobRef
	QualityLevels     []domain.QualityLevel
	RevenueSplits     map[domain.Address]uint16
	IsMonetized       bool
	SubscriptionPrice uint64
	TipEnabled        bool
}

// JoinResult is what join_stream hands back to the caller: the new session
// plus any supplied value that was not consumed.
type JoinResult struct {
	Session *domain.ViewerSession
	Refund  uint64
}

// LedgerService exposes the externally invocable entry points. Every call
// executes as one transaction: it either commits all of its effects or
// leaves every entity exactly as before.
type LedgerService interface {
	CreateStream(ctx context.Context, caller domain.Address, params CreateStreamParams) (*domain.Stream, error)
	StartStream(ctx context.Context, caller domain.Address, id domain.StreamID, manifest domain.BlobRef) (*domain.Stream, error)
	EndStream(ctx context.Context, caller domain.Address, id domain.StreamID) (*domain.Stream, error)
	StoreSegment(ctx context.Context, caller domain.Address, id domain.StreamID, segmentNumber uint64, ref domain.BlobRef) error
	JoinStream(ctx context.Context, caller domain.Address, id domain.StreamID, payment uint64) (*JoinResult, error)
	SendTip(ctx context.Context, caller domain.Address, sessionID domain.SessionID, amount uint64, message string) error
	UpdateHeartbeat(ctx context.Context, caller domain.Address, sessionID domain.SessionID, quality domain.QualityLevel) (*domain.ViewerSession, error)
	DistributeRevenue(ctx context.Context, caller domain.Address, id domain.StreamID) (uint64, error)

	// Curation hooks for out-of-scope collaborators. ArchiveStream is the
	// only way a stream reaches Archived; SetModerationScore persists the
	// externally computed 0-100 score.
	ArchiveStream(ctx context.Context, id domain.StreamID) error
	SetModerationScore(ctx context.Context, id domain.StreamID, score uint8) error

	LedgerReader
}

// LedgerReader is the read-only accessor surface: pure projections with no
// authorization checks and no side effects.
type LedgerReader interface {
	GetStream(ctx context.Context, id domain.StreamID) (*domain.Stream, error)
	GetSegment(ctx context.Context, id domain.StreamID, segmentNumber uint64) (domain.BlobRef, error)
	GetSession(ctx context.Context, id domain.SessionID) (*domain.ViewerSession, error)
	RegistrySnapshot(ctx context.Context) (*domain.Registry, error)
	StreamsByCategory(ctx context.Context, category string) ([]domain.StreamID, error)
}

// MetricsRecorder receives operational counters from the ledger service.
// Implementations must be safe for concurrent use.
type MetricsRecorder interface {
	RecordStreamCreated(category string)
	RecordStreamStarted()
	RecordStreamEnded()
	RecordViewerJoined(id domain.StreamID)
	RecordDeposit(amount uint64)
	RecordTip(amount uint64)
	RecordPayout(amount uint64)
}
