package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"streamledger/internal/core/domain"
	"streamledger/internal/core/ports"
	"streamledger/internal/infrastructure/events"
	"streamledger/internal/infrastructure/repositories/memory"
	"streamledger/pkg/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// stubTreasury fails every transfer while err is set.
type stubTreasury struct {
	err error
}

func (t *stubTreasury) Transfer(ctx context.Context, to domain.Address, amount uint64) error {
	return t.err
}

// flakyRegistry passes through to a real registry until a fail flag is set.
type flakyRegistry struct {
	ports.RegistryRepository
	failCreated bool
	failStarted bool
	failEnded   bool
}

func (r *flakyRegistry) RecordCreated(ctx context.Context, category string, id domain.StreamID) error {
	if r.failCreated {
		return errors.New("registry unavailable")
	}
	return r.RegistryRepository.RecordCreated(ctx, category, id)
}

func (r *flakyRegistry) RecordStarted(ctx context.Context) error {
	if r.failStarted {
		return errors.New("registry unavailable")
	}
	return r.RegistryRepository.RecordStarted(ctx)
}

func (r *flakyRegistry) RecordEnded(ctx context.Context) error {
	if r.failEnded {
		return errors.New("registry unavailable")
	}
	return r.RegistryRepository.RecordEnded(ctx)
}

type flakySessions struct {
	ports.SessionRepository
	failCreate bool
}

func (r *flakySessions) Create(ctx context.Context, session *domain.ViewerSession) error {
	if r.failCreate {
		return errors.New("session store unavailable")
	}
	return r.SessionRepository.Create(ctx, session)
}

type faultFixture struct {
	ledger   ports.LedgerService
	registry *flakyRegistry
	sessions *flakySessions
	treasury *stubTreasury
	events   *events.Log
}

func newFaultFixture(t *testing.T) *faultFixture {
	t.Helper()

	log := events.NewLog()
	registry := &flakyRegistry{RegistryRepository: memory.NewMemoryRegistryRepository()}
	sessions := &flakySessions{SessionRepository: memory.NewMemorySessionRepository()}
	treasury := &stubTreasury{}

	ledger := NewLedgerService(
		memory.NewMemoryStreamRepository(),
		sessions,
		registry,
		log,
		treasury,
		nil,
		clock.NewManual(time.UnixMilli(1_700_000_000_000)),
		zaptest.NewLogger(t).Sugar(),
	)
	return &faultFixture{
		ledger:   ledger,
		registry: registry,
		sessions: sessions,
		treasury: treasury,
		events:   log,
	}
}

func (f *faultFixture) liveStream(t *testing.T, params ports.CreateStreamParams) *domain.Stream {
	t.Helper()
	if params.Title == "" {
		params.Title = "fault drill"
	}
	if params.Category == "" {
		params.Category = "music"
	}
	if params.QualityLevels == nil {
		params.QualityLevels = []domain.QualityLevel{domain.Quality720p}
	}
	stream, err := f.ledger.CreateStream(context.Background(), creator, params)
	require.NoError(t, err)
	live, err := f.ledger.StartStream(context.Background(), creator, stream.ID, "ipfs://manifest")
	require.NoError(t, err)
	return live
}

func TestCreateStream_RegistryFailureLeavesNothingBehind(t *testing.T) {
	f := newFaultFixture(t)
	f.registry.failCreated = true

	_, err := f.ledger.CreateStream(context.Background(), creator, ports.CreateStreamParams{
		Title:         "doomed",
		Category:      "music",
		QualityLevels: []domain.QualityLevel{domain.Quality720p},
	})
	require.Error(t, err)

	reg, regErr := f.ledger.RegistrySnapshot(context.Background())
	require.NoError(t, regErr)
	assert.Zero(t, reg.TotalStreams)
	assert.Empty(t, f.events.Events(""))
}

func TestStartStream_RegistryFailureRevertsTransition(t *testing.T) {
	f := newFaultFixture(t)
	stream, err := f.ledger.CreateStream(context.Background(), creator, ports.CreateStreamParams{
		Title:         "fault drill",
		Category:      "music",
		QualityLevels: []domain.QualityLevel{domain.Quality720p},
	})
	require.NoError(t, err)

	f.registry.failStarted = true
	_, err = f.ledger.StartStream(context.Background(), creator, stream.ID, "ipfs://manifest")
	require.Error(t, err)

	got, err := f.ledger.GetStream(context.Background(), stream.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCreated, got.Status)
	assert.Zero(t, got.StartedAt)
	assert.Empty(t, got.ManifestRef)

	reg, err := f.ledger.RegistrySnapshot(context.Background())
	require.NoError(t, err)
	assert.Zero(t, reg.ActiveStreams)

	// The registry recovers; the same call succeeds afterwards.
	f.registry.failStarted = false
	live, err := f.ledger.StartStream(context.Background(), creator, stream.ID, "ipfs://manifest")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLive, live.Status)
}

func TestEndStream_RegistryFailureRevertsTransition(t *testing.T) {
	f := newFaultFixture(t)
	stream := f.liveStream(t, ports.CreateStreamParams{})

	f.registry.failEnded = true
	_, err := f.ledger.EndStream(context.Background(), creator, stream.ID)
	require.Error(t, err)

	got, err := f.ledger.GetStream(context.Background(), stream.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLive, got.Status)
	assert.Zero(t, got.EndedAt)

	reg, err := f.ledger.RegistrySnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), reg.ActiveStreams)
}

func TestJoinStream_SessionStoreFailureRevertsPayment(t *testing.T) {
	f := newFaultFixture(t)
	stream := f.liveStream(t, ports.CreateStreamParams{
		IsMonetized:       true,
		SubscriptionPrice: 10,
	})

	f.sessions.failCreate = true
	_, err := f.ledger.JoinStream(context.Background(), viewer, stream.ID, 15)
	require.Error(t, err)

	got, err := f.ledger.GetStream(context.Background(), stream.ID)
	require.NoError(t, err)
	assert.Zero(t, got.ViewerCount)
	assert.Zero(t, got.Revenue.Value())

	entries := f.events.Events(stream.ID)
	require.Len(t, entries, 2, "no viewer joined event on a failed join")
	assert.Equal(t, domain.EventStreamStarted, entries[1].Type)
}

func TestJoinStream_RefundFailureRevertsJoin(t *testing.T) {
	f := newFaultFixture(t)
	stream := f.liveStream(t, ports.CreateStreamParams{})

	f.treasury.err = errors.New("transfer rejected")
	result, err := f.ledger.JoinStream(context.Background(), viewer, stream.ID, 7)
	require.Error(t, err)
	assert.Nil(t, result)

	got, err := f.ledger.GetStream(context.Background(), stream.ID)
	require.NoError(t, err)
	assert.Zero(t, got.ViewerCount)

	entries := f.events.Events(stream.ID)
	require.Len(t, entries, 2, "no viewer joined event on a failed join")
	assert.Equal(t, domain.EventStreamStarted, entries[1].Type)
}

func TestDistributeRevenue_TransferFailureKeepsBalance(t *testing.T) {
	f := newFaultFixture(t)
	stream := f.liveStream(t, ports.CreateStreamParams{
		IsMonetized:       true,
		SubscriptionPrice: 10,
	})

	_, err := f.ledger.JoinStream(context.Background(), viewer, stream.ID, 10)
	require.NoError(t, err)
	_, err = f.ledger.EndStream(context.Background(), creator, stream.ID)
	require.NoError(t, err)

	f.treasury.err = errors.New("transfer rejected")
	_, err = f.ledger.DistributeRevenue(context.Background(), creator, stream.ID)
	require.Error(t, err)

	got, err := f.ledger.GetStream(context.Background(), stream.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), got.Revenue.Value(), "failed transfer must not destroy revenue")

	// Once the treasury recovers the full balance pays out.
	f.treasury.err = nil
	paid, err := f.ledger.DistributeRevenue(context.Background(), creator, stream.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), paid)

	got, err = f.ledger.GetStream(context.Background(), stream.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Revenue.Value())
}
