package services

import (
	"context"
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

const (
	creator = domain.Address("0xc0ffee")
	viewer  = domain.Address("0xdecade")
	other   = domain.Address("0xfacade")
)

type fixture struct {
	ledger   ports.LedgerService
	clock    *clock.Manual
	treasury *memory.MemoryTreasury
	events   *events.Log
	registry ports.RegistryRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := events.NewLog()
	treasury := memory.NewMemoryTreasury()
	registry := memory.NewMemoryRegistryRepository()
	clk := clock.NewManual(time.UnixMilli(1_700_000_000_000))

	ledger := NewLedgerService(
		memory.NewMemoryStreamRepository(),
		memory.NewMemorySessionRepository(),
		registry,
		log,
		treasury,
		nil,
		clk,
		zaptest.NewLogger(t).Sugar(),
	)
	return &fixture{
		ledger:   ledger,
		clock:    clk,
		treasury: treasury,
		events:   log,
		registry: registry,
	}
}

func (f *fixture) createStream(t *testing.T, params ports.CreateStreamParams) *domain.Stream {
	t.Helper()
	if params.Title == "" {
		params.Title = "morning show"
	}
	if params.Category == "" {
		params.Category = "music"
	}
	if params.QualityLevels == nil {
		params.QualityLevels = []domain.QualityLevel{domain.Quality720p, domain.Quality1080p}
	}
	stream, err := f.ledger.CreateStream(context.Background(), creator, params)
	require.NoError(t, err)
	return stream
}

func (f *fixture) createLiveStream(t *testing.T, params ports.CreateStreamParams) *domain.Stream {
	t.Helper()
	stream := f.createStream(t, params)
	live, err := f.ledger.StartStream(context.Background(), creator, stream.ID, "ipfs://manifest")
	require.NoError(t, err)
	return live
}

func TestCreateStream_Defaults(t *testing.T) {
	f := newFixture(t)

	stream := f.createStream(t, ports.CreateStreamParams{Category: "gaming"})

	assert.NotEmpty(t, stream.ID)
	assert.Equal(t, creator, stream.Creator)
	assert.Equal(t, domain.StatusCreated, stream.Status)
	assert.Equal(t, int64(1_700_000_000_000), stream.CreatedAt)
	assert.Zero(t, stream.StartedAt)
	assert.Zero(t, stream.EndedAt)
	assert.Zero(t, stream.ViewerCount)
	assert.Zero(t, stream.Revenue.Value())
	assert.Equal(t, uint8(domain.ModerationScoreMax), stream.ModerationScore)

	ids, err := f.ledger.StreamsByCategory(context.Background(), "gaming")
	require.NoError(t, err)
	assert.Equal(t, []domain.StreamID{stream.ID}, ids)

	reg, err := f.ledger.RegistrySnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), reg.TotalStreams)
	assert.Zero(t, reg.ActiveStreams)

	entries := f.events.Events(stream.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.EventStreamCreated, entries[0].Type)
	assert.Equal(t, creator, entries[0].StreamCreated.Creator)
}

func TestCreateStream_QualityLadderBounds(t *testing.T) {
	f := newFixture(t)

	// The top rung itself is acceptable.
	stream := f.createStream(t, ports.CreateStreamParams{
		QualityLevels: []domain.QualityLevel{domain.Quality240p, domain.MaxQualityLevel},
	})
	assert.True(t, stream.SupportsQuality(domain.Quality2160p))

	_, err := f.ledger.CreateStream(context.Background(), creator, ports.CreateStreamParams{
		Title:         "too high",
		Category:      "music",
		QualityLevels: []domain.QualityLevel{domain.MaxQualityLevel + 1},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuality)
}

func TestCreateStream_SplitsBounded(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.CreateStream(context.Background(), creator, ports.CreateStreamParams{
		Title:         "over-allocated",
		Category:      "music",
		QualityLevels: []domain.QualityLevel{domain.Quality720p},
		RevenueSplits: map[domain.Address]uint16{
			"0xaa": 6000,
			"0xbb": 5000,
		},
	})
	require.Error(t, err)
}

func TestLifecycle_InvalidTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("start twice", func(t *testing.T) {
		f := newFixture(t)
		stream := f.createLiveStream(t, ports.CreateStreamParams{})
		_, err := f.ledger.StartStream(ctx, creator, stream.ID, "ipfs://again")
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("end before start", func(t *testing.T) {
		f := newFixture(t)
		stream := f.createStream(t, ports.CreateStreamParams{})
		_, err := f.ledger.EndStream(ctx, creator, stream.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("join before live", func(t *testing.T) {
		f := newFixture(t)
		stream := f.createStream(t, ports.CreateStreamParams{})
		_, err := f.ledger.JoinStream(ctx, viewer, stream.ID, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("join after end", func(t *testing.T) {
		f := newFixture(t)
		stream := f.createLiveStream(t, ports.CreateStreamParams{})
		_, err := f.ledger.EndStream(ctx, creator, stream.ID)
		require.NoError(t, err)
		_, err = f.ledger.JoinStream(ctx, viewer, stream.ID, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("archive before end", func(t *testing.T) {
		f := newFixture(t)
		stream := f.createLiveStream(t, ports.CreateStreamParams{})
		err := f.ledger.ArchiveStream(ctx, stream.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})
}

func TestStartStream_CreatorOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stream := f.createStream(t, ports.CreateStreamParams{})

	_, err := f.ledger.StartStream(ctx, other, stream.ID, "ipfs://manifest")
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	// The rejected call must leave no trace.
	got, err := f.ledger.GetStream(ctx, stream.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCreated, got.Status)
	assert.Zero(t, got.StartedAt)

	reg, err := f.ledger.RegistrySnapshot(ctx)
	require.NoError(t, err)
	assert.Zero(t, reg.ActiveStreams)
}

func TestJoinStream_MonetizedMergesPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stream := f.createLiveStream(t, ports.CreateStreamParams{
		IsMonetized:       true,
		SubscriptionPrice: 10,
	})

	result, err := f.ledger.JoinStream(ctx, viewer, stream.ID, 15)
	require.NoError(t, err)
	assert.True(t, result.Session.HasPaid)
	assert.Equal(t, domain.DefaultQualityLevel, result.Session.Quality)
	assert.Zero(t, result.Refund)

	got, err := f.ledger.GetStream(ctx, stream.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(15), got.Revenue.Value())
	assert.Equal(t, uint64(1), got.ViewerCount)
	assert.Zero(t, f.treasury.BalanceOf(viewer))
}

func TestJoinStream_InsufficientPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stream := f.createLiveStream(t, ports.CreateStreamParams{
		IsMonetized:       true,
		SubscriptionPrice: 10,
	})

	_, err := f.ledger.JoinStream(ctx, viewer, stream.ID, 9)
	assert.ErrorIs(t, err, domain.ErrInsufficientPayment)

	got, err := f.ledger.GetStream(ctx, stream.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Revenue.Value())
	assert.Zero(t, got.ViewerCount)
}

func TestJoinStream_UnconsumedValueRefunded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("free stream", func(t *testing.T) {
		stream := f.createLiveStream(t, ports.CreateStreamParams{})
		result, err := f.ledger.JoinStream(ctx, viewer, stream.ID, 7)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), result.Refund)
		assert.False(t, result.Session.HasPaid)
		assert.Equal(t, uint64(7), f.treasury.BalanceOf(viewer))

		got, err := f.ledger.GetStream(ctx, stream.ID)
		require.NoError(t, err)
		assert.Zero(t, got.Revenue.Value())
	})

	t.Run("monetized stream without payment", func(t *testing.T) {
		stream := f.createLiveStream(t, ports.CreateStreamParams{
			Title:             "pay if you like",
			IsMonetized:       true,
			SubscriptionPrice: 10,
		})
		result, err := f.ledger.JoinStream(ctx, viewer, stream.ID, 0)
		require.NoError(t, err)
		assert.False(t, result.Session.HasPaid)
		assert.Zero(t, result.Refund)
	})
}

func TestSendTip(t *testing.T) {
	ctx := context.Background()

	t.Run("accumulates on stream and session", func(t *testing.T) {
		f := newFixture(t)
		stream := f.createLiveStream(t, ports.CreateStreamParams{TipEnabled: true})
		result, err := f.ledger.JoinStream(ctx, viewer, stream.ID, 0)
		require.NoError(t, err)

		require.NoError(t, f.ledger.SendTip(ctx, viewer, result.Session.ID, 5, "great set"))
		require.NoError(t, f.ledger.SendTip(ctx, viewer, result.Session.ID, 3, ""))

		got, err := f.ledger.GetStream(ctx, stream.ID)
		require.NoError(t, err)
		assert.Equal(t, uint64(8), got.Revenue.Value())

		sess, err := f.ledger.GetSession(ctx, result.Session.ID)
		require.NoError(t, err)
		assert.Equal(t, uint64(8), sess.TipsSent)
	})

	t.Run("zero amount", func(t *testing.T) {
		f := newFixture(t)
		stream := f.createLiveStream(t, ports.CreateStreamParams{TipEnabled: true})
		result, err := f.ledger.JoinStream(ctx, viewer, stream.ID, 0)
		require.NoError(t, err)

		err = f.ledger.SendTip(ctx, viewer, result.Session.ID, 0, "")
		assert.ErrorIs(t, err, domain.ErrInsufficientPayment)
	})

	t.Run("tips disabled", func(t *testing.T) {
		f := newFixture(t)
		stream := f.createLiveStream(t, ports.CreateStreamParams{})
		result, err := f.ledger.JoinStream(ctx, viewer, stream.ID, 0)
		require.NoError(t, err)

		err = f.ledger.SendTip(ctx, viewer, result.Session.ID, 5, "")
		assert.ErrorIs(t, err, domain.ErrInvalidState)

		sess, err := f.ledger.GetSession(ctx, result.Session.ID)
		require.NoError(t, err)
		assert.Zero(t, sess.TipsSent)
	})

	t.Run("session owner only", func(t *testing.T) {
		f := newFixture(t)
		stream := f.createLiveStream(t, ports.CreateStreamParams{TipEnabled: true})
		result, err := f.ledger.JoinStream(ctx, viewer, stream.ID, 0)
		require.NoError(t, err)

		err = f.ledger.SendTip(ctx, other, result.Session.ID, 5, "")
		assert.ErrorIs(t, err, domain.ErrNotAuthorized)
	})
}

func TestUpdateHeartbeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stream := f.createLiveStream(t, ports.CreateStreamParams{
		QualityLevels: []domain.QualityLevel{domain.Quality720p, domain.Quality1080p},
	})
	result, err := f.ledger.JoinStream(ctx, viewer, stream.ID, 0)
	require.NoError(t, err)

	f.clock.Advance(30 * time.Second)
	sess, err := f.ledger.UpdateHeartbeat(ctx, viewer, result.Session.ID, domain.Quality1080p)
	require.NoError(t, err)
	assert.Equal(t, int64(30_000), sess.TotalWatchTime)
	assert.Equal(t, domain.Quality1080p, sess.Quality)

	f.clock.Advance(15 * time.Second)
	sess, err = f.ledger.UpdateHeartbeat(ctx, viewer, result.Session.ID, domain.Quality720p)
	require.NoError(t, err)
	assert.Equal(t, int64(45_000), sess.TotalWatchTime)

	t.Run("unsupported quality", func(t *testing.T) {
		f.clock.Advance(10 * time.Second)
		_, err := f.ledger.UpdateHeartbeat(ctx, viewer, result.Session.ID, domain.Quality2160p)
		assert.ErrorIs(t, err, domain.ErrInvalidQuality)

		// Rejected heartbeat accumulates nothing.
		sess, err := f.ledger.GetSession(ctx, result.Session.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(45_000), sess.TotalWatchTime)
		assert.Equal(t, domain.Quality720p, sess.Quality)
	})

	t.Run("session owner only", func(t *testing.T) {
		_, err := f.ledger.UpdateHeartbeat(ctx, other, result.Session.ID, domain.Quality720p)
		assert.ErrorIs(t, err, domain.ErrNotAuthorized)
	})
}

func TestDistributeRevenue(t *testing.T) {
	ctx := context.Background()

	t.Run("pays creator and empties balance", func(t *testing.T) {
		f := newFixture(t)
		stream := f.createLiveStream(t, ports.CreateStreamParams{
			IsMonetized:       true,
			SubscriptionPrice: 10,
		})
		_, err := f.ledger.JoinStream(ctx, viewer, stream.ID, 10)
		require.NoError(t, err)

		amount, err := f.ledger.DistributeRevenue(ctx, creator, stream.ID)
		require.NoError(t, err)
		assert.Equal(t, uint64(10), amount)
		assert.Equal(t, uint64(10), f.treasury.BalanceOf(creator))

		got, err := f.ledger.GetStream(ctx, stream.ID)
		require.NoError(t, err)
		assert.Zero(t, got.Revenue.Value())
	})

	t.Run("zero balance is a no-op", func(t *testing.T) {
		f := newFixture(t)
		stream := f.createLiveStream(t, ports.CreateStreamParams{})

		amount, err := f.ledger.DistributeRevenue(ctx, creator, stream.ID)
		require.NoError(t, err)
		assert.Zero(t, amount)
		assert.Zero(t, f.treasury.BalanceOf(creator))
	})

	t.Run("creator only", func(t *testing.T) {
		f := newFixture(t)
		stream := f.createLiveStream(t, ports.CreateStreamParams{
			IsMonetized:       true,
			SubscriptionPrice: 10,
		})
		_, err := f.ledger.JoinStream(ctx, viewer, stream.ID, 10)
		require.NoError(t, err)

		_, err = f.ledger.DistributeRevenue(ctx, other, stream.ID)
		assert.ErrorIs(t, err, domain.ErrNotAuthorized)

		got, err := f.ledger.GetStream(ctx, stream.ID)
		require.NoError(t, err)
		assert.Equal(t, uint64(10), got.Revenue.Value())
	})
}

func TestStoreSegment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stream := f.createLiveStream(t, ports.CreateStreamParams{})

	require.NoError(t, f.ledger.StoreSegment(ctx, creator, stream.ID, 1, "ipfs://seg-1"))
	require.NoError(t, f.ledger.StoreSegment(ctx, creator, stream.ID, 2, "ipfs://seg-2"))

	// Duplicate numbers overwrite, last write wins.
	require.NoError(t, f.ledger.StoreSegment(ctx, creator, stream.ID, 1, "ipfs://seg-1-fixed"))

	ref, err := f.ledger.GetSegment(ctx, stream.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.BlobRef("ipfs://seg-1-fixed"), ref)

	_, err = f.ledger.GetSegment(ctx, stream.ID, 99)
	assert.ErrorIs(t, err, domain.ErrSegmentNotFound)

	err = f.ledger.StoreSegment(ctx, other, stream.ID, 3, "ipfs://rogue")
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
}

func TestRegistryTracksLiveStreams(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.createStream(t, ports.CreateStreamParams{Title: "a"})
	b := f.createStream(t, ports.CreateStreamParams{Title: "b"})
	f.createStream(t, ports.CreateStreamParams{Title: "c"})

	_, err := f.ledger.StartStream(ctx, creator, a.ID, "ipfs://a")
	require.NoError(t, err)
	_, err = f.ledger.StartStream(ctx, creator, b.ID, "ipfs://b")
	require.NoError(t, err)
	_, err = f.ledger.EndStream(ctx, creator, a.ID)
	require.NoError(t, err)

	reg, err := f.ledger.RegistrySnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), reg.TotalStreams)
	assert.Equal(t, uint64(1), reg.ActiveStreams)
}

func TestModerationScoreClamped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stream := f.createStream(t, ports.CreateStreamParams{})

	require.NoError(t, f.ledger.SetModerationScore(ctx, stream.ID, 250))
	got, err := f.ledger.GetStream(ctx, stream.ID)
	require.NoError(t, err)
	assert.Equal(t, uint8(domain.ModerationScoreMax), got.ModerationScore)

	require.NoError(t, f.ledger.SetModerationScore(ctx, stream.ID, 42))
	got, err = f.ledger.GetStream(ctx, stream.ID)
	require.NoError(t, err)
	assert.Equal(t, uint8(42), got.ModerationScore)
}

// Full accounting walk: create, start, paid join, tip, end, distribute.
func TestLedgerEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stream := f.createStream(t, ports.CreateStreamParams{
		Title:             "launch party",
		Category:          "music",
		QualityLevels:     []domain.QualityLevel{domain.Quality720p, domain.Quality1080p},
		IsMonetized:       true,
		SubscriptionPrice: 10,
		TipEnabled:        true,
	})

	f.clock.Advance(time.Minute)
	_, err := f.ledger.StartStream(ctx, creator, stream.ID, "ipfs://manifest")
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	joined, err := f.ledger.JoinStream(ctx, viewer, stream.ID, 15)
	require.NoError(t, err)
	assert.True(t, joined.Session.HasPaid)

	got, err := f.ledger.GetStream(ctx, stream.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(15), got.Revenue.Value())

	require.NoError(t, f.ledger.SendTip(ctx, viewer, joined.Session.ID, 5, "keep going"))

	got, err = f.ledger.GetStream(ctx, stream.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), got.Revenue.Value())

	f.clock.Advance(2 * time.Minute)
	ended, err := f.ledger.EndStream(ctx, creator, stream.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEnded, ended.Status)
	assert.Equal(t, uint64(20), ended.Revenue.Value())
	assert.Equal(t, uint64(1), ended.ViewerCount)

	amount, err := f.ledger.DistributeRevenue(ctx, creator, stream.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), amount)
	assert.Equal(t, uint64(20), f.treasury.BalanceOf(creator))

	got, err = f.ledger.GetStream(ctx, stream.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Revenue.Value())

	require.NoError(t, f.ledger.ArchiveStream(ctx, stream.ID))
	got, err = f.ledger.GetStream(ctx, stream.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusArchived, got.Status)

	// The notification log captured the whole history in emission order.
	var types []domain.EventType
	for _, e := range f.events.Events(stream.ID) {
		types = append(types, e.Type)
	}
	assert.Equal(t, []domain.EventType{
		domain.EventStreamCreated,
		domain.EventStreamStarted,
		domain.EventViewerJoined,
		domain.EventTipSent,
		domain.EventStreamEnded,
	}, types)

	endedEvent := f.events.Events(stream.ID)[4]
	require.NotNil(t, endedEvent.StreamEnded)
	assert.Equal(t, uint64(20), endedEvent.StreamEnded.Revenue)
	assert.Equal(t, uint64(1), endedEvent.StreamEnded.ViewerCount)
	assert.Equal(t, int64(3*time.Minute/time.Millisecond), endedEvent.StreamEnded.Duration)
}

func TestUnknownStreamAndSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.GetStream(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrStreamNotFound)

	_, err = f.ledger.JoinStream(ctx, viewer, "nope", 0)
	assert.ErrorIs(t, err, domain.ErrStreamNotFound)

	_, err = f.ledger.GetSession(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	err = f.ledger.SendTip(ctx, viewer, "nope", 5, "")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
