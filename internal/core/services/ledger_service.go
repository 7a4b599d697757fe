package services

import (
	"context"
	"fmt"

	"streamledger/internal/core/domain"
	"streamledger/internal/core/ports"
	"streamledger/pkg/clock"
	"streamledger/pkg/tracing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ledgerService struct {
	streams  ports.StreamRepository
	sessions ports.SessionRepository
	registry ports.RegistryRepository
	events   ports.EventLog
	treasury ports.Treasury
	metrics  ports.MetricsRecorder
	clock    clock.Clock
	logger   *zap.SugaredLogger
}

// NewLedgerService wires the entry-point layer. metrics may be nil.
func NewLedgerService(
	streams ports.StreamRepository,
	sessions ports.SessionRepository,
	registry ports.RegistryRepository,
	events ports.EventLog,
	treasury ports.Treasury,
	metrics ports.MetricsRecorder,
	clk clock.Clock,
	logger *zap.SugaredLogger,
) ports.LedgerService {
	return &ledgerService{
		streams:  streams,
		sessions: sessions,
		registry: registry,
		events:   events,
		treasury: treasury,
		metrics:  metrics,
		clock:    clk,
		logger:   logger,
	}
}

func (s *ledgerService) now() int64 {
	return s.clock.Now().UnixMilli()
}

// unwindStream reverses an already committed stream mutation after a
// downstream effect failed, so a failed entry point leaves no partial
// state behind. An unwind that itself fails is logged loudly; the caller
// still returns the original error.
func (s *ledgerService) unwindStream(ctx context.Context, id domain.StreamID, effect string, fn func(*domain.Stream) error) {
	if _, err := s.streams.Mutate(ctx, id, fn); err != nil {
		s.logger.Errorw("failed to unwind stream mutation",
			"stream_id", id,
			"failed_effect", effect,
			"error", err,
		)
	}
}

func (s *ledgerService) CreateStream(ctx context.Context, caller domain.Address, params ports.CreateStreamParams) (*domain.Stream, error) {
	for _, q := range params.QualityLevels {
		if q > domain.MaxQualityLevel {
			return nil, fmt.Errorf("%w: tier %d above maximum %d", domain.ErrInvalidQuality, q, domain.MaxQualityLevel)
		}
	}

	var totalBps uint32
	for _, bps := range params.RevenueSplits {
		totalBps += uint32(bps)
	}
	if totalBps > domain.BasisPointsTotal {
		return nil, fmt.Errorf("revenue splits exceed %d basis points", domain.BasisPointsTotal)
	}

	now := s.now()
	stream := &domain.Stream{
		ID:                domain.StreamID(uuid.NewString()),
		Creator:           caller,
		Title:             params.Title,
		Description:       params.Description,
		Category:          params.Category,
		Rating:            params.Rating,
		Tags:              params.Tags,
		ThumbnailRef:      params.ThumbnailRef,
		Status:            domain.StatusCreated,
		CreatedAt:         now,
		RevenueSplits:     params.RevenueSplits,
		QualityLevels:     params.QualityLevels,
		IsMonetized:       params.IsMonetized,
		SubscriptionPrice: params.SubscriptionPrice,
		TipEnabled:        params.TipEnabled,
		ModerationScore:   domain.ModerationScoreMax,
		Segments:          make(map[uint64]domain.BlobRef),
	}

	if err := s.streams.Create(ctx, stream); err != nil {
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}
	if err := s.registry.RecordCreated(ctx, stream.Category, stream.ID); err != nil {
		if delErr := s.streams.Delete(ctx, stream.ID); delErr != nil {
			s.logger.Errorw("failed to unwind unregistered stream", "stream_id", stream.ID, "error", delErr)
		}
		return nil, fmt.Errorf("failed to register stream: %w", err)
	}

	if err := s.emit(ctx, &domain.Event{
		Type:     domain.EventStreamCreated,
		StreamID: stream.ID,
		StreamCreated: &domain.StreamCreatedPayload{
			Creator:  stream.Creator,
			Title:    stream.Title,
			Category: stream.Category,
		},
	}); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordStreamCreated(stream.Category)
	}
	s.logger.Infow("stream created",
		"stream_id", stream.ID,
		"creator", stream.Creator,
		"category", stream.Category,
		"monetized", stream.IsMonetized,
	)
	return stream, nil
}

func (s *ledgerService) StartStream(ctx context.Context, caller domain.Address, id domain.StreamID, manifest domain.BlobRef) (*domain.Stream, error) {
	now := s.now()
	stream, err := s.streams.Mutate(ctx, id, func(st *domain.Stream) error {
		if st.Creator != caller {
			return domain.ErrNotAuthorized
		}
		if st.Status != domain.StatusCreated {
			return fmt.Errorf("%w: cannot start stream in status %q", domain.ErrInvalidState, st.Status)
		}
		st.Status = domain.StatusLive
		st.StartedAt = now
		st.ManifestRef = manifest
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.registry.RecordStarted(ctx); err != nil {
		s.unwindStream(ctx, id, "record start", func(st *domain.Stream) error {
			st.Status = domain.StatusCreated
			st.StartedAt = 0
			st.ManifestRef = ""
			return nil
		})
		return nil, fmt.Errorf("failed to record start: %w", err)
	}

	if err := s.emit(ctx, &domain.Event{
		Type:     domain.EventStreamStarted,
		StreamID: id,
		StreamStarted: &domain.StreamStartedPayload{
			StartedAt:   stream.StartedAt,
			ManifestRef: stream.ManifestRef,
		},
	}); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordStreamStarted()
	}
	s.logger.Infow("stream started", "stream_id", id, "manifest", manifest)
	return stream, nil
}

func (s *ledgerService) EndStream(ctx context.Context, caller domain.Address, id domain.StreamID) (*domain.Stream, error) {
	now := s.now()
	stream, err := s.streams.Mutate(ctx, id, func(st *domain.Stream) error {
		if st.Creator != caller {
			return domain.ErrNotAuthorized
		}
		if st.Status != domain.StatusLive {
			return fmt.Errorf("%w: cannot end stream in status %q", domain.ErrInvalidState, st.Status)
		}
		// Balance and viewer count are left as a historical snapshot.
		st.Status = domain.StatusEnded
		st.EndedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.registry.RecordEnded(ctx); err != nil {
		s.unwindStream(ctx, id, "record end", func(st *domain.Stream) error {
			st.Status = domain.StatusLive
			st.EndedAt = 0
			return nil
		})
		return nil, fmt.Errorf("failed to record end: %w", err)
	}

	if err := s.emit(ctx, &domain.Event{
		Type:     domain.EventStreamEnded,
		StreamID: id,
		StreamEnded: &domain.StreamEndedPayload{
			Duration:    stream.EndedAt - stream.StartedAt,
			ViewerCount: stream.ViewerCount,
			Revenue:     stream.Revenue.Value(),
			EndedAt:     stream.EndedAt,
		},
	}); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordStreamEnded()
	}
	s.logger.Infow("stream ended",
		"stream_id", id,
		"duration_ms", stream.EndedAt-stream.StartedAt,
		"viewers", stream.ViewerCount,
		"revenue", stream.Revenue.Value(),
	)
	return stream, nil
}

// StoreSegment indexes a segment blob under its number. Duplicate numbers
// overwrite (last write wins) and there is no lifecycle guard: the creator
// may index segments before going live or after ending.
func (s *ledgerService) StoreSegment(ctx context.Context, caller domain.Address, id domain.StreamID, segmentNumber uint64, ref domain.BlobRef) error {
	_, err := s.streams.Mutate(ctx, id, func(st *domain.Stream) error {
		if st.Creator != caller {
			return domain.ErrNotAuthorized
		}
		if st.Segments == nil {
			st.Segments = make(map[uint64]domain.BlobRef)
		}
		st.Segments[segmentNumber] = ref
		return nil
	})
	if err != nil {
		return err
	}

	return s.emit(ctx, &domain.Event{
		Type:     domain.EventSegmentStored,
		StreamID: id,
		SegmentStored: &domain.SegmentStoredPayload{
			SegmentNumber: segmentNumber,
			SegmentRef:    ref,
		},
	})
}

func (s *ledgerService) JoinStream(ctx context.Context, caller domain.Address, id domain.StreamID, payment uint64) (*ports.JoinResult, error) {
	ctx, span := tracing.TraceEntryPoint(ctx, "join_stream", string(id))
	defer span.End()
	tracing.AddSpanAttributes(ctx, tracing.CallerKey.String(string(caller)), tracing.AmountKey.Int64(int64(payment)))

	now := s.now()

	var paid uint64
	var refund uint64
	_, err := s.streams.Mutate(ctx, id, func(st *domain.Stream) error {
		paid, refund = 0, 0
		if st.Status != domain.StatusLive {
			return fmt.Errorf("%w: cannot join stream in status %q", domain.ErrInvalidState, st.Status)
		}
		if st.IsMonetized && payment > 0 {
			if payment < st.SubscriptionPrice {
				return fmt.Errorf("%w: got %d, subscription price is %d", domain.ErrInsufficientPayment, payment, st.SubscriptionPrice)
			}
			if err := st.Revenue.Deposit(payment); err != nil {
				return err
			}
			paid = payment
		} else {
			// Value that is not consumed goes back to the caller intact.
			refund = payment
		}
		st.ViewerCount++
		return nil
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}

	session := &domain.ViewerSession{
		ID:            domain.SessionID(uuid.NewString()),
		StreamID:      id,
		Viewer:        caller,
		StartedAt:     now,
		LastHeartbeat: now,
		Quality:       domain.DefaultQualityLevel,
		HasPaid:       paid > 0,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		s.unwindStream(ctx, id, "session create", func(st *domain.Stream) error {
			st.ViewerCount--
			if paid > 0 {
				return st.Revenue.Withdraw(paid)
			}
			return nil
		})
		return nil, fmt.Errorf("failed to create viewer session: %w", err)
	}

	if refund > 0 {
		if err := s.treasury.Transfer(ctx, caller, refund); err != nil {
			if delErr := s.sessions.Delete(ctx, session.ID); delErr != nil {
				s.logger.Errorw("failed to unwind viewer session", "session_id", session.ID, "error", delErr)
			}
			s.unwindStream(ctx, id, "refund transfer", func(st *domain.Stream) error {
				st.ViewerCount--
				return nil
			})
			return nil, fmt.Errorf("failed to refund payment: %w", err)
		}
	}

	if err := s.emit(ctx, &domain.Event{
		Type:     domain.EventViewerJoined,
		StreamID: id,
		ViewerJoined: &domain.ViewerJoinedPayload{
			SessionID: session.ID,
			Viewer:    caller,
			Paid:      paid,
			HasPaid:   session.HasPaid,
		},
	}); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordViewerJoined(id)
		if paid > 0 {
			s.metrics.RecordDeposit(paid)
		}
	}
	s.logger.Debugw("viewer joined",
		"stream_id", id,
		"session_id", session.ID,
		"viewer", caller,
		"paid", paid,
		"refund", refund,
	)
	return &ports.JoinResult{Session: session, Refund: refund}, nil
}

func (s *ledgerService) SendTip(ctx context.Context, caller domain.Address, sessionID domain.SessionID, amount uint64, message string) error {
	if amount == 0 {
		return fmt.Errorf("%w: tip amount must be positive", domain.ErrInsufficientPayment)
	}

	ctx, span := tracing.TraceEntryPoint(ctx, "send_tip", "")
	defer span.End()
	tracing.AddSpanAttributes(ctx, tracing.SessionIDKey.String(string(sessionID)), tracing.AmountKey.Int64(int64(amount)))

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Viewer != caller {
		return domain.ErrNotAuthorized
	}

	stream, err := s.streams.Mutate(ctx, session.StreamID, func(st *domain.Stream) error {
		if !st.TipEnabled {
			return fmt.Errorf("%w: tips are disabled for this stream", domain.ErrInvalidState)
		}
		return st.Revenue.Deposit(amount)
	})
	if err != nil {
		return err
	}

	if _, err := s.sessions.Mutate(ctx, sessionID, func(sess *domain.ViewerSession) error {
		sess.TipsSent += amount
		return nil
	}); err != nil {
		return err
	}

	if err := s.emit(ctx, &domain.Event{
		Type:     domain.EventTipSent,
		StreamID: session.StreamID,
		TipSent: &domain.TipSentPayload{
			Sender:  caller,
			Creator: stream.Creator,
			Amount:  amount,
			Message: message,
			SentAt:  s.now(),
		},
	}); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordTip(amount)
	}
	return nil
}

// UpdateHeartbeat accumulates watch time since the previous heartbeat. The
// elapsed delta is intentionally unclamped.
func (s *ledgerService) UpdateHeartbeat(ctx context.Context, caller domain.Address, sessionID domain.SessionID, quality domain.QualityLevel) (*domain.ViewerSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	stream, err := s.streams.GetByID(ctx, session.StreamID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	return s.sessions.Mutate(ctx, sessionID, func(sess *domain.ViewerSession) error {
		if sess.Viewer != caller {
			return domain.ErrNotAuthorized
		}
		if !stream.SupportsQuality(quality) {
			return fmt.Errorf("%w: %s is not offered by stream %s", domain.ErrInvalidQuality, quality, stream.ID)
		}
		sess.TotalWatchTime += now - sess.LastHeartbeat
		sess.LastHeartbeat = now
		sess.Quality = quality
		return nil
	})
}

// DistributeRevenue pays the whole balance to the creator. The split table
// is deliberately not consulted; proportional payout is still an open
// product decision and the table rides along untouched until then.
func (s *ledgerService) DistributeRevenue(ctx context.Context, caller domain.Address, id domain.StreamID) (uint64, error) {
	ctx, span := tracing.TraceEntryPoint(ctx, "distribute_revenue", string(id))
	defer span.End()

	var amount uint64
	stream, err := s.streams.Mutate(ctx, id, func(st *domain.Stream) error {
		if st.Creator != caller {
			return domain.ErrNotAuthorized
		}
		amount = st.Revenue.WithdrawAll()
		return nil
	})
	if err != nil {
		return 0, err
	}
	if amount == 0 {
		// Nothing to pay out; a successful no-op.
		return 0, nil
	}

	if err := s.treasury.Transfer(ctx, stream.Creator, amount); err != nil {
		// The withdrawal has already committed; put the funds back so a
		// failed transfer never destroys revenue.
		s.unwindStream(ctx, id, "revenue transfer", func(st *domain.Stream) error {
			return st.Revenue.Deposit(amount)
		})
		tracing.RecordError(ctx, err)
		return 0, fmt.Errorf("failed to transfer revenue: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordPayout(amount)
	}
	s.logger.Infow("revenue distributed", "stream_id", id, "creator", stream.Creator, "amount", amount)
	return amount, nil
}

// ArchiveStream moves an ended stream into the archive. This is the
// curation hook; it is not reachable through the public entry points and
// carries no creator check.
func (s *ledgerService) ArchiveStream(ctx context.Context, id domain.StreamID) error {
	_, err := s.streams.Mutate(ctx, id, func(st *domain.Stream) error {
		if st.Status != domain.StatusEnded {
			return fmt.Errorf("%w: only ended streams can be archived", domain.ErrInvalidState)
		}
		st.Status = domain.StatusArchived
		return nil
	})
	return err
}

// SetModerationScore persists the externally computed score, clamped to the
// 0-100 range. The scoring algorithm itself lives outside the core.
func (s *ledgerService) SetModerationScore(ctx context.Context, id domain.StreamID, score uint8) error {
	if score > domain.ModerationScoreMax {
		score = domain.ModerationScoreMax
	}
	_, err := s.streams.Mutate(ctx, id, func(st *domain.Stream) error {
		st.ModerationScore = score
		return nil
	})
	return err
}

func (s *ledgerService) GetStream(ctx context.Context, id domain.StreamID) (*domain.Stream, error) {
	return s.streams.GetByID(ctx, id)
}

func (s *ledgerService) GetSegment(ctx context.Context, id domain.StreamID, segmentNumber uint64) (domain.BlobRef, error) {
	stream, err := s.streams.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	ref, ok := stream.Segments[segmentNumber]
	if !ok {
		return "", fmt.Errorf("%w: stream %s has no segment %d", domain.ErrSegmentNotFound, id, segmentNumber)
	}
	return ref, nil
}

func (s *ledgerService) GetSession(ctx context.Context, id domain.SessionID) (*domain.ViewerSession, error) {
	return s.sessions.GetByID(ctx, id)
}

func (s *ledgerService) RegistrySnapshot(ctx context.Context) (*domain.Registry, error) {
	return s.registry.Snapshot(ctx)
}

func (s *ledgerService) StreamsByCategory(ctx context.Context, category string) ([]domain.StreamID, error) {
	return s.registry.CategoryStreams(ctx, category)
}

func (s *ledgerService) emit(ctx context.Context, event *domain.Event) error {
	event.ID = uuid.NewString()
	event.EmittedAt = s.now()
	if err := s.events.Append(ctx, event); err != nil {
		return fmt.Errorf("failed to append %s event: %w", event.Type, err)
	}
	return nil
}
