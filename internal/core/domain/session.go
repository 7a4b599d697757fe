package domain

// ViewerSession is the per-(viewer, stream) engagement and payment record.
// One is created for every join; only the owning viewer may mutate it.
type ViewerSession struct {
	ID       SessionID
	StreamID StreamID
	Viewer   Address

	StartedAt     int64
	LastHeartbeat int64

	// TotalWatchTime accumulates heartbeat deltas in milliseconds and is
	// monotonically non-decreasing.
	TotalWatchTime int64

	Quality QualityLevel

	// HasPaid is set at most once, when a subscription payment is merged
	// into the stream balance at join time.
	HasPaid bool

	// TipsSent is the cumulative amount tipped through this session.
	TipsSent uint64
}

func (s *ViewerSession) Clone() *ViewerSession {
	cp := *s
	return &cp
}
