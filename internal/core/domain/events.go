package domain

// EventType identifies one kind of ledger notification.
type EventType string

const (
	EventStreamCreated EventType = "stream.created"
	EventStreamStarted EventType = "stream.started"
	EventStreamEnded   EventType = "stream.ended"
	EventSegmentStored EventType = "segment.stored"
	EventViewerJoined  EventType = "viewer.joined"
	EventTipSent       EventType = "tip.sent"
)

// Event is one entry of the append-only notification log. Exactly one of
// the payload pointers is set, matching Type. Events exist for downstream
// consumers; nothing in the core ever reads them back.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	StreamID  StreamID  `json:"stream_id"`
	EmittedAt int64     `json:"emitted_at"`

	StreamCreated *StreamCreatedPayload `json:"stream_created,omitempty"`
	StreamStarted *StreamStartedPayload `json:"stream_started,omitempty"`
	StreamEnded   *StreamEndedPayload   `json:"stream_ended,omitempty"`
	SegmentStored *SegmentStoredPayload `json:"segment_stored,omitempty"`
	ViewerJoined  *ViewerJoinedPayload  `json:"viewer_joined,omitempty"`
	TipSent       *TipSentPayload       `json:"tip_sent,omitempty"`
}

type StreamCreatedPayload struct {
	Creator  Address `json:"creator"`
	Title    string  `json:"title"`
	Category string  `json:"category"`
}

type StreamStartedPayload struct {
	StartedAt   int64   `json:"started_at"`
	ManifestRef BlobRef `json:"manifest_ref"`
}

type StreamEndedPayload struct {
	// Duration is ended_at - started_at in milliseconds.
	Duration    int64  `json:"duration"`
	ViewerCount uint64 `json:"viewer_count"`
	Revenue     uint64 `json:"revenue"`
	EndedAt     int64  `json:"ended_at"`
}

type SegmentStoredPayload struct {
	SegmentNumber uint64  `json:"segment_number"`
	SegmentRef    BlobRef `json:"segment_ref"`
}

type ViewerJoinedPayload struct {
	SessionID SessionID `json:"session_id"`
	Viewer    Address   `json:"viewer"`
	Paid      uint64    `json:"paid"`
	HasPaid   bool      `json:"has_paid"`
}

type TipSentPayload struct {
	Sender  Address `json:"sender"`
	Creator Address `json:"creator"`
	Amount  uint64  `json:"amount"`
	Message string  `json:"message"`
	SentAt  int64   `json:"sent_at"`
}
