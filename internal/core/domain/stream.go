package domain

type StreamID string
type SessionID string

// Address identifies an external ledger account. It is the authorization
// anchor for creator-only and owner-only operations.
type Address string

// BlobRef points at content in the external content-addressed store
// (manifests, segments, thumbnails). Opaque to the ledger core.
type BlobRef string

type StreamStatus string

const (
	StatusCreated  StreamStatus = "created"
	StatusLive     StreamStatus = "live"
	StatusEnded    StreamStatus = "ended"
	StatusArchived StreamStatus = "archived"
)

// QualityLevel is one rung of the fixed quality ladder.
type QualityLevel uint8

const (
	Quality240p QualityLevel = iota
	Quality360p
	Quality480p
	Quality720p
	Quality1080p
	Quality1440p
	Quality2160p

	// MaxQualityLevel is the highest tier a stream may offer.
	MaxQualityLevel = Quality2160p

	// DefaultQualityLevel is assigned to every new viewer session.
	DefaultQualityLevel = Quality720p
)

func (q QualityLevel) String() string {
	switch q {
	case Quality240p:
		return "240p"
	case Quality360p:
		return "360p"
	case Quality480p:
		return "480p"
	case Quality720p:
		return "720p"
	case Quality1080p:
		return "1080p"
	case Quality1440p:
		return "1440p"
	case Quality2160p:
		return "2160p"
	default:
		return "unknown"
	}
}

const (
	// ModerationScoreMax is the score every stream starts with.
	ModerationScoreMax = 100

	// BasisPointsTotal is 100% expressed in basis points.
	BasisPointsTotal = 10000
)

// Stream is the aggregate for one broadcast: lifecycle state machine,
// viewer counter, revenue balance, segment index and split table.
// Timestamps are Unix milliseconds from the injected clock; StartedAt and
// EndedAt stay 0 until the corresponding transition happens.
type Stream struct {
	ID      StreamID
	Creator Address

	Title        string
	Description  string
	Category     string
	Rating       string
	Tags         []string
	ThumbnailRef BlobRef

	Status    StreamStatus
	CreatedAt int64
	StartedAt int64
	EndedAt   int64

	// ViewerCount is incremented on every join and never decremented; after
	// the stream ends it is kept as a historical snapshot.
	ViewerCount uint64

	Revenue Balance

	// RevenueSplits maps payout addresses to basis points. The table is
	// carried on the aggregate but the current distribution operation pays
	// the full balance to the creator without consulting it.
	RevenueSplits map[Address]uint16

	QualityLevels []QualityLevel

	IsMonetized       bool
	SubscriptionPrice uint64
	TipEnabled        bool

	// ModerationScore is 0-100 and owned by the external scoring collaborator.
	ModerationScore uint8

	ManifestRef BlobRef
	Segments    map[uint64]BlobRef
}

// SupportsQuality reports whether q is one of the tiers offered by the stream.
func (s *Stream) SupportsQuality(q QualityLevel) bool {
	for _, lvl := range s.QualityLevels {
		if lvl == q {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so repositories can hand out mutation scratch
// space without exposing committed state.
func (s *Stream) Clone() *Stream {
	cp := *s
	if s.Tags != nil {
		cp.Tags = append([]string(nil), s.Tags...)
	}
	if s.QualityLevels != nil {
		cp.QualityLevels = append([]QualityLevel(nil), s.QualityLevels...)
	}
	if s.RevenueSplits != nil {
		cp.RevenueSplits = make(map[Address]uint16, len(s.RevenueSplits))
		for addr, bps := range s.RevenueSplits {
			cp.RevenueSplits[addr] = bps
		}
	}
	if s.Segments != nil {
		cp.Segments = make(map[uint64]BlobRef, len(s.Segments))
		for n, ref := range s.Segments {
			cp.Segments[n] = ref
		}
	}
	return &cp
}
