package http

import (
	"fmt"
	"net/http"
	"strconv"

	"streamledger/internal/core/domain"
	"streamledger/internal/core/ports"
	"streamledger/internal/infrastructure/middleware"
	"streamledger/pkg/errors"
	"streamledger/pkg/validation"

	"github.com/gin-gonic/gin"
)

type StreamHandler struct {
	ledger ports.LedgerService
	reader ports.LedgerReader
}

// NewStreamHandler builds the entry-point handler. reader may be a cached
// wrapper around the same service.
func NewStreamHandler(ledger ports.LedgerService, reader ports.LedgerReader) *StreamHandler {
	if reader == nil {
		reader = ledger
	}
	return &StreamHandler{ledger: ledger, reader: reader}
}

func (h *StreamHandler) SetupRoutes(api *gin.RouterGroup, auth gin.HandlerFunc) {
	streams := api.Group("/streams")
	{
		streams.POST("", auth, h.CreateStream)
		streams.POST("/:id/start", auth, h.StartStream)
		streams.POST("/:id/end", auth, h.EndStream)
		streams.POST("/:id/segments", auth, h.StoreSegment)
		streams.POST("/:id/join", auth, h.JoinStream)
		streams.POST("/:id/distribute", auth, h.DistributeRevenue)

		// Curation surface for out-of-scope collaborators.
		streams.POST("/:id/archive", auth, h.ArchiveStream)
		streams.POST("/:id/moderation", auth, h.SetModerationScore)

		// Read-only projections, no authorization.
		streams.GET("/:id", h.GetStream)
		streams.GET("/:id/manifest", h.GetManifest)
		streams.GET("/:id/segments/:number", h.GetSegment)
	}

	api.GET("/registry", h.GetRegistry)
	api.GET("/categories/:category", h.GetCategory)
}

type createStreamRequest struct {
	Title             string            `json:"title" binding:"required"`
	Description       string            `json:"description"`
	Category          string            `json:"category" binding:"required"`
	Rating            string            `json:"rating"`
	Tags              []string          `json:"tags"`
	ThumbnailRef      string            `json:"thumbnail_ref"`
	QualityLevels     []int             `json:"quality_levels" binding:"required,min=1"`
	RevenueSplits     map[string]uint16 `json:"revenue_splits"`
	IsMonetized       bool              `json:"is_monetized"`
	SubscriptionPrice uint64            `json:"subscription_price"`
	TipEnabled        bool              `json:"tip_enabled"`
}

type streamSummary struct {
	ID                domain.StreamID     `json:"id"`
	Creator           domain.Address      `json:"creator"`
	Title             string              `json:"title"`
	Description       string              `json:"description"`
	Category          string              `json:"category"`
	Rating            string              `json:"rating"`
	Tags              []string            `json:"tags"`
	ThumbnailRef      domain.BlobRef      `json:"thumbnail_ref"`
	Status            domain.StreamStatus `json:"status"`
	CreatedAt         int64               `json:"created_at"`
	StartedAt         int64               `json:"started_at"`
	EndedAt           int64               `json:"ended_at"`
	ViewerCount       uint64              `json:"viewer_count"`
	Revenue           uint64              `json:"revenue"`
	QualityLevels     []string            `json:"quality_levels"`
	IsLive            bool                `json:"is_live"`
	IsMonetized       bool                `json:"is_monetized"`
	SubscriptionPrice uint64              `json:"subscription_price"`
	TipEnabled        bool                `json:"tip_enabled"`
	ModerationScore   uint8               `json:"moderation_score"`
	SegmentCount      int                 `json:"segment_count"`
}

func toStreamSummary(s *domain.Stream) streamSummary {
	levels := make([]string, 0, len(s.QualityLevels))
	for _, q := range s.QualityLevels {
		levels = append(levels, q.String())
	}
	return streamSummary{
		ID:                s.ID,
		Creator:           s.Creator,
		Title:             s.Title,
		Description:       s.Description,
		Category:          s.Category,
		Rating:            s.Rating,
		Tags:              s.Tags,
		ThumbnailRef:      s.ThumbnailRef,
		Status:            s.Status,
		CreatedAt:         s.CreatedAt,
		StartedAt:         s.StartedAt,
		EndedAt:           s.EndedAt,
		ViewerCount:       s.ViewerCount,
		Revenue:           s.Revenue.Value(),
		QualityLevels:     levels,
		IsLive:            s.Status == domain.StatusLive,
		IsMonetized:       s.IsMonetized,
		SubscriptionPrice: s.SubscriptionPrice,
		TipEnabled:        s.TipEnabled,
		ModerationScore:   s.ModerationScore,
		SegmentCount:      len(s.Segments),
	}
}

func (h *StreamHandler) CreateStream(c *gin.Context) {
	caller, ok := middleware.CallerAddress(c)
	if !ok {
		c.Error(errors.NewUnauthorizedError("authentication required"))
		return
	}

	var req createStreamRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}
	if err := validation.ValidateTitle(req.Title); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}
	if err := validation.ValidateCategory(req.Category); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}
	if err := validation.ValidateTags(req.Tags); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	levels := make([]domain.QualityLevel, 0, len(req.QualityLevels))
	for _, q := range req.QualityLevels {
		if q < 0 || q > int(domain.MaxQualityLevel) {
			c.Error(fmt.Errorf("%w: tier %d is outside the ladder", domain.ErrInvalidQuality, q))
			return
		}
		levels = append(levels, domain.QualityLevel(q))
	}
	var splits map[domain.Address]uint16
	if len(req.RevenueSplits) > 0 {
		splits = make(map[domain.Address]uint16, len(req.RevenueSplits))
		var totalBps uint32
		for addr, bps := range req.RevenueSplits {
			if err := validation.ValidateAddress(addr); err != nil {
				c.Error(errors.NewInvalidInputError(err.Error()))
				return
			}
			splits[domain.Address(addr)] = bps
			totalBps += uint32(bps)
		}
		if totalBps > domain.BasisPointsTotal {
			c.Error(errors.NewInvalidInputError("revenue splits exceed 10000 basis points"))
			return
		}
	}

	stream, err := h.ledger.CreateStream(c.Request.Context(), caller, ports.CreateStreamParams{
		Title:             req.Title,
		Description:       req.Description,
		Category:          req.Category,
		Rating:            req.Rating,
		Tags:              req.Tags,
		ThumbnailRef:      domain.BlobRef(req.ThumbnailRef),
		QualityLevels:     levels,
		RevenueSplits:     splits,
		IsMonetized:       req.IsMonetized,
		SubscriptionPrice: req.SubscriptionPrice,
		TipEnabled:        req.TipEnabled,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"stream": toStreamSummary(stream)})
}

func (h *StreamHandler) StartStream(c *gin.Context) {
	caller, ok := middleware.CallerAddress(c)
	if !ok {
		c.Error(errors.NewUnauthorizedError("authentication required"))
		return
	}

	var req struct {
		ManifestRef string `json:"manifest_ref" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	stream, err := h.ledger.StartStream(c.Request.Context(), caller, domain.StreamID(c.Param("id")), domain.BlobRef(req.ManifestRef))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stream": toStreamSummary(stream)})
}

func (h *StreamHandler) EndStream(c *gin.Context) {
	caller, ok := middleware.CallerAddress(c)
	if !ok {
		c.Error(errors.NewUnauthorizedError("authentication required"))
		return
	}

	stream, err := h.ledger.EndStream(c.Request.Context(), caller, domain.StreamID(c.Param("id")))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stream": toStreamSummary(stream)})
}

func (h *StreamHandler) StoreSegment(c *gin.Context) {
	caller, ok := middleware.CallerAddress(c)
	if !ok {
		c.Error(errors.NewUnauthorizedError("authentication required"))
		return
	}

	var req struct {
		SegmentNumber uint64 `json:"segment_number"`
		SegmentRef    string `json:"segment_ref" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	err := h.ledger.StoreSegment(c.Request.Context(), caller, domain.StreamID(c.Param("id")), req.SegmentNumber, domain.BlobRef(req.SegmentRef))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"segment_number": req.SegmentNumber})
}

func (h *StreamHandler) JoinStream(c *gin.Context) {
	caller, ok := middleware.CallerAddress(c)
	if !ok {
		c.Error(errors.NewUnauthorizedError("authentication required"))
		return
	}

	var req struct {
		Payment uint64 `json:"payment"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	result, err := h.ledger.JoinStream(c.Request.Context(), caller, domain.StreamID(c.Param("id")), req.Payment)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"session": toSessionSummary(result.Session),
		"refund":  result.Refund,
	})
}

func (h *StreamHandler) DistributeRevenue(c *gin.Context) {
	caller, ok := middleware.CallerAddress(c)
	if !ok {
		c.Error(errors.NewUnauthorizedError("authentication required"))
		return
	}

	amount, err := h.ledger.DistributeRevenue(c.Request.Context(), caller, domain.StreamID(c.Param("id")))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"distributed": amount})
}

func (h *StreamHandler) ArchiveStream(c *gin.Context) {
	if err := h.ledger.ArchiveStream(c.Request.Context(), domain.StreamID(c.Param("id"))); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *StreamHandler) SetModerationScore(c *gin.Context) {
	var req struct {
		Score uint8 `json:"score"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	if err := h.ledger.SetModerationScore(c.Request.Context(), domain.StreamID(c.Param("id")), req.Score); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *StreamHandler) GetStream(c *gin.Context) {
	stream, err := h.reader.GetStream(c.Request.Context(), domain.StreamID(c.Param("id")))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stream": toStreamSummary(stream)})
}

func (h *StreamHandler) GetManifest(c *gin.Context) {
	stream, err := h.reader.GetStream(c.Request.Context(), domain.StreamID(c.Param("id")))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"manifest_ref": stream.ManifestRef})
}

func (h *StreamHandler) GetSegment(c *gin.Context) {
	number, err := strconv.ParseUint(c.Param("number"), 10, 64)
	if err != nil {
		c.Error(errors.NewInvalidInputError("segment number must be an unsigned integer"))
		return
	}

	ref, err := h.reader.GetSegment(c.Request.Context(), domain.StreamID(c.Param("id")), number)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"segment_number": number,
		"segment_ref":    ref,
	})
}

func (h *StreamHandler) GetRegistry(c *gin.Context) {
	reg, err := h.reader.RegistrySnapshot(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total_streams":  reg.TotalStreams,
		"active_streams": reg.ActiveStreams,
		"categories":     len(reg.ByCategory),
	})
}

func (h *StreamHandler) GetCategory(c *gin.Context) {
	ids, err := h.reader.StreamsByCategory(c.Request.Context(), c.Param("category"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stream_ids": ids})
}
