package http

import (
	"net/http"

	"streamledger/internal/core/domain"
	"streamledger/internal/core/ports"
	"streamledger/internal/infrastructure/middleware"
	"streamledger/pkg/errors"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	ledger ports.LedgerService
}

func NewSessionHandler(ledger ports.LedgerService) *SessionHandler {
	return &SessionHandler{ledger: ledger}
}

func (h *SessionHandler) SetupRoutes(api *gin.RouterGroup, auth gin.HandlerFunc) {
	sessions := api.Group("/sessions")
	{
		sessions.POST("/:id/heartbeat", auth, h.UpdateHeartbeat)
		sessions.POST("/:id/tip", auth, h.SendTip)
		sessions.GET("/:id", h.GetSession)
	}
}

type sessionSummary struct {
	ID             domain.SessionID `json:"id"`
	StreamID       domain.StreamID  `json:"stream_id"`
	Viewer         domain.Address   `json:"viewer"`
	StartedAt      int64            `json:"started_at"`
	LastHeartbeat  int64            `json:"last_heartbeat"`
	TotalWatchTime int64            `json:"total_watch_time_ms"`
	Quality        string           `json:"quality"`
	HasPaid        bool             `json:"has_paid"`
	TipsSent       uint64           `json:"tips_sent"`
}

func toSessionSummary(s *domain.ViewerSession) sessionSummary {
	return sessionSummary{
		ID:             s.ID,
		StreamID:       s.StreamID,
		Viewer:         s.Viewer,
		StartedAt:      s.StartedAt,
		LastHeartbeat:  s.LastHeartbeat,
		TotalWatchTime: s.TotalWatchTime,
		Quality:        s.Quality.String(),
		HasPaid:        s.HasPaid,
		TipsSent:       s.TipsSent,
	}
}

func (h *SessionHandler) UpdateHeartbeat(c *gin.Context) {
	caller, ok := middleware.CallerAddress(c)
	if !ok {
		c.Error(errors.NewUnauthorizedError("authentication required"))
		return
	}

	var req struct {
		Quality uint8 `json:"quality"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	session, err := h.ledger.UpdateHeartbeat(c.Request.Context(), caller, domain.SessionID(c.Param("id")), domain.QualityLevel(req.Quality))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": toSessionSummary(session)})
}

func (h *SessionHandler) SendTip(c *gin.Context) {
	caller, ok := middleware.CallerAddress(c)
	if !ok {
		c.Error(errors.NewUnauthorizedError("authentication required"))
		return
	}

	var req struct {
		Amount  uint64 `json:"amount"`
		Message string `json:"message"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	if err := h.ledger.SendTip(c.Request.Context(), caller, domain.SessionID(c.Param("id")), req.Amount, req.Message); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tipped": req.Amount})
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	session, err := h.ledger.GetSession(c.Request.Context(), domain.SessionID(c.Param("id")))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": toSessionSummary(session)})
}
