package http

import (
	"net/http"

	"streamledger/internal/core/domain"
	"streamledger/internal/core/services"
	"streamledger/pkg/errors"
	"streamledger/pkg/validation"

	"github.com/gin-gonic/gin"
)

// AuthHandler exchanges a ledger address for a bearer token. Signature
// verification against the address is delegated to the gateway in front of
// this service; here the address format is all that is checked.
type AuthHandler struct {
	auth services.AuthService
}

func NewAuthHandler(auth services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) SetupRoutes(api *gin.RouterGroup) {
	api.POST("/auth/token", h.IssueToken)
}

func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}
	if err := validation.ValidateAddress(req.Address); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	token, err := h.auth.GenerateToken(domain.Address(req.Address))
	if err != nil {
		c.Error(errors.NewInternalError("token generation failed"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
