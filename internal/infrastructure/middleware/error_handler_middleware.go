package middleware

import (
	stderrors "errors"
	"net/http"

	"streamledger/internal/core/domain"
	"streamledger/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// mapDomainError translates ledger sentinels into the wire taxonomy. The
// failing condition carried in the error message is preserved verbatim.
func mapDomainError(err error) *errors.AppError {
	switch {
	case stderrors.Is(err, domain.ErrNotAuthorized):
		return errors.WrapError(err, errors.ErrCodeNotAuthorized, err.Error(), http.StatusForbidden)
	case stderrors.Is(err, domain.ErrInvalidState):
		return errors.WrapError(err, errors.ErrCodeInvalidState, err.Error(), http.StatusConflict)
	case stderrors.Is(err, domain.ErrInsufficientPayment):
		return errors.WrapError(err, errors.ErrCodeInsufficientPayment, err.Error(), http.StatusPaymentRequired)
	case stderrors.Is(err, domain.ErrInvalidQuality):
		return errors.WrapError(err, errors.ErrCodeInvalidQuality, err.Error(), http.StatusBadRequest)
	case stderrors.Is(err, domain.ErrStreamNotFound),
		stderrors.Is(err, domain.ErrSessionNotFound),
		stderrors.Is(err, domain.ErrSegmentNotFound):
		return errors.WrapError(err, errors.ErrCodeNotFound, err.Error(), http.StatusNotFound)
	default:
		return nil
	}
}

// ErrorHandlerMiddleware turns errors attached to the gin context into
// structured responses.
func ErrorHandlerMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		appErr := errors.GetAppError(err)
		if appErr == nil {
			appErr = mapDomainError(err)
		}
		if appErr != nil {
			logger.Warnw("request failed",
				"code", appErr.Code,
				"message", appErr.Message,
				"status", appErr.HTTPStatus,
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)
			c.JSON(appErr.HTTPStatus, gin.H{
				"error":   string(appErr.Code),
				"message": appErr.Message,
			})
			return
		}

		logger.Errorw("unhandled error",
			"error", err.Error(),
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   string(errors.ErrCodeInternal),
			"message": "internal error",
		})
	}
}
