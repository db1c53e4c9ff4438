package billing

import (
	"errors"
	"net/http"

	"soloist/internal/domain/billing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// writeError maps a service error onto the JSON error shape used by every
// route. Processor messages are passed through verbatim.
func writeError(c *gin.Context, log logrus.FieldLogger, err error) {
	var pe *billing.ProcessorError
	switch {
	case errors.Is(err, billing.ErrNotConfigured):
		log.WithError(err).Error("payment processor not configured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Payment processor not configured"})
	case errors.Is(err, billing.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, billing.ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
	case errors.Is(err, billing.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &pe):
		status := http.StatusBadGateway
		if pe.Rejected() {
			status = http.StatusBadRequest
		}
		body := gin.H{"error": pe.Message}
		if pe.Code != "" {
			body["code"] = pe.Code
		}
		if pe.Param != "" {
			body["param"] = pe.Param
		}
		c.JSON(status, body)
	default:
		log.WithError(err).Error("billing request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
