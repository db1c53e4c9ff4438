package stripewebhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"soloist/internal/domain/billing"
	"soloist/internal/service/payments"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 65536

type WebhookService interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (payments.Outcome, error)
}

type Handler struct {
	svc WebhookService
	log logrus.FieldLogger
}

func NewHandler(svc WebhookService, log logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, log: log}
}

// StripeWebhook handles POST /api/webhooks/stripe. The body is handed to
// signature verification exactly as received. Success is an empty 200; any
// failure other than missing configuration is a plain-text 400 so Stripe
// redelivers.
func (h *Handler) StripeWebhook(c *gin.Context) {
	payload, err := readStripeBody(c, maxBodyBytes)
	if err != nil {
		c.String(http.StatusBadRequest, "Webhook Error: could not read request body")
		return
	}

	outcome, err := h.svc.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, billing.ErrNotConfigured) {
			h.log.WithError(err).Error("stripe webhook received but not configured")
			c.String(http.StatusInternalServerError, "Webhook Error: not configured")
			return
		}
		c.String(http.StatusBadRequest, "Webhook Error: %s", err.Error())
		return
	}

	h.log.WithField("outcome", string(outcome)).Debug("stripe webhook handled")
	c.Status(http.StatusOK)
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
