package billing

import (
	"net/http"

	"soloist/internal/domain/billing"
	"soloist/internal/service/payments"

	"github.com/gin-gonic/gin"
)

type checkoutRequest struct {
	PriceID       string            `json:"priceId"`
	SuccessURL    string            `json:"successUrl"`
	CancelURL     string            `json:"cancelUrl"`
	CustomerEmail string            `json:"customerEmail"`
	Metadata      map[string]string `json:"metadata"`
	UserID        string            `json:"userId"`
}

type intentRequest struct {
	PriceID       string            `json:"priceId"`
	CustomerEmail string            `json:"customerEmail"`
	Metadata      map[string]string `json:"metadata"`
	UserID        string            `json:"userId"`
}

// resolveUser returns the user id to attach to a purchase. Only the token
// decides it: anonymous purchases stay anonymous whatever the body says, and
// a signed-in caller may only buy for themselves.
func resolveUser(c *gin.Context, requested string) (string, bool) {
	current := c.GetString("user_id")
	if current == "" {
		return "", true
	}
	if requested != "" && requested != current {
		c.JSON(http.StatusForbidden, gin.H{"error": "userId does not match the signed-in user"})
		return "", false
	}
	return current, true
}

// CreateCheckoutSession handles POST /api/checkout/session.
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	var body checkoutRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	userID, ok := resolveUser(c, body.UserID)
	if !ok {
		return
	}

	res, err := h.svc.CreateCheckoutSession(c.Request.Context(), payments.CheckoutInput{
		PriceID:       body.PriceID,
		SuccessURL:    body.SuccessURL,
		CancelURL:     body.CancelURL,
		CustomerEmail: body.CustomerEmail,
		Metadata:      billing.Metadata(body.Metadata),
		UserID:        userID,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// CreatePaymentIntent handles POST /api/checkout/intent.
func (h *Handler) CreatePaymentIntent(c *gin.Context) {
	var body intentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	userID, ok := resolveUser(c, body.UserID)
	if !ok {
		return
	}

	res, err := h.svc.CreatePaymentIntent(c.Request.Context(), payments.IntentInput{
		PriceID:       body.PriceID,
		CustomerEmail: body.CustomerEmail,
		Metadata:      billing.Metadata(body.Metadata),
		UserID:        userID,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) PublicConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.public)
}
