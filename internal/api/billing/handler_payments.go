package billing

import (
	"net/http"

	"soloist/internal/domain/billing"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetPayment(c *gin.Context) {
	p, err := h.svc.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) GetPaymentHistory(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	list, err := h.svc.ListUserPayments(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if list == nil {
		list = []billing.Payment{}
	}
	c.JSON(http.StatusOK, list)
}

// VerifySession handles GET /api/stripe/verify-session?session_id=.
func (h *Handler) VerifySession(c *gin.Context) {
	s, err := h.svc.VerifySession(c.Request.Context(), c.Query("session_id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// VerifyPayment handles GET /api/stripe/verify-payment?payment_intent_id=.
func (h *Handler) VerifyPayment(c *gin.Context) {
	pi, err := h.svc.VerifyPayment(c.Request.Context(), c.Query("payment_intent_id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, pi)
}
