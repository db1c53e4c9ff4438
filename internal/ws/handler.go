package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"soloist/internal/domain/billing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type PaymentReader interface {
	GetPayment(ctx context.Context, id string) (*billing.Payment, error)
}

type Handler struct {
	hub      *Hub
	payments PaymentReader
	log      logrus.FieldLogger
	upgrader websocket.Upgrader
}

// NewHandler accepts upgrades from allowedOrigin only, or from any origin when
// it is empty or "*".
func NewHandler(hub *Hub, payments PaymentReader, allowedOrigin string, log logrus.FieldLogger) *Handler {
	return &Handler{
		hub:      hub,
		payments: payments,
		log:      log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin == "" || allowedOrigin == "*" || origin == allowedOrigin
			},
		},
	}
}

// PaymentStatus serves GET /ws/payments/:id: the current status first, then
// every change until the payment is terminal or the client goes away.
func (h *Handler) PaymentStatus(c *gin.Context) {
	id := c.Param("id")
	updates, unsubscribe := h.hub.Subscribe(id)
	defer unsubscribe()

	p, err := h.payments.GetPayment(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, billing.ErrPaymentNotFound) || errors.Is(err, billing.ErrInvalidRequest) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payment"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("payment status websocket upgrade failed")
		return
	}
	defer conn.Close()

	log := h.log.WithField("payment_id", id)
	if err := write(conn, messageFor(*p)); err != nil {
		log.WithError(err).Debug("payment status websocket write failed")
		return
	}
	if p.Status.Terminal() {
		closeNormally(conn)
		return
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-updates:
			if !ok {
				return
			}
			if err := write(conn, msg); err != nil {
				log.WithError(err).Debug("payment status websocket write failed")
				return
			}
			if msg.Status.Terminal() {
				closeNormally(conn)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

func write(conn *websocket.Conn, msg StatusMessage) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

func closeNormally(conn *websocket.Conn) {
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "payment settled"),
		time.Now().Add(writeWait),
	)
}
