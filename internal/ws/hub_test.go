package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"soloist/internal/domain/billing"
	"soloist/internal/logger"
	"soloist/internal/testutils"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	testutils.InitTestMain()
	m.Run()
}

type stubPayments map[string]billing.Payment

func (s stubPayments) GetPayment(_ context.Context, id string) (*billing.Payment, error) {
	p, ok := s[id]
	if !ok {
		return nil, billing.ErrPaymentNotFound
	}
	return &p, nil
}

func TestHub_PublishReachesOnlyThatPayment(t *testing.T) {
	hub := NewHub()
	a, unsubA := hub.Subscribe("a")
	b, unsubB := hub.Subscribe("b")
	defer unsubB()

	require.NoError(t, hub.PaymentCompleted(context.Background(), billing.Payment{ID: "a", Status: billing.StatusCompleted}))

	select {
	case msg := <-a:
		assert.Equal(t, billing.StatusCompleted, msg.Status)
	case <-time.After(time.Second):
		t.Fatal("subscriber a got nothing")
	}
	select {
	case msg := <-b:
		t.Fatalf("subscriber b got %+v", msg)
	default:
	}

	unsubA()
	unsubA()
	assert.Equal(t, 0, hub.Subscribers("a"))
	assert.Equal(t, 1, hub.Subscribers("b"))
}

func TestHub_PublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	hub := NewHub()
	_, unsub := hub.Subscribe("a")
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			hub.Publish(StatusMessage{PaymentID: "a", Status: billing.StatusPending})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked")
	}
}

func newServer(t *testing.T, hub *Hub, payments stubPayments) *httptest.Server {
	t.Helper()
	r := testutils.SetupTestRouter()
	h := NewHandler(hub, payments, "", logger.Discard())
	r.GET("/ws/payments/:id", h.PaymentStatus)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, id string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/payments/" + id
	return websocket.DefaultDialer.Dial(url, nil)
}

func TestPaymentStatus_SendsCurrentThenUpdates(t *testing.T) {
	hub := NewHub()
	srv := newServer(t, hub, stubPayments{
		"pay-1": {ID: "pay-1", Status: billing.StatusPending, Currency: "usd"},
	})

	conn, _, err := dial(t, srv, "pay-1")
	require.NoError(t, err)
	defer conn.Close()

	var first StatusMessage
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, billing.StatusPending, first.Status)

	require.NoError(t, hub.PaymentCompleted(context.Background(), billing.Payment{
		ID: "pay-1", Status: billing.StatusCompleted, Amount: 1500, Currency: "usd",
	}))

	var second StatusMessage
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, billing.StatusCompleted, second.Status)
	assert.Equal(t, int64(1500), second.Amount)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestPaymentStatus_TerminalPaymentClosesAfterFirstMessage(t *testing.T) {
	srv := newServer(t, NewHub(), stubPayments{
		"pay-2": {ID: "pay-2", Status: billing.StatusCompleted},
	})

	conn, _, err := dial(t, srv, "pay-2")
	require.NoError(t, err)
	defer conn.Close()

	var msg StatusMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, billing.StatusCompleted, msg.Status)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestPaymentStatus_UnknownPayment(t *testing.T) {
	srv := newServer(t, NewHub(), stubPayments{})

	_, resp, err := dial(t, srv, "missing")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
