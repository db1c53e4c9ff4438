package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"soloist/internal/domain/billing"
	"soloist/internal/logger"
	"soloist/internal/service/payments"
	"soloist/internal/testutils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	testutils.InitTestMain()
	m.Run()
}

type stubService struct {
	checkoutIn  payments.CheckoutInput
	intentIn    payments.IntentInput
	err         error
	payment     *billing.Payment
	listUserID  string
	sessionStat *billing.CheckoutSessionStatus
}

func (s *stubService) CreateCheckoutSession(_ context.Context, in payments.CheckoutInput) (*payments.CheckoutResult, error) {
	s.checkoutIn = in
	if s.err != nil {
		return nil, s.err
	}
	return &payments.CheckoutResult{SessionID: "cs_1", SessionURL: "https://checkout.test/cs_1", PaymentID: "pay-1"}, nil
}

func (s *stubService) CreatePaymentIntent(_ context.Context, in payments.IntentInput) (*payments.IntentResult, error) {
	s.intentIn = in
	if s.err != nil {
		return nil, s.err
	}
	return &payments.IntentResult{ClientSecret: "pi_1_secret", ID: "pi_1", PaymentID: "pay-2"}, nil
}

func (s *stubService) GetPayment(_ context.Context, id string) (*billing.Payment, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.payment, nil
}

func (s *stubService) ListUserPayments(_ context.Context, userID string) ([]billing.Payment, error) {
	s.listUserID = userID
	return nil, s.err
}

func (s *stubService) VerifySession(_ context.Context, sessionID string) (*billing.CheckoutSessionStatus, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.sessionStat, nil
}

func (s *stubService) VerifyPayment(_ context.Context, intentID string) (*billing.PaymentIntentStatus, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &billing.PaymentIntentStatus{ID: intentID, Status: "succeeded", Succeeded: true}, nil
}

func setupRouter(svc *stubService, userID string) *gin.Engine {
	h := NewHandler(svc, PublicConfig{PublishableKey: "pk_test", HostingURL: "https://soloist.test"}, logger.Discard())
	r := testutils.SetupTestRouter()
	if userID != "" {
		r.Use(func(c *gin.Context) { c.Set("user_id", userID); c.Next() })
	}
	r.POST("/api/checkout/session", h.CreateCheckoutSession)
	r.POST("/api/checkout/intent", h.CreatePaymentIntent)
	r.GET("/api/payments/:id", h.GetPayment)
	r.GET("/api/payments", h.GetPaymentHistory)
	r.GET("/api/stripe/verify-session", h.VerifySession)
	r.GET("/api/stripe/verify-payment", h.VerifyPayment)
	r.GET("/api/config", h.PublicConfig)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateCheckoutSession_OK(t *testing.T) {
	svc := &stubService{}
	r := setupRouter(svc, "")

	w := do(r, http.MethodPost, "/api/checkout/session",
		`{"priceId":"price_123","customerEmail":"a@b.com","metadata":{"plan":"pro"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"sessionId":"cs_1","sessionUrl":"https://checkout.test/cs_1","paymentId":"pay-1"}`, w.Body.String())
	assert.Equal(t, "price_123", svc.checkoutIn.PriceID)
	assert.Equal(t, "a@b.com", svc.checkoutIn.CustomerEmail)
	assert.Equal(t, "pro", svc.checkoutIn.Metadata["plan"])
}

func TestCreatePaymentIntent_UsesSignedInUser(t *testing.T) {
	svc := &stubService{}
	r := setupRouter(svc, "user-1")

	w := do(r, http.MethodPost, "/api/checkout/intent", `{"priceId":"price_123"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"clientSecret":"pi_1_secret","id":"pi_1","paymentId":"pay-2"}`, w.Body.String())
	assert.Equal(t, "user-1", svc.intentIn.UserID)

	w = do(r, http.MethodPost, "/api/checkout/intent", `{"priceId":"price_123","userId":"someone-else"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCheckout_AnonymousBodyUserIsIgnored(t *testing.T) {
	svc := &stubService{}
	r := setupRouter(svc, "")

	w := do(r, http.MethodPost, "/api/checkout/session",
		`{"priceId":"price_123","userId":"6f1c2d8e-2b7a-4a53-9d0e-3f4a5b6c7d8e"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, svc.checkoutIn.UserID)

	w = do(r, http.MethodPost, "/api/checkout/intent",
		`{"priceId":"price_123","userId":"6f1c2d8e-2b7a-4a53-9d0e-3f4a5b6c7d8e"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, svc.intentIn.UserID)
}

func TestCheckout_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"validation", billing.Invalid("priceId is required"), http.StatusBadRequest, `{"error":"invalid request: priceId is required"}`},
		{"configuration", billing.ErrNotConfigured, http.StatusInternalServerError, `{"error":"Payment processor not configured"}`},
		{"processor rejection", &billing.ProcessorError{StatusCode: 400, Code: "resource_missing", Message: "No such price: 'price_x'"},
			http.StatusBadRequest, `{"error":"No such price: 'price_x'","code":"resource_missing"}`},
		{"processor outage", &billing.ProcessorError{Message: "connection reset"}, http.StatusBadGateway, `{"error":"connection reset"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupRouter(&stubService{err: tt.err}, "")
			w := do(r, http.MethodPost, "/api/checkout/session", `{"priceId":"price_x"}`)
			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
		})
	}
}

func TestCheckout_MalformedBody(t *testing.T) {
	r := setupRouter(&stubService{}, "")
	w := do(r, http.MethodPost, "/api/checkout/session", `{"priceId":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPayment(t *testing.T) {
	r := setupRouter(&stubService{payment: &billing.Payment{ID: "pay-1", Status: billing.StatusCompleted, Currency: "usd"}}, "")
	w := do(r, http.MethodGet, "/api/payments/pay-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got billing.Payment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, billing.StatusCompleted, got.Status)

	r = setupRouter(&stubService{err: billing.ErrPaymentNotFound}, "")
	w = do(r, http.MethodGet, "/api/payments/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetPaymentHistory(t *testing.T) {
	w := do(setupRouter(&stubService{}, ""), http.MethodGet, "/api/payments", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	svc := &stubService{}
	w = do(setupRouter(svc, "user-1"), http.MethodGet, "/api/payments", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
	assert.Equal(t, "user-1", svc.listUserID)
}

func TestVerifyEndpoints(t *testing.T) {
	svc := &stubService{sessionStat: &billing.CheckoutSessionStatus{ID: "cs_1", PaymentStatus: "paid", Status: "complete", AmountTotal: 1500, Currency: "usd", Succeeded: true}}
	r := setupRouter(svc, "")

	w := do(r, http.MethodGet, "/api/stripe/verify-session?session_id=cs_1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"cs_1","payment_status":"paid","status":"complete","amount_total":1500,"currency":"usd","succeeded":true}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/stripe/verify-payment?payment_intent_id=pi_1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"pi_1","amount":0,"status":"succeeded","currency":"","succeeded":true}`, w.Body.String())
}

func TestPublicConfig(t *testing.T) {
	w := do(setupRouter(&stubService{}, ""), http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"publishableKey":"pk_test","priceIds":[],"hostingUrl":"https://soloist.test"}`, w.Body.String())
}
