package routes

import (
	"net/http"

	authapi "soloist/internal/api/auth"
	"soloist/internal/api/billing"
	logsapi "soloist/internal/api/logs"
	stripewebhooks "soloist/internal/api/stripewebhook"
	"soloist/internal/api/users"
	"soloist/internal/app/http/middleware"
	"soloist/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Auth      *authapi.Handler
	Billing   *billing.Handler
	Webhook   *stripewebhooks.Handler
	Users     *users.Handler
	Logs      *logsapi.Handler
	PaymentWS *ws.Handler
	JWTSecret string
}

func RegisterRoutes(r *gin.Engine, h Handlers) {
	// Raw body: no sanitizer, no auth. The signature is the only credential.
	r.POST("/api/webhooks/stripe", h.Webhook.StripeWebhook)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/auth/github", h.Auth.GitHubStart)
	r.GET("/auth/github/callback", h.Auth.GitHubCallback)
	r.GET("/auth/oidc", h.Auth.OIDCStart)
	r.GET("/auth/oidc/callback", h.Auth.OIDCCallback)

	api := r.Group("/api")
	api.GET("/config", h.Billing.PublicConfig)
	api.GET("/payments/:id", h.Billing.GetPayment)
	api.GET("/stripe/verify-session", h.Billing.VerifySession)
	api.GET("/stripe/verify-payment", h.Billing.VerifyPayment)

	// Anonymous purchases are allowed; a valid token ties the payment to the user.
	checkout := api.Group("/checkout")
	checkout.Use(middleware.OptionalAuth(h.JWTSecret))
	checkout.POST("/session", h.Billing.CreateCheckoutSession)
	checkout.POST("/intent", h.Billing.CreatePaymentIntent)

	auth := api.Group("/")
	auth.Use(middleware.AuthMiddleware(h.JWTSecret))
	auth.GET("/me", h.Users.GetCurrentUser)
	auth.GET("/payments", h.Billing.GetPaymentHistory)

	logs := auth.Group("/logs")
	logs.Use(middleware.SanitizeAndCleanInputMiddleware())
	logs.POST("", h.Logs.CreateLog)
	logs.GET("", h.Logs.GetByDate)
	logs.GET("/all", h.Logs.ListLogs)

	r.GET("/ws/payments/:id", h.PaymentWS.PaymentStatus)
}
