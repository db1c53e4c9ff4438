package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/url"
	"time"

	"soloist/internal/app/http/middleware"
	"soloist/internal/domain/users"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const stateCookie = "oauth_state"

type UserStore interface {
	FindOrCreate(ctx context.Context, id users.Identity) (*users.User, error)
}

type TokenConfig struct {
	Secret string
	TTL    time.Duration
}

// Handler serves the sign-in flows. Providers left nil answer 404.
type Handler struct {
	users            UserStore
	tokens           TokenConfig
	github           *GitHubProvider
	oidc             *OIDCProvider
	frontendRedirect string
	secureCookies    bool
	log              logrus.FieldLogger
}

type Options struct {
	Tokens           TokenConfig
	GitHub           *GitHubProvider
	OIDC             *OIDCProvider
	FrontendRedirect string
	SecureCookies    bool
}

func NewHandler(store UserStore, opts Options, log logrus.FieldLogger) *Handler {
	return &Handler{
		users:            store,
		tokens:           opts.Tokens,
		github:           opts.GitHub,
		oidc:             opts.OIDC,
		frontendRedirect: opts.FrontendRedirect,
		secureCookies:    opts.SecureCookies,
		log:              log,
	}
}

func randomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// startFlow stores a fresh state in an HttpOnly cookie and redirects to the
// provider's consent page.
func (h *Handler) startFlow(c *gin.Context, authURL func(state string) string) {
	state, err := randomState()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate state"})
		return
	}
	c.SetCookie(stateCookie, state, 300, "/", "", h.secureCookies, true)
	c.Redirect(http.StatusFound, authURL(state))
}

// checkState returns the authorization code once the callback's state matches
// the cookie.
func (h *Handler) checkState(c *gin.Context) (string, bool) {
	state := c.Query("state")
	code := c.Query("code")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code/state"})
		return "", false
	}
	cookieState, err := c.Cookie(stateCookie)
	if err != nil || cookieState != state {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state"})
		return "", false
	}
	c.SetCookie(stateCookie, "", -1, "/", "", h.secureCookies, true)
	return code, true
}

// signIn links the identity to a user and hands the app token to the client.
func (h *Handler) signIn(c *gin.Context, id users.Identity) {
	user, err := h.users.FindOrCreate(c.Request.Context(), id)
	if err != nil {
		h.log.WithError(err).WithField("provider", id.Provider).Error("failed to store user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	email := ""
	if user.Email != nil {
		email = *user.Email
	}
	token, err := middleware.NewToken(h.tokens.Secret, user.ID, email, h.tokens.TTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create token"})
		return
	}

	h.log.WithFields(logrus.Fields{"user_id": user.ID, "provider": id.Provider}).Info("user signed in")
	if h.frontendRedirect == "" {
		c.JSON(http.StatusOK, gin.H{"token": token})
		return
	}
	c.Redirect(http.StatusFound, h.frontendRedirect+"?token="+url.QueryEscape(token))
}
