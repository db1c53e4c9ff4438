package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"soloist/internal/domain/users"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

type IDTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

type OIDCProvider struct {
	config   *oauth2.Config
	verifier IDTokenVerifier
}

// DiscoverOIDCProvider reads the issuer's discovery document.
func DiscoverOIDCProvider(ctx context.Context, issuer, clientID, clientSecret, redirectURL string) (*OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("discover oidc issuer %s: %w", issuer, err)
	}
	cfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		Endpoint:     provider.Endpoint(),
	}
	return NewOIDCProvider(cfg, provider.Verifier(&oidc.Config{ClientID: clientID})), nil
}

func NewOIDCProvider(cfg *oauth2.Config, verifier IDTokenVerifier) *OIDCProvider {
	return &OIDCProvider{config: cfg, verifier: verifier}
}

type idClaims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	Picture       string `json:"picture"`
}

// GET /auth/oidc
func (h *Handler) OIDCStart(c *gin.Context) {
	if h.oidc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "OIDC sign-in not configured"})
		return
	}
	h.startFlow(c, func(state string) string {
		return h.oidc.config.AuthCodeURL(state)
	})
}

// GET /auth/oidc/callback
func (h *Handler) OIDCCallback(c *gin.Context) {
	if h.oidc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "OIDC sign-in not configured"})
		return
	}
	code, ok := h.checkState(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	tok, err := h.oidc.config.Exchange(ctx, code)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "failed to exchange code"})
		return
	}
	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing id_token"})
		return
	}

	claims, err := h.verifyIDToken(ctx, rawIDToken)
	if err != nil {
		h.log.WithError(err).Warn("oidc id_token rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid id_token"})
		return
	}

	h.signIn(c, users.Identity{
		Provider:      "oidc",
		Subject:       claims.Sub,
		Name:          firstNonEmpty(claims.Name, claims.GivenName),
		Email:         claims.Email,
		Image:         claims.Picture,
		EmailVerified: claims.EmailVerified,
	})
}

func (h *Handler) verifyIDToken(ctx context.Context, raw string) (*idClaims, error) {
	idToken, err := h.oidc.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	var claims idClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decode token claims: %w", err)
	}
	if claims.Sub == "" {
		return nil, errors.New("token missing subject")
	}
	return &claims, nil
}
