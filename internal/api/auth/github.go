package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"soloist/internal/domain/users"

	"github.com/gin-gonic/gin"
	gogithub "github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const githubAPI = "https://api.github.com/"

type GitHubProvider struct {
	config  *oauth2.Config
	apiBase string
}

func NewGitHubProvider(clientID, clientSecret, redirectURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		apiBase: githubAPI,
	}
}

// GET /auth/github
func (h *Handler) GitHubStart(c *gin.Context) {
	if h.github == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "GitHub sign-in not configured"})
		return
	}
	h.startFlow(c, func(state string) string {
		return h.github.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
	})
}

// GET /auth/github/callback
func (h *Handler) GitHubCallback(c *gin.Context) {
	if h.github == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "GitHub sign-in not configured"})
		return
	}
	code, ok := h.checkState(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	tok, err := h.github.config.Exchange(ctx, code)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "failed to exchange code"})
		return
	}
	gh, err := h.github.apiClient(h.github.config.Client(ctx, tok))
	if err != nil {
		h.log.WithError(err).Error("github api client")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "GitHub sign-in misconfigured"})
		return
	}

	id, err := githubIdentity(ctx, gh)
	if err != nil {
		h.log.WithError(err).Warn("github user lookup failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "failed to load GitHub profile"})
		return
	}

	h.signIn(c, id)
}

// apiClient returns a REST client authenticated by hc.
func (p *GitHubProvider) apiClient(hc *http.Client) (*gogithub.Client, error) {
	base, err := url.Parse(strings.TrimSuffix(p.apiBase, "/") + "/")
	if err != nil {
		return nil, err
	}
	client := gogithub.NewClient(hc)
	client.BaseURL = base
	return client, nil
}

func githubIdentity(ctx context.Context, gh *gogithub.Client) (users.Identity, error) {
	u, _, err := gh.Users.Get(ctx, "")
	if err != nil {
		return users.Identity{}, err
	}
	if u.GetID() == 0 {
		return users.Identity{}, errors.New("github profile has no id")
	}

	id := users.Identity{
		Provider: "github",
		Subject:  strconv.FormatInt(u.GetID(), 10),
		Name:     firstNonEmpty(u.GetName(), u.GetLogin()),
		Email:    u.GetEmail(),
		Image:    u.GetAvatarURL(),
	}

	// The profile email is only the public one; the emails endpoint says which
	// address is primary and verified.
	// A token without the user:email scope cannot list them; keep the profile.
	if emails, _, err := gh.Users.ListEmails(ctx, nil); err == nil {
		for _, e := range emails {
			if e.GetPrimary() {
				id.Email = e.GetEmail()
				id.EmailVerified = e.GetVerified()
				break
			}
		}
	}
	return id, nil
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
