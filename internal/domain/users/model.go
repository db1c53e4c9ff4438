package users

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is linked to the identity provider through TokenIdentifier
// ("provider|subject").
type User struct {
	ID                    string     `gorm:"type:uuid;primaryKey" json:"id"`
	TokenIdentifier       string     `gorm:"not null;uniqueIndex:idx_users_token_identifier" json:"tokenIdentifier"`
	Name                  *string    `json:"name,omitempty"`
	Email                 *string    `gorm:"index" json:"email,omitempty"`
	Image                 *string    `json:"image,omitempty"`
	EmailVerificationTime *time.Time `json:"emailVerificationTime,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// TokenIdentifier joins a provider name and its subject identifier.
func TokenIdentifier(provider, subject string) string {
	return provider + "|" + subject
}

// Identity is what a sign-in provider tells us about the person signing in.
type Identity struct {
	Provider      string
	Subject       string
	Name          string
	Email         string
	Image         string
	EmailVerified bool
}

func (i Identity) TokenIdentifier() string {
	return TokenIdentifier(i.Provider, i.Subject)
}
