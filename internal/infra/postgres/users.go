package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"soloist/internal/domain/users"

	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db, now: time.Now}
}

// FindOrCreate returns the user linked to the identity, creating it on first
// sign-in and refreshing the profile fields on later ones.
func (r *UserRepository) FindOrCreate(ctx context.Context, id users.Identity) (*users.User, error) {
	tokenID := id.TokenIdentifier()

	var u users.User
	err := r.db.WithContext(ctx).Where("token_identifier = ?", tokenID).First(&u).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		u = users.User{
			TokenIdentifier: tokenID,
			Name:            nonEmpty(id.Name),
			Email:           nonEmpty(id.Email),
			Image:           nonEmpty(id.Image),
		}
		if id.EmailVerified {
			now := r.now()
			u.EmailVerificationTime = &now
		}
		if err := r.db.WithContext(ctx).Create(&u).Error; err != nil {
			return nil, fmt.Errorf("create user %s: %w", tokenID, err)
		}
		return &u, nil
	case err != nil:
		return nil, err
	}

	updates := map[string]interface{}{}
	if id.Name != "" && (u.Name == nil || *u.Name != id.Name) {
		updates["name"] = id.Name
		u.Name = nonEmpty(id.Name)
	}
	if id.Email != "" && (u.Email == nil || *u.Email != id.Email) {
		updates["email"] = id.Email
		u.Email = nonEmpty(id.Email)
	}
	if id.Image != "" && (u.Image == nil || *u.Image != id.Image) {
		updates["image"] = id.Image
		u.Image = nonEmpty(id.Image)
	}
	if id.EmailVerified && u.EmailVerificationTime == nil {
		now := r.now()
		updates["email_verification_time"] = now
		u.EmailVerificationTime = &now
	}
	if len(updates) == 0 {
		return &u, nil
	}
	if err := r.db.WithContext(ctx).Model(&users.User{}).Where("id = ?", u.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update user %s: %w", u.ID, err)
	}
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*users.User, error) {
	var u users.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
