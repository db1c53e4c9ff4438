package users

import (
	"context"
	"errors"
	"net/http"

	"soloist/internal/domain/billing"
	"soloist/internal/domain/users"
	"soloist/internal/infra/postgres"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type UserReader interface {
	GetByID(ctx context.Context, id string) (*users.User, error)
}

type PaymentLister interface {
	ListUserPayments(ctx context.Context, userID string) ([]billing.Payment, error)
}

type Handler struct {
	users    UserReader
	payments PaymentLister
	log      logrus.FieldLogger
}

func NewHandler(users UserReader, payments PaymentLister, log logrus.FieldLogger) *Handler {
	return &Handler{users: users, payments: payments, log: log}
}

// GetCurrentUser handles GET /api/me.
func (h *Handler) GetCurrentUser(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.log.WithError(err).Error("failed to load user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	list, err := h.payments.ListUserPayments(c.Request.Context(), userID)
	if err != nil {
		h.log.WithError(err).Error("failed to load payments")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payments"})
		return
	}

	c.JSON(http.StatusOK, MeResponse{
		User:    BuildUserDTO(*user),
		Billing: BuildBillingDTO(list),
	})
}

func BuildUserDTO(u users.User) UserDTO {
	return UserDTO{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Image:         u.Image,
		EmailVerified: u.EmailVerificationTime != nil,
	}
}

// BuildBillingDTO summarizes a user's payments; list is newest first.
func BuildBillingDTO(list []billing.Payment) BillingDTO {
	var dto BillingDTO
	for _, p := range list {
		switch p.Status {
		case billing.StatusCompleted:
			dto.CompletedPayments++
			if dto.LastPaidAt == nil && p.UpdatedAt != nil {
				dto.LastPaidAt = p.UpdatedAt
			}
		case billing.StatusPending:
			dto.PendingPayments++
		}
	}
	return dto
}
