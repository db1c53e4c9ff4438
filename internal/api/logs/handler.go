package logs

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"soloist/internal/domain/moodlogs"
	"soloist/internal/infra/postgres"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Store interface {
	Create(ctx context.Context, l *moodlogs.Log) error
	FirstByDate(ctx context.Context, userID, date string) (*moodlogs.Log, error)
	ListByUser(ctx context.Context, userID string) ([]moodlogs.Log, error)
}

type Handler struct {
	store Store
	log   logrus.FieldLogger
}

func NewHandler(store Store, log logrus.FieldLogger) *Handler {
	return &Handler{store: store, log: log}
}

type createRequest struct {
	Date     string   `json:"date" binding:"required"`
	Content  string   `json:"content" binding:"required"`
	Score    *float64 `json:"score" binding:"required"`
	Tags     []string `json:"tags"`
	Metadata *struct {
		Mood   *string  `json:"mood"`
		Energy *float64 `json:"energy"`
	} `json:"metadata"`
}

// CreateLog handles POST /api/logs.
func (h *Handler) CreateLog(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var body createRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	body.Date = strings.TrimSpace(body.Date)
	if !moodlogs.ValidDate(body.Date) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	l := &moodlogs.Log{
		UserID:  userID,
		Date:    body.Date,
		Content: body.Content,
		Score:   *body.Score,
		Tags:    body.Tags,
	}
	if body.Metadata != nil {
		l.Mood = body.Metadata.Mood
		l.Energy = body.Metadata.Energy
	}

	if err := h.store.Create(c.Request.Context(), l); err != nil {
		h.log.WithError(err).Error("failed to create log")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create log"})
		return
	}
	c.JSON(http.StatusCreated, l)
}

// GetByDate handles GET /api/logs?date=YYYY-MM-DD.
func (h *Handler) GetByDate(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	date := c.Query("date")
	if !moodlogs.ValidDate(date) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	l, err := h.store.FirstByDate(c.Request.Context(), userID, date)
	if err != nil {
		if errors.Is(err, postgres.ErrLogNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Log not found"})
			return
		}
		h.log.WithError(err).Error("failed to load log")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load log"})
		return
	}
	c.JSON(http.StatusOK, l)
}

// ListLogs handles GET /api/logs/all.
func (h *Handler) ListLogs(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	list, err := h.store.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.log.WithError(err).Error("failed to list logs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load logs"})
		return
	}
	if list == nil {
		list = []moodlogs.Log{}
	}
	c.JSON(http.StatusOK, list)
}
