package postgres

import (
	"context"
	"errors"
	"fmt"

	"soloist/internal/domain/moodlogs"

	"gorm.io/gorm"
)

var ErrLogNotFound = errors.New("log not found")

type LogRepository struct {
	db *gorm.DB
}

func NewLogRepository(db *gorm.DB) *LogRepository {
	return &LogRepository{db: db}
}

func (r *LogRepository) Create(ctx context.Context, l *moodlogs.Log) error {
	if err := r.db.WithContext(ctx).Create(l).Error; err != nil {
		return fmt.Errorf("create log: %w", err)
	}
	return nil
}

// FirstByDate returns the user's earliest log for a YYYY-MM-DD date.
func (r *LogRepository) FirstByDate(ctx context.Context, userID, date string) (*moodlogs.Log, error) {
	var l moodlogs.Log
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, date).
		Order("created_at ASC").
		First(&l).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLogNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *LogRepository) ListByUser(ctx context.Context, userID string) ([]moodlogs.Log, error) {
	var logs []moodlogs.Log
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date ASC").
		Order("created_at ASC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
