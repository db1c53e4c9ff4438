package moodlogs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DateLayout = "2006-01-02"

type Log struct {
	ID      string   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  string   `gorm:"type:uuid;not null;index:idx_logs_user_date,priority:1" json:"userId"`
	Date    string   `gorm:"type:varchar(10);not null;index:idx_logs_user_date,priority:2" json:"date"`
	Content string   `gorm:"type:text;not null" json:"content"`
	Score   float64  `gorm:"not null;index" json:"score"`
	Tags    []string `gorm:"type:jsonb;serializer:json" json:"tags,omitempty"`
	Mood    *string  `json:"mood,omitempty"`
	Energy  *float64 `json:"energy,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

func (l *Log) BeforeCreate(_ *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// ValidDate reports whether s is a calendar date in YYYY-MM-DD form.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
