package database

import (
	"fmt"

	"soloist/config"
	"soloist/internal/domain/billing"
	"soloist/internal/domain/moodlogs"
	"soloist/internal/domain/users"
	"soloist/internal/logger"

	"github.com/avast/retry-go"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open connects to Postgres, retrying while the database comes up.
func Open(cfg config.Database, log logrus.FieldLogger) (*gorm.DB, error) {
	var db *gorm.DB

	err := retry.Do(
		func() error {
			conn, err := gorm.Open(postgres.Open(cfg.URL), &gorm.Config{Logger: logger.Gorm(log)})
			if err != nil {
				return err
			}
			db = conn
			return nil
		},
		retry.Attempts(cfg.ConnectAttempts),
		retry.Delay(cfg.ConnectDelay),
		retry.MaxDelay(cfg.ConnectMaxDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.WithError(err).WithField("attempt", n+1).Warn("database not reachable, retrying")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	log.Info("connected to database")
	return db, nil
}

// Models lists every table the service owns, in migration order.
func Models() []interface{} {
	return []interface{}{
		&users.User{},
		&billing.Payment{},
		&billing.ProcessedEvent{},
		&moodlogs.Log{},
	}
}

func Migrate(db *gorm.DB) error {
	// gen_random_uuid() for ad hoc inserts
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		return fmt.Errorf("enable pgcrypto extension: %w", err)
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
