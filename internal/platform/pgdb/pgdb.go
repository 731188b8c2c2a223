// Package pgdb opens the relational store's Postgres connection and runs
// its auto-migration, adapted from the teacher's internal/db package
// (same DSN-from-env shape, same "ignore record-not-found" gorm logger
// config, since pollers hitting ErrRecordNotFound is routine here, not
// exceptional).
package pgdb

import (
	"fmt"
	stdlog "log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	types "github.com/yungbote/streemm-backend/internal/domain"
	"github.com/yungbote/streemm-backend/internal/platform/envutil"
	"github.com/yungbote/streemm-backend/internal/platform/logger"
)

// Open connects to Postgres using POSTGRES_{HOST,PORT,USER,PASSWORD,NAME}
// env vars, matching the teacher's internal/db.NewPostgresService DSN shape.
func Open(baseLog *logger.Logger) (*gorm.DB, error) {
	log := baseLog.With("service", "pgdb")

	host := envutil.GetEnv("POSTGRES_HOST", "localhost")
	port := envutil.GetEnv("POSTGRES_PORT", "5432")
	user := envutil.GetEnv("POSTGRES_USER", "postgres")
	password := envutil.GetEnv("POSTGRES_PASSWORD", "")
	name := envutil.GetEnv("POSTGRES_NAME", "streemm")

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		user, password, host, port, name,
	)

	gormLog := gormlogger.New(
		stdlog.New(os.Stdout, "\r\n", stdlog.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	log.Info("connecting to postgres")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return nil, fmt.Errorf("enable uuid-ossp extension: %w", err)
	}

	return db, nil
}

// AutoMigrate creates/updates every relational-store table spec.md §6
// names, in dependency order (join tables and history after the rows they
// reference).
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.User{},

		&types.Video{},
		&types.VideoAsset{},
		&types.VideoSummary{},

		&types.Topic{},
		&types.Entity{},
		&types.Tag{},

		&types.VideoTopic{},
		&types.VideoEntity{},
		&types.VideoTag{},

		&types.WatchHistory{},
	)
}
