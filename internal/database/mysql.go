package database

import (
	"context"
	"fmt"
	"time"

	"krishi-web/internal/config"
	"krishi-web/internal/utils"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

const connectTimeout = 5 * time.Second

// NewMySQL opens the survey database. The DSN sets utf8mb4 so Devanagari
// names survive the round trip.
func NewMySQL(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	// Connection pool settings
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql %s:%s: %w", cfg.DBHost, cfg.DBPort, err)
	}

	utils.GetLogger().WithFields(logrus.Fields{
		"host":      cfg.DBHost,
		"database":  cfg.DBDatabase,
		"max_open":  cfg.DBMaxOpenConns,
		"max_idle":  cfg.DBMaxIdleConns,
		"life_time": cfg.DBConnMaxLifetime.String(),
	}).Info("MySQL connected")

	return db, nil
}
