package database

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"callsight/internal/platform/config"
)

// New opens the store the service persists campaigns, calls and webhook
// configs into. In production this is a hosted relational store; the
// contract is plain database/sql either way.
func New(cfg config.DatabaseConfig) (*sql.DB, error) {
	dsn := cfg.Path
	dsn = strings.TrimPrefix(dsn, "file:")
	if !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}
