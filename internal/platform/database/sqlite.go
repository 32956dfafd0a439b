package database

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"pubhook/internal/platform/config"
)

// Open connects to the sqlite options database and verifies the connection.
func Open(cfg config.DatabaseConfig) (*sql.DB, error) {
	// The sqlite3 driver takes a plain path; strip the "file:" scheme.
	dsn := strings.TrimPrefix(cfg.URL, "file:")
	if !strings.HasPrefix(dsn, ":") {
		path := dsn
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path = path[:i]
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
