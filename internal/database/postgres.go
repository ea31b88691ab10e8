package database

import (
	"database/sql"
	"log"
	"time"

	_ "github.com/lib/pq"
)

var PostgresDB *sql.DB

// ConnectPostgres connects to the PostgreSQL database that keeps the
// recovery audit trail.
func ConnectPostgres(postgresURI string) error {
	db, err := sql.Open("postgres", postgresURI)
	if err != nil {
		return err
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err = db.Ping(); err != nil {
		db.Close()
		return err
	}

	PostgresDB = db
	log.Println("✅ Connected to PostgreSQL")

	return InitPostgresTables(db)
}

// InitPostgresTables creates the audit tables if they don't exist
func InitPostgresTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS recovery_events (
			id UUID PRIMARY KEY,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			event_type VARCHAR(32) NOT NULL,
			identity VARCHAR(64),
			fingerprint VARCHAR(128),
			recovered BOOLEAN NOT NULL DEFAULT FALSE,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recovery_events_identity ON recovery_events(identity)`,
		`CREATE INDEX IF NOT EXISTS idx_recovery_events_created_at ON recovery_events(created_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	log.Println("✅ PostgreSQL tables initialized")
	return nil
}

// DisconnectPostgres closes the PostgreSQL connection
func DisconnectPostgres() error {
	if PostgresDB != nil {
		return PostgresDB.Close()
	}
	return nil
}
