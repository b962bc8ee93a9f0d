package database

import (
	"database/sql"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/help-netizen/twilio-front-integration-sub004/config"
	"github.com/help-netizen/twilio-front-integration-sub004/internal/cache"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn  *sql.DB
	Cache cache.Cache
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		newCache, errCache := cache.NewCache()
		if errCache != nil {
			err = errCache
			return
		}
		instance = &Datasource{Conn: con, Cache: newCache}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database Connection error: %v", err)
		return nil, err
	}
	err = createRawEventTable(db)
	if err != nil {
		return nil, err
	}
	err = createCallLegTable(db)
	if err != nil {
		return nil, err
	}
	err = createInteractionTable(db)
	if err != nil {
		return nil, err
	}
	err = createSyncCursorTable(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func GenerateUUIDWithSuffix(module string) string {
	return fmt.Sprintf("%s_%s", module, uuid.New().String())
}

// createRawEventTable creates the inbox/journal table. The UNIQUE
// constraint on event_key is the sole deduplication gate in the system.
func createRawEventTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS raw_events (
			id SERIAL PRIMARY KEY,
			event_key TEXT NOT NULL UNIQUE,
			source TEXT NOT NULL,
			call_sid TEXT NOT NULL,
			parent_call_sid TEXT,
			recording_sid TEXT,
			event_time TIMESTAMPTZ NOT NULL,
			received_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			payload JSONB NOT NULL,
			processing_status TEXT NOT NULL DEFAULT 'pending',
			attempts INT NOT NULL DEFAULT 0,
			last_error TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_raw_events_call_sid ON raw_events (call_sid);
	`)
	if err != nil {
		log.Printf("Error creating raw_events table: %v", err)
	}
	return err
}

func createCallLegTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS call_legs (
			id SERIAL PRIMARY KEY,
			call_sid TEXT NOT NULL UNIQUE,
			interaction_sid TEXT NOT NULL,
			parent_call_sid TEXT,
			status TEXT NOT NULL,
			direction TEXT NOT NULL,
			from_endpoint TEXT,
			to_endpoint TEXT,
			started_at TIMESTAMPTZ,
			answered_at TIMESTAMPTZ,
			ended_at TIMESTAMPTZ,
			duration_sec INT,
			last_event_time TIMESTAMPTZ NOT NULL,
			is_final BOOLEAN NOT NULL DEFAULT FALSE,
			bridged BOOLEAN NOT NULL DEFAULT FALSE,
			recording_sid TEXT,
			recording_url TEXT,
			transcription_sid TEXT,
			transcription_text TEXT,
			derived_status TEXT NOT NULL DEFAULT 'unknown',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_call_legs_interaction_sid ON call_legs (interaction_sid);
	`)
	if err != nil {
		log.Printf("Error creating call_legs table: %v", err)
	}
	return err
}

func createInteractionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS interactions (
			id SERIAL PRIMARY KEY,
			interaction_sid TEXT NOT NULL UNIQUE,
			root_call_sid TEXT NOT NULL,
			winner_leg_sid TEXT,
			outcome TEXT NOT NULL,
			attempts_total INT NOT NULL DEFAULT 0,
			status_counts JSONB NOT NULL DEFAULT '{}',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_interactions_outcome ON interactions (outcome);
	`)
	if err != nil {
		log.Printf("Error creating interactions table: %v", err)
	}
	return err
}

func createSyncCursorTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sync_cursors (
			id SERIAL PRIMARY KEY,
			job_name TEXT NOT NULL UNIQUE,
			cursor TEXT NOT NULL DEFAULT '',
			last_success_at TIMESTAMPTZ,
			last_error TEXT,
			last_error_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		log.Printf("Error creating sync_cursors table: %v", err)
	}
	return err
}
