package db

import (
	"database/sql"
)

// MigrateUp creates the monitoring schema if it does not exist.
// All statements are idempotent so the worker can run this on every start.
func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS monitoring_sources (
    id                     SERIAL PRIMARY KEY,
    jurisdiction_id        VARCHAR(50) NOT NULL,
    jurisdiction_name      TEXT NOT NULL,
    source_type            VARCHAR(20) NOT NULL,
    url                    TEXT NOT NULL UNIQUE,
    check_interval_seconds INTEGER NOT NULL CHECK (check_interval_seconds > 0),
    active                 BOOLEAN NOT NULL DEFAULT TRUE,
    last_checked_at        TIMESTAMPTZ,
    last_hash              VARCHAR(64),
    created_at             TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS monitoring_events (
    id              SERIAL PRIMARY KEY,
    jurisdiction_id VARCHAR(50) NOT NULL,
    source_id       INTEGER REFERENCES monitoring_sources(id),
    event_type      VARCHAR(30) NOT NULL,
    severity        VARCHAR(10) NOT NULL,
    title           TEXT NOT NULL,
    summary         TEXT,
    source_url      TEXT,
    detected_at     TIMESTAMPTZ NOT NULL,
    metadata        JSONB,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	indexes := []string{
		// Due-source scan each tick: active filter plus check ordering
		`CREATE INDEX IF NOT EXISTS idx_sources_active ON monitoring_sources(active) WHERE active = TRUE`,
		`CREATE INDEX IF NOT EXISTS idx_sources_last_checked_at ON monitoring_sources(last_checked_at)`,
		// Recent-events listing and per-jurisdiction queries
		`CREATE INDEX IF NOT EXISTS idx_events_detected_at ON monitoring_events(detected_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_events_jurisdiction_id ON monitoring_events(jurisdiction_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_source_id ON monitoring_events(source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_severity ON monitoring_events(severity)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	// Constraint additions use DO blocks so re-runs are harmless.
	_, _ = db.Exec(`
DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM pg_constraint
        WHERE conname = 'chk_source_type'
    ) THEN
        ALTER TABLE monitoring_sources ADD CONSTRAINT chk_source_type
        CHECK (source_type IN ('rss', 'webpage', 'api'));
    END IF;
END $$;
`)

	_, _ = db.Exec(`
DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM pg_constraint
        WHERE conname = 'chk_event_type'
    ) THEN
        ALTER TABLE monitoring_events ADD CONSTRAINT chk_event_type
        CHECK (event_type IN ('incentive_change', 'new_program', 'expiration', 'news'));
    END IF;
    IF NOT EXISTS (
        SELECT 1 FROM pg_constraint
        WHERE conname = 'chk_event_severity'
    ) THEN
        ALTER TABLE monitoring_events ADD CONSTRAINT chk_event_severity
        CHECK (severity IN ('info', 'warning', 'critical'));
    END IF;
END $$;
`)

	return nil
}

// MigrateDown drops the monitoring schema.
// Use with caution: this deletes all monitoring data.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP TABLE IF EXISTS monitoring_events CASCADE`,
		`DROP TABLE IF EXISTS monitoring_sources CASCADE`,
	}

	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
