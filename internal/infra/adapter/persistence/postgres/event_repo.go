package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"incentive-monitor/internal/domain/entity"
	"incentive-monitor/internal/repository"
)

type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) repository.EventRepository {
	return &EventRepo{db: db}
}

// Create persists a monitoring event and assigns its database ID.
// Metadata is stored as JSONB; a nil map is stored as NULL.
func (repo *EventRepo) Create(ctx context.Context, event *entity.Event) error {
	var metadataJSON []byte
	if len(event.Metadata) > 0 {
		var err error
		metadataJSON, err = json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("Create: marshal metadata: %w", err)
		}
	}

	const query = `
INSERT INTO monitoring_events
       (jurisdiction_id, source_id, event_type, severity,
        title, summary, source_url, detected_at, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		event.JurisdictionID, event.SourceID,
		event.EventType, event.Severity,
		event.Title, event.Summary,
		event.SourceURL, event.DetectedAt, metadataJSON,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *EventRepo) ListRecent(ctx context.Context, limit int) ([]*entity.Event, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
SELECT id, jurisdiction_id, source_id, event_type, severity,
       title, summary, source_url, detected_at, metadata
FROM monitoring_events
ORDER BY detected_at DESC, id DESC
LIMIT $1`
	rows, err := repo.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ListRecent: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := make([]*entity.Event, 0, limit)
	for rows.Next() {
		var event entity.Event
		var metadataJSON []byte
		if err := rows.Scan(
			&event.ID, &event.JurisdictionID, &event.SourceID,
			&event.EventType, &event.Severity,
			&event.Title, &event.Summary,
			&event.SourceURL, &event.DetectedAt, &metadataJSON,
		); err != nil {
			return nil, fmt.Errorf("ListRecent: %w", err)
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &event.Metadata); err != nil {
				return nil, fmt.Errorf("ListRecent: unmarshal metadata: %w", err)
			}
		}

		events = append(events, &event)
	}
	return events, rows.Err()
}
