package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"incentive-monitor/internal/domain/entity"
	"incentive-monitor/internal/repository"
)

type SourceRepo struct{ db *sql.DB }

func NewSourceRepo(db *sql.DB) repository.SourceRepository {
	return &SourceRepo{db: db}
}

// scanSource scans one source row in column order.
func scanSource(rows *sql.Rows) (*entity.Source, error) {
	var source entity.Source
	if err := rows.Scan(
		&source.ID, &source.JurisdictionID, &source.JurisdictionName,
		&source.SourceType, &source.URL, &source.CheckIntervalSeconds,
		&source.Active, &source.LastCheckedAt, &source.LastHash,
	); err != nil {
		return nil, err
	}
	return &source, nil
}

func (repo *SourceRepo) Get(ctx context.Context, id int64) (*entity.Source, error) {
	const query = `
SELECT id, jurisdiction_id, jurisdiction_name, source_type, url,
       check_interval_seconds, active, last_checked_at, last_hash
FROM monitoring_sources
WHERE id = $1
LIMIT 1`
	var source entity.Source
	err := repo.db.QueryRowContext(ctx, query, id).Scan(
		&source.ID, &source.JurisdictionID, &source.JurisdictionName,
		&source.SourceType, &source.URL, &source.CheckIntervalSeconds,
		&source.Active, &source.LastCheckedAt, &source.LastHash,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("Get: %w", entity.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &source, nil
}

func (repo *SourceRepo) GetByURL(ctx context.Context, url string) (*entity.Source, error) {
	const query = `
SELECT id, jurisdiction_id, jurisdiction_name, source_type, url,
       check_interval_seconds, active, last_checked_at, last_hash
FROM monitoring_sources
WHERE url = $1
LIMIT 1`
	var source entity.Source
	err := repo.db.QueryRowContext(ctx, query, url).Scan(
		&source.ID, &source.JurisdictionID, &source.JurisdictionName,
		&source.SourceType, &source.URL, &source.CheckIntervalSeconds,
		&source.Active, &source.LastCheckedAt, &source.LastHash,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("GetByURL: %w", entity.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetByURL: %w", err)
	}
	return &source, nil
}

func (repo *SourceRepo) ListActive(ctx context.Context) ([]*entity.Source, error) {
	const query = `
SELECT id, jurisdiction_id, jurisdiction_name, source_type, url,
       check_interval_seconds, active, last_checked_at, last_hash
FROM monitoring_sources
WHERE active = TRUE
ORDER BY id ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListActive: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sources := make([]*entity.Source, 0, 50)
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("ListActive: %w", err)
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

// ListDue selects active sources whose next check is at or before now.
// A NULL last_checked_at means the source has never been checked and is
// always due (baseline establishment happens on its first successful fetch).
func (repo *SourceRepo) ListDue(ctx context.Context, now time.Time) ([]*entity.Source, error) {
	const query = `
SELECT id, jurisdiction_id, jurisdiction_name, source_type, url,
       check_interval_seconds, active, last_checked_at, last_hash
FROM monitoring_sources
WHERE active = TRUE
  AND (last_checked_at IS NULL
       OR last_checked_at + make_interval(secs => check_interval_seconds) <= $1)
ORDER BY id ASC`
	rows, err := repo.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("ListDue: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sources := make([]*entity.Source, 0, 50)
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("ListDue: %w", err)
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

func (repo *SourceRepo) Create(ctx context.Context, source *entity.Source) error {
	const query = `
INSERT INTO monitoring_sources
       (jurisdiction_id, jurisdiction_name, source_type, url,
        check_interval_seconds, active, last_checked_at, last_hash)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		source.JurisdictionID, source.JurisdictionName,
		source.SourceType, source.URL,
		source.CheckIntervalSeconds, source.Active,
		source.LastCheckedAt, source.LastHash,
	).Scan(&source.ID)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// UpdateCheckState records a successful check. It is the only writer of
// last_checked_at and last_hash, so a failed fetch leaves the previous
// state intact and the source stays due for retry.
func (repo *SourceRepo) UpdateCheckState(ctx context.Context, id int64, hash string, checkedAt time.Time) error {
	const query = `
UPDATE monitoring_sources SET
       last_checked_at = $1,
       last_hash       = $2
WHERE id = $3`
	res, err := repo.db.ExecContext(ctx, query, checkedAt, hash, id)
	if err != nil {
		return fmt.Errorf("UpdateCheckState: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("UpdateCheckState: no rows affected")
	}
	return nil
}
