package repository

import (
	"context"
	"time"

	"incentive-monitor/internal/domain/entity"
)

// SourceRepository is the persistence contract for monitoring sources.
// The monitoring pipeline is the only writer of check state; sources are
// never deleted by the pipeline, only soft-deactivated elsewhere.
type SourceRepository interface {
	// Get returns the source with the given ID. A missing source is
	// reported as an error wrapping entity.ErrNotFound.
	Get(ctx context.Context, id int64) (*entity.Source, error)

	// GetByURL returns the source with the given URL, or an error wrapping
	// entity.ErrNotFound when absent. URLs are unique across sources; the
	// seed loader uses this to make startup seeding idempotent.
	GetByURL(ctx context.Context, url string) (*entity.Source, error)

	ListActive(ctx context.Context) ([]*entity.Source, error)

	// ListDue returns active sources whose next check is at or before now.
	// Sources that have never been checked are always due.
	ListDue(ctx context.Context, now time.Time) ([]*entity.Source, error)

	Create(ctx context.Context, source *entity.Source) error

	// UpdateCheckState records a successful check: the new content
	// fingerprint and the time of the check. It must not be called for a
	// failed fetch, so a failing source is retried on its next due cycle.
	UpdateCheckState(ctx context.Context, id int64, hash string, checkedAt time.Time) error
}
