package repository

import (
	"context"

	"incentive-monitor/internal/domain/entity"
)

// EventRepository is the event sink contract. Create assigns the persisted
// ID on the passed event; persisted events are immutable.
type EventRepository interface {
	Create(ctx context.Context, event *entity.Event) error
	ListRecent(ctx context.Context, limit int) ([]*entity.Event, error)
}
