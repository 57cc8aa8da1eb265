// Package store persists the generated schedule and the dispatch audit log.
package store

import (
	"context"

	"github.com/waldjos/zoriapp/internal/model"
)

// ScheduleStore holds the full ordered schedule. It is written wholesale:
// Replace swaps the entire sequence, there is no incremental update path.
type ScheduleStore interface {
	Replace(ctx context.Context, entries []model.ScheduleEntry) error
	Load(ctx context.Context) ([]model.ScheduleEntry, error)
}

// SendLog is the append-only dispatch audit trail, ordered by wall-clock
// time of the attempt. List returns newest entries first.
type SendLog interface {
	Append(ctx context.Context, entry model.SendLogEntry) error
	List(ctx context.Context, limit int) ([]model.SendLogEntry, error)
}
