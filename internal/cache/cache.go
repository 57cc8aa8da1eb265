package cache

import (
	"context"

	"github.com/waldjos/zoriapp/internal/model"
)

// DispatchCache remembers the most recent dispatch outcome per send date,
// so "did today's batch go out" is answerable without scanning the log.
type DispatchCache interface {
	StoreLast(ctx context.Context, date string, entry model.SendLogEntry) error
	LastResult(ctx context.Context, date string) (*model.SendLogEntry, error)
}
