package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/waldjos/zoriapp/internal/dates"
	"github.com/waldjos/zoriapp/internal/model"
	"github.com/waldjos/zoriapp/internal/store"
)

// ResultCache optionally remembers the most recent dispatch outcome per
// send date. Failures here are logged and ignored; the send log is the
// source of truth.
type ResultCache interface {
	StoreLast(ctx context.Context, date string, entry model.SendLogEntry) error
}

// Outcome is what one dispatch invocation produced. Items is only populated
// on dry runs; Result is only populated when a channel was invoked.
type Outcome struct {
	Count  int                   `json:"count"`
	Items  []model.ScheduleEntry `json:"items,omitempty"`
	Batch  []Item                `json:"batch,omitempty"`
	Result *model.DispatchResult `json:"result,omitempty"`
}

// Dispatcher selects the due subset of the schedule and pushes it through
// the channel chain exactly once per invocation.
type Dispatcher struct {
	schedule store.ScheduleStore
	log      store.SendLog
	chain    BatchChannel
	cache    ResultCache // nil when redis is not configured

	broadcastMax int
}

func NewDispatcher(schedule store.ScheduleStore, log store.SendLog, chain BatchChannel, cache ResultCache, broadcastMax int) *Dispatcher {
	return &Dispatcher{
		schedule:     schedule,
		log:          log,
		chain:        chain,
		cache:        cache,
		broadcastMax: broadcastMax,
	}
}

// DispatchDue sends every schedule entry whose send date equals ref. Dry
// runs return the would-be batch without touching a channel or the log. An
// empty due batch short-circuits the same way. Auto marks entries appended
// by the unattended trigger.
func (d *Dispatcher) DispatchDue(ctx context.Context, ref time.Time, dryRun, auto bool) (Outcome, error) {
	entries, err := d.schedule.Load(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("load schedule: %w", err)
	}

	refDate := dates.Format(ref)
	var due []model.ScheduleEntry
	for _, e := range entries {
		if e.SendDate == refDate {
			due = append(due, e)
		}
	}

	if dryRun {
		return Outcome{Count: len(due), Items: due}, nil
	}
	if len(due) == 0 {
		return Outcome{Count: 0}, nil
	}

	items := make([]Item, 0, len(due))
	for _, e := range due {
		items = append(items, Item{Phone: e.Phone, FullName: e.FullName, Text: e.Text})
	}

	result := d.chain.Send(ctx, items)

	logEntry := model.SendLogEntry{
		ID:     uuid.NewString(),
		Date:   refDate,
		Result: result,
		Count:  len(due),
		Auto:   auto,
	}
	if err := d.record(ctx, logEntry); err != nil {
		return Outcome{Count: len(due), Result: &result}, err
	}

	return Outcome{Count: len(due), Result: &result}, nil
}

// Broadcast sends one non-personalized message to an arbitrary phone list,
// capped at the daily capacity. Dry run by default at the API layer.
func (d *Dispatcher) Broadcast(ctx context.Context, phones []string, message string, dryRun bool) (Outcome, error) {
	if len(phones) > d.broadcastMax {
		phones = phones[:d.broadcastMax]
	}

	items := make([]Item, 0, len(phones))
	for _, p := range phones {
		items = append(items, Item{Phone: p, Text: message})
	}

	if dryRun {
		return Outcome{Count: len(items), Batch: items}, nil
	}

	result := d.chain.Send(ctx, items)

	logEntry := model.SendLogEntry{
		ID:     uuid.NewString(),
		Date:   dates.Format(dates.Today()),
		Result: result,
		Count:  len(items),
		Type:   "broadcast",
	}
	if err := d.record(ctx, logEntry); err != nil {
		return Outcome{Count: len(items), Result: &result}, err
	}

	return Outcome{Count: len(items), Result: &result}, nil
}

func (d *Dispatcher) record(ctx context.Context, entry model.SendLogEntry) error {
	if err := d.log.Append(ctx, entry); err != nil {
		return fmt.Errorf("append send log: %w", err)
	}
	if d.cache != nil {
		if err := d.cache.StoreLast(ctx, entry.Date, entry); err != nil {
			slog.Warn("store dispatch result in cache failed", "date", entry.Date, "error", err)
		}
	}
	return nil
}
