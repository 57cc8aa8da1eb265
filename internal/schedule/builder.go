// Package schedule turns a patient list into dated pickup slots and the
// pre-rendered notification for each slot.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/waldjos/zoriapp/internal/dates"
	"github.com/waldjos/zoriapp/internal/model"
	"github.com/waldjos/zoriapp/internal/store"
)

var ErrNoPatients = errors.New("patient list is empty")

// CapacityError reports a patient list larger than the date range can hold.
// The caller must shrink the list or widen the range; nothing is persisted.
type CapacityError struct {
	Patients int
	Capacity int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("too many patients (%d) for the selected dates (capacity %d); reduce patients or widen the range", e.Patients, e.Capacity)
}

type Summary struct {
	Days     int `json:"days"`
	Capacity int `json:"capacity"`
	Assigned int `json:"assigned"`
}

type Builder struct {
	store         store.ScheduleStore
	dailyCapacity int
	contentMax    int
}

func NewBuilder(s store.ScheduleStore, dailyCapacity, contentMax int) *Builder {
	return &Builder{
		store:         s,
		dailyCapacity: dailyCapacity,
		contentMax:    contentMax,
	}
}

// Build computes the pickup dates for [start, end], assigns patients to them
// in order (filling each date to the daily capacity before advancing), and
// atomically replaces the persisted schedule. Identical inputs produce
// identical schedules; entry ids come from the patient input, falling back
// to the list index.
func (b *Builder) Build(ctx context.Context, patients []model.Patient, start, end string, exclude []string) (Summary, error) {
	if len(patients) == 0 {
		return Summary{}, ErrNoPatients
	}

	pickupDates, err := dates.PickupDates(start, end, exclude)
	if err != nil {
		return Summary{}, err
	}

	capacity := len(pickupDates) * b.dailyCapacity
	if len(patients) > capacity {
		return Summary{}, &CapacityError{Patients: len(patients), Capacity: capacity}
	}

	entries := make([]model.ScheduleEntry, 0, len(patients))
	for i, p := range patients {
		pickup := pickupDates[i/b.dailyCapacity]

		id := p.ID
		if id == "" {
			id = strconv.Itoa(i)
		}

		entries = append(entries, model.ScheduleEntry{
			ID:            id,
			FullName:      p.FullName,
			Phone:         p.Phone,
			ScheduledDate: dates.Format(pickup),
			SendDate:      dates.Format(pickup.AddDate(0, 0, -1)),
			Text:          renderMessage(p.FullName, pickup, b.contentMax),
		})
	}

	if err := b.store.Replace(ctx, entries); err != nil {
		return Summary{}, fmt.Errorf("replace schedule: %w", err)
	}

	return Summary{
		Days:     len(pickupDates),
		Capacity: capacity,
		Assigned: len(entries),
	}, nil
}
