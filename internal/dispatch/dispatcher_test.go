package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/waldjos/zoriapp/internal/model"
)

type fakeSchedule struct {
	entries []model.ScheduleEntry
	err     error
}

func (f *fakeSchedule) Replace(ctx context.Context, entries []model.ScheduleEntry) error {
	f.entries = entries
	return nil
}

func (f *fakeSchedule) Load(ctx context.Context) ([]model.ScheduleEntry, error) {
	return f.entries, f.err
}

type fakeLog struct {
	appended []model.SendLogEntry
	err      error
}

func (f *fakeLog) Append(ctx context.Context, e model.SendLogEntry) error {
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, e)
	return nil
}

func (f *fakeLog) List(ctx context.Context, limit int) ([]model.SendLogEntry, error) {
	return f.appended, nil
}

type fakeChain struct {
	calls   int
	batches [][]Item
	result  model.DispatchResult
}

func (f *fakeChain) Send(ctx context.Context, items []Item) model.DispatchResult {
	f.calls++
	f.batches = append(f.batches, items)
	return f.result
}

type fakeCache struct {
	stored map[string]model.SendLogEntry
	err    error
}

func (f *fakeCache) StoreLast(ctx context.Context, date string, e model.SendLogEntry) error {
	if f.err != nil {
		return f.err
	}
	if f.stored == nil {
		f.stored = map[string]model.SendLogEntry{}
	}
	f.stored[date] = e
	return nil
}

func refDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func testEntries() []model.ScheduleEntry {
	return []model.ScheduleEntry{
		{ID: "1", FullName: "Ana Perez", Phone: "+58414001", ScheduledDate: "2026-02-10", SendDate: "2026-02-09", Text: "msg ana"},
		{ID: "2", FullName: "Luis Gomez", Phone: "+58414002", ScheduledDate: "2026-02-10", SendDate: "2026-02-09", Text: "msg luis"},
		{ID: "3", FullName: "Rosa Diaz", Phone: "+58414003", ScheduledDate: "2026-02-11", SendDate: "2026-02-10", Text: "msg rosa"},
	}
}

func TestDispatchDue_SelectsBySendDate(t *testing.T) {
	t.Parallel()

	chain := &fakeChain{result: model.DispatchResult{OK: true, Via: ViaGateway, Status: 200, Body: "ok"}}
	log := &fakeLog{}
	d := NewDispatcher(&fakeSchedule{entries: testEntries()}, log, chain, nil, 90)

	out, err := d.DispatchDue(context.Background(), refDate("2026-02-09"), false, false)
	if err != nil {
		t.Fatalf("DispatchDue() error: %v", err)
	}

	if out.Count != 2 {
		t.Fatalf("expected 2 due entries, got %d", out.Count)
	}
	if chain.calls != 1 {
		t.Fatalf("expected exactly one chain invocation, got %d", chain.calls)
	}

	batch := chain.batches[0]
	if len(batch) != 2 {
		t.Fatalf("expected the full batch in one call, got %d items", len(batch))
	}
	if batch[0].Phone != "+58414001" || batch[0].Text != "msg ana" {
		t.Fatalf("unexpected first item: %+v", batch[0])
	}
	if batch[1].FullName != "Luis Gomez" {
		t.Fatalf("unexpected second item: %+v", batch[1])
	}

	if len(log.appended) != 1 {
		t.Fatalf("expected one log entry, got %d", len(log.appended))
	}
	entry := log.appended[0]
	if entry.Date != "2026-02-09" || entry.Count != 2 || entry.Auto {
		t.Fatalf("unexpected log entry: %+v", entry)
	}
	if entry.ID == "" {
		t.Fatalf("expected generated log entry id")
	}
	if entry.Result.Via != ViaGateway || !entry.Result.OK {
		t.Fatalf("expected chain result recorded, got %+v", entry.Result)
	}

	if out.Result == nil || out.Result.Via != ViaGateway {
		t.Fatalf("expected result returned to caller, got %+v", out.Result)
	}
}

func TestDispatchDue_DryRunHasNoSideEffects(t *testing.T) {
	t.Parallel()

	chain := &fakeChain{result: model.DispatchResult{OK: true}}
	log := &fakeLog{}
	d := NewDispatcher(&fakeSchedule{entries: testEntries()}, log, chain, nil, 90)

	out, err := d.DispatchDue(context.Background(), refDate("2026-02-09"), true, false)
	if err != nil {
		t.Fatalf("DispatchDue() error: %v", err)
	}

	if out.Count != 2 || len(out.Items) != 2 {
		t.Fatalf("expected preview of 2 items, got count=%d items=%d", out.Count, len(out.Items))
	}
	if chain.calls != 0 {
		t.Fatalf("dry run must not invoke any channel")
	}
	if len(log.appended) != 0 {
		t.Fatalf("dry run must not append to the send log")
	}
}

func TestDispatchDue_DryRunWithZeroDue(t *testing.T) {
	t.Parallel()

	chain := &fakeChain{}
	log := &fakeLog{}
	d := NewDispatcher(&fakeSchedule{entries: testEntries()}, log, chain, nil, 90)

	out, err := d.DispatchDue(context.Background(), refDate("2026-03-01"), true, false)
	if err != nil {
		t.Fatalf("DispatchDue() error: %v", err)
	}
	if out.Count != 0 || chain.calls != 0 || len(log.appended) != 0 {
		t.Fatalf("expected empty no-op preview, got %+v", out)
	}
}

func TestDispatchDue_EmptyDueBatchSkipsChannelAndLog(t *testing.T) {
	t.Parallel()

	chain := &fakeChain{}
	log := &fakeLog{}
	d := NewDispatcher(&fakeSchedule{entries: testEntries()}, log, chain, nil, 90)

	out, err := d.DispatchDue(context.Background(), refDate("2026-03-01"), false, false)
	if err != nil {
		t.Fatalf("DispatchDue() error: %v", err)
	}
	if out.Count != 0 {
		t.Fatalf("expected count 0, got %d", out.Count)
	}
	if chain.calls != 0 || len(log.appended) != 0 {
		t.Fatalf("empty batch must not send or log")
	}
}

func TestDispatchDue_AutoFlagRecorded(t *testing.T) {
	t.Parallel()

	chain := &fakeChain{result: model.DispatchResult{OK: false, Via: ViaError, Body: "down"}}
	log := &fakeLog{}
	d := NewDispatcher(&fakeSchedule{entries: testEntries()}, log, chain, nil, 90)

	if _, err := d.DispatchDue(context.Background(), refDate("2026-02-10"), false, true); err != nil {
		t.Fatalf("DispatchDue() error: %v", err)
	}

	if len(log.appended) != 1 || !log.appended[0].Auto {
		t.Fatalf("expected auto-flagged log entry, got %+v", log.appended)
	}
	// A fully failed dispatch still lands in the log.
	if log.appended[0].Result.Via != ViaError {
		t.Fatalf("expected error result logged, got %+v", log.appended[0].Result)
	}
}

func TestDispatchDue_ScheduleLoadFailureSurfaces(t *testing.T) {
	t.Parallel()

	chain := &fakeChain{}
	d := NewDispatcher(&fakeSchedule{err: errors.New("disk gone")}, &fakeLog{}, chain, nil, 90)

	_, err := d.DispatchDue(context.Background(), refDate("2026-02-09"), false, false)
	if err == nil {
		t.Fatalf("expected error")
	}
	if chain.calls != 0 {
		t.Fatalf("must not send when the schedule cannot be read")
	}
}

func TestDispatchDue_LogAppendFailureSurfacesWithResult(t *testing.T) {
	t.Parallel()

	chain := &fakeChain{result: model.DispatchResult{OK: true, Via: ViaRelay}}
	d := NewDispatcher(&fakeSchedule{entries: testEntries()}, &fakeLog{err: errors.New("log full")}, chain, nil, 90)

	out, err := d.DispatchDue(context.Background(), refDate("2026-02-09"), false, false)
	if err == nil {
		t.Fatalf("expected persistence error")
	}
	// The batch did go out; the caller still gets the channel outcome.
	if out.Result == nil || out.Result.Via != ViaRelay {
		t.Fatalf("expected channel result despite log failure, got %+v", out.Result)
	}
}

func TestDispatchDue_CacheIsBestEffort(t *testing.T) {
	t.Parallel()

	t.Run("stores outcome", func(t *testing.T) {
		t.Parallel()

		c := &fakeCache{}
		chain := &fakeChain{result: model.DispatchResult{OK: true, Via: ViaGateway}}
		log := &fakeLog{}
		d := NewDispatcher(&fakeSchedule{entries: testEntries()}, log, chain, c, 90)

		if _, err := d.DispatchDue(context.Background(), refDate("2026-02-09"), false, false); err != nil {
			t.Fatalf("DispatchDue() error: %v", err)
		}

		got, ok := c.stored["2026-02-09"]
		if !ok {
			t.Fatalf("expected cached outcome for 2026-02-09")
		}
		if got.Count != 2 || got.Result.Via != ViaGateway {
			t.Fatalf("unexpected cached entry: %+v", got)
		}
	})

	t.Run("cache failure does not fail the dispatch", func(t *testing.T) {
		t.Parallel()

		c := &fakeCache{err: errors.New("redis down")}
		chain := &fakeChain{result: model.DispatchResult{OK: true, Via: ViaGateway}}
		log := &fakeLog{}
		d := NewDispatcher(&fakeSchedule{entries: testEntries()}, log, chain, c, 90)

		if _, err := d.DispatchDue(context.Background(), refDate("2026-02-09"), false, false); err != nil {
			t.Fatalf("expected no error when only the cache fails, got: %v", err)
		}
		if len(log.appended) != 1 {
			t.Fatalf("expected log entry despite cache failure")
		}
	})
}

func TestBroadcast_DryRunByDefaultPath(t *testing.T) {
	t.Parallel()

	chain := &fakeChain{}
	log := &fakeLog{}
	d := NewDispatcher(&fakeSchedule{}, log, chain, nil, 90)

	out, err := d.Broadcast(context.Background(), []string{"+58414001", "+58414002"}, "hola", true)
	if err != nil {
		t.Fatalf("Broadcast() error: %v", err)
	}

	if out.Count != 2 || len(out.Batch) != 2 {
		t.Fatalf("expected preview of 2 items, got %+v", out)
	}
	if chain.calls != 0 || len(log.appended) != 0 {
		t.Fatalf("dry run must not send or log")
	}
}

func TestBroadcast_LiveSendCapsAndLogs(t *testing.T) {
	t.Parallel()

	chain := &fakeChain{result: model.DispatchResult{OK: true, Via: ViaRelay, Status: 200}}
	log := &fakeLog{}
	d := NewDispatcher(&fakeSchedule{}, log, chain, nil, 3)

	phones := []string{"+1", "+2", "+3", "+4", "+5"}
	out, err := d.Broadcast(context.Background(), phones, "aviso", false)
	if err != nil {
		t.Fatalf("Broadcast() error: %v", err)
	}

	if out.Count != 3 {
		t.Fatalf("expected cap at 3, got %d", out.Count)
	}
	if len(chain.batches[0]) != 3 {
		t.Fatalf("expected capped batch, got %d items", len(chain.batches[0]))
	}
	for _, it := range chain.batches[0] {
		if it.Text != "aviso" {
			t.Fatalf("expected shared message, got %q", it.Text)
		}
	}

	if len(log.appended) != 1 || log.appended[0].Type != "broadcast" {
		t.Fatalf("expected broadcast log entry, got %+v", log.appended)
	}
}
