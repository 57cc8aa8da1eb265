package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/waldjos/zoriapp/internal/cache"
	"github.com/waldjos/zoriapp/internal/dates"
	"github.com/waldjos/zoriapp/internal/dispatch"
	"github.com/waldjos/zoriapp/internal/model"
	"github.com/waldjos/zoriapp/internal/schedule"
	"github.com/waldjos/zoriapp/internal/store"
	"github.com/waldjos/zoriapp/internal/trigger"
)

// Default campaign window used when a generation request leaves the range
// out; carnival Tuesday/Wednesday are excluded.
const (
	defaultStartDate = "2026-02-09"
	defaultEndDate   = "2026-04-01"
)

var defaultExcludeDates = []string{"2026-02-17", "2026-02-18"}

const defaultExportLimit = 90

type Handler struct {
	builder    *schedule.Builder
	dispatcher *dispatch.Dispatcher
	direct     *dispatch.DirectSender
	sup        *trigger.Supervisor
	schedules  store.ScheduleStore
	sendLog    store.SendLog
	cache      cache.DispatchCache // nil when redis is not configured
}

func NewHandler(
	builder *schedule.Builder,
	dispatcher *dispatch.Dispatcher,
	direct *dispatch.DirectSender,
	sup *trigger.Supervisor,
	schedules store.ScheduleStore,
	sendLog store.SendLog,
	dispatchCache cache.DispatchCache,
) *Handler {
	return &Handler{
		builder:    builder,
		dispatcher: dispatcher,
		direct:     direct,
		sup:        sup,
		schedules:  schedules,
		sendLog:    sendLog,
		cache:      dispatchCache,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "now": time.Now().UTC().Format(time.RFC3339)})
}

type generateRequest struct {
	Patients     []model.Patient `json:"patients"`
	StartDate    string          `json:"startDate"`
	EndDate      string          `json:"endDate"`
	ExcludeDates []string        `json:"excludeDates"`
}

func (h *Handler) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.StartDate == "" {
		req.StartDate = defaultStartDate
	}
	if req.EndDate == "" {
		req.EndDate = defaultEndDate
	}
	if req.ExcludeDates == nil {
		req.ExcludeDates = defaultExcludeDates
	}

	summary, err := h.builder.Build(r.Context(), req.Patients, req.StartDate, req.EndDate, req.ExcludeDates)
	if err != nil {
		h.writeBuildError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "schedule generated",
		"days":     summary.Days,
		"capacity": summary.Capacity,
		"assigned": summary.Assigned,
	})
}

func (h *Handler) TodayBatch(w http.ResponseWriter, r *http.Request) {
	today := dates.Today()
	out, err := h.dispatcher.DispatchDue(r.Context(), today, true, false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":  dates.Format(today),
		"count": out.Count,
		"batch": out.Items,
	})
}

type forceSendRequest struct {
	DryRun *bool `json:"dryRun"`
}

func (h *Handler) ForceSend(w http.ResponseWriter, r *http.Request) {
	var req forceSendRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	dryRun := req.DryRun == nil || *req.DryRun

	out, err := h.dispatcher.DispatchDue(r.Context(), dates.Today(), dryRun, false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch {
	case out.Count == 0:
		writeJSON(w, http.StatusOK, map[string]any{"message": "no messages to send today", "count": 0})
	case dryRun:
		writeJSON(w, http.StatusOK, map[string]any{"message": "dry run, nothing sent", "count": out.Count, "items": out.Items})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"message": "dispatch executed", "count": out.Count, "result": out.Result})
	}
}

type broadcastRequest struct {
	Phones  []string `json:"phones"`
	Message string   `json:"message"`
	DryRun  *bool    `json:"dryRun"`
}

func (h *Handler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if len(req.Phones) == 0 {
		writeError(w, http.StatusBadRequest, "phones array required")
		return
	}
	if req.Message == "" {
		req.Message = schedule.DefaultBroadcastMessage
	}
	dryRun := req.DryRun == nil || *req.DryRun

	out, err := h.dispatcher.Broadcast(r.Context(), req.Phones, req.Message, dryRun)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if dryRun {
		writeJSON(w, http.StatusOK, map[string]any{"message": "dry run, broadcast not sent", "count": out.Count, "items": out.Batch})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "broadcast executed", "count": out.Count, "result": out.Result})
}

// ExportBroadcast renders a plain-text block (message plus one phone per
// line) for handing a day's batch to an external messaging app.
func (h *Handler) ExportBroadcast(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = dates.Format(dates.Today())
	}
	limit := parseInt(r.URL.Query().Get("limit"), defaultExportLimit)

	entries, err := h.schedules.Load(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var targets []string
	for _, e := range entries {
		if e.ScheduledDate != date || e.Phone == "" {
			continue
		}
		targets = append(targets, e.Phone)
		if len(targets) == limit {
			break
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if len(targets) == 0 {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, "No targets for date: %s", date)
		return
	}

	var b strings.Builder
	b.WriteString("MESSAGE:\n")
	b.WriteString(schedule.DefaultBroadcastMessage)
	b.WriteString("\n\nNUMBERS:\n")
	for _, t := range targets {
		b.WriteString(t)
		b.WriteString("\n")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(b.String()))
}

type directSendRequest struct {
	Patients []dispatch.Item `json:"patients"`
}

func (h *Handler) DirectSend(w http.ResponseWriter, r *http.Request) {
	var req directSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if len(req.Patients) == 0 {
		writeError(w, http.StatusBadRequest, "patients array required")
		return
	}

	result, err := h.direct.Send(r.Context(), req.Patients)
	if err != nil {
		if errors.Is(err, dispatch.ErrNoSendMethod) {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if !result.OK {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": "gateway error", "result": result})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "sent", "result": result})
}

func (h *Handler) TriggerEnable(w http.ResponseWriter, r *http.Request) {
	if !h.sup.Enable() {
		writeJSON(w, http.StatusOK, map[string]any{"message": "trigger already enabled", "enabled": true})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "trigger enabled", "enabled": true})
}

func (h *Handler) TriggerDisable(w http.ResponseWriter, r *http.Request) {
	if !h.sup.Disable() {
		writeJSON(w, http.StatusOK, map[string]any{"message": "trigger already disabled", "enabled": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "trigger disabled", "enabled": false})
}

func (h *Handler) TriggerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"enabled": h.sup.Enabled()})
}

func (h *Handler) ListSendLog(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 50)

	entries, err := h.sendLog.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []model.SendLogEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}

// LastDispatch reads the cached outcome for one send date. 404 when the
// cache is disabled or holds nothing for the date.
func (h *Handler) LastDispatch(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		writeError(w, http.StatusNotFound, "dispatch cache disabled")
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		date = dates.Format(dates.Today())
	}

	entry, err := h.cache.LastResult(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "no cached dispatch for date "+date)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) writeBuildError(w http.ResponseWriter, err error) {
	var capErr *schedule.CapacityError
	switch {
	case errors.As(err, &capErr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":    capErr.Error(),
			"patients": capErr.Patients,
			"capacity": capErr.Capacity,
		})
	case errors.Is(err, schedule.ErrNoPatients), errors.Is(err, dates.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeOptionalBody tolerates an empty request body, which several POST
// endpoints treat as "all defaults".
func decodeOptionalBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func parseInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
