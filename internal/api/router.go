package api

import "net/http"

func Router(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", h.Health)

	mux.HandleFunc("POST /v1/schedule", h.GenerateSchedule)
	mux.HandleFunc("GET /v1/batch/today", h.TodayBatch)
	mux.HandleFunc("POST /v1/batch/send", h.ForceSend)
	mux.HandleFunc("GET /v1/batch/export", h.ExportBroadcast)

	mux.HandleFunc("POST /v1/broadcast", h.Broadcast)
	mux.HandleFunc("POST /v1/send", h.DirectSend)

	mux.HandleFunc("POST /v1/trigger/enable", h.TriggerEnable)
	mux.HandleFunc("POST /v1/trigger/disable", h.TriggerDisable)
	mux.HandleFunc("GET /v1/trigger/status", h.TriggerStatus)

	mux.HandleFunc("GET /v1/log", h.ListSendLog)
	mux.HandleFunc("GET /v1/dispatch/last", h.LastDispatch)

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("zoriapp"))
	})

	return mux
}
