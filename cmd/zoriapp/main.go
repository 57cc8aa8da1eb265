package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/waldjos/zoriapp/internal/api"
	"github.com/waldjos/zoriapp/internal/cache"
	"github.com/waldjos/zoriapp/internal/config"
	"github.com/waldjos/zoriapp/internal/dates"
	"github.com/waldjos/zoriapp/internal/dispatch"
	"github.com/waldjos/zoriapp/internal/schedule"
	"github.com/waldjos/zoriapp/internal/store"
	"github.com/waldjos/zoriapp/internal/trigger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadAll()
	if err != nil {
		log.Fatal(err)
	}

	scheduleStore, sendLog, err := buildStores(cfg)
	if err != nil {
		log.Fatal(err)
	}

	var gateway *dispatch.GatewayClient
	if cfg.Gateway.URL != "" {
		gateway = dispatch.NewGatewayClient(cfg.Gateway.URL, cfg.Gateway.Token)
	}
	var relay *dispatch.RelayClient
	if cfg.Relay.Token != "" {
		relay = dispatch.NewRelayClient(cfg.Relay.URL, cfg.Relay.Token)
	}
	chain := dispatch.NewChain(gateway, relay)

	var (
		dispatchCache cache.DispatchCache
		resultCache   dispatch.ResultCache
	)
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rc := cache.NewRedisCache(rdb, cfg.Redis.TTL)
		dispatchCache = rc
		resultCache = rc
	}

	dispatcher := dispatch.NewDispatcher(scheduleStore, sendLog, chain, resultCache, cfg.Batch.DailyCapacity)
	builder := schedule.NewBuilder(scheduleStore, cfg.Batch.DailyCapacity, cfg.Batch.ContentMax)

	var tw *dispatch.TwilioClient
	if cfg.Twilio.AccountSID != "" && cfg.Twilio.AuthToken != "" && cfg.Twilio.From != "" {
		tw = dispatch.NewTwilioClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.From)
	}
	direct := dispatch.NewDirectSender(gateway, tw)

	sup, err := trigger.New(cfg.Trigger.SendHour, func(ctx context.Context) {
		tomorrow := dates.Today().AddDate(0, 0, 1)
		out, err := dispatcher.DispatchDue(ctx, tomorrow, false, true)
		if err != nil {
			slog.Error("unattended dispatch failed", "date", dates.Format(tomorrow), "error", err)
			return
		}
		if out.Count == 0 {
			slog.Info("no messages due", "date", dates.Format(tomorrow))
			return
		}
		slog.Info("unattended dispatch completed",
			"date", dates.Format(tomorrow),
			"count", out.Count,
			"ok", out.Result.OK,
			"via", out.Result.Via,
		)
	})
	if err != nil {
		log.Fatal(err)
	}

	h := api.NewHandler(builder, dispatcher, direct, sup, scheduleStore, sendLog, dispatchCache)

	slog.Info("zoriapp starting",
		"addr", cfg.Server.Address,
		"send_hour", cfg.Trigger.SendHour,
		"daily_capacity", cfg.Batch.DailyCapacity,
		"gateway", cfg.Gateway.URL != "",
		"postgres", cfg.Storage.PostgresURL != "",
		"redis", cfg.Redis.Enabled,
	)

	if err := http.ListenAndServe(cfg.Server.Address, loggingMiddleware(api.Router(h))); err != nil {
		log.Fatal(err)
	}
}

func buildStores(cfg *config.Config) (store.ScheduleStore, store.SendLog, error) {
	if cfg.Storage.PostgresURL == "" {
		fs, err := store.NewFileStore(cfg.Storage.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return fs, fs, nil
	}

	db, err := sql.Open("pgx", cfg.Storage.PostgresURL)
	if err != nil {
		return nil, nil, err
	}
	pg := store.NewPostgresStore(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := pg.EnsureSchema(ctx); err != nil {
		return nil, nil, err
	}
	return pg, pg, nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
