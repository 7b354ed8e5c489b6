package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"decisionjar/internal/auth"
	"decisionjar/internal/config"
	"decisionjar/internal/db"
	httpx "decisionjar/internal/http"
	"decisionjar/internal/jobs"
	"decisionjar/internal/logging"
	"decisionjar/internal/notify"
	"decisionjar/internal/rewards"
	"decisionjar/internal/selection"
)

func main() {
	logging.Setup()

	cfg, _ := config.Load()

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		fatal("db connect", err)
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		fatal("db migrate", err)
	}

	// push transport
	var pusher notify.Pusher = notify.LogPusher{}
	if cfg.RedisAddr != "" {
		rp, err := notify.NewRedisPusher(cfg.RedisAddr, cfg.RedisPushChannel)
		if err != nil {
			fatal("redis", err)
		}
		defer rp.Close()
		pusher = rp
	} else {
		slog.Warn("REDIS_ADDR not set, pushes are only logged")
	}

	jobsRepo := &jobs.Repo{DB: gdb}
	worker := &jobs.Worker{
		ID:   cfg.WorkerID,
		Repo: jobsRepo,
		Handlers: map[string]jobs.Handler{
			jobs.TypePushDispatch: &notify.PushHandler{Pusher: pusher},
		},
	}

	store := &selection.GormStore{DB: gdb}
	dispatcher := &selection.Dispatcher{
		Members:      store,
		Notifier:     &notify.Outbox{Jobs: jobsRepo},
		Ledger:       &rewards.Ledger{DB: gdb},
		Achievements: &rewards.Evaluator{DB: gdb},
		BaseURL:      cfg.PublicBaseURL,
	}
	spinSvc := &selection.Service{Store: store, Dispatcher: dispatcher}

	jwtSvc := auth.NewJWT(cfg.JWTSecret)
	r := httpx.NewRouter(cfg, gdb, jwtSvc, spinSvc)

	ctx, cancel := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Run(ctx)
	}()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("http server", err)
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	// spins already committed still enqueue their pushes before the worker stops;
	// handlers outliving the shutdown timeout run their effects inline
	dispatcher.Close()
	cancel()
	<-workerDone
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
