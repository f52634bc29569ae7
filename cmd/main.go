// monitor-service polls external job boards, deduplicates postings against
// Redis, and alerts live subscribers and the Telegram channel about each new
// posting at most once.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"velocity/monitor-service/internal/api"
	"velocity/monitor-service/internal/config"
	"velocity/monitor-service/internal/db"
	"velocity/monitor-service/internal/dedup"
	"velocity/monitor-service/internal/feed"
	"velocity/monitor-service/internal/logstream"
	"velocity/monitor-service/internal/notify"
	"velocity/monitor-service/internal/scheduler"
	"velocity/monitor-service/internal/scraper"
	"velocity/monitor-service/internal/settings"
	"velocity/monitor-service/internal/ws"
)

const logHistorySize = 500

func main() {
	logCore := logstream.NewCore(logHistorySize)
	log := buildLogger(logCore)
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("config load failed", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalw("redis connect failed", "error", err)
	}
	defer rdb.Close()

	seen := dedup.NewRedisStore(rdb, log)
	lists := settings.NewRedisStore(rdb, log)
	if err := lists.SeedIfMissing(ctx); err != nil {
		log.Warnw("config seed failed, defaults remain compiled-in", "error", err)
	}

	jobsHub := ws.NewHub("jobs", log)
	logsHub := ws.NewHub("logs", log)
	logCore.Attach(logsHub)

	var archive scheduler.Archiver
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Warnw("postgres connect failed, feed archive disabled", "error", err)
		} else {
			defer pool.Close()
			archive = feed.NewArchive(pool, log)
		}
	}

	var producer scheduler.EventProducer
	if cfg.KafkaBroker != "" {
		kp := notify.NewKafkaProducer(cfg.KafkaBroker, cfg.KafkaTopic)
		defer kp.Close()
		producer = kp
	}

	sources := []scraper.Source{
		scraper.NewAdzuna(cfg.AdzunaAppID, cfg.AdzunaAppKey, cfg.AdzunaCountry, log),
	}

	sched := scheduler.New(scheduler.Options{
		Sources:       sources,
		Seen:          seen,
		Lists:         lists,
		Hub:           jobsHub,
		Notifier:      notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, log),
		Producer:      producer,
		Archive:       archive,
		Interval:      cfg.PollInterval,
		RecencyWindow: cfg.RecencyWindow,
	}, log)

	if err := sched.Start(ctx); err != nil {
		log.Fatalw("scheduler start failed", "error", err)
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: api.NewHandler(api.Deps{
			Seen:    seen,
			Lists:   lists,
			JobsHub: jobsHub,
			LogsHub: logsHub,
			LogCore: logCore,
			Log:     log,
		}),
	}

	go func() {
		log.Infow("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("http server failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnw("http shutdown", "error", err)
	}
}

// buildLogger tees the console encoder with the logstream core so every
// record also reaches the log-history buffer and the live log viewer.
func buildLogger(streamCore *logstream.Core) *zap.SugaredLogger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	console := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		zapcore.InfoLevel,
	)
	return zap.New(zapcore.NewTee(console, streamCore)).Sugar()
}
