package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recordsmaster/internal/config"
	"recordsmaster/internal/domain"
	httpapi "recordsmaster/internal/http"
	"recordsmaster/internal/logger"
	"recordsmaster/internal/notify"
	"recordsmaster/internal/repository"
	"recordsmaster/internal/service"
	"recordsmaster/internal/store"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "recordsmaster")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Repositories: Postgres when available, in-memory fallback so plain
	// `go run` stays useful without a database.
	var db *sql.DB
	var records repository.RecordsRepository
	var users repository.UsersRepository
	if cfg.DBEnabled {
		if d, err := sql.Open("postgres", cfg.Database.DSN()); err == nil {
			if err := d.Ping(); err == nil {
				db = d
			} else {
				log.Warn("database ping failed, falling back to in-memory store", zap.Error(err))
				d.Close()
			}
		} else {
			log.Warn("database open failed, falling back to in-memory store", zap.Error(err))
		}
	}
	if db != nil {
		records = repository.NewPostgresRecordsRepository(db)
		users = repository.NewPostgresUsersRepository(db)
		log.Info("database enabled")
	} else {
		records = repository.NewMemoryRecordsRepository()
		users = repository.NewMemoryUsersRepository()
		log.Info("using in-memory store")
	}

	// Cache: best effort, NopKV when Redis is off.
	var kv store.KV = store.NopKV{}
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		kv = store.NewRedisKV(redisClient)
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.NotifyWebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.NotifyWebhookURL, log)
	}

	labelSvc := service.NewLabelService(records, cfg.LabelPrinter, log)
	lifecycleSvc := service.NewLifecycleService(records, kv, notifier, log)
	ingestSvc := service.NewIngestService(records, kv, notifier, log,
		func(ctx context.Context, batch []*domain.RecordItem) {
			// Post-commit hook: stage labels for the new batch when a
			// printer is configured.
			if cfg.LabelPrinter == "" || len(batch) == 0 {
				return
			}
			first, last := batch[0].Barcode, batch[len(batch)-1].Barcode
			if err := labelSvc.PrintRange(ctx, first, last); err != nil {
				log.Warn("label print after ingest failed",
					zap.String("first_barcode", first),
					zap.String("last_barcode", last),
					zap.Error(err),
				)
			}
		})
	updateSvc := service.NewUpdateService(records, log)
	exportSvc := service.NewExportService(records, log)
	userSvc := service.NewUserService(users, log)

	if cfg.AdminEmail != "" {
		if id, err := userSvc.EnsureUser(context.Background(), cfg.AdminEmail, domain.RoleAdmin); err != nil {
			log.Warn("admin seed failed", zap.Error(err))
		} else {
			log.Info("admin account ready", zap.String("user_id", id))
		}
	}

	router := httpapi.NewRouter(log)
	router.RegisterHealthRoute()
	router.RegisterRecordRoutes(httpapi.NewRecordsHandler(records, lifecycleSvc, log))
	router.RegisterUploadRoutes(httpapi.NewUploadHandler(ingestSvc, updateSvc, exportSvc, log))
	router.RegisterLabelRoutes(httpapi.NewLabelsHandler(labelSvc, log))
	router.RegisterUserRoutes(httpapi.NewUsersHandler(userSvc, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
	case err := <-errCh:
		if err != nil {
			log.Error("server exited", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = db.Close()
	}
}
