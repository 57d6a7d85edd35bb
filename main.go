package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ciclus/rd-dashboard/config"
	"github.com/ciclus/rd-dashboard/database"
	"github.com/ciclus/rd-dashboard/models"
	"github.com/ciclus/rd-dashboard/realtime"
	"github.com/ciclus/rd-dashboard/repository"
	"github.com/ciclus/rd-dashboard/router"
	"github.com/ciclus/rd-dashboard/services"
	"github.com/ciclus/rd-dashboard/storage"
	"github.com/ciclus/rd-dashboard/utils"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to load config: %v", err)
	}
	utils.InitLogger(cfg.LogLevel)
	utils.SetJWTSecret(cfg.JWTSecret)
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)
	if err := database.Migrate(db, cfg.DBDriver); err != nil {
		utils.ErrorLogger.Fatalf("Failed to migrate: %v", err)
	}

	hub := realtime.NewHub()
	defer hub.Close()

	var publisher realtime.Publisher = hub
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		bridge := realtime.NewRedisBridge(rdb, hub)
		if err := bridge.Start(ctx); err != nil {
			utils.ErrorLogger.Errorf("Redis unavailable, change notices stay local: %v", err)
		} else {
			defer bridge.Stop()
			publisher = bridge
		}
	}

	monitor := services.NewChangeMonitor(db, publisher, cfg.ChangePollInterval)
	monitor.Start()
	defer monitor.Stop()

	go utils.RunBlacklistCleanup(ctx, time.Hour)
	go purgeChanges(ctx, monitor)

	photos, err := storage.New(ctx, cfg.S3, cfg.UploadDir, "/uploads")
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to set up photo storage: %v", err)
	}

	reports := repository.NewReportRepository(db, hub)
	employees := repository.NewEmployeeRepository(db)
	users := repository.NewUserRepository(db)
	geo := services.NewGeoClient(cfg.Geocoding)
	drafts := services.NewDraftStore(func(u models.User) *services.FormController {
		return services.NewFormController(u, geo, reports, users)
	})

	r := router.SetupRouter(router.Deps{
		DB:                    db,
		Hub:                   hub,
		Reports:               reports,
		Employees:             employees,
		Users:                 users,
		Photos:                photos,
		Geo:                   geo,
		Drafts:                drafts,
		Goals:                 services.Goals{CapinaPerDay: cfg.Goals.CapinaPerDay, RocagemPerDay: cfg.Goals.RocagemPerDay},
		Teams:                 cfg.Teams,
		AllowedOrigins:        cfg.AllowedOrigins,
		UploadDir:             cfg.UploadDir,
		AdminFunctionsEnabled: cfg.AdminFunctionsEnabled,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		utils.InfoLogger.Infof("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	utils.InfoLogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.ErrorLogger.Errorf("Forced shutdown: %v", err)
	}
}

// purgeChanges trims the processed change feed once a day.
func purgeChanges(ctx context.Context, monitor *services.ChangeMonitor) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := monitor.Purge(7 * 24 * time.Hour)
			if err != nil {
				utils.ErrorLogger.Errorf("purge db_changes: %v", err)
				continue
			}
			utils.InfoLogger.Infof("purged %d processed changes", n)
		}
	}
}
