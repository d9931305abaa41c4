package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/taskforge/db"
	"github.com/monocle-dev/taskforge/internal/auth"
	"github.com/monocle-dev/taskforge/internal/config"
	"github.com/monocle-dev/taskforge/internal/handlers"
	"github.com/monocle-dev/taskforge/internal/realtime"
	"github.com/monocle-dev/taskforge/internal/router"
	"github.com/monocle-dev/taskforge/internal/scheduler"
	"github.com/monocle-dev/taskforge/internal/services"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	configureLogging(cfg)
	gin.SetMode(cfg.GinMode)

	gdb, err := db.ConnectDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.MigrateDatabase(gdb); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := realtime.NewHub()
	var events realtime.Broadcaster = hub

	if cfg.RedisURL != "" {
		rc, err := db.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer rc.Close()

		relay := realtime.NewRedisBroadcaster(rc, cfg.RedisChannel, hub)
		go relay.Run(ctx)
		events = relay

		log.WithField("channel", cfg.RedisChannel).Info("Realtime events relayed through redis")
	}

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	notifier := services.NewNotifier(gdb)
	users := services.NewUserService(gdb)
	projects := services.NewProjectService(gdb, events, notifier)
	tasks := services.NewTaskService(gdb, projects, events, notifier)

	h := handlers.New(handlers.Options{
		Users:          users,
		Projects:       projects,
		Tasks:          tasks,
		Notifications:  notifier,
		Issuer:         issuer,
		Hub:            hub,
		CookieDomain:   cfg.CookieDomain,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	r := router.NewRouter(h, router.Config{
		AllowedOrigins: cfg.AllowedOrigins,
		Issuer:         issuer,
		Users:          users,
	})

	reminders := scheduler.New(gdb, notifier, cfg.ReminderInterval, cfg.DueSoonWindow)
	reminders.Start()
	defer reminders.Stop()

	srv := &http.Server{
		Addr:    cfg.Address(),
		Handler: r,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}
}

func configureLogging(cfg *config.Config) {
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
