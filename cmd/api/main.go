package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/woodentreasures/playhouse-server/internal/config"
	"github.com/woodentreasures/playhouse-server/internal/database"
	"github.com/woodentreasures/playhouse-server/internal/handlers"
	"github.com/woodentreasures/playhouse-server/internal/models"
	"github.com/woodentreasures/playhouse-server/internal/services/crm"
	"github.com/woodentreasures/playhouse-server/internal/store"
	"github.com/woodentreasures/playhouse-server/internal/sync"
	"github.com/woodentreasures/playhouse-server/internal/utils"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize database (embedded vs external is detected automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}

	// 3. Synchronize schema
	logrus.Info("Synchronizing database schema...")
	err = db.AutoMigrate(
		&models.UserAuth{},
		&models.Contact{},
		&models.Consultation{},
		&models.SyncTask{},
	)
	if err != nil {
		// A broken schema is not survivable; stop the embedded process
		// cleanly before exiting
		_ = db.Close()
		logrus.Fatalf("Failed to migrate database schema: %v", err)
	}

	// 4. Record store + seeded admin
	st := store.New(db.DB, cfg.Sync.MaxAttempts)

	adminHash, err := utils.HashPassword(cfg.Admin.Password)
	if err != nil {
		logrus.Fatalf("Failed to hash admin password: %v", err)
	}
	if err := st.EnsureAdmin(cfg.Admin.Email, adminHash); err != nil {
		logrus.Warnf("Failed to seed admin account: %v", err)
	}

	// 5. CRM client + sync engine + background worker
	var (
		crmClient *crm.Client
		engine    *sync.Engine
		worker    *sync.Worker
	)
	if cfg.CRM.URL == "" {
		logrus.Info("CRM sync disabled: CRM_URL not configured")
	} else {
		crmClient = crm.NewClient(cfg.CRM)
		engine = sync.NewEngine(st, crmClient, cfg.Sync.BatchSize)
		worker = sync.NewWorker(engine, cfg.Sync.Interval)
		worker.Start()
	}

	// 6. HTTP router
	var tester handlers.ConnectionTester
	if crmClient != nil {
		tester = crmClient
	}
	router := handlers.NewRouter(st, engine, tester, cfg.JWTSecret)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router.Handler(),
	}

	// 7. Start server with graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		logrus.Infof("Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	sig := <-shutdown
	logrus.Infof("Received signal: %v. Shutting down gracefully...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	if worker != nil {
		worker.Stop()
	}

	logrus.Info("Closing database connection...")
	if err := db.Close(); err != nil {
		logrus.Errorf("Database close error: %v", err)
	}

	logrus.Info("Shutdown complete")
}
