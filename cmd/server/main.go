package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic-call-queue/internal/calllog"
	"clinic-call-queue/internal/config"
	"clinic-call-queue/internal/database"
	"clinic-call-queue/internal/handler"
	"clinic-call-queue/internal/middleware"
	"clinic-call-queue/internal/notify"
	"clinic-call-queue/internal/queue"
	"clinic-call-queue/internal/repository"
	"clinic-call-queue/internal/roster"
	"clinic-call-queue/internal/service"
	"clinic-call-queue/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "server",
		Short: "Clinic patient call queue",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(displayCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the operator and display API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func displayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "display",
		Short: "Run a terminal display that announces calls from the shared log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDisplay()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the SQL tables and the call log slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg := config.LoadConfig()
	logger := utils.NewLogger(cfg.Log.Level, cfg.Log.Pretty)
	for _, w := range cfg.Warnings {
		logger.Warn().Msg(w)
	}
	if err := cfg.Validate(); err != nil {
		return nil, logger, err
	}
	logger.Info().Str("backend", cfg.CallLog.Backend).Str("slot", cfg.CallLog.Slot).Msg("configuration loaded")
	return cfg, logger, nil
}

// openSlotStore connects the configured call log backend. The returned
// *gorm.DB is nil unless the backend is SQL.
func openSlotStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (calllog.SlotStore, *gorm.DB, func(), error) {
	noop := func() {}

	switch cfg.CallLog.Backend {
	case "memory":
		logger.Warn().Msg("call log kept in memory: only views inside this process can read it")
		return calllog.NewMemoryStore(), nil, noop, nil

	case "mongo":
		client, db, err := database.ConnectMongo(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, nil, noop, err
		}
		closer := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Warn().Err(err).Msg("failed to disconnect from MongoDB")
			}
		}
		return repository.NewMongoSlotRepo(db, cfg.CallLog.Slot), nil, closer, nil

	default:
		db, err := database.Connect(cfg, logger)
		if err != nil {
			return nil, nil, noop, err
		}
		closer := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return repository.NewCallLogSlotRepo(db, cfg.CallLog.Slot), db, closer, nil
	}
}

func runServer() error {
	// 1. Load configuration
	cfg, logger, err := loadConfig()
	if err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}

	// 2. Load the roster; a malformed roster is fatal
	patients, err := roster.LoadFile(cfg.Roster.Path)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.Roster.Path).Msg("failed to load roster")
		return err
	}
	queueStore := queue.NewStore()
	if err := queueStore.Initialize(patients); err != nil {
		logger.Error().Err(err).Msg("failed to initialize queue")
		return err
	}
	logger.Info().Int("patients", len(patients)).Msg("roster loaded")

	// 3. Connect the shared call log
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slotStore, db, closeStore, err := openSlotStore(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open call log store")
		return err
	}
	defer closeStore()

	strategy, _ := calllog.ParseStrategy(cfg.CallLog.Strategy)
	callLog := calllog.New(slotStore, strategy)

	// 4. Initialize services
	var auditor service.Auditor
	if db != nil {
		auditor = repository.NewAuditRepo(db)
	}
	queueService := service.NewQueueService(queueStore, callLog, auditor, logger)

	// patients called before a restart stay Called
	if _, err := queueService.Reconcile(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to reconcile queue with call log")
		return err
	}
	displayService := service.NewDisplayService(callLog)

	// 5. Start the display worker in a goroutine
	hub := notify.NewHub(logger)
	workerService := service.NewWorkerService(callLog, hub, cfg.Display.PollInterval, logger)
	go workerService.Start(ctx)

	// 6. Setup Gin router
	gin.SetMode(cfg.Server.GinMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg))

	r.GET("/health", func(c *gin.Context) {
		utils.SuccessResponse(c, gin.H{
			"status":            "healthy",
			"service":           "clinic-call-queue",
			"call_log_backend":  cfg.CallLog.Backend,
			"call_log_strategy": string(callLog.Strategy()),
			"displays":          hub.ClientCount(),
		})
	})

	// 7. Register handlers
	api := r.Group("/api/v1")
	handler.NewQueueHandler(queueService).RegisterRoutes(api.Group("/queue"))
	handler.NewDisplayHandler(displayService, hub.HandleConnect).RegisterRoutes(api.Group("/display"))

	// 8. Serve until interrupted
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Server.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		logger.Error().Err(err).Msg("server failed")
		return err
	}
	logger.Info().Msg("shutting down server")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info().Msg("server exited")
	return nil
}

func runDisplay() error {
	cfg, logger, err := loadConfig()
	if err == nil {
		err = cfg.ValidateDisplay()
	}
	if err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slotStore, _, closeStore, err := openSlotStore(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open call log store")
		return err
	}
	defer closeStore()

	// the display reads only, so the write strategy is irrelevant here
	callLog := calllog.New(slotStore, calllog.StrategySingleWriter)
	workerService := service.NewWorkerService(callLog, service.NewAnnouncer(logger), cfg.Display.PollInterval, logger)
	workerService.Start(ctx)
	return nil
}

func runMigrate() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}
	if !cfg.UsesSQL() {
		return fmt.Errorf("migrate needs CALL_LOG_BACKEND=mysql or postgres, got %q", cfg.CallLog.Backend)
	}

	db, err := database.Connect(cfg, logger)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := repository.NewCallLogSlotRepo(db, cfg.CallLog.Slot).EnsureSlot(context.Background()); err != nil {
		return fmt.Errorf("create call log slot: %w", err)
	}

	logger.Info().Str("slot", cfg.CallLog.Slot).Msg("migration complete")
	return nil
}
