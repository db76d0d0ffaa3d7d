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

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/spineclinic/intake/internal/config"
	"github.com/spineclinic/intake/internal/domain/assessment"
	"github.com/spineclinic/intake/internal/domain/notification"
	"github.com/spineclinic/intake/internal/domain/patient"
	"github.com/spineclinic/intake/internal/platform/auth"
	"github.com/spineclinic/intake/internal/platform/db"
	"github.com/spineclinic/intake/internal/platform/middleware"
	ws "github.com/spineclinic/intake/internal/platform/websocket"
	"github.com/spineclinic/intake/internal/triage"
)

// assessmentStoreAdapter adapts the assessment repository to the triage
// scheduler's store interface, mapping the duplicate-key error onto the
// scheduler's claim semantics. The adapter lives here to avoid an import
// cycle between the assessment and triage packages.
type assessmentStoreAdapter struct {
	repo assessment.Repository
}

func (a assessmentStoreAdapter) ExistsForPatient(ctx context.Context, patientID uuid.UUID) (bool, error) {
	return a.repo.ExistsForPatient(ctx, patientID)
}

func (a assessmentStoreAdapter) Create(ctx context.Context, patientID, doctorID uuid.UUID, aiResponse map[string]interface{}) error {
	err := a.repo.Create(ctx, &assessment.Assessment{
		PatientID:  patientID,
		DoctorID:   doctorID,
		AIResponse: aiResponse,
	})
	if errors.Is(err, assessment.ErrDuplicate) {
		return triage.ErrAlreadyClaimed
	}
	return err
}

// schedulerNotifier routes the scheduler's assessment-created event into
// the notification facade.
type schedulerNotifier struct {
	notifier *notification.Notifier
}

func (s schedulerNotifier) AssessmentCreated(ctx context.Context, p *patient.Patient, view triage.ResponseView) {
	s.notifier.AssessmentReady(ctx, p.AssignedDoctorID, p.CreatedByID, p.ID, view.Urgency)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "intake-server",
		Short: "Spine clinic intake and AI triage server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the intake API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Domain wiring
	patientRepo := patient.NewRepoPG(pool)
	patientSvc := patient.NewService(patientRepo)

	notifRepo := notification.NewRepoPG(pool)
	notifSvc := notification.NewService(notifRepo, patientSvc)

	registry := ws.NewRegistry()
	notifier := notification.NewNotifier(notifSvc, registry, logger)

	triageClient := triage.NewClient(cfg.TriageURL, logger)

	assessRepo := assessment.NewRepoPG(pool)
	assessSvc := assessment.NewService(assessRepo, patientSvc, triageClient, notifier)

	scheduler := triage.NewScheduler(patientRepo, assessmentStoreAdapter{repo: assessRepo},
		triageClient, schedulerNotifier{notifier: notifier}, logger)
	scheduler.Interval = cfg.TriageTick()
	if cfg.TriageBatch > 0 {
		scheduler.BatchSize = cfg.TriageBatch
	}

	// Routes. Auth is scoped to the API group: the WebSocket handshake
	// authenticates itself from the token query parameter (browser clients
	// cannot set an Authorization header), and the health probes must stay
	// reachable without credentials.
	apiV1 := e.Group("/api/v1")
	if cfg.IsDev() && cfg.JWTSecret == "" {
		logger.Warn().Msg("running with permissive dev auth; set JWT_SECRET to disable")
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(cfg.JWTSecret))
	}
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	patient.NewHandler(patientSvc, notifier).RegisterRoutes(apiV1)
	assessment.NewHandler(assessSvc).RegisterRoutes(apiV1)
	notification.NewHandler(notifSvc, notifier).RegisterRoutes(apiV1)
	ws.NewHandler(registry, cfg.JWTSecret, logger).RegisterRoutes(e)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Background triage worker
	schedCtx, schedCancel := context.WithCancel(ctx)
	go scheduler.Start(schedCtx)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	schedCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
