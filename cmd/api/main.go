package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/hms-core/internal/config"
	"github.com/jwalitptl/hms-core/internal/handler/admission"
	"github.com/jwalitptl/hms-core/internal/handler/appointment"
	"github.com/jwalitptl/hms-core/internal/handler/health"
	"github.com/jwalitptl/hms-core/internal/handler/queue"
	"github.com/jwalitptl/hms-core/internal/handler/schedule"
	"github.com/jwalitptl/hms-core/internal/handler/sequence"
	"github.com/jwalitptl/hms-core/internal/handler/ward"
	"github.com/jwalitptl/hms-core/internal/middleware"
	"github.com/jwalitptl/hms-core/internal/repository/postgres"
	"github.com/jwalitptl/hms-core/internal/router"
	admissionService "github.com/jwalitptl/hms-core/internal/service/admission"
	appointmentService "github.com/jwalitptl/hms-core/internal/service/appointment"
	directoryService "github.com/jwalitptl/hms-core/internal/service/directory"
	eventService "github.com/jwalitptl/hms-core/internal/service/event"
	queueService "github.com/jwalitptl/hms-core/internal/service/queue"
	sequenceService "github.com/jwalitptl/hms-core/internal/service/sequence"
	slotService "github.com/jwalitptl/hms-core/internal/service/slot"
	wardService "github.com/jwalitptl/hms-core/internal/service/ward"
	"github.com/jwalitptl/hms-core/pkg/auth"
	"github.com/jwalitptl/hms-core/pkg/logger"
	"github.com/jwalitptl/hms-core/pkg/metrics"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "hms-api",
		Short: "Scheduling, queue and bed allocation API",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yml")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(migrateCmd(&configPath))
	rootCmd.AddCommand(tokenCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func bootstrap(configPath string) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	l := logger.NewLogger(cfg.Log.ToLoggerConfig())
	l.SetGlobal()
	return cfg, l, nil
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, l, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg, l)
		},
	}
}

func runServer(ctx context.Context, cfg *config.Config, l *logger.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Scheduling.Location()
	if err != nil {
		return err
	}

	db, err := postgres.NewDB(ctx, cfg.Database.Options())
	if err != nil {
		return err
	}
	defer db.Close()

	m := metrics.NewMetrics(cfg.Metrics.Namespace, "api")

	// Initialize repositories
	sequenceRepo := postgres.NewSequenceRepository(db)
	scheduleRepo := postgres.NewScheduleRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	queueRepo := postgres.NewQueueRepository(db)
	wardRepo := postgres.NewWardRepository(db)
	admissionRepo := postgres.NewAdmissionRepository(db)
	directoryRepo := postgres.NewDirectoryRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Initialize services
	directorySvc := directoryService.NewService(directoryRepo, m, cfg.Directory.CacheTTL)
	eventSvc := eventService.NewService(outboxRepo, l)
	sequenceSvc := sequenceService.NewService(sequenceRepo, l, m, sequenceService.WithLocation(loc))
	slotSvc := slotService.NewService(scheduleRepo, appointmentRepo, directorySvc, l, m, slotService.WithLocation(loc))
	appointmentSvc := appointmentService.NewService(appointmentRepo, directorySvc, sequenceSvc, eventSvc, l, m,
		appointmentService.WithLocation(loc))
	queueSvc := queueService.NewService(queueRepo, l, m, queueService.WithLocation(loc))
	wardSvc := wardService.NewService(wardRepo, l)
	admissionSvc := admissionService.NewService(admissionRepo, appointmentRepo, directorySvc, sequenceSvc, eventSvc, l, m)

	tokens := auth.NewTokenManager(cfg.JWT.ToAuthConfig())
	r := router.NewRouter(
		middleware.NewAuthMiddleware(tokens),
		health.NewHandler(db),
		[]router.Handler{
			schedule.NewHandler(slotSvc),
			appointment.NewHandler(appointmentSvc),
			queue.NewHandler(queueSvc),
			ward.NewHandler(wardSvc),
			admission.NewHandler(admissionSvc),
			sequence.NewHandler(sequenceSvc),
		},
		m,
		router.RouterConfig{
			Mode:        cfg.Server.Mode,
			RateLimitOn: cfg.RateLimit.Enabled,
			RateLimit:   rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:   cfg.RateLimit.Burst,
			CORSConfig:  corsConfig(cfg.CORS),
			MetricsPath: cfg.Metrics.Path,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("timezone", loc.String()).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info().Msg("Server exited")
	return nil
}

func corsConfig(c config.CORSConfig) middleware.CORSConfig {
	out := middleware.DefaultCORSConfig()
	if len(c.AllowedOrigins) > 0 {
		out.AllowOrigins = c.AllowedOrigins
	}
	return out
}

func migrateCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), *configPath, func(db *sqlx.DB) error {
				n, err := postgres.NewMigrator(db).Up(cmd.Context())
				if err != nil {
					return err
				}
				log.Info().Int("applied", n).Msg("Migrations complete")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), *configPath, func(db *sqlx.DB) error {
				statuses, err := postgres.NewMigrator(db).Status(cmd.Context())
				if err != nil {
					return err
				}
				for _, s := range statuses {
					state := "pending"
					if s.Applied {
						state = "applied " + s.AppliedAt.Format("2006-01-02 15:04:05")
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%03d  %-40s %s\n", s.Version, s.Name, state)
				}
				return nil
			})
		},
	})

	return cmd
}

func withDB(ctx context.Context, configPath string, fn func(*sqlx.DB) error) error {
	cfg, _, err := bootstrap(configPath)
	if err != nil {
		return err
	}
	db, err := postgres.NewDB(ctx, cfg.Database.Options())
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

// tokenCmd mints a bearer token for local testing against the configured
// secret.
func tokenCmd(configPath *string) *cobra.Command {
	var hospital, user string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			hospitalID, err := uuid.Parse(hospital)
			if err != nil {
				return fmt.Errorf("invalid --hospital: %w", err)
			}
			userID, err := uuid.Parse(user)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
			token, err := auth.NewTokenManager(cfg.JWT.ToAuthConfig()).Issue(hospitalID, userID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&hospital, "hospital", "", "hospital id")
	cmd.Flags().StringVar(&user, "user", "", "user id")
	_ = cmd.MarkFlagRequired("hospital")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
