package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/hms-core/internal/config"
	"github.com/jwalitptl/hms-core/internal/handler/health"
	"github.com/jwalitptl/hms-core/internal/repository/postgres"
	"github.com/jwalitptl/hms-core/pkg/logger"
	"github.com/jwalitptl/hms-core/pkg/messaging"
	"github.com/jwalitptl/hms-core/pkg/messaging/redis"
	"github.com/jwalitptl/hms-core/pkg/metrics"
	"github.com/jwalitptl/hms-core/pkg/worker"
)

func main() {
	var configPath, healthAddr string

	rootCmd := &cobra.Command{
		Use:   "hms-worker",
		Short: "Relays booking and admission events from the outbox to Redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelay(cmd.Context(), configPath, healthAddr)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yml")
	rootCmd.Flags().StringVar(&healthAddr, "health-addr", ":8081", "health and metrics listen address")
	rootCmd.AddCommand(watchCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup(configPath string) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	l := logger.NewLogger(cfg.Log.ToLoggerConfig())
	l.SetGlobal()
	return cfg, l, nil
}

func runRelay(ctx context.Context, configPath, healthAddr string) error {
	cfg, l, err := setup(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(ctx, cfg.Database.Options())
	if err != nil {
		return err
	}
	defer db.Close()

	m := metrics.NewMetrics(cfg.Metrics.Namespace, "outbox_processor")

	broker, err := redis.NewRedisBroker(ctx, cfg.Redis.ToBrokerConfig(), l, m)
	if err != nil {
		return err
	}
	defer broker.Close()

	processor := worker.NewOutboxProcessor(
		postgres.NewOutboxRepository(db),
		broker,
		cfg.Outbox.ToWorkerConfig(),
		l,
		m,
	)

	srv := healthServer(healthAddr, db)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error(err, "Health check server failed")
			stop()
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	processor.Start(ctx)
	return nil
}

func healthServer(addr string, db health.Pinger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}

// watchCmd prints relayed events, for checking a deployment end to end.
func watchCmd(configPath *string) *cobra.Command {
	var eventType string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Subscribe to relayed events and print them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, l, err := setup(*configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			broker, err := redis.NewRedisBroker(ctx, cfg.Redis.ToBrokerConfig(), l, metrics.New(cfg.Metrics.Namespace))
			if err != nil {
				return err
			}
			defer broker.Close()

			channel := messaging.Channel(cfg.Outbox.ChannelPrefix, eventType)
			msgs, err := broker.Subscribe(ctx, channel)
			if err != nil {
				return err
			}
			log.Info().Str("channel", channel).Msg("Watching")

			for payload := range msgs {
				cmd.Println(string(payload))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&eventType, "type", "appointment.booked", "event type to watch")
	return cmd
}
