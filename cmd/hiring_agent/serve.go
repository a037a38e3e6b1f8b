package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/hiring-pipeline/internal/config"
	"github.com/jonathan/hiring-pipeline/internal/db"
	"github.com/jonathan/hiring-pipeline/internal/events"
	"github.com/jonathan/hiring-pipeline/internal/llm"
	"github.com/jonathan/hiring-pipeline/internal/logging"
	"github.com/jonathan/hiring-pipeline/internal/notify"
	"github.com/jonathan/hiring-pipeline/internal/pipeline"
	"github.com/jonathan/hiring-pipeline/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the application lifecycle, analyses and the change-event stream.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}
	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		return err
	}

	log := logging.New(cfg.LogLevel)
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.GeminiAPIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer client.Close() //nolint:errcheck

	inferer := llm.NewInferer(client, llm.InfererOptions{
		Documents: llm.NewFSLoader(cfg.DocumentRoot),
		Source:    store,
		Logger:    log,
	})

	notifier, err := newNotifier(cfg, log)
	if err != nil {
		return err
	}

	hub := events.NewHub(0)
	var publisher pipeline.Publisher = hub
	relayErr := make(chan error, 1)
	if cfg.RabbitMQURL != "" {
		amqpPub, err := events.DialAMQP(cfg.RabbitMQURL, cfg.RabbitMQExchange, log)
		if err != nil {
			return err
		}
		defer amqpPub.Close() //nolint:errcheck
		publisher = events.Multi{hub, amqpPub}
		// A lost relay shuts the server down; the supervisor restarts it.
		go func() {
			err := amqpPub.Relay(ctx, hub)
			if ctx.Err() != nil {
				return
			}
			log.Error("change event relay stopped, shutting down", "error", err)
			relayErr <- err
			stop()
		}()
		log.Info("change events fanned out over RabbitMQ", "exchange", cfg.RabbitMQExchange)
	}

	opts := pipeline.Options{Store: store, Notifier: notifier, Publisher: publisher, Logger: log}
	srv, err := server.New(server.Config{Port: cfg.Port}, server.Deps{
		Engine:       pipeline.NewEngine(opts),
		Orchestrator: pipeline.NewOrchestrator(opts, inferer, pipeline.OrchestratorConfig{InferenceTimeout: cfg.InferenceTimeout()}),
		Hub:          hub,
		Tokens:       server.NewJWTService(jwtCfg),
		Health:       store,
		Logger:       log,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if err := srv.Start(ctx); err != nil {
		return err
	}
	select {
	case err := <-relayErr:
		return fmt.Errorf("change event relay: %w", err)
	default:
		return nil
	}
}

// newNotifier returns an SMTP mailer, or a notifier that only logs when no
// mail server is configured.
func newNotifier(cfg *config.Config, log *logging.Logger) (pipeline.Notifier, error) {
	smtp := notify.SMTPConfig{
		Host:          cfg.SMTPHost,
		Port:          cfg.SMTPPort,
		User:          cfg.SMTPUser,
		Pass:          cfg.SMTPPass,
		From:          cfg.SMTPFrom,
		SkipTLSVerify: cfg.SMTPSkipTLSVerify,
	}
	if !smtp.Configured() {
		log.Warn("SMTP not configured, notifications are logged only")
		return notify.NewLogNotifier(log), nil
	}
	mailer, err := notify.NewMailer(smtp, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create mailer: %w", err)
	}
	return mailer, nil
}

// withStore opens the configured database for one-shot commands.
func withStore(ctx context.Context, fn func(*config.Config, *db.DB) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}
	store, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cfg, store)
}
